package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/fahmaliyi/pmgr/vault"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func (a *App) initCmd() *cobra.Command {
	var allowWeak bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a new vault",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.VaultPath()
			if err != nil {
				return err
			}
			if vault.FileExists(path) {
				return errors.Wrap(vault.ErrExists, path)
			}

			pw, err := a.newMasterPassword(allowWeak)
			if err != nil {
				return err
			}
			defer vault.Zero(pw)

			v, err := vault.CreateVault(path, pw, vault.WithLogger(a.Log))
			if err != nil {
				return err
			}
			defer v.Lock()
			a.remember(path)
			fmt.Fprintf(a.Out, "Vault created at %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&allowWeak, "allow-weak", false, "Accept a master password that scores below the strength threshold")
	return cmd
}

func (a *App) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List entries",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := a.openVault()
			if err != nil {
				return err
			}
			defer v.Lock()
			a.printList(v)
			return nil
		},
	}
}

func (a *App) printList(v *vault.Vault) {
	entries := v.List()
	if len(entries) == 0 {
		fmt.Fprintln(a.Out, "Vault is empty.")
		return
	}
	fmt.Fprintln(a.Out, "Vault entries:")
	for i, e := range entries {
		fmt.Fprintf(a.Out, "%d) Service: %s | Username: %s\n", i+1, e.Service, e.Username)
		vault.Zero(e.Password)
	}
}

func (a *App) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show N",
		Short: "Show an entry including its password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEntry(args[0], func(v *vault.Vault, i int) error {
				a.printEntry(v, i)
				return nil
			})
		},
	}
}

func (a *App) printEntry(v *vault.Vault, i int) {
	e, ok := v.Get(i)
	if !ok {
		fmt.Fprintln(a.Out, "Entry not found")
		return
	}
	defer vault.Zero(e.Password)
	fmt.Fprintf(a.Out, "Service: %s\nUsername: %s\nPassword: %s\n", e.Service, e.Username, e.Password)
}

func (a *App) copyCmd() *cobra.Command {
	var clearAfter time.Duration
	cmd := &cobra.Command{
		Use:   "copy N",
		Short: "Copy an entry's password to the clipboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEntry(args[0], func(v *vault.Vault, i int) error {
				e, _ := v.Get(i)
				defer vault.Zero(e.Password)
				if _, err := copySecret(e.Password, 0); err != nil {
					return err
				}
				if clearAfter <= 0 {
					fmt.Fprintln(a.Out, "Password copied to clipboard.")
					return nil
				}
				// The process must outlive the delay to clear the clipboard.
				fmt.Fprintf(a.Out, "Password copied to clipboard. Clearing in %s...\n", clearAfter)
				done := make(chan struct{})
				afterFunc(clearAfter, func() {
					writeClipboard("")
					close(done)
				})
				<-done
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&clearAfter, "clear-after", ClipboardClearDelay, "Clear the clipboard after this delay (0 keeps it)")
	return cmd
}

func (a *App) addCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add",
		Short: "Add an entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := a.openVault()
			if err != nil {
				return err
			}
			defer v.Lock()
			return a.addEntry(v)
		},
	}
}

func (a *App) editCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit N",
		Short: "Edit an entry; empty answers keep the current value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEntry(args[0], a.editEntry)
		},
	}
}

func (a *App) deleteCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:     "delete N",
		Aliases: []string{"rm"},
		Short:   "Delete an entry",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEntry(args[0], func(v *vault.Vault, i int) error {
				return a.deleteEntry(v, i, yes)
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func (a *App) deleteEntry(v *vault.Vault, i int, yes bool) error {
	e, ok := v.Get(i)
	if !ok {
		return vault.ErrNoEntry
	}
	vault.Zero(e.Password)

	if !yes {
		answer, err := prompt(a.In, a.Out, fmt.Sprintf("Delete %q? [y/N]: ", e.Service))
		if err != nil {
			return err
		}
		if ans := strings.ToLower(answer); ans != "y" && ans != "yes" {
			fmt.Fprintln(a.Out, "Cancelled.")
			return nil
		}
	}
	if err := v.Delete(i); err != nil {
		return err
	}
	fmt.Fprintln(a.Out, "Entry deleted!")
	return nil
}

func (a *App) pathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the vault file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.VaultPath()
			if err != nil {
				return err
			}
			state := "missing"
			if vault.FileExists(path) {
				state = "exists"
			}
			fmt.Fprintf(a.Out, "%s (%s)\n", path, state)
			return nil
		},
	}
}

// withEntry opens the vault and resolves a 1-based entry number.
func (a *App) withEntry(arg string, fn func(v *vault.Vault, i int) error) error {
	v, err := a.openVault()
	if err != nil {
		return err
	}
	defer v.Lock()

	i, err := parseIndex(arg, v.Len())
	if err != nil {
		return err
	}
	return fn(v, i)
}
