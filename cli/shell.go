package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fahmaliyi/pmgr/vault"
	"github.com/spf13/cobra"
)

func (a *App) shellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Line-oriented interactive session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := a.openVault()
			if err != nil {
				return err
			}
			defer v.Lock()
			return a.RunCommands(v)
		},
	}
}

// RunCommands reads one-letter commands until "q" or end of input. A
// clipboard clear still pending at exit runs immediately.
func (a *App) RunCommands(v *vault.Vault) error {
	var clearTimer *time.Timer
	defer func() { clearPending(clearTimer) }()

	for {
		fmt.Fprintln(a.Out, "\nCommands: a=add, l=list, s N=show, c N=copy, e N=edit, d N=delete, q=quit")
		fmt.Fprint(a.Out, "> ")

		line, err := readLine(a.In)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]

		switch cmd {
		case "a":
			a.report(a.addEntry(v))
		case "l":
			a.printList(v)
		case "s", "c", "e", "d":
			if len(parts) < 2 {
				fmt.Fprintln(a.Out, "Specify item number")
				continue
			}
			i, err := parseIndex(parts[1], v.Len())
			if err != nil {
				fmt.Fprintln(a.Out, err)
				continue
			}
			switch cmd {
			case "s":
				a.printEntry(v, i)
			case "c":
				if t := a.handleCopy(v, i); t != nil {
					if clearTimer != nil {
						clearTimer.Stop()
					}
					clearTimer = t
				}
			case "e":
				a.report(a.editEntry(v, i))
			case "d":
				a.report(a.deleteEntry(v, i, false))
			}
		case "q":
			fmt.Fprintln(a.Out, "Exiting.")
			return nil
		default:
			fmt.Fprintln(a.Out, "Unknown command")
		}
	}
}

func (a *App) handleCopy(v *vault.Vault, i int) *time.Timer {
	e, _ := v.Get(i)
	defer vault.Zero(e.Password)
	t, err := copySecret(e.Password, ClipboardClearDelay)
	if err != nil {
		a.report(err)
		return nil
	}
	fmt.Fprintf(a.Out, "Password copied to clipboard. Clearing in %s...\n", ClipboardClearDelay)
	return t
}

// report prints a failed shell command without ending the session.
func (a *App) report(err error) {
	if err != nil {
		fmt.Fprintln(a.Out, "Error:", vault.UserMessage(err))
	}
}
