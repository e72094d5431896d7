// Package cli is the command-line and terminal user interface of the
// password manager. It resolves the vault path, prompts for the master
// password and calls into package vault.
package cli

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fahmaliyi/pmgr/config"
	"github.com/fahmaliyi/pmgr/vault"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// App holds the I/O streams and settings shared by all commands.
type App struct {
	In  *bufio.Reader
	Out io.Writer
	Err io.Writer

	// ReadSecret prompts for a value without echoing it.
	ReadSecret func(prompt string) ([]byte, error)

	Resolver *config.Resolver
	Log      *slog.Logger

	resolverErr error
	vaultFlag   string
	verbose     bool
	runTUI      func(a *App) error
}

// NewApp returns an App wired to the process's standard streams.
func NewApp() *App {
	a := &App{
		In:     bufio.NewReader(os.Stdin),
		Out:    os.Stdout,
		Err:    os.Stderr,
		Log:    slog.New(slog.DiscardHandler),
		runTUI: RunTUI,
	}
	a.Resolver, a.resolverErr = config.NewResolver()
	a.ReadSecret = func(p string) ([]byte, error) {
		if isTerminal(os.Stdin) {
			return ReadPasswordMasked(a.Err, p)
		}
		// stdin is piped; read a plain line
		fmt.Fprint(a.Err, p)
		line, err := readLine(a.In)
		if err != nil {
			return nil, errors.Wrap(err, "reading password")
		}
		return []byte(line), nil
	}
	return a
}

// Execute runs the command line and returns the process exit code.
func Execute(version string) int {
	return NewApp().Run(version, os.Args[1:])
}

func (a *App) Run(version string, args []string) int {
	cmd := a.rootCmd(version)
	cmd.SetArgs(args)
	cmd.SetOut(a.Out)
	cmd.SetErr(a.Err)
	if err := cmd.Execute(); err != nil {
		a.Log.Debug("command failed", "error", err)
		fmt.Fprintln(a.Err, "Error:", vault.UserMessage(err))
		return 1
	}
	return 0
}

func (a *App) rootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "vault",
		Short: "Local encrypted password vault",
		Long: `vault keeps service credentials in a single file encrypted with a key
derived from your master password:
  - Argon2id key derivation (64 MiB, 2 passes)
  - ChaCha20-Poly1305 authenticated encryption
  - the whole file is rewritten atomically on every change

Run without a command to open the interactive interface.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if a.verbose {
				a.Log = slog.New(slog.NewTextHandler(a.Err, &slog.HandlerOptions{Level: slog.LevelDebug}))
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTUI(a)
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true

	root.PersistentFlags().StringVarP(&a.vaultFlag, "vault", "f", "", "Vault file (default from $"+config.EnvVaultPath+" or config.json)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Log vault operations to stderr")

	root.AddCommand(
		a.initCmd(),
		a.listCmd(),
		a.showCmd(),
		a.copyCmd(),
		a.addCmd(),
		a.editCmd(),
		a.deleteCmd(),
		a.pathCmd(),
		a.shellCmd(),
	)
	return root
}

// VaultPath resolves the vault file for this invocation.
func (a *App) VaultPath() (string, error) {
	if a.Resolver == nil {
		if a.vaultFlag != "" {
			return a.vaultFlag, nil
		}
		return "", errors.Wrap(a.resolverErr, "cannot determine vault path")
	}
	return a.Resolver.VaultPath(a.vaultFlag)
}

func (a *App) remember(path string) {
	if a.Resolver == nil {
		return
	}
	if err := a.Resolver.Remember(path); err != nil {
		a.Log.Warn("could not save config", "error", err)
	}
}

// openVault prompts for the master password and unlocks the vault.
func (a *App) openVault() (*vault.Vault, error) {
	path, err := a.VaultPath()
	if err != nil {
		return nil, err
	}
	if !vault.FileExists(path) {
		return nil, errors.Errorf("no vault at %s; run 'vault init' first", path)
	}

	pw, err := a.ReadSecret("Master password: ")
	if err != nil {
		return nil, err
	}
	defer vault.Zero(pw)

	v, err := vault.OpenVault(path, pw, vault.WithLogger(a.Log))
	if err != nil {
		return nil, err
	}
	a.remember(path)
	return v, nil
}

// newMasterPassword prompts twice for a new master password.
func (a *App) newMasterPassword(allowWeak bool) ([]byte, error) {
	pw, err := a.ReadSecret("New master password: ")
	if err != nil {
		return nil, err
	}
	if err := checkStrength(pw, allowWeak); err != nil {
		vault.Zero(pw)
		return nil, err
	}
	confirm, err := a.ReadSecret("Confirm master password: ")
	if err != nil {
		vault.Zero(pw)
		return nil, err
	}
	defer vault.Zero(confirm)
	if string(pw) != string(confirm) {
		vault.Zero(pw)
		return nil, ErrPasswordMismatch
	}
	return pw, nil
}
