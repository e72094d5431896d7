package cli

import (
	"fmt"

	"github.com/fahmaliyi/pmgr/vault"
)

// promptEntry asks for the fields of an entry. When current is non-nil an
// empty answer keeps the current value.
func (a *App) promptEntry(current *vault.Entry) (vault.Entry, error) {
	var e vault.Entry
	if current != nil {
		e = *current
	}

	label := func(name, value string) string {
		if current == nil {
			return name + ": "
		}
		return fmt.Sprintf("%s [%s]: ", name, value)
	}

	service, err := prompt(a.In, a.Out, label("Service", e.Service))
	if err != nil {
		return e, err
	}
	if service != "" || current == nil {
		e.Service = service
	}

	username, err := prompt(a.In, a.Out, label("Username (optional)", e.Username))
	if err != nil {
		return e, err
	}
	if username != "" || current == nil {
		e.Username = username
	}

	secretLabel := "Password: "
	if current != nil {
		secretLabel = "Password [unchanged]: "
	}
	secret, err := a.ReadSecret(secretLabel)
	if err != nil {
		return e, err
	}
	if len(secret) > 0 || current == nil {
		e.Password = secret
	}
	return e, nil
}

func (a *App) addEntry(v *vault.Vault) error {
	fmt.Fprintln(a.Out, "--- Add New Entry ---")
	e, err := a.promptEntry(nil)
	if err != nil {
		return err
	}
	defer vault.Zero(e.Password)

	if err := v.Add(e); err != nil {
		return err
	}
	fmt.Fprintln(a.Out, "Entry added!")
	return nil
}

func (a *App) editEntry(v *vault.Vault, i int) error {
	current, ok := v.Get(i)
	if !ok {
		return vault.ErrNoEntry
	}
	defer vault.Zero(current.Password)

	fmt.Fprintf(a.Out, "--- Edit Entry %d ---\n", i+1)
	e, err := a.promptEntry(&current)
	if err != nil {
		return err
	}
	if err := v.Update(i, e); err != nil {
		return err
	}
	fmt.Fprintln(a.Out, "Entry updated!")
	return nil
}
