package cli

import (
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fahmaliyi/pmgr/vault"
)

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

// press feeds keys to m and returns the model together with the command
// produced by the last key.
func press(t *testing.T, m model, keys ...string) (model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var next tea.Model
		next, cmd = m.Update(keyMsg(k))
		m = next.(model)
	}
	return m, cmd
}

// finish runs a command synchronously and feeds its message back.
func finish(t *testing.T, m model, cmd tea.Cmd) model {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	next, _ := m.Update(cmd())
	return next.(model)
}

func TestTUICreateVault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vault.bin")
	var remembered string
	m := newModel(path, slog.New(slog.DiscardHandler), func(p string) { remembered = p })
	if m.state != stateChoose {
		t.Fatalf("initial state = %s; want choose", m.state)
	}

	m, _ = press(t, m, "enter")
	if m.state != stateNewPassword {
		t.Fatalf("state = %s; want newPassword", m.state)
	}

	m, _ = press(t, m, "abc", "enter")
	if !strings.Contains(m.err, "too weak") {
		t.Errorf("weak password error = %q", m.err)
	}
	if m.pending != nil {
		t.Error("weak password was kept")
	}

	m, _ = press(t, m, strongPassword, "enter", "other", "enter")
	if m.err != ErrPasswordMismatch.Error() {
		t.Errorf("mismatch error = %q", m.err)
	}

	m, _ = press(t, m, strongPassword, "enter")
	m, cmd := press(t, m, strongPassword, "enter")
	if !m.busy {
		t.Error("model not busy while deriving the key")
	}
	m = finish(t, m, cmd)

	if m.state != stateList {
		t.Fatalf("state = %s; want list (err %q)", m.state, m.err)
	}
	if remembered != path {
		t.Errorf("remembered %q; want %q", remembered, path)
	}
	if !vault.FileExists(path) {
		t.Error("vault file not created")
	}
	m.lock()
}

func TestTUIRefusesExistingVaultOnCreate(t *testing.T) {
	path := newTestVaultFile(t)
	m := newModel(path, slog.New(slog.DiscardHandler), nil)
	m.state = stateChoose

	m, _ = press(t, m, "enter")
	if m.state != stateChoose || !strings.Contains(m.err, "already exists") {
		t.Errorf("state = %s, err = %q", m.state, m.err)
	}
}

func TestTUIWrongPassword(t *testing.T) {
	path := newTestVaultFile(t)
	m := newModel(path, slog.New(slog.DiscardHandler), nil)
	if m.state != statePassword {
		t.Fatalf("initial state = %s; want password", m.state)
	}

	m, cmd := press(t, m, "wrong password", "enter")
	m = finish(t, m, cmd)
	if m.state != statePassword {
		t.Errorf("state = %s; want password", m.state)
	}
	if m.err != vault.UnlockFailedMessage {
		t.Errorf("err = %q; want %q", m.err, vault.UnlockFailedMessage)
	}
	if m.busy {
		t.Error("model still busy")
	}
}

func TestTUIEntries(t *testing.T) {
	writes := stubClipboard(t)
	path := newTestVaultFile(t)
	m := newModel(path, slog.New(slog.DiscardHandler), nil)

	m, cmd := press(t, m, strongPassword, "enter")
	m = finish(t, m, cmd)
	if m.state != stateList {
		t.Fatalf("state = %s; want list (err %q)", m.state, m.err)
	}

	m, _ = press(t, m, "a", "github", "tab", "alice", "tab", "s3cret", "enter")
	m, _ = press(t, m, "a", "mail", "tab", "tab", "m41l", "enter")
	if m.state != stateList || len(m.entries) != 2 {
		t.Fatalf("state = %s, entries = %d, err = %q", m.state, len(m.entries), m.err)
	}
	if m.cursor != 1 {
		t.Errorf("cursor = %d; want the new entry", m.cursor)
	}

	// An empty service is rejected and the form stays open.
	m, _ = press(t, m, "a", "enter", "enter", "enter")
	if m.state != stateAdd || m.err == "" {
		t.Errorf("state = %s, err = %q", m.state, m.err)
	}
	m, _ = press(t, m, "esc")

	m, _ = press(t, m, "k", "enter")
	if m.state != stateShow {
		t.Fatalf("state = %s; want show", m.state)
	}
	if strings.Contains(m.View(), "s3cret") {
		t.Error("password shown before reveal")
	}
	m, _ = press(t, m, "v")
	if !strings.Contains(m.View(), "s3cret") {
		t.Error("password not shown after reveal")
	}

	m, cmd = press(t, m, "c")
	if cmd == nil {
		t.Fatal("copy did not schedule a clear")
	}
	if got := *writes; len(got) != 1 || got[0] != "s3cret" {
		t.Errorf("clipboard writes = %q", got)
	}
	next, _ := m.Update(clearClipboardMsg{})
	m = next.(model)
	if got := *writes; got[len(got)-1] != "" {
		t.Errorf("clipboard not cleared: %q", got)
	}

	m, _ = press(t, m, "c")
	m.shutdown()
	if got := *writes; len(got) != 4 || got[2] != "s3cret" || got[3] != "" {
		t.Errorf("clipboard writes after shutdown = %q", got)
	}
	if m.vault != nil {
		t.Fatal("shutdown left the vault open")
	}

	m = newModel(path, slog.New(slog.DiscardHandler), nil)
	m, cmd = press(t, m, strongPassword, "enter")
	m = finish(t, m, cmd)
	if m.state != stateList || len(m.entries) != 2 {
		t.Fatalf("state = %s, entries = %d after reopening", m.state, len(m.entries))
	}
	m, _ = press(t, m, "enter")

	m, _ = press(t, m, "e", "tab", "bob", "enter", "enter")
	if m.state != stateList {
		t.Fatalf("state = %s after edit (err %q)", m.state, m.err)
	}
	if u := m.entries[0].Username; !strings.Contains(u, "alice") || !strings.Contains(u, "bob") {
		t.Errorf("username = %q; want the edited value", u)
	}
	if string(m.entries[0].Password) != "s3cret" {
		t.Error("edit changed the password")
	}

	m, _ = press(t, m, "d", "n")
	if len(m.entries) != 2 {
		t.Fatal("declined delete removed an entry")
	}
	m, _ = press(t, m, "d", "y")
	if len(m.entries) != 1 || m.entries[0].Service != "mail" {
		t.Fatalf("entries after delete = %+v", m.entries)
	}

	m, _ = press(t, m, "L")
	if m.state != statePassword || m.vault != nil || m.entries != nil {
		t.Error("lock did not clear the session")
	}

	v, err := vault.OpenVault(path, []byte(strongPassword))
	if err != nil {
		t.Fatalf("OpenVault failed: %v", err)
	}
	defer v.Lock()
	got := v.List()
	if len(got) != 1 || got[0].Service != "mail" || string(got[0].Password) != "m41l" {
		t.Errorf("saved entries = %+v", got)
	}
}

func newTestVaultFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vault.bin")
	v, err := vault.CreateVault(path, []byte(strongPassword))
	if err != nil {
		t.Fatalf("CreateVault failed: %v", err)
	}
	v.Lock()
	return path
}

func TestTUIRejectsLongMultibyteField(t *testing.T) {
	path := newTestVaultFile(t)
	m := newModel(path, slog.New(slog.DiscardHandler), nil)
	m, cmd := press(t, m, strongPassword, "enter")
	m = finish(t, m, cmd)

	// 200 runes fit the input limit but take 400 bytes.
	long := strings.Repeat("é", 200)
	m, _ = press(t, m, "a", long, "enter", "enter", "p", "enter")
	if m.state != stateAdd {
		t.Fatalf("state = %s; want the form to stay open", m.state)
	}
	if !strings.Contains(m.err, "Service is too long") {
		t.Errorf("err = %q; want a service length message", m.err)
	}
	if m.vault.Len() != 0 {
		t.Error("oversized entry was stored")
	}
	m.lock()
}
