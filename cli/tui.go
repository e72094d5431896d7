package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fahmaliyi/pmgr/vault"
)

type state int

const (
	stateChoose state = iota
	stateSelectFile
	stateNewPassword
	statePassword
	stateList
	stateShow
	stateAdd
	stateEdit
	stateConfirmDelete
)

var stateNames = map[state]string{
	stateChoose:        "choose",
	stateSelectFile:    "selectFile",
	stateNewPassword:   "newPassword",
	statePassword:      "password",
	stateList:          "list",
	stateShow:          "show",
	stateAdd:           "add",
	stateEdit:          "edit",
	stateConfirmDelete: "confirmDelete",
}

func (s state) String() string { return stateNames[s] }

// Messages produced by commands.
type (
	unlockedMsg       struct{ v *vault.Vault }
	unlockFailedMsg   struct{ err error }
	clearClipboardMsg struct{}
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Underline(true)
	msgStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	selectedStyle = lipgloss.NewStyle().Background(lipgloss.Color("57")).Foreground(lipgloss.Color("0"))
)

var chooseOptions = []string{"Create a new vault", "Open an existing vault"}

type model struct {
	state state
	path  string
	log   *slog.Logger

	// remember is called with the vault path after a successful unlock.
	remember func(path string)

	vault   *vault.Vault
	entries []vault.Entry
	cursor  int
	choice  int

	password textinput.Model
	pending  []byte // first entry of a new master password
	form     []textinput.Model
	picker   filepicker.Model
	revealed bool
	busy     bool

	// clipboardDirty is set while a copied password awaits its clear.
	clipboardDirty bool

	msg string
	err string
}

// RunTUI starts the interactive interface on the resolved vault path.
func RunTUI(a *App) error {
	path, err := a.VaultPath()
	if err != nil {
		return err
	}
	m := newModel(path, a.Log, a.remember)

	p := tea.NewProgram(m, tea.WithAltScreen())
	final, err := p.Run()
	if fm, ok := final.(model); ok {
		fm.shutdown()
	}
	return err
}

func newModel(path string, log *slog.Logger, remember func(string)) model {
	m := model{
		path:     path,
		log:      log,
		remember: remember,
		password: newPasswordInput(),
		state:    stateChoose,
	}
	if vault.FileExists(path) {
		m.state = statePassword
	}
	return m
}

func newPasswordInput() textinput.Model {
	ti := textinput.New()
	ti.Placeholder = "master password"
	ti.EchoMode = textinput.EchoPassword
	ti.EchoCharacter = '*'
	ti.Focus()
	return ti
}

func newForm(e *vault.Entry) []textinput.Model {
	fields := make([]textinput.Model, 3)
	for i, name := range formFields {
		ti := textinput.New()
		ti.Placeholder = name
		ti.CharLimit = vault.MaxFieldLen
		fields[i] = ti
	}
	fields[2].EchoMode = textinput.EchoPassword
	fields[2].EchoCharacter = '*'
	if e != nil {
		fields[0].SetValue(e.Service)
		fields[1].SetValue(e.Username)
		fields[2].SetValue(string(e.Password))
	}
	fields[0].Focus()
	return fields
}

// --- Tea Model interface ---
func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.lock()
			return m, tea.Quit
		}
	case unlockedMsg:
		return m.unlocked(msg.v)
	case unlockFailedMsg:
		m.busy = false
		m.err = vault.UserMessage(msg.err)
		return m, nil
	case clearClipboardMsg:
		writeClipboard("")
		m.clipboardDirty = false
		m.msg = "Clipboard cleared"
		return m, nil
	}

	switch m.state {
	case stateChoose:
		return updateChoose(m, msg)
	case stateSelectFile:
		return updateSelectFile(m, msg)
	case stateNewPassword:
		return updateNewPassword(m, msg)
	case statePassword:
		return updatePassword(m, msg)
	case stateList:
		return updateList(m, msg)
	case stateShow:
		return updateShow(m, msg)
	case stateAdd, stateEdit:
		return updateForm(m, msg)
	case stateConfirmDelete:
		return updateConfirmDelete(m, msg)
	default:
		return m, nil
	}
}

func (m model) View() string {
	var s string
	switch m.state {
	case stateChoose:
		s = viewChoose(m)
	case stateSelectFile:
		s = viewSelectFile(m)
	case stateNewPassword, statePassword:
		s = viewPassword(m)
	case stateList:
		s = viewList(m)
	case stateShow:
		s = viewShow(m)
	case stateAdd, stateEdit:
		s = viewForm(m)
	case stateConfirmDelete:
		s = viewConfirmDelete(m)
	default:
		return "Unknown state"
	}
	if m.err != "" {
		s += "\n" + errStyle.Render(m.err)
	} else if m.msg != "" {
		s += "\n" + msgStyle.Render(m.msg)
	}
	return s
}

// shutdown locks the vault and clears a copied password whose timed
// clear never ran.
func (m *model) shutdown() {
	m.lock()
	if m.clipboardDirty {
		writeClipboard("")
		m.clipboardDirty = false
	}
}

// lock wipes the open vault, if any.
func (m *model) lock() {
	for i := range m.entries {
		vault.Zero(m.entries[i].Password)
	}
	m.entries = nil
	if m.vault != nil {
		m.vault.Lock()
		m.vault = nil
	}
	vault.Zero(m.pending)
	m.pending = nil
}

func (m *model) reload() {
	for i := range m.entries {
		vault.Zero(m.entries[i].Password)
	}
	m.entries = m.vault.List()
	if m.cursor >= len(m.entries) {
		m.cursor = len(m.entries) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m model) unlocked(v *vault.Vault) (model, tea.Cmd) {
	m.lock()
	m.busy = false
	m.err = ""
	m.vault = v
	m.cursor = 0
	m.reload()
	m.state = stateList
	m.msg = fmt.Sprintf("Vault unlocked (%d entries)", len(m.entries))
	if m.remember != nil {
		m.remember(m.path)
	}
	return m, nil
}

func openCmd(path string, pw []byte, log *slog.Logger) tea.Cmd {
	return func() tea.Msg {
		defer vault.Zero(pw)
		v, err := vault.OpenVault(path, pw, vault.WithLogger(log))
		if err != nil {
			return unlockFailedMsg{err}
		}
		return unlockedMsg{v}
	}
}

func createCmd(path string, pw []byte, log *slog.Logger) tea.Cmd {
	return func() tea.Msg {
		defer vault.Zero(pw)
		v, err := vault.CreateVault(path, pw, vault.WithLogger(log))
		if err != nil {
			return unlockFailedMsg{err}
		}
		return unlockedMsg{v}
	}
}

// --- Create or open ---
func updateChoose(m model, msg tea.Msg) (model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "q":
		return m, tea.Quit
	case "j", "down":
		if m.choice < len(chooseOptions)-1 {
			m.choice++
		}
	case "k", "up":
		if m.choice > 0 {
			m.choice--
		}
	case "enter", "l", "right":
		m.err = ""
		if m.choice == 0 {
			if vault.FileExists(m.path) {
				m.err = fmt.Sprintf("a vault already exists at %s", m.path)
				return m, nil
			}
			m.state = stateNewPassword
			m.password.Reset()
			return m, m.password.Focus()
		}
		m.picker = filepicker.New()
		m.picker.CurrentDirectory = startDir(m.path)
		m.state = stateSelectFile
		return m, m.picker.Init()
	}
	return m, nil
}

func startDir(path string) string {
	if dir := filepath.Dir(path); isDir(dir) {
		return dir
	}
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}

func isDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

func viewChoose(m model) string {
	s := titleStyle.Render("Password Manager") + "\n\n"
	for i, opt := range chooseOptions {
		line := "  " + opt
		if i == m.choice {
			line = selectedStyle.Render("> " + opt)
		}
		s += line + "\n"
	}
	s += "\n" + helpStyle.Render("j/k=move, enter=select, q=quit")
	return s
}

// --- Select vault file ---
func updateSelectFile(m model, msg tea.Msg) (model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "esc" {
		m.state = stateChoose
		return m, nil
	}

	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)
	if ok, path := m.picker.DidSelectFile(msg); ok {
		m.path = path
		m.err = ""
		m.state = statePassword
		m.password.Reset()
		return m, m.password.Focus()
	}
	return m, cmd
}

func viewSelectFile(m model) string {
	s := titleStyle.Render("Select vault file") + "\n\n"
	s += m.picker.View() + "\n"
	s += helpStyle.Render("enter=open, h=up, esc=back")
	return s
}

// --- Master password ---
func updatePassword(m model, msg tea.Msg) (model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "enter":
			if m.busy || m.password.Value() == "" {
				return m, nil
			}
			pw := []byte(m.password.Value())
			m.password.Reset()
			m.busy = true
			m.err = ""
			return m, openCmd(m.path, pw, m.log)
		case "esc":
			if !vault.FileExists(m.path) {
				m.state = stateChoose
				m.password.Reset()
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.password, cmd = m.password.Update(msg)
	return m, cmd
}

func updateNewPassword(m model, msg tea.Msg) (model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "enter":
			if m.busy {
				return m, nil
			}
			pw := []byte(m.password.Value())
			m.password.Reset()
			if m.pending == nil {
				if err := checkStrength(pw, false); err != nil {
					m.err = err.Error()
					return m, nil
				}
				m.err = ""
				m.pending = pw
				return m, nil
			}
			first := m.pending
			m.pending = nil
			if string(first) != string(pw) {
				vault.Zero(first)
				vault.Zero(pw)
				m.err = ErrPasswordMismatch.Error()
				return m, nil
			}
			vault.Zero(pw)
			m.busy = true
			m.err = ""
			return m, createCmd(m.path, first, m.log)
		case "esc":
			vault.Zero(m.pending)
			m.pending = nil
			m.password.Reset()
			m.err = ""
			m.state = stateChoose
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.password, cmd = m.password.Update(msg)
	if m.pending == nil && m.password.Value() != "" {
		m.msg = fmt.Sprintf("Strength: %d/4", PasswordScore(m.password.Value()))
	}
	return m, cmd
}

func viewPassword(m model) string {
	title := "Unlock vault"
	label := "Master password"
	if m.state == stateNewPassword {
		title = "Create vault"
		label = "New master password"
		if m.pending != nil {
			label = "Confirm master password"
		}
	}
	s := titleStyle.Render(title) + "\n\n"
	s += helpStyle.Render(m.path) + "\n\n"
	s += fmt.Sprintf("%s: %s\n", label, m.password.View())
	if m.busy {
		s += "\nDeriving key..."
	}
	s += "\n" + helpStyle.Render("enter=confirm, esc=back, ctrl+c=quit")
	return s
}

// --- Entry list ---
func updateList(m model, msg tea.Msg) (model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	m.err = ""
	switch key.String() {
	case "q":
		m.lock()
		return m, tea.Quit
	case "L":
		m.lock()
		m.msg = "Vault locked"
		m.state = statePassword
		m.password.Reset()
		return m, m.password.Focus()
	case "j", "down":
		if m.cursor < len(m.entries)-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "a":
		m.form = newForm(nil)
		m.state = stateAdd
		m.msg = ""
		return m, textinput.Blink
	case "enter":
		if len(m.entries) > 0 {
			m.revealed = false
			m.state = stateShow
		}
	case "e":
		if len(m.entries) > 0 {
			e := m.entries[m.cursor]
			m.form = newForm(&e)
			m.state = stateEdit
			m.msg = ""
			return m, textinput.Blink
		}
	case "d":
		if len(m.entries) > 0 {
			m.state = stateConfirmDelete
		}
	case "c":
		if len(m.entries) > 0 {
			return m.copyCurrent()
		}
	}
	return m, nil
}

func (m model) copyCurrent() (model, tea.Cmd) {
	if err := writeClipboard(string(m.entries[m.cursor].Password)); err != nil {
		m.err = "Copy failed: " + err.Error()
		return m, nil
	}
	m.clipboardDirty = true
	m.msg = fmt.Sprintf("Password copied! (clears in %s)", ClipboardClearDelay)
	return m, tea.Tick(ClipboardClearDelay, func(time.Time) tea.Msg {
		return clearClipboardMsg{}
	})
}

func viewList(m model) string {
	s := titleStyle.Render("Vault Entries") + "\n\n"
	if len(m.entries) == 0 {
		s += "  (empty)\n"
	}
	for i, e := range m.entries {
		line := fmt.Sprintf("%3d  %-30s  %-30s", i+1, e.Service, e.Username)
		if i == m.cursor {
			line = selectedStyle.Render(line)
		}
		s += line + "\n"
	}
	s += "\n" + helpStyle.Render("j/k=move, enter=show, a=add, e=edit, d=delete, c=copy, L=lock, q=quit")
	return s
}

// --- Show Entry ---
func updateShow(m model, msg tea.Msg) (model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "esc", "q":
		m.revealed = false
		m.state = stateList
	case "v":
		m.revealed = !m.revealed
	case "c":
		return m.copyCurrent()
	case "e":
		e := m.entries[m.cursor]
		m.form = newForm(&e)
		m.state = stateEdit
		return m, textinput.Blink
	}
	return m, nil
}

func viewShow(m model) string {
	e := m.entries[m.cursor]
	secret := "********"
	if m.revealed {
		secret = string(e.Password)
	}
	s := titleStyle.Render(e.Service) + "\n\n"
	s += fmt.Sprintf("Service:  %s\nUsername: %s\nPassword: %s\n", e.Service, e.Username, secret)
	s += "\n" + helpStyle.Render("v=reveal/hide, c=copy, e=edit, esc=back")
	return s
}

// --- Add / Edit Entry ---
func updateForm(m model, msg tea.Msg) (model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "esc":
			m.state = stateList
			m.err = ""
			return m, nil
		case "tab", "down":
			return m, m.focusNext(false)
		case "shift+tab", "up":
			return m, m.focusNext(true)
		case "ctrl+s":
			return m.saveForm()
		case "enter":
			if m.form[len(m.form)-1].Focused() {
				return m.saveForm()
			}
			return m, m.focusNext(false)
		}
	}

	// Update the focused text input
	var cmds []tea.Cmd
	for i := range m.form {
		if m.form[i].Focused() {
			var cmd tea.Cmd
			m.form[i], cmd = m.form[i].Update(msg)
			cmds = append(cmds, cmd)
		}
	}
	return m, tea.Batch(cmds...)
}

// focusNext moves focus to the next or previous input.
func (m *model) focusNext(backward bool) tea.Cmd {
	n := len(m.form)
	for i := 0; i < n; i++ {
		if m.form[i].Focused() {
			m.form[i].Blur()
			next := (i + 1) % n
			if backward {
				next = (i - 1 + n) % n
			}
			return m.form[next].Focus()
		}
	}
	return m.form[0].Focus()
}

// formFields names the form inputs in order.
var formFields = []string{"Service", "Username", "Password"}

func (m model) saveForm() (model, tea.Cmd) {
	// CharLimit counts runes; the vault limit is in bytes.
	for i, ti := range m.form {
		if n := len(ti.Value()); n > vault.MaxFieldLen {
			m.err = fmt.Sprintf("%s is too long (%d bytes, max %d)", formFields[i], n, vault.MaxFieldLen)
			return m, nil
		}
	}

	e := vault.Entry{
		Service:  strings.TrimSpace(m.form[0].Value()),
		Username: strings.TrimSpace(m.form[1].Value()),
		Password: []byte(m.form[2].Value()),
	}
	defer vault.Zero(e.Password)

	var err error
	if m.state == stateEdit {
		err = m.vault.Update(m.cursor, e)
	} else {
		err = m.vault.Add(e)
	}
	if err != nil {
		m.err = vault.UserMessage(err)
		return m, nil
	}

	if m.state == stateAdd {
		m.msg = fmt.Sprintf("Added %q", e.Service)
		m.reload()
		m.cursor = len(m.entries) - 1
	} else {
		m.msg = fmt.Sprintf("Updated %q", e.Service)
		m.reload()
	}
	m.err = ""
	m.form = nil
	m.state = stateList
	return m, nil
}

func viewForm(m model) string {
	title := "Add New Entry"
	if m.state == stateEdit {
		title = "Edit Entry"
	}
	s := titleStyle.Render(title) + "\n\n"
	for _, ti := range m.form {
		s += fmt.Sprintf("%-9s %s\n", ti.Placeholder+":", ti.View())
	}
	s += "\n" + helpStyle.Render("tab=next field, enter=save on last field, ctrl+s=save, esc=cancel")
	return s
}

// --- Delete Entry ---
func updateConfirmDelete(m model, msg tea.Msg) (model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "y", "Y":
		service := m.entries[m.cursor].Service
		if err := m.vault.Delete(m.cursor); err != nil {
			m.err = vault.UserMessage(err)
		} else {
			m.msg = fmt.Sprintf("Deleted %q", service)
			m.reload()
		}
		m.state = stateList
	case "n", "N", "esc":
		m.state = stateList
	}
	return m, nil
}

func viewConfirmDelete(m model) string {
	e := m.entries[m.cursor]
	return titleStyle.Render("Delete Entry") + "\n\n" +
		fmt.Sprintf("Delete %q (%s)? [y/N]\n", e.Service, e.Username)
}
