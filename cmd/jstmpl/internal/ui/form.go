package ui

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"

	"github.com/rainwave/jstmpl/cmd/jstmpl/internal/config"
	"github.com/rainwave/jstmpl/pkg/template"
)

// Form fields, in display order.
const (
	fieldDirs = iota
	fieldOutput
	fieldRegistry
	fieldIconPath
	fieldPort
	fieldCount
)

var fieldLabels = [fieldCount]string{
	fieldDirs:     "Template directories",
	fieldOutput:   "Output bundle",
	fieldRegistry: "Registry object",
	fieldIconPath: "Icon sprite path",
	fieldPort:     "Dev server port",
}

// KeyMap defines the form's keyboard shortcuts
type KeyMap struct {
	Next  key.Binding
	Prev  key.Binding
	Enter key.Binding
	Quit  key.Binding
}

var DefaultKeyMap = KeyMap{
	Next: key.NewBinding(
		key.WithKeys("tab", "down"),
		key.WithHelp("tab/↓", "next field"),
	),
	Prev: key.NewBinding(
		key.WithKeys("shift+tab", "up"),
		key.WithHelp("shift+tab/↑", "previous field"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "next / save"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c", "esc"),
		key.WithHelp("esc", "cancel"),
	),
}

// FormModel is the interactive jstmpl.yaml editor shown by init.
type FormModel struct {
	base         *config.Config
	inputs       []textinput.Model
	currentInput int
	errorMessage string
	done         bool
	quitting     bool
}

// NewFormModel creates a form prefilled from cfg.
func NewFormModel(cfg *config.Config) FormModel {
	values := [fieldCount]string{
		fieldDirs:     strings.Join(cfg.Templates.Dirs, ","),
		fieldOutput:   cfg.Output,
		fieldRegistry: cfg.Registry,
		fieldIconPath: cfg.IconPath,
		fieldPort:     strconv.Itoa(cfg.Dev.Port),
	}

	inputs := make([]textinput.Model, fieldCount)
	for i := range inputs {
		in := textinput.New()
		in.Prompt = "› "
		in.CharLimit = 200
		in.Width = 50
		in.SetValue(values[i])
		inputs[i] = in
	}
	inputs[fieldPort].CharLimit = 5
	inputs[fieldPort].Width = 10
	inputs[0].Focus()

	return FormModel{base: cfg, inputs: inputs}
}

// Init initializes the model
func (m FormModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages and updates the model
func (m FormModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, DefaultKeyMap.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, DefaultKeyMap.Next):
			m.focus(m.currentInput + 1)
			return m, nil

		case key.Matches(msg, DefaultKeyMap.Prev):
			m.focus(m.currentInput - 1)
			return m, nil

		case key.Matches(msg, DefaultKeyMap.Enter):
			if m.currentInput < fieldCount-1 {
				m.focus(m.currentInput + 1)
				return m, nil
			}
			if _, err := m.Config(); err != nil {
				m.errorMessage = err.Error()
				return m, nil
			}
			m.done = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.inputs[m.currentInput], cmd = m.inputs[m.currentInput].Update(msg)
	return m, cmd
}

// focus moves the cursor to field i, wrapping around.
func (m *FormModel) focus(i int) {
	m.inputs[m.currentInput].Blur()
	m.currentInput = (i + fieldCount) % fieldCount
	m.inputs[m.currentInput].Focus()
}

// View renders the form
func (m FormModel) View() string {
	if m.done || m.quitting {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("jstmpl init") + "\n")
	for i, in := range m.inputs {
		label := subtitleStyle.Render(fieldLabels[i])
		if i == m.currentInput {
			label = labelStyle.Render(fieldLabels[i])
		}
		sb.WriteString(label + "\n" + in.View() + "\n\n")
	}
	if m.errorMessage != "" {
		sb.WriteString(errorStyle.Render(m.errorMessage) + "\n")
	}
	sb.WriteString(helpStyle.Render(fmt.Sprintf("%s • %s • %s",
		helpText(DefaultKeyMap.Next), helpText(DefaultKeyMap.Enter), helpText(DefaultKeyMap.Quit))))
	return boxStyle.Render(sb.String())
}

func helpText(b key.Binding) string {
	h := b.Help()
	return h.Key + " " + h.Desc
}

// Config returns the configuration described by the form, or an error
// naming the first invalid field.
func (m FormModel) Config() (*config.Config, error) {
	cfg := *m.base
	templates := *m.base.Templates
	dev := *m.base.Dev
	cfg.Templates = &templates
	cfg.Dev = &dev

	value := func(i int) string { return strings.TrimSpace(m.inputs[i].Value()) }

	var dirs []string
	for _, d := range strings.Split(value(fieldDirs), ",") {
		if d = strings.TrimSpace(d); d != "" {
			dirs = append(dirs, d)
		}
	}
	if len(dirs) == 0 {
		return nil, fmt.Errorf("%s: at least one directory is required", fieldLabels[fieldDirs])
	}
	templates.Dirs = dirs

	if cfg.Output = value(fieldOutput); cfg.Output == "" {
		return nil, fmt.Errorf("%s is required", fieldLabels[fieldOutput])
	}
	if cfg.Registry = value(fieldRegistry); !template.ValidName(cfg.Registry) {
		return nil, fmt.Errorf("%s: %q is not a JavaScript identifier", fieldLabels[fieldRegistry], cfg.Registry)
	}
	if cfg.IconPath = value(fieldIconPath); cfg.IconPath == "" {
		return nil, fmt.Errorf("%s is required", fieldLabels[fieldIconPath])
	}
	port, err := strconv.Atoi(value(fieldPort))
	if err != nil || port <= 0 || port > 65535 {
		return nil, fmt.Errorf("%s: %q is not a valid port", fieldLabels[fieldPort], value(fieldPort))
	}
	dev.Port = port
	return &cfg, nil
}

// RunInitForm shows the form and returns the configuration the user
// confirmed.
func RunInitForm(cfg *config.Config) (*config.Config, error) {
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return nil, fmt.Errorf("not running in a terminal, run init without --interactive")
	}

	finalModel, err := tea.NewProgram(NewFormModel(cfg)).Run()
	if err != nil {
		return nil, fmt.Errorf("TUI error: %w", err)
	}
	m := finalModel.(FormModel)
	if !m.done {
		return nil, fmt.Errorf("init cancelled")
	}
	return m.Config()
}
