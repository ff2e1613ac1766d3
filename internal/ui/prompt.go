// internal/ui/prompt.go
package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// ErrPromptCancelled is returned when the user leaves a prompt with esc or
// ctrl+c.
var ErrPromptCancelled = errors.New("prompt cancelled")

type promptModel struct {
	question  string
	input     textinput.Model
	cancelled bool
}

func newPrompt(question, placeholder, defaultValue string, secret bool) promptModel {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.SetValue(defaultValue)
	ti.Focus()
	ti.CharLimit = 256
	ti.Width = 50
	if secret {
		ti.EchoMode = textinput.EchoPassword
		ti.EchoCharacter = '•'
	}
	return promptModel{question: question, input: ti}
}

func (m promptModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m promptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEnter:
			return m, tea.Quit
		case tea.KeyCtrlC, tea.KeyEsc:
			m.cancelled = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m promptModel) View() string {
	return fmt.Sprintf("%s\n\n%s\n\n%s", m.question, m.input.View(), MutedStyle.Render("(enter to confirm, esc to cancel)"))
}

// value returns the trimmed input, falling back to def when it is empty.
func (m promptModel) value(def string) (string, error) {
	if m.cancelled {
		return "", ErrPromptCancelled
	}
	v := strings.TrimSpace(m.input.Value())
	if v == "" {
		v = def
	}
	if v == "" {
		return "", fmt.Errorf("input cannot be empty")
	}
	return v, nil
}

func runPrompt(m promptModel, def string, opts ...tea.ProgramOption) (string, error) {
	final, err := tea.NewProgram(m, opts...).Run()
	if err != nil {
		return "", err
	}
	return final.(promptModel).value(def)
}

// AskInput presents the user with a text input field.
func AskInput(question, placeholder, defaultValue string) (string, error) {
	return runPrompt(newPrompt(question, placeholder, defaultValue, false), defaultValue)
}

// AskSecret is AskInput with the typed characters masked. An existing
// secret is kept when the user just presses enter.
func AskSecret(question, existing string) (string, error) {
	placeholder := "paste here"
	if existing != "" {
		placeholder = "enter to keep " + maskTail(existing)
	}
	return runPrompt(newPrompt(question, placeholder, "", true), existing)
}

func maskTail(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return "…" + s[len(s)-4:]
}
