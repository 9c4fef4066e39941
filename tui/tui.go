// Package tui holds the login prompt shown before a session starts.
package tui

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// ErrLoginCancelled is returned when the prompt is closed without a name.
var ErrLoginCancelled = errors.New("login cancelled")

// Login prompts for a username, pre-filled with name.
func Login(name string) (string, error) {
	p := tea.NewProgram(initialModel(name))
	final, err := p.StartReturningModel()
	if err != nil {
		return "", err
	}

	m := final.(model)
	if m.Quitting {
		return "", ErrLoginCancelled
	}
	return m.textInput.Value(), nil
}

type (
	errMsg error
)

type model struct {
	textInput textinput.Model
	err       error
	Quitting  bool
	LoggedIn  bool
}

func initialModel(name string) model {
	ti := textinput.New()
	ti.Placeholder = "Username"
	ti.SetValue(name)
	ti.Focus()
	ti.CharLimit = 32
	ti.Width = 20

	return model{
		textInput: ti,
		err:       nil,
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.Quitting = true
			return m, tea.Quit
		case tea.KeyEnter:
			m.LoggedIn = true
			return m, tea.Quit
		}

	// We handle errors just like any other message
	case errMsg:
		m.err = msg
		return m, nil
	}

	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

func (m model) View() string {
	if m.Quitting {
		return "\n  See you later!\n\n"
	}
	if m.LoggedIn {
		return ""
	}
	return fmt.Sprintf(
		"Enter username:\n\n%s\n\n%s",
		m.textInput.View(),
		"(enter to join, esc to quit)",
	) + "\n"
}
