package tui

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Task is a long-running operation shown behind a spinner. The returned
// string is the success message.
type Task func(ctx context.Context) (string, error)

// taskDoneMsg ends the spinner view.
type taskDoneMsg struct {
	result string
	err    error
}

type spinnerModel struct {
	spinner spinner.Model
	message string
	keys    KeyMap
	cancel  context.CancelFunc
	done    *taskDoneMsg
}

func newSpinnerModel(message string, cancel context.CancelFunc) spinnerModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(ColorPrimary)
	return spinnerModel{spinner: s, message: message, keys: DefaultKeyMap(), cancel: cancel}
}

func (m spinnerModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			m.cancel()
			m.message = "Cancelling..."
		}
		return m, nil
	case taskDoneMsg:
		m.done = &msg
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m spinnerModel) View() string {
	switch {
	case m.done == nil:
		return m.spinner.View() + " " + m.message + "  " + HelpStyle.Render(m.keys.HelpText()) + "\n"
	case m.done.err != nil:
		return ErrorStyle.Render(SymbolCross+" "+m.done.err.Error()) + "\n"
	default:
		return SuccessStyle.Render(SymbolCheck+" "+m.done.result) + "\n"
	}
}

// RunWithSpinner runs task behind a spinner on interactive terminals and
// plainly otherwise. Pressing q cancels the task's context.
func RunWithSpinner(ctx context.Context, message string, task Task) error {
	if !IsInteractive() {
		return runPlain(ctx, os.Stderr, message, task)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	program := tea.NewProgram(newSpinnerModel(message, cancel), tea.WithOutput(os.Stderr), tea.WithContext(ctx))

	done := make(chan error, 1)
	go func() {
		result, err := task(ctx)
		program.Send(taskDoneMsg{result: result, err: err})
		done <- err
	}()

	if _, err := program.Run(); err != nil {
		cancel()
	}
	return <-done
}

func runPlain(ctx context.Context, out io.Writer, message string, task Task) error {
	fmt.Fprintln(out, message)
	result, err := task(ctx)
	if err != nil {
		return err
	}
	if result != "" {
		fmt.Fprintf(out, "%s %s\n", SymbolCheck, result)
	}
	return nil
}
