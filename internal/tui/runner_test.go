package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestSpinnerModel_QuitCancels(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := newSpinnerModel("Loading", cancel)

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if ctx.Err() == nil {
		t.Fatal("expected q to cancel the task context")
	}
	if !strings.Contains(next.View(), "Cancelling") {
		t.Errorf("unexpected view: %s", next.View())
	}
}

func TestSpinnerModel_DoneQuits(t *testing.T) {
	m := newSpinnerModel("Loading", func() {})

	next, cmd := m.Update(taskDoneMsg{result: "copied 3 files"})
	if cmd == nil {
		t.Fatal("expected a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Errorf("expected tea.QuitMsg")
	}
	if !strings.Contains(next.View(), SymbolCheck+" copied 3 files") {
		t.Errorf("unexpected view: %s", next.View())
	}

	failed, _ := m.Update(taskDoneMsg{err: errors.New("bucket not found")})
	if !strings.Contains(failed.View(), "bucket not found") {
		t.Errorf("unexpected view: %s", failed.View())
	}
}
