package tui

import (
	"os"

	"golang.org/x/term"
)

// Mode decides how a load reports progress: a bubbletea spinner on a
// terminal, plain lines on stderr everywhere else.
type Mode int

const (
	ModePlain Mode = iota
	ModeInteractive
)

// Environment variables that force plain output.
const (
	EnvNonInteractive = "FSLOAD_NON_INTERACTIVE"
	EnvCI             = "CI"
	EnvNoColor        = "NO_COLOR"
)

func (m Mode) String() string {
	if m == ModeInteractive {
		return "interactive"
	}
	return "plain"
}

// terminal reports whether stdin and stdout are both attached to a terminal.
type terminal struct {
	stdin, stdout bool
}

func currentTerminal() terminal {
	return terminal{
		stdin:  term.IsTerminal(int(os.Stdin.Fd())),
		stdout: term.IsTerminal(int(os.Stdout.Fd())),
	}
}

// detect picks the mode from the environment and the attached terminal.
// FSLOAD_NON_INTERACTIVE=1, a set CI or a set NO_COLOR forces plain output.
func detect(getenv func(string) string, tty terminal) Mode {
	if getenv(EnvNonInteractive) == "1" || getenv(EnvCI) != "" || getenv(EnvNoColor) != "" {
		return ModePlain
	}
	if !tty.stdin || !tty.stdout {
		return ModePlain
	}
	return ModeInteractive
}

// DetectMode returns the mode of the running process.
func DetectMode() Mode {
	return detect(os.Getenv, currentTerminal())
}

func IsInteractive() bool {
	return DetectMode() == ModeInteractive
}
