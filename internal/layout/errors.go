package layout

import (
	"fmt"

	"github.com/vvka-141/fsload/pkg/fsload"
)

// Error reports a malformed layout or a failed render.
type Error struct {
	Layout  string
	Message string
	Hint    string
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("layout %q: %s", e.Layout, e.Message)
	if e.Hint != "" {
		msg += "\n\nHint: " + e.Hint
	}
	return msg
}

func (e *Error) Unwrap() error {
	return fsload.ErrInvalidLayout
}

// AmbiguousPrefixError reports a layout whose table prefix could match
// files of more than one table.
type AmbiguousPrefixError struct {
	Layout string
	Table  string
	Reason string
}

func (e *AmbiguousPrefixError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("layout %q: cannot derive prefix for table %q: %s", e.Layout, e.Table, e.Reason)
	}
	return fmt.Sprintf("layout %q: cannot derive table prefix: %s", e.Layout, e.Reason)
}

func (e *AmbiguousPrefixError) Unwrap() error {
	return fsload.ErrAmbiguousPrefix
}
