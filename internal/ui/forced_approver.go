package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/vvka-141/fsload/pkg/fsload"
)

// ForcedApprover implements the Approver interface for forced (non-interactive)
// approval. It displays a countdown and automatically approves after the countdown,
// used when the --force flag is provided.
type ForcedApprover struct {
	verbose bool
	output  io.Writer
	sleepFn func(time.Duration)
}

// NewForcedApprover creates a new ForcedApprover.
func NewForcedApprover(verbose bool) fsload.Approver {
	return &ForcedApprover{verbose: verbose, output: os.Stderr, sleepFn: time.Sleep}
}

// RequestApproval displays a countdown and automatically approves after the countdown.
func (a *ForcedApprover) RequestApproval(ctx context.Context, dataset string, tables []string) (bool, error) {
	fmt.Fprintln(a.output)
	fmt.Fprintln(a.output, "  !!! DANGER !!!")
	fmt.Fprintf(a.output, "  All files of %s in dataset '%s' will be deleted.\n", tableList(tables), dataset)
	if a.verbose {
		for _, t := range tables {
			fmt.Fprintf(a.output, "    - %s\n", t)
		}
	}
	fmt.Fprintln(a.output)

	countdownSeconds := int(fsload.DefaultForceApprovalCountdown.Seconds())
	for i := countdownSeconds; i > 0; i-- {
		select {
		case <-ctx.Done():
			fmt.Fprintln(a.output)
			return false, ctx.Err()
		default:
			fmt.Fprintf(a.output, "\rTruncating in: %d seconds... (Press Ctrl+C to cancel)", i)
			a.sleepFn(1 * time.Second)
		}
	}
	if err := ctx.Err(); err != nil {
		fmt.Fprintln(a.output)
		return false, err
	}

	fmt.Fprintf(a.output, "\r✓ Proceeding with truncation...                                     \n")
	return true, nil
}

func tableList(tables []string) string {
	switch len(tables) {
	case 0:
		return "no tables"
	case 1:
		return "table " + tables[0]
	default:
		return fmt.Sprintf("%d tables (%s)", len(tables), strings.Join(tables, ", "))
	}
}

// Verify ForcedApprover implements the Approver interface at compile time
var _ fsload.Approver = (*ForcedApprover)(nil)
