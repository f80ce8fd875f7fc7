// Command fsload copies staged load packages into a filesystem or bucket
// dataset.
package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/vvka-141/fsload/internal/cli"
	"github.com/vvka-141/fsload/pkg/fsload"
)

func main() {
	os.Exit(run())
}

// run executes the command line and maps its outcome to an exit code, so
// a script can tell failed jobs from a denied truncation or a bad package.
// A panic exits with fsload.ExitPanic after printing the stack; load
// packages stay on disk and the next load resumes them.
func run() (code int) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "panic: %v\n%s\n", r, debug.Stack())
			code = fsload.ExitPanic
		}
	}()

	if os.Getenv("FSLOAD_TEST_PANIC") == "1" {
		panic("intentional test panic")
	}
	return fsload.ExitCodeForError(cli.Execute())
}
