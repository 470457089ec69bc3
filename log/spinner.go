package log

import (
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/mattn/go-isatty"
)

// Spinner is shown on stderr while a slow external command runs.
var Spinner = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))

// Progress starts the spinner with the given suffix and returns the function stopping it.
// Nothing is displayed when stderr is not a terminal or in verbose mode, where debug output would interleave.
func Progress(suffix string) func() {
	if Verbose || !isatty.IsTerminal(os.Stderr.Fd()) {
		return func() {}
	}
	Spinner.Suffix = " " + suffix
	Spinner.Start()
	return Spinner.Stop
}
