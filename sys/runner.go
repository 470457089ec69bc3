package sys

import (
	"bytes"
	"context"
	"os/exec"
	"runtime"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/pkg/errors"
)

// Result is the outcome of a command that could be started.
type Result struct {
	Stdout string
	Stderr string
	Code   int
}

// Output returns stdout followed by stderr. Compilers print their banners on either.
func (r Result) Output() string {
	return r.Stdout + r.Stderr
}

// Runner runs command lines through the host shell.
type Runner interface {
	// Run runs command and waits for it. A non-zero exit status is reported in Result.Code,
	// the error is reserved for commands that could not be run at all.
	Run(ctx context.Context, command string) (Result, error)
}

// Command joins argv into a command line understood by Runner.Run.
func Command(argv ...string) string {
	return shellquote.Join(argv...)
}

// ShellRunner is the Runner executing commands with sh, or cmd.exe on Windows.
type ShellRunner struct {
	Dir string
}

func (r ShellRunner) Run(ctx context.Context, command string) (Result, error) {
	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.CommandContext(ctx, "cmd", "/C", command)
	} else {
		cmd = exec.CommandContext(ctx, "sh", "-c", command)
	}
	cmd.Dir = r.Dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return res, errors.Wrapf(err, "Command %q fails", command)
		}
		res.Code = exitErr.ExitCode()
	}
	return res, nil
}

// FakeRunner answers commands from a table. Unknown commands exit with status 127, like sh does.
type FakeRunner struct {
	Results map[string]Result
	Calls   []string
}

func (r *FakeRunner) Run(ctx context.Context, command string) (Result, error) {
	r.Calls = append(r.Calls, command)
	if res, ok := r.Results[command]; ok {
		return res, nil
	}
	argv, err := shellquote.Split(command)
	if err != nil || len(argv) == 0 {
		return Result{Code: 127}, nil
	}
	return Result{Code: 127, Stderr: argv[0] + ": command not found\n"}, nil
}

// Strip removes surrounding blanks from every line and drops empty ones.
func Strip(output string) []string {
	var lines []string
	for _, l := range strings.Split(output, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}
