// Package shell is the boundary to the external tools the provisioner drives
// (package managers, openssl, cmake). Every child process is owned by a single
// Run call: it is started, waited for, and released before Run returns.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// Command is one invocation of an external tool.
type Command struct {
	Name string
	Args []string
	// Dir is the working directory; empty means the current directory.
	Dir string
	// Stream, when set, also receives the child's stdout and stderr as they are produced.
	Stream io.Writer
	// Interactive connects the child to the terminal's stdin (sudo password prompts)
	// and keeps it in the foreground process group.
	Interactive bool
}

// String returns the command line as a single space-separated string.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Result is what the provisioner observes of a finished child process.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Success reports whether the command exited 0.
func (r Result) Success() bool {
	return r.ExitCode == 0
}

// Detail returns the most useful diagnostic text of a failed command.
func (r Result) Detail() string {
	if s := strings.TrimSpace(r.Stderr); s != "" {
		return s
	}
	return strings.TrimSpace(r.Stdout)
}

// Runner executes external commands. A non-zero exit is reported through
// Result.ExitCode, not as an error; errors mean the command could not run
// to completion at all (binary missing, context cancelled).
type Runner interface {
	Run(ctx context.Context, c Command) (Result, error)
}

// Exec runs commands as real child processes.
type Exec struct{}

// Run starts c, waits for it, and returns its exit status and captured output.
// When ctx is cancelled the child (and its process group, for non-interactive
// commands) is killed before Run returns.
func (Exec) Run(ctx context.Context, c Command) (Result, error) {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if c.Stream != nil {
		cmd.Stdout = io.MultiWriter(&stdout, c.Stream)
		cmd.Stderr = io.MultiWriter(&stderr, c.Stream)
	}
	if c.Interactive {
		cmd.Stdin = os.Stdin
	} else {
		// A background process group cannot read the terminal, so only
		// non-interactive children get their own group.
		setProcessGroup(cmd)
	}

	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return res, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		res.ExitCode = -1
		return res, fmt.Errorf("%s: %w", c, ctxErr)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	res.ExitCode = -1
	return res, fmt.Errorf("%s: %w", c, err)
}

// Prober answers whether a command is available on the host.
type Prober interface {
	Exists(name string) bool
}

// PathProber looks commands up on PATH. It never executes them.
type PathProber struct{}

// Exists reports whether name resolves to an executable on PATH.
func (PathProber) Exists(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
