package actions

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/atomikpanda/blazesetup/internal/config"
	"github.com/atomikpanda/blazesetup/internal/shell"
)

// BuildAction creates the out-of-tree build directory and runs the build
// configuration tool inside it. Configuration runs on every invocation, even
// when the directory already existed.
type BuildAction struct {
	// Build holds the resolved build directory.
	Build  config.Build
	Runner shell.Runner
	// Stream receives the configuration tool's output.
	Stream io.Writer
	Printer
	Log zerolog.Logger
}

func (a *BuildAction) Describe() string {
	return fmt.Sprintf("configure build directory %s (%s)", a.Build.Dir, a.command())
}

func (a *BuildAction) Run(ctx context.Context, dryRun bool) error {
	info, err := os.Stat(a.Build.Dir)
	switch {
	case err == nil && info.IsDir():
	case err == nil:
		return &IOError{Op: "create build directory", Path: a.Build.Dir, Err: errors.New("exists and is not a directory")}
	case !errors.Is(err, os.ErrNotExist):
		return &IOError{Op: "stat build directory", Path: a.Build.Dir, Err: err}
	case dryRun:
		a.DryRun("create directory %s", a.Build.Dir)
	default:
		if err := os.MkdirAll(a.Build.Dir, 0o755); err != nil {
			return &IOError{Op: "create build directory", Path: a.Build.Dir, Err: err}
		}
		a.Info("created build directory: %s", a.Build.Dir)
	}

	cmd := a.command()
	if dryRun {
		a.DryRun("%s (in %s)", cmd, a.Build.Dir)
		return nil
	}

	a.Log.Info().Str("dir", a.Build.Dir).Str("command", cmd.String()).Msg("configuring build")
	res, err := a.Runner.Run(ctx, cmd)
	if err != nil || !res.Success() {
		return &BuildError{Dir: a.Build.Dir, Command: cmd.String(), Result: res, Err: err}
	}
	a.OK("build environment prepared")
	return nil
}

func (a *BuildAction) command() shell.Command {
	return shell.Command{Name: a.Build.Command, Args: a.Build.Args, Dir: a.Build.Dir, Stream: a.Stream}
}
