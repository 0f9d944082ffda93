package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/atomikpanda/blazesetup/internal/actions"
	"github.com/atomikpanda/blazesetup/internal/color"
	"github.com/atomikpanda/blazesetup/internal/config"
	"github.com/atomikpanda/blazesetup/internal/platform"
	"github.com/atomikpanda/blazesetup/internal/runner"
	"github.com/atomikpanda/blazesetup/internal/shell/shelltest"
)

func TestBuildRoot(t *testing.T) {
	root := buildRoot()
	require.NotNil(t, root)
	assert.Equal(t, "blazesetup", root.Use)

	names := make(map[string]bool)
	for _, cmd := range root.Commands() {
		names[cmd.Name()] = true
	}
	for _, name := range []string{"platform", "status", "config"} {
		assert.True(t, names[name], "missing subcommand %q", name)
	}
	for _, flag := range []string{"dry-run", "verbose", "log-level", "confirm", "no-color"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), "missing flag --%s", flag)
	}
}

func TestRootRejectsArgs(t *testing.T) {
	root := buildRoot()
	root.SetArgs([]string{"extra"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	assert.Error(t, root.Execute())
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 1, exitCode(errors.New("boom")))
	assert.Equal(t, 1, exitCode(&runner.StepError{Step: runner.PhaseBuild, Err: &actions.BuildError{Dir: "build"}}))
}

func TestDiagnostic(t *testing.T) {
	err := fmt.Errorf("run: %w", &runner.StepError{
		Step: runner.PhasePlatform,
		Err:  &platform.UnsupportedError{GOOS: "plan9"},
	})
	msg := diagnostic(err, color.Palette{})
	assert.Contains(t, msg, "setup failed:")
	assert.Contains(t, msg, "platform step")
	assert.Contains(t, msg, `unsupported platform "plan9"`)

	assert.Equal(t, "setup failed: boom", diagnostic(errors.New("boom"), color.Palette{}))
}

func TestConfigCommand(t *testing.T) {
	root := buildRoot()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"config"})
	require.NoError(t, root.Execute())

	var cfg config.Config
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &cfg))
	assert.Equal(t, "server.crt", cfg.Certificate.CertFile)
	assert.Equal(t, "cmake", cfg.Build.Command)
	assert.Len(t, cfg.Dependencies, 4)
}

func TestPrintStatus(t *testing.T) {
	cfg, err := config.Default()
	require.NoError(t, err)
	cfg = cfg.WithRoot(t.TempDir())
	require.NoError(t, os.MkdirAll(cfg.Path(cfg.Static.Root), 0o755))
	require.NoError(t, os.WriteFile(cfg.Path(cfg.Certificate.CertFile), []byte("x"), 0o644))

	var out bytes.Buffer
	profile := platform.Profile{OS: platform.Linux, Manager: platform.Apt, GOOS: "linux"}
	printStatus(&out, cfg, profile, shelltest.NewProber("gcc", "cmake"), color.Palette{})

	s := out.String()
	assert.Contains(t, s, "platform: linux (linux) via apt")
	assert.Regexp(t, `cmake\s+ok`, s)
	assert.Regexp(t, `nghttp2\s+missing`, s)
	assert.Regexp(t, `server\.crt\s+ok`, s)
	assert.Regexp(t, `server\.key\s+missing`, s)
	assert.Regexp(t, `static\s+ok`, s)
	assert.Regexp(t, regexp.QuoteMeta(filepath.Join("static", "index.html"))+`\s+missing`, s)
}

func TestNewRunnerOptions(t *testing.T) {
	cfg, err := config.Default()
	require.NoError(t, err)
	var out bytes.Buffer
	r := newRunner(cfg, options{dryRun: true, verbose: true, confirm: true, noColor: true}, &out)
	assert.True(t, r.DryRun)
	assert.True(t, r.Verbose)
	assert.False(t, r.Color.Enabled)
	assert.IsType(t, promptConfirmer{}, r.Confirm)
	assert.Same(t, &out, r.Out)

	r = newRunner(cfg, options{}, &out)
	assert.Nil(t, r.Confirm)
}
