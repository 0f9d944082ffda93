package actions

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/atomikpanda/blazesetup/internal/config"
	"github.com/atomikpanda/blazesetup/internal/platform"
	"github.com/atomikpanda/blazesetup/internal/shell"
)

// Confirmer asks the operator before a package is installed.
type Confirmer interface {
	Confirm(prompt string) (bool, error)
}

// Installer ensures every dependency is present, installing the missing ones
// with the profile's package manager. It stops at the first failed install.
//
// Presence is a command-existence probe, not a version check: a dependency
// left broken by an earlier failed install is treated as present.
type Installer struct {
	Profile      platform.Profile
	Dependencies []config.Dependency
	Runner       shell.Runner
	Probe        shell.Prober
	// Elevate prefixes privileged manager commands with sudo.
	Elevate bool
	// Confirm, when set, is asked before each install.
	Confirm Confirmer
	// Stream receives the package manager's output.
	Stream io.Writer
	Printer
	Log zerolog.Logger

	refreshed bool
}

func (i *Installer) Describe() string {
	names := make([]string, len(i.Dependencies))
	for n, d := range i.Dependencies {
		names[n] = d.Name
	}
	return fmt.Sprintf("ensure dependencies via %s: %s", i.Profile.Manager, strings.Join(names, ", "))
}

// IsApplied implements Idempotent.
func (i *Installer) IsApplied(context.Context) (bool, error) {
	return len(i.Missing()) == 0, nil
}

// Missing returns the dependencies whose probe fails, in declaration order.
func (i *Installer) Missing() []config.Dependency {
	var missing []config.Dependency
	for _, d := range i.Dependencies {
		if !i.Probe.Exists(d.Probe) {
			missing = append(missing, d)
		}
	}
	return missing
}

func (i *Installer) Run(ctx context.Context, dryRun bool) error {
	return i.Ensure(ctx, i.Dependencies, dryRun)
}

// Ensure installs each missing dependency of deps in order.
func (i *Installer) Ensure(ctx context.Context, deps []config.Dependency, dryRun bool) error {
	for _, d := range deps {
		if i.Probe.Exists(d.Probe) {
			i.Log.Debug().Str("dependency", d.Name).Str("probe", d.Probe).Msg("dependency present")
			i.Info("%s already installed", d.Name)
			continue
		}
		if err := i.install(ctx, d, dryRun); err != nil {
			return err
		}
	}
	return nil
}

func (i *Installer) install(ctx context.Context, d config.Dependency, dryRun bool) error {
	manager := i.Profile.Manager
	pkgs, ok := d.PackageFor(string(manager))
	if !ok {
		return &InstallError{Dependency: d.Name, Err: fmt.Errorf("no package declared for %s", manager)}
	}
	args := manager.InstallArgs(pkgs...)
	if args == nil {
		return &InstallError{Dependency: d.Name, Err: fmt.Errorf("no installer for package manager %q", manager)}
	}
	install := i.command(args)

	if dryRun {
		if refresh := manager.RefreshArgs(); refresh != nil && !i.refreshed {
			i.refreshed = true
			i.DryRun("%s", i.command(refresh))
		}
		i.DryRun("%s", install)
		return nil
	}

	if i.Confirm != nil {
		ok, err := i.Confirm.Confirm(fmt.Sprintf("Install %s (%s) with %s?", d.Name, strings.Join(pkgs, " "), manager))
		if err != nil {
			return &InstallError{Dependency: d.Name, Err: fmt.Errorf("confirm: %w", err)}
		}
		if !ok {
			return &InstallError{Dependency: d.Name, Err: ErrDeclined}
		}
	}

	if err := i.refresh(ctx, d.Name); err != nil {
		return err
	}

	i.Info("installing %s...", d.Name)
	log := i.Log.With().Str("dependency", d.Name).Str("command", install.String()).Logger()
	log.Info().Msg("installing dependency")
	res, err := i.Runner.Run(ctx, install)
	if err != nil || !res.Success() {
		log.Error().Err(err).Int("exit_code", res.ExitCode).Msg("install failed")
		return &InstallError{Dependency: d.Name, Command: install.String(), Result: res, Err: err}
	}
	i.OK("installed %s", d.Name)
	return nil
}

// refresh updates the package index once per Installer, before the first install.
func (i *Installer) refresh(ctx context.Context, dependency string) error {
	args := i.Profile.Manager.RefreshArgs()
	if args == nil || i.refreshed {
		return nil
	}
	i.refreshed = true
	cmd := i.command(args)
	i.Info("refreshing %s package index...", i.Profile.Manager)
	res, err := i.Runner.Run(ctx, cmd)
	if err != nil || !res.Success() {
		i.Log.Error().Err(err).Str("command", cmd.String()).Int("exit_code", res.ExitCode).Msg("package index refresh failed")
		return &InstallError{Dependency: dependency, Command: cmd.String(), Result: res, Err: err}
	}
	return nil
}

func (i *Installer) command(args []string) shell.Command {
	if i.Elevate && i.Profile.Manager.Privileged() {
		args = append([]string{"sudo"}, args...)
	}
	return shell.Command{Name: args[0], Args: args[1:], Stream: i.Stream, Interactive: true}
}
