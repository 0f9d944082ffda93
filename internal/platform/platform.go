// Package platform resolves the host OS family and the package manager used to
// install dependencies on it.
package platform

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/atomikpanda/blazesetup/internal/shell"
)

// Current returns the runtime.GOOS value ("darwin", "windows", "linux", …).
func Current() string {
	return runtime.GOOS
}

// OSFamily is the host operating system family.
type OSFamily string

const (
	Linux       OSFamily = "linux"
	MacOS       OSFamily = "macos"
	Unsupported OSFamily = "unsupported"
)

// Family maps a GOOS value to its OS family.
func Family(goos string) OSFamily {
	switch goos {
	case "linux":
		return Linux
	case "darwin":
		return MacOS
	default:
		return Unsupported
	}
}

// Manager is a supported package manager.
type Manager string

const (
	Apt  Manager = "apt"
	Brew Manager = "brew"
	None Manager = "none"
)

type capabilities struct {
	family     OSFamily
	probe      string
	hint       string
	privileged bool
	refresh    []string
	install    []string
}

// managers is the single dispatch table for everything manager-specific.
var managers = map[Manager]capabilities{
	Apt: {
		family:     Linux,
		probe:      "apt-get",
		hint:       "apt is required on Linux; use a Debian or Ubuntu based distribution",
		privileged: true,
		refresh:    []string{"apt-get", "update"},
		install:    []string{"apt-get", "install", "-y"},
	},
	Brew: {
		family:  MacOS,
		probe:   "brew",
		hint:    "install Homebrew from https://brew.sh/",
		install: []string{"brew", "install"},
	},
}

// ManagerFor returns the package manager expected on family.
func ManagerFor(family OSFamily) Manager {
	for m, c := range managers {
		if c.family == family {
			return m
		}
	}
	return None
}

// Probe returns the command whose presence means the manager is installed.
func (m Manager) Probe() string { return managers[m].probe }

// Hint returns the remediation shown when the manager is missing.
func (m Manager) Hint() string { return managers[m].hint }

// Privileged reports whether the manager's commands need root.
func (m Manager) Privileged() bool { return managers[m].privileged }

// RefreshArgs returns the command that refreshes the package index, or nil
// when the manager has no separate refresh step.
func (m Manager) RefreshArgs() []string {
	return clone(managers[m].refresh)
}

// InstallArgs returns the command that installs pkgs, or nil for an unknown manager.
func (m Manager) InstallArgs(pkgs ...string) []string {
	base := managers[m].install
	if base == nil {
		return nil
	}
	return append(clone(base), pkgs...)
}

func clone(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}

// Profile is the resolved platform. It is created once per run and never changes.
type Profile struct {
	OS      OSFamily
	Manager Manager
	GOOS    string
}

func (p Profile) String() string {
	return fmt.Sprintf("%s (%s) via %s", p.OS, p.GOOS, p.Manager)
}

// UnsupportedError is returned for hosts outside {linux, darwin}.
type UnsupportedError struct {
	GOOS string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("unsupported platform %q: install dependencies manually", e.GOOS)
}

// ManagerMissingError is returned when the host's expected package manager is absent.
type ManagerMissingError struct {
	OS      OSFamily
	Manager Manager
	Hint    string
}

func (e *ManagerMissingError) Error() string {
	msg := fmt.Sprintf("package manager %s not found on %s", e.Manager, e.OS)
	if e.Hint != "" {
		msg += ": " + e.Hint
	}
	return msg
}

// Resolver determines the Profile of a host.
type Resolver struct {
	GOOS  string
	Probe shell.Prober
}

// NewResolver returns a Resolver for the current host.
func NewResolver() Resolver {
	return Resolver{GOOS: Current(), Probe: shell.PathProber{}}
}

// Resolve inspects the host. Its only side effect is the manager presence probe.
func (r Resolver) Resolve() (Profile, error) {
	goos := strings.ToLower(r.GOOS)
	family := Family(goos)
	if family == Unsupported {
		return Profile{OS: Unsupported, Manager: None, GOOS: r.GOOS}, &UnsupportedError{GOOS: r.GOOS}
	}
	m := ManagerFor(family)
	if !r.Probe.Exists(m.Probe()) {
		return Profile{OS: family, Manager: None, GOOS: r.GOOS}, &ManagerMissingError{OS: family, Manager: m, Hint: m.Hint()}
	}
	return Profile{OS: family, Manager: m, GOOS: r.GOOS}, nil
}
