// Package runner drives the provisioning steps of a checkout in their fixed
// order, stopping at the first failure.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/felixgeelhaar/statekit"
	"github.com/rs/zerolog"

	"github.com/atomikpanda/blazesetup/internal/actions"
	"github.com/atomikpanda/blazesetup/internal/color"
	"github.com/atomikpanda/blazesetup/internal/config"
	"github.com/atomikpanda/blazesetup/internal/platform"
	"github.com/atomikpanda/blazesetup/internal/shell"
)

// Phases of a run. The working phases execute in this order; succeeded and
// failed are terminal.
const (
	PhasePlatform     = "platform"
	PhaseDependencies = "dependencies"
	PhaseCertificates = "certificates"
	PhaseStatic       = "static"
	PhaseBuild        = "build"
	PhaseSucceeded    = "succeeded"
	PhaseFailed       = "failed"
)

const (
	eventNext = "NEXT"
	eventFail = "FAIL"
)

// Resolver determines the platform profile. platform.Resolver implements it.
type Resolver interface {
	Resolve() (platform.Profile, error)
}

// StepError names the step a run stopped at.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Runner provisions a checkout described by Config on the host described by Resolver.
type Runner struct {
	Config   config.Config
	Resolver Resolver
	Commands shell.Runner
	Probe    shell.Prober
	DryRun   bool
	Verbose  bool
	// Elevate prefixes privileged package manager commands with sudo.
	Elevate bool
	// Verify checks generated certificates in-process.
	Verify  bool
	Confirm actions.Confirmer
	// Out receives the human-readable progress; Stream receives child tool output.
	Out    io.Writer
	Stream io.Writer
	Color  color.Palette
	Log    zerolog.Logger

	profile platform.Profile
	phase   string
}

// New creates a Runner for the current host writing to stdout.
func New(cfg config.Config, log zerolog.Logger) *Runner {
	return &Runner{
		Config:   cfg,
		Resolver: platform.NewResolver(),
		Commands: shell.Exec{},
		Probe:    shell.PathProber{},
		Verify:   true,
		Out:      os.Stdout,
		Stream:   os.Stdout,
		Log:      log,
	}
}

// Phase returns where the last Run stopped: PhaseSucceeded, PhaseFailed,
// or empty before the first Run.
func (r *Runner) Phase() string { return r.phase }

// Profile returns the platform resolved by the last Run.
func (r *Runner) Profile() platform.Profile { return r.profile }

func buildMachine() (*statekit.Interpreter[struct{}], error) {
	machine, err := statekit.NewMachine[struct{}]("blazesetup").
		WithInitial(PhasePlatform).
		State(PhasePlatform).
		On(eventNext).Target(PhaseDependencies).
		On(eventFail).Target(PhaseFailed).Done().
		State(PhaseDependencies).
		On(eventNext).Target(PhaseCertificates).
		On(eventFail).Target(PhaseFailed).Done().
		State(PhaseCertificates).
		On(eventNext).Target(PhaseStatic).
		On(eventFail).Target(PhaseFailed).Done().
		State(PhaseStatic).
		On(eventNext).Target(PhaseBuild).
		On(eventFail).Target(PhaseFailed).Done().
		State(PhaseBuild).
		On(eventNext).Target(PhaseSucceeded).
		On(eventFail).Target(PhaseFailed).Done().
		// Terminal: later events leave the phase unchanged.
		State(PhaseSucceeded).
		On(eventNext).Target(PhaseSucceeded).Done().
		State(PhaseFailed).
		On(eventFail).Target(PhaseFailed).Done().
		Build()
	if err != nil {
		return nil, err
	}
	return statekit.NewInterpreter(machine), nil
}

// Run executes every step once, in order. The first failing step ends the run
// with a *StepError; later steps are not attempted.
func (r *Runner) Run(ctx context.Context) error {
	interp, err := buildMachine()
	if err != nil {
		return fmt.Errorf("build state machine: %w", err)
	}
	interp.Start()
	defer interp.Stop()

	for {
		phase := string(interp.State().Value)
		r.phase = phase
		if phase == PhaseSucceeded || phase == PhaseFailed {
			break
		}
		if err := ctx.Err(); err != nil {
			interp.Send(statekit.Event{Type: eventFail})
			r.phase = string(interp.State().Value)
			return &StepError{Step: phase, Err: err}
		}

		log := r.Log.With().Str("step", phase).Logger()
		log.Debug().Msg("step started")
		if err := r.runStep(ctx, phase, log); err != nil {
			log.Error().Err(err).Msg("step failed")
			interp.Send(statekit.Event{Type: eventFail})
			r.phase = string(interp.State().Value)
			return &StepError{Step: phase, Err: err}
		}
		log.Debug().Msg("step finished")
		interp.Send(statekit.Event{Type: eventNext})
	}

	r.summary()
	return nil
}

func (r *Runner) runStep(ctx context.Context, phase string, log zerolog.Logger) error {
	r.printf("\n%s\n", r.Color.BoldCyan("==> "+phase))

	if phase == PhasePlatform {
		profile, err := r.Resolver.Resolve()
		r.profile = profile
		if err != nil {
			return err
		}
		log.Info().Str("os", string(profile.OS)).Str("manager", string(profile.Manager)).Msg("platform resolved")
		r.printf("  -> %s\n", profile)
		if r.Verbose {
			r.printf("    %s\n", r.Color.Dim(fmt.Sprintf("checking %d dependencies with %s", len(r.Config.Dependencies), profile.Manager.Probe())))
		}
		return nil
	}

	action := r.action(phase, log)
	r.printf("  -> %s\n", action.Describe())
	if idem, ok := action.(actions.Idempotent); ok {
		applied, err := idem.IsApplied(ctx)
		if err != nil {
			return err
		}
		if applied {
			log.Debug().Msg("already applied")
			r.printf("    %s\n", r.Color.Green("already satisfied"))
			return nil
		}
	}
	return action.Run(ctx, r.DryRun)
}

// action returns the provisioning action for a working phase after platform.
func (r *Runner) action(phase string, log zerolog.Logger) actions.Action {
	printer := actions.Printer{Out: r.Out, Color: r.Color}
	cfg := r.Config
	switch phase {
	case PhaseDependencies:
		return &actions.Installer{
			Profile:      r.profile,
			Dependencies: cfg.Dependencies,
			Runner:       r.Commands,
			Probe:        r.Probe,
			Elevate:      r.Elevate,
			Confirm:      r.Confirm,
			Stream:       r.Stream,
			Printer:      printer,
			Log:          log,
		}
	case PhaseCertificates:
		cert := cfg.Certificate
		cert.CertFile = cfg.Path(cert.CertFile)
		cert.KeyFile = cfg.Path(cert.KeyFile)
		return &actions.CertificateAction{Cert: cert, Runner: r.Commands, Verify: r.Verify, Printer: printer, Log: log}
	case PhaseStatic:
		site := cfg.Static
		site.Root = cfg.Path(site.Root)
		site.Index = cfg.Path(site.Index)
		return &actions.StaticSiteAction{Site: site, Printer: printer, Log: log}
	case PhaseBuild:
		build := cfg.Build
		build.Dir = cfg.Path(build.Dir)
		return &actions.BuildAction{Build: build, Runner: r.Commands, Stream: r.Stream, Printer: printer, Log: log}
	}
	panic("runner: no action for phase " + phase)
}

func (r *Runner) summary() {
	if r.DryRun {
		r.printf("\n%s\n", r.Color.BoldGreen("Dry run complete, nothing was changed."))
		return
	}
	r.printf("\n%s\n", r.Color.BoldGreen("Setup complete!"))
	if len(r.Config.NextSteps) == 0 {
		return
	}
	r.printf("Next steps:\n")
	for _, s := range r.Config.NextSteps {
		r.printf("  %s\n", s)
	}
}

func (r *Runner) printf(format string, args ...any) {
	if r.Out == nil {
		return
	}
	fmt.Fprintf(r.Out, format, args...)
}

// IsStep reports whether err stopped a run at step.
func IsStep(err error, step string) bool {
	var se *StepError
	return errors.As(err, &se) && se.Step == step
}
