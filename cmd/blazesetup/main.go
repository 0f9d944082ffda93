package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/atomikpanda/blazesetup/internal/color"
	"github.com/atomikpanda/blazesetup/internal/config"
	"github.com/atomikpanda/blazesetup/internal/log"
	"github.com/atomikpanda/blazesetup/internal/platform"
	"github.com/atomikpanda/blazesetup/internal/runner"
	"github.com/atomikpanda/blazesetup/internal/shell"
)

type options struct {
	dryRun   bool
	verbose  bool
	logLevel string
	confirm  bool
	noColor  bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := buildRoot().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, diagnostic(err, color.Detect(os.Stderr)))
	}
	os.Exit(exitCode(err))
}

func buildRoot() *cobra.Command {
	var opts options
	root := &cobra.Command{
		Use:   "blazesetup",
		Short: "Provision a BlazeHTTP checkout for building",
		Long: `blazesetup installs the native dependencies of the BlazeHTTP server, creates a
self-signed TLS certificate, scaffolds the static content directory and configures
the out-of-tree build directory. Running it again only repeats what is missing.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Default()
			if err != nil {
				return err
			}
			return newRunner(cfg, opts, cmd.OutOrStdout()).Run(cmd.Context())
		},
	}

	root.PersistentFlags().BoolVar(&opts.dryRun, "dry-run", false, "print actions without executing them")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "show extra output and debug logs")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "structured log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&opts.confirm, "confirm", false, "ask before installing each missing dependency")
	root.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "disable coloured output")

	root.AddCommand(
		platformCmd(),
		statusCmd(&opts),
		configCmd(),
	)
	return root
}

func newLogger(opts options) zerolog.Logger {
	level := opts.logLevel
	if level == "" && opts.verbose {
		level = "debug"
	}
	return log.New(log.Config{Level: level, Console: true, NoColor: opts.noColor})
}

func palette(opts options, f *os.File) color.Palette {
	if opts.noColor {
		return color.Palette{}
	}
	return color.Detect(f)
}

func newRunner(cfg config.Config, opts options, out io.Writer) *runner.Runner {
	r := runner.New(cfg, log.WithComponent(newLogger(opts), "runner"))
	r.DryRun = opts.dryRun
	r.Verbose = opts.verbose
	r.Elevate = os.Geteuid() != 0
	r.Out = out
	r.Color = palette(opts, os.Stdout)
	if opts.confirm {
		r.Confirm = promptConfirmer{}
	}
	return r
}

// exitCode maps the outcome of a run to the process exit status.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1
}

// diagnostic renders err as the one-line failure report printed on stderr.
func diagnostic(err error, p color.Palette) string {
	var se *runner.StepError
	if errors.As(err, &se) {
		return fmt.Sprintf("%s %s step: %v", p.BoldRed("setup failed:"), se.Step, se.Err)
	}
	return fmt.Sprintf("%s %v", p.BoldRed("setup failed:"), err)
}

// --- platform ----------------------------------------------------------------

func platformCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "platform",
		Short: "Print the detected platform and package manager",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := platform.NewResolver().Resolve()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "os:      %s (%s)\n", profile.OS, profile.GOOS)
			fmt.Fprintf(out, "manager: %s\n", profile.Manager)
			return err
		},
	}
}

// --- status ------------------------------------------------------------------

func statusCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which dependencies and artifacts are already in place",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Default()
			if err != nil {
				return err
			}
			profile, _ := platform.NewResolver().Resolve()
			printStatus(cmd.OutOrStdout(), cfg, profile, shell.PathProber{}, palette(*opts, os.Stdout))
			return nil
		},
	}
}

func printStatus(w io.Writer, cfg config.Config, profile platform.Profile, probe shell.Prober, p color.Palette) {
	mark := func(ok bool) string {
		if ok {
			return p.Green("ok")
		}
		return p.Yellow("missing")
	}

	fmt.Fprintf(w, "%s %s\n", p.Bold("platform:"), profile)
	fmt.Fprintln(w, p.Bold("dependencies:"))
	for _, d := range cfg.Dependencies {
		fmt.Fprintf(w, "  %-16s %s\n", d.Name, mark(probe.Exists(d.Probe)))
	}

	fmt.Fprintln(w, p.Bold("artifacts:"))
	for _, path := range []string{
		cfg.Certificate.CertFile,
		cfg.Certificate.KeyFile,
		cfg.Static.Root,
		cfg.Static.Index,
		cfg.Build.Dir,
	} {
		_, err := os.Stat(cfg.Path(path))
		fmt.Fprintf(w, "  %-16s %s\n", path, mark(err == nil))
	}
}

// --- config ------------------------------------------------------------------

func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the fixed provisioning configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Default()
			if err != nil {
				return err
			}
			data, err := cfg.Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
