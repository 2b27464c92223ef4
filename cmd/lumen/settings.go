package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"lumen/internal/driver"
	"lumen/internal/project"
	"lumen/internal/trace"
)

// settings is the effective configuration of one invocation: lumen.toml
// values (or defaults) with explicitly set flags on top.
type settings struct {
	cfg   project.Config
	base  string // project root, else the working directory
	color bool
	quiet bool
}

func loadSettings(cmd *cobra.Command) (*settings, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	s := &settings{cfg: project.DefaultConfig(), base: wd}
	manifest, ok, err := project.LoadManifest(wd)
	if err != nil {
		return nil, err
	}
	if ok {
		s.cfg = manifest.Config
		s.base = manifest.Root
	}

	if err := applyFlags(cmd.Root().PersistentFlags(), &s.cfg); err != nil {
		return nil, err
	}
	if err := s.cfg.Validate(); err != nil {
		return nil, err
	}

	mode, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return nil, fmt.Errorf("failed to get color flag: %w", err)
	}
	s.color, err = resolveColor(mode, isTerminal(os.Stdout) && os.Getenv("NO_COLOR") == "")
	if err != nil {
		return nil, err
	}
	s.quiet, err = cmd.Root().PersistentFlags().GetBool("quiet")
	if err != nil {
		return nil, fmt.Errorf("failed to get quiet flag: %w", err)
	}
	return s, nil
}

// applyFlags overrides cfg with the flags the user actually set.
func applyFlags(flags *pflag.FlagSet, cfg *project.Config) error {
	var err error
	if flags.Changed("max-diagnostics") {
		if cfg.Check.MaxDiagnostics, err = flags.GetInt("max-diagnostics"); err != nil {
			return fmt.Errorf("failed to get max-diagnostics flag: %w", err)
		}
	}
	if flags.Changed("jobs") {
		if cfg.Check.Jobs, err = flags.GetInt("jobs"); err != nil {
			return fmt.Errorf("failed to get jobs flag: %w", err)
		}
	}
	if flags.Changed("cache") {
		if cfg.Check.Cache, err = flags.GetBool("cache"); err != nil {
			return fmt.Errorf("failed to get cache flag: %w", err)
		}
	}
	if flags.Changed("whole-function-ssa") {
		if cfg.Check.WholeFunctionSSA, err = flags.GetBool("whole-function-ssa"); err != nil {
			return fmt.Errorf("failed to get whole-function-ssa flag: %w", err)
		}
	}
	if flags.Changed("trace") {
		if cfg.Trace.Output, err = flags.GetString("trace"); err != nil {
			return fmt.Errorf("failed to get trace flag: %w", err)
		}
	}
	if flags.Changed("trace-level") {
		if cfg.Trace.Level, err = flags.GetString("trace-level"); err != nil {
			return fmt.Errorf("failed to get trace-level flag: %w", err)
		}
	}
	// --trace без уровня включает фазы
	if cfg.Trace.Output != "" && !flags.Changed("trace-level") && cfg.Trace.Level == "off" {
		cfg.Trace.Level = "phase"
	}
	return nil
}

// resolveColor maps --color to a decision; auto follows tty.
func resolveColor(mode string, tty bool) (bool, error) {
	switch strings.ToLower(mode) {
	case "auto", "":
		return tty, nil
	case "on", "always":
		return true, nil
	case "off", "never":
		return false, nil
	default:
		return false, fmt.Errorf("invalid color mode %q (must be auto, on or off)", mode)
	}
}

// driverOptions builds check options; the cache is opened only when enabled.
func (s *settings) driverOptions(withCache bool) (driver.Options, error) {
	opts := driver.Options{
		MaxDiagnostics:   s.cfg.Check.MaxDiagnostics,
		WholeFunctionSSA: s.cfg.Check.WholeFunctionSSA,
		Jobs:             s.cfg.Check.Jobs,
	}
	if withCache && s.cfg.Check.Cache {
		cache, err := driver.OpenDiskCache("lumen")
		if err != nil {
			return opts, fmt.Errorf("failed to open cache: %w", err)
		}
		opts.Cache = cache
	}
	return opts, nil
}

// setupTracing creates the tracer described by s and attaches it to the
// command context. The returned cleanup flushes and closes it.
func setupTracing(cmd *cobra.Command, s *settings) (func(), error) {
	level := s.cfg.TraceLevel()
	if level == trace.LevelOff {
		cmd.SetContext(trace.WithTracer(cmd.Context(), trace.Nop))
		return func() {}, nil
	}

	modeStr, err := cmd.Root().PersistentFlags().GetString("trace-mode")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-mode flag: %w", err)
	}
	mode, err := trace.ParseMode(modeStr)
	if err != nil {
		return nil, fmt.Errorf("invalid trace mode: %w", err)
	}

	tracer, err := trace.New(trace.Config{
		Level:      level,
		Mode:       mode,
		OutputPath: s.cfg.Trace.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}
	cmd.SetContext(trace.WithTracer(cmd.Context(), tracer))

	return func() {
		if err := tracer.Flush(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: flush error: %v\n", err)
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
		}
	}, nil
}
