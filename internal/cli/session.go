package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/roach88/sagaflow/internal/app"
	"github.com/roach88/sagaflow/internal/config"
	"github.com/roach88/sagaflow/internal/demo"
	"github.com/roach88/sagaflow/internal/trace"
)

// session is an app with one demo installed and, when configured, a trace
// journal attached.
type session struct {
	app   *app.App
	demo  demo.Demo
	store *trace.Store
}

// openSession builds the app described by cfg and installs cfg.Demo under
// label. The caller must Close the session.
func openSession(ctx context.Context, cfg config.Config, label string, logger *slog.Logger, extra ...app.Option) (*session, error) {
	if !slices.Contains(cfg.Labels, label) {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("label %q is not in configured labels %v", label, cfg.Labels))
	}

	d, err := demo.New(cfg.Demo)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load demo", err)
	}

	opts := []app.Option{
		app.WithLabels(cfg.Labels...),
		app.WithLogger(logger),
	}
	if cfg.Parallel > 0 {
		opts = append(opts, app.WithParallel(cfg.Parallel))
	}

	s := &session{demo: d}
	var journal *trace.Journal
	if cfg.TraceDB != "" {
		st, err := trace.Open(cfg.TraceDB)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to open trace database", err)
		}
		s.store = st
		journal = trace.NewJournal(st)
		opts = append(opts, app.WithObserver(journal), app.WithTickObserver(journal))
	}
	opts = append(opts, extra...)

	s.app = app.New(opts...)
	if err := d.Install(s.app, label); err != nil {
		s.Close()
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("failed to install demo %q", cfg.Demo), err)
	}

	if journal != nil {
		if err := journal.Begin(ctx, s.app.RunID(), s.app.Labels()); err != nil {
			s.Close()
			return nil, WrapExitError(ExitCommandError, "failed to record run", err)
		}
	}
	return s, nil
}

// Close releases the trace store, if any.
func (s *session) Close() error {
	if s.store == nil {
		return nil
	}
	return s.store.Close()
}

// loadConfig reads path, or returns the defaults when path is empty.
func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	return cfg, nil
}

// newLogger builds the process logger at the configured level, or debug
// when verbose.
func newLogger(cfg config.Config, verbose bool, w io.Writer) *slog.Logger {
	level := cfg.SlogLevel()
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
