package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/sagaflow/internal/app"
	"github.com/roach88/sagaflow/internal/config"
	"github.com/roach88/sagaflow/internal/trace"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Config   string
	Demo     string
	Label    string
	Ticks    int
	TickRate int
	Parallel int
	Database string
	Sends    []string

	// RunIDGenerator overrides the run ID source (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDGenerator app.IDGenerator
}

// RunSummary is printed when the run ends.
type RunSummary struct {
	RunID   string         `json:"run_id"`
	Demo    string         `json:"demo"`
	Ticks   int64          `json:"ticks"`
	Dropped uint64         `json:"dropped"`
	State   map[string]any `json:"state"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a demo saga on the tick loop",
		Long: `Install a demo saga, send the given events and tick the app.

Settings come from the CUE config file, if any, then from flags. Each
--send is "event:{yaml args}" and is written before the first tick.

Example:
  sagaflow run --demo combat \
    --send 'spawn:{id: 1, weapon: 10, health: 20}' \
    --send 'spawn:{id: 2, armor: 3, health: 20}' --ticks 1
  sagaflow run --config sagaflow.cue --db ./trace.db --ticks 0`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "path to CUE config file")
	cmd.Flags().StringVar(&opts.Demo, "demo", "", "demo saga to install (overrides config)")
	cmd.Flags().StringVar(&opts.Label, "label", "Update", "schedule label to install the demo under")
	cmd.Flags().IntVar(&opts.Ticks, "ticks", 0, "ticks to run, 0 until interrupted (overrides config)")
	cmd.Flags().IntVar(&opts.TickRate, "tick-rate", 0, "ticks per second (overrides config)")
	cmd.Flags().IntVar(&opts.Parallel, "parallel", 0, "goroutines per schedule level (overrides config)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite trace journal (overrides config)")
	cmd.Flags().StringArrayVar(&opts.Sends, "send", nil, `event to send before the first tick, as "name:{args}"`)

	return cmd
}

func runApp(opts *RunOptions, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts.Config)
	if err != nil {
		return err
	}
	applyRunFlags(&cfg, opts, cmd)

	logger := newLogger(cfg, opts.Verbose, cmd.ErrOrStderr())
	slog.SetDefault(logger)

	sends, err := parseSends(opts.Sends)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --send", err)
	}

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	var extra []app.Option
	if opts.RunIDGenerator != nil {
		extra = append(extra, app.WithRunIDGenerator(opts.RunIDGenerator))
	}

	s, err := openSession(ctx, cfg, opts.Label, logger, extra...)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := s.Close(); closeErr != nil {
			slog.Error("error closing trace database", "error", closeErr)
		}
	}()

	for _, snd := range sends {
		if err := s.demo.Send(s.app, snd.event, snd.args); err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to send %s", snd.event), err)
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	err = s.app.Run(ctx, cfg.Interval(), cfg.Ticks)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return WrapExitError(ExitFailure, "run failed", err)
	}

	return outputRunSummary(newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr()), RunSummary{
		RunID:   s.app.RunID(),
		Demo:    s.demo.Name(),
		Ticks:   s.app.Tick(),
		Dropped: s.app.World().Dropped(),
		State:   s.demo.State(),
	})
}

// applyRunFlags overrides config values with flags the user set.
func applyRunFlags(cfg *config.Config, opts *RunOptions, cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("demo") {
		cfg.Demo = opts.Demo
	}
	if flags.Changed("ticks") {
		cfg.Ticks = opts.Ticks
	}
	if flags.Changed("tick-rate") {
		cfg.TickRate = opts.TickRate
	}
	if flags.Changed("parallel") {
		cfg.Parallel = opts.Parallel
	}
	if flags.Changed("db") {
		cfg.TraceDB = opts.Database
	}
}

type send struct {
	event string
	args  map[string]any
}

// parseSends splits each "name:{args}" flag value. The args part is YAML,
// so both flow mappings and JSON objects are accepted.
func parseSends(raw []string) ([]send, error) {
	out := make([]send, 0, len(raw))
	for _, r := range raw {
		name, body, _ := strings.Cut(r, ":")
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("%q: missing event name", r)
		}

		var args map[string]any
		if strings.TrimSpace(body) != "" {
			if err := yaml.Unmarshal([]byte(body), &args); err != nil {
				return nil, fmt.Errorf("%q: %w", r, err)
			}
		}
		out = append(out, send{event: name, args: args})
	}
	return out, nil
}

func outputRunSummary(f *OutputFormatter, sum RunSummary) error {
	if f.Format == "json" {
		return f.JSON(CLIResponse{Status: "ok", Data: sum, RunID: sum.RunID})
	}

	state, err := trace.MarshalCanonical(sum.State)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	fmt.Fprintf(f.Writer, "Run %s finished after %d tick(s)\n", sum.RunID, sum.Ticks)
	fmt.Fprintf(f.Writer, "demo: %s\n", sum.Demo)
	if sum.Dropped > 0 {
		fmt.Fprintf(f.Writer, "dropped: %d\n", sum.Dropped)
	}
	fmt.Fprintf(f.Writer, "state: %s\n", state)
	return nil
}
