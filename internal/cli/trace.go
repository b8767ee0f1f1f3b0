package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/sagaflow/internal/trace"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - defaults to the latest run
	Event    string // optional - filter to one event type
	Tick     int64  // optional - filter to one tick
	List     bool   // list runs instead of showing one
}

// TraceResult holds the complete trace output for one run.
type TraceResult struct {
	Run        trace.Run        `json:"run"`
	Ticks      []trace.Tick     `json:"ticks"`
	Deliveries []trace.Delivery `json:"deliveries"`
	Stats      TraceStats       `json:"stats"`
}

// TraceStats holds summary statistics for the run.
type TraceStats struct {
	Ticks      int `json:"ticks"`
	Events     int `json:"events"`
	Deliveries int `json:"deliveries"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show what a recorded run delivered",
		Long: `Read the trace journal written by 'sagaflow run --db'.

Shows every delivery of a run in order, grouped by tick: the schedule
label, event type, receiving handler and payload.

Examples:
  sagaflow trace --db ./trace.db
  sagaflow trace --db ./trace.db --list
  sagaflow trace --db ./trace.db --run <run-id> --event demo.Damage
  sagaflow trace --db ./trace.db --tick 3 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite trace journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run ID to show (default: latest)")
	cmd.Flags().StringVar(&opts.Event, "event", "", "filter to one event type")
	cmd.Flags().Int64Var(&opts.Tick, "tick", 0, "filter to one tick")
	cmd.Flags().BoolVar(&opts.List, "list", false, "list recorded runs")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	if _, err := os.Stat(opts.Database); err != nil {
		return WrapExitError(ExitCommandError, "trace database not found", err)
	}
	st, err := trace.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open trace database", err)
	}
	defer st.Close()

	if opts.List {
		runs, err := st.ReadRuns(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read runs", err)
		}
		return outputRuns(f, runs)
	}

	run, err := selectRun(ctx, st, opts.RunID)
	if errors.Is(err, trace.ErrRunNotFound) {
		if opts.RunID == "" {
			fmt.Fprintln(f.Writer, "No runs recorded.")
			return nil
		}
		return NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", opts.RunID))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	ticks, err := st.ReadTicks(ctx, run.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read ticks", err)
	}
	deliveries, err := st.ReadDeliveries(ctx, run.ID, trace.Filter{EventType: opts.Event, Tick: opts.Tick})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read deliveries", err)
	}

	result := TraceResult{
		Run:        run,
		Ticks:      ticks,
		Deliveries: deliveries,
		Stats: TraceStats{
			Ticks:      len(ticks),
			Deliveries: len(deliveries),
		},
	}
	for _, t := range ticks {
		result.Stats.Events += t.Events
	}

	if opts.Format == "json" {
		return f.JSON(CLIResponse{Status: "ok", Data: result, RunID: run.ID})
	}
	outputTraceText(f.Writer, result)
	return nil
}

func selectRun(ctx context.Context, st *trace.Store, id string) (trace.Run, error) {
	if id == "" {
		return st.LatestRun(ctx)
	}
	return st.ReadRun(ctx, id)
}

func outputRuns(f *OutputFormatter, runs []trace.Run) error {
	if f.Format == "json" {
		return f.Success(runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(f.Writer, "No runs recorded.")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(f.Writer, "%s  %s\n", r.ID, strings.Join(r.Labels, ","))
	}
	return nil
}

func outputTraceText(w io.Writer, r TraceResult) {
	fmt.Fprintf(w, "Run: %s\n", r.Run.ID)
	fmt.Fprintf(w, "Labels: %s\n", strings.Join(r.Run.Labels, ", "))
	fmt.Fprintln(w)

	if len(r.Deliveries) == 0 {
		fmt.Fprintln(w, "No deliveries.")
	} else {
		fmt.Fprintln(w, "Timeline:")
		var tick int64 = -1
		for _, d := range r.Deliveries {
			if d.Tick != tick {
				tick = d.Tick
				fmt.Fprintf(w, "  tick %d\n", tick)
			}
			fmt.Fprintf(w, "    [%d] %s %s -> %s %s\n", d.Seq, d.Label, d.EventType, d.Handler, d.Payload)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Stats:")
	fmt.Fprintf(w, "  Ticks: %d\n", r.Stats.Ticks)
	fmt.Fprintf(w, "  Events: %d\n", r.Stats.Events)
	fmt.Fprintf(w, "  Deliveries: %d\n", r.Stats.Deliveries)
}
