package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/sagaflow/internal/app"
	"github.com/roach88/sagaflow/internal/config"
	"github.com/roach88/sagaflow/internal/event"
	"github.com/roach88/sagaflow/internal/schedule"
)

// GraphOptions holds flags for the graph command.
type GraphOptions struct {
	*RootOptions
	Config string
	Label  string
	Dot    bool
}

// GraphUnit is one dispatch unit in a compiled schedule.
type GraphUnit struct {
	Type     string   `json:"type"`
	Level    int      `json:"level"`
	Handlers []string `json:"handlers"`
}

// GraphSchedule is the compiled plan of one label.
type GraphSchedule struct {
	Label    string                  `json:"label"`
	Units    []GraphUnit             `json:"units"`
	Edges    []schedule.Edge         `json:"edges"`
	Lagged   []schedule.Edge         `json:"lagged"`
	Warnings []schedule.CycleWarning `json:"warnings"`
}

// GraphResult is the output of the graph command.
type GraphResult struct {
	Demo      string          `json:"demo"`
	Schedules []GraphSchedule `json:"schedules"`
}

// NewGraphCommand creates the graph command.
func NewGraphCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GraphOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "graph <demo>",
		Short: "Show the compiled schedules of a demo saga",
		Long: `Install a demo saga and print each schedule's execution plan:
dispatch units in run order with their level and handlers, the ordering
edges, and any edges lagged by one tick to break a cycle.

Examples:
  sagaflow graph combat
  sagaflow graph relay --format json
  sagaflow graph inbox --dot | dot -Tsvg > inbox.svg`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraph(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "path to CUE config file (labels)")
	cmd.Flags().StringVar(&opts.Label, "label", "Update", "schedule label to install the demo under")
	cmd.Flags().BoolVar(&opts.Dot, "dot", false, "print Graphviz DOT instead")

	return cmd
}

func runGraph(opts *GraphOptions, demoName string, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts.Config)
	if err != nil {
		return err
	}
	cfg.Demo = demoName
	cfg.TraceDB = ""

	logger := newLogger(config.Config{LogLevel: "warn"}, opts.Verbose, cmd.ErrOrStderr())
	s, err := openSession(cmd.Context(), cfg, opts.Label, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	result := buildGraph(s.app, demoName)

	w := cmd.OutOrStdout()
	switch {
	case opts.Dot:
		writeDot(w, result)
		return nil
	case opts.Format == "json":
		return newFormatter(opts.RootOptions, w, cmd.ErrOrStderr()).Success(result)
	default:
		writeGraphText(w, result)
		return nil
	}
}

// buildGraph collects every non-empty schedule of a in label order.
func buildGraph(a *app.App, demoName string) GraphResult {
	result := GraphResult{Demo: demoName, Schedules: []GraphSchedule{}}

	for _, label := range a.Labels() {
		plan, ok := a.Plan(label)
		if !ok || len(plan.Order) == 0 {
			continue
		}

		levelOf := make(map[event.Type]int, len(plan.Order))
		for lvl, units := range plan.Levels {
			for _, u := range units {
				levelOf[u.Type] = lvl
			}
		}

		gs := GraphSchedule{
			Label:    label,
			Units:    make([]GraphUnit, 0, len(plan.Order)),
			Edges:    plan.Edges,
			Lagged:   plan.Lagged,
			Warnings: plan.Warnings,
		}
		for _, u := range plan.Order {
			gs.Units = append(gs.Units, GraphUnit{
				Type:     u.Type.String(),
				Level:    levelOf[u.Type],
				Handlers: a.Registry().Handlers(u.Type),
			})
		}
		result.Schedules = append(result.Schedules, gs)
	}
	return result
}

func writeGraphText(w io.Writer, g GraphResult) {
	fmt.Fprintf(w, "demo: %s\n", g.Demo)
	for _, s := range g.Schedules {
		fmt.Fprintf(w, "%s: %d units\n", s.Label, len(s.Units))
		for _, u := range s.Units {
			fmt.Fprintf(w, "  [%d] %s -> %s\n", u.Level, u.Type, strings.Join(u.Handlers, ", "))
		}
		if len(s.Edges) > 0 {
			fmt.Fprintln(w, "  edges:")
			for _, e := range s.Edges {
				fmt.Fprintf(w, "    %s -> %s\n", e.Before, e.After)
			}
		}
		if len(s.Lagged) > 0 {
			fmt.Fprintln(w, "  lagged (one tick):")
			for _, e := range s.Lagged {
				fmt.Fprintf(w, "    %s -> %s\n", e.Before, e.After)
			}
		}
		for _, warn := range s.Warnings {
			fmt.Fprintf(w, "  warning: %s\n", warn.Message)
		}
	}
}

func writeDot(w io.Writer, g GraphResult) {
	fmt.Fprintf(w, "digraph %q {\n", g.Demo)
	fmt.Fprintln(w, "  rankdir=LR;")
	fmt.Fprintln(w, "  node [shape=box];")
	for _, s := range g.Schedules {
		fmt.Fprintf(w, "  subgraph %q {\n", "cluster_"+s.Label)
		fmt.Fprintf(w, "    label=%q;\n", s.Label)
		for _, u := range s.Units {
			fmt.Fprintf(w, "    %q [label=%q];\n", dotID(s.Label, u.Type), u.Type+"\n"+strings.Join(u.Handlers, "\n"))
		}
		fmt.Fprintln(w, "  }")
		for _, e := range s.Edges {
			fmt.Fprintf(w, "  %q -> %q;\n", dotID(s.Label, e.Before.String()), dotID(s.Label, e.After.String()))
		}
		for _, e := range s.Lagged {
			fmt.Fprintf(w, "  %q -> %q [style=dashed];\n", dotID(s.Label, e.Before.String()), dotID(s.Label, e.After.String()))
		}
	}
	fmt.Fprintln(w, "}")
}

func dotID(label, typ string) string {
	return label + "/" + typ
}
