package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/sagaflow/internal/config"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool           `json:"valid"`
	Config *config.Config `json:"config,omitempty"`
	Errors []ConfigError  `json:"errors,omitempty"`
}

// ConfigError is one positioned configuration problem.
type ConfigError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <config.cue>",
		Short: "Validate a config file against the schema",
		Long: `Check a CUE config file against the embedded schema without
running anything. Fields left out take their defaults, which are shown
with --verbose.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // We handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	cfg, err := config.Load(path)
	if err != nil {
		var le *config.LoadError
		if !errors.As(err, &le) {
			return WrapExitError(ExitCommandError, "failed to load config", err)
		}
		if le.Code == config.ErrCodeNotFound {
			_ = f.Error(le.Code, le.Message, nil)
			return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", le.Code, le.Message))
		}
		return outputValidationErrors(f, []ConfigError{toConfigError(le)})
	}

	f.VerboseLog("Effective config: %+v", cfg)

	if f.Format == "json" {
		return f.Success(ValidationResult{Valid: true, Config: &cfg})
	}
	fmt.Fprintln(f.Writer, "✓ Config valid")
	return nil
}

func toConfigError(le *config.LoadError) ConfigError {
	ce := ConfigError{Code: le.Code, Message: le.Message}
	if le.Pos.IsValid() {
		ce.Line = le.Pos.Line()
		ce.Column = le.Pos.Column()
	}
	return ce
}

// outputValidationErrors outputs validation errors. Invalid configs exit
// with ExitFailure.
func outputValidationErrors(f *OutputFormatter, errs []ConfigError) error {
	if f.Format == "json" {
		if err := f.JSON(CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: errs},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(f.Writer, "✗ Validation failed")
	fmt.Fprintln(f.Writer)
	for _, e := range errs {
		if e.Line > 0 {
			fmt.Fprintf(f.Writer, "line %d\n", e.Line)
		}
		fmt.Fprintf(f.Writer, "  %s: %s\n\n", e.Code, e.Message)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
