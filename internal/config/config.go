// Package config loads sagaflow settings from CUE files validated against
// an embedded schema.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

//go:embed schema.cue
var schemaCUE string

// Config holds runtime settings.
type Config struct {
	TickRate int      `json:"tick_rate"`
	Ticks    int      `json:"ticks"`
	Labels   []string `json:"labels"`
	Parallel int      `json:"parallel"`
	TraceDB  string   `json:"trace_db"`
	LogLevel string   `json:"log_level"`
	Demo     string   `json:"demo"`
}

// Interval returns the time between ticks.
func (c Config) Interval() time.Duration {
	if c.TickRate <= 0 {
		return 0
	}
	return time.Second / time.Duration(c.TickRate)
}

// SlogLevel maps LogLevel to a slog.Level.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Error codes for configuration failures.
const (
	ErrCodeNotFound    = "E101" // Config file not found
	ErrCodeParseFailed = "E102" // CUE syntax error
	ErrCodeInvalid     = "E103" // Schema violation
	ErrCodeDecode      = "E104" // Decoding into Config failed
)

// LoadError is a configuration error, positioned when CUE reports one.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Default returns the schema defaults.
func Default() Config {
	cfg, err := decode(schema(cuecontext.New()))
	if err != nil {
		// The embedded schema is fixed at build time.
		panic(fmt.Sprintf("config: embedded schema defaults: %v", err))
	}
	return cfg
}

// Load reads the CUE file at path and validates it against the schema.
// Fields left out take their schema defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Config{}, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("config file not found: %s", path)}
	}
	if err != nil {
		return Config{}, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("reading config: %v", err)}
	}
	return Parse(path, data)
}

// Parse validates CUE source against the schema. filename is used in error
// positions only.
func Parse(filename string, src []byte) (Config, error) {
	ctx := cuecontext.New()

	user := ctx.CompileBytes(src, cue.Filename(filename))
	if err := user.Err(); err != nil {
		return Config{}, toLoadError(ErrCodeParseFailed, err)
	}

	v := schema(ctx).Unify(user)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return Config{}, toLoadError(ErrCodeInvalid, err)
	}

	cfg, err := decode(v)
	if err != nil {
		return Config{}, toLoadError(ErrCodeDecode, err)
	}
	return cfg, nil
}

func schema(ctx *cue.Context) cue.Value {
	return ctx.CompileString(schemaCUE, cue.Filename("schema.cue")).LookupPath(cue.ParsePath("#Config"))
}

func decode(v cue.Value) (Config, error) {
	var cfg Config
	if err := v.Decode(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func toLoadError(code string, err error) *LoadError {
	le := &LoadError{Code: code, Message: err.Error()}
	for _, e := range cueerrors.Errors(err) {
		if pos := e.Position(); pos.IsValid() {
			le.Pos = pos
			format, args := e.Msg()
			le.Message = fmt.Sprintf(format, args...)
			break
		}
	}
	return le
}
