// Package config resolves notes settings from built-in defaults, an optional
// CUE configuration file and NOTES_* environment variables, in that order of
// increasing precedence. Command-line flags are applied on top by the CLI.
//
// Files are validated against the embedded #Config schema (config.cue), so a
// misspelled field or an unsupported driver is reported with its position.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

//go:embed config.cue
var schemaSource string

// Environment variables consulted by FromEnv.
const (
	EnvDatabase  = "NOTES_DB"
	EnvDriver    = "NOTES_DRIVER"
	EnvPrincipal = "NOTES_PRINCIPAL"
	EnvAllocator = "NOTES_ALLOCATOR"
	EnvLogLevel  = "NOTES_LOG_LEVEL"
	EnvFormat    = "NOTES_FORMAT"
)

// Allocator names.
const (
	AllocatorSize      = "size"
	AllocatorMonotonic = "monotonic"
)

// Config holds resolved settings. Empty fields mean "not set".
type Config struct {
	Database  string `json:"database,omitempty"`
	Driver    string `json:"driver,omitempty"`
	Principal string `json:"principal,omitempty"`
	Allocator string `json:"allocator,omitempty"`
	LogLevel  string `json:"log_level,omitempty"`
	Format    string `json:"format,omitempty"`
}

// Defaults returns the built-in settings. Principal has no default; the
// caller must always identify themselves.
func Defaults() Config {
	return Config{
		Database:  "notes.db",
		Driver:    "sqlite3",
		Allocator: AllocatorSize,
		LogLevel:  "info",
		Format:    "text",
	}
}

// Error codes for LoadError.
const (
	ErrCodeReadFailed    = "E_CONFIG_READ"
	ErrCodeSyntax        = "E_CONFIG_SYNTAX"
	ErrCodeSchema        = "E_CONFIG_SCHEMA"
	ErrCodeDecodeFailed  = "E_CONFIG_DECODE"
	ErrCodeInvalidSource = "E_CONFIG_INVALID"
)

// LoadError reports a configuration problem with its CUE position when one
// is known.
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

// Load reads and validates the CUE file at path.
// Only the fields present in the file are set in the result.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, &LoadError{Code: ErrCodeReadFailed, Message: err.Error()}
	}
	return parse(data, path)
}

func parse(data []byte, filename string) (Config, error) {
	ctx := cuecontext.New()

	value := ctx.CompileBytes(data, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return Config{}, convertCUEError(ErrCodeSyntax, err)
	}

	return validate(ctx, value)
}

// validate unifies value with #Config and decodes the result.
func validate(ctx *cue.Context, value cue.Value) (Config, error) {
	schema := ctx.CompileString(schemaSource, cue.Filename("config.cue"))
	if err := schema.Err(); err != nil {
		return Config{}, fmt.Errorf("compile embedded schema: %w", err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Config")).Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return Config{}, convertCUEError(ErrCodeSchema, err)
	}

	var cfg Config
	if err := unified.Decode(&cfg); err != nil {
		return Config{}, &LoadError{Code: ErrCodeDecodeFailed, Message: err.Error()}
	}
	return cfg, nil
}

// Validate checks c against the same schema used for files. It is used for
// values that arrive through the environment or flags.
func (c Config) Validate() error {
	ctx := cuecontext.New()
	value := ctx.Encode(c)
	if err := value.Err(); err != nil {
		return &LoadError{Code: ErrCodeInvalidSource, Message: err.Error()}
	}
	if _, err := validate(ctx, value); err != nil {
		return err
	}
	return nil
}

// FromEnv collects the NOTES_* variables visible through lookup. Pass
// os.LookupEnv in production.
func FromEnv(lookup func(string) (string, bool)) Config {
	get := func(key string) string {
		v, _ := lookup(key)
		return v
	}
	return Config{
		Database:  get(EnvDatabase),
		Driver:    get(EnvDriver),
		Principal: get(EnvPrincipal),
		Allocator: get(EnvAllocator),
		LogLevel:  get(EnvLogLevel),
		Format:    get(EnvFormat),
	}
}

// Merge returns c with every non-empty field of over applied on top.
func (c Config) Merge(over Config) Config {
	pick := func(base, o string) string {
		if o != "" {
			return o
		}
		return base
	}
	return Config{
		Database:  pick(c.Database, over.Database),
		Driver:    pick(c.Driver, over.Driver),
		Principal: pick(c.Principal, over.Principal),
		Allocator: pick(c.Allocator, over.Allocator),
		LogLevel:  pick(c.LogLevel, over.LogLevel),
		Format:    pick(c.Format, over.Format),
	}
}

// Resolve layers defaults, the optional file at path (skipped when path is
// empty) and the environment, and validates the result.
func Resolve(path string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Defaults()

	if path != "" {
		file, err := Load(path)
		if err != nil {
			return Config{}, err
		}
		cfg = cfg.Merge(file)
	}

	cfg = cfg.Merge(FromEnv(lookup))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// convertCUEError keeps the first CUE error and its position.
func convertCUEError(code string, err error) *LoadError {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &LoadError{Code: code, Message: err.Error()}
	}
	first := errs[0]
	format, args := first.Msg()
	return &LoadError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Pos:     first.Position(),
	}
}
