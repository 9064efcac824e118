package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/notes/internal/config"
	"github.com/roach88/notes/internal/notes"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	Database   string
	Driver     string
	Principal  string
	Allocator  string
	ConfigPath string

	// Config is the resolved configuration, filled in before any subcommand
	// runs.
	Config config.Config

	// Env looks up environment variables. Nil means os.LookupEnv.
	Env func(string) (string, bool)

	// Traces generates response trace ids. Nil means UUIDv7.
	Traces notes.TraceGenerator

	logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the notes CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notes",
		Short: "Multi-tenant note store",
		Long: `A note store shared by many principals.

Every note has one owner who alone may update, delete or share it. A note is
readable by its owner and by the principals it has been shared with.

Settings come from built-in defaults, then the --config file, then NOTES_*
environment variables, then explicitly set flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.resolve(cmd)
		},
	}

	// Global flags
	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.StringVar(&opts.Database, "db", "", "database path or connection URL (default notes.db)")
	flags.StringVar(&opts.Driver, "driver", "", "database driver (sqlite3|sqlite|pgx)")
	flags.StringVar(&opts.Principal, "as", "", "principal to act as")
	flags.StringVar(&opts.Allocator, "allocator", "", "id allocation policy (size|monotonic)")
	flags.StringVar(&opts.ConfigPath, "config", "", "path to a CUE configuration file")

	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewOwnedByCommand(opts))
	cmd.AddCommand(NewAddCommand(opts))
	cmd.AddCommand(NewUpdateCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewShareCommand(opts))
	cmd.AddCommand(NewWhoamiCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// resolve layers config file, environment and explicitly set flags, then
// installs the logger.
func (o *RootOptions) resolve(cmd *cobra.Command) error {
	if !isValidFormat(o.Format) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", o.Format, ValidFormats))
	}

	env := o.Env
	if env == nil {
		env = os.LookupEnv
	}

	cfg, err := config.Resolve(o.ConfigPath, env)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	flags := cmd.Flags()
	changed := func(name, value string) string {
		if flags.Changed(name) {
			return value
		}
		return ""
	}
	cfg = cfg.Merge(config.Config{
		Database:  changed("db", o.Database),
		Driver:    changed("driver", o.Driver),
		Principal: changed("as", o.Principal),
		Allocator: changed("allocator", o.Allocator),
		Format:    changed("format", o.Format),
	})
	if err := cfg.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid flags", err)
	}

	o.Config = cfg
	o.Format = cfg.Format

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	if o.Verbose {
		level = slog.LevelDebug
	}
	o.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	return nil
}

// Logger returns the logger installed by resolve, or a discarding one when
// a subcommand runs without its root.
func (o *RootOptions) Logger() *slog.Logger {
	if o.logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o.logger
}

func (o *RootOptions) traceID() string {
	if o.Traces == nil {
		return notes.UUIDv7Generator{}.Generate()
	}
	return o.Traces.Generate()
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
