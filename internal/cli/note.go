package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/notes/internal/config"
	"github.com/roach88/notes/internal/model"
	"github.com/roach88/notes/internal/notes"
	"github.com/roach88/notes/internal/store"
)

// CLI error codes. Refused operations report the note store's own codes
// (NOT_FOUND, PERMISSION_DENIED, ALREADY_SHARED) instead.
const (
	ErrCodeNoPrincipal      = "E_NO_PRINCIPAL"
	ErrCodeInvalidPrincipal = "E_INVALID_PRINCIPAL"
	ErrCodeInvalidID        = "E_INVALID_ID"
	ErrCodeDatabase         = "E_DATABASE"
	ErrCodeStorage          = "E_STORAGE"
)

// argError is a malformed command argument.
type argError struct {
	code string
	msg  string
}

func (e *argError) Error() string { return e.msg }

// opFunc performs one note operation and returns its output payload.
type opFunc func(ctx context.Context, svc *notes.Service, caller model.Principal) (any, error)

// NewListCommand creates the list command.
func NewListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List notes visible to the caller",
		Long: `List every note the caller owns or has been shared, in ascending id order.

Example:
  notes --as alice list`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOp(opts, cmd, func(ctx context.Context, svc *notes.Service, caller model.Principal) (any, error) {
				list, err := svc.ListVisible(ctx, caller)
				if err != nil {
					return nil, err
				}
				return newNoteListView(list), nil
			})
		},
	}
}

// NewGetCommand creates the get command.
func NewGetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one note",
		Long: `Show the note with the given id.

A note the caller may not read is reported exactly like a missing one.

Example:
  notes --as bob get 0`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return reportError(opts.formatter(cmd, ""), err)
			}
			return runOp(opts, cmd, func(ctx context.Context, svc *notes.Service, caller model.Principal) (any, error) {
				n, found, err := svc.GetByID(ctx, caller, id)
				if err != nil {
					return nil, err
				}
				if !found {
					return nil, &notes.Error{Code: notes.ErrCodeNotFound, Message: "Note not found", ID: id, Principal: caller}
				}
				return newNoteView(n), nil
			})
		},
	}
}

// NewOwnedByCommand creates the owned-by command.
func NewOwnedByCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "owned-by <principal>",
		Short: "List notes owned by a principal",
		Long: `List every note owned by the given principal, in ascending id order.

This listing is not filtered by the caller's access.

Example:
  notes --as bob owned-by alice`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			owner := model.Principal(args[0])
			return runOp(opts, cmd, func(ctx context.Context, svc *notes.Service, caller model.Principal) (any, error) {
				list, err := svc.ListByOwner(ctx, caller, owner)
				if err != nil {
					return nil, err
				}
				return newNoteListView(list), nil
			})
		},
	}
}

// NewAddCommand creates the add command.
func NewAddCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <content>",
		Short: "Create a note owned by the caller",
		Long: `Create a note owned by the caller and print its id.

With the default size allocator the new id is the current number of notes,
which can replace an existing note after a delete. Use --allocator monotonic
to never reuse ids.

Example:
  notes --as alice add "buy milk"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			content := args[0]
			return runOp(opts, cmd, func(ctx context.Context, svc *notes.Service, caller model.Principal) (any, error) {
				id, err := svc.AddNote(ctx, caller, content)
				if err != nil {
					return nil, err
				}
				return MessageView{Message: fmt.Sprintf("Note %d added.", id), ID: &id}, nil
			})
		},
	}
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "update <id> <content>",
		Short: "Replace a note's content",
		Long: `Replace the content of a note. Only the owner may update.

Example:
  notes --as alice update 0 "buy oat milk"`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return reportError(opts.formatter(cmd, ""), err)
			}
			content := args[1]
			return runOp(opts, cmd, func(ctx context.Context, svc *notes.Service, caller model.Principal) (any, error) {
				msg, err := svc.UpdateNote(ctx, caller, id, content)
				if err != nil {
					return nil, err
				}
				return MessageView{Message: msg, ID: &id}, nil
			})
		},
	}
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a note",
		Long: `Permanently delete a note. Only the owner may delete.

Example:
  notes --as alice delete 0`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return reportError(opts.formatter(cmd, ""), err)
			}
			return runOp(opts, cmd, func(ctx context.Context, svc *notes.Service, caller model.Principal) (any, error) {
				msg, err := svc.DeleteNote(ctx, caller, id)
				if err != nil {
					return nil, err
				}
				return MessageView{Message: msg, ID: &id}, nil
			})
		},
	}
}

// NewShareCommand creates the share command.
func NewShareCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "share <id> <principal>",
		Short: "Grant a principal read access to a note",
		Long: `Grant read access to a note. Only the owner may share, and sharing
cannot be revoked.

Example:
  notes --as alice share 0 bob`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return reportError(opts.formatter(cmd, ""), err)
			}
			target := model.Principal(args[1])
			return runOp(opts, cmd, func(ctx context.Context, svc *notes.Service, caller model.Principal) (any, error) {
				msg, err := svc.ShareNote(ctx, caller, id, target)
				if err != nil {
					return nil, err
				}
				return MessageView{Message: msg, ID: &id}, nil
			})
		},
	}
}

// NewWhoamiCommand creates the whoami command.
func NewWhoamiCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "whoami",
		Short:         "Print the caller's principal",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOp(opts, cmd, func(ctx context.Context, svc *notes.Service, caller model.Principal) (any, error) {
				p, err := svc.Whoami(caller)
				if err != nil {
					return nil, err
				}
				return PrincipalView{Principal: string(p)}, nil
			})
		},
	}
}

// runOp opens the configured store, runs op on behalf of the configured
// principal and writes the outcome.
func runOp(opts *RootOptions, cmd *cobra.Command, op opFunc) error {
	traceID := opts.traceID()
	f := opts.formatter(cmd, traceID)

	caller := model.Principal(opts.Config.Principal)
	if caller == "" {
		msg := "no principal: pass --as or set " + config.EnvPrincipal
		_ = f.Error(ErrCodeNoPrincipal, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}

	svc, st, err := openService(opts)
	if err != nil {
		_ = f.Error(ErrCodeDatabase, "failed to open database", err.Error())
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			opts.Logger().Error("error closing database", "error", closeErr)
		}
	}()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = notes.WithTrace(ctx, traceID)

	f.VerboseLog("database %s (%s), acting as %s, trace %s", opts.Config.Database, st.Driver(), caller, traceID)

	data, err := op(ctx, svc, caller)
	if err != nil {
		return reportError(f, err)
	}
	return f.Success(data)
}

// openService opens the store described by the resolved configuration and
// wraps it in a note service.
func openService(opts *RootOptions) (*notes.Service, *store.Store, error) {
	st, err := store.OpenWith(store.Options{Driver: opts.Config.Driver, DSN: opts.Config.Database})
	if err != nil {
		return nil, nil, err
	}

	var allocator notes.Allocator = notes.SizeAllocator
	if opts.Config.Allocator == config.AllocatorMonotonic {
		allocator = notes.MonotonicAllocator(st)
	}

	svc := notes.New(st, notes.WithLogger(opts.Logger()), notes.WithAllocator(allocator))
	return svc, st, nil
}

// reportError writes err through f and maps it to an exit code.
func reportError(f *OutputFormatter, err error) error {
	var nerr *notes.Error
	var aerr *argError
	switch {
	case errors.As(err, &nerr):
		_ = f.Error(string(nerr.Code), nerr.Message, map[string]any{"id": nerr.ID})
		return WrapExitError(ExitFailure, "operation refused", err)
	case errors.As(err, &aerr):
		_ = f.Error(aerr.code, aerr.msg, nil)
		return WrapExitError(ExitCommandError, "invalid argument", err)
	case errors.Is(err, notes.ErrInvalidPrincipal):
		_ = f.Error(ErrCodeInvalidPrincipal, "principal must not be empty", nil)
		return WrapExitError(ExitCommandError, "invalid argument", err)
	default:
		_ = f.Error(ErrCodeStorage, "storage failure", err.Error())
		return WrapExitError(ExitCommandError, "storage failure", err)
	}
}

// parseID parses a note id argument.
func parseID(s string) (uint32, error) {
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, &argError{code: ErrCodeInvalidID, msg: fmt.Sprintf("invalid note id %q: must be an integer between 0 and 4294967295", s)}
	}
	return uint32(id), nil
}

func (o *RootOptions) formatter(cmd *cobra.Command, traceID string) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
		TraceID:   traceID,
	}
}
