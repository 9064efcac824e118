package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"math"
	"slices"

	"github.com/roach88/notes/internal/model"
	"github.com/roach88/notes/internal/notes"
	"github.com/roach88/notes/internal/store"
	"github.com/roach88/notes/internal/testutil"
)

// Harness is the test execution engine.
// It runs scenarios with a deterministic clock and fixed trace ids.
type Harness struct {
	store  *store.Store
	svc    *notes.Service
	clock  *notes.SeqClock
	traces *testutil.FixedTraceGenerator
	logger *slog.Logger
}

// outcome is what a single step produced.
type outcome struct {
	Case   string
	Result map[string]any
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Create fresh in-memory store and service
// 2. Execute setup steps (each must succeed)
// 3. Execute flow steps with expect validation
// 4. Evaluate assertions against the trace and final state
//
// A returned error means the scenario could not be executed at all (bad
// arguments, failed setup, store integrity failure). Expectation and
// assertion mismatches are reported through Result.
func Run(scenario *Scenario) (*Result, error) {
	st, err := testutil.OpenMemoryStore()
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	var allocator notes.Allocator = notes.SizeAllocator
	if scenario.Allocator == "monotonic" {
		allocator = notes.MonotonicAllocator(st)
	}

	// Suppress logs in scenario runs
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	h := &Harness{
		store:  st,
		svc:    notes.New(st, notes.WithLogger(logger), notes.WithAllocator(allocator)),
		clock:  notes.NewClock(),
		traces: testutil.NewFixedTraceGenerator(scenario.TracePrefix),
		logger: logger,
	}

	ctx := context.Background()
	result := NewResult()

	for i, step := range scenario.Setup {
		out, err := h.execute(ctx, step, result)
		if err != nil {
			return nil, fmt.Errorf("setup step %d: %w", i, err)
		}
		if out.Case != CaseSuccess {
			return nil, fmt.Errorf("setup step %d (%s as %s): got %s, setup steps must succeed", i, step.Op, step.As, out.Case)
		}
	}

	for i, step := range scenario.Flow {
		out, err := h.execute(ctx, step, result)
		if err != nil {
			return nil, fmt.Errorf("flow step %d: %w", i, err)
		}
		if msg := checkExpect(step, out); msg != "" {
			result.AddError(fmt.Sprintf("flow step %d (%s as %s): %s", i, step.Op, step.As, msg))
		}
	}

	actx := &AssertionContext{
		Ctx:     ctx,
		Service: h.svc,
		Store:   st,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

// execute runs one step under a fresh trace id and records its invocation
// and completion.
func (h *Harness) execute(ctx context.Context, step Step, result *Result) (outcome, error) {
	traceID := h.traces.Generate()
	ctx = notes.WithTrace(ctx, traceID)

	// One clock tick per trace event
	result.AddInvocationTrace(step.Op, step.As, step.Args, traceID, h.clock.Next())

	out, err := h.dispatch(ctx, step)
	if err != nil {
		return outcome{}, fmt.Errorf("%s as %s: %w", step.Op, step.As, err)
	}

	result.AddCompletionTrace(out.Case, out.Result, h.clock.Next())

	h.logger.Info("step completed",
		"op", step.Op,
		"as", step.As,
		"trace_id", traceID,
		"output_case", out.Case,
	)
	return out, nil
}

// dispatch calls the service operation named by step.Op.
func (h *Harness) dispatch(ctx context.Context, step Step) (outcome, error) {
	caller := model.Principal(step.As)

	switch step.Op {
	case OpListVisible:
		list, err := h.svc.ListVisible(ctx, caller)
		if err != nil {
			return outcome{}, err
		}
		return success(map[string]any{"notes": noteList(list)}), nil

	case OpGetByID:
		id, err := argID(step.Args)
		if err != nil {
			return outcome{}, err
		}
		n, found, err := h.svc.GetByID(ctx, caller, id)
		if err != nil {
			return outcome{}, err
		}
		if !found {
			return outcome{Case: CaseNotFound}, nil
		}
		return success(map[string]any{"note": noteMap(n)}), nil

	case OpListByOwner:
		owner, err := argString(step.Args, "owner")
		if err != nil {
			return outcome{}, err
		}
		list, err := h.svc.ListByOwner(ctx, caller, model.Principal(owner))
		if err != nil {
			return outcome{}, err
		}
		return success(map[string]any{"notes": noteList(list)}), nil

	case OpAddNote:
		content, err := argString(step.Args, "content")
		if err != nil {
			return outcome{}, err
		}
		id, err := h.svc.AddNote(ctx, caller, content)
		if err != nil {
			return outcome{}, err
		}
		return success(map[string]any{"id": id}), nil

	case OpUpdateNote:
		id, err := argID(step.Args)
		if err != nil {
			return outcome{}, err
		}
		content, err := argString(step.Args, "content")
		if err != nil {
			return outcome{}, err
		}
		return fromMessage(h.svc.UpdateNote(ctx, caller, id, content))

	case OpDeleteNote:
		id, err := argID(step.Args)
		if err != nil {
			return outcome{}, err
		}
		return fromMessage(h.svc.DeleteNote(ctx, caller, id))

	case OpShareNote:
		id, err := argID(step.Args)
		if err != nil {
			return outcome{}, err
		}
		target, err := argString(step.Args, "principal")
		if err != nil {
			return outcome{}, err
		}
		return fromMessage(h.svc.ShareNote(ctx, caller, id, model.Principal(target)))

	case OpWhoami:
		p, err := h.svc.Whoami(caller)
		if err != nil {
			return outcome{}, err
		}
		return success(map[string]any{"principal": string(p)}), nil

	default:
		return outcome{}, fmt.Errorf("unknown op %q", step.Op)
	}
}

func success(result map[string]any) outcome {
	return outcome{Case: CaseSuccess, Result: result}
}

// fromMessage maps a mutation's (message, error) pair to an outcome.
// Domain failures become output cases; anything else aborts the run.
func fromMessage(msg string, err error) (outcome, error) {
	if err == nil {
		return success(map[string]any{"message": msg}), nil
	}

	var nerr *notes.Error
	if !errors.As(err, &nerr) {
		return outcome{}, err
	}
	return outcome{
		Case:   caseFor(nerr.Code),
		Result: map[string]any{"message": nerr.Message},
	}, nil
}

func caseFor(code notes.ErrorCode) string {
	switch code {
	case notes.ErrCodeNotFound:
		return CaseNotFound
	case notes.ErrCodePermissionDenied:
		return CasePermissionDenied
	case notes.ErrCodeAlreadyShared:
		return CaseAlreadyShared
	default:
		return string(code)
	}
}

// noteMap converts a note to its trace representation.
func noteMap(n model.Note) map[string]any {
	shared := make([]any, len(n.SharedWith))
	for i, p := range n.SharedWith {
		shared[i] = string(p)
	}
	return map[string]any{
		"id":          n.ID,
		"content":     n.Content,
		"owner":       string(n.Owner),
		"shared_with": shared,
	}
}

func noteList(list []model.Note) []any {
	out := make([]any, len(list))
	for i, n := range list {
		out[i] = noteMap(n)
	}
	return out
}

func noteIDs(list []model.Note) []uint32 {
	ids := make([]uint32, len(list))
	for i, n := range list {
		ids[i] = n.ID
	}
	return ids
}

// argID reads the "id" argument. YAML integers arrive as int, or as uint64
// when they overflow int64.
func argID(args map[string]any) (uint32, error) {
	v, ok := args["id"]
	if !ok {
		return 0, fmt.Errorf("missing argument %q", "id")
	}
	switch n := v.(type) {
	case int:
		if n < 0 || int64(n) > math.MaxUint32 {
			return 0, fmt.Errorf("argument %q out of range: %d", "id", n)
		}
		return uint32(n), nil
	case int64:
		if n < 0 || n > math.MaxUint32 {
			return 0, fmt.Errorf("argument %q out of range: %d", "id", n)
		}
		return uint32(n), nil
	case uint64:
		if n > math.MaxUint32 {
			return 0, fmt.Errorf("argument %q out of range: %d", "id", n)
		}
		return uint32(n), nil
	default:
		return 0, fmt.Errorf("argument %q must be an integer, got %T", "id", v)
	}
}

func argString(args map[string]any, name string) (string, error) {
	v, ok := args[name]
	if !ok {
		return "", fmt.Errorf("missing argument %q", name)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("argument %q must be a string, got %T", name, v)
	}
	return s, nil
}

// checkExpect compares an outcome with the step's expect clause and returns
// a description of the first mismatch, or "" when it matches.
// A step without an expect clause must succeed.
func checkExpect(step Step, out outcome) string {
	want := CaseSuccess
	if step.Expect != nil {
		want = step.Expect.Case
	}
	if out.Case != want {
		return fmt.Sprintf("expected case %s, got %s", want, out.Case)
	}
	if step.Expect == nil {
		return ""
	}
	return subsetMismatch(step.Expect.Result, out.Result)
}

// subsetMismatch checks that every field of expected is present in actual
// with an equal value. Values are compared through their canonical JSON so
// YAML ints match uint32 ids.
func subsetMismatch(expected, actual map[string]any) string {
	for _, key := range slices.Sorted(maps.Keys(expected)) {
		got, ok := actual[key]
		if !ok {
			return fmt.Sprintf("result field %q missing", key)
		}
		want := canonicalString(expected[key])
		have := canonicalString(got)
		if want != have {
			return fmt.Sprintf("result field %q: expected %s, got %s", key, want, have)
		}
	}
	return ""
}

func canonicalString(v any) string {
	data, err := model.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
