package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/notes/internal/model"
	"github.com/roach88/notes/internal/notes"
	"github.com/roach88/notes/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for i, event := range e.Trace {
			if event.Type == EventInvocation {
				fmt.Fprintf(&buf, "  [%d] %s as %s %v\n", i+1, event.Op, event.As, event.Args)
			}
		}
	}

	return buf.String()
}

// AssertionContext provides what state assertions need to read the final
// state of a scenario.
type AssertionContext struct {
	Ctx     context.Context
	Service *notes.Service
	Store   *store.Store
}

// EvaluateAssertions checks every assertion and returns one message per
// failure. Evaluation continues past failures so a single run reports all
// of them.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluateAssertion(result, a, actx); err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d (%s): %v", i, a.Type, err))
		}
	}
	return errs
}

func evaluateAssertion(result *Result, a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertVisibleTo:
		return assertVisibleTo(actx, a, result.Trace)
	case AssertOwnedBy:
		return assertOwnedBy(actx, a, result.Trace)
	case AssertNote:
		return assertNote(actx, a)
	case AssertAbsent:
		return assertAbsent(actx, a)
	case AssertCount:
		return assertCount(actx, a)
	case AssertTraceCount:
		return assertTraceCount(result, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertVisibleTo checks that list_visible for the principal returns exactly
// the expected ids, in order.
func assertVisibleTo(actx *AssertionContext, a Assertion, trace []TraceEvent) error {
	list, err := actx.Service.ListVisible(actx.Ctx, model.Principal(a.Principal))
	if err != nil {
		return fmt.Errorf("list visible: %w", err)
	}
	if got := noteIDs(list); !slices.Equal(got, a.IDs) {
		return &AssertionError{
			Type:     AssertVisibleTo,
			Expected: fmt.Sprintf("%s sees %v", a.Principal, a.IDs),
			Actual:   fmt.Sprintf("%s sees %v", a.Principal, got),
			Trace:    trace,
		}
	}
	return nil
}

// assertOwnedBy checks list_by_owner. The principal is also the caller.
func assertOwnedBy(actx *AssertionContext, a Assertion, trace []TraceEvent) error {
	owner := model.Principal(a.Principal)
	list, err := actx.Service.ListByOwner(actx.Ctx, owner, owner)
	if err != nil {
		return fmt.Errorf("list by owner: %w", err)
	}
	if got := noteIDs(list); !slices.Equal(got, a.IDs) {
		return &AssertionError{
			Type:     AssertOwnedBy,
			Expected: fmt.Sprintf("%s owns %v", a.Principal, a.IDs),
			Actual:   fmt.Sprintf("%s owns %v", a.Principal, got),
			Trace:    trace,
		}
	}
	return nil
}

// assertNote reads the stored record directly, bypassing access checks, and
// compares the expected fields (subset semantics).
func assertNote(actx *AssertionContext, a Assertion) error {
	id := *a.ID
	data, found, err := actx.Store.Get(actx.Ctx, id)
	if err != nil {
		return fmt.Errorf("read note %d: %w", id, err)
	}
	if !found {
		return &AssertionError{
			Type:     AssertNote,
			Expected: fmt.Sprintf("note %d to exist", id),
			Actual:   "no note stored",
		}
	}

	n, err := model.DecodeNote(data)
	if err != nil {
		return fmt.Errorf("decode note %d: %w", id, err)
	}

	if msg := subsetMismatch(a.Expect, noteMap(n)); msg != "" {
		return &AssertionError{
			Type:     AssertNote,
			Expected: fmt.Sprintf("note %d matches %s", id, canonicalString(a.Expect)),
			Actual:   msg,
		}
	}
	return nil
}

func assertAbsent(actx *AssertionContext, a Assertion) error {
	id := *a.ID
	_, found, err := actx.Store.Get(actx.Ctx, id)
	if err != nil {
		return fmt.Errorf("read note %d: %w", id, err)
	}
	if found {
		return &AssertionError{
			Type:     AssertAbsent,
			Expected: fmt.Sprintf("no note stored under %d", id),
			Actual:   "note exists",
		}
	}
	return nil
}

func assertCount(actx *AssertionContext, a Assertion) error {
	n, err := actx.Store.Len(actx.Ctx)
	if err != nil {
		return fmt.Errorf("count notes: %w", err)
	}
	if n != a.Count {
		return &AssertionError{
			Type:     AssertCount,
			Expected: fmt.Sprintf("%d notes", a.Count),
			Actual:   fmt.Sprintf("%d notes", n),
		}
	}
	return nil
}

// assertTraceCount checks if the op was invoked exactly the specified number
// of times.
func assertTraceCount(result *Result, a Assertion) error {
	if count := result.Invocations(a.Op); count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d invocations of %s", a.Count, a.Op),
			Actual:   fmt.Sprintf("%d invocations", count),
			Trace:    result.Trace,
		}
	}
	return nil
}
