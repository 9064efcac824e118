package harness

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uint32Ptr(v uint32) *uint32 { return &v }

func TestRun_MinimalScenario(t *testing.T) {
	scenario := &Scenario{
		Name:        "minimal",
		Description: "Minimal test scenario",
		Flow: []Step{
			{As: "alice", Op: OpWhoami},
		},
		Assertions: []Assertion{
			{Type: AssertTraceCount, Op: OpWhoami, Count: 1},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.Pass)
	assert.Empty(t, result.Errors)

	require.Len(t, result.Trace, 2)
	assert.Equal(t, EventInvocation, result.Trace[0].Type)
	assert.Equal(t, "trace-0001", result.Trace[0].TraceID)
	assert.Equal(t, int64(1), result.Trace[0].Seq)
	assert.Equal(t, EventCompletion, result.Trace[1].Type)
	assert.Equal(t, CaseSuccess, result.Trace[1].OutputCase)
	assert.Equal(t, map[string]any{"principal": "alice"}, result.Trace[1].Result)
	assert.Equal(t, int64(2), result.Trace[1].Seq)
}

func TestRun_SetupIsTraced(t *testing.T) {
	scenario := &Scenario{
		Name:        "with_setup",
		Description: "Setup steps appear in the trace",
		TracePrefix: "s",
		Setup: []Step{
			{As: "alice", Op: OpAddNote, Args: map[string]any{"content": "a"}},
		},
		Flow: []Step{
			{As: "alice", Op: OpGetByID, Args: map[string]any{"id": 0}},
		},
		Assertions: []Assertion{
			{Type: AssertCount, Count: 1},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	require.Len(t, result.Trace, 4)
	assert.Equal(t, OpAddNote, result.Trace[0].Op)
	assert.Equal(t, "s-0001", result.Trace[0].TraceID)
	assert.Equal(t, map[string]any{"id": uint32(0)}, result.Trace[1].Result)
	assert.Equal(t, "s-0002", result.Trace[2].TraceID)
}

func TestRun_FailedSetupAborts(t *testing.T) {
	scenario := &Scenario{
		Name:        "bad_setup",
		Description: "Setup step that cannot succeed",
		Setup: []Step{
			{As: "alice", Op: OpDeleteNote, Args: map[string]any{"id": 3}},
		},
		Flow:       []Step{{As: "alice", Op: OpWhoami}},
		Assertions: []Assertion{{Type: AssertCount, Count: 0}},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "setup steps must succeed")
}

func TestRun_BadArgumentsAbort(t *testing.T) {
	tests := []struct {
		name string
		step Step
		want string
	}{
		{"missing id", Step{As: "a", Op: OpGetByID}, `missing argument "id"`},
		{"negative id", Step{As: "a", Op: OpDeleteNote, Args: map[string]any{"id": -1}}, "out of range"},
		{"string id", Step{As: "a", Op: OpGetByID, Args: map[string]any{"id": "0"}}, "must be an integer"},
		{"numeric content", Step{As: "a", Op: OpAddNote, Args: map[string]any{"content": 5}}, "must be a string"},
		{"missing principal", Step{As: "a", Op: OpShareNote, Args: map[string]any{"id": 0}}, `missing argument "principal"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scenario := &Scenario{
				Name:        "bad_args",
				Description: "Arguments that cannot be decoded",
				Flow:        []Step{tt.step},
				Assertions:  []Assertion{{Type: AssertCount, Count: 0}},
			}
			_, err := Run(scenario)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRun_ExpectMismatchIsReported(t *testing.T) {
	scenario := &Scenario{
		Name:        "mismatch",
		Description: "Wrong expectations fail the result",
		Setup: []Step{
			{As: "alice", Op: OpAddNote, Args: map[string]any{"content": "a"}},
		},
		Flow: []Step{
			// bob is not the owner
			{As: "bob", Op: OpDeleteNote, Args: map[string]any{"id": 0}},
			{
				As: "alice", Op: OpAddNote, Args: map[string]any{"content": "b"},
				Expect: &ExpectClause{Case: CaseSuccess, Result: map[string]any{"id": 7}},
			},
			{
				As: "alice", Op: OpWhoami,
				Expect: &ExpectClause{Case: CaseSuccess, Result: map[string]any{"missing": "x"}},
			},
		},
		Assertions: []Assertion{{Type: AssertCount, Count: 2}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "expected case Success, got PermissionDenied")
	assert.Contains(t, result.Errors[1], `result field "id": expected 7, got 1`)
	assert.Contains(t, result.Errors[2], `result field "missing" missing`)
}

func TestRun_InvalidPrincipalAborts(t *testing.T) {
	scenario := &Scenario{
		Name:        "empty_principal",
		Description: "Sharing with nobody is not a domain outcome",
		Setup: []Step{
			{As: "alice", Op: OpAddNote, Args: map[string]any{"content": "a"}},
		},
		Flow: []Step{
			{As: "alice", Op: OpShareNote, Args: map[string]any{"id": 0, "principal": ""}},
		},
		Assertions: []Assertion{{Type: AssertCount, Count: 1}},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty principal")
}

func TestRun_Deterministic(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "alice_bob_sharing.yaml"))
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	a, err := Snapshot(scenario.Name, first)
	require.NoError(t, err)
	b, err := Snapshot(scenario.Name, second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestRun_Fixtures(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		name := strings.TrimSuffix(filepath.Base(path), ".yaml")
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}
