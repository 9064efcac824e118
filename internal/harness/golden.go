package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/notes/internal/model"
)

// GoldenSuffix is the file extension of golden traces.
const GoldenSuffix = ".golden"

// Snapshot serializes a scenario trace as canonical JSON:
//
//	{"scenario_name":...,"trace":[...]}
//
// Invocation events carry type, seq, op, as, args (when present) and
// trace_id. Completion events carry type, seq, output_case and result (when
// present). The output has no trailing newline.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	traceList := make([]any, len(result.Trace))
	for i, event := range result.Trace {
		eventMap := map[string]any{
			"type": event.Type,
			"seq":  event.Seq,
		}
		if event.Op != "" {
			eventMap["op"] = event.Op
		}
		if event.As != "" {
			eventMap["as"] = event.As
		}
		if event.Args != nil {
			eventMap["args"] = event.Args
		}
		if event.TraceID != "" {
			eventMap["trace_id"] = event.TraceID
		}
		if event.OutputCase != "" {
			eventMap["output_case"] = event.OutputCase
		}
		if event.Result != nil {
			eventMap["result"] = event.Result
		}
		traceList[i] = eventMap
	}

	return model.MarshalCanonical(map[string]any{
		"scenario_name": scenarioName,
		"trace":         traceList,
	})
}

// RunWithGolden executes a scenario and compares the trace against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails. Test failure (via goldie)
// occurs if the trace doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result's trace against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	traceJSON, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(GoldenSuffix),
	)
	g.Assert(t, scenarioName, traceJSON)

	return nil
}
