package harness

import (
	"bytes"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Allocator selects the id allocation policy: "size" (default) or
	// "monotonic".
	Allocator string `yaml:"allocator,omitempty"`

	// TracePrefix seeds the fixed trace ids. Empty means "trace".
	TracePrefix string `yaml:"trace_prefix,omitempty"`

	// Setup steps establish initial state and must all succeed.
	Setup []Step `yaml:"setup,omitempty"`

	// Flow is the main sequence of operations under test.
	Flow []Step `yaml:"flow"`

	// Assertions validate the final trace and state.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one operation performed on behalf of a principal.
type Step struct {
	// As is the calling principal.
	As string `yaml:"as"`

	// Op is the operation name (see the Op constants).
	Op string `yaml:"op"`

	// Args holds the operation parameters. Omit for operations without any.
	Args map[string]any `yaml:"args,omitempty"`

	// Expect specifies the expected outcome.
	// If nil, the step must succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected outcome of a step.
type ExpectClause struct {
	// Case is the expected outcome case (see the Case constants).
	Case string `yaml:"case"`

	// Result is a subset match against the outcome's result fields.
	Result map[string]any `yaml:"result,omitempty"`
}

// Assertion validates trace or final state.
type Assertion struct {
	// Type is one of the Assert constants.
	Type string `yaml:"type"`

	// Principal is used by visible_to and owned_by.
	Principal string `yaml:"principal,omitempty"`

	// IDs is the exact expected id list, in ascending order, for visible_to
	// and owned_by.
	IDs []uint32 `yaml:"ids,omitempty"`

	// ID is used by note and absent.
	ID *uint32 `yaml:"id,omitempty"`

	// Expect holds expected note fields for note (subset match).
	Expect map[string]any `yaml:"expect,omitempty"`

	// Op is used by trace_count.
	Op string `yaml:"op,omitempty"`

	// Count is used by count and trace_count.
	Count int `yaml:"count,omitempty"`
}

// Operation names.
const (
	OpListVisible = "list_visible"
	OpGetByID     = "get_by_id"
	OpListByOwner = "list_by_owner"
	OpAddNote     = "add_note"
	OpUpdateNote  = "update_note"
	OpDeleteNote  = "delete_note"
	OpShareNote   = "share_note"
	OpWhoami      = "whoami"
)

var knownOps = []string{
	OpListVisible, OpGetByID, OpListByOwner, OpAddNote,
	OpUpdateNote, OpDeleteNote, OpShareNote, OpWhoami,
}

// Outcome cases.
const (
	CaseSuccess          = "Success"
	CaseNotFound         = "NotFound"
	CasePermissionDenied = "PermissionDenied"
	CaseAlreadyShared    = "AlreadyShared"
)

var knownCases = []string{CaseSuccess, CaseNotFound, CasePermissionDenied, CaseAlreadyShared}

// Assertion type constants.
const (
	AssertVisibleTo  = "visible_to"
	AssertOwnedBy    = "owned_by"
	AssertNote       = "note"
	AssertAbsent     = "absent"
	AssertCount      = "count"
	AssertTraceCount = "trace_count"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field checking.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch s.Allocator {
	case "", "size", "monotonic":
	default:
		return fmt.Errorf("unknown allocator %q", s.Allocator)
	}

	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Setup {
		if err := validateStep(fmt.Sprintf("setup[%d]", i), step); err != nil {
			return err
		}
		if step.Expect != nil {
			return fmt.Errorf("setup[%d]: expect is not allowed in setup", i)
		}
	}

	for i, step := range s.Flow {
		if err := validateStep(fmt.Sprintf("flow[%d]", i), step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(where string, step Step) error {
	if step.As == "" {
		return fmt.Errorf("%s: as is required", where)
	}
	if step.Op == "" {
		return fmt.Errorf("%s: op is required", where)
	}
	if !slices.Contains(knownOps, step.Op) {
		return fmt.Errorf("%s: unknown op %q", where, step.Op)
	}
	if step.Expect != nil && !slices.Contains(knownCases, step.Expect.Case) {
		return fmt.Errorf("%s.expect: unknown case %q", where, step.Expect.Case)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertVisibleTo, AssertOwnedBy:
		if a.Principal == "" {
			return fmt.Errorf("assertions[%d]: principal is required for %s", index, a.Type)
		}
		if a.IDs == nil {
			return fmt.Errorf("assertions[%d]: ids is required for %s (use [] for none)", index, a.Type)
		}
	case AssertNote:
		if a.ID == nil {
			return fmt.Errorf("assertions[%d]: id is required for note", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for note", index)
		}
	case AssertAbsent:
		if a.ID == nil {
			return fmt.Errorf("assertions[%d]: id is required for absent", index)
		}
	case AssertCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertTraceCount:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
