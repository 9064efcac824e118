package testutil

import (
	"fmt"
	"sync"
)

// FixedTraceGenerator yields predictable trace ids: "<prefix>-0001",
// "<prefix>-0002", ... It satisfies notes.TraceGenerator.
//
// Golden traces embed these ids, so the same scenario always produces
// byte-identical output.
type FixedTraceGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewFixedTraceGenerator creates a generator. An empty prefix becomes "trace".
func NewFixedTraceGenerator(prefix string) *FixedTraceGenerator {
	if prefix == "" {
		prefix = "trace"
	}
	return &FixedTraceGenerator{prefix: prefix}
}

// Generate returns the next trace id.
func (g *FixedTraceGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}
