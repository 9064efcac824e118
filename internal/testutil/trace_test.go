package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedTraceGenerator_Sequence(t *testing.T) {
	gen := NewFixedTraceGenerator("scn")

	assert.Equal(t, "scn-0001", gen.Generate())
	assert.Equal(t, "scn-0002", gen.Generate())
	assert.Equal(t, "scn-0003", gen.Generate())
}

func TestFixedTraceGenerator_EmptyPrefixDefault(t *testing.T) {
	gen := NewFixedTraceGenerator("")
	assert.Equal(t, "trace-0001", gen.Generate())
}

func TestFixedTraceGenerator_ThreadSafe(t *testing.T) {
	gen := NewFixedTraceGenerator("t")

	var (
		mu   sync.Mutex
		seen = make(map[string]bool)
		wg   sync.WaitGroup
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				id := gen.Generate()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 1000)
}
