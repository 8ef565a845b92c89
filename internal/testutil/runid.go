package testutil

import (
	"fmt"
	"sync"
)

// FixedRunIDGenerator generates predictable run IDs in sequence:
// "<prefix>-0001", "<prefix>-0002", ...
//
// This enables golden comparison of ingest_runs rows.
//
// Thread-safety: safe for concurrent use via internal mutex.
type FixedRunIDGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewFixedRunIDGenerator creates a generator. If prefix is empty, "run" is used.
func NewFixedRunIDGenerator(prefix string) *FixedRunIDGenerator {
	if prefix == "" {
		prefix = "run"
	}
	return &FixedRunIDGenerator{prefix: prefix}
}

// Generate returns the next ID.
//
// Implements ingest.RunIDGenerator interface.
func (g *FixedRunIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}
