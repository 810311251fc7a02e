package testutil

import (
	"fmt"
	"sync"
)

// FixedGenerator generates recording IDs from a fixed sequence.
//
// The same scenario with the same FixedGenerator produces byte-identical
// journals and golden traces.
//
// Thread-safety: all methods are safe for concurrent use.
type FixedGenerator struct {
	mu     sync.Mutex
	prefix string
	next   int
}

// NewFixedGenerator creates a generator returning prefix-0001, prefix-0002, ...
//
// If prefix is empty, "test-recording" is used.
func NewFixedGenerator(prefix string) *FixedGenerator {
	if prefix == "" {
		prefix = "test-recording"
	}
	return &FixedGenerator{prefix: prefix}
}

// Generate returns the next ID.
//
// Implements refdriver.IDGenerator.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return fmt.Sprintf("%s-%04d", g.prefix, g.next)
}

// Reset restarts the sequence.
func (g *FixedGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next = 0
}
