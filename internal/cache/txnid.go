package cache

import (
	"sync"

	"github.com/google/uuid"
)

// TxnIDGenerator produces the correlation id threaded through every slog
// line an Editor emits, so a host grepping logs for one transaction's
// activity has a single token to search for.
type TxnIDGenerator interface {
	Generate() string
}

// UUIDGenerator generates time-sortable UUIDv7 transaction ids. Stateless
// and safe for concurrent use.
type UUIDGenerator struct{}

// Generate returns a new UUIDv7 as a hyphenated string.
func (UUIDGenerator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined transaction ids, for deterministic
// tests and golden output.
type FixedGenerator struct {
	mu     sync.Mutex
	tokens []string
	idx    int
}

// NewFixedGenerator returns a generator that yields tokens in order.
func NewFixedGenerator(tokens ...string) *FixedGenerator {
	return &FixedGenerator{tokens: tokens}
}

// Generate returns the next predetermined token. Panics once exhausted —
// a test asking for more transactions than it declared is misconfigured.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.idx >= len(g.tokens) {
		panic("cache: FixedGenerator exhausted")
	}
	tok := g.tokens[g.idx]
	g.idx++
	return tok
}
