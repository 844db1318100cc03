package cache

import (
	"log/slog"

	"github.com/normwrite/normcache/internal/nodeid"
	"github.com/normwrite/normcache/internal/value"
)

// DefaultMaxWalkSteps is a step bound for one merge call's walker queue
// (adapted from the teacher's per-flow step quota; not one of the three
// configuration options section 6 names, so it is not exposed on Config).
// The walker does not consult it: a merge's walk is not limited by a
// step count.
const DefaultMaxWalkSteps = 1_000_000

// EntityIdFunc is the one required injected capability (section 4.1): it
// returns the entity id for a mapping value, or ok=false when v is not an
// entity (a plain nested object, a scalar, or Undefined).
type EntityIdFunc func(v value.Value) (id nodeid.NodeId, ok bool)

// Config holds the cache's validated configuration: the three options
// section 6 recognizes (entityIdForNode, freezeSnapshots, strict) plus the
// injected logger section 7 requires for surfacing tolerated violations.
type Config struct {
	EntityIdForNode EntityIdFunc
	FreezeSnapshots bool
	Strict          bool
	Logger          *slog.Logger

	txnGen TxnIDGenerator
}

// Option configures a Config. The zero Config is never valid on its own —
// EntityIdForNode must be supplied to New.
type Option func(*Config)

// WithFreezeSnapshots enables deep-freezing of published snapshot values,
// so that accidental external mutation of a returned node value panics
// instead of silently corrupting cache state shared with other readers.
func WithFreezeSnapshots(enabled bool) Option {
	return func(c *Config) { c.FreezeSnapshots = enabled }
}

// WithStrict makes section 7's "tolerated in non-strict mode" conditions
// (edge-symmetry corruption, identity violations) fail the merge with a
// returned error instead of being logged and tolerated.
func WithStrict(enabled bool) Option {
	return func(c *Config) { c.Strict = enabled }
}

// WithLogger installs the logger warnings and debug traces are written to.
// If never called, Config.Logger is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// WithTxnIDGenerator overrides the transaction id generator. Not one of
// section 6's three recognized options — it exists for deterministic
// tests and golden output (see FixedGenerator), mirroring the teacher's
// FlowTokenGenerator injection point.
func WithTxnIDGenerator(gen TxnIDGenerator) Option {
	return func(c *Config) { c.txnGen = gen }
}

func newConfig(entityIdForNode EntityIdFunc, opts ...Option) (*Config, error) {
	if entityIdForNode == nil {
		return nil, newConfigError("entityIdForNode is required")
	}
	c := &Config{
		EntityIdForNode: entityIdForNode,
		Logger:          slog.Default(),
		txnGen:          UUIDGenerator{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.txnGen == nil {
		c.txnGen = UUIDGenerator{}
	}
	return c, nil
}
