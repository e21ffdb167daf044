// Package testutil holds deterministic helpers shared by tests and the
// scenario harness.
package testutil

import "github.com/JeedaveyFCRA/vioverse-pro/internal/engine"

// DefaultRunID is used when a scenario does not set run_id.
const DefaultRunID = "test-run-default"

// FixedRunIDGenerator returns the same run id on every call, so a scenario
// can be run any number of times and still produce byte-identical output.
//
// Unlike engine.FixedGenerator, which hands out ids in sequence and panics
// when they run out, this generator never runs out.
//
// Thread-safety: stateless and safe for concurrent use.
type FixedRunIDGenerator struct {
	id string
}

var _ engine.RunIDGenerator = FixedRunIDGenerator{}

// FixedRunID returns a generator for id, or DefaultRunID when id is empty.
func FixedRunID(id string) FixedRunIDGenerator {
	if id == "" {
		id = DefaultRunID
	}
	return FixedRunIDGenerator{id: id}
}

// Generate returns the fixed run id.
func (g FixedRunIDGenerator) Generate() string {
	return g.id
}
