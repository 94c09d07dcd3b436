// Package idgen generates message identifiers.
package idgen

import (
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Generator produces unique message identifiers.
type Generator interface {
	New(at time.Time) string
}

// ULIDGenerator generates ULIDs with monotonic entropy, so identifiers
// created within the same millisecond are still distinct and ordered.
type ULIDGenerator struct {
	mu      sync.Mutex
	entropy io.Reader
}

// NewULIDGenerator creates a ULIDGenerator seeded from crypto/rand.
func NewULIDGenerator() *ULIDGenerator {
	return &ULIDGenerator{entropy: ulid.Monotonic(rand.Reader, 0)}
}

// New returns a ULID for the given time.
func (g *ULIDGenerator) New(at time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(at), g.entropy).String()
}
