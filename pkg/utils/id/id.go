// Package id provides the identifier generators used by nilm-chat.
//
//   - UUID v4 for chat session ids
//   - ULID for request ids (sortable by creation time)
package id

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// Generator defines the interface for ID generators.
type Generator interface {
	// Generate creates a new unique ID.
	Generate() string
}

// Type represents the type of ID generator.
type Type string

const (
	// TypeUUID represents UUID v4 generator.
	TypeUUID Type = "uuid"

	// TypeULID represents ULID generator.
	TypeULID Type = "ulid"
)

// UUIDGenerator generates random UUID v4 strings.
type UUIDGenerator struct{}

// Generate returns a new UUID v4.
func (UUIDGenerator) Generate() string {
	return uuid.NewString()
}

// ULIDGenerator generates monotonic ULIDs. Safe for concurrent use.
type ULIDGenerator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewULIDGenerator creates a new ULID generator backed by crypto/rand.
func NewULIDGenerator() *ULIDGenerator {
	return &ULIDGenerator{entropy: ulid.Monotonic(rand.Reader, 0)}
}

// Generate returns a new ULID string.
func (g *ULIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy).String()
}

var defaultULID = NewULIDGenerator()

// New returns a generator for the given type, defaulting to ULID.
func New(t Type) Generator {
	if t == TypeUUID {
		return UUIDGenerator{}
	}
	return NewULIDGenerator()
}

// NewUUID returns a new UUID v4 string.
func NewUUID() string {
	return uuid.NewString()
}

// NewULID returns a new ULID string from the shared generator.
func NewULID() string {
	return defaultULID.Generate()
}

// IsUUID reports whether s parses as a UUID.
func IsUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
