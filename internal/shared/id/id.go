// Package id provides centralized ID generation for the backend.
//
// All identifiers are ULIDs: lexicographically sortable, so anomaly and
// training-example logs can be range-scanned by time without a separate
// timestamp index. Type-specific prefixes (anom_, ex_, conn_) keep logs
// readable and prevent cross-domain ID misuse.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// AnomalyID identifies a detected anomaly record.
type AnomalyID string

// ExampleID identifies a training example.
type ExampleID string

// ConnID identifies a live-channel connection.
type ConnID string

const (
	AnomalyPrefix = "anom"
	ExamplePrefix = "ex"
	ConnPrefix    = "conn"
)

// Generator generates ULIDs with optional prefixes.
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the singleton generator instance.
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a ULID generator backed by crypto/rand.
func NewGenerator() *Generator {
	return &Generator{entropy: rand.Reader}
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source,
// useful for deterministic tests.
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{entropy: entropy}
}

// Generate creates a new ULID.
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateWithPrefix creates a prefixed ULID string.
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.Generate().String())
}

// NewAnomalyID generates a new anomaly ID.
func NewAnomalyID() AnomalyID {
	return AnomalyID(Default().GenerateWithPrefix(AnomalyPrefix))
}

// NewExampleID generates a new training example ID.
func NewExampleID() ExampleID {
	return ExampleID(Default().GenerateWithPrefix(ExamplePrefix))
}

// NewConnID generates a new connection ID.
func NewConnID() ConnID {
	return ConnID(Default().GenerateWithPrefix(ConnPrefix))
}

func (id AnomalyID) String() string { return string(id) }
func (id ExampleID) String() string { return string(id) }
func (id ConnID) String() string    { return string(id) }
