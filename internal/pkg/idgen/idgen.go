package idgen

import "github.com/google/uuid"

// Generator produces identifiers for new rows.
type Generator interface {
	NewID() (string, error)
}

// UUIDGenerator issues random (v4) UUIDs.
type UUIDGenerator struct{}

// NewID returns a fresh UUID. uuid.NewRandom only fails when the system
// randomness source does.
func (UUIDGenerator) NewID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Func adapts a plain function to Generator.
type Func func() (string, error)

// NewID calls f.
func (f Func) NewID() (string, error) { return f() }
