package id

import (
	"strings"

	"github.com/google/uuid"
)

// Generator hands out opaque identifiers.
type Generator interface {
	NewID() string
}

type UUIDGenerator struct{}

func NewUUIDGenerator() UUIDGenerator {
	return UUIDGenerator{}
}

func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}

// Valid reports whether v is a canonical UUID string.
func Valid(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return false
	}
	_, err := uuid.Parse(v)
	return err == nil
}

// Sequence is a deterministic Generator for tests.
type Sequence struct {
	IDs  []string
	next int
}

func (s *Sequence) NewID() string {
	if s.next >= len(s.IDs) {
		return uuid.NewString()
	}
	v := s.IDs[s.next]
	s.next++
	return v
}
