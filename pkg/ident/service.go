// ABOUTME: Identifier minting service for newly discovered business objects
// ABOUTME: Provides UUID-backed and deterministic sequence implementations

package ident

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
)

// Service mints globally-unique identifiers and resolves external URLs
// back to previously minted identifiers.
type Service interface {
	// Create mints a new identifier. The type hint names the business
	// object kind the identifier is for.
	Create(typeHint string) (string, error)

	// ResolveExternal maps an external URL to a known identifier
	ResolveExternal(url string) (string, bool)
}

// UUIDService mints random UUID identifiers prefixed with the type hint
type UUIDService struct{}

// NewUUIDService creates a UUID-backed identifier service
func NewUUIDService() *UUIDService {
	return &UUIDService{}
}

// Create mints an identifier of the form "<hint>:<uuid>"
func (s *UUIDService) Create(typeHint string) (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("ident: minting failed: %w", err)
	}
	hint := strings.ToLower(typeHint)
	if hint == "" {
		hint = "object"
	}
	return hint + ":" + id.String(), nil
}

// ResolveExternal always reports absent; UUID identifiers carry no URL form
func (s *UUIDService) ResolveExternal(url string) (string, bool) {
	return "", false
}

// SequenceService mints deterministic identifiers for tests
type SequenceService struct {
	next atomic.Int64
}

// NewSequenceService creates a counter-backed identifier service
func NewSequenceService() *SequenceService {
	return &SequenceService{}
}

// Create mints "<hint>:<n>" with a monotonically increasing n
func (s *SequenceService) Create(typeHint string) (string, error) {
	n := s.next.Add(1)
	hint := strings.ToLower(typeHint)
	if hint == "" {
		hint = "object"
	}
	return fmt.Sprintf("%s:%d", hint, n), nil
}

// ResolveExternal always reports absent
func (s *SequenceService) ResolveExternal(url string) (string, bool) {
	return "", false
}
