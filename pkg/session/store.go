package session

import (
	"context"
	"errors"
	"time"

	"crosslake-dev/strait/pkg/gateway/types"
)

var (
	// ErrNotFound is returned when no session exists for the given id.
	ErrNotFound = errors.New("session: not found")

	// ErrNotOwner is returned when the presented credential's fingerprint
	// does not match the session owner.
	ErrNotOwner = errors.New("session: credential does not match session owner")
)

// Record is one stored conversation.
type Record struct {
	SessionID        string
	History          []types.ChatMessage
	OwnerFingerprint string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// CheckOwner verifies that fingerprint matches the session owner.
func (r *Record) CheckOwner(fingerprint string) error {
	if r.OwnerFingerprint != fingerprint {
		return ErrNotOwner
	}
	return nil
}

// Store is the durable session storage interface.
//
// Create performs a plain insert with no prior uniqueness check; concurrent
// creation of the same id is a known race. ReplaceHistory overwrites the
// whole history; the owner fingerprint is immutable after creation.
type Store interface {
	Create(ctx context.Context, sessionID string, history []types.ChatMessage, ownerFingerprint string) error
	Load(ctx context.Context, sessionID string) (*Record, error)
	ReplaceHistory(ctx context.Context, sessionID string, history []types.ChatMessage) error
	ListByOwner(ctx context.Context, ownerFingerprint string) ([]string, error)
	Close() error
}
