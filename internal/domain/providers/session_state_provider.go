package providers

import (
	"context"
)

// SessionStateProvider stores per-identity conversation state that must
// survive between turns, currently the upgrade lock set after a
// high-confidence assessment for a non-entitled identity.
type SessionStateProvider interface {
	// SetUpgradeLock marks the identity as locked. Must be atomic per
	// identity so concurrent turns cannot both slip past the gate.
	SetUpgradeLock(ctx context.Context, identityKey string) error

	// IsUpgradeLocked reports whether the identity is locked.
	IsUpgradeLocked(ctx context.Context, identityKey string) (bool, error)

	// ClearUpgradeLock removes the lock, e.g. after an upgrade completes.
	ClearUpgradeLock(ctx context.Context, identityKey string) error
}
