package entities

import (
	"time"
)

// SubscriptionTier is the entitlement class of an identity.
type SubscriptionTier string

const (
	TierFree      SubscriptionTier = "FREE"
	TierPaid      SubscriptionTier = "PAID"
	TierOneTime   SubscriptionTier = "ONE_TIME"
	TierTemporary SubscriptionTier = "TEMPORARY"
)

// Entitled reports whether the tier grants unredacted assessments and
// persisted history.
func (t SubscriptionTier) Entitled() bool {
	return t == TierPaid || t == TierOneTime
}

// User represents a registered user in the system
type User struct {
	ID                    string           `json:"id" db:"id"`
	Email                 string           `json:"email" db:"email"`
	Tier                  SubscriptionTier `json:"tier" db:"tier"`
	SubscriptionExpiresAt *time.Time       `json:"subscription_expires_at" db:"subscription_expires_at"`
	CreatedAt             time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt             time.Time        `json:"updated_at" db:"updated_at"`
}

// Identity is the per-request caller: a registered user or a temporary
// session known only by an opaque token.
type Identity struct {
	UserID    string           `json:"user_id"`
	SessionID string           `json:"session_id"`
	Tier      SubscriptionTier `json:"tier"`
}

// IsTemporary reports whether the identity is an unauthenticated session.
func (i Identity) IsTemporary() bool {
	return i.UserID == ""
}

// Key returns the stable per-identity key used for session state such as the
// upgrade lock. Registered users are keyed by user id so the lock follows
// them across sessions.
func (i Identity) Key() string {
	if i.UserID != "" {
		return "user:" + i.UserID
	}
	return "session:" + i.SessionID
}
