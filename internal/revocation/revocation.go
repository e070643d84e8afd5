package revocation

import (
	"context"
	"time"
)

// Entry records one revoked token. The raw token string is the unique key;
// ExpiresAt is always copied from the token's own expiry window, never chosen
// independently, so an entry lives no longer than the token it shadows.
type Entry struct {
	Token     string    `bson:"_id" json:"token"`
	MemberID  string    `bson:"memberId" json:"memberId"`
	Kind      string    `bson:"kind" json:"kind"`
	ExpiresAt time.Time `bson:"expiresAt" json:"expiresAt"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// Expired reports whether the entry has outlived the token it shadows.
func (e *Entry) Expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

// Ledger is the persistent set of revoked tokens.
//
// Failure semantics are asymmetric on purpose: reads return their error so
// callers can pick fail-open or fail-closed, while a failed write must be
// treated as fatal by callers that rotate tokens, or replay becomes possible.
type Ledger interface {
	// Revoke inserts an entry. Re-inserting an already-revoked token is
	// harmless; lookups are existence checks.
	Revoke(ctx context.Context, e *Entry) error
	// Claim atomically inserts the entry only when the token is not already
	// present. It returns false when some other caller got there first, which
	// is how concurrent renewals of the same refresh token are serialized.
	Claim(ctx context.Context, e *Entry) (bool, error)
	// IsRevoked reports whether the token is in the ledger. A stored entry
	// whose expiry has passed is deleted as a side effect and reported as not
	// revoked: an expired token is no longer a replay risk.
	IsRevoked(ctx context.Context, token string) (bool, error)
	// SweepExpired bulk-deletes entries past their expiry and returns the
	// number removed. Scheduling is the caller's concern.
	SweepExpired(ctx context.Context) (int64, error)
}
