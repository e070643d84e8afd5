package auth

import "errors"

// Sentinel outcomes of the renewal protocol. Handlers translate these into
// HTTP statuses; no lower layer produces an HTTP-shaped error.
var (
	// ErrTokenRevoked: the refresh token was already consumed or explicitly
	// revoked. Clients must re-authenticate.
	ErrTokenRevoked = errors.New("auth: token has been revoked")
	// ErrTokenInvalid covers bad signature, expiry, wrong kind and malformed
	// input without distinguishing them.
	ErrTokenInvalid = errors.New("auth: token is invalid or expired")
	// ErrMemberNotFound: the subject embedded in the claims no longer exists.
	ErrMemberNotFound = errors.New("auth: member not found")
	// ErrMemberInactive: the member exists but is flagged inactive.
	ErrMemberInactive = errors.New("auth: member is inactive")
	// ErrInconsistentRecord: the persisted member record violates an
	// invariant the service depends on (missing identifier).
	ErrInconsistentRecord = errors.New("auth: member record is inconsistent")
)
