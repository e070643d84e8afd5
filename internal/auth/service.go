package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/chapterhub/chapterhub/internal/models"
	"github.com/chapterhub/chapterhub/internal/revocation"
	"github.com/chapterhub/chapterhub/internal/tokens"
	"github.com/chapterhub/chapterhub/pkg/logger"
	"github.com/chapterhub/chapterhub/pkg/metrics"
)

// MemberLookup is the subject-lookup collaborator: resolve an identifier to
// a member record, nil when absent.
type MemberLookup interface {
	GetByID(ctx context.Context, id string) (*models.Member, error)
}

// Pair is a freshly issued access/refresh token pair.
type Pair struct {
	AccessToken  string
	RefreshToken string
}

// Service owns session issuance and the refresh-token renewal protocol.
// All session state lives in the revocation ledger; the service itself holds
// no mutable state and is safe for concurrent use.
type Service struct {
	codec   *tokens.Codec
	members MemberLookup
	ledger  revocation.Ledger
}

func NewService(codec *tokens.Codec, members MemberLookup, ledger revocation.Ledger) *Service {
	return &Service{codec: codec, members: members, ledger: ledger}
}

// AccessTTL exposes the configured access-token lifetime for response bodies.
func (s *Service) AccessTTL() time.Duration { return s.codec.AccessTTL() }

// IssueSession produces a fresh pair for the member. Runs at login and
// registration; no side effects beyond token construction.
func (s *Service) IssueSession(_ context.Context, m *models.Member) (*Pair, error) {
	access, refresh, err := s.codec.IssuePair(m)
	if err != nil {
		return nil, err
	}
	metrics.TokensIssued.WithLabelValues(tokens.KindAccess).Inc()
	metrics.TokensIssued.WithLabelValues(tokens.KindRefresh).Inc()
	return &Pair{AccessToken: access, RefreshToken: refresh}, nil
}

// Renew consumes a refresh token exactly once and issues a new pair. The
// gates run strictly in order; each failure terminates the exchange:
//
//	ledger check -> signature/kind/expiry -> member lookup -> atomic claim -> issue
//
// The ledger is consulted before cryptographic verification so a cheap store
// lookup short-circuits known-bad tokens and revocation stays authoritative
// over a token that would otherwise still verify.
func (s *Service) Renew(ctx context.Context, refreshToken string) (*Pair, error) {
	revoked, err := s.ledger.IsRevoked(ctx, refreshToken)
	if err != nil {
		// fail open on read errors: availability over strictness. The atomic
		// claim below still guarantees single use.
		logger.Warnf("revocation lookup failed, proceeding: %v", err)
	} else if revoked {
		metrics.Renewals.WithLabelValues("revoked").Inc()
		return nil, ErrTokenRevoked
	}

	claims, ok := s.codec.Verify(refreshToken, tokens.KindRefresh)
	if !ok {
		metrics.Renewals.WithLabelValues("invalid").Inc()
		return nil, ErrTokenInvalid
	}

	m, err := s.members.GetByID(ctx, claims.MemberID)
	if err != nil {
		metrics.Renewals.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("member lookup: %w", err)
	}
	if m == nil {
		metrics.Renewals.WithLabelValues("unknown_member").Inc()
		return nil, ErrMemberNotFound
	}
	if !m.Active {
		metrics.Renewals.WithLabelValues("inactive").Inc()
		return nil, ErrMemberInactive
	}
	if m.ID == "" {
		// persisted record broke an invariant, not a client error
		metrics.Renewals.WithLabelValues("error").Inc()
		return nil, ErrInconsistentRecord
	}

	// Revoke the consumed token before the new pair leaves the building.
	// The entry expiry mirrors a full refresh window rather than the token's
	// remaining lifetime; by the time the sweep reaps it the original token
	// has expired regardless.
	entry := &revocation.Entry{
		Token:     refreshToken,
		MemberID:  m.ID,
		Kind:      tokens.KindRefresh,
		ExpiresAt: time.Now().UTC().Add(s.codec.RefreshTTL()),
	}
	claimed, err := s.ledger.Claim(ctx, entry)
	if err != nil {
		// a rotation whose revocation could not be durably recorded must not
		// complete
		metrics.Renewals.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("revoke consumed token: %w", err)
	}
	if !claimed {
		// a concurrent renewal won the race for this token
		metrics.Renewals.WithLabelValues("revoked").Inc()
		return nil, ErrTokenRevoked
	}

	pair, err := s.IssueSession(ctx, m)
	if err != nil {
		metrics.Renewals.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.Renewals.WithLabelValues("ok").Inc()
	return pair, nil
}

// Logout revokes the presented refresh token and, when an access token is
// supplied, shadows it in the ledger for its remaining lifetime.
func (s *Service) Logout(ctx context.Context, refreshToken, accessToken string) error {
	if claims, ok := s.codec.Verify(refreshToken, tokens.KindRefresh); ok {
		e := &revocation.Entry{
			Token:     refreshToken,
			MemberID:  claims.MemberID,
			Kind:      tokens.KindRefresh,
			ExpiresAt: claims.ExpiresAt.Time,
		}
		if err := s.ledger.Revoke(ctx, e); err != nil {
			return fmt.Errorf("revoke refresh token: %w", err)
		}
	}
	if accessToken == "" {
		return nil
	}
	claims, ok := s.codec.Verify(accessToken, tokens.KindAccess)
	if !ok {
		return nil
	}
	e := &revocation.Entry{
		Token:     accessToken,
		MemberID:  claims.MemberID,
		Kind:      tokens.KindAccess,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if err := s.ledger.Revoke(ctx, e); err != nil {
		return fmt.Errorf("revoke access token: %w", err)
	}
	return nil
}
