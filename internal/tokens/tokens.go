package tokens

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/chapterhub/chapterhub/internal/config"
	"github.com/chapterhub/chapterhub/internal/models"
)

// Token kinds. A token issued as one kind never verifies as the other,
// even though both kinds share the same signing secret.
const (
	KindAccess  = "access"
	KindRefresh = "refresh"
)

// ErrNoSigningSecret is returned when token issuance is attempted without a
// configured secret. Issuing unsigned tokens is never an acceptable fallback.
var ErrNoSigningSecret = errors.New("tokens: signing secret is not configured")

// Claims is the payload carried by both token kinds. Kind is the class
// discriminant; Active is only set on access tokens.
type Claims struct {
	MemberID string `json:"memberId"`
	Email    string `json:"email"`
	Active   bool   `json:"active,omitempty"`
	Kind     string `json:"token_type"`
	jwt.RegisteredClaims
}

// Codec signs and verifies member credentials using an HS256 secret held in
// configuration. It performs pure computation only; nothing here touches a
// store or the network.
type Codec struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewCodec builds a codec from the JWT section of the application config.
func NewCodec(cfg config.JWTConfig) *Codec {
	return &Codec{
		secret:     []byte(cfg.Secret),
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
	}
}

func (c *Codec) AccessTTL() time.Duration  { return c.accessTTL }
func (c *Codec) RefreshTTL() time.Duration { return c.refreshTTL }

// Issue serializes the member identity plus kind discriminant and expiry,
// and signs the result.
func (c *Codec) Issue(kind string, m *models.Member, ttl time.Duration) (string, error) {
	if len(c.secret) == 0 {
		return "", ErrNoSigningSecret
	}
	now := time.Now().UTC()
	claims := &Claims{
		MemberID: m.ID,
		Email:    m.Email,
		Kind:     kind,
		RegisteredClaims: jwt.RegisteredClaims{
			// jti keeps every token unique; without it two tokens minted for
			// the same member within one second would be byte-identical and a
			// rotated refresh token could collide with its revoked predecessor
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if kind == KindAccess {
		claims.Active = m.Active
	}
	jt := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return jt.SignedString(c.secret)
}

// Verify checks signature, expiry and kind. All failure modes look the same
// to the caller: a bad signature, an expired token, a malformed string and a
// kind mismatch all yield (nil, false), so the result cannot be used as a
// verification oracle. Expiry is evaluated against wall-clock time with no
// grace window.
func (c *Codec) Verify(token string, kind string) (*Claims, bool) {
	if len(c.secret) == 0 {
		return nil, false
	}
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return nil, false
	}
	if claims.Kind != kind {
		return nil, false
	}
	if claims.ExpiresAt == nil {
		return nil, false
	}
	return &claims, true
}

// IssuePair produces a fresh access/refresh pair for the member using the
// configured lifetimes. Stateless: no record of the pair is kept anywhere.
func (c *Codec) IssuePair(m *models.Member) (access string, refresh string, err error) {
	access, err = c.Issue(KindAccess, m, c.accessTTL)
	if err != nil {
		return "", "", err
	}
	refresh, err = c.Issue(KindRefresh, m, c.refreshTTL)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}
