package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/chapterhub/chapterhub/internal/revocation"
	"github.com/chapterhub/chapterhub/internal/tokens"
	"github.com/chapterhub/chapterhub/pkg/logger"
)

// Context keys set by RequireMember for downstream handlers.
const (
	ClaimsKey   = "claims"
	MemberIDKey = "memberId"
)

// BearerToken returns the raw token from an `Authorization: Bearer <token>`
// header, or "" when the header is missing or malformed. Absence is treated
// as anonymous, not as an error; the caller decides whether anonymous access
// is permitted.
func BearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return ""
	}
	return strings.TrimSpace(auth[len(prefix):])
}

// Identity resolves the request's bearer token to verified access claims.
// Missing header, malformed header and failed verification all return nil;
// callers must treat the three identically.
func Identity(r *http.Request, codec *tokens.Codec) *tokens.Claims {
	raw := BearerToken(r)
	if raw == "" {
		return nil
	}
	claims, ok := codec.Verify(raw, tokens.KindAccess)
	if !ok {
		return nil
	}
	return claims
}

// MemberID resolves the request's bearer token to a verified member
// identifier, or "" under the same uniform rules as Identity.
func MemberID(r *http.Request, codec *tokens.Codec) string {
	claims := Identity(r, codec)
	if claims == nil {
		return ""
	}
	return claims.MemberID
}

// RequireMember returns a Gin middleware that rejects requests without a
// verifiable access token. The 401 body is the same for every failure mode.
func RequireMember(codec *tokens.Codec) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := Identity(c.Request, codec)
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "invalid or expired token"})
			return
		}
		c.Set(ClaimsKey, claims)
		c.Set(MemberIDKey, claims.MemberID)
		c.Next()
	}
}

// RequireMemberStrict behaves like RequireMember but additionally consults
// the revocation ledger, so an access token shadowed at logout is rejected
// before its natural expiry. A ledger read error does not block an
// otherwise-valid token.
func RequireMemberStrict(codec *tokens.Codec, ledger revocation.Ledger) gin.HandlerFunc {
	base := RequireMember(codec)
	return func(c *gin.Context) {
		raw := BearerToken(c.Request)
		if raw != "" && ledger != nil {
			revoked, err := ledger.IsRevoked(c.Request.Context(), raw)
			if err != nil {
				logger.Warnf("revocation lookup failed for access token, proceeding: %v", err)
			} else if revoked {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "invalid or expired token"})
				return
			}
		}
		base(c)
	}
}

// RequireAdmin compares the bearer token against the static administrative
// secret in constant time. An empty secret always fails.
func RequireAdmin(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := BearerToken(c.Request)
		if secret == "" || subtle.ConstantTimeCompare([]byte(raw), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "invalid or expired token"})
			return
		}
		c.Next()
	}
}
