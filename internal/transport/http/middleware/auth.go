package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/exp/slog"

	"photoshelf/internal/pkg/jwtutil"
	"photoshelf/internal/transport/http/response"
)

const (
	ContextUserIDKey       = "user_id"
	ContextTokenIDKey      = "token_id"
	ContextTokenExpiresKey = "token_expires_at"
)

// RevocationChecker reports whether a token id was revoked before expiry.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// AuthCookie admits a request only when cookieName carries a valid session
// token. revoked may be nil.
func AuthCookie(secret, cookieName string, revoked RevocationChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(cookieName)
		if err != nil || token == "" {
			response.Abort(c, http.StatusUnauthorized, response.CodeNotAuthenticated, "Not authenticated")
			return
		}

		claims, err := jwtutil.ParseToken(secret, token)
		if err != nil {
			response.Abort(c, http.StatusUnauthorized, response.CodeInvalidToken, "Invalid token")
			return
		}

		if revoked != nil {
			isRevoked, err := revoked.IsRevoked(c.Request.Context(), claims.ID)
			if err != nil {
				slog.Error("token revocation lookup failed", "token_id", claims.ID, "error", err)
			}
			if err != nil || isRevoked {
				response.Abort(c, http.StatusUnauthorized, response.CodeInvalidToken, "Invalid token")
				return
			}
		}

		c.Set(ContextUserIDKey, claims.UserID)
		c.Set(ContextTokenIDKey, claims.ID)
		c.Set(ContextTokenExpiresKey, claims.ExpiresAt.Time)
		c.Next()
	}
}

func UserID(c *gin.Context) (uint, bool) {
	v, exists := c.Get(ContextUserIDKey)
	if !exists {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok && id != 0
}

func TokenID(c *gin.Context) (string, time.Time) {
	id := c.GetString(ContextTokenIDKey)
	expires := c.GetTime(ContextTokenExpiresKey)
	return id, expires
}
