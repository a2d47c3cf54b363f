package middleware

import (
	"net/http"
	"strings"

	"github.com/Payphone-Digital/accounts/internal/constants"
	"github.com/Payphone-Digital/accounts/internal/service"
	ctxutil "github.com/Payphone-Digital/accounts/pkg/context"
	"github.com/Payphone-Digital/accounts/pkg/logger"
	"github.com/gin-gonic/gin"
)

// TokenVerifier checks a token of the given kind and returns its claims.
type TokenVerifier interface {
	Verify(token string, kind service.TokenKind) (*service.Claims, error)
}

type JWTMiddleware struct {
	verifier TokenVerifier
}

func NewJWTMiddleware(verifier TokenVerifier) *JWTMiddleware {
	return &JWTMiddleware{verifier: verifier}
}

// RequireAuth accepts an access token from the accessToken cookie or an
// Authorization bearer header and records the caller's id.
func (m *JWTMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		token := accessToken(c)
		if token == "" {
			logger.WarnWithContext(ctx, "Missing access token").
				Method(c.Request.Method).
				Path(c.Request.URL.Path).
				Log()
			abortUnauthorized(c)
			return
		}

		claims, err := m.verifier.Verify(token, service.TokenAccess)
		if err != nil {
			logger.WarnWithContext(ctx, "Invalid or expired access token").
				Method(c.Request.Method).
				Path(c.Request.URL.Path).
				Err(err).
				Log()
			abortUnauthorized(c)
			return
		}

		c.Set(constants.GinKeyUserID, claims.Subject)
		c.Set(constants.GinKeyUsername, claims.Username)
		c.Request = c.Request.WithContext(ctxutil.WithUserID(ctx, claims.Subject))

		c.Next()
	}
}

func accessToken(c *gin.Context) string {
	if cookie, err := c.Cookie(constants.CookieAccessToken); err == nil && cookie != "" {
		return cookie
	}
	header := c.GetHeader(constants.HeaderAuthorization)
	if strings.HasPrefix(header, constants.BearerPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(header, constants.BearerPrefix))
	}
	return ""
}

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized,
		constants.BuildErrorResponse(http.StatusUnauthorized, constants.MsgUnauthorized, nil))
}

// UserID returns the id recorded by RequireAuth.
func UserID(c *gin.Context) string {
	return c.GetString(constants.GinKeyUserID)
}
