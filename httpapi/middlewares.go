package httpapi

import (
	"log/slog"
	"time"
	"tutor-chat/auth"
	"tutor-chat/domain"

	"github.com/gin-gonic/gin"
)

type TokenVerifier interface {
	Verify(token string) (domain.UserID, error)
}

// Authenticate resolves the caller identity from the Account Service token
// and threads it through the request context.
func Authenticate(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.BearerToken(c.GetHeader("Authorization"))
		if err != nil {
			HandleError(c, err)
			return
		}
		userID, err := verifier.Verify(token)
		if err != nil {
			HandleError(c, err)
			return
		}
		c.Request = c.Request.WithContext(auth.WithUserID(c.Request.Context(), userID))
		c.Next()
	}
}

func RequestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("HTTP request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

func caller(c *gin.Context) domain.UserID {
	userID, _ := auth.UserIDFromContext(c.Request.Context())
	return userID
}
