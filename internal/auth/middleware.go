package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gitlab.com/dirk.krummacker/contacts-api/internal/logger"
	"gitlab.com/dirk.krummacker/contacts-api/internal/model"
)

// currentUserKey is the gin context key under which RequireAuth stores the user.
const currentUserKey = "currentUser"

// UserResolver turns a credential into a user.
type UserResolver interface {
	ResolveCurrentUser(ctx context.Context, credential string) (model.User, error)
}

// RequireAuth aborts requests without a valid bearer token with 401. Otherwise the resolved user
// is available to later handlers through CurrentUser.
func RequireAuth(resolver UserResolver, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := resolver.ResolveCurrentUser(c.Request.Context(), bearerToken(c))
		if errors.Is(err, ErrUnauthorized) {
			log.Debug("rejected credentials", "path", c.Request.URL.Path, "reason", err.Error())
			c.Header("WWW-Authenticate", "Bearer")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": ErrUnauthorized.Error()})
			return
		}
		if err != nil {
			log.Error("could not resolve current user", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "internal server error"})
			return
		}
		c.Set(currentUserKey, user)
		c.Next()
	}
}

// CurrentUser returns the user stored by RequireAuth.
func CurrentUser(c *gin.Context) (model.User, bool) {
	value, exists := c.Get(currentUserKey)
	if !exists {
		return model.User{}, false
	}
	user, ok := value.(model.User)
	return user, ok
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
