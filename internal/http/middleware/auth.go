package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/smallbiznis/fintrack-auth/internal/domain"
	"github.com/smallbiznis/fintrack-auth/internal/http/response"
	"github.com/smallbiznis/fintrack-auth/internal/service"
)

const ginIdentityKey = "identity"

type identityCtxKey struct{}

// Authenticator verifies bearer tokens.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (domain.Identity, error)
}

var _ Authenticator = (*service.AuthService)(nil)

// Auth validates the Authorization header and attaches the caller identity.
type Auth struct {
	AuthService Authenticator
}

// NewAuth builds the middleware around the service.
func NewAuth(authService *service.AuthService) *Auth {
	return &Auth{AuthService: authService}
}

// RequireIdentity rejects requests without a valid bearer token.
func (m *Auth) RequireIdentity(c *gin.Context) {
	token, ok := bearerToken(c.GetHeader("Authorization"))
	if !ok {
		response.Abort(c, http.StatusUnauthorized, "Authentication required.")
		return
	}

	identity, err := m.AuthService.Authenticate(c.Request.Context(), token)
	if err != nil {
		response.Abort(c, http.StatusUnauthorized, "Invalid or expired token.")
		return
	}

	c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), identity))
	c.Set(ginIdentityKey, identity)
	c.Next()
}

// WithIdentity returns a copy of ctx carrying identity.
func WithIdentity(ctx context.Context, identity domain.Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey{}, identity)
}

// IdentityFromContext returns the identity placed by RequireIdentity.
func IdentityFromContext(ctx context.Context) (domain.Identity, bool) {
	identity, ok := ctx.Value(identityCtxKey{}).(domain.Identity)
	return identity, ok
}

// GetIdentity reads the identity from the gin context.
func GetIdentity(c *gin.Context) (domain.Identity, bool) {
	value, ok := c.Get(ginIdentityKey)
	if !ok {
		return domain.Identity{}, false
	}
	identity, ok := value.(domain.Identity)
	return identity, ok
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
