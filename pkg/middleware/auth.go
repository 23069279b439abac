package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/davrot/todolist/internal/identity"
	"github.com/davrot/todolist/pkg/logger"
	"github.com/gin-gonic/gin"
)

// Token is minimal interface for a verified token that can expose claims
type Token interface {
	Claims(v interface{}) error
}

// Verifier is the minimal interface the middleware depends on
type Verifier interface {
	Verify(ctx context.Context, raw string) (Token, error)
}

// Chain accepts a token when any of vs does, trying them in order. Nil
// entries are skipped; with none left Chain returns nil.
func Chain(vs ...Verifier) Verifier {
	var c chain
	for _, v := range vs {
		if v != nil {
			c = append(c, v)
		}
	}
	switch len(c) {
	case 0:
		return nil
	case 1:
		return c[0]
	}
	return c
}

type chain []Verifier

func (c chain) Verify(ctx context.Context, raw string) (Token, error) {
	var err error
	for _, v := range c {
		tok, verr := v.Verify(ctx, raw)
		if verr == nil {
			return tok, nil
		}
		err = verr
	}
	return nil, err
}

// SessionResolver maps a login session id (the session cookie) to a username.
// It returns "" for unknown or expired sessions.
type SessionResolver interface {
	Resolve(ctx context.Context, sessionID string) (string, error)
}

// AuthOptions configures AuthMiddleware. Verifier, Sessions and Blacklisted
// are optional; with neither Verifier nor Sessions every request is
// unauthenticated.
type AuthOptions struct {
	Verifier    Verifier
	Sessions    SessionResolver
	Blacklisted func(ctx context.Context, token string) (bool, error)
	CookieName  string
	LoginPath   string
}

// AuthMiddleware resolves the caller's username from a Bearer token or the
// session cookie and attaches it with identity.Set. Requests without
// credentials are redirected to the login page; bad tokens get 401.
func AuthMiddleware(opts AuthOptions) gin.HandlerFunc {
	loginPath := opts.LoginPath
	if loginPath == "" {
		loginPath = "/login"
	}
	return func(c *gin.Context) {
		if auth := c.GetHeader("Authorization"); auth != "" {
			authenticateBearer(c, opts, auth)
			return
		}
		if opts.Sessions != nil && opts.CookieName != "" {
			if sid, err := c.Cookie(opts.CookieName); err == nil && sid != "" {
				name, err := opts.Sessions.Resolve(c.Request.Context(), sid)
				if err != nil {
					logger.Errorf("session lookup failed: %v", err)
					c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
					return
				}
				if name != "" {
					identity.Set(c, name)
					c.Next()
					return
				}
			}
		}
		c.Redirect(http.StatusFound, loginPath)
		c.Abort()
	}
}

func authenticateBearer(c *gin.Context, opts AuthOptions, auth string) {
	// Expect 'Bearer <token>'
	var token string
	if n, _ := fmt.Sscanf(auth, "Bearer %s", &token); n != 1 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid Authorization header"})
		return
	}
	if opts.Verifier == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token authentication not configured"})
		return
	}
	if opts.Blacklisted != nil {
		revoked, err := opts.Blacklisted(c.Request.Context(), token)
		if err != nil {
			logger.Errorf("blacklist lookup failed: %v", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		if revoked {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token revoked"})
			return
		}
	}

	idToken, err := opts.Verifier.Verify(c.Request.Context(), token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	var claims map[string]interface{}
	if err := idToken.Claims(&claims); err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "failed to parse claims"})
		return
	}
	name := UsernameFromClaims(claims)
	if name == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token has no username"})
		return
	}

	c.Set("claims", claims)
	identity.Set(c, name)
	c.Next()
}

// UsernameFromClaims prefers preferred_username (Keycloak) and falls back to sub.
func UsernameFromClaims(claims map[string]interface{}) string {
	if v, ok := claims["preferred_username"].(string); ok && v != "" {
		return v
	}
	if v, ok := claims["sub"].(string); ok {
		return v
	}
	return ""
}
