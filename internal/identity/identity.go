// Package identity carries the authenticated username from the auth
// middleware to the todo handlers.
package identity

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
)

// ContextKey is the gin context key holding the username.
const ContextKey = "username"

var ErrUnauthenticated = errors.New("unauthenticated")

// Set attaches a username to the request. Blank names are ignored.
func Set(c *gin.Context, username string) {
	username = strings.TrimSpace(username)
	if username == "" {
		return
	}
	c.Set(ContextKey, username)
}

// Current returns the authenticated username, or ErrUnauthenticated when
// nothing trustworthy is attached to the request.
func Current(c *gin.Context) (string, error) {
	v, ok := c.Get(ContextKey)
	if !ok {
		return "", ErrUnauthenticated
	}
	name, ok := v.(string)
	if !ok || strings.TrimSpace(name) == "" {
		return "", ErrUnauthenticated
	}
	return name, nil
}
