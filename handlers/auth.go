package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/davrot/todolist/internal/config"
	"github.com/davrot/todolist/internal/sessions"
	"github.com/davrot/todolist/internal/tokens"
	"github.com/davrot/todolist/internal/users"
	"github.com/davrot/todolist/pkg/logger"
	"github.com/davrot/todolist/pkg/metrics"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

const (
	loginPath   = "/login"
	logoutPath  = "/logout"
	welcomePath = "/"
)

// LoginRequest is the login form, posted as form fields or JSON.
type LoginRequest struct {
	Username string `form:"username" json:"username" binding:"required"`
	Password string `form:"password" json:"password" binding:"required"`
}

// AuthHandler holds dependencies
type AuthHandler struct {
	cfg         *config.Config
	usersSvc    *users.Service
	sessionsSvc *sessions.Service
	blacklist   *sessions.Blacklist
}

// NewAuthHandler wires the login endpoints. bl may be nil, in which case
// logout cannot revoke bearer tokens.
func NewAuthHandler(cfg *config.Config, u *users.Service, s *sessions.Service, bl *sessions.Blacklist) *AuthHandler {
	return &AuthHandler{cfg: cfg, usersSvc: u, sessionsSvc: s, blacklist: bl}
}

// Register adds the login and logout routes. They must not sit behind the
// auth middleware.
func (h *AuthHandler) Register(r gin.IRoutes) {
	r.GET(loginPath, h.ShowLogin)
	r.POST(loginPath, h.Login)
	r.POST(logoutPath, h.Logout)
	r.GET(logoutPath, h.Logout)
}

// ShowLogin returns the login prompt.
func (h *AuthHandler) ShowLogin(c *gin.Context) {
	resp := gin.H{"action": loginPath}
	if _, failed := c.GetQuery("error"); failed {
		resp["error"] = "Invalid username or password"
	}
	if _, out := c.GetQuery("logout"); out {
		resp["message"] = "You have been logged out"
	}
	c.JSON(http.StatusOK, resp)
}

// Login checks credentials, starts a session cookie and, when a JWT secret is
// configured, issues an access token for API clients.
func (h *AuthHandler) Login(c *gin.Context) {
	isJSON := c.ContentType() == binding.MIMEJSON
	var req LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		metrics.LoginAttempts.WithLabelValues("invalid").Inc()
		h.loginFailed(c, isJSON, http.StatusBadRequest, "username and password are required")
		return
	}
	u, err := h.usersSvc.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, users.ErrInvalidCredentials) {
			metrics.LoginAttempts.WithLabelValues("rejected").Inc()
			logger.Infof("login rejected for %q", req.Username)
			h.loginFailed(c, isJSON, http.StatusUnauthorized, "invalid username or password")
			return
		}
		metrics.LoginAttempts.WithLabelValues("error").Inc()
		logger.Errorf("user lookup failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	sess, err := h.sessionsSvc.CreateSession(c.Request.Context(), u.Username)
	if err != nil {
		metrics.LoginAttempts.WithLabelValues("error").Inc()
		logger.Errorf("failed to create session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	h.setSessionCookie(c, sess.ID, int(h.sessionsSvc.TTL().Seconds()))
	metrics.LoginAttempts.WithLabelValues("ok").Inc()
	logger.Infof("user %q logged in", u.Username)

	if !isJSON {
		c.Redirect(http.StatusFound, welcomePath)
		return
	}
	resp := gin.H{"username": u.Username}
	if h.cfg.JWT.Secret != "" {
		ttl := h.cfg.JWT.AccessTokenTTL
		access, err := tokens.GenerateAccessToken(h.cfg, u.Username, ttl)
		if err != nil {
			logger.Errorf("failed to create access token: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		resp["accessToken"] = access
		resp["expiresIn"] = int(ttl.Seconds())
	}
	c.JSON(http.StatusOK, resp)
}

func (h *AuthHandler) loginFailed(c *gin.Context, isJSON bool, status int, msg string) {
	if isJSON {
		c.JSON(status, gin.H{"error": msg})
		return
	}
	c.Redirect(http.StatusFound, loginPath+"?error")
}

// Logout drops the session cookie and blacklists the bearer access token when
// one is supplied.
func (h *AuthHandler) Logout(c *gin.Context) {
	auth := c.GetHeader("Authorization")
	if auth != "" {
		var at string
		if n, _ := fmt.Sscanf(auth, "Bearer %s", &at); n == 1 {
			if exp, err := parseExpFromJWT(at); err == nil {
				ttl := time.Until(exp)
				if ttl > 0 {
					if err := h.blacklist.Revoke(c.Request.Context(), at, ttl); err != nil {
						logger.Errorf("failed to blacklist access token: %v", err)
						c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to blacklist access token"})
						return
					}
				}
			}
		}
	}

	if sid, err := c.Cookie(h.cfg.Session.CookieName); err == nil && sid != "" {
		if err := h.sessionsSvc.DeleteSession(c.Request.Context(), sid); err != nil {
			logger.Errorf("failed to remove session: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to remove session"})
			return
		}
	}
	h.setSessionCookie(c, "", -1)

	if auth != "" || c.ContentType() == binding.MIMEJSON {
		c.JSON(http.StatusOK, gin.H{"message": "logged out"})
		return
	}
	c.Redirect(http.StatusFound, loginPath+"?logout")
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cfg.Session.CookieName, value, maxAge, "/", "", h.cfg.Session.Secure, true)
}

// parseExpFromJWT decodes the JWT payload and returns the `exp` claim as time.Time.
// This performs payload-only parsing (no signature verification) and is suitable
// for computing remaining TTLs for blacklisting purposes.
func parseExpFromJWT(tok string) (time.Time, error) {
	parts := strings.Split(tok, ".")
	if len(parts) < 2 {
		return time.Time{}, fmt.Errorf("invalid token")
	}
	payload := parts[1]
	b, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		// try standard base64 (pad) as a fallback
		b, err = base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return time.Time{}, err
		}
	}
	var claims map[string]interface{}
	if err := json.Unmarshal(b, &claims); err != nil {
		return time.Time{}, err
	}
	v, ok := claims["exp"]
	if !ok {
		return time.Time{}, fmt.Errorf("exp claim not present")
	}
	switch vv := v.(type) {
	case float64:
		return time.Unix(int64(vv), 0), nil
	case json.Number:
		i64, err := vv.Int64()
		if err != nil {
			return time.Time{}, err
		}
		return time.Unix(i64, 0), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported exp type %T", v)
	}
}
