package main

import (
	"context"
	"net/http"
	"time"

	"github.com/davrot/todolist/handlers"
	"github.com/davrot/todolist/internal/config"
	"github.com/davrot/todolist/internal/sessions"
	"github.com/davrot/todolist/internal/todo/handler"
	"github.com/davrot/todolist/internal/todo/repository"
	"github.com/davrot/todolist/internal/todo/service"
	"github.com/davrot/todolist/internal/users"
	"github.com/davrot/todolist/pkg/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

var startTime = time.Now()

// app holds the wired services the router depends on.
type app struct {
	cfg      *config.Config
	repo     repository.Repository
	todos    service.Service
	users    *users.Service
	sessions *sessions.Service
	verifier  middleware.Verifier
	blacklist *sessions.Blacklist
	redis     *redis.Client
}

func newRouter(a *app) *gin.Engine {
	r := gin.New()
	r.Use(cors(), gin.Logger(), gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})
	r.GET("/ready", a.ready)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handlers.RegisterSwagger(r)

	limiter := a.rateLimiter()

	public := r.Group("/", limiter...)
	handlers.NewAuthHandler(a.cfg, a.users, a.sessions, a.blacklist).Register(public)

	auth := middleware.AuthMiddleware(middleware.AuthOptions{
		Verifier:    a.verifier,
		Sessions:    a.sessions,
		Blacklisted: a.blacklist.IsRevoked,
		CookieName:  a.cfg.Session.CookieName,
		LoginPath:   handler.LoginPath,
	})
	protected := r.Group("/", append([]gin.HandlerFunc{auth}, limiter...)...)
	handler.RegisterTodoRoutes(protected, a.todos)
	return r
}

// cors sets permissive headers for API clients and answers preflight requests.
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Length")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}

// rateLimiter returns the configured limiter, or nothing when disabled.
func (a *app) rateLimiter() []gin.HandlerFunc {
	rl := a.cfg.RateLimit
	if !rl.Enabled {
		return nil
	}
	if rl.UseRedis && a.redis != nil {
		win := time.Duration(rl.WindowSeconds) * time.Second
		return []gin.HandlerFunc{middleware.RedisRateLimitMiddleware(a.redis, rl.RPS, rl.Burst, win)}
	}
	return []gin.HandlerFunc{middleware.RateLimitMiddleware(rl.RPS, rl.Burst)}
}

// ready returns 200 only when the todo store (and Redis, when used) answer.
func (a *app) ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	ready := true
	deps := map[string]bool{"store": true}
	if err := a.repo.Ping(ctx); err != nil {
		deps["store"] = false
		ready = false
	}
	if a.redis != nil {
		deps["redis"] = a.redis.Ping(ctx).Err() == nil
		ready = ready && deps["redis"]
	}

	status, state := http.StatusOK, "ready"
	if !ready {
		status, state = http.StatusServiceUnavailable, "not_ready"
	}
	c.JSON(status, gin.H{"status": state, "deps": deps, "uptime": time.Since(startTime).String()})
}
