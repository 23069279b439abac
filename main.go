package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/davrot/todolist/internal/config"
	"github.com/davrot/todolist/internal/database"
	"github.com/davrot/todolist/internal/oidc"
	"github.com/davrot/todolist/internal/sessions"
	"github.com/davrot/todolist/internal/todo/repository"
	"github.com/davrot/todolist/internal/todo/service"
	"github.com/davrot/todolist/internal/todo/validation"
	"github.com/davrot/todolist/internal/tokens"
	"github.com/davrot/todolist/internal/users"
	"github.com/davrot/todolist/pkg/logger"
	"github.com/davrot/todolist/pkg/metrics"
	"github.com/davrot/todolist/pkg/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	mongoConnectAttempts = 5
	postgresTimeout      = 10 * time.Second
)

func main() {
	// LOG_LEVEL: debug|info|warn|error|fatal
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: store=%s keycloak=%v mongo=%v redis=%v", cfg.Store.Backend, cfg.Keycloak.URL != "", cfg.MongoDB.URI != "", cfg.Redis.Host != "")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := &app{cfg: cfg}

	// Redis backs sessions, the token blacklist and the shared rate limiter
	if addr := cfg.Redis.Addr(); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s): %v", addr, err)
			_ = client.Close()
		} else {
			logger.Infof("connected to Redis: %s", addr)
			a.redis = client
			defer func() { _ = client.Close() }()
		}
	}

	var mongoDB *mongo.Database
	if cfg.MongoDB.URI != "" {
		client, err := database.ConnectMongoWithRetry(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, mongoConnectAttempts)
		if err != nil {
			if cfg.Store.Backend == config.BackendMongo {
				logger.Fatalf("could not connect to MongoDB: %v", err)
			}
			logger.Warnf("could not connect to MongoDB, users and sessions stay in memory: %v", err)
		} else {
			defer func() { _ = client.Disconnect(context.Background()) }()
			mongoDB = client.Database(cfg.MongoDB.Database)
		}
	}

	a.repo, err = openTodoRepository(ctx, cfg, mongoDB)
	if err != nil {
		logger.Fatalf("failed to open %s todo store: %v", cfg.Store.Backend, err)
	}
	a.todos = service.New(a.repo, validation.NewGate(cfg.Todo.MinDescriptionLength))

	if a.users, err = openUsers(ctx, mongoDB); err != nil {
		logger.Fatalf("failed to open user store: %v", err)
	}
	for _, u := range cfg.Users {
		if _, err := a.users.EnsureUser(ctx, u.Username, u.Password); err != nil {
			logger.Fatalf("failed to seed user %q: %v", u.Username, err)
		}
		logger.Infof("seeded user %q", u.Username)
	}
	if len(cfg.Users) == 0 && mongoDB == nil {
		logger.Warnf("no DEMO_USERS configured; nobody can log in with a password")
	}

	if a.sessions, err = openSessions(ctx, cfg, a.redis, mongoDB); err != nil {
		logger.Fatalf("failed to open session store: %v", err)
	}
	a.blacklist = sessions.NewBlacklist(a.redis)
	a.verifier = openVerifier(ctx, cfg)

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r := newRouter(a)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Infof("starting todolist on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.WriteTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("graceful shutdown failed: %v", err)
	}
}

func openTodoRepository(ctx context.Context, cfg *config.Config, mongoDB *mongo.Database) (repository.Repository, error) {
	switch cfg.Store.Backend {
	case config.BackendMongo:
		return repository.NewMongoRepo(ctx, mongoDB)
	case config.BackendPostgres:
		db, err := database.ConnectPostgres(ctx, cfg.Postgres.DSN, database.PostgresOptions{
			MaxOpenConns: cfg.Postgres.MaxOpenConns,
			MaxIdleConns: cfg.Postgres.MaxIdleConns,
			Timeout:      postgresTimeout,
		})
		if err != nil {
			return nil, err
		}
		return repository.NewGormRepo(db)
	default:
		logger.Warnf("using in-memory todo store; data is lost on restart")
		return repository.NewMemoryRepo(), nil
	}
}

func openUsers(ctx context.Context, mongoDB *mongo.Database) (*users.Service, error) {
	if mongoDB == nil {
		return users.NewService(users.NewMemoryUserRepository()), nil
	}
	repo, err := users.NewMongoUserRepository(ctx, mongoDB.Collection("users"))
	if err != nil {
		return nil, err
	}
	return users.NewService(repo), nil
}

// openSessions prefers Redis, then MongoDB, then process memory.
func openSessions(ctx context.Context, cfg *config.Config, client *redis.Client, mongoDB *mongo.Database) (*sessions.Service, error) {
	switch {
	case client != nil:
		logger.Infof("using Redis for session storage")
		return sessions.NewService(sessions.NewRedisRepository(client, "session:"), cfg.Session.TTL), nil
	case mongoDB != nil:
		repo, err := sessions.NewMongoRepository(ctx, mongoDB.Collection("sessions"))
		if err != nil {
			return nil, err
		}
		logger.Infof("using MongoDB for session storage")
		return sessions.NewService(repo, cfg.Session.TTL), nil
	default:
		return sessions.NewService(sessions.NewMemoryRepository(), cfg.Session.TTL), nil
	}
}

// openVerifier accepts tokens signed with JWT_SECRET (issued by POST /login)
// and, when configured, Keycloak tokens. It returns nil when bearer tokens
// are disabled.
func openVerifier(ctx context.Context, cfg *config.Config) middleware.Verifier {
	var vs []middleware.Verifier
	if cfg.JWT.Secret != "" {
		vs = append(vs, tokens.NewVerifier(cfg.JWT.Secret))
	}
	if cfg.Keycloak.URL != "" && cfg.Keycloak.Realm != "" && cfg.Keycloak.ClientID != "" {
		issuer := oidc.IssuerURL(cfg.Keycloak.URL, cfg.Keycloak.Realm)
		discoverCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		ver, err := oidc.NewVerifier(discoverCtx, issuer, cfg.Keycloak.ClientID)
		if err != nil {
			logger.Warnf("failed to initialize OIDC verifier: %v", err)
		} else {
			logger.Infof("verifying bearer tokens against %s", issuer)
			vs = append(vs, ver)
		}
	}
	if len(vs) == 0 {
		logger.Warnf("bearer tokens disabled: neither Keycloak nor JWT_SECRET configured")
	}
	return middleware.Chain(vs...)
}
