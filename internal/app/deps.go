package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vidtube/backend/internal/accounts"
	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/catalog"
	"github.com/vidtube/backend/internal/config"
	"github.com/vidtube/backend/internal/db"
	"github.com/vidtube/backend/internal/engagement"
	"github.com/vidtube/backend/internal/handlers"
	"github.com/vidtube/backend/internal/middleware"
	"github.com/vidtube/backend/internal/repositories"
	"github.com/vidtube/backend/internal/storage"
	"github.com/vidtube/backend/internal/views"
)

// store is everything the services need from persistence.
type store interface {
	accounts.Store
	catalog.Store
	views.Store
	engagement.RelationStore
	engagement.TargetResolver
	auth.RefreshTokenStore
	auth.IdentityFinder
}

var (
	_ store = (*repositories.MemoryStore)(nil)
	_ store = (*repositories.PostgresStore)(nil)

	_ accounts.MediaStore = (*storage.S3Storage)(nil)
	_ accounts.MediaStore = (*storage.MinIOStorage)(nil)
	_ catalog.MediaStore  = (*storage.S3Storage)(nil)
	_ catalog.MediaStore  = (*storage.MinIOStorage)(nil)

	_ handlers.AccountService    = (*accounts.Service)(nil)
	_ handlers.CatalogService    = (*catalog.Service)(nil)
	_ handlers.ViewService       = (*views.Service)(nil)
	_ handlers.EngagementService = (*engagement.Engine)(nil)

	_ accounts.Tokens             = (*auth.Manager)(nil)
	_ accounts.Hasher             = auth.BcryptHasher{}
	_ middleware.IdentityResolver = auth.Guard{}

	_ middleware.RateLimiter = (*middleware.LocalLimiter)(nil)
	_ middleware.RateLimiter = (*middleware.RedisRateLimiter)(nil)
)

// media is the upload surface shared by the account and catalog services.
type media interface {
	accounts.MediaStore
	catalog.MediaStore
}

// redisCheck adapts a Redis client to the health endpoint.
type redisCheck struct {
	client *redis.Client
}

func (c redisCheck) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// buildDependencies wires together concrete implementations used by the HTTP handlers.
// pool may be nil when the in-memory store is configured. The returned cleanup
// releases connections opened here.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config) (handlers.Dependencies, func(context.Context) error, error) {
	closers := []func() error{}
	cleanup := func(context.Context) error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}

	health := map[string]handlers.HealthChecker{}

	st, err := newStore(pool, cfg)
	if err != nil {
		return handlers.Dependencies{}, nil, err
	}
	if checker, ok := pool.(handlers.HealthChecker); ok && cfg.Store == "postgres" {
		health["database"] = checker
	}

	objects, err := newMedia(ctx, cfg.ObjectStore)
	if err != nil {
		return handlers.Dependencies{}, nil, err
	}

	tokens, err := auth.NewManager(auth.TokenConfig{
		AccessSecret:  cfg.Tokens.AccessSecret,
		RefreshSecret: cfg.Tokens.RefreshSecret,
		AccessTTL:     cfg.Tokens.AccessTTL,
		RefreshTTL:    cfg.Tokens.RefreshTTL,
		Issuer:        cfg.Tokens.Issuer,
	}, st)
	if err != nil {
		return handlers.Dependencies{}, nil, fmt.Errorf("configure token manager: %w", err)
	}

	var limiter middleware.RateLimiter
	if cfg.RateLimit.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RateLimit.RedisAddr,
			Password: cfg.RateLimit.RedisPassword,
			DB:       cfg.RateLimit.RedisDB,
		})
		closers = append(closers, client.Close)
		limiter = middleware.NewRedisRateLimiter(client, cfg.RateLimit.Requests, cfg.RateLimit.Window)
		health["redis"] = redisCheck{client: client}
	} else {
		limiter = middleware.NewLocalLimiter(middleware.LocalLimiterConfig{
			Requests: cfg.RateLimit.Requests,
			Window:   cfg.RateLimit.Window,
			Burst:    cfg.RateLimit.Burst,
			IdleTTL:  10 * time.Minute,
		})
	}

	return handlers.Dependencies{
		Accounts:     accounts.NewService(st, objects, auth.BcryptHasher{}, tokens),
		Catalog:      catalog.NewService(st, objects),
		Views:        views.NewService(st),
		Engagement:   engagement.NewEngine(st, st),
		Guard:        auth.Guard{Tokens: tokens, Identities: st},
		Limiter:      limiter,
		Health:       health,
		Uploads:      cfg.Uploads,
		CookieSecure: cfg.CookieSecure,
	}, cleanup, nil
}

func newStore(pool db.Pool, cfg config.Config) (store, error) {
	switch cfg.Store {
	case "memory":
		return repositories.NewMemoryStore(), nil
	case "postgres":
		if pool == nil {
			return nil, errors.New("postgres store requires a database pool")
		}
		return repositories.NewPostgresStore(pool), nil
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

func newMedia(ctx context.Context, cfg config.ObjectStoreConfig) (media, error) {
	switch cfg.Backend {
	case "minio":
		objects, err := storage.NewMinIOStorage(cfg)
		if err != nil {
			return nil, fmt.Errorf("configure minio media store: %w", err)
		}
		return objects, nil
	case "s3", "":
		objects, err := storage.NewS3Storage(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("configure s3 media store: %w", err)
		}
		return objects, nil
	default:
		return nil, fmt.Errorf("unknown media backend %q", cfg.Backend)
	}
}
