package bootstrap

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"mangoleaf/internal/app"
	"mangoleaf/internal/cache"
	"mangoleaf/internal/classifier"
	"mangoleaf/internal/config"
	redisClient "mangoleaf/internal/platform/redis"
	"mangoleaf/internal/worker"
)

const sweepInterval = time.Minute

// SessionStore is the store the service writes to, plus a health probe.
type SessionStore interface {
	app.SessionStore
	Ping(ctx context.Context) error
}

type App struct {
	Config     *config.Config
	Redis      *redis.Client
	Store      SessionStore
	Classifier *classifier.Client
	Analysis   *app.AnalysisService
	Sweeper    *worker.SessionSweeper

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	return NewWithConfig(ctx, cfg)
}

func NewWithConfig(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg, StartedAt: time.Now()}
	ttl := time.Duration(cfg.Session.TTLMinutes) * time.Minute

	switch cfg.Session.Store {
	case "redis":
		redisCli, err := redisClient.Open(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		a.Redis = redisCli
		a.Store = cache.NewRedisSessionStore(redisCli, cfg.Redis.KeyPrefix, ttl)
	default:
		memStore := cache.NewMemorySessionStore(ttl)
		a.Store = memStore
		a.Sweeper = worker.NewSessionSweeper(memStore, sweepInterval)
		a.Sweeper.Start(ctx)
	}

	timeout := time.Duration(cfg.Classifier.TimeoutSeconds) * time.Second
	a.Classifier = classifier.NewClient(cfg.Classifier.EndpointURL, cfg.Classifier.FieldName, timeout)
	a.Analysis = app.NewAnalysisService(
		a.Store,
		a.Classifier,
		time.Duration(cfg.UI.PulseMillis)*time.Millisecond,
		timeout,
	)

	log.Printf("session store: %s, classifier endpoint: %s", cfg.Session.Store, cfg.Classifier.EndpointURL)
	return a, nil
}

func (a *App) Close() error {
	var closeErr error
	if a.Sweeper != nil {
		a.Sweeper.Close()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	return closeErr
}
