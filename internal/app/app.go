// Package app wires configuration into the stores, sinks and services shared
// by the HTTP server and the Lambda entry points.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"matchmaking-engine/internal/config"
	"matchmaking-engine/internal/handlers"
	"matchmaking-engine/internal/services/cache"
	"matchmaking-engine/internal/services/database"
	"matchmaking-engine/internal/services/lifecycle"
	"matchmaking-engine/internal/services/matcher"
	"matchmaking-engine/internal/services/memory"
	"matchmaking-engine/internal/services/mq"
	"matchmaking-engine/internal/services/notify"
	s3service "matchmaking-engine/internal/services/s3"
	sesservice "matchmaking-engine/internal/services/ses"
	"matchmaking-engine/internal/utils"
)

// memberStore is what every component needs from member storage.
type memberStore interface {
	handlers.MemberService
	matcher.CandidateStore
}

// App holds the wired components.
type App struct {
	Config *config.Config

	DB              *database.DB // nil in demo mode
	Members         memberStore
	MutualStore     lifecycle.MutualMatchStore
	SequentialStore lifecycle.SequentialMatchStore

	Matcher           *matcher.MatcherService
	MutualService     *lifecycle.MutualService
	SequentialService *lifecycle.SequentialService

	Files    *s3service.Service // nil when no bucket is reachable
	Notifier *notify.Async

	closers []func()
}

// Options select which optional integrations to start.
type Options struct {
	// AllowDemo falls back to the in-memory store when Postgres is unreachable.
	AllowDemo bool
	// WithFiles connects to the import bucket.
	WithFiles bool
	// WithSinks connects the SES and RabbitMQ notifiers.
	WithSinks bool
	// WithCache connects the Redis candidate cache.
	WithCache bool
}

// New builds an App from cfg.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	a := &App{Config: cfg}
	logger := utils.GetLogger()

	if cfg.DemoMode {
		logger.Info("Demo mode enabled, using in-memory store")
	} else {
		db, err := database.New(cfg)
		switch {
		case err == nil:
			a.DB = db
			a.closers = append(a.closers, db.Close)
		case opts.AllowDemo:
			logger.Warn("Could not connect to database, running in demo mode", zap.Error(err))
		default:
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
	}

	if a.DB != nil {
		a.Members = database.NewMemberRepository(a.DB)
		a.MutualStore = database.NewMutualMatchRepository(a.DB)
		a.SequentialStore = database.NewSequentialMatchRepository(a.DB)
	} else {
		store := memory.NewStore()
		a.Members = store
		a.MutualStore = store.Mutual()
		a.SequentialStore = store.Sequential()
	}

	var resultCache matcher.ResultCache
	if opts.WithCache && cfg.RedisAddr != "" {
		c, err := cache.New(cache.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.CandidateCacheTTL,
		})
		if err != nil {
			logger.Warn("Candidate cache unavailable", zap.Error(err))
		} else {
			resultCache = c
			a.closers = append(a.closers, func() { _ = c.Close() })
		}
	}
	a.Matcher = matcher.NewMatcherService(a.Members, resultCache)

	if opts.WithFiles && a.DB != nil && cfg.S3Bucket != "" {
		files, err := s3service.NewService(ctx, cfg)
		if err != nil {
			logger.Warn("Import bucket unavailable", zap.Error(err))
		} else {
			a.Files = files
		}
	}

	fanout := notify.NewFanout(a.sinks(ctx, opts)...)
	logger.Info("Notification sinks configured", zap.Int("sinks", fanout.Len()))
	a.Notifier = notify.NewAsync(fanout, cfg.NotifyTimeout)

	clock := lifecycle.SystemClock{}
	a.MutualService = lifecycle.NewMutualService(a.Members, a.MutualStore, a.Notifier, clock, cfg.MutualWindow())
	a.MutualService.SetInvalidator(a.Matcher)
	a.SequentialService = lifecycle.NewSequentialService(a.Members, a.SequentialStore, a.Notifier, clock, lifecycle.Windows{
		Mutual:   cfg.MutualWindow(),
		Receiver: cfg.ReceiverWindow(),
		Sender:   cfg.SenderWindow(),
	})
	a.SequentialService.SetInvalidator(a.Matcher)

	return a, nil
}

func (a *App) sinks(ctx context.Context, opts Options) []notify.Named {
	if !opts.WithSinks {
		return nil
	}
	logger := utils.GetLogger()
	cfg := a.Config

	var sinks []notify.Named
	if cfg.SESSenderEmail != "" {
		svc, err := sesservice.NewService(ctx, cfg, a.Members)
		if err != nil {
			logger.Warn("SES notifier unavailable", zap.Error(err))
		} else {
			sinks = append(sinks, notify.Named{Name: "ses", Sink: svc})
		}
	}
	if cfg.RabbitMQURL != "" {
		pub, err := mq.Dial(cfg.RabbitMQURL, cfg.MatchEventsExchange)
		if err != nil {
			logger.Warn("RabbitMQ publisher unavailable", zap.Error(err))
		} else {
			sinks = append(sinks, notify.Named{Name: "rabbitmq", Sink: pub})
			a.closers = append(a.closers, func() { _ = pub.Close() })
		}
	}
	return sinks
}

// Health returns a health handler bound to the database, if any.
func (a *App) Health() *handlers.HealthHandler {
	if a.DB == nil {
		return handlers.NewHealthHandler(nil, a.Config.Stage)
	}
	return handlers.NewHealthHandler(a.DB, a.Config.Stage)
}

// Imports returns an import handler reading from the bucket when connected.
func (a *App) Imports() *handlers.ImportHandler {
	if a.Files == nil {
		return handlers.NewImportHandler(nil, a.Members)
	}
	return handlers.NewImportHandler(a.Files, a.Members)
}

// Uploads returns the presigned URL handler, or nil without a bucket.
func (a *App) Uploads() *handlers.UploadURLHandler {
	if a.Files == nil {
		return nil
	}
	return handlers.NewUploadURLHandler(a.Files)
}

// API assembles the HTTP API.
func (a *App) API() *handlers.API {
	return &handlers.API{
		Members:     a.Members,
		Selector:    a.Matcher,
		Invalidator: a.Matcher,
		Mutual:      a.MutualService,
		Sequential:  a.SequentialService,
		Imports:     a.Imports(),
		Uploads:     a.Uploads(),
		Health:      a.Health(),
	}
}

// Close waits for in-flight notifications and releases connections.
func (a *App) Close(ctx context.Context) {
	if a.Notifier != nil {
		if err := a.Notifier.Wait(ctx); err != nil {
			utils.GetLogger().Warn("Pending notifications dropped", zap.Error(err))
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
