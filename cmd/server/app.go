// File: cmd/server/app.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/iyunix/go-chatreveal/internal/config"
	"github.com/iyunix/go-chatreveal/internal/handlers"
	"github.com/iyunix/go-chatreveal/internal/logger"
	"github.com/iyunix/go-chatreveal/internal/metrics"
	"github.com/iyunix/go-chatreveal/internal/ratelimit"
	"github.com/iyunix/go-chatreveal/internal/realtime"
	"github.com/iyunix/go-chatreveal/internal/repository"
	chatrepo "github.com/iyunix/go-chatreveal/internal/repository/chat"
	"github.com/iyunix/go-chatreveal/internal/repository/message"
	"github.com/iyunix/go-chatreveal/internal/services/ai"
	"github.com/iyunix/go-chatreveal/internal/services/chat"
)

// Application aggregates all services and handlers
type Application struct {
	Config       *config.Config
	Logger       logger.Logger
	DB           *gorm.DB
	Registry     *prometheus.Registry
	Metrics      *metrics.Metrics
	Redis        *realtime.RedisBroadcaster
	Generator    ai.Generator
	Orchestrator *chat.Orchestrator
	ChatService  *chat.Service
	ChatHandler  *handlers.ChatHandler
	SendLimiter  *ratelimit.MemoryRateLimiter
}

// NewApplication wires every component from cfg. A missing API key puts the
// orchestrator in echo mode; an unreachable redis disables broadcasting.
func NewApplication(ctx context.Context, cfg *config.Config, log logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewNop()
	}
	app := &Application{Config: cfg, Logger: log}

	db, err := repository.Open(cfg.DatabaseURL, cfg.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := repository.Migrate(db); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	app.DB = db

	storeLog := logger.ForComponent(log, "repository")
	chats := chatrepo.NewChatRepository(db, storeLog)
	messages := message.NewMessageRepository(db, storeLog)

	app.Registry = prometheus.NewRegistry()
	app.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	app.Metrics = metrics.New(app.Registry)

	if cfg.GenerationEnabled() {
		generator, err := ai.NewGenerator(&ai.Config{
			Provider:   cfg.AIProvider,
			APIKey:     cfg.AIAPIKey,
			BaseURL:    cfg.AIBaseURL,
			Model:      cfg.AIModel,
			Timeout:    cfg.AITimeout,
			MaxRetries: cfg.AIMaxRetries,
			RetryDelay: 500 * time.Millisecond,
		})
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("init generator: %w", err)
		}
		app.Generator = generator
	} else {
		log.Info("no API key configured, replies echo the user text")
	}

	var broadcaster realtime.Broadcaster = realtime.NopBroadcaster{}
	if cfg.RedisAddr != "" {
		rb, err := realtime.NewRedisBroadcaster(ctx, cfg.RedisAddr, cfg.RedisChannel, logger.ForComponent(log, "realtime"))
		if err != nil {
			log.Warn("redis unavailable, reveal broadcast disabled", "addr", cfg.RedisAddr, "error", err)
		} else {
			app.Redis = rb
			broadcaster = rb
		}
	}

	chatCfg := chat.DefaultConfig()
	chatCfg.GenerationTimeout = cfg.AITimeout
	chatCfg.RevealDelay = cfg.RevealDelay

	chatLog := logger.ForComponent(log, "chat")
	app.Orchestrator, err = chat.NewOrchestrator(chatCfg, chats, messages, app.Generator, broadcaster, app.Metrics, chatLog)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("init orchestrator: %w", err)
	}
	app.ChatService, err = chat.NewService(chats, messages, chatLog)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("init chat service: %w", err)
	}
	app.ChatHandler, err = handlers.NewChatHandler(app.ChatService, app.Orchestrator, logger.ForComponent(log, "http"))
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("init chat handler: %w", err)
	}
	app.SendLimiter = ratelimit.NewMemoryRateLimiter(ratelimit.DefaultSendConfig(cfg.RateLimitPerMinute))

	return app, nil
}

func (a *Application) Router() http.Handler {
	return handlers.NewRouter(handlers.RouterConfig{
		Chat:           a.ChatHandler,
		Logger:         a.Logger,
		Metrics:        a.Metrics,
		MetricsHandler: promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{}),
		SendLimiter:    a.SendLimiter,
		DefaultUserID:  a.Config.DefaultUserID,
		AllowedOrigins: a.Config.AllowedOrigins,
	})
}

// Close flushes pending reveal broadcasts and releases the database, redis
// and limiter.
func (a *Application) Close() {
	if a.SendLimiter != nil {
		a.SendLimiter.Close()
	}
	if a.Orchestrator != nil {
		a.Orchestrator.Wait()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Warn("redis close failed", "error", err)
		}
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
