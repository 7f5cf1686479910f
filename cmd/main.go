package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rubyocorrencia-DRACO/Ruby-assistente-de-ocorrencia/internal/access"
	"github.com/rubyocorrencia-DRACO/Ruby-assistente-de-ocorrencia/internal/bot"
	"github.com/rubyocorrencia-DRACO/Ruby-assistente-de-ocorrencia/internal/cache"
	"github.com/rubyocorrencia-DRACO/Ruby-assistente-de-ocorrencia/internal/config"
	"github.com/rubyocorrencia-DRACO/Ruby-assistente-de-ocorrencia/internal/conversation"
	"github.com/rubyocorrencia-DRACO/Ruby-assistente-de-ocorrencia/internal/i18n"
	"github.com/rubyocorrencia-DRACO/Ruby-assistente-de-ocorrencia/internal/metrics"
	"github.com/rubyocorrencia-DRACO/Ruby-assistente-de-ocorrencia/internal/registration"
	"github.com/rubyocorrencia-DRACO/Ruby-assistente-de-ocorrencia/internal/repository"
	"github.com/rubyocorrencia-DRACO/Ruby-assistente-de-ocorrencia/internal/server"
	"github.com/rubyocorrencia-DRACO/Ruby-assistente-de-ocorrencia/internal/ticket"
)

// Constants for different environment types.
const (
	envLocal = "local"
	envDev   = "development"
	envProd  = "production"
)

// main is the entry point of the application.
func main() {
	// Create a context that will be canceled when an interrupt signal is received.
	// This allows for graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load application configuration.
	cfg := config.MustLoad()

	// Set up the logger based on the environment.
	logger := setupLogger(cfg.Env)

	// Create a separate registry for metrics with exemplar
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.NewMetrics(reg)

	store, closeStore, err := openStore(ctx, logger, cfg)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer closeStore()

	redisClient, err := openRedis(ctx, logger, cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}
	reports := cache.NewReportCache(logger, redisClient, appMetrics, cfg.Redis.CacheTTL)

	localizer, err := i18n.NewLocalizer()
	if err != nil {
		log.Fatalf("Failed to initialize localizer: %v", err)
	}

	gate := access.NewGate(logger, store, cfg.MasterID)

	options := []ticket.Option{}
	if reports.Enabled() {
		options = append(options, ticket.WithReportCache(reports))
	}
	tickets := ticket.NewManager(logger, store, gate, appMetrics, localizer, options...)

	sessions := registration.NewSessionStore(cfg.Session.TTL, nil)
	machine := registration.NewMachine(logger, sessions, store, nil)

	window := cfg.History.Window
	if window == 0 {
		window = -1
	}
	router := conversation.NewRouter(logger, machine, tickets, gate, store, localizer, appMetrics, conversation.Config{
		Language:      cfg.Language,
		HistoryWindow: window,
		HistoryLimit:  cfg.History.Limit,
	})

	rubyBot, err := bot.NewBot(logger, router, appMetrics, bot.Settings{
		Token:      cfg.Telegram.Token,
		Poller:     cfg.Telegram.PollerTimeout,
		WebhookURL: cfg.Telegram.WebhookURL,
		Listen:     cfg.Telegram.Listen,
	})
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}

	// Log that the application has started.
	logger.InfoContext(ctx, "Application started. Press Ctrl+C to stop.",
		"storage", cfg.Storage, "report_cache", reports.Enabled(), "master", cfg.MasterID != 0)

	// Start the bot in a goroutine to allow main to listen for signals.
	go rubyBot.Start()

	// Expire abandoned registrations.
	go sessions.RunSweeper(ctx, logger, cfg.Session.SweepInterval)

	// Start the monitoring server
	checks := []server.Check{{Name: "storage", Target: store}}
	if reports.Enabled() {
		checks = append(checks, server.Check{Name: "cache", Target: reports})
	}
	go server.StartMonitoringServer(ctx, logger, reg, cfg.MonitoringPort, checks...)

	// Wait for the context to be canceled (e.g., by Ctrl+C).
	<-ctx.Done()

	// Log that a shutdown signal has been received.
	logger.InfoContext(ctx, "Shutdown signal received. Stopping application...")

	// Stop the bot gracefully.
	rubyBot.Stop()

	// Log graceful shutdown completion.
	logger.InfoContext(ctx, "Application stopped gracefully.")
}

// openStore connects the configured storage backend and returns it with its cleanup.
func openStore(ctx context.Context, logger *slog.Logger, cfg *config.Config) (repository.Store, func(), error) {
	if cfg.Storage == config.StorageMemory {
		logger.WarnContext(ctx, "Using in-memory storage, data is lost on restart")
		return repository.NewMemory(), func() {}, nil
	}

	dtb, err := repository.NewDatabase(
		cfg.Database.Host, cfg.Database.Port, cfg.Database.User, cfg.Database.Password, cfg.Database.Name,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to DB: %w", err)
	}

	const schemaTimeout = 10 * time.Second
	schemaCtx, cancel := context.WithTimeout(ctx, schemaTimeout)
	defer cancel()
	if err = repository.EnsureSchema(schemaCtx, dtb); err != nil {
		dtb.Close()
		return nil, nil, err
	}

	return repository.NewRepository(dtb), dtb.Close, nil
}

// openRedis returns nil when no redis address is configured.
func openRedis(ctx context.Context, logger *slog.Logger, cfg config.RedisConfig) (*redis.Client, error) {
	if cfg.Addr == "" {
		logger.InfoContext(ctx, "Redis address is empty, report cache disabled")
		return nil, nil
	}
	return cache.NewRedisClient(ctx, cfg.Addr, cfg.Timeout)
}

// setupLogger initializes and returns a logger based on the environment provided.
func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
				Level:     slog.LevelDebug,
				AddSource: true,
				ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
					return a
				},
			}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level:     slog.LevelInfo,
				AddSource: false,
				ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
					return a
				},
			}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level:     slog.LevelWarn,
				AddSource: false,
				ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
					if a.Key == slog.TimeKey {
						return slog.Attr{}
					}
					return a
				},
			}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level:     slog.LevelError,
				AddSource: false,
				ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
					if a.Key == slog.TimeKey {
						return slog.Attr{}
					}
					return a
				},
			}),
		)

		log.Error(
			"The env parameter was not specified	 or was invalid. Logging will be minimal, by default.",
			slog.String("available_envs", "local, development, production"))
	}

	return log
}
