package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"workshop-announcer/internal/config"
	"workshop-announcer/internal/domain/entity"
	"workshop-announcer/internal/infra/notifier"
	"workshop-announcer/internal/infra/scraper"
	workerPkg "workshop-announcer/internal/infra/worker"
	"workshop-announcer/internal/observability/logging"
	"workshop-announcer/internal/resilience/circuitbreaker"
	"workshop-announcer/internal/usecase/announce"
	"workshop-announcer/internal/usecase/watch"
)

func main() {
	// A missing .env is fine; the process environment still applies.
	_ = godotenv.Load()

	logger := initLogger()

	// Load worker configuration (fail-open strategy)
	workerMetrics := workerPkg.NewWorkerMetrics()
	workerConfig, err := workerPkg.LoadConfigFromEnv(logger, workerMetrics)
	if err != nil {
		logger.Error("failed to load worker configuration", slog.Any("error", err))
		os.Exit(1)
	}
	workerMetrics.RecordStart(workerConfig.DryRun)

	cfgPath := config.PathFromEnv()
	workshopConfig, err := config.LoadWorkshopConfig(cfgPath)
	if err != nil {
		fatal(logger, "failed to load config file", err, slog.String("path", cfgPath))
	}
	schedule, err := workshopConfig.Schedule()
	if err != nil {
		fatal(logger, "invalid poll schedule", err)
	}
	logger.Info("configuration loaded",
		slog.String("path", cfgPath),
		slog.Int64("channel_id", workshopConfig.AnnouncementChannelID),
		slog.Duration("refresh_interval", workshopConfig.RefreshInterval),
		slog.String("poll_schedule", workshopConfig.PollSchedule),
		slog.Int("description_limit", workshopConfig.DescriptionLimit),
		slog.Int("detail_max_concurrent", workerConfig.DetailMaxConcurrent),
		slog.Duration("request_timeout", workerConfig.RequestTimeout),
		slog.Duration("cycle_timeout", workerConfig.CycleTimeout),
		slog.Bool("dry_run", workerConfig.DryRun))

	sender, err := createNotifier(logger, workerConfig)
	if err != nil {
		fatal(logger, "failed to initialize notifier", err)
	}

	// Context for graceful shutdown on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	resolveCtx, cancelResolve := context.WithTimeout(ctx, 2*workerConfig.RequestTimeout)
	channel, err := sender.ResolveChannel(resolveCtx, workshopConfig.AnnouncementChannelID)
	cancelResolve()
	if err != nil {
		fatal(logger, "failed to resolve announcement channel", err,
			slog.Int64("channel_id", workshopConfig.AnnouncementChannelID))
	}
	logger.Info("announcement channel resolved",
		slog.Int64("channel_id", channel.ID),
		slog.String("channel", channel.Name),
		slog.String("guild", channel.GuildName))

	poller := setupPoller(logger, workshopConfig, workerConfig, sender, schedule)

	startMetricsServer(ctx, logger, workerConfig.MetricsPort, poller)

	healthAddr := fmt.Sprintf(":%d", workerConfig.HealthPort)
	healthServer := workerPkg.NewHealthServer(healthAddr, logger, workerMetrics)
	go func() {
		if err := healthServer.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()

	healthServer.SetReady(true)
	logger.Info("worker started",
		slog.String("listing_url", workshopConfig.ListingURL+workshopConfig.CatalogFilter))

	if err := poller.Run(ctx); err != nil {
		logger.Error("poller stopped with error", slog.Any("error", err))
	}
	healthServer.SetReady(false)
	logger.Info("worker stopped")
}

// initLogger builds the process logger and installs it as the slog default.
func initLogger() *slog.Logger {
	logger := logging.NewLogger()
	slog.SetDefault(logger)
	return logger
}

// fatal logs err and exits with status 1. Configuration errors are reported
// with the offending field.
func fatal(logger *slog.Logger, msg string, err error, attrs ...any) {
	var cfgErr *entity.ConfigError
	if errors.As(err, &cfgErr) {
		attrs = append(attrs, slog.String("field", cfgErr.Field))
	}
	attrs = append(attrs, slog.Any("error", err))
	logger.Error(msg, attrs...)
	os.Exit(1)
}

// createNotifier returns the Discord client, or the logging stand-in when
// DRY_RUN is set. DISCORD_BOT_TOKEN is only required for the former.
func createNotifier(logger *slog.Logger, cfg *workerPkg.WorkerConfig) (notifier.Notifier, error) {
	if cfg.DryRun {
		logger.Warn("dry-run mode: announcements are logged, not posted")
		return notifier.NewDryRunNotifier(logger), nil
	}

	token := strings.TrimSpace(os.Getenv("DISCORD_BOT_TOKEN"))
	if token == "" {
		return nil, &entity.ConfigError{Field: "DISCORD_BOT_TOKEN", Message: "environment variable must be set"}
	}
	return notifier.NewDiscordNotifier(notifier.DiscordConfig{
		Token:   token,
		Timeout: cfg.RequestTimeout,
	}), nil
}

// setupPoller wires scrapers, dispatcher and detector into the poll loop.
// Listing and detail fetches share one breaker: both hit the same site.
func setupPoller(
	logger *slog.Logger,
	wc *config.WorkshopConfig,
	cfg *workerPkg.WorkerConfig,
	sender announce.Sender,
	schedule cron.Schedule,
) *watch.Poller {
	client := createScraperHTTPClient(cfg.RequestTimeout)
	breaker := circuitbreaker.New(circuitbreaker.WorkshopScraperConfig())

	catalog := scraper.NewCatalogScraper(client, breaker, wc.ListingURL, wc.CatalogFilter)
	details := scraper.NewDetailScraper(client, breaker, scraper.DetailConfig{
		DetailURL:        wc.DetailURL,
		ListingURL:       wc.ListingURL,
		DescriptionLimit: wc.DescriptionLimit,
	})
	dispatcher := announce.NewDispatcher(sender, announce.Config{
		ChannelID:    wc.AnnouncementChannelID,
		ShowUserTags: wc.ShowUserTags,
	})

	return watch.NewPoller(catalog, details, dispatcher, watch.NewDetector(), watch.Config{
		Schedule:          schedule,
		AnnounceDelay:     wc.AnnounceDelay,
		DetailConcurrency: cfg.DetailMaxConcurrent,
		CycleTimeout:      cfg.CycleTimeout,
	}, logger)
}

// createScraperHTTPClient creates an HTTP client with timeouts and connection
// pooling. TLS 1.2+ is enforced.
func createScraperHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        20,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
}
