package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"ad-creative-studio/internal/artifact"
	"ad-creative-studio/internal/config"
	"ad-creative-studio/internal/gemini"
	"ad-creative-studio/internal/handlers"
	"ad-creative-studio/internal/httpclient"
	"ad-creative-studio/internal/mediagroup"
	"ad-creative-studio/internal/session"
	"ad-creative-studio/internal/studio"
	"ad-creative-studio/internal/telegram"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if err := cfg.RequireTelegram(); err != nil {
		panic(err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	logCredential(logger, cfg)

	httpClient := httpclient.New(httpclient.Options{
		PreferIPv4: cfg.PreferIPv4,
		Timeout:    cfg.HTTPTimeout,
		Logger:     logger,
	})

	tg, err := telegram.New(telegram.Options{
		Token:      cfg.TelegramToken,
		HTTPClient: httpClient,
		Logger:     logger,
		Debug:      cfg.Debug,
	})
	if err != nil {
		logger.Error("telegram init failed", "err", err)
		os.Exit(1)
	}

	objects := artifact.NewStore(artifact.Options{})
	var handler *handlers.Handler
	sessions := session.NewStore(session.Options{
		NewStudio: newStudio(cfg, httpClient, objects, logger),
		OnEvict:   func(id string) { handler.ForgetSession(id) },
	})

	handler = handlers.New(handlers.Options{
		Telegram: tg,
		Sessions: sessions,
		Logger:   logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sessions.RunSweeper(ctx, time.Minute, cfg.SessionIdle, func(removed int) {
		logger.Info("idle sessions removed", "count", removed, "remaining", sessions.Len())
	})

	sem := make(chan struct{}, cfg.MaxConcurrent)
	onGroupFlush := func(group mediagroup.Group) {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			return
		}

		go func() {
			defer func() { <-sem }()

			reqCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
			defer cancel()

			handler.HandleMediaGroup(reqCtx, group)
		}()
	}

	aggregator := mediagroup.New(mediagroup.Options{
		Debounce: cfg.MediaGroupDebounce,
		OnFlush:  onGroupFlush,
	})
	defer aggregator.Stop()
	handler.SetMediaGroupAggregator(aggregator)

	logger.Info("bot started", "username", tg.Username())

	updates := tg.Updates(telegram.UpdatesOptions{
		Timeout: 30 * time.Second,
	})
	defer tg.StopUpdates()

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return
		case update, ok := <-updates:
			if !ok {
				logger.Info("updates channel closed")
				return
			}

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}

			go func(update telegram.Update) {
				defer func() { <-sem }()

				reqCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
				defer cancel()

				if err := handler.HandleUpdate(reqCtx, update); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("handle update failed", "update_id", update.UpdateID, "err", err)
				}
			}(update)
		}
	}
}

// newStudio gives every session its own Gemini client, so the single-flight
// guard is per user.
func newStudio(cfg config.Config, httpClient *http.Client, objects *artifact.Store, logger *slog.Logger) func() *studio.Session {
	return func() *studio.Session {
		gem := gemini.New(gemini.Options{
			Credential:   cfg.Credential,
			BaseURL:      cfg.GeminiBaseURL,
			APIVersion:   cfg.GeminiAPIVersion,
			ImageModel:   cfg.GeminiImageModel,
			VideoModel:   cfg.GeminiVideoModel,
			HTTPClient:   httpClient,
			Logger:       logger,
			Objects:      objects,
			PollInterval: cfg.VideoPollInterval,
		})
		return studio.New(studio.Options{
			Generator:      gem,
			Objects:        objects,
			Logger:         logger,
			DownloadPrefix: cfg.DownloadPrefix,
		})
	}
}

func logCredential(logger *slog.Logger, cfg config.Config) {
	if cfg.Credential.IsZero() {
		logger.Warn("no Gemini API key configured; generation will fail until one is set")
		return
	}
	logger.Info("Gemini API key resolved", "source", cfg.Credential.Source, "key", cfg.Credential.Masked())
	if !cfg.Credential.LooksValid() {
		logger.Warn("Gemini API key does not look like a Google key", "source", cfg.Credential.Source)
	}
}
