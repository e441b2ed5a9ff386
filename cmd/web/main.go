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
	"ad-creative-studio/internal/httpclient"
	"ad-creative-studio/internal/session"
	"ad-creative-studio/internal/studio"
	"ad-creative-studio/internal/webapi"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	if cfg.Credential.IsZero() {
		logger.Warn("no Gemini API key configured; generation will fail until one is set")
	} else {
		logger.Info("Gemini API key resolved", "source", cfg.Credential.Source, "key", cfg.Credential.Masked())
	}

	httpClient := httpclient.New(httpclient.Options{
		PreferIPv4: cfg.PreferIPv4,
		Timeout:    cfg.HTTPTimeout,
		Logger:     logger,
	})

	objects := artifact.NewStore(artifact.Options{})
	sessions := session.NewStore(session.Options{
		NewStudio: func() *studio.Session {
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
		},
	})

	api := webapi.New(webapi.Options{
		Sessions:       sessions,
		Objects:        objects,
		Logger:         logger,
		RequestTimeout: cfg.RequestTimeout,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sessions.RunSweeper(ctx, time.Minute, cfg.SessionIdle, func(removed int) {
		logger.Info("idle sessions removed", "count", removed, "remaining", sessions.Len())
	})

	srv := &http.Server{
		Addr:              cfg.WebAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 30*time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "err", err)
		}
	}()

	logger.Info("web started", "addr", cfg.WebAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "err", err)
		os.Exit(1)
	}
	logger.Info("web stopped")
}
