package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"marketboard/internal/app"
	"marketboard/internal/config"
	"marketboard/internal/logging"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		// logger is not built yet
		zap.NewExample().Fatal("config", zap.Error(err))
	}
	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		zap.NewExample().Fatal("logger", zap.Error(err))
	}
	defer func() { _ = log.Sync() }()

	if cfg.AlphaVantage.APIKey == "" {
		log.Warn("API_KEY not set; every dashboard request will fail until it is configured")
	}

	fetcher := app.NewFetcher(cfg, log)
	a := &api{
		svc:     app.NewService(cfg, fetcher, log),
		log:     log.Named("http"),
		timeout: cfg.Server.RequestTimeout(),
		maxAge:  cfg.Server.CacheMaxAgeSec,
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           a.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      writeTimeout(cfg),
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr), zap.Bool("enrichment", cfg.Enrichment.Enabled))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server", zap.Error(err))
		}
	}()

	// graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown", zap.Error(err))
	}
}

// writeTimeout leaves room for the primary vendor call, which the request
// timeout bounds, plus a full enrichment pass after it.
func writeTimeout(cfg config.Config) time.Duration {
	d := cfg.Server.RequestTimeout() + 5*time.Second
	if cfg.Enrichment.Enabled {
		d += cfg.Enrichment.Budget()
	}
	return d
}
