package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gonkalabs/gonka-redact-go/internal/api"
	"github.com/gonkalabs/gonka-redact-go/internal/app"
	"github.com/gonkalabs/gonka-redact-go/internal/config"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config error", "err", err)
		os.Exit(1)
	}

	level, err := app.ParseLevel(cfg.LogLevel)
	if err != nil {
		slog.Error("config error", "err", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	a, err := app.Build(cfg)
	if err != nil {
		slog.Error("startup error", "err", err)
		os.Exit(1)
	}
	defer a.Close()

	var exports api.ExportLog
	if a.Audit != nil {
		exports = a.Audit
	}
	handler := api.New(a.Session, exports, cfg.MaxUploadBytes())

	mux := http.NewServeMux()
	handler.Register(mux)

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      mux,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 300 * time.Second, // uploads wait on the classifier budget
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)

		shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutCancel()

		if err := srv.Shutdown(shutCtx); err != nil {
			slog.Error("shutdown error", "err", err)
		}
	}()

	slog.Info("starting redaction server",
		"addr", cfg.ListenAddr,
		"classifiers", a.Suggester.Len(),
		"attest", a.Signer != nil,
		"audit", a.Audit != nil,
		"mask", string(cfg.MaskChar),
	)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "err", err)
		a.Close()
		os.Exit(1)
	}
}
