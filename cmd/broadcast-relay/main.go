// Command broadcast-relay fans scene updates out to every collaborator on
// the same document or drawing, and periodically persists the latest scene
// to the configured save endpoint.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/lexidraw/collab-relay/internal/broadcast"
	"github.com/lexidraw/collab-relay/internal/config"
	"github.com/lexidraw/collab-relay/internal/httpserver"
	"github.com/lexidraw/collab-relay/internal/metrics"
	"github.com/lexidraw/collab-relay/internal/persist"
)

var (
	// Set via -ldflags at build time. Values may be empty in local/dev builds.
	buildCommit = ""
	buildTime   = ""
)

func main() {
	cfg, err := config.Load(config.ServiceBroadcast, os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger, err := config.NewLogger(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	slog.SetDefault(logger)

	logger.Info("starting broadcast-relay",
		"listen_addr", cfg.ListenAddr,
		"mode", cfg.Mode,
		"max_message_bytes", cfg.MaxMessageBytes,
		"max_messages_per_second", cfg.MaxMessagesPerSecond,
		"save_url_set", cfg.SaveURL != "",
		"save_debounce", cfg.SaveDebounce,
	)

	m := metrics.New()

	var saver persist.Saver
	if cfg.SaveURL != "" {
		saver = persist.NewHTTPSink(cfg.SaveURL, cfg.SaveToken, nil)
	} else {
		logger.Warn("no save URL configured, scene snapshots will be discarded")
		saver = persist.NewLogSink(logger)
	}
	coalescer := persist.NewCoalescer(persist.CoalescerConfig{
		Saver:   saver,
		Window:  cfg.SaveDebounce,
		Timeout: cfg.SaveTimeout,
		Logger:  logger,
		Metrics: m,
	})
	defer coalescer.Close()

	ws := broadcast.NewServer(broadcast.Config{
		Sink:                 coalescer,
		Logger:               logger,
		Metrics:              m,
		MaxMessageBytes:      cfg.MaxMessageBytes,
		MaxMessagesPerSecond: cfg.MaxMessagesPerSecond,
		AllowedOrigins:       cfg.AllowedOrigins,
	})

	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		logger.Error("failed to listen", "err", err)
		os.Exit(1)
	}

	commit, builtAt := resolveBuildInfo(buildCommit, buildTime)
	srv := httpserver.New(cfg, logger, httpserver.BuildInfo{Commit: commit, BuildTime: builtAt})
	ws.RegisterRoutes(srv.Mux())
	srv.Mux().Handle("GET /metrics", metrics.PrometheusHandler(m))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server exited", "err", err)
			os.Exit(1)
		}
		return
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", "err", err)
	}

	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server exited after shutdown", "err", err)
		os.Exit(1)
	}
}

func resolveBuildInfo(commit, buildTime string) (string, string) {
	// Prefer ldflags-injected values (production builds) but fall back to the
	// Go build info when available (useful for `go run` / dev builds).
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if commit == "" {
					commit = s.Value
				}
			case "vcs.time":
				if buildTime == "" {
					buildTime = s.Value
				}
			}
		}
	}
	return commit, buildTime
}
