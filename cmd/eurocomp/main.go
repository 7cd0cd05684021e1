package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/use-agent/eurocomp/api"
	"github.com/use-agent/eurocomp/config"
	"github.com/use-agent/eurocomp/extractor"
	"github.com/use-agent/eurocomp/scraper"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

// run starts the service and blocks until shutdown. Errors are logged before
// they are returned; deferred cleanup such as closing the browser runs on
// every path.
func run() error {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		return err
	}
	slog.Info("eurocomp starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"navigator", cfg.Scraper.Navigator,
		"maxPages", cfg.Browser.MaxPages,
		"domain", cfg.Extract.AllowedDomain,
	)

	// ── 3. Build the extractor from the selector profile ────────────
	ex, err := newExtractor(cfg.Extract)
	if err != nil {
		slog.Error("failed to load selector profile", "error", err)
		return err
	}

	// ── 4. Initialise the navigator (may launch the browser) ───────
	var nav scraper.Navigator
	switch cfg.Scraper.Navigator {
	case "http":
		nav = scraper.NewHTTPNavigator(cfg.Scraper.RenderTimeout, cfg.Browser.DefaultProxy)
	default:
		sc, err := scraper.NewScraper(cfg.Browser, cfg.Scraper)
		if err != nil {
			slog.Error("failed to initialise scraper", "error", err)
			return err
		}
		defer sc.Close()
		nav = sc
	}

	// ── 5. Setup router ─────────────────────────────────────────────
	startTime := time.Now()
	handler := api.NewHandler(nav, ex, cfg, startTime)

	// ── 6. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	// ── 7. Graceful shutdown ────────────────────────────────────────
	// A failed listen returns through the deferred sc.Close().
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		slog.Info("shutdown signal received", "signal", sig.String())
	case err := <-serveErr:
		slog.Error("HTTP server error", "error", err)
		return err
	}

	// Give in-flight requests 5 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	slog.Info("eurocomp stopped")
	return nil
}

// newExtractor merges the optional selectors file over the built-in profile.
func newExtractor(cfg config.ExtractConfig) (*extractor.Extractor, error) {
	sel, err := config.LoadSelectors(cfg.SelectorsFile)
	if err != nil {
		return nil, err
	}
	profile, err := extractor.NewProfile(extractor.Selectors{
		Name:        sel.Name,
		Price:       sel.Price,
		Image:       sel.Image,
		Description: sel.Description,
	})
	if err != nil {
		return nil, err
	}
	if cfg.SelectorsFile != "" {
		slog.Info("selector profile loaded", "file", cfg.SelectorsFile)
	}

	return extractor.New(profile, extractor.Options{
		Rates: extractor.Rates{
			TaxFactor:    cfg.TaxFactor,
			ExchangeRate: cfg.ExchangeRate,
			TaxFirst:     cfg.TaxFirst,
		},
		DescriptionLimit: cfg.DescriptionLimit,
	}), nil
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
