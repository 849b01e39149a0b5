package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/ogero/stremio-cartoony/internal"
	"github.com/ogero/stremio-cartoony/internal/cache"
	"github.com/ogero/stremio-cartoony/internal/common"
	"github.com/ogero/stremio-cartoony/internal/config"
	"github.com/ogero/stremio-cartoony/internal/loki"
	"github.com/ogero/stremio-cartoony/pkg/cartoony"
	"github.com/ogero/stremio-cartoony/pkg/extractor"
	"github.com/ogero/stremio-cartoony/pkg/transport"
	slogchi "github.com/samber/slog-chi"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

func main() {
	if err := run(); err != nil {
		common.Log.Error("Failed to run", "err", err)
		os.Exit(1)
	}
}

func run() error {

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to config.Load: %w", err)
	}

	loggerShutdown, err := common.InitLogger(cfg.ServiceName, cfg.ServiceVersion, cfg.ServiceEnvironment, cfg.OTLPEndpoint, cfg.LogFile)
	if err != nil {
		return fmt.Errorf("failed to common.InitLogger: %w", err)
	}
	defer func() { _ = loggerShutdown(context.Background()) }()

	if cfg.OTLPEndpoint != "" {
		instrumentationShutdown, err := common.InitInstrumentation(cfg.ServiceName, cfg.ServiceVersion, cfg.ServiceEnvironment, cfg.OTLPEndpoint)
		if err != nil {
			return fmt.Errorf("failed to common.InitInstrumentation: %w", err)
		}
		defer instrumentationShutdown(context.Background())
	}

	c, err := cache.Open(cfg.CacheDir)
	if err != nil {
		return fmt.Errorf("failed to cache.Open: %w", err)
	}
	defer func() {
		if err := c.Close(); err != nil {
			common.Log.Error("Failed to cache.Close", "err", err)
		}
	}()

	scraper := cartoony.NewCartoony(cfg.CartoonyBaseURL, newSiteClient(cfg), extractor.NewRegistry())

	var statsSource loki.Loki
	if cfg.LokiHost != "" {
		statsSource = loki.NewLoki(cfg.LokiHost, cfg.ServiceName)
	}

	stremioService, err := internal.NewStremioService(cfg.StatsWebsocketChannel, cfg.CartoonyBaseURL, scraper, c, statsSource)
	if err != nil {
		return fmt.Errorf("failed to internal.NewStremioService: %w", err)
	}

	pollCtx, stopPolling := context.WithCancel(context.Background())
	defer stopPolling()
	go stremioService.StartPollingStats(pollCtx, 5*time.Minute)

	app, err := internal.NewApp(stremioService, cfg.AddonHost)
	if err != nil {
		return fmt.Errorf("failed to internal.NewApp: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(slogchi.New(common.Log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET"},
		AllowedHeaders: []string{
			"Content-Type",
			"X-Requested-With",
			"Accept",
			"Accept-Language",
			"Accept-Encoding",
			"Content-Language",
			"Origin",
		},
		MaxAge: 300,
	}))
	app.Routes(r)

	// Listen
	srv := &http.Server{
		Addr:    cfg.ServerListenAddr,
		Handler: otelhttp.NewHandler(r, "addon"),
	}
	go func() {
		common.Log.Info("Listening", "addr", cfg.ServerListenAddr)
		common.Log.Info("Install", "url", fmt.Sprintf("%s/manifest.json", app.AddonHost))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			common.Log.Error("Failed to http.Server.ListenAndServe", "err", err)
			quit <- syscall.SIGTERM
		}
	}()

	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		common.Log.Error("Failed to http server shutdown", "err", err)
	}
	if err := stremioService.Shutdown(ctx); err != nil {
		common.Log.Error("Failed to internal.StremioService.Shutdown", "err", err)
	}

	common.Log.Info("Bye!")

	return nil
}

// newSiteClient builds the HTTP client used against the scraped site.
func newSiteClient(cfg *config.Config) *http.Client {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 100
	t.MaxConnsPerHost = 100
	t.MaxIdleConnsPerHost = 100

	var rt http.RoundTripper = transport.NewModifyHeadersRoundTripper(t,
		transport.WithAcceptLanguage("ar,en;q=0.8"),
		transport.WithAccept("text/html,application/xhtml+xml;q=0.9,*/*;q=0.8"),
		transport.WithUserAgent("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)
	if cfg.OutboundRPS > 0 {
		rt = transport.NewRateLimitedRoundTripper(rt, rate.NewLimiter(rate.Limit(cfg.OutboundRPS), 1))
	}

	return &http.Client{
		Timeout:   cfg.HTTPTimeout,
		Transport: otelhttp.NewTransport(rt),
	}
}
