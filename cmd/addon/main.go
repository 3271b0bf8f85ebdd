package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	slogchi "github.com/samber/slog-chi"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"stremio-cineby/internal"
	"stremio-cineby/internal/cache"
	"stremio-cineby/internal/common"
	"stremio-cineby/internal/config"
	"stremio-cineby/internal/loki"
	"stremio-cineby/pkg/cineby"
)

const serviceName = "stremio-cineby"

func main() {

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(fmt.Errorf("failed to config.Load: %w", err))
	}

	loggerShutdown, err := common.InitLogger(serviceName, internal.Version, cfg.ServiceEnvironment, cfg.OtelExporterEndpoint)
	if err != nil {
		log.Fatal(fmt.Errorf("failed to common.InitLogger: %w", err))
	}

	instrumentationShutdown, err := common.InitInstrumentation(serviceName, internal.Version, cfg.ServiceEnvironment, cfg.OtelExporterEndpoint)
	if err != nil {
		common.Log.Error("Failed to common.InitInstrumentation", "err", err)
		os.Exit(1)
	}

	if err := cache.Open(cfg.CachePath); err != nil {
		common.Log.Error("Failed to cache.Open", "err", err)
		os.Exit(1)
	}

	cinebyClient := cineby.NewCineby(cfg.UpstreamBaseURL, cfg.UpstreamAPIBaseURL, cfg.SessionTTL, common.Log)
	lokiClient := loki.NewLoki(cfg.LokiHost)

	addonService := internal.NewAddonService(cfg.StatsWebsocketChannel, cinebyClient, lokiClient)
	go addonService.StartPollingStats(5 * time.Minute)

	app, err := internal.NewApp(addonService, cfg.AddonHost)
	if err != nil {
		common.Log.Error("Failed to internal.NewApp", "err", err)
		os.Exit(1)
	}

	r := chi.NewRouter()
	r.Use(slogchi.New(common.Log))
	r.Use(httprate.LimitByIP(cfg.RequestsPerMinute, time.Minute))
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
	r.Get("/manifest.json", app.ManifestHandler)
	r.Get("/catalog/{type}/{id}", app.CatalogHandler)
	r.Get("/catalog/{type}/{id}/{extra}", app.CatalogHandler)
	r.Get("/meta/{type}/{id}", app.MetaHandler)
	r.Get("/stream/{type}/{id}", app.StreamHandler)
	r.Get("/health", app.HealthHandler)
	r.Get("/connection/websocket", app.WebsocketHandler)

	srv := &http.Server{
		Addr:    cfg.ServerListenAddr,
		Handler: otelhttp.NewHandler(r, "server"),
	}
	go func() {
		common.Log.Info("Listening", "addr", cfg.ServerListenAddr)
		common.Log.Info("Install at", "url", fmt.Sprintf("%s/manifest.json", cfg.AddonHost))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			common.Log.Error("Failed to http.Server.ListenAndServe", "err", err)
		}
	}()

	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		common.Log.Error("Failed to http server shutdown", "err", err)
	}

	if err := cache.Close(); err != nil {
		common.Log.Error("Failed to cache.Close", "err", err)
	}

	instrumentationShutdown(ctx)
	if err := loggerShutdown(ctx); err != nil {
		log.Println("Failed to logger shutdown:", err)
	}

	common.Log.Info("Bye!")
}
