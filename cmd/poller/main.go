package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/driftline/sentry/internal/alert"
	"github.com/driftline/sentry/internal/alert/dispatch"
	"github.com/driftline/sentry/internal/cache"
	"github.com/driftline/sentry/internal/confidence"
	"github.com/driftline/sentry/internal/config"
	"github.com/driftline/sentry/internal/fingerprint"
	"github.com/driftline/sentry/internal/history"
	"github.com/driftline/sentry/internal/httpapi"
	"github.com/driftline/sentry/internal/logging"
	"github.com/driftline/sentry/internal/normalizer"
	"github.com/driftline/sentry/internal/poller"
	"github.com/driftline/sentry/internal/provider"
	"github.com/driftline/sentry/internal/registry"
)

func main() {
	fmt.Println("=== Sentry Poller ===")

	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("invalid config: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(cfg.Logging, "poller")

	c := cache.New(cfg.Cache, log)
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := c.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to connect to cache")
	}
	log.Info().Msg("connected to cache")

	histStore, err := history.Open(cfg.History)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open history store")
	}
	defer histStore.Close()
	if err := histStore.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to connect to history store")
	}
	log.Info().Msg("connected to history store")

	reg := registry.New(registry.DefaultSeed{}, c, log)
	prov := provider.New(cfg.Provider, log)
	norm := normalizer.New(reg)
	fp := fingerprint.New(reg)
	conf := confidence.New(cfg.Confidence)

	var dispatchers []dispatch.Dispatcher
	if cfg.Alert.SlackWebhookURL != "" {
		dispatchers = append(dispatchers, dispatch.NewSlackDispatcher(cfg.Alert.SlackWebhookURL, log))
	}
	wsDispatcher := dispatch.NewWebSocketDispatcher(log)
	dispatchers = append(dispatchers, wsDispatcher)
	go wsDispatcher.Run(ctx)

	engine := alert.New(c, dispatch.NewFanout(log, dispatchers...), cfg.Alert, log)

	p := poller.New(cfg.Poller, cfg.ClosingLine, reg, prov, norm, fp, conf, engine, histStore, c, log)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("received shutdown signal")
		cancel()
	}()

	if cfg.HTTP.Enabled {
		srv := httpapi.New(cfg.HTTP, c, histStore, nil, log)
		mux := http.NewServeMux()
		mux.Handle("/", srv.Handler())
		mux.Handle("/ws/alerts", wsDispatcher)
		httpServer := &http.Server{Addr: fmt.Sprintf(":%d", cfg.HTTP.Port), Handler: mux}
		go func() {
			log.Info().Int("port", cfg.HTTP.Port).Msg("diagnostics server listening")
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("diagnostics server error")
			}
		}()
		go func() {
			<-ctx.Done()
			httpServer.Close()
		}()
	}

	p.Run(ctx)
}
