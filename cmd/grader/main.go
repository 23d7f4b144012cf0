package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/driftline/sentry/internal/cache"
	"github.com/driftline/sentry/internal/config"
	"github.com/driftline/sentry/internal/grader"
	"github.com/driftline/sentry/internal/history"
	"github.com/driftline/sentry/internal/httpapi"
	"github.com/driftline/sentry/internal/logging"
	"github.com/driftline/sentry/internal/provider"
	"github.com/driftline/sentry/internal/registry"
)

func main() {
	fmt.Println("=== Sentry Grader ===")

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

	log := logging.New(cfg.Logging, "grader")

	c := cache.New(cfg.Cache, log)
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := c.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to connect to cache")
	}

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

	g := grader.New(cfg.Grader, reg, prov, histStore, c, log)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info().Msg("received shutdown signal")
		cancel()
	}()

	if cfg.HTTP.Enabled {
		srv := httpapi.New(cfg.HTTP, c, histStore, nil, log)
		httpServer := &http.Server{Addr: fmt.Sprintf(":%d", cfg.HTTP.Port+1), Handler: srv.Handler()}
		go func() {
			log.Info().Int("port", cfg.HTTP.Port+1).Msg("diagnostics server listening")
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("diagnostics server error")
			}
		}()
		go func() {
			<-ctx.Done()
			httpServer.Close()
		}()
	}

	g.Run(ctx)
}
