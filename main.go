package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"royale-server/internal/config"
	"royale-server/internal/logging"
	"royale-server/internal/metrics"
	"royale-server/internal/rules"
	"royale-server/internal/store"
)

func main() {
	cfgPath := flag.String("config", os.Getenv("ROYALE_CONFIG"), "path to the config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logging.New(cfg.Log.Level, cfg.Log.Pretty, os.Stdout)

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
	log.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg config.Config, log zerolog.Logger) error {
	mt, err := metrics.New()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	deps := rules.Deps{Settings: cfg.Rules.Settings}
	scripts := cfg.Rules.Scripts

	if cfg.Rules.Settings.StageFile != "" {
		stages, err := rules.LoadStages(cfg.Rules.Settings.StageFile)
		if err != nil {
			return err
		}
		deps.Stages = stages
	}

	if cfg.Store.Enabled {
		db, err := store.Open(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer db.Close()
		joins, err := store.NewJoinLog(db, cfg.Store.Join, log)
		if err != nil {
			return err
		}
		defer joins.Close()
		deps.Joins = joins
		log.Info().Str("path", cfg.Store.Path).Msg("join log opened")
	} else if i := slices.Index(scripts, rules.NameJoinTracking); i >= 0 {
		log.Warn().Msg("store disabled, join tracking turned off")
		scripts = slices.Delete(slices.Clone(scripts), i, i+1)
	}

	sessions := NewSessionManager(SessionOptions{
		Match:      cfg.Match,
		Scripts:    scripts,
		Rules:      deps,
		MaxMatches: cfg.Server.MaxMatches,
		Watchdog:   cfg.Server.WatchdogTimeout,
		Logger:     log,
		Metrics:    mt,
	})
	defer sessions.Close()

	// fail fast on a rule set that cannot build
	if _, err := rules.Build(scripts, deps); err != nil {
		return err
	}

	hub := NewHub(sessions, cfg.Server.MaxConnsPerIP, cfg.Server.SendBuffer, log)

	g, gctx := errgroup.WithContext(ctx)
	server := &http.Server{Addr: cfg.Server.Addr, Handler: SetupRoutes(gctx, hub)}

	g.Go(func() error {
		log.Info().Str("addr", cfg.Server.Addr).Strs("scripts", scripts).Msg("server starting")
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error { return hub.Run(gctx) })
	g.Go(func() error { return sessions.Watch(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
