package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/spinforge/outcome-engine/internal/config"
	"github.com/spinforge/outcome-engine/internal/downstream"
	"github.com/spinforge/outcome-engine/internal/events"
	"github.com/spinforge/outcome-engine/internal/generator"
	"github.com/spinforge/outcome-engine/internal/kvstore"
	"github.com/spinforge/outcome-engine/internal/logger"
	"github.com/spinforge/outcome-engine/internal/store"
)

func main() {
	root := &cobra.Command{
		Use:   "engine",
		Short: "Crash outcome generation engine",
	}

	var configPath string
	var debug bool
	root.PersistentFlags().StringVar(&configPath, "config", "configs/config.yaml", "path to config file")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logs")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the outcome engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEngine(configPath, debug)
		},
	}

	inspectCmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print the latest persisted rounds",
		RunE: func(cmd *cobra.Command, args []string) error {
			return inspectStore(configPath)
		},
	}

	root.AddCommand(runCmd, inspectCmd)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runEngine(configPath string, debug bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger.Init(&logger.Options{Level: level, TimeFormat: time.RFC3339})
	logger.Info("Config loaded", "path", configPath)

	kv, err := kvstore.NewBadgerStore(cfg.Engine.Storage.Directory)
	if err != nil {
		return fmt.Errorf("badger init: %w", err)
	}
	roundStore := store.NewRoundStore(kv)
	defer roundStore.Close()

	client := downstream.NewClient(cfg.Engine.Downstream)

	var emitter generator.Emitter
	var natsEmitter *events.Emitter
	if cfg.Engine.NATS.URL != "" {
		natsEmitter, err = events.NewEmitter(cfg.Engine.NATS.URL, cfg.Engine.NATS.SubjectPrefix)
		if err != nil {
			return fmt.Errorf("emitter init: %w", err)
		}
		defer natsEmitter.Close()
		emitter = natsEmitter
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	controller, err := generator.NewController(cfg.Engine, rng, roundStore, client, emitter)
	if err != nil {
		return fmt.Errorf("controller init: %w", err)
	}

	if err := controller.Start(); err != nil {
		return fmt.Errorf("controller start: %w", err)
	}

	server := startHTTPServer(cfg.Engine.HTTPPort, controller, roundStore)

	logger.Info("Engine is running... Press Ctrl+C to stop")
	waitForShutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "err", err)
	}
	controller.Stop()
	logger.Info("Engine stopped")
	return nil
}

func inspectStore(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.Init(&logger.Options{Level: slog.LevelInfo, TimeFormat: time.RFC3339})

	kv, err := kvstore.NewBadgerStore(cfg.Engine.Storage.Directory)
	if err != nil {
		return fmt.Errorf("badger init: %w", err)
	}
	roundStore := store.NewRoundStore(kv)
	defer roundStore.Close()

	max, ok, err := roundStore.MaxRoundNumber()
	if err != nil {
		return fmt.Errorf("max round: %w", err)
	}
	if !ok {
		fmt.Println("no rounds persisted")
		return nil
	}
	fmt.Printf("max round: %d\n", max)

	latest, err := roundStore.GetLatestByInsertOrder()
	if err != nil {
		if errors.Is(err, store.ErrRoundNotFound) {
			return nil
		}
		return fmt.Errorf("latest round: %w", err)
	}
	fmt.Printf("latest insert: round %d multiplier %.2f at %s\n",
		latest.RoundNumber, latest.Multiplier, latest.CreatedAt.Format(time.RFC3339))
	return nil
}

func waitForShutdown() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}
