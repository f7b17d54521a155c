// Depot ingest service
// Watches an inbox of extracted archival packages and runs each one
// through the phased ingest pipeline.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nainya/depot/internal/config"
	"github.com/nainya/depot/internal/logger"
	"github.com/nainya/depot/internal/metrics"
	"github.com/nainya/depot/internal/server"
	"github.com/nainya/depot/internal/watch"
	"github.com/nainya/depot/pkg/attribute"
	"github.com/nainya/depot/pkg/bag"
	"github.com/nainya/depot/pkg/event"
	"github.com/nainya/depot/pkg/ident"
	"github.com/nainya/depot/pkg/ingest"
)

var (
	configPath = flag.String("config", "", "Path to YAML config file")
	inboxDir   = flag.String("inbox", "", "Inbox directory (overrides config)")
	port       = flag.Int("port", 0, "Metrics port (overrides config)")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.InitGlobalLogger(logger.Config{Level: "info"})
		logger.GetGlobalLogger().Fatal("Failed to load config").Err(err).Send()
	}
	if *inboxDir != "" {
		cfg.Inbox.Dir = *inboxDir
	}
	if *port != 0 {
		cfg.Server.MetricsPort = *port
	}
	if err := cfg.Validate(); err != nil {
		logger.InitGlobalLogger(logger.Config{Level: "info"})
		logger.GetGlobalLogger().Fatal("Invalid config").Err(err).Send()
	}

	logger.InitGlobalLogger(logger.Config{
		Level:  cfg.Log.Level,
		Pretty: cfg.Log.Pretty,
	})
	log := logger.GetGlobalLogger()
	log.LogServiceStart(cfg.Inbox.Dir, cfg.Server.MetricsPort)

	m := metrics.NewMetrics()

	events := event.NewMemoryLog(log.GetZerolog())

	orch, err := ingest.NewOrchestrator(ingest.Config{
		Phases:  ingest.DefaultPhases(cfg.Ingest.PauseAfterValidation),
		Events:  events,
		Log:     log,
		Metrics: m,
		Workers: cfg.Ingest.Workers,
	})
	if err != nil {
		log.Fatal("Failed to create orchestrator").Err(err).Send()
	}

	obs := server.NewObservabilityServer(cfg.Server.MetricsPort, log)
	go func() {
		if err := obs.Start(); err != nil {
			log.Error("Observability server stopped").Err(err).Send()
		}
	}()

	identifiers := ident.NewUUIDService()
	submit := func(depositID, extractDir string) {
		go runDeposit(orch, events, identifiers, log, depositID, extractDir)
	}

	ctx, cancel := context.WithCancel(context.Background())
	watchDone := make(chan struct{})
	var watcher *watch.InboxWatcher
	if cfg.Inbox.Dir != "" {
		watcher, err = watch.NewInboxWatcher(cfg.Inbox, submit, log, m)
		if err != nil {
			log.Fatal("Failed to create inbox watcher").Err(err).Send()
		}
		go func() {
			defer close(watchDone)
			if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
				log.Error("Inbox watcher stopped").Err(err).Send()
			}
		}()
	} else {
		log.Warn("No inbox dir configured, watcher disabled").Send()
		close(watchDone)
	}

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.LogServiceShutdown()
	cancel()
	<-watchDone
	if watcher != nil {
		watcher.Close()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := obs.Shutdown(shutdownCtx); err != nil {
		log.Error("Observability server shutdown failed").Err(err).Send()
	}
}

// runDeposit drives one settled package through the pipeline. The
// orchestrator serializes concurrent runs of the same deposit id, so
// this is safe to call from the watcher callback.
func runDeposit(orch *ingest.Orchestrator, events event.Log, identifiers ident.Service, log *logger.Logger, depositID, extractDir string) {
	baseDir, err := bag.DetectBaseDir(extractDir)
	if err != nil {
		log.Error("Rejecting package").Str("deposit_id", depositID).Err(err).Send()
		return
	}

	st := &ingest.State{
		Attributes:  attribute.NewStore(),
		Events:      events,
		Package:     bag.NewExplodedBag(extractDir, baseDir),
		Identifiers: identifiers,
	}

	status, err := orch.Start(depositID, st)
	if err != nil {
		log.Error("Deposit faulted").Str("deposit_id", depositID).Err(err).Send()
		return
	}
	for status == ingest.StatusPaused {
		// No review step is wired in yet, so paused deposits resume
		// immediately; the pause point is where one would attach.
		status, err = orch.Start(depositID, st)
		if err != nil {
			log.Error("Deposit faulted").Str("deposit_id", depositID).Err(err).Send()
			return
		}
	}
}
