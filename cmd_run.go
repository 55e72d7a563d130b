package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/thushan/tabkeeper/internal/adapter/catalog"
	"github.com/thushan/tabkeeper/internal/app"
	"github.com/thushan/tabkeeper/internal/version"
	"github.com/thushan/tabkeeper/pkg/format"
	"github.com/thushan/tabkeeper/pkg/profiler"
)

var (
	pprofAddress string

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Load the saved tabs and keep them current until interrupted",
		RunE:  runTabkeeper,
	}
)

func init() {
	runCmd.Flags().StringVar(&pprofAddress, "pprof", "", "serve pprof on this address, e.g. localhost:6060")
}

func runTabkeeper(cmd *cobra.Command, args []string) error {
	startTime := time.Now()
	version.PrintVersionInfo(false, log.New(cmd.OutOrStdout(), "", 0))
	styledLogger.Info("Initialising", "version", version.Version, "pid", os.Getpid(), "config", cfg.Filename)

	if pprofAddress != "" {
		prof := profiler.Start(pprofAddress, styledLogger.GetUnderlying())
		defer func() { _ = prof.Stop(context.Background()) }()
		styledLogger.Info("Profiler listening", "address", pprofAddress)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider, err := loadProvider()
	if err != nil {
		return err
	}
	defer provider.Close()

	application, err := app.New(cfg, styledLogger, app.Options{Provider: provider})
	if err != nil {
		return err
	}
	if err := application.Start(ctx); err != nil {
		return err
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case next := <-reloads:
				application.UpdateConfig(next)
			}
		}
	}()

	<-ctx.Done()
	styledLogger.Info("Shutdown signal received")

	if err := application.Stop(context.Background()); err != nil {
		styledLogger.Error("Error during shutdown", "error", err)
	}

	reportRebuildStats(application, startTime)
	styledLogger.Info("Tabkeeper has shutdown")
	return nil
}

// loadProvider returns an empty catalog unless a snapshot was given
func loadProvider() (*catalog.MemoryProvider, error) {
	provider := catalog.NewMemoryProvider()
	if catalogFile == "" {
		return provider, nil
	}
	snapshot, err := catalog.LoadSnapshot(catalogFile)
	if err != nil {
		provider.Close()
		return nil, err
	}
	provider.Apply(snapshot)
	styledLogger.InfoWithCount("Catalog snapshot loaded", len(snapshot.Entries), "file", catalogFile)
	return provider, nil
}

func reportRebuildStats(application *app.Application, startTime time.Time) {
	collector, err := application.Stats()
	if err != nil {
		return
	}
	s := collector.GetRebuildStats()
	if s.TotalRebuilds == 0 {
		styledLogger.Info("No tabs were rebuilt", "uptime", format.Duration(time.Since(startTime)))
		return
	}

	args := []any{
		"rebuilds", s.TotalRebuilds,
		"p50", format.Duration(s.LatencyP50),
		"p95", format.Duration(s.LatencyP95),
		"p99", format.Duration(s.LatencyP99),
		"total", format.Duration(s.TotalLatency),
	}
	for reason, n := range s.ByReason {
		args = append(args, "reason_"+reason, n)
	}
	styledLogger.Info("Rebuild Stats", args...)

	styledLogger.Info("Validation Stats",
		"validations", s.Validations,
		"repairs", s.Repairs,
		"queued", s.Queued,
		"uptime", format.Duration(time.Since(startTime)),
	)
}
