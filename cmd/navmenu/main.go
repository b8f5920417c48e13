package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mchmarny/navmenu/pkg/api"
	"github.com/mchmarny/navmenu/pkg/broker"
	"github.com/mchmarny/navmenu/pkg/config"
	"github.com/mchmarny/navmenu/pkg/logger"
	"github.com/mchmarny/navmenu/pkg/menu"
	"github.com/mchmarny/navmenu/pkg/metric"
	"github.com/mchmarny/navmenu/pkg/navigation"
	"github.com/mchmarny/navmenu/pkg/server"
	"github.com/mchmarny/navmenu/pkg/watch"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

var (
	version = "dev"     // Set at build time via -ldflags "-X main.version=version"
	commit  = "none"    // Set at build time via -ldflags "-X main.commit=commit"
	date    = "unknown" // Set at build time via -ldflags "-X main.date=date"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(2)
	}

	logger.SetDefaultLoggerWithLevel("navmenu", version, cfg.LogLevel)
	slog.Info("starting navmenu", "commit", commit, "date", date)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("navmenu error", "error", err)
		os.Exit(1)
	}
}

// run wires the broker, controllers and HTTP server, and blocks until ctx is
// canceled or one of them fails.
func run(ctx context.Context, cfg config.Config) error {
	reg := prometheus.NewRegistry()
	counters := metric.NewCounters(reg)

	b := broker.New(broker.WithCounter(counters.Broker))
	history := navigation.NewHistory(cfg.HistoryLimit)

	menus := api.NewRegistry(b, history,
		api.WithControllerCounter(counters.Controller),
		api.WithFirstMatch(cfg.FirstMatch),
	)
	defer menus.Close()

	if cfg.MenuFile != "" {
		doc, err := menu.Load(cfg.MenuFile)
		if err != nil {
			return err
		}
		if err := menus.Load(doc); err != nil {
			return fmt.Errorf("loading menus: %w", err)
		}
		slog.Info("menu document loaded",
			"path", cfg.MenuFile,
			"title", doc.Title,
			"menus", len(doc.Menus),
		)
	}

	srv := server.New(
		server.WithPort(cfg.Port),
		server.WithRegistry(reg),
		server.WithMetrics(),
		server.WithSimpleHealth(),
		server.WithReadiness(menus),
		server.WithErrorLog(logger.NewLogLogger(slog.LevelError, false)),
		server.WithHandlers(menus.Handlers()),
	)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Serve(gCtx)
	})

	if cfg.Watch {
		w := watch.New(cfg.MenuFile, func(doc *menu.Document) {
			if err := menus.Load(doc); err != nil {
				slog.Error("applying reloaded menus", "error", err)
			}
		})
		g.Go(func() error {
			return w.Run(gCtx)
		})
	}

	return g.Wait()
}
