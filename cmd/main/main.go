package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"sync"
	"syscall"

	"coin-observer/src/config"
	"coin-observer/src/helpers"
	"coin-observer/src/logger"
	"coin-observer/src/models"
	"coin-observer/src/ranking"
	"coin-observer/src/server"
)

// -----------------------------------------------------------------------------

func main() {
	// 1. Parse command line flags
	configPath := flag.String("config", "../../config/default.yaml", "path to config file")
	flag.Parse()

	// 2. Load config
	conf, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// 3. Setup Logger
	appLogger := logger.NewLogger(conf, conf.Name)

	// 4. Memory limit
	memLimit := helpers.GetRecommendedMemoryLimit()
	debug.SetMemoryLimit(int64(memLimit) << 20)
	appLogger.Info("Memory Limit set to: %d MB", memLimit)

	// 5. Setup Components
	db, err := setupDatabase(conf.MConfig, appLogger)
	if err != nil {
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
	}

	networkManager := setupNetwork(conf.MConfig)
	source := setupMarketSource(conf.MConfig, networkManager)
	tickSources := setupTickSources(conf.MConfig, source, appLogger)

	service, err := ranking.NewService(conf.MConfig, source, nil, logger.NewLogger(conf, "RankingService"))
	if err != nil {
		appLogger.Critical("Failed to create ranking service: %v", err)
		os.Exit(1)
	}

	srv := server.NewDashboardServer(conf.MConfig, service, logger.NewLogger(conf, "DashboardServer"))
	service.Exchanger = srv
	service.Symbols = tickSources
	if db != nil {
		service.Journal = db
	}

	// 6. Lifecycle Management
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	ticks := make(chan models.MTick, 1000)

	// 7. Start Sources (Context-Based Direct Push)
	if err := tickSources.Start(ctx, ticks, &wg); err != nil {
		appLogger.Critical("Failed to start tick sources: %v", err)
	}

	// 8. Start ranking and servers
	if err := service.Start(ctx, ticks); err != nil {
		appLogger.Critical("Failed to start ranking service: %v", err)
		os.Exit(1)
	}
	grpcServer := startServers(srv, service, tickSources, conf, appLogger)

	<-ctx.Done()
	appLogger.Info("Shutting down...")

	grpcServer.GracefulStop()
	if err := srv.Stop(); err != nil {
		appLogger.Error("Dashboard server stop: %v", err)
	}
	tickSources.Stop()
	wg.Wait()
	service.Shutdown()
	appLogger.Info("Shutdown complete.")
}
