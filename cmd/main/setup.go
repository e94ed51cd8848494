package main

import (
	datasource "coin-observer/src/data_source"
	"coin-observer/src/data_source/binance"
	"coin-observer/src/interfaces"
	"coin-observer/src/logger"
	"coin-observer/src/models"
	"coin-observer/src/network"
	"coin-observer/src/storage"
)

// -----------------------------------------------------------------------------

// setupDatabase opens the ranking journal. A nil journal means storage is off.
func setupDatabase(config *models.MConfig, appLogger *logger.Logger) (interfaces.IDatabase, error) {
	db, err := storage.NewJournal(config, logger.NewLogger(config, "Journal"))
	if err != nil {
		appLogger.Critical("Failed to init db: %v", err)
		return nil, err
	}
	if db == nil {
		appLogger.Info("Ranking journal disabled")
	}
	return db, nil
}

// -----------------------------------------------------------------------------

// setupNetwork initializes the network manager
func setupNetwork(config *models.MConfig) interfaces.INetworkManager {
	networkLogger := logger.NewLogger(config, "NetworkManager")
	return network.NewAsyncNetworkManager(config, networkLogger)
}

// -----------------------------------------------------------------------------

func setupMarketSource(config *models.MConfig, networkManager interfaces.INetworkManager) interfaces.IMarketDataSource {
	return binance.NewBinanceSource(config, networkManager, logger.NewLogger(config, "BinanceSource"))
}

// -----------------------------------------------------------------------------

// setupTickSources feeds the rolling tracker from the push stream, or from
// ticker polling when streaming is disabled.
func setupTickSources(config *models.MConfig, source interfaces.IMarketDataSource, appLogger *logger.Logger) *datasource.TickSourceManager {
	manager := datasource.NewTickSourceManager(nil, logger.NewLogger(config, "TickSourceManager"))

	var tickSource interfaces.ITickSource
	if config.DataSource.StreamEnabled {
		tickSource = binance.NewMiniTickerStream(config, logger.NewLogger(config, "MiniTickerStream"))
	} else {
		tickSource = binance.NewTickerPoller(config, source, logger.NewLogger(config, "TickerPoller"))
	}

	if err := manager.AddSource(tickSource); err != nil {
		appLogger.Error("Failed to add tick source %s: %v", tickSource.Name(), err)
	}
	appLogger.Info("Added tick source: %s", tickSource.Name())
	return manager
}
