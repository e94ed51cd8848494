package main

import (
	"fmt"
	"net"

	"coin-observer/src/config"
	datasource "coin-observer/src/data_source"
	pb "coin-observer/src/grpc_control"
	"coin-observer/src/interfaces"
	"coin-observer/src/logger"

	"google.golang.org/grpc"
)

// -----------------------------------------------------------------------------

// startServers orchestrates the startup of all server components
func startServers(
	srv interfaces.IDataExchanger,
	provider interfaces.IAnalyticsProvider,
	tickSources *datasource.TickSourceManager,
	config *config.Config,
	appLogger *logger.Logger,
) *grpc.Server {

	// 1. Dashboard server
	go func() {
		if err := srv.Start(); err != nil {
			appLogger.Error("Server failed: %v", err)
		}
	}()

	// 2. gRPC Control Server
	grpcServer := grpc.NewServer()
	controlService := pb.NewControlService(config.MConfig, provider, tickSources, logger.NewLogger(config, "ControlService"))
	pb.RegisterCoinObserverControlServer(grpcServer, controlService)

	go func() {
		port := config.GrpcPort
		if port == 0 {
			port = 50051
		}
		lis, err := net.Listen("tcp", fmt.Sprintf("%s:%d", config.GrpcHost, port))
		if err != nil {
			appLogger.Critical("failed to listen for gRPC: %v", err)
			return
		}

		appLogger.Info("Starting gRPC Control Server on %s", lis.Addr())
		if err := grpcServer.Serve(lis); err != nil {
			appLogger.Critical("failed to serve gRPC: %v", err)
		}
	}()

	return grpcServer
}
