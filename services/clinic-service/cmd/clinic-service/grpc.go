package main

import (
	"log/slog"
	"net"

	"github.com/md-rashed-zaman/clinicbook/libs/config"
	"github.com/md-rashed-zaman/clinicbook/libs/grpcx"
)

// startGrpcServer serves the gRPC health service on GRPC_PORT. It is off when
// GRPC_PORT is empty. The returned func drains the server.
func startGrpcServer(logger *slog.Logger, service string) (func(), error) {
	port := config.String("GRPC_PORT", "")
	if port == "" {
		return nil, nil
	}
	lis, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return nil, err
	}

	srv, health := grpcx.NewServer(logger, service)
	go func() {
		logger.Info("grpc server starting", "addr", lis.Addr().String())
		if err := srv.Serve(lis); err != nil {
			logger.Error("grpc server error", "err", err)
		}
	}()

	return func() {
		health.Shutdown()
		srv.GracefulStop()
		logger.Info("grpc server stopped")
	}, nil
}
