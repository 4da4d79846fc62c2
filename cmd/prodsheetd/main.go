package main

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"google.golang.org/grpc/reflection"

	"github.com/joseph-ayodele/production-tracker/internal/common"
	"github.com/joseph-ayodele/production-tracker/internal/server"
)

func main() {
	cfg := common.LoadConfig()
	logger := common.NewLogger(os.Stdout, cfg.Log)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}
	addr := cfg.Server.GRPCAddr
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stack, err := server.NewStack(ctx, cfg, false, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err, "driver", cfg.Database.Driver)
		os.Exit(1)
	}
	defer stack.Close(logger)

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", addr, "error", err)
		os.Exit(1)
	}
	grpcServer, healthServer := server.NewGRPCServer(stack.Service, logger)
	reflection.Register(grpcServer)

	logger.Info("prodsheetd listening",
		"addr", addr,
		"driver", cfg.Database.Driver,
		"ai", cfg.AIConfigured(),
		"max_upload_bytes", cfg.Upload.MaxBytes,
	)
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- grpcServer.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-serveErr:
		if err != nil {
			logger.Error("gRPC serve error", "error", err)
		}
	}
	healthServer.Shutdown()
	grpcServer.GracefulStop()
}
