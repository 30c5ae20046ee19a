package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/light-bringer/metasync-service/internal/config"
	"github.com/light-bringer/metasync-service/internal/pkg/obs"
	"github.com/light-bringer/metasync-service/internal/services"
	grpcpropagation "github.com/light-bringer/metasync-service/internal/transport/grpc/propagation"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}

func run() error {
	ctx := context.Background()

	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	logger := obs.NewLogger(cfg.LogLevel)

	logger.Info("starting metasync service",
		"spanner_database", cfg.SpannerDatabase,
		"catalog_backend", cfg.CatalogBackend,
		"grpc_port", cfg.GRPCPort,
		"http_port", cfg.HTTPPort,
	)

	// 2. Initialize service dependencies (DI container)
	serviceOpts, err := services.NewServiceOptions(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize service: %w", err)
	}

	// 3. Create gRPC server with the admin service, health and reflection
	grpcServer, healthServer := grpcpropagation.NewServer(serviceOpts.AdminHandler, logger)

	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		_ = serviceOpts.Close(ctx)
		return fmt.Errorf("failed to listen on gRPC port: %w", err)
	}

	go func() {
		logger.Info("gRPC server listening", "addr", lis.Addr().String())
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC server error", "error", err)
		}
	}()

	// 4. Create HTTP server for webhooks and operator endpoints
	httpServer := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: serviceOpts.HTTPHandler,
	}

	go func() {
		logger.Info("HTTP server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	// 5. Graceful shutdown handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down gracefully", "timeout", cfg.ShutdownTimeout.String())
	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer cancel()

	healthServer.SetServingStatus(grpcpropagation.ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	shutdown(shutdownCtx, logger, httpServer, grpcServer, serviceOpts)
	return nil
}

type httpShutdowner interface {
	Shutdown(ctx context.Context) error
}

type grpcStopper interface {
	GracefulStop()
	Stop()
}

type resourceCloser interface {
	Close(ctx context.Context) error
}

// shutdown stops both transports before the service resources close, so a synchronous
// propagation still running on an RPC can record its failures and its run. gRPC is stopped
// hard once ctx is done.
func shutdown(ctx context.Context, logger *slog.Logger, httpServer httpShutdowner, grpcServer grpcStopper, resources resourceCloser) {
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	stopped := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-ctx.Done():
		logger.Warn("gRPC graceful stop timed out, forcing stop")
		grpcServer.Stop()
		<-stopped
	}

	if err := resources.Close(ctx); err != nil {
		logger.Error("service shutdown error", "error", err)
	}
}
