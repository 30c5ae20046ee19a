package propagation

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/light-bringer/metasync-service/internal/pkg/obs"
)

// NewServer builds a gRPC server serving the admin service, standard health checks and
// reflection. The returned health server reports SERVING for the admin service until
// the caller changes it during shutdown.
func NewServer(handler AdminServer, logger *slog.Logger) (*grpc.Server, *health.Server) {
	logger = obs.OrNop(logger)
	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(loggingInterceptor(logger)),
	)

	RegisterAdminServer(srv, handler)

	healthSrv := health.NewServer()
	healthSrv.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, healthSrv)

	reflection.Register(srv)
	return srv, healthSrv
}

func loggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logger.Info("grpc_request",
			"method", info.FullMethod,
			"code", status.Code(err).String(),
			"latency_ms", float64(time.Since(start).Microseconds())/1000.0,
		)
		return resp, err
	}
}
