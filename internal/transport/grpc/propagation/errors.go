package propagation

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/light-bringer/metasync-service/internal/app/propagation/domain"
	"github.com/light-bringer/metasync-service/internal/app/propagation/trigger"
)

// mapDomainErrorToGRPC converts domain errors to gRPC status codes.
func mapDomainErrorToGRPC(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, domain.ErrUnknownCategory):
		return status.Error(codes.InvalidArgument, err.Error())

	case errors.Is(err, domain.ErrDefinitionNotFound):
		return status.Error(codes.NotFound, "definition not found")

	case errors.Is(err, trigger.ErrClosed):
		return status.Error(codes.Unavailable, "service is shutting down")

	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "deadline exceeded")

	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request canceled")

	default:
		return status.Error(codes.Internal, "internal server error")
	}
}
