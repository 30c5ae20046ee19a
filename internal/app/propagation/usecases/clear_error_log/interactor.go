package clear_error_log

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/light-bringer/metasync-service/internal/app/propagation/contracts"
	"github.com/light-bringer/metasync-service/internal/pkg/obs"
)

// Request contains the operator clearing the log.
type Request struct {
	ClearedBy string
}

// Interactor handles the clear error log use case.
type Interactor struct {
	errorLog contracts.ErrorLog
	logger   *slog.Logger
}

// NewInteractor creates a new clear error log interactor.
func NewInteractor(errorLog contracts.ErrorLog, logger *slog.Logger) *Interactor {
	return &Interactor{
		errorLog: errorLog,
		logger:   obs.OrNop(logger),
	}
}

// Execute empties the shared error log.
func (i *Interactor) Execute(ctx context.Context, req *Request) error {
	if req.ClearedBy == "" {
		return fmt.Errorf("clearedBy is required")
	}
	if err := i.errorLog.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear error log: %w", err)
	}
	i.logger.Info("error log cleared", "cleared_by", req.ClearedBy)
	return nil
}
