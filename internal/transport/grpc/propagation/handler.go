// Package propagation exposes the propagation admin operations over gRPC.
package propagation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/light-bringer/metasync-service/internal/app/propagation/domain"
	"github.com/light-bringer/metasync-service/internal/app/propagation/queries/list_error_log"
	"github.com/light-bringer/metasync-service/internal/app/propagation/queries/list_runs"
	"github.com/light-bringer/metasync-service/internal/app/propagation/trigger"
	"github.com/light-bringer/metasync-service/internal/app/propagation/usecases/clear_error_log"
	"github.com/light-bringer/metasync-service/internal/app/propagation/usecases/propagate_definition"
)

// Handler implements AdminServer.
// It's a thin coordinator that delegates to use cases and queries.
type Handler struct {
	// Commands
	propagator    trigger.Propagator
	clearErrorLog *clear_error_log.Interactor

	// Queries
	listErrorLog *list_error_log.Query
	listRuns     *list_runs.Query
}

var _ AdminServer = (*Handler)(nil)

// NewHandler creates a new gRPC admin handler.
func NewHandler(
	propagator trigger.Propagator,
	clearErrorLog *clear_error_log.Interactor,
	listErrorLog *list_error_log.Query,
	listRuns *list_runs.Query,
) *Handler {
	return &Handler{
		propagator:    propagator,
		clearErrorLog: clearErrorLog,
		listErrorLog:  listErrorLog,
		listRuns:      listRuns,
	}
}

// Propagate runs one propagation to completion and returns the run.
func (h *Handler) Propagate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	definitionID, category, err := validatePropagateRequest(req)
	if err != nil {
		return nil, err
	}

	completion := h.propagator.Execute(ctx, &propagate_definition.Request{
		DefinitionID: definitionID,
		Category:     category,
	})
	if completion.State == domain.RunAborted && errors.Is(completion.Err, domain.ErrDefinitionNotFound) {
		return nil, mapDomainErrorToGRPC(completion.Err)
	}
	return toStruct(runToMap(domain.RunFromCompletion(completion)))
}

// ListErrorLog lists error log entries, newest first.
func (h *Handler) ListErrorLog(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	q := &list_error_log.Request{}
	category, err := stringField(req, "category")
	if err != nil {
		return nil, err
	}
	if category != "" {
		q.Category = &category
	}
	definitionID, err := stringField(req, "definition_id")
	if err != nil {
		return nil, err
	}
	if definitionID != "" {
		q.DefinitionID = &definitionID
	}
	if q.Limit, err = intField(req, "limit"); err != nil {
		return nil, err
	}
	if q.Offset, err = intField(req, "offset"); err != nil {
		return nil, err
	}

	result, err := h.listErrorLog.Execute(ctx, q)
	if err != nil {
		return nil, mapDomainErrorToGRPC(err)
	}

	entries := make([]interface{}, 0, len(result.Entries))
	for _, e := range result.Entries {
		entries = append(entries, e)
	}
	return toStruct(map[string]interface{}{
		"entries":     entries,
		"total_count": result.TotalCount,
	})
}

// ClearErrorLog empties the error log.
func (h *Handler) ClearErrorLog(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	clearedBy, err := validateClearErrorLogRequest(req)
	if err != nil {
		return nil, err
	}
	if err := h.clearErrorLog.Execute(ctx, &clear_error_log.Request{ClearedBy: clearedBy}); err != nil {
		return nil, mapDomainErrorToGRPC(err)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{}}, nil
}

// ListRuns lists recorded runs, most recent first.
func (h *Handler) ListRuns(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	definitionID, err := stringField(req, "definition_id")
	if err != nil {
		return nil, err
	}
	state, err := stringField(req, "state")
	if err != nil {
		return nil, err
	}
	limit, err := intField(req, "limit")
	if err != nil {
		return nil, err
	}

	runs, err := h.listRuns.Execute(ctx, &list_runs.Request{
		DefinitionID: definitionID,
		State:        state,
		Limit:        limit,
	})
	if err != nil {
		return nil, mapDomainErrorToGRPC(err)
	}

	items := make([]interface{}, 0, len(runs))
	for _, run := range runs {
		items = append(items, runToMap(run))
	}
	return toStruct(map[string]interface{}{"runs": items})
}

func runToMap(run *domain.Run) map[string]interface{} {
	m := map[string]interface{}{
		"run_id":        run.RunID,
		"definition_id": run.DefinitionID,
		"category":      run.Category,
		"state":         string(run.State),
		"counts": map[string]interface{}{
			"resolved": run.Counts.Resolved,
			"applied":  run.Counts.Applied,
			"rejected": run.Counts.Rejected,
			"failed":   run.Counts.Failed,
			"skipped":  run.Counts.Skipped,
		},
		"started_at": run.StartedAt.UTC().Format(time.RFC3339),
	}
	if run.ErrorMessage != "" {
		m["error"] = run.ErrorMessage
	}
	if !run.FinishedAt.IsZero() {
		m["finished_at"] = run.FinishedAt.UTC().Format(time.RFC3339)
	}
	return m
}

func toStruct(m map[string]interface{}) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("failed to encode reply: %v", err))
	}
	return s, nil
}
