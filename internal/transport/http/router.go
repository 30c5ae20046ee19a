package http

import (
	"log/slog"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/light-bringer/metasync-service/internal/pkg/obs"
)

// NewRouter registers the HTTP routes and wraps them with request ids, access logs and
// OpenTelemetry instrumentation.
func NewRouter(webhook *WebhookHandler, admin *AdminHandler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/webhooks/definitions", webhook)
	mux.HandleFunc("GET /api/v1/error-log", admin.ListErrorLog)
	mux.HandleFunc("DELETE /api/v1/error-log", admin.ClearErrorLog)
	mux.HandleFunc("GET /api/v1/runs", admin.ListRuns)
	mux.HandleFunc("POST /api/v1/propagate", admin.Propagate)
	mux.HandleFunc("GET /healthz", admin.Healthz)

	return otelhttp.NewHandler(withRequestID(withLogging(obs.OrNop(logger), mux)), obs.ServiceName+".http")
}
