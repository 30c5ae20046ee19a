package http

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/light-bringer/metasync-service/internal/app/propagation/domain"
	"github.com/light-bringer/metasync-service/internal/app/propagation/trigger"
	"github.com/light-bringer/metasync-service/internal/pkg/obs"
)

const (
	hmacHeader   = "X-Shopify-Hmac-Sha256"
	maxBodyBytes = 1 << 20
)

// Submitter schedules a propagation in the background.
type Submitter interface {
	Submit(definitionID, category string) (trigger.Disposition, error)
}

// definitionWebhook is the subset of a metaobject webhook payload the trigger needs.
type definitionWebhook struct {
	AdminGraphQLAPIID string `json:"admin_graphql_api_id"`
	Type              string `json:"type"`
}

// WebhookResponse is the body of every accepted or ignored delivery.
type WebhookResponse struct {
	Status       string `json:"status"`
	DefinitionID string `json:"definition_id,omitempty"`
}

// WebhookHandler turns "definition updated" deliveries into background runs. It answers
// before the run starts; the run's outcome is only visible in the run history and the
// error log.
type WebhookHandler struct {
	submitter Submitter
	secret    []byte
	logger    *slog.Logger
}

// NewWebhookHandler creates a new webhook handler. An empty secret disables signature checks.
func NewWebhookHandler(submitter Submitter, secret string, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		submitter: submitter,
		secret:    []byte(secret),
		logger:    obs.OrNop(logger),
	}
}

// ServeHTTP handles POST /webhooks/definitions requests.
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSONError(w, http.StatusRequestEntityTooLarge, "body too large", err.Error())
		return
	}

	if len(h.secret) > 0 && !verifyHMAC(body, r.Header.Get(hmacHeader), h.secret) {
		h.logger.Warn("webhook signature rejected", "request_id", RequestIDFromContext(r.Context()))
		writeJSONError(w, http.StatusUnauthorized, "invalid signature", "")
		return
	}

	var payload definitionWebhook
	if err := json.Unmarshal(body, &payload); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON", err.Error())
		return
	}
	if payload.AdminGraphQLAPIID == "" {
		writeJSONError(w, http.StatusBadRequest, "admin_graphql_api_id is required", "")
		return
	}

	if _, ok := domain.ParseCategory(payload.Type); !ok {
		h.logger.Debug("webhook ignored", "definition_id", payload.AdminGraphQLAPIID, "type", payload.Type)
		writeJSON(w, http.StatusOK, WebhookResponse{Status: "ignored", DefinitionID: payload.AdminGraphQLAPIID})
		return
	}

	disposition, err := h.submitter.Submit(payload.AdminGraphQLAPIID, payload.Type)
	if err != nil {
		status := statusFor(err)
		if !errors.Is(err, trigger.ErrClosed) {
			h.logger.Error("failed to submit propagation", "definition_id", payload.AdminGraphQLAPIID, "error", err)
		}
		writeJSONError(w, status, "failed to submit propagation", err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, WebhookResponse{Status: string(disposition), DefinitionID: payload.AdminGraphQLAPIID})
}

// verifyHMAC checks the base64 HMAC-SHA256 of body.
func verifyHMAC(body []byte, header string, secret []byte) bool {
	if header == "" {
		return false
	}
	got, err := base64.StdEncoding.DecodeString(header)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}
