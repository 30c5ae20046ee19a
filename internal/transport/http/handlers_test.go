package http

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/light-bringer/metasync-service/internal/app/propagation/domain"
	"github.com/light-bringer/metasync-service/internal/app/propagation/queries/list_error_log"
	"github.com/light-bringer/metasync-service/internal/app/propagation/queries/list_runs"
	"github.com/light-bringer/metasync-service/internal/app/propagation/trigger"
	"github.com/light-bringer/metasync-service/internal/app/propagation/usecases/clear_error_log"
	"github.com/light-bringer/metasync-service/internal/app/propagation/usecases/propagate_definition"
	"github.com/light-bringer/metasync-service/tests/testutil"
)

type submission struct {
	definitionID string
	category     string
}

type fakeSubmitter struct {
	mu          sync.Mutex
	submissions []submission
	disposition trigger.Disposition
	err         error
}

func (f *fakeSubmitter) Submit(definitionID, category string) (trigger.Disposition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.submissions = append(f.submissions, submission{definitionID, category})
	if f.disposition == "" {
		return trigger.Started, nil
	}
	return f.disposition, nil
}

type fakePropagator struct {
	completion *domain.Completion
	requests   []*propagate_definition.Request
}

func (f *fakePropagator) Execute(ctx context.Context, req *propagate_definition.Request) *domain.Completion {
	f.requests = append(f.requests, req)
	return f.completion
}

type testServer struct {
	handler   http.Handler
	submitter *fakeSubmitter
	prop      *fakePropagator
	errorLog  *testutil.FakeErrorLog
	runs      *testutil.FakeRunRepo
}

func newTestServer(t *testing.T, secret string) *testServer {
	t.Helper()
	ts := &testServer{
		submitter: &fakeSubmitter{},
		prop:      &fakePropagator{},
		errorLog:  testutil.NewFakeErrorLog(),
		runs:      testutil.NewFakeRunRepo(),
	}
	admin := NewAdminHandler(
		ts.prop,
		list_error_log.NewQuery(ts.errorLog),
		clear_error_log.NewInteractor(ts.errorLog, nil),
		list_runs.NewQuery(ts.runs),
		nil,
	)
	ts.handler = NewRouter(NewWebhookHandler(ts.submitter, secret, nil), admin, nil)
	return ts
}

func (ts *testServer) do(method, target, body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func sign(body, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestWebhook(t *testing.T) {
	const body = `{"admin_graphql_api_id":"gid://shopify/Metaobject/1","type":"brand","handle":"acme"}`

	t.Run("accepted delivery is submitted", func(t *testing.T) {
		ts := newTestServer(t, "")
		rec := ts.do(http.MethodPost, "/webhooks/definitions", body, nil)

		assert.Equal(t, http.StatusAccepted, rec.Code)
		assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
		var resp WebhookResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "started", resp.Status)
		assert.Equal(t, []submission{{"gid://shopify/Metaobject/1", "brand"}}, ts.submitter.submissions)
	})

	t.Run("duplicate delivery reports coalesced", func(t *testing.T) {
		ts := newTestServer(t, "")
		ts.submitter.disposition = trigger.Coalesced
		rec := ts.do(http.MethodPost, "/webhooks/definitions", body, nil)

		assert.Equal(t, http.StatusAccepted, rec.Code)
		assert.Contains(t, rec.Body.String(), `"coalesced"`)
	})

	t.Run("unknown type is ignored", func(t *testing.T) {
		ts := newTestServer(t, "")
		rec := ts.do(http.MethodPost, "/webhooks/definitions",
			`{"admin_graphql_api_id":"gid://shopify/Metaobject/2","type":"recipe"}`, nil)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"ignored"`)
		assert.Empty(t, ts.submitter.submissions)
	})

	t.Run("signature is verified when a secret is set", func(t *testing.T) {
		ts := newTestServer(t, "s3cret")

		rec := ts.do(http.MethodPost, "/webhooks/definitions", body, map[string]string{hmacHeader: sign(body, "other")})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		rec = ts.do(http.MethodPost, "/webhooks/definitions", body, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		rec = ts.do(http.MethodPost, "/webhooks/definitions", body, map[string]string{hmacHeader: sign(body, "s3cret")})
		assert.Equal(t, http.StatusAccepted, rec.Code)
		assert.Len(t, ts.submitter.submissions, 1)
	})

	t.Run("malformed payloads", func(t *testing.T) {
		ts := newTestServer(t, "")

		rec := ts.do(http.MethodPost, "/webhooks/definitions", `{not json`, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = ts.do(http.MethodPost, "/webhooks/definitions", `{"type":"brand"}`, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = ts.do(http.MethodGet, "/webhooks/definitions", "", nil)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})

	t.Run("closed dispatcher", func(t *testing.T) {
		ts := newTestServer(t, "")
		ts.submitter.err = trigger.ErrClosed

		rec := ts.do(http.MethodPost, "/webhooks/definitions", body, nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestVerifyHMAC(t *testing.T) {
	body := []byte(`{"a":1}`)
	secret := []byte("k")

	assert.True(t, verifyHMAC(body, sign(string(body), "k"), secret))
	assert.False(t, verifyHMAC(body, "", secret))
	assert.False(t, verifyHMAC(body, "%%%not-base64", secret))
	assert.False(t, verifyHMAC([]byte(`{"a":2}`), sign(string(body), "k"), secret))
}

func TestErrorLogEndpoints(t *testing.T) {
	t.Run("list filters newest first", func(t *testing.T) {
		ts := newTestServer(t, "")
		require.NoError(t, ts.errorLog.Append(context.Background(),
			"[Brand Update] (b1) request - boom",
			"[Category Update] (c1) variants - duplicate",
			"[Brand Update] (b2) vendor - is invalid",
		))

		rec := ts.do(http.MethodGet, "/api/v1/error-log?category=brand&limit=10", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp ErrorLogResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 2, resp.TotalCount)
		assert.Equal(t, []string{"[Brand Update] (b2) vendor - is invalid", "[Brand Update] (b1) request - boom"}, resp.Entries)
	})

	t.Run("empty log is an empty list", func(t *testing.T) {
		ts := newTestServer(t, "")
		rec := ts.do(http.MethodGet, "/api/v1/error-log", "", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"entries":[],"total_count":0}`, rec.Body.String())
	})

	t.Run("unknown category is a bad request", func(t *testing.T) {
		ts := newTestServer(t, "")
		rec := ts.do(http.MethodGet, "/api/v1/error-log?category=recipe", "", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("clear requires an operator", func(t *testing.T) {
		ts := newTestServer(t, "")
		require.NoError(t, ts.errorLog.Append(context.Background(), "[Brand Update] (b1) request - boom"))

		rec := ts.do(http.MethodDelete, "/api/v1/error-log", "", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = ts.do(http.MethodDelete, "/api/v1/error-log?cleared_by=ops", "", nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		entries, err := ts.errorLog.Entries(context.Background())
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}

func TestRunsEndpoint(t *testing.T) {
	ts := newTestServer(t, "")
	finished := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, ts.runs.Save(context.Background(), &domain.Run{
		RunID: "r1", DefinitionID: "d1", Category: "brand", State: domain.RunDone,
		Counts:    domain.Counts{Resolved: 2, Applied: 2},
		StartedAt: finished.Add(-time.Minute), FinishedAt: finished,
	}))
	require.NoError(t, ts.runs.Save(context.Background(), &domain.Run{
		RunID: "r2", DefinitionID: "d2", Category: "category", State: domain.RunAborted,
		ErrorMessage: "resolution failed", StartedAt: finished, FinishedAt: finished,
	}))

	rec := ts.do(http.MethodGet, "/api/v1/runs?definition_id=d1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ListRunsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Runs, 1)
	assert.Equal(t, "r1", resp.Runs[0].RunID)
	assert.Equal(t, 2, resp.Runs[0].Counts.Applied)
	require.NotNil(t, resp.Runs[0].FinishedAt)
	assert.Equal(t, "2026-03-01T12:00:00Z", *resp.Runs[0].FinishedAt)

	rec = ts.do(http.MethodGet, "/api/v1/runs?state=aborted", "", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Runs, 1)
	assert.Equal(t, "resolution failed", resp.Runs[0].Error)
}

func TestPropagateEndpoint(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("runs synchronously", func(t *testing.T) {
		ts := newTestServer(t, "")
		ts.prop.completion = &domain.Completion{
			RunID: "r1", DefinitionID: "d1", Category: "brand", State: domain.RunDone,
			Counts: domain.Counts{Resolved: 1, Applied: 1}, StartedAt: now, FinishedAt: now,
		}

		rec := ts.do(http.MethodPost, "/api/v1/propagate", `{"definition_id":"d1","category":"brand"}`, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, ts.prop.requests, 1)
		assert.Equal(t, "d1", ts.prop.requests[0].DefinitionID)

		var run Run
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
		assert.Equal(t, "done", run.State)
		assert.Equal(t, 1, run.Counts.Applied)
	})

	t.Run("missing definition", func(t *testing.T) {
		ts := newTestServer(t, "")
		ts.prop.completion = &domain.Completion{
			RunID: "r1", DefinitionID: "d404", Category: "brand", State: domain.RunAborted,
			Err:       &domain.ResolutionError{DefinitionID: "d404", Cause: domain.ErrDefinitionNotFound},
			StartedAt: now, FinishedAt: now,
		}

		rec := ts.do(http.MethodPost, "/api/v1/propagate", `{"definition_id":"d404","category":"brand"}`, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "definition not found")
	})

	t.Run("validation", func(t *testing.T) {
		ts := newTestServer(t, "")
		assert.Equal(t, http.StatusBadRequest, ts.do(http.MethodPost, "/api/v1/propagate", `{}`, nil).Code)
		assert.Equal(t, http.StatusBadRequest, ts.do(http.MethodPost, "/api/v1/propagate", `nope`, nil).Code)
		assert.Empty(t, ts.prop.requests)
	})
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, "")
	rec := ts.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
