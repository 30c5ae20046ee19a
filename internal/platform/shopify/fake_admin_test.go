package shopify

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type recordedCall struct {
	Query     string
	Variables map[string]interface{}
	Token     string
}

// fakeAdmin serves canned data per operation and keeps the error log metafield in memory.
type fakeAdmin struct {
	mu        sync.Mutex
	calls     []recordedCall
	responses map[string]string
	status    int

	logValue  *string
	beforeSet func()
	setCalls  int
}

func newFakeAdmin(t *testing.T) (*fakeAdmin, *Client) {
	t.Helper()
	fa := &fakeAdmin{responses: make(map[string]string)}
	srv := httptest.NewServer(http.HandlerFunc(fa.serve))
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{Endpoint: srv.URL, AccessToken: "shpat_test"})
	require.NoError(t, err)
	return fa, client
}

func (fa *fakeAdmin) respond(operation, data string) {
	fa.mu.Lock()
	defer fa.mu.Unlock()
	fa.responses[operation] = data
}

func (fa *fakeAdmin) recorded() []recordedCall {
	fa.mu.Lock()
	defer fa.mu.Unlock()
	out := make([]recordedCall, len(fa.calls))
	copy(out, fa.calls)
	return out
}

func (fa *fakeAdmin) storeLog(value string) {
	fa.mu.Lock()
	defer fa.mu.Unlock()
	fa.logValue = &value
}

func (fa *fakeAdmin) setCount() int {
	fa.mu.Lock()
	defer fa.mu.Unlock()
	return fa.setCalls
}

func digestOf(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

func (fa *fakeAdmin) serve(w http.ResponseWriter, r *http.Request) {
	var req gqlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	fa.mu.Lock()
	fa.calls = append(fa.calls, recordedCall{Query: req.Query, Variables: req.Variables, Token: r.Header.Get("X-Shopify-Access-Token")})
	status := fa.status
	fa.mu.Unlock()

	if status != 0 {
		http.Error(w, "unavailable", status)
		return
	}

	op := operationName(req.Query)
	var data string
	switch op {
	case "ErrorLog":
		data = fa.readLog()
	case "SetErrorLog":
		data = fa.setLog(req.Variables)
	default:
		fa.mu.Lock()
		canned, ok := fa.responses[op]
		fa.mu.Unlock()
		if !ok {
			http.Error(w, "no canned response for "+op, http.StatusInternalServerError)
			return
		}
		if strings.HasPrefix(canned, `{"errors"`) {
			_, _ = w.Write([]byte(canned))
			return
		}
		data = canned
	}
	_, _ = w.Write([]byte(`{"data":` + data + `}`))
}

func (fa *fakeAdmin) readLog() string {
	fa.mu.Lock()
	defer fa.mu.Unlock()
	if fa.logValue == nil {
		return `{"shop":{"id":"gid://shopify/Shop/1","metafield":null}}`
	}
	mf, _ := json.Marshal(map[string]string{"value": *fa.logValue, "compareDigest": digestOf(*fa.logValue)})
	return `{"shop":{"id":"gid://shopify/Shop/1","metafield":` + string(mf) + `}}`
}

func (fa *fakeAdmin) setLog(vars map[string]interface{}) string {
	fa.mu.Lock()
	fa.setCalls++
	hook := fa.beforeSet
	fa.mu.Unlock()
	if hook != nil {
		hook()
	}

	fa.mu.Lock()
	defer fa.mu.Unlock()
	input := vars["metafields"].([]interface{})[0].(map[string]interface{})
	digest, _ := input["compareDigest"].(string)

	stale := false
	switch {
	case fa.logValue == nil:
		stale = input["compareDigest"] != nil
	default:
		stale = digest != digestOf(*fa.logValue)
	}
	if stale {
		return `{"metafieldsSet":{"metafields":[],"userErrors":[{"field":["metafields","0"],"message":"stale","code":"STALE_OBJECT"}]}}`
	}
	value := input["value"].(string)
	fa.logValue = &value
	return `{"metafieldsSet":{"metafields":[{"id":"gid://shopify/Metafield/9"}],"userErrors":[]}}`
}

func operationName(query string) string {
	fields := strings.Fields(query)
	if len(fields) < 2 {
		return ""
	}
	name := fields[1]
	if i := strings.IndexByte(name, '('); i >= 0 {
		name = name[:i]
	}
	return name
}
