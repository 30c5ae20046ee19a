// Package shopify implements the catalog and the shared error log on the Shopify Admin
// GraphQL API. Definitions are metaobjects, backlinks come from Metaobject.referencedBy and
// the error log is a JSON metafield on the shop.
package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultAPIVersion is the Admin API version used when none is configured.
const DefaultAPIVersion = "2025-01"

// Config configures the Admin API client.
type Config struct {
	Shop        string // "my-shop.myshopify.com"
	AccessToken string
	APIVersion  string
	// RequestsPerSecond bounds calls across all workers; zero disables the limiter.
	RequestsPerSecond float64
	// Endpoint overrides the URL built from Shop and APIVersion.
	Endpoint   string
	HTTPClient *http.Client
}

// Client sends GraphQL documents to the Admin API.
type Client struct {
	endpoint   string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a new Admin API client.
func NewClient(cfg Config) (*Client, error) {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		if cfg.Shop == "" {
			return nil, fmt.Errorf("shop is required")
		}
		version := cfg.APIVersion
		if version == "" {
			version = DefaultAPIVersion
		}
		endpoint = fmt.Sprintf("https://%s/admin/api/%s/graphql.json", cfg.Shop, version)
	}
	if cfg.AccessToken == "" {
		return nil, fmt.Errorf("access token is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	c := &Client{endpoint: endpoint, token: cfg.AccessToken, httpClient: httpClient}
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return c, nil
}

type gqlRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

type gqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []GraphQLError  `json:"errors"`
}

// GraphQLError is a top-level error of a GraphQL response.
type GraphQLError struct {
	Message    string                 `json:"message"`
	Extensions map[string]interface{} `json:"extensions,omitempty"`
}

// ResponseError is returned when the response carries top-level GraphQL errors.
type ResponseError struct {
	Errors []GraphQLError
}

func (e *ResponseError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, ge := range e.Errors {
		msgs = append(msgs, ge.Message)
	}
	return "graphql: " + strings.Join(msgs, "; ")
}

// Throttled reports whether the API rejected the call for exceeding the cost budget.
func (e *ResponseError) Throttled() bool {
	for _, ge := range e.Errors {
		if code, _ := ge.Extensions["code"].(string); code == "THROTTLED" {
			return true
		}
	}
	return false
}

// StatusError is returned for non-2xx HTTP responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Body)
}

// Do sends one document and decodes its data into out.
func (c *Client) Do(ctx context.Context, query string, variables map[string]interface{}, out interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	b, err := json.Marshal(gqlRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Shopify-Access-Token", c.token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return &StatusError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var gr gqlResponse
	if err := json.Unmarshal(raw, &gr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if len(gr.Errors) > 0 {
		return &ResponseError{Errors: gr.Errors}
	}
	if out == nil || len(gr.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(gr.Data, out); err != nil {
		return fmt.Errorf("failed to decode data: %w", err)
	}
	return nil
}
