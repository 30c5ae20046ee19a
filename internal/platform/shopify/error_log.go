package shopify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/light-bringer/metasync-service/internal/app/propagation/contracts"
)

const (
	// maxSetAttempts bounds the compare-and-set loop of one write.
	maxSetAttempts = 8

	staleObjectCode = "STALE_OBJECT"
	jsonType        = "json"
)

// ErrStaleLog is returned when the log kept changing under every attempt of a write.
var ErrStaleLog = errors.New("error log changed concurrently")

const errorLogQuery = `query ErrorLog($namespace: String!, $key: String!) {
  shop {
    id
    metafield(namespace: $namespace, key: $key) { value compareDigest }
  }
}`

const setErrorLogMutation = `mutation SetErrorLog($metafields: [MetafieldsSetInput!]!) {
  metafieldsSet(metafields: $metafields) {
    metafields { id }
    userErrors { field message code }
  }
}`

// ErrorLog keeps the log as a JSON list metafield on the shop. Writes pass the digest of
// the value they were computed from, so a concurrent write makes them fail and retry.
type ErrorLog struct {
	client    *Client
	namespace string
	key       string
}

var _ contracts.ErrorLog = (*ErrorLog)(nil)

// NewErrorLog creates a new shop metafield error log.
func NewErrorLog(client *Client, namespace, key string) *ErrorLog {
	return &ErrorLog{client: client, namespace: namespace, key: key}
}

type logSnapshot struct {
	shopID  string
	entries []string
	digest  *string
}

// Entries returns the log, oldest first.
func (l *ErrorLog) Entries(ctx context.Context) ([]string, error) {
	snap, err := l.read(ctx)
	if err != nil {
		return nil, err
	}
	return snap.entries, nil
}

// Append adds entries with compare-and-set on the metafield digest.
func (l *ErrorLog) Append(ctx context.Context, entries ...string) error {
	if len(entries) == 0 {
		return nil
	}
	return l.update(ctx, func(current []string) []string {
		return append(current, entries...)
	})
}

// Clear empties the log.
func (l *ErrorLog) Clear(ctx context.Context) error {
	return l.update(ctx, func([]string) []string {
		return []string{}
	})
}

func (l *ErrorLog) update(ctx context.Context, next func([]string) []string) error {
	for attempt := 1; attempt <= maxSetAttempts; attempt++ {
		snap, err := l.read(ctx)
		if err != nil {
			return err
		}
		stale, err := l.set(ctx, snap, next(snap.entries))
		if err != nil {
			return err
		}
		if !stale {
			return nil
		}
	}
	return fmt.Errorf("failed to write error log after %d attempts: %w", maxSetAttempts, ErrStaleLog)
}

func (l *ErrorLog) read(ctx context.Context) (*logSnapshot, error) {
	var data struct {
		Shop struct {
			ID        string `json:"id"`
			Metafield *struct {
				Value         string `json:"value"`
				CompareDigest string `json:"compareDigest"`
			} `json:"metafield"`
		} `json:"shop"`
	}
	vars := map[string]interface{}{"namespace": l.namespace, "key": l.key}
	if err := l.client.Do(ctx, errorLogQuery, vars, &data); err != nil {
		return nil, fmt.Errorf("failed to read error log: %w", err)
	}

	snap := &logSnapshot{shopID: data.Shop.ID, entries: []string{}}
	if mf := data.Shop.Metafield; mf != nil {
		digest := mf.CompareDigest
		snap.digest = &digest
		if mf.Value != "" {
			if err := json.Unmarshal([]byte(mf.Value), &snap.entries); err != nil {
				return nil, fmt.Errorf("error log is not a JSON array of strings: %w", err)
			}
		}
	}
	return snap, nil
}

// set writes entries if the metafield still has the digest of snap. A nil digest requires
// the metafield to not exist yet. Reports stale when another write won.
func (l *ErrorLog) set(ctx context.Context, snap *logSnapshot, entries []string) (bool, error) {
	if entries == nil {
		entries = []string{}
	}
	value, err := json.Marshal(entries)
	if err != nil {
		return false, fmt.Errorf("failed to encode error log: %w", err)
	}

	input := map[string]interface{}{
		"ownerId":       snap.shopID,
		"namespace":     l.namespace,
		"key":           l.key,
		"type":          jsonType,
		"value":         string(value),
		"compareDigest": snap.digest,
	}
	var data struct {
		MetafieldsSet struct {
			UserErrors []userError `json:"userErrors"`
		} `json:"metafieldsSet"`
	}
	vars := map[string]interface{}{"metafields": []interface{}{input}}
	if err := l.client.Do(ctx, setErrorLogMutation, vars, &data); err != nil {
		return false, fmt.Errorf("failed to write error log: %w", err)
	}

	for _, ue := range data.MetafieldsSet.UserErrors {
		if ue.Code == staleObjectCode {
			return true, nil
		}
	}
	if len(data.MetafieldsSet.UserErrors) > 0 {
		return false, fmt.Errorf("error log write rejected: %s", data.MetafieldsSet.UserErrors[0].Message)
	}
	return false, nil
}
