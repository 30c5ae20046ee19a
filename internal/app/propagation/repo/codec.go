package repo

import (
	"encoding/json"
	"fmt"

	"github.com/light-bringer/metasync-service/internal/app/propagation/domain"
)

type metafieldJSON struct {
	ID        string  `json:"id"`
	Namespace string  `json:"namespace"`
	Key       string  `json:"key"`
	Type      string  `json:"type"`
	Value     *string `json:"value"`
}

func decodeMetafields(raw string) (map[string]domain.Metafield, error) {
	out := make(map[string]domain.Metafield)
	if raw == "" || raw == "null" {
		return out, nil
	}
	var stored map[string]metafieldJSON
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil, fmt.Errorf("failed to decode metafields: %w", err)
	}
	for k, m := range stored {
		out[k] = domain.Metafield{ID: m.ID, Namespace: m.Namespace, Key: m.Key, Type: m.Type, Value: m.Value}
	}
	return out, nil
}

func encodeMetafields(mfs map[string]domain.Metafield) (string, error) {
	stored := make(map[string]metafieldJSON, len(mfs))
	for k, m := range mfs {
		stored[k] = metafieldJSON{ID: m.ID, Namespace: m.Namespace, Key: m.Key, Type: m.Type, Value: m.Value}
	}
	b, err := json.Marshal(stored)
	if err != nil {
		return "", fmt.Errorf("failed to encode metafields: %w", err)
	}
	return string(b), nil
}

func decodeFields(raw string) (map[string]*string, error) {
	fields := make(map[string]*string)
	if raw == "" || raw == "null" {
		return fields, nil
	}
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, fmt.Errorf("failed to decode definition fields: %w", err)
	}
	return fields, nil
}

func decodeReferences(raw string) (map[string]string, error) {
	refs := make(map[string]string)
	if raw == "" || raw == "null" {
		return refs, nil
	}
	if err := json.Unmarshal([]byte(raw), &refs); err != nil {
		return nil, fmt.Errorf("failed to decode definition references: %w", err)
	}
	return refs, nil
}

func encodeJSON(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
