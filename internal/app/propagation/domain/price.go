package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount unpacks a money field stored as {"amount": "19.99", ...}. A nil or blank raw
// value is null and yields nil. The amount is returned exactly as stored, so "20.00" stays
// "20.00"; numeric JSON amounts are accepted as written.
func ParseAmount(raw *string) (*string, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(*raw), &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPrice, err)
	}
	if obj == nil {
		return nil, ErrMalformedPrice
	}

	amountRaw, ok := obj["amount"]
	if !ok || bytes.Equal(bytes.TrimSpace(amountRaw), []byte("null")) {
		return nil, ErrMissingAmount
	}

	var amount string
	if err := json.Unmarshal(amountRaw, &amount); err != nil {
		var num json.Number
		if err := json.Unmarshal(amountRaw, &num); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidAmount, amountRaw)
		}
		amount = num.String()
	}
	amount = strings.TrimSpace(amount)

	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("%w: %s", ErrNegativePrice, amount)
	}
	return &amount, nil
}
