package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		raw     *string
		want    *string
		wantErr error
	}{
		{"nil is null", nil, nil, nil},
		{"blank is null", StringPtr("  "), nil, nil},
		{"string amount", StringPtr(`{"amount":"19.99"}`), StringPtr("19.99"), nil},
		{"trailing zeros kept", StringPtr(`{"amount":"20.00","currency_code":"USD"}`), StringPtr("20.00"), nil},
		{"numeric amount", StringPtr(`{"amount":7.5}`), StringPtr("7.5"), nil},
		{"not json", StringPtr(`19.99`), nil, ErrMalformedPrice},
		{"truncated json", StringPtr(`{"amount":"1`), nil, ErrMalformedPrice},
		{"json null", StringPtr(`null`), nil, ErrMalformedPrice},
		{"missing amount", StringPtr(`{"currency_code":"USD"}`), nil, ErrMissingAmount},
		{"null amount", StringPtr(`{"amount":null}`), nil, ErrMissingAmount},
		{"non decimal", StringPtr(`{"amount":"abc"}`), nil, ErrInvalidAmount},
		{"boolean amount", StringPtr(`{"amount":true}`), nil, ErrInvalidAmount},
		{"negative", StringPtr(`{"amount":"-1"}`), nil, ErrNegativePrice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.raw)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
