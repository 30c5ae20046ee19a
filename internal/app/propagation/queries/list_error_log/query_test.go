package list_error_log

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/light-bringer/metasync-service/internal/app/propagation/domain"
	"github.com/light-bringer/metasync-service/tests/testutil"
)

func strPtr(s string) *string { return &s }

func TestQuery_Execute(t *testing.T) {
	log := testutil.NewFakeErrorLog(
		"[Brand Update] (brand#1) vendor - locked",
		"[Category Update] (category#9) price - invalid",
		"[Brand Update] (brand#2) request - timeout",
		"[Brand Update] (brand#1) request - timeout",
	)
	q := NewQuery(log)

	t.Run("newest first with default limit", func(t *testing.T) {
		res, err := q.Execute(context.Background(), &Request{})
		require.NoError(t, err)
		assert.Equal(t, 4, res.TotalCount)
		assert.Equal(t, "[Brand Update] (brand#1) request - timeout", res.Entries[0])
	})

	t.Run("filter by category and definition", func(t *testing.T) {
		res, err := q.Execute(context.Background(), &Request{Category: strPtr("brand"), DefinitionID: strPtr("brand#1")})
		require.NoError(t, err)
		assert.Equal(t, []string{
			"[Brand Update] (brand#1) request - timeout",
			"[Brand Update] (brand#1) vendor - locked",
		}, res.Entries)
	})

	t.Run("pagination", func(t *testing.T) {
		res, err := q.Execute(context.Background(), &Request{Limit: 2, Offset: 2})
		require.NoError(t, err)
		assert.Equal(t, 4, res.TotalCount)
		assert.Equal(t, []string{
			"[Category Update] (category#9) price - invalid",
			"[Brand Update] (brand#1) vendor - locked",
		}, res.Entries)

		res, err = q.Execute(context.Background(), &Request{Offset: 10})
		require.NoError(t, err)
		assert.Empty(t, res.Entries)
	})

	t.Run("unknown category", func(t *testing.T) {
		_, err := q.Execute(context.Background(), &Request{Category: strPtr("collection")})
		assert.ErrorIs(t, err, domain.ErrUnknownCategory)
	})
}
