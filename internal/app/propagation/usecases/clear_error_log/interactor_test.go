package clear_error_log

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/light-bringer/metasync-service/tests/testutil"
)

func TestExecute(t *testing.T) {
	log := testutil.NewFakeErrorLog("a", "b")
	uc := NewInteractor(log, nil)

	t.Run("requires operator", func(t *testing.T) {
		assert.Error(t, uc.Execute(context.Background(), &Request{}))
		entries, _ := log.Entries(context.Background())
		assert.Len(t, entries, 2)
	})

	t.Run("clears", func(t *testing.T) {
		require.NoError(t, uc.Execute(context.Background(), &Request{ClearedBy: "ops@example.com"}))
		entries, _ := log.Entries(context.Background())
		assert.Empty(t, entries)
	})
}
