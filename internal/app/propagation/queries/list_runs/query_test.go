package list_runs

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/light-bringer/metasync-service/internal/app/propagation/domain"
	"github.com/light-bringer/metasync-service/tests/testutil"
)

func seedRuns(t *testing.T, n int) *testutil.FakeRunRepo {
	t.Helper()
	runs := testutil.NewFakeRunRepo()
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		state := domain.RunDone
		if i%3 == 0 {
			state = domain.RunAborted
		}
		require.NoError(t, runs.Save(context.Background(), &domain.Run{
			RunID:        fmt.Sprintf("run-%03d", i),
			DefinitionID: fmt.Sprintf("def-%d", i%2),
			Category:     "brand",
			State:        state,
			StartedAt:    start.Add(time.Duration(i) * time.Minute),
			FinishedAt:   start.Add(time.Duration(i)*time.Minute + time.Second),
		}))
	}
	return runs
}

func TestQuery_Execute(t *testing.T) {
	q := NewQuery(seedRuns(t, 600))

	t.Run("default limit", func(t *testing.T) {
		runs, err := q.Execute(context.Background(), &Request{})
		require.NoError(t, err)
		assert.Len(t, runs, 50)
		assert.Equal(t, "run-599", runs[0].RunID)
	})

	t.Run("limit is capped", func(t *testing.T) {
		runs, err := q.Execute(context.Background(), &Request{Limit: 10000})
		require.NoError(t, err)
		assert.Len(t, runs, 500)
	})

	t.Run("filters by definition and state", func(t *testing.T) {
		runs, err := q.Execute(context.Background(), &Request{DefinitionID: "def-0", State: string(domain.RunAborted), Limit: 5})
		require.NoError(t, err)
		require.Len(t, runs, 5)
		for _, run := range runs {
			assert.Equal(t, "def-0", run.DefinitionID)
			assert.Equal(t, domain.RunAborted, run.State)
		}
	})
}

func TestQuery_Execute_Empty(t *testing.T) {
	runs, err := NewQuery(testutil.NewFakeRunRepo()).Execute(context.Background(), &Request{Limit: 5})
	require.NoError(t, err)
	assert.Empty(t, runs)
}
