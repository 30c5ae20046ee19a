package testutil

import (
	"time"

	"github.com/light-bringer/metasync-service/internal/pkg/clock"
)

// ClockStart is where NewMockClock starts, so run timestamps are stable across test runs.
var ClockStart = time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

// NewMockClock creates a controllable clock at ClockStart.
func NewMockClock() *clock.MockClock {
	return clock.NewMockClock(ClockStart)
}
