package storetest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// base is a fixed instant so results do not depend on the wall clock.
var base = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

func at(d time.Duration) time.Time {
	return base.Add(d).Truncate(time.Millisecond)
}

func sameTime(t *testing.T, want, got time.Time, msgAndArgs ...any) {
	t.Helper()
	assert.True(t, want.Equal(got), append([]any{"want %s, got %s", want, got}, msgAndArgs...)...)
}
