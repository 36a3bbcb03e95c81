package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRealReturnsUTC(t *testing.T) {
	now := Real{}.Now()
	assert.Equal(t, time.UTC, now.Location())
	assert.WithinDuration(t, time.Now(), now, time.Second)
}

func TestFake(t *testing.T) {
	start := time.Date(2024, 8, 23, 14, 0, 0, 0, time.FixedZone("X", 3600))
	f := NewFake(start)

	assert.True(t, f.Now().Equal(start))
	assert.Equal(t, time.UTC, f.Now().Location())

	next := f.Advance(9 * time.Minute)
	assert.Equal(t, start.Add(9*time.Minute).UTC(), next)
	assert.Equal(t, next, f.Now())

	f.Set(start)
	assert.True(t, f.Now().Equal(start))
}
