package temporal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ now time.Time }

func (f *fakeClock) Now() time.Time { return f.now }

func TestRecentAvgEmptyWindowIsNotZero(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	s := New(clock)

	_, ok := s.RecentAvg("cpu", 10*time.Second, clock.now)
	assert.False(t, ok, "empty window must report ok=false, not 0")
}

func TestRecentAvgAndCount(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	s := New(clock)

	s.Record("cpu", 10, time.Time{})
	clock.now = clock.now.Add(1 * time.Second)
	s.Record("cpu", 20, time.Time{})

	avg, ok := s.RecentAvg("cpu", 10*time.Second, clock.now)
	require.True(t, ok)
	assert.Equal(t, 15.0, avg)
	assert.Equal(t, 2, s.RecentCount("cpu", 10*time.Second, clock.now))
}

func TestSustainedAboveRequiresFullWindowSpan(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	s := New(clock)

	for i := 0; i < 20; i++ {
		s.Record("cpu", 95, time.Time{})
		clock.now = clock.now.Add(30 * time.Second)
	}

	assert.True(t, s.SustainedAbove("cpu", 90, 600*time.Second, clock.now))
	assert.False(t, s.SustainedAbove("cpu", 96, 600*time.Second, clock.now))
}

func TestSustainedAboveFalseWhenWindowDoesNotSpanFully(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	s := New(clock)

	s.Record("cpu", 95, time.Time{})
	clock.now = clock.now.Add(5 * time.Second)

	assert.False(t, s.SustainedAbove("cpu", 90, 600*time.Second, clock.now))
}

func TestTTLFactExpires(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	s := New(clock)

	s.SetTTLFact("session", 42, 5*time.Second)
	assert.True(t, s.HasTTLFact("session", clock.now))

	v, ok := s.TTLFact("session", clock.now.Add(10*time.Second))
	assert.False(t, ok)
	assert.Equal(t, 0.0, v)
}

func TestMaxSamplesEviction(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	s := New(clock, WithMaxSamples(3))

	for i := 0; i < 5; i++ {
		s.Record("k", float64(i), time.Time{})
	}
	assert.Equal(t, 3, s.RecentCount("k", time.Hour, clock.now))

	max, ok := s.RecentMax("k", time.Hour, clock.now)
	require.True(t, ok)
	assert.Equal(t, 4.0, max)
}
