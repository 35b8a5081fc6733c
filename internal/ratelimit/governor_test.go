package ratelimit

import (
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"campusdual-backend/internal/components/chrono"
	"campusdual-backend/internal/components/telemetry"

	"github.com/stretchr/testify/require"
)

var testStart = time.Date(2024, time.October, 1, 8, 0, 0, 0, time.UTC)

func newTestGovernor(capacity int, interval time.Duration) (*Governor, *chrono.FakeTime, *telemetry.RecordingAPI) {
	clock := chrono.NewFakeTime(testStart)
	rec := &telemetry.RecordingAPI{}
	return NewGovernor("test", Quota{Capacity: capacity, RestoreInterval: interval}, clock, rec), clock, rec
}

func TestAdmitBurstThenRefill(t *testing.T) {
	governor, clock, _ := newTestGovernor(5, time.Second*5)

	for i := 0; i < 5; i++ {
		require.True(t, governor.Admit("3001234"), "request %d", i)
	}
	require.False(t, governor.Admit("3001234"))

	clock.Advance(time.Second)
	require.True(t, governor.Admit("3001234"))
	require.False(t, governor.Admit("3001234"))
}

func TestBucketsAreIndependent(t *testing.T) {
	governor, _, _ := newTestGovernor(1, time.Minute)

	require.True(t, governor.Admit("a"))
	require.False(t, governor.Admit("a"))
	require.True(t, governor.Admit("b"))
	require.Equal(t, 2, governor.Len())
}

func TestEmptyKeySharesGlobalBucket(t *testing.T) {
	governor, _, _ := newTestGovernor(1, time.Minute)

	require.True(t, governor.Admit(""))
	require.False(t, governor.Admit(GlobalKey))
}

func TestRetryAfter(t *testing.T) {
	governor, clock, _ := newTestGovernor(2, time.Second*10)

	require.Equal(t, time.Duration(0), governor.RetryAfter("a"))
	require.True(t, governor.Admit("a"))
	require.True(t, governor.Admit("a"))
	require.InDelta(t, float64(time.Second*5), float64(governor.RetryAfter("a")), float64(time.Millisecond*2))

	clock.Advance(time.Second * 2)
	require.InDelta(t, float64(time.Second*3), float64(governor.RetryAfter("a")), float64(time.Millisecond*2))
}

func TestReclaimDropsOnlyFullBuckets(t *testing.T) {
	governor, clock, rec := newTestGovernor(5, time.Second*5)

	for i := 0; i < 3; i++ {
		require.True(t, governor.Admit("busy"))
	}
	require.True(t, governor.Admit("idle"))

	clock.Advance(time.Second)
	require.Equal(t, 1, governor.Reclaim())

	clock.Advance(time.Second * 2)
	require.Equal(t, 0, governor.Reclaim())

	counts := rec.Reports("count")
	require.Len(t, counts, 2)
	require.Equal(t, int64(1), counts[0].Count)
	require.Equal(t, int64(0), counts[1].Count)
}

func TestReclaimedBucketStartsFull(t *testing.T) {
	governor, clock, _ := newTestGovernor(3, time.Second*3)

	for i := 0; i < 3; i++ {
		require.True(t, governor.Admit("a"))
	}
	clock.Advance(time.Second * 3)
	require.Equal(t, 0, governor.Reclaim())

	for i := 0; i < 3; i++ {
		require.True(t, governor.Admit("a"))
	}
	require.False(t, governor.Admit("a"))
}

func TestAdmitIsSafeForConcurrentUse(t *testing.T) {
	governor, _, _ := newTestGovernor(50, time.Minute)

	var admitted atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if governor.Admit("shared") {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int64(50), admitted.Load())
}

func TestClientAddress(t *testing.T) {
	table := []struct {
		name           string
		remoteAddr     string
		headers        map[string]string
		trustForwarded bool
		expected       string
	}{
		{name: "remote addr", remoteAddr: "203.0.113.7:51234", expected: "203.0.113.7"},
		{name: "ipv6 remote addr", remoteAddr: "[2001:db8::1]:443", expected: "2001:db8::1"},
		{
			name:       "forwarded header ignored by default",
			remoteAddr: "10.0.0.2:8080",
			headers:    map[string]string{"X-Forwarded-For": "198.51.100.9"},
			expected:   "10.0.0.2",
		},
		{
			name:           "first forwarded address when trusted",
			remoteAddr:     "10.0.0.2:8080",
			headers:        map[string]string{"X-Forwarded-For": "198.51.100.9, 10.0.0.1"},
			trustForwarded: true,
			expected:       "198.51.100.9",
		},
		{
			name:           "real ip fallback",
			remoteAddr:     "10.0.0.2:8080",
			headers:        map[string]string{"X-Real-IP": "198.51.100.10"},
			trustForwarded: true,
			expected:       "198.51.100.10",
		},
		{name: "unresolvable", remoteAddr: "pipe", expected: ""},
	}

	for _, row := range table {
		t.Run(row.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/signin", nil)
			req.RemoteAddr = row.remoteAddr
			for k, v := range row.headers {
				req.Header.Set(k, v)
			}
			require.Equal(t, row.expected, ClientAddress(req, row.trustForwarded))
		})
	}
}
