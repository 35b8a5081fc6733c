package chrono

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStartOfWeek(t *testing.T) {
	table := []struct {
		input    time.Time
		expected time.Time
	}{
		{
			input:    time.Date(2024, time.March, 13, 15, 4, 5, 0, time.UTC),
			expected: time.Date(2024, time.March, 11, 0, 0, 0, 0, time.UTC),
		},
		{
			input:    time.Date(2024, time.March, 11, 0, 0, 0, 0, time.UTC),
			expected: time.Date(2024, time.March, 11, 0, 0, 0, 0, time.UTC),
		},
		{
			input:    time.Date(2024, time.March, 17, 23, 59, 0, 0, time.UTC),
			expected: time.Date(2024, time.March, 11, 0, 0, 0, 0, time.UTC),
		},
		{
			input:    time.Date(2024, time.January, 2, 8, 0, 0, 0, time.UTC),
			expected: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, row := range table {
		require.Equal(t, row.expected, StartOfWeek(row.input))
	}
}

func TestFakeTimeAdvance(t *testing.T) {
	start := time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)
	clock := NewFakeTime(start)
	require.Equal(t, start, clock.Now())

	clock.Advance(time.Second * 90)
	require.Equal(t, start.Add(time.Second*90), clock.Now())
}
