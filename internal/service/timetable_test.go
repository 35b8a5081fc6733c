package service

import (
	"net/url"
	"testing"
	"time"

	"campusdual-backend/internal/portal"

	"github.com/stretchr/testify/require"
)

func TestEventColor(t *testing.T) {
	require.Equal(t, "#D41610", eventColor("darkred", "Mathematik II"))

	cases := []struct {
		title    string
		expected string
	}{
		{"Mathematik II", "#11BB80"},
		{"Programmierung", "#85D3F3"},
		{"Rechnernetze", "#1D1C5A"},
		{"Datenbanken", "#2B6366"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.expected, eventColor("blue", tc.title), tc.title)
		require.Equal(t, tc.expected, eventColor("green", tc.title), tc.title)
	}
}

func TestFontColor(t *testing.T) {
	cases := []struct {
		background string
		expected   string
	}{
		{"#FFFFFF", "#000000"},
		{"#000000", "#FFFFFF"},
		{"#D41610", "#FFFFFF"},
		{"#FFFF00", "#000000"},
		{"#0000FF", "#FFFFFF"},
		{"#7F7F7F", "#FFFFFF"},
		{"#909090", "#000000"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.expected, fontColor(tc.background), tc.background)
	}
}

func TestDecorateTimetable(t *testing.T) {
	entries := []portal.TimetableEntry{
		{Title: "Mathematik II", Color: "darkred", Start: 10, End: 20},
		{Title: "Seminar", Color: "blue", Start: 30, End: 40},
	}
	decorated := decorateTimetable(entries)

	require.Equal(t, int64(10000), decorated[0].Start)
	require.Equal(t, int64(20000), decorated[0].End)
	require.Equal(t, "#D41610", decorated[0].Color)
	require.Equal(t, "#FFFFFF", decorated[0].FontColor)
	require.Equal(t, "#A31ED1", decorated[1].Color)
	require.Equal(t, "#FFFFFF", decorated[1].FontColor)

	// the input is left alone
	require.Equal(t, int64(10), entries[0].Start)
	require.Equal(t, "darkred", entries[0].Color)
}

func TestTimetableRange(t *testing.T) {
	now := time.Date(2024, time.October, 3, 15, 30, 0, 0, time.UTC)
	monday := time.Date(2024, time.September, 30, 0, 0, 0, 0, time.UTC)

	start, end, err := timetableRange(url.Values{}, now)
	require.NoError(t, err)
	require.True(t, start.Equal(monday))
	require.True(t, end.Equal(monday.AddDate(0, 0, 7)))

	start, end, err = timetableRange(url.Values{"start": {"1718000000"}}, now)
	require.NoError(t, err)
	require.Equal(t, int64(1718000000), start.Unix())
	require.Equal(t, start.AddDate(0, 0, 7).Unix(), end.Unix())

	start, end, err = timetableRange(url.Values{"start": {"1718000000"}, "end": {"1718600000"}}, now)
	require.NoError(t, err)
	require.Equal(t, int64(1718000000), start.Unix())
	require.Equal(t, int64(1718600000), end.Unix())

	_, _, err = timetableRange(url.Values{"start": {"abc"}}, now)
	require.Error(t, err)
	_, _, err = timetableRange(url.Values{"start": {"1718600000"}, "end": {"1718000000"}}, now)
	require.Error(t, err)
}
