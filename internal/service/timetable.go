package service

import (
	"fmt"
	"hash/fnv"
	"net/url"
	"strconv"
	"time"

	"campusdual-backend/internal/components/chrono"
	"campusdual-backend/internal/portal"
)

const portalRed = "#D41610"

// strTerminator follows the hashed string bytes, existing clients derived their colors with it.
const strTerminator = 0xff

// eventColor replaces the portal's named colors. Anything but darkred gets a stable color
// derived from the title so that recurring lectures share one.
func eventColor(color, title string) string {
	if color == "darkred" {
		return portalRed
	}
	h := fnv.New64a()
	h.Write([]byte("0" + title + "0"))
	h.Write([]byte{strTerminator})
	sum := h.Sum64()
	return fmt.Sprintf("#%02X%02X%02X", sum&0xff, (sum>>8)&0xff, (sum>>16)&0xff)
}

// fontColor picks black or white text for the given background, whichever is readable.
func fontColor(background string) string {
	var r, g, b uint8
	_, err := fmt.Sscanf(background, "#%02X%02X%02X", &r, &g, &b)
	if err != nil {
		return "#000000"
	}
	luminance := 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
	if luminance < 128 {
		return "#FFFFFF"
	}
	return "#000000"
}

// decorateTimetable converts the portal's unix seconds to milliseconds and assigns colors.
func decorateTimetable(entries []portal.TimetableEntry) []portal.TimetableEntry {
	out := make([]portal.TimetableEntry, len(entries))
	for i, entry := range entries {
		entry.Start *= 1000
		entry.End *= 1000
		entry.Color = eventColor(entry.Color, entry.Title)
		entry.FontColor = fontColor(entry.Color)
		out[i] = entry
	}
	return out
}

// timetableRange reads the start and end query parameters in unix seconds, the range defaults
// to the current week.
func timetableRange(query url.Values, now time.Time) (time.Time, time.Time, error) {
	start := chrono.StartOfWeek(now)
	end := start.AddDate(0, 0, 7)

	if raw := query.Get("start"); raw != "" {
		secs, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parse start: %w", err)
		}
		start = time.Unix(secs, 0)
		if query.Get("end") == "" {
			end = start.AddDate(0, 0, 7)
		}
	}
	if raw := query.Get("end"); raw != "" {
		secs, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parse end: %w", err)
		}
		end = time.Unix(secs, 0)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("end %d is before start %d", end.Unix(), start.Unix())
	}
	return start, end, nil
}
