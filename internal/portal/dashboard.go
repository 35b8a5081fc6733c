package portal

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// fetch performs a GET against the selfservice host and returns the raw body.
func (c *Client) fetch(ctx context.Context, state AuthState, path string, query map[string]string) ([]byte, error) {
	httpClient, err := c.authenticatedHttp(state)
	if err != nil {
		return nil, err
	}
	res, err := c.get(
		httpClient.R().
			SetContext(ctx).
			SetQueryParams(query),
		c.selfservice(path),
	)
	if err != nil {
		c.tel.ReportWarning(report_client_dashboard, path, err)
		return nil, fmt.Errorf("portal: fetch %s: %w", path, err)
	}
	return res.Body(), nil
}

func (c *Client) decode(path string, body []byte, target any) error {
	err := json.Unmarshal(body, target)
	if err != nil {
		c.tel.ReportBroken(report_client_dashboard, path, fmt.Errorf("decode: %w", err))
		return fmt.Errorf("portal: decode %s: %w: %w", path, ErrUpstreamFormat, err)
	}
	return nil
}

func signed(state AuthState) map[string]string {
	return map[string]string{
		"user": state.SubjectID,
		"hash": state.SubjectHash,
	}
}

// CreditPoints returns the accumulated credit points exactly as the portal reports them.
func (c *Client) CreditPoints(ctx context.Context, state AuthState) (string, error) {
	body, err := c.fetch(ctx, state, "/dash/getcp", signed(state))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(body)), nil
}

// Semester returns the current semester of study.
func (c *Client) Semester(ctx context.Context, state AuthState) (uint64, error) {
	body, err := c.fetch(ctx, state, "/dash/getfs", signed(state))
	if err != nil {
		return 0, err
	}
	text := strings.ReplaceAll(strings.TrimSpace(string(body)), `"`, "")
	semester, err := strconv.ParseUint(text, 10, 64)
	if err != nil {
		c.tel.ReportBroken(report_client_dashboard, "/dash/getfs", fmt.Errorf("parse semester: %w", err))
		return 0, fmt.Errorf("portal: semester: %w: %w", ErrUpstreamFormat, err)
	}
	return semester, nil
}

func (c *Client) ExamStats(ctx context.Context, state AuthState) (ExamStats, error) {
	body, err := c.fetch(ctx, state, "/dash/getexamstats", signed(state))
	if err != nil {
		return ExamStats{}, err
	}
	var upstream examStatsUpstream
	err = c.decode("/dash/getexamstats", body, &upstream)
	if err != nil {
		return ExamStats{}, err
	}
	return upstream.stats(), nil
}

// Timetable returns the events between start and end as the portal reports them.
func (c *Client) Timetable(ctx context.Context, state AuthState, start, end time.Time) ([]TimetableEntry, error) {
	body, err := c.fetch(ctx, state, "/room/json", map[string]string{
		"userid": state.SubjectID,
		"hash":   state.SubjectHash,
		"start":  strconv.FormatInt(start.Unix(), 10),
		"end":    strconv.FormatInt(end.Unix(), 10),
	})
	if err != nil {
		return nil, err
	}
	var entries []TimetableEntry
	err = c.decode("/room/json", body, &entries)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []TimetableEntry{}
	}
	return entries, nil
}

func (c *Client) Reminders(ctx context.Context, state AuthState) (Reminders, error) {
	body, err := c.fetch(ctx, state, "/dash/getreminders", signed(state))
	if err != nil {
		return Reminders{}, err
	}
	var reminders Reminders
	err = c.decode("/dash/getreminders", body, &reminders)
	if err != nil {
		return Reminders{}, err
	}
	return reminders, nil
}

func (c *Client) Timeline(ctx context.Context, state AuthState) ([]TimelineEvent, error) {
	body, err := c.fetch(ctx, state, "/dash/gettimeline", map[string]string{
		"user": state.SubjectID,
	})
	if err != nil {
		return nil, err
	}
	var parsed timeline
	err = c.decode("/dash/gettimeline", body, &parsed)
	if err != nil {
		return nil, err
	}
	if parsed.Events == nil {
		parsed.Events = []TimelineEvent{}
	}
	return parsed.Events, nil
}

// RegisterExam books the exam offer and returns the portal's answer verbatim. The portal takes
// bookings as GET requests, they are never retried.
func (c *Client) RegisterExam(ctx context.Context, state AuthState, booking ExamBooking) (string, error) {
	body, err := c.fetch(withoutRetry(ctx), state, "/acwork/registerexam", map[string]string{
		"userid":     state.SubjectID,
		"assessment": booking.Assessment,
		"peryr":      booking.YearPeriod,
		"perid":      booking.TermPeriod,
		"offerno":    booking.OfferNo,
		"hash":       state.SubjectHash,
	})
	if err != nil {
		c.tel.ReportWarning(report_client_exam_booking, "register", booking.Assessment, err)
		return "", err
	}
	return string(body), nil
}

// CancelExam cancels the booking of the assessment and returns the portal's answer verbatim.
func (c *Client) CancelExam(ctx context.Context, state AuthState, assessment string) (string, error) {
	body, err := c.fetch(withoutRetry(ctx), state, "/acwork/cancelexam", map[string]string{
		"userid": state.SubjectID,
		"objid":  assessment,
		"hash":   state.SubjectHash,
	})
	if err != nil {
		c.tel.ReportWarning(report_client_exam_booking, "cancel", assessment, err)
		return "", err
	}
	return string(body), nil
}
