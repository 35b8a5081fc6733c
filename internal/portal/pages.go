package portal

import (
	"context"
	"fmt"
	"strings"
)

const (
	gradesPath         = "/acwork/index"
	examSignupPath     = "/acwork/expproc"
	deregistrationPath = "/acwork/cancelproc"
)

func (c *Client) page(ctx context.Context, state AuthState, path string) ([]byte, error) {
	httpClient, err := c.authenticatedHttp(state)
	if err != nil {
		return nil, err
	}
	res, err := c.get(httpClient.R().SetContext(ctx), c.selfservice(path))
	if err != nil {
		c.tel.ReportWarning(report_client_page, path, err)
		return nil, fmt.Errorf("portal: fetch %s: %w", path, err)
	}
	if c.opts.PageOutput != nil {
		c.opts.PageOutput.Write(strings.TrimPrefix(path, "/")+".html", res.Body())
	}
	return res.Body(), nil
}

// GradesPage returns the markup of the academic results page.
func (c *Client) GradesPage(ctx context.Context, state AuthState) ([]byte, error) {
	return c.page(ctx, state, gradesPath)
}

// ExamSignupPage returns the markup of the page listing exams open for registration.
func (c *Client) ExamSignupPage(ctx context.Context, state AuthState) ([]byte, error) {
	return c.page(ctx, state, examSignupPath)
}

// ExamDeregistrationPage returns the markup of the page listing booked exams that can still be
// cancelled.
func (c *Client) ExamDeregistrationPage(ctx context.Context, state AuthState) ([]byte, error) {
	return c.page(ctx, state, deregistrationPath)
}
