package portal

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	hashRegex    = regexp.MustCompile(`hash="(\w+)";user="(\d+)";`)
	profileRegex = regexp.MustCompile(
		`<strong>Name:\s*</strong>([\p{L}\p{N}_]+),\s*([\p{L}\p{N}_]+).*<strong>\s*Seminargruppe:\s*</strong>([\p{L}\p{N}_-]+).*<br>(.*)`,
	)
)

// Login negotiates a new portal session for the student and returns the state needed to act on
// their behalf together with the profile shown on the start page.
func (c *Client) Login(ctx context.Context, username, password string) (AuthState, Profile, error) {
	loginError := func(err error) error {
		return fmt.Errorf("portal: login: %w", err)
	}
	username = strings.TrimSpace(username)

	jar, err := newRecordingJar(c.time.Now)
	if err != nil {
		return AuthState{}, Profile{}, loginError(err)
	}
	httpClient := c.newHttp(jar)

	res, err := c.get(httpClient.R().SetContext(ctx), c.loginPageUrl())
	if err != nil {
		c.tel.ReportWarning(report_client_login, fmt.Errorf("login page request: %w", err))
		return AuthState{}, Profile{}, loginError(err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		c.tel.ReportBroken(report_client_login, fmt.Errorf("parse login page: %w", err))
		return AuthState{}, Profile{}, loginError(fmt.Errorf("%w: %w", ErrUpstreamFormat, err))
	}
	xsrf, ok := doc.Find(`input[name="sap-login-XSRF"]`).Attr("value")
	if !ok {
		err := fmt.Errorf("%w: could not find login xsrf token", ErrUpstreamFormat)
		c.tel.ReportBroken(report_client_login, err)
		return AuthState{}, Profile{}, loginError(err)
	}

	mark := jar.mark()
	res, err = c.execute(
		httpClient.R().
			SetContext(ctx).
			SetFormData(map[string]string{
				"sap-user":       username,
				"sap-password":   password,
				"sap-login-XSRF": xsrf,
			}),
		http.MethodPost,
		c.loginSubmitUrl(),
	)
	if err != nil {
		c.tel.ReportWarning(report_client_login, fmt.Errorf("login request: %w", err))
		return AuthState{}, Profile{}, loginError(err)
	}
	if !res.IsSuccess() {
		err := fmt.Errorf("%w: login status %s", ErrUpstreamUnreachable, res.Status())
		c.tel.ReportWarning(report_client_login, err)
		return AuthState{}, Profile{}, loginError(err)
	}
	if !jar.setSince(mark, c.opts.CookieDomain) {
		c.tel.ReportDebug("login rejected: no session cookie issued", username)
		return AuthState{}, Profile{}, loginError(ErrInvalidCredentials)
	}
	if c.opts.SuccessTitle != "" {
		doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
		if err != nil || strings.TrimSpace(doc.Find("title").First().Text()) != c.opts.SuccessTitle {
			c.tel.ReportDebug("login rejected: unexpected landing page", username)
			return AuthState{}, Profile{}, loginError(ErrInvalidCredentials)
		}
	}

	cookie, ok := jar.harvest(c.opts.CookieDomain, c.opts.SessionCookieName)
	if !ok {
		c.tel.ReportBroken(report_client_login, ErrSessionCookieMissing, c.opts.CookieDomain)
		return AuthState{}, Profile{}, loginError(ErrSessionCookieMissing)
	}

	res, err = c.get(httpClient.R().SetContext(ctx), c.selfservice("/index/login"))
	if err != nil {
		c.tel.ReportWarning(report_client_profile, fmt.Errorf("start page request: %w", err))
		return AuthState{}, Profile{}, loginError(err)
	}
	hash, user, ok := findHash(res.Body())
	if !ok {
		c.tel.ReportBroken(report_client_profile, ErrHashNotFound)
		return AuthState{}, Profile{}, loginError(ErrHashNotFound)
	}
	profile := parseProfile(res.Body())
	profile.User = user

	state := AuthState{
		SessionCookie: cookie,
		SubjectID:     username,
		SubjectHash:   hash,
		Password:      password,
	}
	return state, profile, nil
}

func findHash(page []byte) (hash, user string, ok bool) {
	groups := hashRegex.FindSubmatch(page)
	if len(groups) < 3 {
		return "", "", false
	}
	return string(groups[1]), string(groups[2]), true
}

// parseProfile is best-effort, fields stay empty when the start page does not match.
func parseProfile(page []byte) Profile {
	groups := profileRegex.FindSubmatch(page)
	if len(groups) < 5 {
		return Profile{}
	}
	return Profile{
		LastName:     string(groups[1]),
		FirstName:    string(groups[2]),
		SeminarGroup: string(groups[3]),
		SeminarName:  strings.TrimSpace(string(groups[4])),
	}
}

// SessionAlive probes whether the portal session behind state is still valid. The login page
// answers a valid session with a server error and an expired one with the login form.
func (c *Client) SessionAlive(ctx context.Context, state AuthState) (bool, error) {
	httpClient, err := c.authenticatedHttp(state)
	if err != nil {
		return false, err
	}
	res, err := c.execute(httpClient.R().SetContext(withoutRetry(ctx)), http.MethodGet, c.loginPageUrl())
	if err != nil {
		c.tel.ReportWarning(report_client_session_alive, err)
		return false, fmt.Errorf("portal: session alive: %w", err)
	}
	switch res.StatusCode() {
	case http.StatusOK:
		return false, nil
	case http.StatusInternalServerError:
		return true, nil
	default:
		err := fmt.Errorf("%w: session probe status %s", ErrUpstreamUnreachable, res.Status())
		c.tel.ReportWarning(report_client_session_alive, err)
		return false, fmt.Errorf("portal: session alive: %w", err)
	}
}

// Revive returns a fresh state when the portal session behind state has expired and nil when it
// is still alive. The fresh state is negotiated with the credentials carried in state.
func (c *Client) Revive(ctx context.Context, state AuthState) (*AuthState, *Profile, error) {
	alive, err := c.SessionAlive(ctx, state)
	if err != nil {
		return nil, nil, err
	}
	if alive {
		return nil, nil, nil
	}
	fresh, profile, err := c.Login(ctx, state.SubjectID, state.Password)
	if err != nil {
		return nil, nil, err
	}
	return &fresh, &profile, nil
}
