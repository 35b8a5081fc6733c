package portal

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"campusdual-backend/internal/components/assert"
	"campusdual-backend/internal/components/chrono"
	"campusdual-backend/internal/components/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
)

const (
	report_client_login          = "client.login"
	report_client_profile        = "client.profile"
	report_client_page           = "client.page"
	report_client_dashboard      = "client.dashboard"
	report_client_session_alive  = "client.session-alive"
	report_client_exam_booking   = "client.exam-booking"
	report_client_breaker        = "client.breaker"
	report_client_cookie_restore = "client.cookie-restore"
)

// Client talks to the student portal on behalf of many students at once. It holds no per-student
// state, every login and every authenticated request gets its own cookie jar.
type Client struct {
	opts      ClientOptions
	erpUrl    *url.URL
	ssUrl     *url.URL
	transport http.RoundTripper
	breaker   *gobreaker.CircuitBreaker
	time      chrono.TimeAPI
	tel       telemetry.API
}

func NewClient(opts ClientOptions, timeAPI chrono.TimeAPI, tel telemetry.API) (*Client, error) {
	assert.NotNil(timeAPI)
	assert.NotNil(tel)

	tel = telemetry.NewScopedAPI("portal", tel)
	opts = opts.withDefaults()

	erpUrl, err := url.Parse(opts.ErpUrl)
	if err != nil {
		return nil, fmt.Errorf("parse erp url: %w", err)
	}
	ssUrl, err := url.Parse(opts.SelfserviceUrl)
	if err != nil {
		return nil, fmt.Errorf("parse selfservice url: %w", err)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	roundTripper := cloudflarebp.AddCloudFlareByPass(transport)
	// the bypass replaces the tls config of the transport it wraps
	if transport.TLSClientConfig == nil {
		transport.TLSClientConfig = &tls.Config{}
	}
	transport.TLSClientConfig.RootCAs = opts.RootCAs
	transport.TLSClientConfig.MinVersion = tls.VersionTLS12

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "portal",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     time.Second * 30,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			tel.ReportWarning(report_client_breaker, name, from.String(), to.String())
		},
	})

	return &Client{
		opts:      opts,
		erpUrl:    erpUrl,
		ssUrl:     ssUrl,
		transport: roundTripper,
		breaker:   breaker,
		time:      timeAPI,
		tel:       tel,
	}, nil
}

type noRetryKeyType int

var noRetryKey noRetryKeyType

// withoutRetry marks requests whose status code carries meaning and must not be repeated.
func withoutRetry(ctx context.Context) context.Context {
	return context.WithValue(ctx, noRetryKey, true)
}

func retryTransient(res *resty.Response, err error) bool {
	if res == nil || res.Request == nil {
		return false
	}
	if res.Request.Method != http.MethodGet {
		return false
	}
	if skip, _ := res.Request.Context().Value(noRetryKey).(bool); skip {
		return false
	}
	return err != nil || res.StatusCode() >= 500
}

func (c *Client) newHttp(jar http.CookieJar) *resty.Client {
	httpClient := resty.NewWithClient(&http.Client{
		Transport: c.transport,
		Jar:       jar,
	})
	httpClient.SetHeader("user-agent", userAgent)
	httpClient.SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))
	httpClient.SetTimeout(c.opts.Timeout)
	httpClient.SetRetryCount(c.opts.Retries)
	httpClient.SetRetryWaitTime(time.Millisecond * 250)
	httpClient.SetRetryMaxWaitTime(time.Second * 2)
	httpClient.AddRetryCondition(retryTransient)
	telemetry.InstrumentResty(httpClient, c.tel)
	return httpClient
}

// authenticatedHttp returns a client whose jar carries the session cookie of the student.
func (c *Client) authenticatedHttp(state AuthState) (*resty.Client, error) {
	jar, err := newRecordingJar(c.time.Now)
	if err != nil {
		return nil, err
	}
	cookie := state.SessionCookie.httpCookie()
	// the jar drops the cookie for whichever url it is not scoped to
	jar.SetCookies(c.ssUrl, []*http.Cookie{cookie})
	jar.SetCookies(c.erpUrl, []*http.Cookie{cookie})
	if len(jar.Cookies(c.ssUrl)) == 0 {
		c.tel.ReportWarning(report_client_cookie_restore, state.SessionCookie.Domain)
	}
	return c.newHttp(jar), nil
}

// execute runs the request through the circuit breaker. Only failures in transit count against
// the breaker, status codes are left to the caller. An open breaker yields gobreaker.ErrOpenState
// wrapped in ErrUpstreamUnreachable.
func (c *Client) execute(req *resty.Request, method, url string) (*resty.Response, error) {
	out, err := c.breaker.Execute(func() (any, error) {
		return req.Execute(method, url)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamUnreachable, err)
	}
	return out.(*resty.Response), nil
}

// get performs a GET and treats every non-2xx answer as the portal being unreachable.
func (c *Client) get(req *resty.Request, url string) (*resty.Response, error) {
	res, err := c.execute(req, http.MethodGet, url)
	if err != nil {
		return nil, err
	}
	if !res.IsSuccess() {
		return nil, fmt.Errorf("%w: status %s", ErrUpstreamUnreachable, res.Status())
	}
	return res, nil
}

func (c *Client) erp(path string) string {
	return c.opts.ErpUrl + path
}

func (c *Client) selfservice(path string) string {
	return c.opts.SelfserviceUrl + path
}

func (c *Client) loginPageUrl() string {
	query := url.Values{}
	query.Set("sap-client", "100")
	query.Set("sap-language", "de")
	query.Set("uri", c.selfservice("/index/login"))
	return c.erp("/sap/bc/webdynpro/sap/zba_initss") + "?" + query.Encode()
}

func (c *Client) loginSubmitUrl() string {
	query := url.Values{}
	query.Set("uri", c.selfservice("/index/login"))
	query.Set("sap-client", "100")
	query.Set("sap-language", "DE")
	return c.erp("/sap/bc/webdynpro/sap/zba_initss") + "?" + query.Encode()
}
