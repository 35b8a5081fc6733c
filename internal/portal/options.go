package portal

import (
	"crypto/x509"
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	DefaultErpUrl         = "https://erp.campus-dual.de"
	DefaultSelfserviceUrl = "https://selfservice.campus-dual.de"
	DefaultCookieDomain   = "campus-dual.de"
	DefaultTimeout        = time.Second * 30
	DefaultRetries        = 2
)

const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36"

type ClientOptions struct {
	ErpUrl         string
	SelfserviceUrl string
	// CookieDomain is the domain the session cookie must be scoped to.
	CookieDomain string
	// SessionCookieName restricts harvesting to a single cookie name, empty accepts any cookie
	// scoped to CookieDomain.
	SessionCookieName string
	// SuccessTitle is the <title> of the page the portal answers a successful login with,
	// empty disables the check.
	SuccessTitle string
	// RootCAs is the trust anchor for the portal's TLS certificate, nil uses the system pool.
	RootCAs *x509.CertPool
	Timeout time.Duration
	// Retries is the number of extra attempts for idempotent requests that failed in transit
	// or with a 5xx status.
	Retries int
	// PageOutput receives the markup of every result page fetched, nil disables it.
	PageOutput PageOutput
}

// PageOutput collects fetched pages, for example as fixtures for the extractor.
type PageOutput interface {
	Write(id string, contents []byte)
}

func DefaultClientOptions() ClientOptions {
	return ClientOptions{
		ErpUrl:         DefaultErpUrl,
		SelfserviceUrl: DefaultSelfserviceUrl,
		CookieDomain:   DefaultCookieDomain,
		Timeout:        DefaultTimeout,
		Retries:        DefaultRetries,
	}
}

func (o ClientOptions) withDefaults() ClientOptions {
	defaults := DefaultClientOptions()
	if o.ErpUrl == "" {
		o.ErpUrl = defaults.ErpUrl
	}
	if o.SelfserviceUrl == "" {
		o.SelfserviceUrl = defaults.SelfserviceUrl
	}
	if o.CookieDomain == "" {
		o.CookieDomain = defaults.CookieDomain
	}
	if o.Timeout <= 0 {
		o.Timeout = defaults.Timeout
	}
	if o.Retries < 0 {
		o.Retries = 0
	}
	o.ErpUrl = strings.TrimSuffix(o.ErpUrl, "/")
	o.SelfserviceUrl = strings.TrimSuffix(o.SelfserviceUrl, "/")
	o.CookieDomain = strings.TrimPrefix(o.CookieDomain, ".")
	return o
}

// LoadRootCAs returns the system pool extended with every certificate of the PEM file at path.
func LoadRootCAs(path string) (*x509.CertPool, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	pool, err := x509.SystemCertPool()
	if err != nil {
		pool = x509.NewCertPool()
	}
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificates found in %s", path)
	}
	return pool, nil
}
