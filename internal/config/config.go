// Package config holds the json5 configuration blocks shared by the binaries and turns them into
// the options of the packages they configure.
package config

import (
	"fmt"
	"time"

	"campusdual-backend/internal/portal"
	"campusdual-backend/internal/ratelimit"
	"campusdual-backend/internal/session"
	"campusdual-backend/pkg/configutil"
)

const (
	EnvAesKey    = "CAMPUS_AES_KEY"
	EnvJwtSecret = "CAMPUS_JWT_SECRET"
)

func parseDuration(name, value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: must be positive, got %s", name, value)
	}
	return d, nil
}

type Session struct {
	AesKey    string `json:"aes_key"`
	JwtSecret string `json:"jwt_secret"`
	// Ttl is a go duration string, defaults to two weeks.
	Ttl string `json:"ttl"`
}

// Keys derives the codec keys, the environment may override both secrets so they can stay out of
// config files.
func (s Session) Keys() (session.Keys, error) {
	aesKey, err := configutil.ResolveSecret("session.aes_key", s.AesKey, EnvAesKey, session.MinSecretLength)
	if err != nil {
		return session.Keys{}, err
	}
	jwtSecret, err := configutil.ResolveSecret("session.jwt_secret", s.JwtSecret, EnvJwtSecret, session.MinSecretLength)
	if err != nil {
		return session.Keys{}, err
	}
	return session.DeriveKeys([]byte(aesKey), []byte(jwtSecret))
}

func (s Session) TTL() (time.Duration, error) {
	return parseDuration("session.ttl", s.Ttl, session.DefaultTTL)
}

type Portal struct {
	ErpUrl         string `json:"erp_url"`
	SelfserviceUrl string `json:"selfservice_url"`
	CookieDomain   string `json:"cookie_domain"`
	SessionCookie  string `json:"session_cookie"`
	SuccessTitle   string `json:"success_title"`
	// CACertFile is a pem bundle trusted in addition to the system roots.
	CACertFile string `json:"ca_cert_file"`
	Timeout    string `json:"timeout"`
	Retries    *int   `json:"retries"`
}

func (p Portal) Options() (portal.ClientOptions, error) {
	opts := portal.DefaultClientOptions()
	if p.ErpUrl != "" {
		opts.ErpUrl = p.ErpUrl
	}
	if p.SelfserviceUrl != "" {
		opts.SelfserviceUrl = p.SelfserviceUrl
	}
	if p.CookieDomain != "" {
		opts.CookieDomain = p.CookieDomain
	}
	opts.SessionCookieName = p.SessionCookie
	opts.SuccessTitle = p.SuccessTitle

	timeout, err := parseDuration("portal.timeout", p.Timeout, portal.DefaultTimeout)
	if err != nil {
		return portal.ClientOptions{}, err
	}
	opts.Timeout = timeout

	if p.Retries != nil {
		if *p.Retries < 0 {
			return portal.ClientOptions{}, fmt.Errorf("portal.retries: must not be negative, got %d", *p.Retries)
		}
		opts.Retries = *p.Retries
	}

	if p.CACertFile != "" {
		pool, err := portal.LoadRootCAs(p.CACertFile)
		if err != nil {
			return portal.ClientOptions{}, fmt.Errorf("portal.ca_cert_file: %w", err)
		}
		opts.RootCAs = pool
	}
	return opts, nil
}

type Quota struct {
	Capacity        int    `json:"capacity"`
	RestoreInterval string `json:"restore_interval"`
}

func (q Quota) Quota(name string, fallback ratelimit.Quota) (ratelimit.Quota, error) {
	out := fallback
	if q.Capacity < 0 {
		return ratelimit.Quota{}, fmt.Errorf("ratelimit.%s.capacity: must not be negative", name)
	}
	if q.Capacity > 0 {
		out.Capacity = q.Capacity
	}
	interval, err := parseDuration("ratelimit."+name+".restore_interval", q.RestoreInterval, fallback.RestoreInterval)
	if err != nil {
		return ratelimit.Quota{}, err
	}
	out.RestoreInterval = interval
	return out, nil
}

var (
	DefaultSigninQuota        = ratelimit.Quota{Capacity: 5, RestoreInterval: time.Minute}
	DefaultAuthenticatedQuota = ratelimit.Quota{Capacity: 30, RestoreInterval: time.Minute}
)

type Ratelimit struct {
	Signin            Quota  `json:"signin"`
	Authenticated     Quota  `json:"authenticated"`
	ReclaimInterval   string `json:"reclaim_interval"`
	TrustForwardedFor bool   `json:"trust_forwarded_for"`
}

// Quotas returns the signin and the authenticated quota.
func (r Ratelimit) Quotas() (ratelimit.Quota, ratelimit.Quota, error) {
	signin, err := r.Signin.Quota("signin", DefaultSigninQuota)
	if err != nil {
		return ratelimit.Quota{}, ratelimit.Quota{}, err
	}
	authenticated, err := r.Authenticated.Quota("authenticated", DefaultAuthenticatedQuota)
	if err != nil {
		return ratelimit.Quota{}, ratelimit.Quota{}, err
	}
	return signin, authenticated, nil
}

func (r Ratelimit) Reclaim() (time.Duration, error) {
	return parseDuration("ratelimit.reclaim_interval", r.ReclaimInterval, ratelimit.DefaultReclaimInterval)
}
