package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"campusdual-backend/internal/portal"
	"campusdual-backend/internal/ratelimit"
	"campusdual-backend/internal/session"
	"campusdual-backend/pkg/configutil"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Session   Session   `json:"session"`
	Portal    Portal    `json:"portal"`
	Ratelimit Ratelimit `json:"ratelimit"`
}

func TestReadFromJson5(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json5")
	err := os.WriteFile(path, []byte(`{
		// secrets come from the environment
		session: { ttl: "24h" },
		portal: {
			erp_url: "https://erp.example.test",
			session_cookie: "MYSAPSSO2",
			timeout: "5s",
			retries: 0,
		},
		ratelimit: {
			signin: { capacity: 3, restore_interval: "30s" },
			reclaim_interval: "2m",
			trust_forwarded_for: true,
		},
	}`), 0o600)
	require.NoError(t, err)

	cfg, err := configutil.ReadConfig[testConfig](path)
	require.NoError(t, err)

	ttl, err := cfg.Session.TTL()
	require.NoError(t, err)
	require.Equal(t, 24*time.Hour, ttl)

	opts, err := cfg.Portal.Options()
	require.NoError(t, err)
	require.Equal(t, "https://erp.example.test", opts.ErpUrl)
	require.Equal(t, portal.DefaultSelfserviceUrl, opts.SelfserviceUrl)
	require.Equal(t, portal.DefaultCookieDomain, opts.CookieDomain)
	require.Equal(t, "MYSAPSSO2", opts.SessionCookieName)
	require.Equal(t, 5*time.Second, opts.Timeout)
	require.Equal(t, 0, opts.Retries)
	require.Nil(t, opts.RootCAs)

	signin, authenticated, err := cfg.Ratelimit.Quotas()
	require.NoError(t, err)
	require.Equal(t, ratelimit.Quota{Capacity: 3, RestoreInterval: 30 * time.Second}, signin)
	require.Equal(t, DefaultAuthenticatedQuota, authenticated)

	reclaim, err := cfg.Ratelimit.Reclaim()
	require.NoError(t, err)
	require.Equal(t, 2*time.Minute, reclaim)
	require.True(t, cfg.Ratelimit.TrustForwardedFor)
}

func TestDefaults(t *testing.T) {
	ttl, err := Session{}.TTL()
	require.NoError(t, err)
	require.Equal(t, session.DefaultTTL, ttl)

	opts, err := Portal{}.Options()
	require.NoError(t, err)
	require.Equal(t, portal.DefaultClientOptions(), opts)

	signin, authenticated, err := Ratelimit{}.Quotas()
	require.NoError(t, err)
	require.Equal(t, DefaultSigninQuota, signin)
	require.Equal(t, DefaultAuthenticatedQuota, authenticated)

	reclaim, err := Ratelimit{}.Reclaim()
	require.NoError(t, err)
	require.Equal(t, ratelimit.DefaultReclaimInterval, reclaim)
}

func TestInvalidValues(t *testing.T) {
	_, err := Session{Ttl: "two weeks"}.TTL()
	require.Error(t, err)
	_, err = Session{Ttl: "-1h"}.TTL()
	require.Error(t, err)

	retries := -1
	_, err = Portal{Retries: &retries}.Options()
	require.Error(t, err)
	_, err = Portal{Timeout: "soon"}.Options()
	require.Error(t, err)
	_, err = Portal{CACertFile: filepath.Join(t.TempDir(), "missing.pem")}.Options()
	require.Error(t, err)

	_, _, err = Ratelimit{Signin: Quota{Capacity: -1}}.Quotas()
	require.Error(t, err)
	_, _, err = Ratelimit{Authenticated: Quota{RestoreInterval: "0s"}}.Quotas()
	require.Error(t, err)
}

func TestSessionSecretsFromEnv(t *testing.T) {
	t.Setenv(EnvAesKey, "an encryption secret that is long enough")
	t.Setenv(EnvJwtSecret, "a signing secret that is also long enough")

	s := Session{AesKey: "short", JwtSecret: "short"}
	_, err := s.Keys()
	require.NoError(t, err)

	t.Setenv(EnvJwtSecret, "")
	_, err = s.Keys()
	require.ErrorContains(t, err, "session.jwt_secret")
}
