package portal

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRecordingJar(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	jar, err := newRecordingJar(func() time.Time { return now })
	require.NoError(t, err)

	erp, _ := url.Parse("https://erp.campus-dual.de/sap/bc/webdynpro/sap/zba_initss")
	selfservice, _ := url.Parse("https://selfservice.campus-dual.de/index/login")

	jar.SetCookies(erp, []*http.Cookie{
		{Name: "sap-usercontext", Value: "sap-client=100", Path: "/"},
	})
	mark := jar.mark()
	require.False(t, jar.setSince(mark, "campus-dual.de"))

	jar.SetCookies(erp, []*http.Cookie{
		{Name: "SAP_SESSIONID", Value: "host-only"},
		{Name: "MYSAPSSO2", Value: "ticket", Domain: ".campus-dual.de", Path: "/", MaxAge: 3600},
	})
	require.True(t, jar.setSince(mark, "campus-dual.de"))

	cookie, ok := jar.harvest("campus-dual.de", "")
	require.True(t, ok)
	require.Equal(t, SessionCookie{
		Name:    "MYSAPSSO2",
		Value:   "ticket",
		Domain:  "campus-dual.de",
		Path:    "/",
		Expires: now.Add(time.Hour).Unix(),
	}, cookie)

	// the domain cookie reaches the selfservice host, the host-only one does not
	sent := jar.Cookies(selfservice)
	require.Len(t, sent, 1)
	require.Equal(t, "MYSAPSSO2", sent[0].Name)

	cookie, ok = jar.harvest("erp.campus-dual.de", "SAP_SESSIONID")
	require.True(t, ok)
	require.Equal(t, "host-only", cookie.Value)
	require.Equal(t, "/", cookie.Path)
	require.Zero(t, cookie.Expires)
}

func TestRecordingJarSkipsExpiredAndDeleted(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	jar, err := newRecordingJar(func() time.Time { return now })
	require.NoError(t, err)
	erp, _ := url.Parse("https://erp.campus-dual.de/")

	jar.SetCookies(erp, []*http.Cookie{
		{Name: "MYSAPSSO2", Value: "stale", Domain: "campus-dual.de", Expires: now.Add(-time.Minute)},
	})
	_, ok := jar.harvest("campus-dual.de", "")
	require.False(t, ok)

	jar.SetCookies(erp, []*http.Cookie{
		{Name: "MYSAPSSO2", Value: "ticket", Domain: "campus-dual.de", Path: "/"},
	})
	_, ok = jar.harvest("campus-dual.de", "MYSAPSSO2")
	require.True(t, ok)

	jar.SetCookies(erp, []*http.Cookie{
		{Name: "MYSAPSSO2", Value: "", Domain: "campus-dual.de", Path: "/", MaxAge: -1},
	})
	_, ok = jar.harvest("campus-dual.de", "MYSAPSSO2")
	require.False(t, ok)
}
