package portal

import (
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"
)

// recordingJar is a cookie jar that also remembers the attributes of every cookie it was
// given, net/http/cookiejar only hands back names and values.
type recordingJar struct {
	inner *cookiejar.Jar
	now   func() time.Time

	mutex    sync.Mutex
	recorded []SessionCookie
}

func newRecordingJar(now func() time.Time) (*recordingJar, error) {
	inner, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	return &recordingJar{inner: inner, now: now}, nil
}

func (j *recordingJar) Cookies(u *url.URL) []*http.Cookie {
	return j.inner.Cookies(u)
}

func (j *recordingJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.inner.SetCookies(u, cookies)

	j.mutex.Lock()
	defer j.mutex.Unlock()

	for _, c := range cookies {
		record := SessionCookie{
			Name:   c.Name,
			Value:  c.Value,
			Domain: strings.TrimPrefix(c.Domain, "."),
			Path:   c.Path,
		}
		if record.Domain == "" {
			record.Domain = u.Hostname()
		}
		if record.Path == "" {
			record.Path = "/"
		}
		switch {
		case c.MaxAge < 0:
			record.Expires = j.now().Unix() - 1
		case c.MaxAge > 0:
			record.Expires = j.now().Add(time.Duration(c.MaxAge) * time.Second).Unix()
		case !c.Expires.IsZero():
			record.Expires = c.Expires.Unix()
		}
		j.recorded = append(j.recorded, record)
	}
}

// mark returns a position in the recording, cookies set afterwards can be looked up with
// setSince.
func (j *recordingJar) mark() int {
	j.mutex.Lock()
	defer j.mutex.Unlock()
	return len(j.recorded)
}

func (j *recordingJar) setSince(mark int, domain string) bool {
	j.mutex.Lock()
	defer j.mutex.Unlock()
	for _, c := range j.recorded[mark:] {
		if c.Domain == domain {
			return true
		}
	}
	return false
}

// harvest returns the most recently set, unexpired cookie scoped to domain (and called name if
// name is not empty).
func (j *recordingJar) harvest(domain, name string) (SessionCookie, bool) {
	now := j.now().Unix()

	j.mutex.Lock()
	defer j.mutex.Unlock()

	for i := len(j.recorded) - 1; i >= 0; i-- {
		c := j.recorded[i]
		if c.Domain != domain || c.Value == "" {
			continue
		}
		if name != "" && c.Name != name {
			continue
		}
		if c.Expires != 0 && c.Expires <= now {
			continue
		}
		if j.overwritten(i) {
			continue
		}
		return c, true
	}
	return SessionCookie{}, false
}

// overwritten reports whether a later cookie replaced recorded[i].
func (j *recordingJar) overwritten(i int) bool {
	c := j.recorded[i]
	for _, later := range j.recorded[i+1:] {
		if later.Name == c.Name && later.Domain == c.Domain && later.Path == c.Path {
			return true
		}
	}
	return false
}
