package portal

import "errors"

var (
	// ErrInvalidCredentials means the portal did not issue a session for the given username and
	// password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUpstreamUnreachable covers transport failures, timeouts, non-2xx answers and an open
	// circuit breaker.
	ErrUpstreamUnreachable = errors.New("portal unreachable")
	// ErrUpstreamFormat means the portal answered with something that could not be understood.
	ErrUpstreamFormat = errors.New("portal returned unexpected data")
	// ErrSessionCookieMissing means the login went through but no usable session cookie was
	// left in the cookie jar.
	ErrSessionCookieMissing = errors.New("session cookie missing")
	// ErrHashNotFound means the start page did not contain the signing hash of the student.
	ErrHashNotFound = errors.New("signing hash not found")
)
