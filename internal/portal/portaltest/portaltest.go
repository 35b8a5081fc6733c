// Package portaltest runs an in-memory imitation of the student portal for tests. It serves the
// login handshake, the start page, the result pages and the dashboard endpoints from a single
// httptest.Server so that both the ERP and the selfservice url point at it.
package portaltest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"

	"campusdual-backend/internal/portal"
)

const (
	Username     = "3001234"
	Password     = "correct horse battery staple"
	Hash         = "0123456789abcdef0123456789abcdef"
	Ticket       = "ticket-4711"
	XSRF         = "xsrf-token-1"
	CookieName   = "MYSAPSSO2"
	SuccessTitle = "Campus Dual"
	LoginPath    = "/sap/bc/webdynpro/sap/zba_initss"
)

const loginPage = `<!DOCTYPE html>
<html><head><title>Anmeldung</title></head><body>
<form method="post"><input type="hidden" name="sap-login-XSRF" value="` + XSRF + `">
<input name="sap-user"><input type="password" name="sap-password"></form>
</body></html>`

const loginPageWithoutXSRF = `<!DOCTYPE html>
<html><head><title>Anmeldung</title></head><body><form method="post"></form></body></html>`

const startPage = `<!DOCTYPE html>
<html><head><title>` + SuccessTitle + `</title>
<script>var hash="` + Hash + `";user="` + Username + `";</script></head><body>
<div id="studinfo"><strong>Name: </strong>Müller, Jörg <strong> Seminargruppe: </strong>CS22-1 <br> Informatik 2022
</div>
</body></html>`

const GradesPage = `<!DOCTYPE html>
<html><body><table id="acwork"><tbody>
<tr id="node-101" class="child-of-node-0"><td>Mathematik I</td><td>2,0</td><td><img src="/images/green.png"></td><td>5</td><td>10.02.2024</td><td>20.02.2024</td><td></td><td>2023/WS</td></tr>
<tr id="node-102" class="child-of-node-101"><td>Klausur Mathematik I</td><td>2,0</td><td><img src="/images/green.png"></td><td></td><td>10.02.2024</td><td>20.02.2024</td><td></td><td>2023/WS</td></tr>
</tbody></table></body></html>`

const SignupPage = `<!DOCTYPE html>
<html><body><table id="expproc"><tbody>
<tr id="node-11" class="child-of-node-0"><td>Statistik</td><td>Klausur</td><td>Modulprüfung</td></tr>
<tr class="child-of-node-11"><td><img src="/images/missed.png"></td></tr>
</tbody></table></body></html>`

const DeregistrationPage = `<!DOCTYPE html>
<html><body><table id="exopen"><tbody>
</tbody></table></body></html>`

// Server is the fake portal. Its exported fields may be changed between requests, but not while
// a request is in flight.
type Server struct {
	*httptest.Server

	// SessionAlive makes the login page answer requests carrying the session cookie with a
	// server error, the way the portal signals a live session.
	SessionAlive bool
	// OmitXSRF serves a login form without the xsrf field.
	OmitXSRF bool
	// OmitHash serves a start page without the signing hash.
	OmitHash bool
	// CookieName is the name of the cookie issued on a successful login.
	CookieName string
	// SemesterBody is the raw answer of the semester endpoint.
	SemesterBody string

	mutex    sync.Mutex
	hits     map[string]int
	failures map[string]int
	queries  map[string]url.Values
}

func NewServer() *Server {
	s := &Server{
		CookieName:   CookieName,
		SemesterBody: `"4"`,
		hits:         map[string]int{},
		failures:     map[string]int{},
		queries:      map[string]url.Values{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc(LoginPath, s.login)
	mux.HandleFunc("/index/login", s.authenticated(s.start))
	mux.HandleFunc("/acwork/index", s.authenticated(s.static(GradesPage)))
	mux.HandleFunc("/acwork/expproc", s.authenticated(s.static(SignupPage)))
	mux.HandleFunc("/acwork/cancelproc", s.authenticated(s.static(DeregistrationPage)))
	mux.HandleFunc("/dash/getcp", s.signed("user", s.static("42")))
	mux.HandleFunc("/dash/getfs", s.signed("user", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, s.SemesterBody)
	}))
	mux.HandleFunc("/dash/getexamstats", s.signed("user", s.static(
		`{"EXAMS":12,"SUCCESS":9,"FAILURE":1,"BOOKED":2,"MBOOKED":3,"MODULES":8,"WPCOUNT":1}`,
	)))
	mux.HandleFunc("/room/json", s.signed("userid", s.static(
		`[{"allDay":false,"color":"darkred","description":"Vorlesung","editable":false,"end":1718100000,`+
			`"instructor":"Prof. Dr. Schmidt","remarks":"","room":"3.12","sinstructor":"SCH","sroom":"312",`+
			`"start":1718092800,"title":"Mathematik II"}]`,
	)))
	mux.HandleFunc("/dash/getreminders", s.signed("user", s.static(
		`{"ELECTIVES":1,"EXAMS":2,"LATEST":[{"ACAD_SESSION":"Sommersemester","ACAD_YEAR":"2024",`+
			`"AGRDATE":"20240705","AGRTYPE":"01","AWOBJECT":"Programmierung","AWOBJECT_SHORT":"PR",`+
			`"AWOTYPE":"SM","AWSTATUS":"BE","BOOKDATE":"20240701","BOOKREASON":"01","CPGRADED":"10",`+
			`"CPUNIT":"ECTS","GRADESYMBOL":"1,3"}],"SEMESTER":4,"UPCOMING":[]}`,
	)))
	mux.HandleFunc("/dash/gettimeline", s.signedUser(s.static(
		`{"events":[{"start":"2024-04-01","end":"2024-06-30","durationEvent":true,"color":"#0070a3",`+
			`"title":"Theorie","caption":"Theoriephase","description":"Semester 4","trackNum":1}]}`,
	)))
	mux.HandleFunc("/acwork/registerexam", s.signed("userid", s.static("Anmeldung erfolgreich")))
	mux.HandleFunc("/acwork/cancelexam", s.signed("userid", s.static("Abmeldung erfolgreich")))

	s.Server = httptest.NewServer(s.count(mux))
	return s
}

// ClientOptions points a portal client at the fake portal.
func (s *Server) ClientOptions() portal.ClientOptions {
	u, _ := url.Parse(s.URL)
	return portal.ClientOptions{
		ErpUrl:         s.URL,
		SelfserviceUrl: s.URL,
		CookieDomain:   u.Hostname(),
		Retries:        2,
	}
}

// FailNext makes the next n requests to path answer with 503.
func (s *Server) FailNext(path string, n int) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.failures[path] = n
}

// Hits returns how many requests reached path.
func (s *Server) Hits(path string) int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.hits[path]
}

// LastQuery returns the query of the most recent request to path.
func (s *Server) LastQuery(path string) url.Values {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.queries[path]
}

func (s *Server) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mutex.Lock()
		s.hits[r.URL.Path]++
		s.queries[r.URL.Path] = r.URL.Query()
		fail := s.failures[r.URL.Path] > 0
		if fail {
			s.failures[r.URL.Path]--
		}
		s.mutex.Unlock()

		if fail {
			http.Error(w, "service unavailable", http.StatusServiceUnavailable)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) hasSession(r *http.Request) bool {
	cookie, err := r.Cookie(s.CookieName)
	return err == nil && cookie.Value == Ticket
}

func (s *Server) loginForm(w http.ResponseWriter) {
	w.Header().Set("content-type", "text/html; charset=utf-8")
	if s.OmitXSRF {
		fmt.Fprint(w, loginPageWithoutXSRF)
		return
	}
	fmt.Fprint(w, loginPage)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if s.SessionAlive && s.hasSession(r) {
			http.Error(w, "session already active", http.StatusInternalServerError)
			return
		}
		s.loginForm(w)
	case http.MethodPost:
		err := r.ParseForm()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if r.PostForm.Get("sap-login-XSRF") != XSRF ||
			r.PostForm.Get("sap-user") != Username ||
			r.PostForm.Get("sap-password") != Password {
			s.loginForm(w)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: s.CookieName, Value: Ticket, Path: "/", HttpOnly: true})
		http.Redirect(w, r, "/index/login", http.StatusFound)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) authenticated(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.hasSession(r) {
			s.loginForm(w)
			return
		}
		next(w, r)
	}
}

func (s *Server) signed(userParam string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		if query.Get(userParam) != Username || query.Get("hash") != Hash {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next(w, r)
	}
}

func (s *Server) signedUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("user") != Username {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next(w, r)
	}
}

func (s *Server) start(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("content-type", "text/html; charset=utf-8")
	if s.OmitHash {
		fmt.Fprint(w, `<!DOCTYPE html><html><head><title>`+SuccessTitle+`</title></head><body></body></html>`)
		return
	}
	fmt.Fprint(w, startPage)
}

func (s *Server) static(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, body)
	}
}
