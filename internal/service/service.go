// Package service exposes the portal to mobile clients as a JSON api. Requests carry the sealed
// portal session as a bearer token, the service itself keeps no per-student state.
package service

import (
	"context"
	"net/http"
	"time"

	"campusdual-backend/internal/components/assert"
	"campusdual-backend/internal/components/chrono"
	"campusdual-backend/internal/components/telemetry"
	"campusdual-backend/internal/portal"
	"campusdual-backend/internal/ratelimit"
	"campusdual-backend/internal/session"

	"github.com/gorilla/mux"
)

const (
	report_service_signin    = "service.signin"
	report_service_auth      = "service.auth"
	report_service_upstream  = "service.upstream"
	report_service_encode    = "service.encode"
	report_service_request   = "service.request"
	report_service_ratelimit = "service.ratelimit"
)

// Portal is everything the service needs from the student portal.
//
// note: fault injection point
type Portal interface {
	Login(ctx context.Context, username, password string) (portal.AuthState, portal.Profile, error)
	Revive(ctx context.Context, state portal.AuthState) (*portal.AuthState, *portal.Profile, error)

	GradesPage(ctx context.Context, state portal.AuthState) ([]byte, error)
	ExamSignupPage(ctx context.Context, state portal.AuthState) ([]byte, error)
	ExamDeregistrationPage(ctx context.Context, state portal.AuthState) ([]byte, error)

	CreditPoints(ctx context.Context, state portal.AuthState) (string, error)
	Semester(ctx context.Context, state portal.AuthState) (uint64, error)
	ExamStats(ctx context.Context, state portal.AuthState) (portal.ExamStats, error)
	Timetable(ctx context.Context, state portal.AuthState, start, end time.Time) ([]portal.TimetableEntry, error)
	Reminders(ctx context.Context, state portal.AuthState) (portal.Reminders, error)
	Timeline(ctx context.Context, state portal.AuthState) ([]portal.TimelineEvent, error)

	RegisterExam(ctx context.Context, state portal.AuthState, booking portal.ExamBooking) (string, error)
	CancelExam(ctx context.Context, state portal.AuthState, assessment string) (string, error)
}

type Service struct {
	portal        Portal
	codec         session.Codec
	signin        *ratelimit.Governor
	authenticated *ratelimit.Governor

	trustForwardedFor bool
	time              chrono.TimeAPI
	tel               telemetry.API
}

type serviceConfig struct {
	trustForwardedFor bool
	time              chrono.TimeAPI
	tel               telemetry.API
}

type Option func(cfg *serviceConfig)

func WithTelemetryAPI(tel telemetry.API) Option {
	return func(cfg *serviceConfig) {
		cfg.tel = tel
	}
}

func WithTimeAPI(timeAPI chrono.TimeAPI) Option {
	return func(cfg *serviceConfig) {
		cfg.time = timeAPI
	}
}

// WithTrustedForwardedFor keys the signin governor by the X-Forwarded-For header, only enable
// this behind a proxy that sets it.
func WithTrustedForwardedFor(trust bool) Option {
	return func(cfg *serviceConfig) {
		cfg.trustForwardedFor = trust
	}
}

// NewService creates a Service, signin is keyed by client address and authenticated by the
// student id inside the token.
func NewService(
	api Portal,
	codec session.Codec,
	signin, authenticated *ratelimit.Governor,
	options ...Option,
) *Service {
	assert.NotNil(api)
	assert.NotNil(signin)
	assert.NotNil(authenticated)

	cfg := serviceConfig{
		time: chrono.NewStandardTime(),
		tel:  telemetry.SlogAPI{},
	}
	for _, opt := range options {
		opt(&cfg)
	}

	return &Service{
		portal:            api,
		codec:             codec,
		signin:            signin,
		authenticated:     authenticated,
		trustForwardedFor: cfg.trustForwardedFor,
		time:              cfg.time,
		tel:               telemetry.NewScopedAPI("service", cfg.tel),
	}
}

// Handler returns the routes of the api wrapped in the cors middleware.
func (s *Service) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.instrument)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	r.HandleFunc("/", s.index).Methods(http.MethodGet)
	r.HandleFunc("/signin", s.signinHandler).Methods(http.MethodPost)

	r.HandleFunc("/check_revive_session", s.authenticate(s.checkReviveSession)).Methods(http.MethodGet)
	r.HandleFunc("/get_grades", s.authenticate(s.getGrades)).Methods(http.MethodGet)
	r.HandleFunc("/get_examsignup", s.authenticate(s.getExamSignup)).Methods(http.MethodGet)
	r.HandleFunc("/get_examverfahren", s.authenticate(s.getExamDeregistration)).Methods(http.MethodGet)
	r.HandleFunc("/registerexam", s.authenticate(s.registerExam)).Methods(http.MethodPost)
	r.HandleFunc("/cancelexam", s.authenticate(s.cancelExam)).Methods(http.MethodPost)
	r.HandleFunc("/get_ects", s.authenticate(s.getCreditPoints)).Methods(http.MethodGet)
	r.HandleFunc("/get_fachsem", s.authenticate(s.getSemester)).Methods(http.MethodGet)
	r.HandleFunc("/get_examstats", s.authenticate(s.getExamStats)).Methods(http.MethodGet)
	r.HandleFunc("/get_stundenplan", s.authenticate(s.getTimetable)).Methods(http.MethodGet)
	r.HandleFunc("/get_reminders", s.authenticate(s.getReminders)).Methods(http.MethodGet)
	r.HandleFunc("/get_timeline", s.authenticate(s.getTimeline)).Methods(http.MethodGet)

	return cors(r)
}
