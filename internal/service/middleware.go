package service

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"campusdual-backend/internal/portal"
	"campusdual-backend/internal/ratelimit"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("campusdual.service")

// cors allows any origin to call the api, preflight requests are answered before routing.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := w.Header()
		header.Set("Access-Control-Allow-Origin", "*")
		header.Set("Access-Control-Allow-Methods", "GET, POST")
		header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			header.Set("Access-Control-Max-Age", "86400")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// instrument wraps every routed request in a server span named after its route template.
func (s *Service) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if template, err := current.GetPathTemplate(); err == nil {
				route = template
			}
		}

		start := time.Now()
		ctx, span := tracer.Start(
			r.Context(),
			r.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", r.Method),
				attribute.String("http.route", route),
			),
		)
		defer span.End()

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r.WithContext(ctx))

		span.SetAttributes(attribute.Int("http.response.status_code", recorder.status))
		if recorder.status >= 500 {
			span.SetStatus(codes.Error, http.StatusText(recorder.status))
		}
		s.tel.ReportDebug(report_service_request, r.Method, route, recorder.status, time.Since(start).String())
	})
}

func (s *Service) tooManyRequests(w http.ResponseWriter, governor *ratelimit.Governor, key string) {
	wait := governor.RetryAfter(key)
	w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
	s.tel.ReportDebug(report_service_ratelimit, wait.String())
	writeError(w, http.StatusTooManyRequests, "Too many requests")
}

type stateKeyType int

var stateKey stateKeyType

func authState(ctx context.Context) portal.AuthState {
	state, ok := ctx.Value(stateKey).(portal.AuthState)
	if !ok {
		panic("authenticated handler called without auth state")
	}
	return state
}

// authenticate opens the bearer token and charges the student's bucket before calling next.
// Decode failures all look the same to the client.
func (s *Service) authenticate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		values := r.Header.Values("Authorization")
		if len(values) == 0 {
			writeError(w, http.StatusForbidden, "JWT token is missing")
			return
		}
		scheme, token, ok := strings.Cut(strings.TrimSpace(values[0]), " ")
		token = strings.TrimSpace(token)
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" || strings.ContainsAny(token, " \t") {
			writeError(w, http.StatusForbidden, "Empty header is not allowed")
			return
		}

		state, err := s.codec.Decode(token)
		if err != nil {
			s.tel.ReportDebug(report_service_auth, err)
			writeError(w, http.StatusUnauthorized, "Invalid JWT")
			return
		}

		if !s.authenticated.Admit(state.SubjectID) {
			s.tooManyRequests(w, s.authenticated, state.SubjectID)
			return
		}

		next(w, r.WithContext(context.WithValue(r.Context(), stateKey, state)))
	}
}
