package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"campusdual-backend/internal/extract"
	"campusdual-backend/internal/portal"
	"campusdual-backend/internal/ratelimit"
)

const maxBodySize = 1 << 16

func decodeBody(w http.ResponseWriter, r *http.Request, target any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	err := decoder.Decode(target)
	if errors.Is(err, io.EOF) {
		return errors.New("empty body")
	}
	return err
}

func (s *Service) index(w http.ResponseWriter, r *http.Request) {
	writeJson(w, http.StatusOK, "API is reachable")
}

type signinRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type signinResponse struct {
	Token string         `json:"token"`
	User  portal.Profile `json:"user"`
}

func (s *Service) issue(w http.ResponseWriter, state portal.AuthState, profile portal.Profile) {
	token, err := s.codec.Encode(state)
	if err != nil {
		s.tel.ReportBroken(report_service_encode, err)
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	writeJson(w, http.StatusOK, signinResponse{Token: token, User: profile})
}

func (s *Service) signinHandler(w http.ResponseWriter, r *http.Request) {
	key := ratelimit.ClientAddress(r, s.trustForwardedFor)
	if key == "" {
		key = ratelimit.GlobalKey
	}
	if !s.signin.Admit(key) {
		s.tooManyRequests(w, s.signin, key)
		return
	}

	var req signinRequest
	err := decodeBody(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	state, profile, err := s.portal.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		s.fail(w, report_service_signin, err)
		return
	}
	s.issue(w, state, profile)
}

func (s *Service) checkReviveSession(w http.ResponseWriter, r *http.Request) {
	fresh, profile, err := s.portal.Revive(r.Context(), authState(r.Context()))
	if err != nil {
		s.fail(w, report_service_upstream, err)
		return
	}
	if fresh == nil {
		writeJson(w, http.StatusOK, nil)
		return
	}
	s.issue(w, *fresh, *profile)
}

// respond writes the result of an upstream call, or the classified error.
func respond[T any](s *Service, w http.ResponseWriter, value T, err error) {
	if err != nil {
		s.fail(w, report_service_upstream, err)
		return
	}
	writeJson(w, http.StatusOK, value)
}

type pageFunc = func(ctx context.Context, state portal.AuthState) ([]byte, error)

func (s *Service) grades(ctx context.Context, fetch pageFunc) ([]extract.GradeRecord, error) {
	page, err := fetch(ctx, authState(ctx))
	if err != nil {
		return nil, err
	}
	return extract.Grades(page)
}

func (s *Service) examOptions(ctx context.Context, fetch pageFunc, kind extract.Kind) ([]extract.ExamOption, error) {
	page, err := fetch(ctx, authState(ctx))
	if err != nil {
		return nil, err
	}
	return extract.ExamOptions(page, kind)
}

func (s *Service) getGrades(w http.ResponseWriter, r *http.Request) {
	records, err := s.grades(r.Context(), s.portal.GradesPage)
	respond(s, w, records, err)
}

func (s *Service) getExamSignup(w http.ResponseWriter, r *http.Request) {
	options, err := s.examOptions(r.Context(), s.portal.ExamSignupPage, extract.KindExamSignup)
	respond(s, w, options, err)
}

func (s *Service) getExamDeregistration(w http.ResponseWriter, r *http.Request) {
	options, err := s.examOptions(r.Context(), s.portal.ExamDeregistrationPage, extract.KindExamDeregistration)
	respond(s, w, options, err)
}

type registerExamRequest struct {
	Assessment string `json:"assessment"`
	YearPeriod string `json:"peryr"`
	TermPeriod string `json:"perid"`
	OfferNo    string `json:"offerno"`
}

// registerExam answers with the portal's text verbatim.
func (s *Service) registerExam(w http.ResponseWriter, r *http.Request) {
	var req registerExamRequest
	err := decodeBody(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Assessment == "" || req.YearPeriod == "" || req.TermPeriod == "" || req.OfferNo == "" {
		writeError(w, http.StatusBadRequest, "assessment, peryr, perid and offerno are required")
		return
	}
	answer, err := s.portal.RegisterExam(r.Context(), authState(r.Context()), portal.ExamBooking{
		Assessment: req.Assessment,
		YearPeriod: req.YearPeriod,
		TermPeriod: req.TermPeriod,
		OfferNo:    req.OfferNo,
	})
	if err != nil {
		s.fail(w, report_service_upstream, err)
		return
	}
	writeText(w, http.StatusOK, answer)
}

type cancelExamRequest struct {
	Assessment string `json:"assessment"`
}

func (s *Service) cancelExam(w http.ResponseWriter, r *http.Request) {
	var req cancelExamRequest
	err := decodeBody(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Assessment == "" {
		writeError(w, http.StatusBadRequest, "assessment is required")
		return
	}
	answer, err := s.portal.CancelExam(r.Context(), authState(r.Context()), req.Assessment)
	if err != nil {
		s.fail(w, report_service_upstream, err)
		return
	}
	writeText(w, http.StatusOK, answer)
}

// getCreditPoints passes the portal's answer through, as a number when it is one.
func (s *Service) getCreditPoints(w http.ResponseWriter, r *http.Request) {
	credits, err := s.portal.CreditPoints(r.Context(), authState(r.Context()))
	if err != nil {
		s.fail(w, report_service_upstream, err)
		return
	}
	if json.Valid([]byte(credits)) {
		writeJson(w, http.StatusOK, json.RawMessage(credits))
		return
	}
	writeJson(w, http.StatusOK, credits)
}

func (s *Service) getSemester(w http.ResponseWriter, r *http.Request) {
	semester, err := s.portal.Semester(r.Context(), authState(r.Context()))
	respond(s, w, semester, err)
}

func (s *Service) getExamStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.portal.ExamStats(r.Context(), authState(r.Context()))
	respond(s, w, stats, err)
}

func (s *Service) getTimetable(w http.ResponseWriter, r *http.Request) {
	start, end, err := timetableRange(r.URL.Query(), s.time.Now())
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid time range")
		return
	}
	entries, err := s.portal.Timetable(r.Context(), authState(r.Context()), start, end)
	if err != nil {
		s.fail(w, report_service_upstream, err)
		return
	}
	writeJson(w, http.StatusOK, decorateTimetable(entries))
}

func (s *Service) getReminders(w http.ResponseWriter, r *http.Request) {
	reminders, err := s.portal.Reminders(r.Context(), authState(r.Context()))
	respond(s, w, reminders, err)
}

func (s *Service) getTimeline(w http.ResponseWriter, r *http.Request) {
	events, err := s.portal.Timeline(r.Context(), authState(r.Context()))
	respond(s, w, events, err)
}
