package portal

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// SessionCookie is the portal cookie harvested at login, it is opaque to everything except this
// package.
type SessionCookie struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Domain string `json:"domain"`
	Path   string `json:"path"`
	// Expires is in unix seconds, 0 for a cookie that lives as long as the browser session.
	Expires int64 `json:"expires"`
}

func (c SessionCookie) httpCookie() *http.Cookie {
	cookie := &http.Cookie{
		Name:   c.Name,
		Value:  c.Value,
		Domain: c.Domain,
		Path:   c.Path,
	}
	if c.Expires != 0 {
		cookie.Expires = time.Unix(c.Expires, 0)
	}
	return cookie
}

// AuthState is everything needed to act as a student against the portal. It is minted once per
// login, sealed into a bearer token right away and never written anywhere else.
type AuthState struct {
	SessionCookie SessionCookie `json:"cookie"`
	SubjectID     string        `json:"user"`
	SubjectHash   string        `json:"hash"`
	// Password is kept so that a dead portal session can be revived without asking the
	// student again.
	Password string `json:"password"`
}

// String never includes secrets.
func (s AuthState) String() string {
	return fmt.Sprintf("AuthState{user: %s}", s.SubjectID)
}

func (s AuthState) LogValue() slog.Value {
	return slog.GroupValue(slog.String("user", s.SubjectID))
}

// Profile holds the secondary fields shown on the portal start page, extraction is best-effort
// and leaves the names blank when the page layout does not match.
type Profile struct {
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	SeminarGroup string `json:"seminar_group"`
	SeminarName  string `json:"seminar_name"`
	User         string `json:"user"`
}

type ExamStats struct {
	Total      int64 `json:"total"`
	Successful int64 `json:"successful"`
	Failed     int64 `json:"unsuccessful"`
	Unassessed int64 `json:"unassessed"`
	Booked     int64 `json:"booked"`
	Finished   int64 `json:"finished"`
	Electives  int64 `json:"ronmodus"`
}

type examStatsUpstream struct {
	Exams   int64 `json:"EXAMS"`
	Success int64 `json:"SUCCESS"`
	Failure int64 `json:"FAILURE"`
	Booked  int64 `json:"BOOKED"`
	MBooked int64 `json:"MBOOKED"`
	Modules int64 `json:"MODULES"`
	WPCount int64 `json:"WPCOUNT"`
}

func (u examStatsUpstream) stats() ExamStats {
	return ExamStats{
		Total:      u.Exams,
		Successful: u.Success,
		Failed:     u.Failure,
		Unassessed: u.Booked,
		Booked:     u.MBooked,
		Finished:   u.Modules,
		Electives:  u.WPCount,
	}
}

// TimetableEntry is one event of the timetable as the portal returns it, times are unix
// seconds.
type TimetableEntry struct {
	AllDay      bool   `json:"allDay"`
	Color       string `json:"color"`
	Description string `json:"description"`
	Editable    bool   `json:"editable"`
	End         int64  `json:"end"`
	Instructor  string `json:"instructor"`
	Remarks     string `json:"remarks"`
	Room        string `json:"room"`
	SInstructor string `json:"sinstructor"`
	SRoom       string `json:"sroom"`
	Start       int64  `json:"start"`
	Title       string `json:"title"`
	FontColor   string `json:"font_color,omitempty"`
}

// The reminder types decode the upper-case upstream keys through encoding/json's
// case-insensitive key matching and encode them in lower case.
type LatestReminder struct {
	AcademicSession string `json:"acad_session"`
	AcademicYear    string `json:"acad_year"`
	GradeDate       string `json:"agrdate"`
	GradeType       string `json:"agrtype"`
	Object          string `json:"awobject"`
	ObjectShort     string `json:"awobject_short"`
	ObjectType      string `json:"awotype"`
	Status          string `json:"awstatus"`
	BookDate        string `json:"bookdate"`
	BookReason      string `json:"bookreason"`
	CreditsGraded   string `json:"cpgraded"`
	CreditUnit      string `json:"cpunit"`
	GradeSymbol     string `json:"gradesymbol"`
}

type UpcomingReminder struct {
	Begin           string `json:"beguz"`
	Comment         string `json:"comment"`
	End             string `json:"enduz"`
	Date            string `json:"evdat"`
	Instructor      string `json:"instructor"`
	Location        string `json:"location"`
	ObjectID        string `json:"objid"`
	Room            string `json:"room"`
	InstructorShort string `json:"sinstructor"`
	ModuleShort     string `json:"sm_short"`
	ModuleText      string `json:"sm_stext"`
	RoomShort       string `json:"sroom"`
}

type Reminders struct {
	Electives int64              `json:"electives"`
	Exams     int64              `json:"exams"`
	Latest    []LatestReminder   `json:"latest"`
	Semester  int64              `json:"semester"`
	Upcoming  []UpcomingReminder `json:"upcoming"`
}

type TimelineEvent struct {
	Start         string `json:"start"`
	End           string `json:"end"`
	DurationEvent *bool  `json:"durationEvent,omitempty"`
	Color         string `json:"color"`
	Title         string `json:"title"`
	Caption       string `json:"caption"`
	Description   string `json:"description"`
	TrackNum      *int64 `json:"trackNum,omitempty"`
	Duration      *bool  `json:"duration,omitempty"`
}

type timeline struct {
	Events []TimelineEvent `json:"events"`
}

// ExamBooking identifies an exam offer for registration or cancellation, it mirrors the
// booking metadata extracted from the exam pages.
type ExamBooking struct {
	Assessment string `json:"assessment"`
	YearPeriod string `json:"peryr"`
	TermPeriod string `json:"perid"`
	OfferNo    string `json:"offerno"`
}
