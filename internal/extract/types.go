package extract

import (
	"encoding/json"
	"fmt"
)

// Kind selects which portal page a markup document is parsed as.
type Kind int

const (
	KindGrades Kind = iota
	KindExamSignup
	KindExamDeregistration
)

func (k Kind) String() string {
	switch k {
	case KindGrades:
		return "grades"
	case KindExamSignup:
		return "signup"
	case KindExamDeregistration:
		return "deregistration"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "grades":
		return KindGrades, nil
	case "signup":
		return KindExamSignup, nil
	case "deregistration":
		return KindExamDeregistration, nil
	}
	return 0, fmt.Errorf("unknown page kind %q", s)
}

// Passed is the tri-state outcome of an assessment: the portal shows a green icon, a
// different icon or no icon at all.
type Passed int8

const (
	PassedUnknown Passed = iota
	PassedNo
	PassedYes
)

func (p Passed) String() string {
	switch p {
	case PassedYes:
		return "passed"
	case PassedNo:
		return "failed"
	}
	return "unknown"
}

// MarshalJSON encodes unknown as null.
func (p Passed) MarshalJSON() ([]byte, error) {
	switch p {
	case PassedYes:
		return []byte("true"), nil
	case PassedNo:
		return []byte("false"), nil
	}
	return []byte("null"), nil
}

func (p *Passed) UnmarshalJSON(data []byte) error {
	var value *bool
	err := json.Unmarshal(data, &value)
	if err != nil {
		return err
	}
	switch {
	case value == nil:
		*p = PassedUnknown
	case *value:
		*p = PassedYes
	default:
		*p = PassedNo
	}
	return nil
}

// ModuleMeta identifies the module a subgrade belongs to.
type ModuleMeta struct {
	Module     string `json:"module"`
	YearPeriod string `json:"peryr"`
	TermPeriod string `json:"perid"`
}

type SubGradeRecord struct {
	Name          string      `json:"name"`
	Grade         string      `json:"grade"`
	Passed        Passed      `json:"passed"`
	AssessedDate  string      `json:"beurteilung"`
	AnnouncedDate string      `json:"bekanntgabe"`
	RetakeLabel   *string     `json:"wiederholung"`
	Period        string      `json:"akad_period"`
	Meta          *ModuleMeta `json:"internal_metadata"`
}

type GradeRecord struct {
	Name          string           `json:"name"`
	Grade         string           `json:"grade"`
	OverallPassed Passed           `json:"total_passed"`
	CreditPoints  int              `json:"credit_points"`
	Period        string           `json:"akad_period"`
	Subgrades     []SubGradeRecord `json:"subgrades"`
}

type ExamStatus string

const (
	ExamMissed  ExamStatus = "missed"
	ExamPending ExamStatus = "pending"
	ExamWarning ExamStatus = "warning"
	ExamUnknown ExamStatus = "unknown"
)

// ExamMeta carries the identifiers the portal needs to register for or cancel an exam.
type ExamMeta struct {
	Assessment string `json:"assessment"`
	YearPeriod string `json:"peryr"`
	TermPeriod string `json:"perid"`
	OfferNo    string `json:"offerno"`
}

// ExamOption is one row of the signup or deregistration page. Empty optional strings mean the
// portal did not show the value.
type ExamOption struct {
	Kind            Kind
	Name            string
	ProcedureType   string
	ExamKind        string
	Status          ExamStatus
	InformationText string
	Date            string
	Time            string
	Room            string
	WarningText     string
	HasWarning      bool
	Deadline        string
	Meta            *ExamMeta
}

type examOptionJSON struct {
	Name            string     `json:"name"`
	ProcedureType   string     `json:"verfahren"`
	ExamKind        string     `json:"pruefart"`
	Status          ExamStatus `json:"status"`
	InformationText string     `json:"signup_information"`
	Date            *string    `json:"exam_date"`
	Time            *string    `json:"exam_time"`
	Room            *string    `json:"exam_room"`
	WarningText     *string    `json:"warning_message"`
	Meta            *ExamMeta  `json:"internal_metadata"`
}

type signupOptionJSON struct {
	examOptionJSON
	Deadline *string `json:"signup_until"`
}

type deregistrationOptionJSON struct {
	examOptionJSON
	Deadline *string `json:"signoff_until"`
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// MarshalJSON names the deadline field after the page the option came from.
func (o ExamOption) MarshalJSON() ([]byte, error) {
	common := examOptionJSON{
		Name:            o.Name,
		ProcedureType:   o.ProcedureType,
		ExamKind:        o.ExamKind,
		Status:          o.Status,
		InformationText: o.InformationText,
		Date:            optional(o.Date),
		Time:            optional(o.Time),
		Room:            optional(o.Room),
		Meta:            o.Meta,
	}
	if o.HasWarning {
		warning := o.WarningText
		common.WarningText = &warning
	}
	if o.Kind == KindExamDeregistration {
		return json.Marshal(deregistrationOptionJSON{
			examOptionJSON: common,
			Deadline:       optional(o.Deadline),
		})
	}
	return json.Marshal(signupOptionJSON{
		examOptionJSON: common,
		Deadline:       optional(o.Deadline),
	})
}
