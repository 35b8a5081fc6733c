// Package extract turns the portal's nested result tables into typed records. Every function
// here is pure: markup in, records or an error out.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
)

var (
	// ErrTableMissing means the page did not contain the table the records live in, usually
	// because the portal served a login or error page instead.
	ErrTableMissing = errors.New("anchor table missing")
	// ErrRowShapeMismatch means a row of the anchor table did not have the expected structure.
	ErrRowShapeMismatch = errors.New("row shape mismatch")
)

// Parse extracts the records of the given page kind, the result is either []GradeRecord or
// []ExamOption.
func Parse(markup []byte, kind Kind) (any, error) {
	switch kind {
	case KindGrades:
		return Grades(markup)
	case KindExamSignup, KindExamDeregistration:
		return ExamOptions(markup, kind)
	}
	return nil, fmt.Errorf("parse: unsupported kind %v", kind)
}

func anchorTable(markup []byte, selector string) (*goquery.Selection, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	tbody := doc.Find(selector).First()
	if tbody.Length() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrTableMissing, selector)
	}
	return tbody, nil
}

func rowShapeError(row *goquery.Selection, format string, args ...any) error {
	id := row.AttrOr("id", "<no id>")
	return fmt.Errorf("%w: row %s: %s", ErrRowShapeMismatch, id, fmt.Sprintf(format, args...))
}

func trimStart(s string) string {
	return strings.TrimLeftFunc(s, unicode.IsSpace)
}
