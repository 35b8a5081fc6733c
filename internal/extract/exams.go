package extract

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"campusdual-backend/pkg/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// InformationUnavailable is the information text of an option whose detail row had no text.
const InformationUnavailable = "data could not be extracted"

const examCellCount = 3

// the portal renders "   :  " in place of a missing time
const brokenTimePlaceholder = "   :  "

type examLayout struct {
	anchor      string
	deadline    *regexp.Regexp
	information func(string) string
}

var examLayouts = map[Kind]examLayout{
	KindExamSignup: {
		anchor:   "#expproc tbody",
		deadline: regexp.MustCompile(`bis (\d{2}\.\d{2}\.\d{4})`),
		information: func(s string) string {
			return strings.TrimSuffix(s, ", Prüfungstermin: ")
		},
	},
	KindExamDeregistration: {
		anchor:   "#exopen tbody",
		deadline: regexp.MustCompile(`bis zum (\d{2}\.\d{2}\.\d{4})`),
		information: func(s string) string {
			before, _, found := strings.Cut(s, "Prüfungstermin")
			if !found {
				return s
			}
			return strings.ReplaceAll(before, ", ", "")
		},
	},
}

var statusIcons = map[string]ExamStatus{
	"missed.png":      ExamMissed,
	"yellow.png":      ExamPending,
	"exclamation.jpg": ExamWarning,
}

func statusFromIcon(subline *goquery.Selection) ExamStatus {
	src := subline.Find("img").First().AttrOr("src", "")
	if src == "" {
		return ExamUnknown
	}
	status, ok := statusIcons[path.Base(src)]
	if !ok {
		return ExamUnknown
	}
	return status
}

func examMeta(subline *goquery.Selection) *ExamMeta {
	link := subline.Find("td > a.booking").First()
	if link.Length() == 0 {
		return nil
	}
	assessment, ok1 := link.Attr("data-evob_objid")
	yearPeriod, ok2 := link.Attr("data-peryr")
	termPeriod, ok3 := link.Attr("data-perid")
	offerNo, ok4 := link.Attr("data-offerno")
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return nil
	}
	return &ExamMeta{
		Assessment: assessment,
		YearPeriod: yearPeriod,
		TermPeriod: termPeriod,
		OfferNo:    offerNo,
	}
}

func examOption(tree rowTree, row *goquery.Selection, kind Kind, layout examLayout) (ExamOption, error) {
	id := row.AttrOr("id", "")
	if id == "" {
		return ExamOption{}, rowShapeError(row, "missing id")
	}
	cells := row.Find("td")
	if cells.Length() < examCellCount {
		return ExamOption{}, rowShapeError(row, "expected %d cells, got %d", examCellCount, cells.Length())
	}
	sublines := tree.childrenOf(id)
	if len(sublines) == 0 {
		return ExamOption{}, rowShapeError(row, "missing detail row")
	}
	detail := sublines[0]

	option := ExamOption{
		Kind:          kind,
		Name:          cellText(cells, 0),
		ProcedureType: cellText(cells, 1),
		ExamKind:      cellText(cells, 2),
		Status:        statusFromIcon(detail),
	}

	texts := htmlutil.SelectionTextNodes(detail)
	if len(texts) == 0 {
		option.InformationText = InformationUnavailable
		return option, nil
	}

	option.InformationText = layout.information(trimStart(texts[0]))
	// texts[2] is the separator between date and time
	if len(texts) > 1 {
		option.Date = texts[1]
	}
	if len(texts) > 3 {
		option.Time = texts[3]
	}
	if len(texts) > 4 {
		option.Room = strings.TrimPrefix(texts[4], ", ")
	}
	option.Meta = examMeta(detail)

	if len(sublines) > 1 {
		warning := htmlutil.GetText(sublines[1].Get(0))
		warning = strings.ReplaceAll(trimStart(warning), brokenTimePlaceholder, "")
		option.WarningText = warning
		option.HasWarning = true

		match := layout.deadline.FindStringSubmatch(warning)
		if len(match) > 1 {
			option.Deadline = match[1]
		}
	}

	return option, nil
}

// ExamOptions extracts the exam options of the signup or the deregistration page, in page
// order.
func ExamOptions(markup []byte, kind Kind) ([]ExamOption, error) {
	layout, ok := examLayouts[kind]
	if !ok {
		return nil, fmt.Errorf("exam options: unsupported kind %v", kind)
	}
	tbody, err := anchorTable(markup, layout.anchor)
	if err != nil {
		return nil, err
	}
	tree := buildRowTree(tbody)

	options := []ExamOption{}
	for _, row := range tree.childrenOf(rootNode) {
		option, err := examOption(tree, row, kind, layout)
		if err != nil {
			return nil, err
		}
		options = append(options, option)
	}
	return options, nil
}
