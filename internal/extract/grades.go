package extract

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"campusdual-backend/pkg/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

const (
	gradesAnchor   = "#acwork tbody"
	gradeCellCount = 8
	// announcement dates are rendered as dd.mm.yyyy
	announcedDateLayout = "02.01.2006"
)

// cell positions of a grade row
const (
	cellName = iota
	cellGrade
	cellPassed
	cellCreditPoints
	cellAssessed
	cellAnnounced
	cellRetake
	cellPeriod
)

func cellText(cells *goquery.Selection, i int) string {
	return strings.TrimSpace(htmlutil.FirstText(cells.Eq(i)))
}

func passedIcon(cell *goquery.Selection) Passed {
	img := cell.Find("img").First()
	if img.Length() == 0 {
		return PassedUnknown
	}
	if strings.Contains(img.AttrOr("src", ""), "green.png") {
		return PassedYes
	}
	return PassedNo
}

func gradeCells(row *goquery.Selection) (*goquery.Selection, error) {
	cells := row.Find("td")
	if cells.Length() < gradeCellCount {
		return nil, rowShapeError(row, "expected %d cells, got %d", gradeCellCount, cells.Length())
	}
	return cells, nil
}

func moduleMeta(row *goquery.Selection) *ModuleMeta {
	link := row.Find("td > div#mscore > a").First()
	if link.Length() == 0 {
		return nil
	}
	module, ok1 := link.Attr("data-module")
	yearPeriod, ok2 := link.Attr("data-peryr")
	termPeriod, ok3 := link.Attr("data-perid")
	if !ok1 || !ok2 || !ok3 {
		return nil
	}
	return &ModuleMeta{Module: module, YearPeriod: yearPeriod, TermPeriod: termPeriod}
}

func subGrade(row *goquery.Selection) (SubGradeRecord, error) {
	cells, err := gradeCells(row)
	if err != nil {
		return SubGradeRecord{}, err
	}

	var retake *string
	if label := cellText(cells, cellRetake); label != "" {
		retake = &label
	}

	return SubGradeRecord{
		Name:          cellText(cells, cellName),
		Grade:         cellText(cells, cellGrade),
		Passed:        passedIcon(cells.Eq(cellPassed)),
		AssessedDate:  cellText(cells, cellAssessed),
		AnnouncedDate: cellText(cells, cellAnnounced),
		RetakeLabel:   retake,
		Period:        cellText(cells, cellPeriod),
		Meta:          moduleMeta(row),
	}, nil
}

func moduleGrade(tree rowTree, row *goquery.Selection) (GradeRecord, error) {
	id := row.AttrOr("id", "")
	if id == "" {
		return GradeRecord{}, rowShapeError(row, "missing id")
	}
	cells, err := gradeCells(row)
	if err != nil {
		return GradeRecord{}, err
	}

	creditPoints, err := strconv.Atoi(cellText(cells, cellCreditPoints))
	if err != nil {
		creditPoints = 0
	}

	record := GradeRecord{
		Name:          cellText(cells, cellName),
		Grade:         cellText(cells, cellGrade),
		OverallPassed: passedIcon(cells.Eq(cellPassed)),
		CreditPoints:  creditPoints,
		Period:        cellText(cells, cellPeriod),
		Subgrades:     []SubGradeRecord{},
	}
	for _, child := range tree.childrenOf(id) {
		sub, err := subGrade(child)
		if err != nil {
			return GradeRecord{}, err
		}
		record.Subgrades = append(record.Subgrades, sub)
	}
	return record, nil
}

// partialExamGrade turns a standalone partial exam row into a record with itself as the only
// subgrade, partial exams carry no credit points of their own.
func partialExamGrade(row *goquery.Selection) (GradeRecord, error) {
	cells, err := gradeCells(row)
	if err != nil {
		return GradeRecord{}, err
	}

	sub := SubGradeRecord{
		Name:          cellText(cells, cellName),
		Grade:         cellText(cells, cellGrade),
		Passed:        passedIcon(cells.Eq(cellPassed)),
		AssessedDate:  cellText(cells, cellAssessed),
		AnnouncedDate: cellText(cells, cellAnnounced),
		Period:        cellText(cells, cellPeriod),
	}
	return GradeRecord{
		Name:          sub.Name,
		Grade:         sub.Grade,
		OverallPassed: sub.Passed,
		CreditPoints:  0,
		Period:        sub.Period,
		Subgrades:     []SubGradeRecord{sub},
	}, nil
}

// newestAnnouncement is the latest parseable announcement date among the subgrades, the zero
// time if there is none.
func newestAnnouncement(record GradeRecord) time.Time {
	var newest time.Time
	for _, sub := range record.Subgrades {
		date, err := time.Parse(announcedDateLayout, sub.AnnouncedDate)
		if err != nil {
			continue
		}
		if date.After(newest) {
			newest = date
		}
	}
	return newest
}

// Grades extracts the grade records of the academic results page, newest announcement first.
// Records announced on the same day keep the order they appear in on the page.
func Grades(markup []byte) ([]GradeRecord, error) {
	tbody, err := anchorTable(markup, gradesAnchor)
	if err != nil {
		return nil, err
	}
	tree := buildRowTree(tbody)

	records := []GradeRecord{}
	for _, row := range tree.childrenOf(rootNode) {
		record, err := moduleGrade(tree, row)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	for _, row := range tree.childrenOf(partialExamNode) {
		record, err := partialExamGrade(row)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	type dated struct {
		record GradeRecord
		newest time.Time
	}
	sorted := make([]dated, len(records))
	for i := range records {
		sorted[i] = dated{record: records[i], newest: newestAnnouncement(records[i])}
	}
	slices.SortStableFunc(sorted, func(a, b dated) int {
		return b.newest.Compare(a.newest)
	})

	for i := range sorted {
		records[i] = sorted[i].record
	}
	return records, nil
}
