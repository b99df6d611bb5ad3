package catalog

import (
	"strings"

	"courseplanner-backend/internal/components/textutil"
	"courseplanner-backend/internal/model"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// SectionCellCount is the number of cells a section row is padded to.
const SectionCellCount = 13

// RowShape tells which column layout a section row uses.
type RowShape int

const (
	// ShapeRegular rows carry the meeting type in cell 3 and the full
	// section details.
	ShapeRegular RowShape = iota
	// ShapeExam rows are the narrower midterm/final rows, meeting type in
	// cell 2.
	ShapeExam
)

// RowEvent is one of CourseHeader, SectionRow or Ignored.
type RowEvent interface {
	rowEvent()
}

// CourseHeader starts a new course. An empty Title marks a malformed header.
type CourseHeader struct {
	Number string
	Title  string
}

type SectionRow struct {
	Shape       RowShape
	Cells       [SectionCellCount]string
	MeetingType string
	// Instructor is the whitespace collapsed instructor cell, InstructorKey
	// its normalized key. Both are empty for exam rows.
	Instructor    string
	InstructorKey string
}

type Ignored struct{}

func (CourseHeader) rowEvent() {}
func (SectionRow) rowEvent()   {}
func (Ignored) rowEvent()      {}

var regularMeetingTypes = map[string]bool{
	"LE": true,
	"DI": true,
	"SE": true,
	"IT": true,
}

var examMeetingTypes = map[string]bool{
	"MI": true,
	"FI": true,
}

// Classify turns a table row into a RowEvent, rows that match neither a
// course header nor a section are Ignored.
func Classify(row *goquery.Selection) RowEvent {
	headerCells := row.Find("td.crsheader")
	if headerCells.Length() > 0 {
		number := ""
		if headerCells.Length() > 1 {
			number = textutil.CollapseWhitespace(headerCells.Eq(1).Text())
		}
		title := textutil.CollapseWhitespace(row.Find("td.crsheader span.boldtxt").First().Text())
		return CourseHeader{Number: number, Title: title}
	}

	sectionCells := row.Find("td.brdr")
	if sectionCells.Length() == 0 {
		return Ignored{}
	}

	var cells [SectionCellCount]string
	sectionCells.Each(func(i int, cell *goquery.Selection) {
		if i >= SectionCellCount {
			return
		}
		cells[i] = textutil.CollapseWhitespace(cell.Text())
	})

	switch {
	case regularMeetingTypes[cells[3]]:
		return SectionRow{
			Shape:         ShapeRegular,
			Cells:         cells,
			MeetingType:   cells[3],
			Instructor:    textutil.CollapseWhitespace(cells[9]),
			InstructorKey: textutil.NormalizeInstructorKey(cells[9]),
		}
	case examMeetingTypes[cells[2]]:
		return SectionRow{
			Shape:       ShapeExam,
			Cells:       cells,
			MeetingType: cells[2],
		}
	case cells[3] != "" && sectionCells.Length() > 9:
		// a full width row with a meeting type nobody buckets (labs, etc.)
		return SectionRow{
			Shape:         ShapeRegular,
			Cells:         cells,
			MeetingType:   cells[3],
			Instructor:    textutil.CollapseWhitespace(cells[9]),
			InstructorKey: textutil.NormalizeInstructorKey(cells[9]),
		}
	}
	return Ignored{}
}

func joinLocation(building, room string) string {
	return strings.TrimSpace(building + " " + room)
}

// Section maps the cells of the row into a section according to its shape.
func (r SectionRow) Section() model.Section {
	c := r.Cells
	if r.Shape == ShapeExam {
		return model.Section{
			MeetingType: c[2],
			Days:        c[3],
			Time:        c[5],
			Location:    joinLocation(c[6], c[7]),
		}
	}
	return model.Section{
		RestrictionCode: c[0],
		CourseNumber:    c[1],
		SectionID:       c[2],
		MeetingType:     c[3],
		Section:         c[4],
		Days:            c[5],
		Time:            c[6],
		Location:        joinLocation(c[7], c[8]),
		AvailableSeats:  c[10],
		Limit:           c[11],
	}
}

// ClassifyHTML classifies every row of a rendered results page.
func ClassifyHTML(document string) ([]RowEvent, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(document))
	if err != nil {
		return nil, err
	}
	var events []RowEvent
	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		events = append(events, Classify(row))
	})
	return events, nil
}

// tbodyContext is the parent element row fragments are parsed in, so a bare
// <tr> is kept instead of being dropped by the html parser.
var tbodyContext = &html.Node{
	Type:     html.ElementNode,
	Data:     "tbody",
	DataAtom: atom.Tbody,
}

// ClassifyRows classifies rows given as their outer html, which is how the
// browser session hands them out.
func ClassifyRows(rows []string) ([]RowEvent, error) {
	events := make([]RowEvent, 0, len(rows))
	for _, row := range rows {
		nodes, err := html.ParseFragment(strings.NewReader(row), tbodyContext)
		if err != nil {
			return nil, err
		}
		var tr *goquery.Selection
		for _, node := range nodes {
			if node.Type == html.ElementNode && node.DataAtom == atom.Tr {
				tr = goquery.NewDocumentFromNode(node).Selection
				break
			}
		}
		if tr == nil {
			events = append(events, Ignored{})
			continue
		}
		events = append(events, Classify(tr))
	}
	return events, nil
}
