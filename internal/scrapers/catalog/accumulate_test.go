package catalog

import (
	"testing"

	"courseplanner-backend/internal/model"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
)

func regular(meetingType, section, teacher string) SectionRow {
	var c [SectionCellCount]string
	c[3] = meetingType
	c[4] = section
	c[9] = teacher
	event, _ := classifyCells(c)
	return event
}

func exam(meetingType, date string) SectionRow {
	var c [SectionCellCount]string
	c[2] = meetingType
	c[3] = date
	event, _ := classifyCells(c)
	return event
}

// classifyCells builds the SectionRow the parser would produce for cells.
func classifyCells(c [SectionCellCount]string) (SectionRow, bool) {
	row := `<tr>`
	for _, v := range c {
		row += `<td class="brdr">` + v + `</td>`
	}
	row += `</tr>`
	events, err := ClassifyRows([]string{row})
	if err != nil || len(events) != 1 {
		return SectionRow{}, false
	}
	section, ok := events[0].(SectionRow)
	return section, ok
}

func TestFoldBuckets(t *testing.T) {
	events := []RowEvent{
		CourseHeader{Number: "100", Title: "Advanced Data Structures"},
		regular("LE", "A00", "Smith, John"),
		regular("DI", "A01", "Doe, Jane"),
		regular("SE", "A02", ""),
		exam("MI", "10/20/2025"),
		exam("MI", "11/10/2025"),
		exam("FI", "12/10/2025"),
		exam("FI", "12/12/2025"),
	}

	courses := Fold("FA25", events)
	require.Len(t, courses, 1)
	c := courses[0]

	require.Equal(t, "100 Advanced Data Structures", c.Name)
	require.Equal(t, "FA25", c.Term)
	require.Equal(t, "Smith, John", c.Teacher)
	require.Equal(t, "smith john", c.TeacherKey)
	require.Equal(t, "A00", c.Lecture.Section)
	require.Len(t, c.Discussions, 2)
	require.Equal(t, "A01", c.Discussions[0].Section)
	require.Equal(t, "A02", c.Discussions[1].Section)
	require.Len(t, c.Midterms, 2)
	require.Equal(t, "12/12/2025", c.Final.Days)
	require.Nil(t, c.Rating)
}

func TestFoldFirstWins(t *testing.T) {
	courses := Fold("FA25", []RowEvent{
		CourseHeader{Number: "101", Title: "Algorithms"},
		regular("LE", "A00", "First, Teacher"),
		regular("LE", "B00", "Second, Teacher"),
	})
	require.Len(t, courses, 1)
	require.Equal(t, "first teacher", courses[0].TeacherKey)
	require.Equal(t, "A00", courses[0].Lecture.Section)
}

func TestFoldTeacherSkipsBlankInstructor(t *testing.T) {
	courses := Fold("FA25", []RowEvent{
		CourseHeader{Number: "101", Title: "Algorithms"},
		regular("DI", "A01", ""),
		regular("LE", "A00", "Smith, John"),
	})
	require.Equal(t, "smith john", courses[0].TeacherKey)
}

func TestFoldIndependentStudyOverridesLecture(t *testing.T) {
	courses := Fold("FA25", []RowEvent{
		CourseHeader{Number: "199", Title: "Independent Study"},
		regular("LE", "A00", "Smith, John"),
		regular("IT", "001", "Doe, Jane"),
	})
	require.Equal(t, "001", courses[0].Lecture.Section)
	require.Equal(t, "smith john", courses[0].TeacherKey)
}

func TestFoldEmptyTitleHeaderDiscardsCourse(t *testing.T) {
	courses := Fold("FA25", []RowEvent{
		CourseHeader{Number: "100", Title: "Data Structures"},
		regular("LE", "A00", "Smith, John"),
		CourseHeader{Number: "101", Title: ""},
		regular("LE", "B00", "Doe, Jane"),
		CourseHeader{Number: "102", Title: "Compilers"},
	})

	names := []string{}
	for _, c := range courses {
		names = append(names, c.Name)
	}
	require.Equal(t, []string{"100 Data Structures", "102 Compilers"}, names)
	require.Equal(t, "A00", courses[0].Lecture.Section)
	require.Nil(t, courses[1].Lecture)
}

func TestFoldDropsSectionsWithoutCourse(t *testing.T) {
	courses := Fold("FA25", []RowEvent{
		regular("LE", "A00", "Smith, John"),
		Ignored{},
	})
	require.Empty(t, courses)
}

func TestFoldEmitsCoursesWithoutSections(t *testing.T) {
	courses := Fold("FA25", []RowEvent{
		CourseHeader{Number: "100", Title: "A"},
		CourseHeader{Number: "101", Title: "B"},
		Ignored{},
	})
	expected := []model.Course{
		{Name: "100 A", Term: "FA25"},
		{Name: "101 B", Term: "FA25"},
	}
	if diff := cmp.Diff(expected, courses, cmpopts.EquateEmpty()); diff != "" {
		t.Fatal(diff)
	}
}

func TestFoldIgnoresUnknownMeetingTypes(t *testing.T) {
	courses := Fold("FA25", []RowEvent{
		CourseHeader{Number: "100", Title: "A"},
		regular("LA", "A50", "Lab, Person"),
		regular("LE", "A00", "Smith, John"),
	})
	require.Equal(t, "smith john", courses[0].TeacherKey)
	require.Equal(t, 1, courses[0].SectionCount())
}

func TestFoldSubjectPrefix(t *testing.T) {
	courses := Accumulator{Term: "WI26", Subject: "CSE"}.Fold([]RowEvent{
		CourseHeader{Number: "100", Title: "Advanced Data Structures"},
	})
	require.Equal(t, "CSE 100 Advanced Data Structures", courses[0].Name)
}

func TestFoldFromHTML(t *testing.T) {
	rows := fixturePage(
		headerRow("100", "Advanced Data Structures"),
		sectionRow("LE", "1", "A00", "TuTh", "11:00a-12:20p", "CENTR", "115", "Smith, John"),
		sectionRow("DI", "2", "A01", "M", "5:00p-5:50p", "WLH", "2001", "Smith, John"),
		examRow("FI", "12/13/2025", "S", "11:30a-2:29p", "TBA", "TBA"),
		headerRow("101", "Design and Analysis of Algorithm"),
		sectionRow("LE", "3", "B00", "MWF", "9:00a-9:50a", "PCYNH", "106", "O'Brien, Mary"),
	)
	events, err := ClassifyRows(rows)
	require.NoError(t, err)

	courses := Fold("FA25", events)
	require.Len(t, courses, 2)
	require.Equal(t, "CENTR 115", courses[0].Lecture.Location)
	require.Equal(t, "WLH 2001", courses[0].Discussions[0].Location)
	require.Equal(t, "11:30a-2:29p", courses[0].Final.Time)
	require.Equal(t, "obrien mary", courses[1].TeacherKey)
}
