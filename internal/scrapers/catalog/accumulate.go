package catalog

import (
	"strings"

	"courseplanner-backend/internal/model"
)

type bucket int

const (
	bucketLecture bucket = iota
	bucketLectureOverride
	bucketDiscussion
	bucketMidterm
	bucketFinal
)

var meetingTypeBuckets = map[string]bucket{
	"LE": bucketLecture,
	"DI": bucketDiscussion,
	"SE": bucketDiscussion,
	"IT": bucketLectureOverride,
	"MI": bucketMidterm,
	"FI": bucketFinal,
}

// Accumulator folds the row events of one results page into courses.
type Accumulator struct {
	Term string
	// Subject prefixes every course name when set ("CSE" + "100 Title").
	Subject string
}

// Fold is Accumulator{Term: term}.Fold(events).
func Fold(term string, events []RowEvent) []model.Course {
	return Accumulator{Term: term}.Fold(events)
}

// Fold groups section rows under the course header above them. Courses are
// returned in header order, a course is emitted even if it has no sections.
func (a Accumulator) Fold(events []RowEvent) []model.Course {
	var out []model.Course
	var current *model.Course

	emit := func() {
		if current != nil {
			out = append(out, *current)
			current = nil
		}
	}

	for _, event := range events {
		switch e := event.(type) {
		case CourseHeader:
			emit()
			if e.Title == "" {
				continue
			}
			current = &model.Course{
				Name: a.courseName(e),
				Term: a.Term,
			}
		case SectionRow:
			if current == nil {
				continue
			}
			applySection(current, e)
		}
	}
	emit()

	return out
}

func (a Accumulator) courseName(header CourseHeader) string {
	parts := make([]string, 0, 3)
	if subject := strings.TrimSpace(a.Subject); subject != "" {
		parts = append(parts, subject)
	}
	if header.Number != "" {
		parts = append(parts, header.Number)
	}
	parts = append(parts, header.Title)
	return strings.Join(parts, " ")
}

func applySection(course *model.Course, row SectionRow) {
	b, ok := meetingTypeBuckets[row.MeetingType]
	if !ok {
		return
	}
	section := row.Section()

	if course.Teacher == "" && row.Instructor != "" {
		course.Teacher = row.Instructor
		course.TeacherKey = row.InstructorKey
	}

	switch b {
	case bucketLecture:
		if course.Lecture == nil {
			course.Lecture = &section
		}
	case bucketLectureOverride:
		course.Lecture = &section
	case bucketDiscussion:
		course.Discussions = append(course.Discussions, section)
	case bucketMidterm:
		course.Midterms = append(course.Midterms, section)
	case bucketFinal:
		course.Final = &section
	}
}
