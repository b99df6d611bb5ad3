// Package model holds the records produced by an ingestion run, they are
// shared by the scrapers, the rating cache and every store implementation.
package model

import (
	"time"

	"github.com/google/uuid"
)

type Term struct {
	Name     string `json:"name" bson:"name"`
	IsActive bool   `json:"isActive" bson:"isActive"`
}

// Section is a single scheduled meeting row of a course.
type Section struct {
	RestrictionCode string `json:"restrictionCode" bson:"restrictionCode"`
	CourseNumber    string `json:"courseNumber" bson:"courseNumber"`
	SectionID       string `json:"sectionId" bson:"sectionId"`
	MeetingType     string `json:"meetingType" bson:"meetingType"`
	Section         string `json:"section" bson:"section"`
	Days            string `json:"days" bson:"days"`
	Time            string `json:"time" bson:"time"`
	Location        string `json:"location" bson:"location"`
	AvailableSeats  string `json:"availableSeats" bson:"availableSeats"`
	Limit           string `json:"limit" bson:"limit"`
}

// Course is one catalog course with its sections and, once enriched, the
// rating of its instructor.
type Course struct {
	Name string `json:"name" bson:"name"`
	Term string `json:"term" bson:"term"`
	// Teacher is the instructor as the catalog prints it ("Last, First"),
	// kept for display only.
	Teacher string `json:"teacher" bson:"teacher"`
	// TeacherKey is the normalized form of Teacher ("last first", lowercased).
	// Instructors are deduplicated and courses filtered by it.
	TeacherKey  string        `json:"teacherKey" bson:"teacherKey"`
	Lecture     *Section      `json:"lecture" bson:"lecture"`
	Discussions []Section     `json:"discussions" bson:"discussions"`
	Midterms    []Section     `json:"midterms" bson:"midterms"`
	Final       *Section      `json:"final" bson:"final"`
	Rating      *RatingRecord `json:"rating" bson:"rating"`
}

// SectionCount is the number of sections attached to the course.
func (c Course) SectionCount() int {
	n := len(c.Discussions) + len(c.Midterms)
	if c.Lecture != nil {
		n++
	}
	if c.Final != nil {
		n++
	}
	return n
}

type RatingRecord struct {
	InstructorKey    string  `json:"instructorKey" bson:"instructorKey"`
	DisplayName      string  `json:"displayName" bson:"displayName"`
	AvgRating        float64 `json:"avgRating" bson:"avgRating"`
	AvgDifficulty    float64 `json:"avgDifficulty" bson:"avgDifficulty"`
	TakeAgainPercent int     `json:"takeAgainPercent" bson:"takeAgainPercent"`
	NumRatings       int     `json:"numRatings" bson:"numRatings"`
	LegacyID         int     `json:"legacyId" bson:"legacyId"`
}

type Decision string

const (
	DecisionBootstrap Decision = "bootstrap"
	DecisionRollover  Decision = "rollover"
	DecisionNoop      Decision = "noop"
	DecisionForced    Decision = "forced"
)

type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
)

// IngestionRun is the bookkeeping record of one orchestrator run.
type IngestionRun struct {
	ID              uuid.UUID `json:"id" bson:"_id"`
	Term            string    `json:"term" bson:"term"`
	Decision        Decision  `json:"decision" bson:"decision"`
	Status          RunStatus `json:"status" bson:"status"`
	StartedAt       time.Time `json:"startedAt" bson:"startedAt"`
	FinishedAt      time.Time `json:"finishedAt" bson:"finishedAt"`
	SubjectsVisited int       `json:"subjectsVisited" bson:"subjectsVisited"`
	SubjectsSkipped int       `json:"subjectsSkipped" bson:"subjectsSkipped"`
	SubjectsFailed  int       `json:"subjectsFailed" bson:"subjectsFailed"`
	CoursesInserted int       `json:"coursesInserted" bson:"coursesInserted"`
	RatingsFetched  int       `json:"ratingsFetched" bson:"ratingsFetched"`
	Error           string    `json:"error" bson:"error"`
}
