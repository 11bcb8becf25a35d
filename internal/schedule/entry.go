// Package schedule turns raw upstream timetable rows into the normalized
// schedule entries the portal exposes.
package schedule

// RoomTBA is used when a row carries no room.
const RoomTBA = "TBA"

// Upstream field names read from a raw timetable row.
const (
	fieldCourseCode   = "coursecode"
	fieldCourseName   = "coursename"
	fieldCourseNameEn = "coursenameeng"
	fieldSection      = "sectioncode"
	fieldTime         = "time"
	fieldRoom         = "roomtime"
	fieldOfficer      = "classofficer"
	fieldMidterm      = "m_exam"
	fieldFinal        = "f_exam"
	fieldCredit       = "creditattempt"
)

// Entry is one normalized course section. Weekday is nil exactly when the
// source fragment had no recognisable day code.
type Entry struct {
	Weekday       *int     `json:"weekday"`
	TimeFrom      *string  `json:"timefrom"`
	TimeTo        *string  `json:"timeto"`
	SubjectID     string   `json:"subject_id"`
	SubjectNameTH string   `json:"subject_name_th"`
	SubjectNameEN string   `json:"subject_name_en"`
	Section       string   `json:"section"`
	RoomCode      string   `json:"roomcode"`
	TeachName     *string  `json:"teach_name"`
	Credit        *float64 `json:"credit"`
	ExamMidterm   *string  `json:"exam_midterm"`
	ExamFinal     *string  `json:"exam_final"`
}

// Scheduled reports whether the entry has a fixed weekday.
func (e Entry) Scheduled() bool { return e.Weekday != nil }
