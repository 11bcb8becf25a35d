package schedule

import (
	"strconv"
	"strings"

	"github.com/regportal/regbridge/internal/codec"
	"github.com/regportal/regbridge/internal/htmlmicro"
)

// Result partitions a normalized batch. All keeps the input order; every
// entry of All appears in exactly one of Scheduled or Unscheduled.
type Result struct {
	All         []Entry
	Scheduled   []Entry
	Unscheduled []Entry
}

// Normalize maps raw rows onto Entry values. Rows with a blank course code are
// discarded; any other row always yields an entry, with nil fields for values
// that could not be read.
func Normalize(rows []codec.Row) Result {
	res := Result{
		All:         make([]Entry, 0, len(rows)),
		Scheduled:   []Entry{},
		Unscheduled: []Entry{},
	}
	for _, row := range rows {
		if strings.TrimSpace(str(row[fieldCourseCode])) == "" {
			continue
		}
		e := normalizeRow(row)
		res.All = append(res.All, e)
		if e.Scheduled() {
			res.Scheduled = append(res.Scheduled, e)
		} else {
			res.Unscheduled = append(res.Unscheduled, e)
		}
	}
	return res
}

func normalizeRow(row codec.Row) Entry {
	slot := htmlmicro.ParseTimeFragment(str(row[fieldTime]))

	room := RoomTBA
	if r := htmlmicro.StripTags(str(row[fieldRoom])); r != nil {
		room = *r
	}

	return Entry{
		Weekday:       slot.Weekday,
		TimeFrom:      slot.TimeFrom,
		TimeTo:        slot.TimeTo,
		SubjectID:     strings.TrimSpace(str(row[fieldCourseCode])),
		SubjectNameTH: str(row[fieldCourseName]),
		SubjectNameEN: str(row[fieldCourseNameEn]),
		Section:       str(row[fieldSection]),
		RoomCode:      room,
		TeachName:     htmlmicro.StripTags(str(row[fieldOfficer])),
		Credit:        number(row[fieldCredit]),
		ExamMidterm:   htmlmicro.StripTags(str(row[fieldMidterm])),
		ExamFinal:     htmlmicro.StripTags(str(row[fieldFinal])),
	}
}

// str renders a primitive JSON value as text; anything else is "".
func str(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}

func number(v any) *float64 {
	switch t := v.(type) {
	case float64:
		return &t
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			return &f
		}
	}
	return nil
}
