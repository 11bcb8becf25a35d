// Package htmlmicro extracts plain values from the small HTML fragments the
// registration backend embeds in JSON fields. It is not an HTML parser: each
// function targets one known field shape.
package htmlmicro

import (
	"regexp"
	"strings"
)

// Weekday numbers follow the upstream convention: Sunday is 1, Saturday is 7.
const (
	Sunday = iota + 1
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
)

// DayCodes maps the Thai day abbreviations used upstream to weekday numbers.
var DayCodes = map[string]int{
	"อา": Sunday,
	"จ":  Monday,
	"อ":  Tuesday,
	"พ":  Wednesday,
	"พฤ": Thursday,
	"ศ":  Friday,
	"ส":  Saturday,
}

// Two-character codes come first so "พฤ" never resolves as "พ" and "อา" never
// as "อ". The token must sit alone between a '>' and the next '<'.
var (
	dayPattern  = regexp.MustCompile(`>\s*(อา|พฤ|จ|อ|พ|ศ|ส)\.?\s*<`)
	timePattern = regexp.MustCompile(`(\d{2}:\d{2})-(\d{2}:\d{2})`)
	tagPattern  = regexp.MustCompile(`<[^>]*>`)
)

// TimeSlot is the result of ParseTimeFragment. Nil fields mean the fragment
// carried no recognisable value.
type TimeSlot struct {
	Weekday  *int
	TimeFrom *string
	TimeTo   *string
}

// ParseTimeFragment reads the first day code and the first HH:MM-HH:MM range
// from a schedule fragment such as
// `<B><FONT COLOR=#5080E0>พ.</FONT></B><FONT>13:00-16:00</FONT>`.
func ParseTimeFragment(html string) TimeSlot {
	var slot TimeSlot
	if m := dayPattern.FindStringSubmatch(html); m != nil {
		if d, ok := DayCodes[m[1]]; ok {
			slot.Weekday = &d
		}
	}
	if m := timePattern.FindStringSubmatch(html); m != nil {
		from, to := m[1], m[2]
		slot.TimeFrom, slot.TimeTo = &from, &to
	}
	return slot
}

// StripTags removes every <...> tag and trims the rest. It returns nil when
// nothing but markup or whitespace was present.
func StripTags(html string) *string {
	if html == "" {
		return nil
	}
	text := strings.TrimSpace(tagPattern.ReplaceAllString(html, ""))
	if text == "" {
		return nil
	}
	return &text
}
