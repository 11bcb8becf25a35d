package htmlmicro

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeFragment(t *testing.T) {
	tests := []struct {
		name     string
		html     string
		weekday  *int
		from, to *string
	}{
		{
			name:    "wednesday with range",
			html:    `<B><FONT COLOR=#5080E0>พ.</FONT></B><FONT>13:00-16:00</FONT>`,
			weekday: ptr(Wednesday), from: ptr("13:00"), to: ptr("16:00"),
		},
		{
			name:    "thursday is not read as wednesday",
			html:    `<B><FONT COLOR=#5080E0>พฤ</FONT></B><FONT>09:00-12:00</FONT>`,
			weekday: ptr(Thursday), from: ptr("09:00"), to: ptr("12:00"),
		},
		{
			name:    "sunday is not read as tuesday",
			html:    `<b>อา.</b> <i>08:00-10:00</i>`,
			weekday: ptr(Sunday), from: ptr("08:00"), to: ptr("10:00"),
		},
		{
			name:    "tuesday",
			html:    `<FONT>อ</FONT><FONT>10:00-12:00</FONT>`,
			weekday: ptr(Tuesday), from: ptr("10:00"), to: ptr("12:00"),
		},
		{
			name:    "first of several meetings wins",
			html:    `<B>จ</B><FONT>08:00-10:00</FONT><BR><B>ศ</B><FONT>13:00-15:00</FONT>`,
			weekday: ptr(Monday), from: ptr("08:00"), to: ptr("10:00"),
		},
		{
			name:    "saturday without time",
			html:    `<B>ส</B>`,
			weekday: ptr(Saturday),
		},
		{
			name: "time only",
			html: `<FONT>09:00-10:00</FONT>`,
			from: ptr("09:00"), to: ptr("10:00"),
		},
		{
			name: "day letter inside a word is ignored",
			html: `<FONT>พิเศษ</FONT>`,
		},
		{name: "empty", html: ""},
		{name: "garbage", html: `<<>>>< 9:00-10:00`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got TimeSlot
			require.NotPanics(t, func() { got = ParseTimeFragment(tt.html) })
			assert.Equal(t, tt.weekday, got.Weekday)
			assert.Equal(t, tt.from, got.TimeFrom)
			assert.Equal(t, tt.to, got.TimeTo)
		})
	}
}

func TestDayCodesCoverWeek(t *testing.T) {
	seen := map[int]bool{}
	for _, d := range DayCodes {
		seen[d] = true
	}
	for d := Sunday; d <= Saturday; d++ {
		assert.True(t, seen[d], "weekday %d has no code", d)
	}
	assert.Len(t, DayCodes, 7)
}

func TestStripTags(t *testing.T) {
	assert.Nil(t, StripTags(""))
	assert.Nil(t, StripTags("<br/>  <b></b>"))
	assert.Equal(t, ptr("ผศ.ดร. สมชาย ใจดี"), StripTags(`<FONT COLOR=#000>  ผศ.ดร. สมชาย ใจดี </FONT>`))
	assert.Equal(t, ptr("F11-421"), StripTags("F11-421"))
	assert.Equal(t, ptr("12 Oct 2567 09:00-12:00"), StripTags(`<B>12 Oct 2567</B> 09:00-12:00`))
}

func ptr[T any](v T) *T { return &v }
