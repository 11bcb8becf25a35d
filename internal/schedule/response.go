package schedule

import "fmt"

// Term identifies an academic term: Year is the Buddhist-era academic year
// used upstream (e.g. 2567) and Semester its 1-based semester.
type Term struct {
	Year     int `json:"acadyear"`
	Semester int `json:"semester"`
}

// Label formats the term as "S/YYYY".
func (t Term) Label() string { return fmt.Sprintf("%d/%d", t.Semester, t.Year) }

// Valid reports whether both parts are set.
func (t Term) Valid() bool { return t.Year > 0 && t.Semester > 0 }

type Stats struct {
	Total           int `json:"total"`
	WithSchedule    int `json:"withSchedule"`
	WithoutSchedule int `json:"withoutSchedule"`
}

// Response is the schedule document served to the rest of the portal.
type Response struct {
	Success     bool    `json:"success"`
	Data        []Entry `json:"data"`
	Scheduled   []Entry `json:"scheduled"`
	Unscheduled []Entry `json:"unscheduled"`
	Semester    string  `json:"semester"`
	Stats       Stats   `json:"stats"`
}

// NewResponse wraps a normalized batch for term.
func NewResponse(res Result, term Term) Response {
	return Response{
		Success:     true,
		Data:        res.All,
		Scheduled:   res.Scheduled,
		Unscheduled: res.Unscheduled,
		Semester:    term.Label(),
		Stats: Stats{
			Total:           len(res.All),
			WithSchedule:    len(res.Scheduled),
			WithoutSchedule: len(res.Unscheduled),
		},
	}
}
