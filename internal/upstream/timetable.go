package upstream

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/regportal/regbridge/internal/codec"
	"github.com/regportal/regbridge/internal/schedule"
)

// FetchTimetable downloads the raw timetable rows for term. The payload is a
// compressed envelope; an envelope that decodes to no rows yields an empty
// slice. Any decode failure is reported as unavailable.
func (c *Client) FetchTimetable(ctx context.Context, bearer string, term schedule.Term) ([]codec.Row, error) {
	const op = "timetable"
	url := c.timetableBase + "/Timetable/Timetable/" + strconv.Itoa(term.Year) + "/" + strconv.Itoa(term.Semester)

	req, err := c.newRequest(ctx, http.MethodGet, url, bearer, nil)
	if err != nil {
		return nil, unavailable(op, "build request", err)
	}
	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("timetable request failed", zap.Error(err))
		return nil, transportError(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		return nil, unexpectedStatus(op, resp.StatusCode)
	}

	rows, err := codec.DecodeBody(resp.Body)
	if err != nil {
		c.log.Warn("timetable payload could not be decoded", zap.String("term", term.Label()), zap.Error(err))
		return nil, unavailable(op, "decode payload", err)
	}
	c.log.Debug("timetable fetched",
		zap.String("term", term.Label()),
		zap.Int("rows", len(rows)),
		zap.Duration("took", time.Since(started)),
	)
	return rows, nil
}

type currentTermResponse struct {
	AcadYear int `json:"acadyear"`
	Semester int `json:"semester"`
}

// FetchCurrentTerm asks the upstream which academic term is current for the
// bearer's owner.
func (c *Client) FetchCurrentTerm(ctx context.Context, bearer string) (schedule.Term, error) {
	var out currentTermResponse
	if err := c.getJSON(ctx, "term", c.authURL(c.termPath), bearer, &out); err != nil {
		return schedule.Term{}, err
	}
	term := schedule.Term{Year: out.AcadYear, Semester: out.Semester}
	if !term.Valid() {
		return schedule.Term{}, unavailable("term", "term response is incomplete", nil)
	}
	return term, nil
}
