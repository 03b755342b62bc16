// Package report renders a finished run for people: a console summary and an
// XLSX workbook.
package report

import (
	"errors"
	"strconv"
	"time"

	"github.com/robotomize/go-httpspec/internal/runner"
	"github.com/robotomize/go-httpspec/internal/slice"
)

const (
	OutcomePass  = "PASS"
	OutcomeFail  = "FAIL"
	OutcomeSkip  = "SKIP"
	OutcomeError = "ERROR"
)

// Row is one case of a run flattened for output.
type Row struct {
	Name     string
	File     string
	Line     int
	Method   string
	URL      string
	Expected string
	Status   string
	Proto    string
	Outcome  string
	Message  string
	Curl     string
	Duration time.Duration
}

// Summary counts rows by outcome.
type Summary struct {
	Total   int
	Passed  int
	Failed  int
	Skipped int
	Errored int
}

func (s Summary) OK() bool {
	return s.Failed == 0 && s.Errored == 0
}

// Rows flattens a run in execution order: results, skipped cases, then the
// case that stopped the run with a fatal error, if any.
func Rows(rep runner.Report, runErr error) []Row {
	rows := make([]Row, 0, len(rep.Results)+len(rep.Skipped)+1)

	for _, res := range rep.Results {
		row := Row{
			Name:     res.Case.Name(),
			File:     res.Case.File,
			Line:     res.Case.Line,
			Method:   res.Case.Method,
			URL:      res.Case.URL.String(),
			Expected: res.Case.Status.StringValue(),
			Status:   strconv.Itoa(res.StatusCode),
			Proto:    res.Proto,
			Outcome:  OutcomePass,
			Curl:     res.Curl,
			Duration: res.Duration(),
		}

		if !res.Passed() {
			row.Outcome = OutcomeFail
			row.Message = res.Failure
		}

		rows = append(rows, row)
	}

	for _, c := range rep.Skipped {
		rows = append(
			rows, Row{
				Name:     c.Name(),
				File:     c.File,
				Line:     c.Line,
				Method:   c.Method,
				URL:      c.URL.String(),
				Expected: c.Status.StringValue(),
				Outcome:  OutcomeSkip,
			},
		)
	}

	var caseErr *runner.CaseError
	if errors.As(runErr, &caseErr) {
		c := caseErr.Case
		rows = append(
			rows, Row{
				Name:     c.Name(),
				File:     c.File,
				Line:     c.Line,
				Method:   c.Method,
				URL:      c.URL.String(),
				Expected: c.Status.StringValue(),
				Outcome:  OutcomeError,
				Message:  caseErr.Err.Error(),
			},
		)
	}

	return rows
}

func Summarize(rows []Row) Summary {
	return Summary{
		Total:   len(rows),
		Passed:  slice.Count(rows, outcomeIs(OutcomePass)),
		Failed:  slice.Count(rows, outcomeIs(OutcomeFail)),
		Skipped: slice.Count(rows, outcomeIs(OutcomeSkip)),
		Errored: slice.Count(rows, outcomeIs(OutcomeError)),
	}
}

func outcomeIs(outcome string) func(Row) bool {
	return func(r Row) bool {
		return r.Outcome == outcome
	}
}
