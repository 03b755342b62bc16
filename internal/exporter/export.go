package exporter

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/robotomize/go-httpspec/internal/allure"
	"github.com/robotomize/go-httpspec/internal/runner"
	"github.com/robotomize/go-httpspec/internal/spec"
)

var hostname string

func init() {
	hostname, _ = os.Hostname()
}

type Attachment struct {
	Name   string
	Mime   string
	Source string
	Body   []byte
}

type Report struct {
	Attachments []Attachment
	Tests       []allure.Test
}

type Option func(options *Options)

type Options struct {
	forceAttachment bool
	allureLabels    []allure.Label
}

// WithForceAttachment attaches the request and response to passed tests as well.
func WithForceAttachment() Option {
	return func(c *Options) {
		c.forceAttachment = true
	}
}

func WithAllureLabels(labels ...allure.Label) Option {
	return func(options *Options) {
		options.allureLabels = labels
	}
}

func New(opts ...Option) *Exporter {
	e := Exporter{}
	for _, o := range opts {
		o(&e.opts)
	}

	return &e
}

type Exporter struct {
	opts Options
}

// Export converts a run into allure results. A *runner.CaseError in runErr
// becomes a broken test.
func (e *Exporter) Export(report runner.Report, runErr error) Report {
	var result Report

	for _, res := range report.Results {
		status := allure.StatusPass
		if !res.Passed() {
			status = allure.StatusFail
		}

		tc := e.newTest(res.Case, status, res.Start, res.Stop)
		tc.StatusDetails.Message = res.Failure
		tc.Parameters = append(
			tc.Parameters,
			allure.Parameter{Name: "status", Value: strconv.Itoa(res.StatusCode)},
			allure.Parameter{Name: "proto", Value: res.Proto},
		)
		tc.Steps = append(
			tc.Steps,
			newStep("send request", allure.StatusPass, res.Start, res.Stop),
			newStep("validate response", status, res.Stop, res.Stop),
		)

		if e.opts.forceAttachment || !res.Passed() {
			e.attach(&result, &tc, "curl", allure.MimeText, []byte(res.Curl))
			if len(res.Header) > 0 {
				var buf bytes.Buffer
				_ = res.Header.Write(&buf)
				e.attach(&result, &tc, "response headers", allure.MimeText, buf.Bytes())
			}
			if len(res.Body) > 0 {
				e.attach(&result, &tc, "response body", allure.MimeJSON, res.Body)
			}
		}

		result.Tests = append(result.Tests, tc)
	}

	for _, c := range report.Skipped {
		now := time.Now()
		result.Tests = append(result.Tests, e.newTest(c, allure.StatusSkip, now, now))
	}

	var caseErr *runner.CaseError
	if errors.As(runErr, &caseErr) {
		now := time.Now()
		tc := e.newTest(caseErr.Case, allure.StatusBroken, now, now)
		tc.StatusDetails.Message = caseErr.Err.Error()
		result.Tests = append(result.Tests, tc)
	}

	return result
}

func (e *Exporter) newTest(c spec.Case, status string, start, stop time.Time) allure.Test {
	fullName := fmt.Sprintf("%s:%d", c.File, c.Line)
	testCaseID := hash([]byte(fullName))

	tc := allure.Test{
		UUID:        uuid.New().String(),
		TestCaseID:  hex.EncodeToString(testCaseID),
		HistoryID:   hex.EncodeToString(hash(testCaseID)),
		Name:        c.Name(),
		FullName:    fullName,
		Status:      status,
		Stage:       allure.StageFinished,
		Start:       start.UnixMilli(),
		Stop:        stop.UnixMilli(),
		Steps:       make([]allure.Step, 0),
		Attachments: make([]allure.Attachment, 0),
		Parameters: []allure.Parameter{
			{Name: "method", Value: c.Method},
			{Name: "url", Value: c.URL.String()},
		},
		Labels: []allure.Label{
			{Name: "suite", Value: filepath.Base(c.File)},
			{Name: "host", Value: hostname},
			{Name: "framework", Value: "httpspec"},
		},
	}

	if status, ok := c.Status.Get(); ok {
		tc.Parameters = append(tc.Parameters, allure.Parameter{Name: "expected status", Value: status})
	}

	tc.Labels = append(tc.Labels, e.opts.allureLabels...)

	return tc
}

func (e *Exporter) attach(report *Report, tc *allure.Test, name, mime string, body []byte) {
	source := fmt.Sprintf("%s-attachment.txt", uuid.New().String())
	if mime == allure.MimeJSON {
		source = fmt.Sprintf("%s-attachment.json", uuid.New().String())
	}

	report.Attachments = append(
		report.Attachments, Attachment{
			Name:   name,
			Mime:   mime,
			Source: source,
			Body:   body,
		},
	)

	tc.Attachments = append(
		tc.Attachments, allure.Attachment{
			Name:   name,
			Source: source,
			Type:   mime,
		},
	)
}

func newStep(name, status string, start, stop time.Time) allure.Step {
	return allure.Step{
		Name:        name,
		Status:      status,
		Stage:       allure.StageFinished,
		Start:       start.UnixMilli(),
		Stop:        stop.UnixMilli(),
		Steps:       make([]allure.Step, 0),
		Attachments: make([]allure.Attachment, 0),
		Parameters:  make([]allure.Parameter, 0),
	}
}

func hash(b []byte) []byte {
	sum := md5.Sum(b)
	return sum[:]
}
