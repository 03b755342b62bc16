// Package runner drives parsed cases through the executor and the validator,
// one case at a time.
package runner

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"

	"github.com/robotomize/go-httpspec/internal/executor"
	"github.com/robotomize/go-httpspec/internal/slice"
	"github.com/robotomize/go-httpspec/internal/spec"
)

type Executor interface {
	Do(ctx context.Context, c spec.Case) (executor.Response, error)
	Protocol(c spec.Case) executor.Protocol
}

type Validator interface {
	Validate(c spec.Case, resp executor.Response) (string, error)
}

type Result struct {
	Case       spec.Case
	StatusCode int
	Proto      string
	Header     http.Header
	Body       []byte
	Failure    string
	Curl       string
	Start      time.Time
	Stop       time.Time
}

func (r Result) Passed() bool {
	return r.Failure == ""
}

func (r Result) Duration() time.Duration {
	return r.Stop.Sub(r.Start)
}

// CaseError is a fatal error raised while running a case. It stops the run.
type CaseError struct {
	Case spec.Case
	Err  error
}

func (e *CaseError) Error() string {
	return fmt.Sprintf("%s:%d: %s: %v", e.Case.File, e.Case.Line, e.Case.Name(), e.Err)
}

func (e *CaseError) Unwrap() error {
	return e.Err
}

type Report struct {
	Results []Result
	Skipped []spec.Case
	// Stopped is set when a failure ended the run early.
	Stopped bool
}

func (r Report) OK() bool {
	_, failed := slice.Find(
		r.Results, func(res Result) bool {
			return !res.Passed()
		},
	)

	return !failed
}

type Option func(*Runner)

func WithFailFast() Option {
	return func(r *Runner) {
		r.failFast = true
	}
}

func WithFilter(filter func(spec.Case) bool) Option {
	return func(r *Runner) {
		r.filter = filter
	}
}

func WithLogger(logger log.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

func New(exec Executor, validator Validator, opts ...Option) *Runner {
	r := &Runner{
		exec:      exec,
		validator: validator,
		logger:    log.NewNopLogger(),
	}

	for _, o := range opts {
		o(r)
	}

	return r
}

type Runner struct {
	exec      Executor
	validator Validator
	logger    log.Logger
	filter    func(spec.Case) bool
	failFast  bool
}

// Run executes cases sequentially. A fatal error stops the run and is returned
// as *CaseError together with the results collected so far.
func (r *Runner) Run(ctx context.Context, cases []spec.Case) (Report, error) {
	var report Report

	for _, c := range cases {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		if r.filter != nil && !r.filter(c) {
			level.Debug(r.logger).Log("event", "case skipped", "case", c.Name(), "line", c.Line)
			report.Skipped = append(report.Skipped, c)
			continue
		}

		res, err := r.runCase(ctx, c)
		if err != nil {
			level.Error(r.logger).Log("event", "case error", "case", c.Name(), "line", c.Line, "err", err)
			return report, &CaseError{Case: c, Err: err}
		}

		report.Results = append(report.Results, res)

		if res.Passed() {
			level.Info(r.logger).Log("event", "case passed", "case", c.Name(), "status", res.StatusCode)
			continue
		}

		level.Info(r.logger).Log("event", "case failed", "case", c.Name(), "status", res.StatusCode, "failure", res.Failure)
		if r.failFast {
			report.Stopped = true
			break
		}
	}

	return report, nil
}

func (r *Runner) runCase(ctx context.Context, c spec.Case) (Result, error) {
	res := Result{
		Case:  c,
		Curl:  executor.Curl(c, r.exec.Protocol(c)),
		Start: time.Now(),
	}

	level.Debug(r.logger).Log("event", "case started", "case", c.Name(), "method", c.Method, "url", c.URL)

	resp, err := r.exec.Do(ctx, c)
	if err != nil {
		return Result{}, err
	}

	res.StatusCode = resp.StatusCode
	res.Proto = resp.Proto
	res.Header = resp.Header
	res.Body = resp.Raw

	if res.Failure, err = r.validator.Validate(c, resp); err != nil {
		return Result{}, err
	}

	res.Stop = time.Now()

	return res, nil
}
