package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
)

const indent = "      "

type ConsoleOption func(*Console)

// WithNoColor turns off escape sequences regardless of the terminal.
func WithNoColor() ConsoleOption {
	return func(c *Console) {
		c.noColor = true
	}
}

// WithColor forces escape sequences even when w is not a terminal.
func WithColor() ConsoleOption {
	return func(c *Console) {
		c.forceColor = true
	}
}

// WithCurl prints the reproducing curl command under every failed case.
func WithCurl() ConsoleOption {
	return func(c *Console) {
		c.curl = true
	}
}

func NewConsole(w io.Writer, opts ...ConsoleOption) *Console {
	c := &Console{w: w}
	for _, o := range opts {
		o(c)
	}

	c.colors = map[string]*color.Color{
		OutcomePass:  color.New(color.FgGreen),
		OutcomeFail:  color.New(color.FgRed),
		OutcomeSkip:  color.New(color.FgYellow),
		OutcomeError: color.New(color.FgRed, color.Bold),
	}
	c.faint = color.New(color.Faint)

	for _, col := range append(c.palette(), c.faint) {
		switch {
		case c.noColor:
			col.DisableColor()
		case c.forceColor:
			col.EnableColor()
		}
	}

	return c
}

type Console struct {
	w          io.Writer
	noColor    bool
	forceColor bool
	curl       bool
	colors     map[string]*color.Color
	faint      *color.Color
}

func (c *Console) palette() []*color.Color {
	list := make([]*color.Color, 0, len(c.colors))
	for _, col := range c.colors {
		list = append(list, col)
	}

	return list
}

// Print writes one line per row followed by a summary line and returns the
// summary.
func (c *Console) Print(rows []Row, elapsed time.Duration) (Summary, error) {
	for _, r := range rows {
		if err := c.printRow(r); err != nil {
			return Summary{}, err
		}
	}

	s := Summarize(rows)
	outcome := OutcomePass
	if !s.OK() {
		outcome = OutcomeFail
	}

	if _, err := c.colors[outcome].Fprintf(
		c.w, "\n%d cases: %d passed, %d failed, %d skipped, %d errors (%s)\n",
		s.Total, s.Passed, s.Failed, s.Skipped, s.Errored, elapsed.Round(time.Millisecond),
	); err != nil {
		return Summary{}, fmt.Errorf("print summary: %w", err)
	}

	return s, nil
}

func (c *Console) printRow(r Row) error {
	var b strings.Builder

	b.WriteString(c.colors[r.Outcome].Sprintf("%-5s", r.Outcome))
	b.WriteString(" ")
	b.WriteString(r.Name)
	if r.Outcome == OutcomePass || r.Outcome == OutcomeFail {
		b.WriteString(c.faint.Sprintf(" (%s)", r.Duration.Round(time.Millisecond)))
	}
	b.WriteString("\n")

	if r.Message != "" {
		b.WriteString(indent)
		b.WriteString(fmt.Sprintf("%s:%d: %s", r.File, r.Line, r.Message))
		b.WriteString("\n")
	}

	if c.curl && r.Outcome == OutcomeFail && r.Curl != "" {
		b.WriteString(indent)
		b.WriteString(c.faint.Sprint(r.Curl))
		b.WriteString("\n")
	}

	if _, err := io.WriteString(c.w, b.String()); err != nil {
		return fmt.Errorf("print row: %w", err)
	}

	return nil
}
