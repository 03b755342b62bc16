package runner

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/robotomize/go-httpspec/internal/slice"
	"github.com/robotomize/go-httpspec/internal/spec"
)

// RegexFilters selects cases by name.
type RegexFilters struct {
	MustMatch    RegexList
	MustNotMatch RegexList
}

func (r RegexFilters) IsDefined() bool {
	return r.MustMatch.IsDefined() || r.MustNotMatch.IsDefined()
}

func (r RegexFilters) AsFilter(c spec.Case) bool {
	name := c.Name()
	return (!r.MustMatch.IsDefined() || r.MustMatch.AnyMatch(name)) &&
		!r.MustNotMatch.AnyMatch(name)
}

// RegexList is a repeatable --run/--skip flag value.
type RegexList struct {
	patterns []*regexp.Regexp
}

var _ pflag.Value = (*RegexList)(nil)

func (r *RegexList) String() string {
	quoted := slice.Map(
		r.patterns, func(p *regexp.Regexp) string {
			return strconv.Quote(p.String())
		},
	)

	return strings.Join(quoted, " or ")
}

// Set compiles value and appends it to the list.
func (r *RegexList) Set(value string) error {
	rx, err := regexp.Compile(value)
	if err != nil {
		return fmt.Errorf("regexp.Compile: %w", err)
	}

	r.patterns = append(r.patterns, rx)

	return nil
}

func (r *RegexList) Type() string {
	return "regex"
}

// Patterns returns the source of every compiled regex.
func (r RegexList) Patterns() []string {
	return slice.Map(
		r.patterns, func(p *regexp.Regexp) string {
			return p.String()
		},
	)
}

func (r RegexList) IsDefined() bool {
	return len(r.patterns) > 0
}

// AnyMatch reports whether name matches one of the patterns.
func (r RegexList) AnyMatch(name string) bool {
	_, ok := slice.Find(
		r.patterns, func(p *regexp.Regexp) bool {
			return p.MatchString(name)
		},
	)

	return ok
}
