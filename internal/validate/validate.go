// Package validate compares an executed response against the expected fixture.
package validate

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/robotomize/go-httpspec/internal/executor"
	"github.com/robotomize/go-httpspec/internal/jsonvalue"
	"github.com/robotomize/go-httpspec/internal/spec"
)

var ErrUnsupportedKind = errors.New("unsupported expected-result kind")

type FixtureLoader func(pth string) (any, error)

// LoadFixture reads and decodes a json fixture file.
func LoadFixture(pth string) (any, error) {
	data, err := os.ReadFile(pth)
	if err != nil {
		return nil, fmt.Errorf("os.ReadFile: %w", err)
	}

	v, err := jsonvalue.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("fixture %s: %w", pth, err)
	}

	return v, nil
}

type Option func(*Validator)

func WithFixtureLoader(loader FixtureLoader) Option {
	return func(v *Validator) {
		v.load = loader
	}
}

func New(opts ...Option) *Validator {
	v := &Validator{load: LoadFixture}
	for _, o := range opts {
		o(v)
	}

	return v
}

type Validator struct {
	load FixtureLoader
}

// Validate returns a failure message when resp does not meet the expectations
// of c. The error is reserved for problems that must stop the run: an
// unsupported result kind or an unreadable fixture.
func (v *Validator) Validate(c spec.Case, resp executor.Response) (string, error) {
	if c.Expected.Kind == spec.KindXML {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedKind, c.Expected.Kind)
	}

	want, err := v.load(c.Expected.Path)
	if err != nil {
		return "", err
	}

	if msg := Diff(want, resp.Body); msg != "" {
		return msg, nil
	}

	if status, ok := c.Status.Get(); ok {
		if got := strconv.Itoa(resp.StatusCode); status != got {
			return fmt.Sprintf("http status does not match: expected %s, got %s", status, got), nil
		}
	}

	return "", nil
}
