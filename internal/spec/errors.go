package spec

import (
	"errors"
	"fmt"
)

var (
	ErrFileExtension   = errors.New("expected file ending to be http")
	ErrDirective       = errors.New("unexpected line, expected '###'")
	ErrMalformedPair   = errors.New("malformed directive, expected 'key: value'")
	ErrInvalidID       = errors.New("id is not an unsigned integer")
	ErrRequestLine     = errors.New("malformed request line, expected 'METHOD URL [VERSION]'")
	ErrInvalidURL      = errors.New("url has no host")
	ErrMalformedHeader = errors.New("malformed header, expected 'Name: Value'")
	ErrBody            = errors.New("request body is not valid json")
)

// ParseError reports the spec file position of the first malformed block.
type ParseError struct {
	File string
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Text == "" {
		return fmt.Sprintf("%s:%d: %v", e.File, e.Line, e.Err)
	}

	return fmt.Sprintf("%s:%d: %v: %q", e.File, e.Line, e.Err, e.Text)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
