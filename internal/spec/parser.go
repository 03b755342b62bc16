package spec

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"

	"github.com/robotomize/go-httpspec/internal/fixture"
	ifs "github.com/robotomize/go-httpspec/internal/fs"
	"github.com/robotomize/go-httpspec/internal/slice"
)

const (
	Extension = ".http"

	directiveMarker = "###"
	commentMarker   = "# "
	blockEnd        = "#"
	maxLineSize     = 4 << 20
)

type FixtureResolver interface {
	Lookup(id int) (string, error)
	Locate(pth string) (string, error)
}

func New(resolver FixtureResolver) *Parser {
	return &Parser{resolver: resolver}
}

type Parser struct {
	resolver FixtureResolver
}

// ParseFile parses the spec file at pth. Fixtures are resolved against the
// directory holding the file.
func ParseFile(ctx context.Context, pth string) ([]Case, error) {
	if filepath.Ext(pth) != Extension {
		return nil, fmt.Errorf("%w: %s", ErrFileExtension, pth)
	}

	file, err := os.Open(pth)
	if err != nil {
		return nil, fmt.Errorf("os.Open: %w", err)
	}

	defer file.Close()

	return New(fixture.New(ifs.New(filepath.Dir(pth)))).Parse(ctx, pth, file)
}

// Parse reads every block from r. name is only used in error positions.
func (p *Parser) Parse(ctx context.Context, name string, r io.Reader) ([]Case, error) {
	lines, err := readLines(r)
	if err != nil {
		return nil, fmt.Errorf("readLines: %w", err)
	}

	cur := &cursor{lines: lines}

	var cases []Case
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		line, ok := cur.next()
		if !ok {
			break
		}

		if line == "" || strings.HasPrefix(line, commentMarker) {
			continue
		}

		c, err := p.parseBlock(cur, line)
		if err != nil {
			var perr *ParseError
			if errors.As(err, &perr) {
				perr.File = name
			}
			return nil, err
		}

		c.File = name
		cases = append(cases, c)
	}

	return cases, nil
}

func (p *Parser) parseBlock(cur *cursor, line string) (Case, error) {
	start := cur.line()
	if !strings.HasPrefix(line, directiveMarker) {
		return Case{}, &ParseError{Line: start, Text: line, Err: ErrDirective}
	}

	directives, err := parseDirectives(strings.TrimPrefix(line, directiveMarker))
	if err != nil {
		return Case{}, &ParseError{Line: start, Text: line, Err: err}
	}

	c := Case{
		Line:       start,
		Directives: directives,
	}

	if v, ok := directives[KeyID]; ok {
		id, err := strconv.ParseUint(v, 10, strconv.IntSize-1)
		if err != nil {
			return Case{}, &ParseError{Line: start, Text: line, Err: fmt.Errorf("%w: %v", ErrInvalidID, err)}
		}
		c.ID = ldvalue.NewOptionalInt(int(id))
	}

	if v, ok := directives[KeyStatus]; ok {
		c.Status = ldvalue.NewOptionalString(v)
	}

	reqLine, ok := cur.next()
	if !ok {
		return Case{}, &ParseError{Line: start, Err: fmt.Errorf("%w: unexpected end of file", ErrRequestLine)}
	}

	if c.Method, c.URL, c.HTTPVersion, err = parseRequestLine(reqLine); err != nil {
		return Case{}, &ParseError{Line: cur.line(), Text: reqLine, Err: err}
	}

	if c.Headers, err = parseHeaders(cur); err != nil {
		return Case{}, err
	}

	if c.Body, err = parseBody(cur); err != nil {
		return Case{}, err
	}

	c.Expected.Kind = parseResultKind(directives[KeyResultType])
	if c.Expected.Path, err = p.resolveResult(c, directives[KeyResultPath]); err != nil {
		return Case{}, &ParseError{Line: start, Text: line, Err: err}
	}

	return c, nil
}

func (p *Parser) resolveResult(c Case, declared string) (string, error) {
	if declared != "" {
		pth, err := p.resolver.Locate(declared)
		if err != nil {
			return "", fmt.Errorf("%w: %v", fixture.ErrNoResult, err)
		}

		return pth, nil
	}

	id, ok := c.ID.Get()
	if !ok {
		return "", fixture.ErrNoResult
	}

	return p.resolver.Lookup(id)
}

// parseDirectives splits "k: v, k: v". Later keys override earlier ones.
func parseDirectives(s string) (map[string]string, error) {
	pairs := slice.Filter(
		slice.Map(strings.Split(s, ","), strings.TrimSpace), func(v string) bool {
			return len(v) > 0
		},
	)

	directives := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, ":")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: %q", ErrMalformedPair, pair)
		}

		directives[key] = strings.TrimSpace(value)
	}

	return directives, nil
}

func parseRequestLine(line string) (string, *url.URL, string, error) {
	tokens := strings.Fields(line)
	if len(tokens) < 2 {
		return "", nil, "", ErrRequestLine
	}

	u, err := url.Parse(tokens[1])
	if err != nil {
		return "", nil, "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	if u.Host == "" || u.Hostname() == "" {
		return "", nil, "", ErrInvalidURL
	}

	var version string
	if len(tokens) > 2 && tokens[2] == VersionHTTP11 {
		version = VersionHTTP11
	}

	return tokens[0], u, version, nil
}

// parseHeaders consumes header lines up to and including the terminating blank
// line. A nil result means the block declared no headers.
func parseHeaders(cur *cursor) ([]Header, error) {
	var headers []Header
	for {
		line, ok := cur.peek()
		if !ok || strings.HasPrefix(line, blockEnd) {
			return headers, nil
		}

		cur.next()
		if line == "" {
			return headers, nil
		}

		name, value, ok := strings.Cut(line, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, &ParseError{Line: cur.line(), Text: line, Err: ErrMalformedHeader}
		}

		headers = append(headers, Header{Name: name, Value: strings.TrimSpace(value)})
	}
}

// parseBody joins the remaining block lines without separators and validates
// them as a single json document.
func parseBody(cur *cursor) (json.RawMessage, error) {
	var (
		raw   strings.Builder
		start int
	)

	for {
		line, ok := cur.peek()
		if !ok || strings.HasPrefix(line, blockEnd) {
			break
		}

		cur.next()
		if start == 0 && line != "" {
			start = cur.line()
		}
		raw.WriteString(line)
	}

	if start == 0 {
		return nil, nil
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(raw.String())); err != nil {
		return nil, &ParseError{Line: start, Err: fmt.Errorf("%w: %v", ErrBody, err)}
	}

	return buf.Bytes(), nil
}

func readLines(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, strings.TrimSpace(scanner.Text()))
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("bufio.Scanner: %w", err)
	}

	return lines, nil
}

type cursor struct {
	lines []string
	pos   int
}

func (c *cursor) next() (string, bool) {
	line, ok := c.peek()
	if ok {
		c.pos++
	}

	return line, ok
}

func (c *cursor) peek() (string, bool) {
	if c.pos >= len(c.lines) {
		return "", false
	}

	return c.lines[c.pos], true
}

// line is the 1-based number of the last consumed line.
func (c *cursor) line() int {
	return c.pos
}
