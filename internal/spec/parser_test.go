package spec

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/robotomize/go-httpspec/internal/fixture"
)

//go:embed testdata/items.http
var itemsSpec string

type stubResolver struct {
	byID map[int]string
}

func (s stubResolver) Lookup(id int) (string, error) {
	pth, ok := s.byID[id]
	if !ok {
		return "", fixture.ErrNoResult
	}

	return pth, nil
}

func (s stubResolver) Locate(pth string) (string, error) {
	return "/fixtures-root/" + pth, nil
}

func parse(t *testing.T, input string) ([]Case, error) {
	t.Helper()

	p := New(stubResolver{byID: map[int]string{2: "/fixtures-root/2.xml", 7: "/fixtures-root/7.json"}})

	return p.Parse(context.Background(), "test.http", strings.NewReader(input))
}

func TestParser_ParseItems(t *testing.T) {
	t.Parallel()

	cases, err := parse(t, itemsSpec)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if len(cases) != 3 {
		t.Fatalf("got: %d cases, want: %d", len(cases), 3)
	}

	type view struct {
		Line        int
		ID          int
		Status      string
		Method      string
		URL         string
		HTTPVersion string
		Body        string
		Headers     []Header
		Expected    ExpectedResult
	}

	expected := []view{
		{
			Line:        2,
			ID:          1,
			Status:      "200",
			Method:      "GET",
			URL:         "http://example.test/api/items",
			HTTPVersion: VersionHTTP11,
			Body:        `{"filter":"active"}`,
			Headers: []Header{
				{Name: "Accept", Value: "application/json"},
				{Name: "X-Trace", Value: "a"},
				{Name: "X-Trace", Value: "b"},
			},
			Expected: ExpectedResult{Kind: KindJSON, Path: "/fixtures-root/fixtures/1.json"},
		},
		{
			Line:     12,
			ID:       2,
			Method:   "POST",
			URL:      "http://example.test:8080/api/items",
			Body:     `{"name":"pen","tags":["a","b"]}`,
			Expected: ExpectedResult{Kind: KindXML, Path: "/fixtures-root/2.xml"},
		},
		{
			Line:     17,
			Status:   "204",
			Method:   "DELETE",
			URL:      "http://example.test/api/items/3",
			Expected: ExpectedResult{Kind: KindUnspecified, Path: "/fixtures-root/fixtures/empty.json"},
		},
	}

	for i, c := range cases {
		got := view{
			Line:        c.Line,
			ID:          c.ID.IntValue(),
			Status:      c.Status.StringValue(),
			Method:      c.Method,
			URL:         c.URL.String(),
			HTTPVersion: c.HTTPVersion,
			Body:        string(c.Body),
			Headers:     c.Headers,
			Expected:    c.Expected,
		}

		if diff := cmp.Diff(expected[i], got); diff != "" {
			t.Errorf("case %d mismatch (-want, +got):\n%s", i, diff)
		}

		if c.File != "test.http" {
			t.Errorf("got: %v, want: %v", c.File, "test.http")
		}
	}

	if got := cases[1].Directives["owner"]; got != "qa" {
		t.Errorf("got: %v, want: %v", got, "qa")
	}

	if cases[1].Status.IsDefined() || cases[2].ID.IsDefined() {
		t.Errorf("got: status %v id %v, want: undefined", cases[1].Status, cases[2].ID)
	}

	if cases[1].Headers != nil || cases[2].Headers != nil {
		t.Errorf("got: headers %v %v, want: nil", cases[1].Headers, cases[2].Headers)
	}

	if cases[2].Body != nil {
		t.Errorf("got: %s, want: nil body", cases[2].Body)
	}

	var body map[string]any
	if err := json.Unmarshal(cases[0].Body, &body); err != nil {
		t.Errorf("json.Unmarshal: %v", err)
	}
}

func TestParser_RequestLineRoundTrip(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		method string
		url    string
	}{
		{method: "GET", url: "http://localhost/"},
		{method: "PUT", url: "http://127.0.0.1:9000/a/b?x=1&y=2"},
		{method: "PATCH", url: "http://api.example.test/v1/users/42#frag"},
		{method: "OPTIONS", url: "http://[::1]:8080/health"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(
			tc.method, func(t *testing.T) {
				t.Parallel()

				cases, err := parse(t, "### id: 7\n"+tc.method+" "+tc.url+"\n")
				if err != nil {
					t.Fatalf("Parse: %v", err)
				}

				if diff := cmp.Diff(tc.method, cases[0].Method); diff != "" {
					t.Errorf("mismatch (-want, +got):\n%s", diff)
				}

				if diff := cmp.Diff(tc.url, cases[0].URL.String()); diff != "" {
					t.Errorf("mismatch (-want, +got):\n%s", diff)
				}
			},
		)
	}
}

func TestParser_Errors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name  string
		input string
		err   error
		line  int
	}{
		{
			name:  "test_missing_marker",
			input: "GET http://example.test/\n",
			err:   ErrDirective,
			line:  1,
		},
		{
			name:  "test_hash_without_space",
			input: "#note\n### id: 7\nGET http://example.test/\n",
			err:   ErrDirective,
			line:  1,
		},
		{
			name:  "test_pair_without_colon",
			input: "### id: 7, strict\nGET http://example.test/\n",
			err:   ErrMalformedPair,
			line:  1,
		},
		{
			name:  "test_non_numeric_id",
			input: "# comment\n### id: seven\nGET http://example.test/\n",
			err:   ErrInvalidID,
			line:  2,
		},
		{
			name:  "test_negative_id",
			input: "### id: -1\nGET http://example.test/\n",
			err:   ErrInvalidID,
			line:  1,
		},
		{
			name:  "test_missing_request_line",
			input: "### id: 7\n",
			err:   ErrRequestLine,
			line:  1,
		},
		{
			name:  "test_request_line_without_url",
			input: "### id: 7\nGET\n",
			err:   ErrRequestLine,
			line:  2,
		},
		{
			name:  "test_relative_url",
			input: "### id: 7\nGET /api/items\n",
			err:   ErrInvalidURL,
			line:  2,
		},
		{
			name:  "test_header_without_colon",
			input: "### id: 7\nGET http://example.test/\nAccept: */*\nbroken header\n\n",
			err:   ErrMalformedHeader,
			line:  4,
		},
		{
			name:  "test_invalid_body",
			input: "### id: 7\nGET http://example.test/\n\n{\"a\":\n",
			err:   ErrBody,
			line:  4,
		},
		{
			name:  "test_two_documents",
			input: "### id: 7\nGET http://example.test/\n\n{}\n{}\n",
			err:   ErrBody,
			line:  4,
		},
		{
			name:  "test_no_result",
			input: "### status: 200\nGET http://example.test/\n",
			err:   fixture.ErrNoResult,
			line:  1,
		},
		{
			name:  "test_unknown_id",
			input: "### id: 3\nGET http://example.test/\n",
			err:   fixture.ErrNoResult,
			line:  1,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(
			tc.name, func(t *testing.T) {
				t.Parallel()

				_, err := parse(t, tc.input)
				if !errors.Is(err, tc.err) {
					t.Fatalf("got: %v, want: %v", err, tc.err)
				}

				var perr *ParseError
				if !errors.As(err, &perr) {
					t.Fatalf("got: %T, want: *ParseError", err)
				}

				if perr.Line != tc.line {
					t.Errorf("got: line %d, want: line %d", perr.Line, tc.line)
				}

				if perr.File != "test.http" {
					t.Errorf("got: %v, want: %v", perr.File, "test.http")
				}
			},
		)
	}
}

func TestParser_BlocksWithoutBlankLine(t *testing.T) {
	t.Parallel()

	input := strings.Join(
		[]string{
			"### id: 7",
			"GET http://example.test/a",
			"Accept: application/json",
			"### id: 7",
			"GET http://example.test/b",
			"",
			"",
			"",
			"### id: 7, result_type: json",
			"GET http://example.test/c",
		}, "\n",
	)

	cases, err := parse(t, input)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if len(cases) != 3 {
		t.Fatalf("got: %d cases, want: %d", len(cases), 3)
	}

	if diff := cmp.Diff([]Header{{Name: "Accept", Value: "application/json"}}, cases[0].Headers); diff != "" {
		t.Errorf("mismatch (-want, +got):\n%s", diff)
	}

	if cases[1].Body != nil {
		t.Errorf("got: %s, want: nil body", cases[1].Body)
	}

	if got := []string{cases[0].URL.Path, cases[1].URL.Path, cases[2].URL.Path}; !cmp.Equal(got, []string{"/a", "/b", "/c"}) {
		t.Errorf("got: %v", got)
	}
}

func TestParser_HeaderValueWithColon(t *testing.T) {
	t.Parallel()

	cases, err := parse(t, "### id: 7\nGET http://example.test/\nReferer: http://other.test:81/x\n\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	expected := []Header{{Name: "Referer", Value: "http://other.test:81/x"}}
	if diff := cmp.Diff(expected, cases[0].Headers); diff != "" {
		t.Errorf("mismatch (-want, +got):\n%s", diff)
	}
}

func TestParser_ContextCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(stubResolver{}).Parse(ctx, "test.http", strings.NewReader(itemsSpec))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got: %v, want: %v", err, context.Canceled)
	}
}

func TestParseFile(t *testing.T) {
	t.Parallel()

	t.Run(
		"test_implicit_fixture_by_id", func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			writeFile(t, filepath.Join(dir, "7.json"), `{"a":1}`)
			pth := filepath.Join(dir, "api.http")
			writeFile(t, pth, "### id: 7\nGET http://example.test/items\n")

			cases, err := ParseFile(context.Background(), pth)
			if err != nil {
				t.Fatalf("ParseFile: %v", err)
			}

			if diff := cmp.Diff(filepath.Join(dir, "7.json"), cases[0].Expected.Path); diff != "" {
				t.Errorf("mismatch (-want, +got):\n%s", diff)
			}
		},
	)

	t.Run(
		"test_explicit_fixture_relative_to_spec", func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			writeFile(t, filepath.Join(dir, "f.json"), `{"a":1}`)
			pth := filepath.Join(dir, "api.http")
			writeFile(t, pth, "### result_type: json, result_path: f.json\nGET http://example.test/items\n")

			cases, err := ParseFile(context.Background(), pth)
			if err != nil {
				t.Fatalf("ParseFile: %v", err)
			}

			if diff := cmp.Diff(ExpectedResult{Kind: KindJSON, Path: filepath.Join(dir, "f.json")}, cases[0].Expected); diff != "" {
				t.Errorf("mismatch (-want, +got):\n%s", diff)
			}
		},
	)

	t.Run(
		"test_no_result_defined", func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			pth := filepath.Join(dir, "api.http")
			writeFile(t, pth, "### status: 200\nGET http://example.test/items\n")

			_, err := ParseFile(context.Background(), pth)
			if !errors.Is(err, fixture.ErrNoResult) {
				t.Fatalf("got: %v, want: %v", err, fixture.ErrNoResult)
			}

			if !strings.Contains(err.Error(), "no output result is defined") {
				t.Errorf("got: %v", err)
			}
		},
	)

	t.Run(
		"test_missing_explicit_fixture", func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			pth := filepath.Join(dir, "api.http")
			writeFile(t, pth, "### result_path: missing.json\nGET http://example.test/items\n")

			if _, err := ParseFile(context.Background(), pth); !errors.Is(err, fixture.ErrNoResult) {
				t.Errorf("got: %v, want: %v", err, fixture.ErrNoResult)
			}
		},
	)

	t.Run(
		"test_wrong_extension", func(t *testing.T) {
			t.Parallel()

			if _, err := ParseFile(context.Background(), "api.txt"); !errors.Is(err, ErrFileExtension) {
				t.Errorf("got: %v, want: %v", err, ErrFileExtension)
			}
		},
	)

	t.Run(
		"test_missing_file", func(t *testing.T) {
			t.Parallel()

			_, err := ParseFile(context.Background(), filepath.Join(t.TempDir(), "absent.http"))
			if !errors.Is(err, os.ErrNotExist) {
				t.Errorf("got: %v, want: %v", err, os.ErrNotExist)
			}
		},
	)
}

func TestCase_Name(t *testing.T) {
	t.Parallel()

	cases, err := parse(t, "### id: 7\nGET http://example.test/a\n### result_path: x.json\nPOST http://example.test/b\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if diff := cmp.Diff("#7 GET http://example.test/a", cases[0].Name()); diff != "" {
		t.Errorf("mismatch (-want, +got):\n%s", diff)
	}

	if diff := cmp.Diff("line 3 POST http://example.test/b", cases[1].Name()); diff != "" {
		t.Errorf("mismatch (-want, +got):\n%s", diff)
	}
}

func writeFile(t *testing.T, pth, content string) {
	t.Helper()

	if err := os.WriteFile(pth, []byte(content), 0o644); err != nil {
		t.Fatalf("os.WriteFile: %v", err)
	}
}
