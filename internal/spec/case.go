package spec

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

const (
	KeyID         = "id"
	KeyStatus     = "status"
	KeyResultType = "result_type"
	KeyResultPath = "result_path"
)

// VersionHTTP11 is the only request-line version token that is recognized.
const VersionHTTP11 = "HTTP/1.1"

type ResultKind int

const (
	KindUnspecified ResultKind = iota
	KindJSON
	KindXML
)

func (k ResultKind) String() string {
	switch k {
	case KindJSON:
		return "json"
	case KindXML:
		return "xml"
	default:
		return "unspecified"
	}
}

func parseResultKind(s string) ResultKind {
	switch s {
	case "json":
		return KindJSON
	case "xml":
		return KindXML
	default:
		return KindUnspecified
	}
}

type Header struct {
	Name  string
	Value string
}

type ExpectedResult struct {
	Kind ResultKind
	Path string
}

// Case is one parsed block of a spec file. It is read-only after parsing.
type Case struct {
	File        string
	Line        int
	ID          ldvalue.OptionalInt
	Status      ldvalue.OptionalString
	Method      string
	URL         *url.URL
	HTTPVersion string
	Body        json.RawMessage
	Headers     []Header
	Directives  map[string]string
	Expected    ExpectedResult
}

// Name identifies the case in logs and reports.
func (c Case) Name() string {
	if id, ok := c.ID.Get(); ok {
		return fmt.Sprintf("#%d %s %s", id, c.Method, c.URL)
	}

	return fmt.Sprintf("line %s %s %s", strconv.Itoa(c.Line), c.Method, c.URL)
}
