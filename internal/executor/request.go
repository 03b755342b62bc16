package executor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/alessio/shellescape"

	"github.com/robotomize/go-httpspec/internal/spec"
)

const defaultPort = "80"

// Addr is the host:port dialed for u.
func Addr(u *url.URL) string {
	port := u.Port()
	if port == "" {
		port = defaultPort
	}

	return net.JoinHostPort(u.Hostname(), port)
}

// NewRequest builds the outgoing request for c. Parsed headers are forwarded in
// order, duplicates included. A parsed Host header replaces the one taken from
// the url authority.
func NewRequest(ctx context.Context, c spec.Case) (*http.Request, error) {
	var body io.Reader
	if c.Body != nil {
		body = bytes.NewReader(c.Body)
	}

	req, err := http.NewRequestWithContext(ctx, c.Method, c.URL.String(), body)
	if err != nil {
		return nil, fmt.Errorf("http.NewRequestWithContext: %w", err)
	}

	req.Host = c.URL.Host
	for _, h := range c.Headers {
		if strings.EqualFold(h.Name, "Host") {
			req.Host = h.Value
			continue
		}

		req.Header.Add(h.Name, h.Value)
	}

	if c.Body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

// Curl renders c as a shell command reproducing the request.
func Curl(c spec.Case, proto Protocol) string {
	var b commandBuilder
	b.add("curl", "-X", c.Method)

	switch proto {
	case ProtocolH2C:
		b.add("--http2-prior-knowledge")
	default:
		b.add("--http1.1")
	}

	for _, h := range c.Headers {
		b.add("-H", h.Name+": "+h.Value)
	}

	if c.Body != nil {
		b.add("--data", string(c.Body))
	}

	b.add(c.URL.String())

	return b.String()
}

type commandBuilder []string

func (b *commandBuilder) add(args ...string) {
	for _, a := range args {
		*b = append(*b, shellescape.Quote(a))
	}
}

func (b commandBuilder) String() string {
	return strings.Join(b, " ")
}
