// Package executor performs one HTTP exchange per test case over a freshly
// dialed connection.
package executor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"golang.org/x/net/http2"
	"golang.org/x/sync/errgroup"

	"github.com/robotomize/go-httpspec/internal/jsonvalue"
	"github.com/robotomize/go-httpspec/internal/spec"
)

type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

type Response struct {
	StatusCode int
	Proto      string
	Header     http.Header
	Raw        []byte
	Body       any
}

type Option func(*Executor)

func WithProtocol(p Protocol) Option {
	return func(e *Executor) {
		e.protocol = p
	}
}

func WithDialer(d Dialer) Option {
	return func(e *Executor) {
		e.dialer = d
	}
}

func WithLogger(logger log.Logger) Option {
	return func(e *Executor) {
		e.logger = logger
	}
}

func New(opts ...Option) *Executor {
	e := &Executor{
		protocol: ProtocolHTTP1,
		dialer:   &net.Dialer{},
		logger:   log.NewNopLogger(),
	}

	for _, o := range opts {
		o(e)
	}

	return e
}

type Executor struct {
	protocol Protocol
	dialer   Dialer
	logger   log.Logger
}

// Protocol returns the wire protocol used for c. A request line declaring
// HTTP/1.1 pins the case to ProtocolHTTP1 whatever the executor default is.
func (e *Executor) Protocol(c spec.Case) Protocol {
	if c.HTTPVersion == spec.VersionHTTP11 {
		return ProtocolHTTP1
	}

	return e.protocol
}

// Do dials the case host, sends the request and decodes the json response body.
// The connection is closed before Do returns.
func (e *Executor) Do(ctx context.Context, c spec.Case) (Response, error) {
	req, err := NewRequest(ctx, c)
	if err != nil {
		return Response{}, err
	}

	addr := Addr(c.URL)
	proto := e.Protocol(c)

	level.Debug(e.logger).Log("event", "dial", "case", c.Name(), "addr", addr, "proto", proto)

	conn, err := e.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return Response{}, fmt.Errorf("dial %s: %w", addr, err)
	}

	defer conn.Close()

	stop := context.AfterFunc(
		ctx, func() {
			_ = conn.Close()
		},
	)
	defer stop()

	var resp Response
	switch proto {
	case ProtocolH2C:
		resp, err = exchangeH2C(conn, req)
	default:
		resp, err = exchangeHTTP1(conn, req)
	}

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Response{}, fmt.Errorf("%s %s: %w", c.Method, c.URL, ctxErr)
		}
		return Response{}, fmt.Errorf("%s %s: %w", c.Method, c.URL, err)
	}

	level.Debug(e.logger).Log(
		"event", "response", "case", c.Name(), "status", resp.StatusCode, "proto", resp.Proto, "bytes", len(resp.Raw),
	)

	if resp.Body, err = jsonvalue.Decode(resp.Raw); err != nil {
		return Response{}, fmt.Errorf("response body of %s %s: %w", c.Method, c.URL, err)
	}

	return resp, nil
}

// exchangeHTTP1 writes the request from a background goroutine while the
// caller blocks on the response. The connection is closed as soon as the
// response is read or has failed, which also releases a writer stuck on a
// peer that stopped reading.
func exchangeHTTP1(conn net.Conn, req *http.Request) (Response, error) {
	req.Close = true

	var wg errgroup.Group
	wg.Go(
		func() error {
			if err := req.Write(conn); err != nil {
				_ = conn.Close()
				return fmt.Errorf("http.Request Write: %w", err)
			}

			return nil
		},
	)

	resp, readErr := http.ReadResponse(bufio.NewReader(conn), req)
	var raw []byte
	if readErr == nil {
		raw, readErr = io.ReadAll(resp.Body)
		_ = resp.Body.Close()
	}

	_ = conn.Close()
	writeErr := wg.Wait()

	if readErr != nil {
		if writeErr != nil {
			return Response{}, fmt.Errorf("http.ReadResponse: %w (%v)", readErr, writeErr)
		}
		return Response{}, fmt.Errorf("http.ReadResponse: %w", readErr)
	}

	// A complete response wins over a write cut short by the peer answering early.
	return Response{StatusCode: resp.StatusCode, Proto: resp.Proto, Header: resp.Header, Raw: raw}, nil
}

// exchangeH2C performs the HTTP/2 connection preface on conn. The client
// connection services frames on its own read loop.
func exchangeH2C(conn net.Conn, req *http.Request) (Response, error) {
	t := &http2.Transport{AllowHTTP: true}

	cc, err := t.NewClientConn(conn)
	if err != nil {
		return Response{}, fmt.Errorf("http2 handshake: %w", err)
	}

	defer cc.Close()

	resp, err := cc.RoundTrip(req)
	if err != nil {
		return Response{}, fmt.Errorf("http2 RoundTrip: %w", err)
	}

	raw, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return Response{}, fmt.Errorf("io.ReadAll: %w", err)
	}

	return Response{StatusCode: resp.StatusCode, Proto: resp.Proto, Header: resp.Header, Raw: raw}, nil
}
