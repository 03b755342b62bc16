package executor

import (
	"errors"
	"fmt"
	"strings"
)

type Protocol string

const (
	ProtocolHTTP1 Protocol = "http1"
	// ProtocolH2C is HTTP/2 over cleartext with prior knowledge.
	ProtocolH2C Protocol = "h2c"
)

var ErrUnknownProtocol = errors.New("unknown protocol")

func ParseProtocol(s string) (Protocol, error) {
	switch p := Protocol(strings.ToLower(strings.TrimSpace(s))); p {
	case ProtocolHTTP1, ProtocolH2C:
		return p, nil
	case "":
		return ProtocolHTTP1, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownProtocol, s)
	}
}
