// Package logging builds the leveled logfmt logger shared by all components.
package logging

import (
	"io"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
)

func New(w io.Writer, verbose bool) log.Logger {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(w))

	allow := level.AllowInfo()
	if verbose {
		allow = level.AllowDebug()
	}

	logger = level.NewFilter(logger, allow)

	return log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)
}
