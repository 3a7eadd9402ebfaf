// Package tracefail implements TraceableFailure, an error wrapper whose
// rendered traceback survives crossing a goroutine or process boundary: the
// trace is captured as a string at the raise site, then combined with a
// second trace wherever the failure is re-raised.
package tracefail

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// TraceableFailure is an error carrying a rendered traceback captured at the
// point it was raised, such that re-raising it in a different scope yields a
// combined stack showing both the origin frames and the re-raise site.
type TraceableFailure struct {
	// Message is the original error's message.
	Message string

	// OriginTraceback is the traceback rendered at the raise site, before
	// the failure crossed any scope boundary.
	OriginTraceback string

	cause error
}

// New captures err - which must not be nil; wrapping a nil failure is
// always a bug in the caller - together with the traceback of the calling
// goroutine at skip frames above the caller. If err already is (or wraps) a
// TraceableFailure, that failure is returned as-is: the traceback captured
// at the original raise site wins over a re-capture at the wrap site.
func New(err error, skip int) *TraceableFailure {
	if err == nil {
		panic("tracefail: refusing to wrap a nil error")
	}
	var existing *TraceableFailure
	if errors.As(err, &existing) {
		return existing
	}
	return &TraceableFailure{
		Message:         err.Error(),
		OriginTraceback: renderStack(skip + 1),
		cause:           err,
	}
}

// Error implements the error interface.
func (f *TraceableFailure) Error() string {
	return f.Message
}

// Unwrap exposes the original cause for errors.Is/errors.As.
func (f *TraceableFailure) Unwrap() error {
	return f.cause
}

// Reraise renders a combined traceback showing both the origin frames
// captured by New, and the current call site, and returns a new error
// carrying it. It does not mutate f, so it may be called more than once
// (CheckForExceptions may be asked repeatedly and must always yield the
// same failure).
func (f *TraceableFailure) Reraise() error {
	reraiseTrace := renderStack(1)
	return &reraisedFailure{
		TraceableFailure: f,
		combined: fmt.Sprintf(
			"%s\n\nThe above exception was the direct cause of the following traceback (re-raised):\n%s",
			f.OriginTraceback, reraiseTrace,
		),
	}
}

type reraisedFailure struct {
	*TraceableFailure
	combined string
}

func (r *reraisedFailure) Error() string {
	return r.Message
}

// CombinedTraceback returns the full rendered traceback: origin frames plus
// the re-raise site.
func (r *reraisedFailure) CombinedTraceback() string {
	return r.combined
}

func (r *reraisedFailure) Unwrap() error {
	return r.TraceableFailure
}

func renderStack(skip int) string {
	const maxFrames = 32
	pcs := make([]uintptr, maxFrames)
	n := runtime.Callers(skip+2, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	var sb strings.Builder
	sb.WriteString("Traceback (most recent call last):\n")
	for {
		frame, more := frames.Next()
		if frame.Function != "" {
			fmt.Fprintf(&sb, "  File %q, line %d, in %s\n", frame.File, frame.Line, frame.Function)
		}
		if !more {
			break
		}
	}
	return sb.String()
}
