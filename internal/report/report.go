// Package report turns a caught error into the structured summary that an
// error notification is built from.
package report

import (
	"fmt"
	"reflect"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// TimeLayout renders timestamps as YYYY-MM-DD HH:MM:SS.
const TimeLayout = "2006-01-02 15:04:05"

// Report is the structured summary of a single error occurrence.
type Report struct {
	ID         uuid.UUID
	Kind       string
	Message    string
	OccurredAt time.Time
	Context    string
	StackTrace string
}

// Kinder lets an error name its own kind instead of its Go type.
type Kinder interface {
	Kind() string
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

type causer interface {
	Cause() error
}

// New builds a report for err. The stack trace is taken from the error when
// it carries one, otherwise from the calling goroutine.
func New(err error, context string, now time.Time) *Report {
	r := &Report{
		ID:         uuid.New(),
		Kind:       KindOf(err),
		OccurredAt: now,
		Context:    context,
	}
	if err != nil {
		r.Message = err.Error()
	}
	r.StackTrace = stackOf(err)
	return r
}

// KindOf names the kind of err: the Kind() of the first error in the chain
// that reports one, else the type name of err once fmt and pkg/errors
// wrappers are peeled off.
func KindOf(err error) string {
	if err == nil {
		return "<nil>"
	}

	var k Kinder
	if errors.As(err, &k) {
		return k.Kind()
	}

	t := reflect.TypeOf(rootCause(err))
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" {
		return t.String()
	}
	return t.Name()
}

// wrapperPackages hold error types that only add a message or a stack to
// the error they wrap.
var wrapperPackages = map[string]bool{
	"fmt":                   true,
	"github.com/pkg/errors": true,
}

// rootCause peels wrapper errors off err until it reaches a concrete error.
func rootCause(err error) error {
	for {
		t := reflect.TypeOf(err)
		for t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		if !wrapperPackages[t.PkgPath()] {
			return err
		}

		var next error
		switch e := err.(type) {
		case causer:
			next = e.Cause()
		case interface{ Unwrap() error }:
			next = e.Unwrap()
		}
		if next == nil {
			return err
		}
		err = next
	}
}

// stackOf returns the trace recorded closest to where err originated.
func stackOf(err error) string {
	var trace string
	for e := err; e != nil; e = errors.Unwrap(e) {
		switch st := e.(type) {
		case *PanicError:
			return string(st.Stack)
		case stackTracer:
			trace = strings.TrimLeft(fmt.Sprintf("%+v", st.StackTrace()), "\n")
		}
	}
	if trace != "" {
		return trace
	}
	return string(debug.Stack())
}

// Timestamp formats OccurredAt with TimeLayout.
func (r *Report) Timestamp() string {
	return r.OccurredAt.Format(TimeLayout)
}

// HasContext reports whether the caller supplied any context.
func (r *Report) HasContext() bool {
	return r.Context != ""
}

// Summary is the short human-readable description used in alert bodies.
func (r *Report) Summary() string {
	return fmt.Sprintf("Error Type: %s\nError Message: %s\nTime: %s", r.Kind, r.Message, r.Timestamp())
}
