package api

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure to get any response.
type ErrorKind string

// KindUnreachable covers refused connections, DNS failures and cross-origin rejections.
const KindUnreachable ErrorKind = "unreachable"

// ErrUnreachable matches every TransportError via errors.Is.
var ErrUnreachable = errors.New("backend unreachable")

// TransportError reports that no HTTP response was received.
type TransportError struct {
	Kind   ErrorKind
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("unable to reach the backend (%s %s): %v; check that the forwarder is running "+
		"and the backend allows requests from this origin", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() []error {
	return []error{ErrUnreachable, e.Err}
}
