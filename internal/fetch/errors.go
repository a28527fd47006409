package fetch

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrMissingCredentials is returned before any request when region or token
// is unset.
var ErrMissingCredentials = errors.New("missing auth token")

// TransportError means the endpoint was unreachable or answered with a
// non-2xx status.
type TransportError struct {
	Endpoint string
	Status   int
	Err      error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("error making request to %s: %v", e.Endpoint, e.Err)
	}
	return fmt.Sprintf("error making request to %s: unexpected status %d", e.Endpoint, e.Status)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ReasonInvalidJSON is the MalformedResponseError reason for a body that is
// not JSON at all.
const ReasonInvalidJSON = "invalid JSON"

// MalformedResponseError means the body was not the expected JSON shape.
type MalformedResponseError struct {
	Endpoint string
	Reason   string
	Err      error
}

func (e *MalformedResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed response from %s: %s: %v", e.Endpoint, e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed response from %s: %s", e.Endpoint, e.Reason)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// RemoteRejectedError carries a non-zero retcode. Message is ready for display.
type RemoteRejectedError struct {
	Code    int
	Message string
}

func (e *RemoteRejectedError) Error() string {
	return e.Message
}

// prettyMessage upper-cases the first letter and appends a period.
func prettyMessage(msg string) string {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return "The server rejected the request."
	}
	r, size := utf8.DecodeRuneInString(msg)
	return string(unicode.ToUpper(r)) + msg[size:] + "."
}
