package api

import (
	"errors"
	"fmt"
)

// GenericMessage is reported when the server fails without an error message.
const GenericMessage = "Something went wrong"

// RequestError is a response with a non-2xx status.
type RequestError struct {
	Status  int
	Message string // server supplied, or GenericMessage
}

func (e *RequestError) Error() string { return e.Message }

// TransportError is a failure to exchange with the server at all.
type TransportError struct {
	Method   string
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("cannot %s %s: %v", e.Method, e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// DecodeError is a response body that is not the expected JSON.
type DecodeError struct {
	Endpoint string
	Status   int
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("invalid response from %s (status %d): %v", e.Endpoint, e.Status, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Message returns the message to display to the user for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var rerr *RequestError
	if errors.As(err, &rerr) {
		return rerr.Message
	}
	return err.Error()
}

// IsUnauthorized reports whether err is a 401 response, the server
// rejected the session token.
func IsUnauthorized(err error) bool {
	var rerr *RequestError
	return errors.As(err, &rerr) && rerr.Status == 401
}
