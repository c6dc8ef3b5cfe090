package persistence

import (
	"errors"
	"fmt"
	"net/http"

	"tontine-app/internal/domain/carnets"

	json "github.com/goccy/go-json"
)

// ErrorPayload is the body the remote API sends with non-2xx answers.
type ErrorPayload struct {
	Error   string          `json:"error"`
	Details json.RawMessage `json:"details,omitempty"`
}

// TransportError is any failure talking to the remote API: unreachable host,
// cancelled context or a non-2xx status. StatusCode is 0 when no answer came back.
type TransportError struct {
	Op         string
	StatusCode int
	Payload    *ErrorPayload
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Payload != nil && e.Payload.Error != "":
		return fmt.Sprintf("%s: remote answered %d: %s", e.Op, e.StatusCode, e.Payload.Error)
	default:
		return fmt.Sprintf("%s: remote answered %d", e.Op, e.StatusCode)
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// Is lets callers test a remote 404 against carnets.ErrNotFound.
func (e *TransportError) Is(target error) bool {
	return target == carnets.ErrNotFound && e.StatusCode == http.StatusNotFound
}

func AsTransportError(err error) (*TransportError, bool) {
	var te *TransportError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}
