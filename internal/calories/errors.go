package calories

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// ErrUnauthorized means the backend rejected the bearer credential. Callers should
// end the session.
var ErrUnauthorized = errors.New("unauthorized")

// ErrNoToken is returned when a successful auth response carries no token.
var ErrNoToken = errors.New("auth response did not include a token")

// ErrorKind classifies a non-2xx backend answer.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindAuth       ErrorKind = "auth"
	KindNotFound   ErrorKind = "not_found"
	KindServer     ErrorKind = "server"
	KindOther      ErrorKind = "other"
)

// ServiceError is a well-formed backend response with an error status, translated
// into a message fit for the user.
type ServiceError struct {
	Kind    ErrorKind
	Status  int
	Message string
}

func (e *ServiceError) Error() string {
	return e.Message
}

func kindFor(status int) ErrorKind {
	switch {
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return KindValidation
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuth
	case status == http.StatusNotFound:
		return KindNotFound
	case status >= 500:
		return KindServer
	default:
		return KindOther
	}
}

// backendMessage reads {"message": ...} (or {"error": ...}) from resp, returning "" when
// the body is not JSON or carries neither field. It closes the body.
func backendMessage(resp *http.Response) string {
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return ""
	}
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	if body.Message != "" {
		return body.Message
	}
	return body.Error
}

func orDefault(msg, fallback string) string {
	if msg == "" {
		return fallback
	}
	return msg
}
