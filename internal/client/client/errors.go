package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrBadResponse  = errors.New("bad response")
)

// APIError is a non-2xx answer from the backend. Detail carries the
// server's "detail" field when present.
//
// APIError unwraps to ErrUnauthorized, ErrNotFound or ErrUnavailable
// depending on the status code, so callers can match with errors.Is.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("server returned %d", e.StatusCode)
}

func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return ErrUnavailable
	default:
		return nil
	}
}

type errorResponse struct {
	Detail json.RawMessage `json:"detail"`
}

type validationIssue struct {
	Msg string `json:"msg"`
}

// newAPIError decodes the "detail" field, which is either a string or a
// list of validation issues.
func newAPIError(status int, body []byte) *APIError {
	e := &APIError{StatusCode: status}

	var resp errorResponse
	if err := json.Unmarshal(body, &resp); err != nil || len(resp.Detail) == 0 {
		return e
	}

	var s string
	if err := json.Unmarshal(resp.Detail, &s); err == nil {
		e.Detail = s
		return e
	}

	var issues []validationIssue
	if err := json.Unmarshal(resp.Detail, &issues); err == nil {
		msgs := make([]string, 0, len(issues))
		for _, i := range issues {
			if i.Msg != "" {
				msgs = append(msgs, i.Msg)
			}
		}
		e.Detail = strings.Join(msgs, "; ")
	}
	return e
}
