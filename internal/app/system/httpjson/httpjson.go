// Package httpjson is the JSON surface shared by all API handlers: response
// writing, request decoding, and the structured {code, message} error
// envelope clients pattern-match on.
package httpjson

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// Error codes surfaced to clients. Handlers map internal errors onto these;
// clients only ever see the envelope, never raw store errors.
const (
	CodeInvalidArgument    = "invalid-argument"
	CodeUnauthenticated    = "unauthenticated"
	CodePermissionDenied   = "permission-denied"
	CodeNotFound           = "not-found"
	CodeAlreadyExists      = "already-exists"
	CodeFailedPrecondition = "failed-precondition"
	CodeInvalidCode        = "invalid-code"
	CodeTooManyRequests    = "too-many-requests"
	CodeUnavailable        = "unavailable"
	CodeInternal           = "internal"
)

// ErrorBody is the wire shape of an API error.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Error ErrorBody `json:"error"`
}

// maxBodyBytes caps request bodies; the API only ever carries small JSON
// documents.
const maxBodyBytes = 1 << 20

// Write encodes v as JSON with the given status.
func Write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// WriteError writes the structured error envelope. The HTTP status is
// derived from the code.
func WriteError(w http.ResponseWriter, code, message string) {
	Write(w, StatusForCode(code), errorEnvelope{Error: ErrorBody{Code: code, Message: message}})
}

// StatusForCode maps an API error code to its HTTP status.
func StatusForCode(code string) int {
	switch code {
	case CodeInvalidArgument, CodeInvalidCode:
		return http.StatusBadRequest
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodePermissionDenied:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeAlreadyExists:
		return http.StatusConflict
	case CodeFailedPrecondition:
		return http.StatusPreconditionFailed
	case CodeTooManyRequests:
		return http.StatusTooManyRequests
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Decode reads the request body into v. It rejects oversized bodies and
// trailing garbage. Returns a user-presentable error message on failure.
func Decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return errors.New("invalid JSON body")
	}
	if dec.More() {
		return errors.New("unexpected data after JSON body")
	}
	return nil
}
