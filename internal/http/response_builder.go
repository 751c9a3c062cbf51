// Package http exposes the ledger, session and aggregation services as a
// JSON API.
//
// This file implements the builder used by every handler to write JSON
// bodies and the error envelope.

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"fintrack/internal/core"
)

// Error codes carried in the error envelope.
const (
	CodeBadRequest      = "bad_request"
	CodeUnauthenticated = "unauthenticated"
	CodeRateLimited     = "rate_limited"
	CodeInternal        = "internal"
)

// ErrorBody is the JSON shape of every failed response.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	payload    any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Data sets the value encoded as the response body. A nil payload writes
// no body.
func (b *JSONResponseBuilder) Data(v any) *JSONResponseBuilder {
	b.payload = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.payload == nil {
		w.WriteHeader(b.statusCode)
		return
	}

	body, err := json.Marshal(b.payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"code":"internal","message":"encoding failed"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(body)
	_, _ = w.Write([]byte("\n"))
}

// ErrorResponse creates an error envelope with the given status.
func ErrorResponse(statusCode int, code, message string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(statusCode).
		Data(ErrorBody{Code: code, Message: message})
}

func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, CodeBadRequest, message)
}

func UnauthenticatedError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusUnauthorized, CodeUnauthenticated, "sign in required")
}

func TooManyRequestsError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusTooManyRequests, CodeRateLimited, "rate limit exceeded, try again later")
}

func InternalServerError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, CodeInternal, "something went wrong")
}

// ErrorFromDomain maps a service error onto status and envelope. Store
// failures never leak their cause.
func ErrorFromDomain(err error) *JSONResponseBuilder {
	if errors.Is(err, core.ErrNotAuthenticated) {
		return UnauthenticatedError()
	}
	kind := core.KindOf(err)
	switch kind {
	case core.NotFound:
		return ErrorResponse(http.StatusNotFound, string(kind), core.UserMessage(err))
	case core.AlreadyExists:
		return ErrorResponse(http.StatusConflict, string(kind), core.UserMessage(err))
	case core.InvalidInput:
		return ErrorResponse(http.StatusUnprocessableEntity, string(kind), core.UserMessage(err))
	case core.Persistence:
		return ErrorResponse(http.StatusInternalServerError, string(kind), "storage is unavailable")
	}
	return InternalServerError()
}
