package response

import (
	"encoding/json"
	"net/http"

	"hotelier/shared/constant"
	"hotelier/shared/failure"
	"hotelier/shared/logger"
)

// Error is the uniform error envelope. Name is a stable machine-readable
// failure name, Description a human-readable message, Errors the accumulated
// per-field validation messages (validation failures only).
type Error struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Errors      map[string][]string `json:"errors,omitempty"`
}

type Message struct {
	Message string `json:"message"`
}

// WithMessage sends a response with a simple text message
func WithMessage(writer http.ResponseWriter, code int, message string) {
	response(writer, code, Message{Message: message})
}

// WithJSON sends the payload as the response body. Entities and listings go
// out unwrapped.
func WithJSON(writer http.ResponseWriter, code int, jsonPayload interface{}) {
	response(writer, code, jsonPayload)
}

// WithNoContent sends an empty 204 response.
func WithNoContent(writer http.ResponseWriter) {
	writer.WriteHeader(http.StatusNoContent)
}

// WithError sends the error envelope for err. Internal errors are masked so
// provider details never reach the client.
func WithError(writer http.ResponseWriter, err error) {
	code := failure.GetCode(err)

	description := err.Error()
	if code == http.StatusInternalServerError {
		description = "an internal error occurred"
	}

	response(writer, code, Error{
		Name:        failure.GetName(err),
		Description: description,
		Errors:      failure.GetFields(err),
	})
}

// WithRequestLimitExceeded sends a default response for when the request limit is exceeded
func WithRequestLimitExceeded(writer http.ResponseWriter) {
	WithMessage(writer, http.StatusTooManyRequests, constant.ResponseErrorRequestLimitExceeded)
}

// WithPreparingShutdown sends a default response for when the server is preparing to shut down
func WithPreparingShutdown(writer http.ResponseWriter) {
	WithMessage(writer, http.StatusServiceUnavailable, constant.ResponseErrorPrepareShutdown)
}

// WithUnhealthy sends a default response for when the server is unhealthy
func WithUnhealthy(writer http.ResponseWriter) {
	WithMessage(writer, http.StatusServiceUnavailable, constant.ResponseErrorUnhealthy)
}

func response(writer http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		logger.ErrorWithStack(err)

		return
	}

	writer.Header().Set(constant.RequestHeaderContentType, constant.ContentTypeJSON)
	writer.WriteHeader(code)
	_, err = writer.Write(response)

	if err != nil {
		logger.ErrorWithStack(err)
	}
}
