package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"lms-exam-service/internal/domain"
	"lms-exam-service/internal/logging"
)

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

// writeFailure is also handed to the auth middleware so rejections share the envelope.
func writeFailure(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{Success: false, Message: msg, Error: http.StatusText(status)})
}

// writeError maps classified service errors onto status codes.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logging.FromContext(r.Context()).WithError(err).Error("request failed")
	}
	writeJSON(w, status, envelope{Success: false, Message: err.Error(), Error: http.StatusText(status)})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

const maxBodyBytes = 1 << 20

// decodeBody decodes a JSON request body into dst, reporting malformed input as a validation error.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errBadRequest("request body is required")
		}
		return errBadRequest("malformed JSON body")
	}
	return nil
}

type requestError string

func (e requestError) Error() string { return string(e) }
func (e requestError) Unwrap() error { return domain.ErrValidation }

func errBadRequest(msg string) error { return requestError(msg) }
