package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"specboard/internal/config"
	"specboard/internal/domain"
)

// ParseJSON decodes a single JSON value from the request body into dest.
// The body is capped at config.MaxRequestBodyBytes. Decode failures are
// returned as validation errors.
func ParseJSON(w http.ResponseWriter, r *http.Request, dest interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, config.MaxRequestBodyBytes)

	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(dest); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return &domain.ValidationError{Message: fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit)}
		}
		if errors.Is(err, io.EOF) {
			return &domain.ValidationError{Message: "request body is empty"}
		}
		return &domain.ValidationError{Message: fmt.Sprintf("invalid JSON: %v", err)}
	}
	if decoder.More() {
		return &domain.ValidationError{Message: "invalid JSON: unexpected data after value"}
	}

	return nil
}

// PathID returns the named path value, which must be a UUID.
func PathID(r *http.Request, name string) (string, error) {
	raw := r.PathValue(name)
	if raw == "" {
		return "", &domain.ValidationError{Message: fmt.Sprintf("%s is required", name)}
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", &domain.ValidationError{Message: fmt.Sprintf("%s must be a UUID", name)}
	}
	return id.String(), nil
}
