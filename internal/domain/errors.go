package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNetworkUnavailable means an upstream could not be reached at all
	ErrNetworkUnavailable = errors.New("network unavailable")

	ErrWeatherUnavailable   = errors.New("could not fetch weather data for this location")
	ErrClassificationServer = errors.New("classification server error")
	ErrPredictionServer     = errors.New("failed to get a prediction, please check the backend server")

	ErrGeolocationDenied    = errors.New("could not get location, please enable location services")
	ErrValidationIncomplete = errors.New("please fill in all fields")
	ErrNoImage              = errors.New("no image selected")
	ErrInvalidCoordinates   = errors.New("coordinates out of range")

	// ErrSuperseded is returned for a search that a newer query of the same session replaced
	ErrSuperseded = errors.New("superseded by a newer query")

	ErrSessionNotFound  = errors.New("session not found")
	ErrSoilRequired     = errors.New("analyze a soil image before choosing a location")
	ErrWizardIncomplete = errors.New("soil and weather data are both required")
	ErrWrongStep        = errors.New("action not available in the current wizard step")
)

// ServerRejectedError is a non-success answer from an upstream HTTP service.
// It unwraps to Kind so callers can match the failure class with errors.Is.
type ServerRejectedError struct {
	Service    string
	StatusCode int
	Reason     string
	Kind       error
}

func (e *ServerRejectedError) Error() string {
	msg := fmt.Sprintf("%s: upstream returned status %d", e.Service, e.StatusCode)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *ServerRejectedError) Unwrap() error {
	return e.Kind
}

// UserMessage is the text shown next to the control that failed
func (e *ServerRejectedError) UserMessage() string {
	if e.Kind == nil {
		return e.Error()
	}
	msg := fmt.Sprintf("%s (status %d)", e.Kind.Error(), e.StatusCode)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// ValidationError lists prediction form fields that could not be accepted
type ValidationError struct {
	Missing    []string
	Invalid    []string
	OutOfRange []string
}

func (e *ValidationError) Error() string {
	if len(e.Missing) > 0 {
		return "Please fill in all fields."
	}
	parts := make([]string, 0, 2)
	if len(e.Invalid) > 0 {
		parts = append(parts, "not a number: "+strings.Join(e.Invalid, ", "))
	}
	if len(e.OutOfRange) > 0 {
		parts = append(parts, "out of range: "+strings.Join(e.OutOfRange, ", "))
	}
	return "Invalid fields (" + strings.Join(parts, "; ") + ")"
}

func (e *ValidationError) Unwrap() error {
	if len(e.Missing) > 0 {
		return ErrValidationIncomplete
	}
	return nil
}

// UserMessage renders err for display next to the control that triggered it
func UserMessage(err error) string {
	var rejected *ServerRejectedError
	var invalid *ValidationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &invalid):
		return invalid.Error()
	case errors.As(err, &rejected):
		return rejected.UserMessage()
	case errors.Is(err, ErrNetworkUnavailable):
		return "The service could not be reached. Please try again."
	default:
		return err.Error()
	}
}
