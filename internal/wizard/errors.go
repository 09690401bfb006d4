package wizard

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Field keys used in ValidationErrors.
const (
	FieldServiceID      = "serviceId"
	FieldProfessionalID = "professionalId"
	FieldDate           = "date"
	FieldTime           = "time"
	FieldClientName     = "clientName"
	FieldClientEmail    = "clientEmail"
	FieldClientPhone    = "clientPhone"
)

var (
	ErrWrongStep = errors.New("operation not allowed on the current step")
	ErrFinished  = errors.New("booking already completed")

	// ErrNoAppointment: the backend accepted the request but returned no appointment.
	ErrNoAppointment = errors.New("booking returned no appointment")
)

// ValidationErrors maps a field key to a message for the person filling the form.
// Validation never reaches the network.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, v[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (v ValidationErrors) Has(field string) bool {
	_, ok := v[field]
	return ok
}

// SubmitError is a failed submission. Message is safe to show as is.
type SubmitError struct {
	Message string
	Err     error
}

func (e *SubmitError) Error() string {
	return "submit booking: " + e.Message
}

func (e *SubmitError) Unwrap() error {
	return e.Err
}
