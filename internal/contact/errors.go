package contact

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrDelivery wraps every relay failure returned by Service.Submit.
var ErrDelivery = errors.New("contact: delivery failed")

// ValidationError lists the fields of a submission that failed validation.
type ValidationError struct {
	fields []string
}

func (e *ValidationError) add(field string) { e.fields = append(e.fields, field) }

func (e *ValidationError) Error() string {
	return "contact: invalid " + strings.Join(e.Fields(), ", ")
}

// Fields returns the invalid field names, sorted.
func (e *ValidationError) Fields() []string {
	out := append([]string(nil), e.fields...)
	sort.Strings(out)
	return out
}

// Has reports whether field failed.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.fields {
		if f == field {
			return true
		}
	}
	return false
}

// MessageKey is the i18n key of the message shown next to field.
func MessageKey(field string) string { return "contact.error." + field }

// RelayError is a failed relay call. Status is zero when no response was received.
type RelayError struct {
	Status int
	Text   string
	Err    error
}

func (e *RelayError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("relay: %s", e.Text)
	}
	return fmt.Sprintf("relay: status %d: %s", e.Status, e.Text)
}

func (e *RelayError) Unwrap() error { return e.Err }
