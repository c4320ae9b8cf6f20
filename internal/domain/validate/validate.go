// Package validate holds the field-level error list shared by entity
// validation in the domain packages.
package validate

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// FieldError describes a single failed constraint on a named field.
type FieldError struct {
	Field   string
	Message string
}

// Errors is an ordered list of field errors. A non-empty list is returned as
// an error from Validate methods and mapped to a 400 response with every
// message included.
type Errors []FieldError

func (e Errors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	return "validation failed: " + strings.Join(e.Messages(), "; ")
}

// Messages returns the message of each field error in order.
func (e Errors) Messages() []string {
	out := make([]string, len(e))
	for i, fe := range e {
		out[i] = fe.Message
	}
	return out
}

// Add appends a field error.
func (e *Errors) Add(field, message string) {
	*e = append(*e, FieldError{Field: field, Message: message})
}

// Err returns e as an error, or nil when no constraint failed.
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// Required records message when value is blank.
func (e *Errors) Required(field, value, message string) bool {
	if strings.TrimSpace(value) == "" {
		e.Add(field, message)
		return false
	}
	return true
}

// Length checks the rune length of value against optional bounds; max <= 0
// disables the upper bound.
func (e *Errors) Length(field, value string, min, max int, minMsg, maxMsg string) {
	n := utf8.RuneCountInString(value)
	if n < min {
		e.Add(field, minMsg)
		return
	}
	if max > 0 && n > max {
		e.Add(field, maxMsg)
	}
}

// Match records message when value does not match re.
func (e *Errors) Match(field, value string, re *regexp.Regexp, message string) {
	if !re.MatchString(value) {
		e.Add(field, message)
	}
}
