// Package workflow defines the failure taxonomy shared by the attendance and
// client-lifecycle engines.
package workflow

import "errors"

// Kind classifies an engine failure. Every kind is recoverable by retrying
// the triggering action.
type Kind string

const (
	LocationRequired       Kind = "location_required"
	TransportFailure       Kind = "transport_failure"
	InvalidStatus          Kind = "invalid_status"
	InvalidInteractionType Kind = "invalid_interaction_type"
	MissingRequiredField   Kind = "missing_required_field"
	DuplicateSubmission    Kind = "duplicate_submission"
)

// Sentinels for errors.Is comparisons. Matching is by Kind only.
var (
	ErrLocationRequired       = &Error{Kind: LocationRequired, Message: "location permission is required"}
	ErrTransportFailure       = &Error{Kind: TransportFailure, Message: "request failed"}
	ErrInvalidStatus          = &Error{Kind: InvalidStatus, Message: "invalid status"}
	ErrInvalidInteractionType = &Error{Kind: InvalidInteractionType, Message: "invalid interaction type"}
	ErrMissingRequiredField   = &Error{Kind: MissingRequiredField, Message: "please fill all required fields"}
	ErrDuplicateSubmission    = &Error{Kind: DuplicateSubmission, Message: "attendance already marked"}
)

// Error is a classified engine failure carrying a human-readable message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same Kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// New returns an error of the given kind. An empty message falls back to the
// kind's default message.
func New(kind Kind, message string, cause error) *Error {
	if message == "" {
		message = defaultMessage(kind)
	}
	return &Error{Kind: kind, Message: message, Err: cause}
}

// KindOf returns the Kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func defaultMessage(kind Kind) string {
	switch kind {
	case LocationRequired:
		return ErrLocationRequired.Message
	case TransportFailure:
		return ErrTransportFailure.Message
	case InvalidStatus:
		return ErrInvalidStatus.Message
	case InvalidInteractionType:
		return ErrInvalidInteractionType.Message
	case MissingRequiredField:
		return ErrMissingRequiredField.Message
	case DuplicateSubmission:
		return ErrDuplicateSubmission.Message
	default:
		return string(kind)
	}
}
