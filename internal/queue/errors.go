package queue

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrDoctorNotFound  = errors.New("doctor not found")
	ErrPatientNotFound = errors.New("patient not found")
	ErrEntryNotFound   = errors.New("queue entry not found")

	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrConsultationInProgress is reported when a queue already has an
	// IN_CONSULTATION entry. It matches ErrInvalidTransition under errors.Is.
	ErrConsultationInProgress = fmt.Errorf("%w: another consultation is in progress", ErrInvalidTransition)
)

type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindInvalidInput
	KindNotFound
	KindInvalidTransition
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindNotFound:
		return "not_found"
	case KindInvalidTransition:
		return "invalid_transition"
	}
	return "internal"
}

// Kind classifies an error returned by the Engine.
func Kind(err error) ErrorKind {
	switch {
	case IsNotFound(err):
		return KindNotFound
	case errors.Is(err, ErrInvalidTransition):
		return KindInvalidTransition
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	}
	return KindInternal
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrDoctorNotFound) ||
		errors.Is(err, ErrPatientNotFound) ||
		errors.Is(err, ErrEntryNotFound)
}
