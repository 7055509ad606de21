// Package workflow owns the waste report status state machine. Every caller
// that changes a report's status goes through Validate.
package workflow

import (
	"fmt"

	goerrors "github.com/goliatone/go-errors"

	"wte-api-server/internal/models"
)

const (
	textCodeUnknownStatus     = "UNKNOWN_REPORT_STATUS"
	textCodeInvalidTransition = "INVALID_REPORT_STATUS_TRANSITION"
)

// ErrUnknownStatus is returned for a status literal outside the enumeration.
var ErrUnknownStatus = goerrors.New("unknown status", goerrors.CategoryValidation).
	WithTextCode(textCodeUnknownStatus).
	WithCode(goerrors.CodeBadRequest)

// ErrInvalidTransition is returned when the requested move is not a forward step.
var ErrInvalidTransition = goerrors.New("invalid status transition", goerrors.CategoryValidation).
	WithTextCode(textCodeInvalidTransition).
	WithCode(goerrors.CodeBadRequest)

// Initial is the status every new report starts in.
const Initial = models.StatusReported

var transitions = map[models.Status]models.Status{
	models.StatusReported: models.StatusEnRoute,
	models.StatusEnRoute:  models.StatusCollected,
}

// Parse converts a status literal into a Status. Literals must match exactly,
// so case and surrounding whitespace both count.
func Parse(raw string) (models.Status, error) {
	s := models.Status(raw)
	if !Known(s) {
		return "", unknownStatus(s)
	}
	return s, nil
}

// unknownStatus and invalidTransition wrap the sentinels so errors.Is keeps
// matching while the message names the offending values.
func unknownStatus(s models.Status) error {
	return goerrors.Wrap(ErrUnknownStatus, goerrors.CategoryValidation, fmt.Sprintf("unknown status %q", s)).
		WithTextCode(textCodeUnknownStatus).
		WithCode(goerrors.CodeBadRequest).
		WithMetadata(map[string]any{"status": string(s)})
}

func invalidTransition(from, to models.Status) error {
	return goerrors.Wrap(ErrInvalidTransition, goerrors.CategoryValidation,
		fmt.Sprintf("invalid status transition %s -> %s", from, to)).
		WithTextCode(textCodeInvalidTransition).
		WithCode(goerrors.CodeBadRequest).
		WithMetadata(map[string]any{"from": string(from), "to": string(to)})
}

// Known reports whether s is one of the enumerated statuses.
func Known(s models.Status) bool {
	for _, candidate := range models.Statuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Next returns the status that follows from, if any.
func Next(from models.Status) (models.Status, bool) {
	to, ok := transitions[from]
	return to, ok
}

// Terminal reports whether no transition leaves s.
func Terminal(s models.Status) bool {
	_, ok := transitions[s]
	return Known(s) && !ok
}

// CanTransition reports whether moving from -> to is allowed.
func CanTransition(from, to models.Status) bool {
	next, ok := transitions[from]
	return ok && next == to
}

// Validate returns nil when from -> to is a legal step.
func Validate(from, to models.Status) error {
	if !Known(to) {
		return unknownStatus(to)
	}
	if !CanTransition(from, to) {
		return invalidTransition(from, to)
	}
	return nil
}
