package models

import (
	"errors"
	"fmt"
)

var (
	ErrInsufficientHistory = errors.New("insufficient history")
	ErrNoData              = errors.New("no data")
	ErrMissingField        = errors.New("missing field")
	ErrPositionAlreadyOpen = errors.New("position already open")
)

// MissingFieldError names the indicator field that was absent.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing field: %s", e.Field)
}

func (e *MissingFieldError) Is(target error) bool {
	return target == ErrMissingField
}
