package models

import "errors"

var (
	ErrUnknownStepType   = errors.New("unknown step type")
	ErrInvalidTransition = errors.New("invalid enrollment transition")
)
