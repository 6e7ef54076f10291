package dispatch

import (
	"context"
	"errors"

	goerrors "github.com/goliatone/go-errors"
)

const (
	codeValidationFailed = "DECISION_COMMAND_VALIDATION_FAILED"
	codeContextCanceled  = "DECISION_COMMAND_CANCELED"
	codeContextTimeout   = "DECISION_COMMAND_TIMEOUT"
	codeContextError     = "DECISION_COMMAND_CONTEXT_ERROR"
	codeExecuteFailed    = "DECISION_COMMAND_FAILED"
)

func wrapValidationError(err error) error {
	if err == nil || goerrors.IsWrapped(err) {
		return err
	}
	wrapped := goerrors.FromOzzoValidation(err, "decision command validation failed")
	if wrapped.Source == nil {
		wrapped.Source = err
	}
	return wrapped.WithTextCode(codeValidationFailed)
}

func wrapContextError(err error) error {
	if err == nil || goerrors.IsWrapped(err) {
		return err
	}
	switch {
	case errors.Is(err, context.Canceled):
		return goerrors.Wrap(err, goerrors.CategoryCommand, "decision command cancelled").
			WithTextCode(codeContextCanceled)
	case errors.Is(err, context.DeadlineExceeded):
		return goerrors.Wrap(err, goerrors.CategoryCommand, "decision command deadline exceeded").
			WithTextCode(codeContextTimeout)
	default:
		return goerrors.Wrap(err, goerrors.CategoryCommand, "decision command context error").
			WithTextCode(codeContextError)
	}
}

func wrapExecuteError(err error) error {
	if err == nil || goerrors.IsWrapped(err) {
		return err
	}
	return goerrors.Wrap(err, goerrors.CategoryCommand, "decision command failed").
		WithTextCode(codeExecuteFailed)
}
