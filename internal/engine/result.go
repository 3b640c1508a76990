package engine

import (
	"errors"

	"taskflow/internal/domain"
	"taskflow/internal/engine/auth"
	"taskflow/internal/ident"
	"taskflow/internal/policy"
)

// Code classifies a failed use case for callers that map it to a transport status.
type Code string

const (
	CodeValidation Code = "validation_failed"
	CodeNotFound   Code = "not_found"
	CodeConflict   Code = "conflict"
	CodeForbidden  Code = "forbidden"
	CodeInternal   Code = "internal"
)

// Result is the outcome of every use case. Domain errors never escape as panics or
// bare errors; they are normalized into Error and Code.
type Result[T any] struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Code    Code   `json:"code,omitempty"`
	Data    T      `json:"data,omitempty"`

	err error
}

func ok[T any](v T) Result[T] {
	return Result[T]{Success: true, Data: v}
}

func fail[T any](err error) Result[T] {
	return Result[T]{Error: err.Error(), Code: Classify(err), err: err}
}

// Err returns the original error of a failed result, or nil.
func (r Result[T]) Err() error {
	if r.Success {
		return nil
	}
	if r.err == nil {
		return errors.New(r.Error)
	}
	return r.err
}

// Unwrap returns Data and the original error.
func (r Result[T]) Unwrap() (T, error) {
	return r.Data, r.Err()
}

// Classify maps an error to its Code.
func Classify(err error) Code {
	var (
		ve        *domain.ValidationError
		violation *policy.Violation
		forbidden auth.ForbiddenError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ve), errors.As(err, &violation), errors.Is(err, ident.ErrEmpty):
		return CodeValidation
	case errors.Is(err, domain.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, domain.ErrConcurrentModification):
		return CodeConflict
	case errors.As(err, &forbidden):
		return CodeForbidden
	default:
		return CodeInternal
	}
}
