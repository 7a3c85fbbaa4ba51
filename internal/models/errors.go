package models

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAnOrder means the message does not carry the trigger prefix.
	// It is never surfaced to the user.
	ErrNotAnOrder = errors.New("not an order")

	// ErrMalformedExpression means the amount expression could not be evaluated.
	ErrMalformedExpression = errors.New("malformed expression")

	// ErrTotalMismatch means the computed formula disagrees with the stated
	// total and the parser runs with the reject policy.
	ErrTotalMismatch = fmt.Errorf("%w: stated total does not match formula", ErrMalformedExpression)

	// ErrNoTotalFound means an order message has no total line.
	ErrNoTotalFound = errors.New("no total found")

	// ErrUnauthorized means the actor lacks the role required for the operation.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrPersistence means a ledger or admin-set write failed. In-memory
	// state is left as it was before the operation.
	ErrPersistence = errors.New("ledger persistence error")

	// ErrUnknownCommand means the text matched no command. Never surfaced.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrInvalidAmount means an adjustment amount is zero or unparsable.
	ErrInvalidAmount = errors.New("invalid amount")
)
