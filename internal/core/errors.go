package core

import (
	"errors"
	"fmt"
)

// Error taxonomy. Every error that crosses a package boundary wraps exactly one
// of these kinds so callers can classify with errors.Is without string matching.
var (
	// ErrInvalidArgument marks caller-correctable input problems. Never retried.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrConflict marks uniqueness or referential-integrity violations.
	ErrConflict = errors.New("conflict")

	// ErrNotFound marks references to entities that do not exist.
	ErrNotFound = errors.New("not found")

	// ErrUpstream marks failures of the external advisory call.
	ErrUpstream = errors.New("upstream failure")

	// ErrInconsistent marks a divergence between an incrementally maintained
	// balance and the from-scratch recomputation. It indicates a bug and must be
	// logged loudly, never silently corrected.
	ErrInconsistent = errors.New("ledger inconsistent")
)

// Validation sentinels. All wrap ErrInvalidArgument.
var (
	ErrInvalidAmount      = fmt.Errorf("%w: invalid amount", ErrInvalidArgument)
	ErrEmptyName          = fmt.Errorf("%w: name is required", ErrInvalidArgument)
	ErrEmptyPrompt        = fmt.Errorf("%w: prompt is required", ErrInvalidArgument)
	ErrInvalidDate        = fmt.Errorf("%w: invalid date", ErrInvalidArgument)
	ErrInvalidDateRange   = fmt.Errorf("%w: end date before start date", ErrInvalidArgument)
	ErrInvalidAccountType = fmt.Errorf("%w: invalid account type", ErrInvalidArgument)
	ErrInvalidTxType      = fmt.Errorf("%w: invalid transaction type", ErrInvalidArgument)
	ErrNegativeBalance    = fmt.Errorf("%w: initial balance cannot be negative", ErrInvalidArgument)
	ErrNegativeLimit      = fmt.Errorf("%w: budget limit cannot be negative", ErrInvalidArgument)
	ErrMissingCategory    = fmt.Errorf("%w: category is required", ErrInvalidArgument)
	ErrMissingCounterpart = fmt.Errorf("%w: transfer requires a destination account", ErrInvalidArgument)
)
