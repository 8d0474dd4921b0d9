package domain

import (
	"errors"
	"fmt"
)

// ErrRateGateTimeout means a rate gate acquisition exceeded its wait ceiling.
// The underlying exchange call was never attempted; the caller retries on
// the next cadence tick.
var ErrRateGateTimeout = errors.New("rate gate: wait ceiling exceeded")

// ErrLedgerInvariant marks a bookkeeping violation. This is the only error
// class that halts new order placement.
var ErrLedgerInvariant = errors.New("ledger invariant violation")

// TransientError is a network/timeout failure on an exchange call, distinct
// from an exchange-level rejection. Retried at the adapter boundary.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient: %s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err is a transient channel error.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// RejectionError is a business-level rejection from the exchange. Terminal:
// logged, never retried.
type RejectionError struct {
	Code   string
	Reason string
}

func (e *RejectionError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("exchange rejection [%s]: %s", e.Code, e.Reason)
	}
	return "exchange rejection: " + e.Reason
}

// IsRejection reports whether err is an exchange-level rejection.
func IsRejection(err error) bool {
	var re *RejectionError
	return errors.As(err, &re)
}
