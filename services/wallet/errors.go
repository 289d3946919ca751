package wallet

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownHold is returned when a hold is missing or already resolved.
	ErrUnknownHold = errors.New("unknown hold")
	// ErrDuplicateCapture is returned when a hold was already captured.
	ErrDuplicateCapture = errors.New("duplicate capture")
	// ErrReferenceExhausted is returned when reference generation kept colliding.
	ErrReferenceExhausted = errors.New("reference exhausted")
	// ErrWalletInactive is returned for writes against a deactivated wallet.
	ErrWalletInactive = errors.New("wallet inactive")
	// ErrLedgerInvariant marks a fatal internal inconsistency (e.g. the stored
	// balance no longer matches the transaction log). Callers must abort the
	// surrounding booking operation.
	ErrLedgerInvariant = errors.New("ledger invariant violation")
)

// FundsError reports an insufficient-funds condition together with the
// numbers the caller needs to surface to the user.
type FundsError struct {
	OwnerID   string
	Available float64
	Requested float64
}

func (e *FundsError) Error() string {
	return fmt.Sprintf("insufficient funds: available %.2f, requested %.2f", e.Available, e.Requested)
}

// IsInsufficientFunds reports whether err is a FundsError.
func IsInsufficientFunds(err error) bool {
	var fe *FundsError
	return errors.As(err, &fe)
}
