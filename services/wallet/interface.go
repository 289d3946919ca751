package wallet

import (
	"context"

	"parkly/models"
)

// LedgerService is the only authority on funds movement. Every mutation is
// serialized per wallet through a bounded compare-and-set loop.
type LedgerService interface {
	EnsureWallet(ctx context.Context, ownerID string) (*models.Wallet, error)
	AvailableBalance(ctx context.Context, ownerID string) (float64, error)

	Credit(ctx context.Context, ownerID string, amount float64, bookingID, note string) (string, error)
	Debit(ctx context.Context, ownerID string, amount float64, bookingID, note string) (string, error)
	// DebitOrPending debits when funds allow; otherwise it records a pending
	// debit that does not move the balance. Used for overtime charges.
	DebitOrPending(ctx context.Context, ownerID string, amount float64, bookingID, note string) (ref string, pending bool, err error)

	Hold(ctx context.Context, ownerID string, amount float64, bookingID, note string) (string, error)
	Release(ctx context.Context, ownerID, holdRef, note string) error
	Capture(ctx context.Context, ownerID, holdRef, note string) error

	Transfer(ctx context.Context, fromOwner, toOwner string, amount float64, bookingID, note string) error
	Refund(ctx context.Context, ownerID string, amount float64, bookingID, note string) (string, error)
	// RecordObligation logs a pending payout owed to the owner without moving
	// funds. Used when a settlement transfer could not complete.
	RecordObligation(ctx context.Context, ownerID string, amount float64, bookingID, note string) (string, error)

	ListTransactions(ctx context.Context, ownerID string, filter models.TransactionFilter, page, pageSize int) ([]models.WalletTransaction, error)
}
