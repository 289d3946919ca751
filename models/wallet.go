package models

import "time"

// Wallet transaction kinds.
const (
	TxCredit      = "credit"
	TxDebit       = "debit"
	TxRefund      = "refund"
	TxHold        = "hold"
	TxRelease     = "release"
	TxCapture     = "capture"
	TxTransferIn  = "transfer_in"
	TxTransferOut = "transfer_out"
)

// Wallet transaction statuses.
const (
	TxStatusPending   = "pending"
	TxStatusCompleted = "completed"
	TxStatusFailed    = "failed"
	TxStatusCancelled = "cancelled"
)

// Wallet holds the funds of one party (driver, landlord, or the platform
// escrow account) together with its append-only transaction log.
type Wallet struct {
	OwnerID      string              `bson:"owner_id" json:"owner_id"`
	Available    float64             `bson:"available" json:"available"`
	Active       bool                `bson:"active" json:"active"`
	Transactions []WalletTransaction `bson:"transactions" json:"transactions"`

	// Version backs the compare-and-set loop in the ledger.
	Version   int64     `bson:"version" json:"version"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// WalletTransaction is one entry of the append-only ledger log. Entries are
// never mutated after creation except for their status.
type WalletTransaction struct {
	Reference string    `bson:"reference" json:"reference"` // globally unique, never empty
	Kind      string    `bson:"kind" json:"kind"`
	Amount    float64   `bson:"amount" json:"amount"`
	Status    string    `bson:"status" json:"status"`
	BookingID string    `bson:"booking_id,omitempty" json:"booking_id,omitempty"`
	HoldRef   string    `bson:"hold_ref,omitempty" json:"hold_ref,omitempty"` // set on hold/release/capture
	Related   string    `bson:"related,omitempty" json:"related,omitempty"`   // reference of the paired transaction
	Note      string    `bson:"note,omitempty" json:"note,omitempty"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// TransactionFilter narrows ListTransactions results.
type TransactionFilter struct {
	Kind      string
	Status    string
	BookingID string
}

// DerivedAvailable recomputes the available balance from completed
// transactions: credits, refunds, transfer-ins and releases add; debits,
// transfer-outs, captures and holds deduct.
func (w *Wallet) DerivedAvailable() float64 {
	var sum float64
	for _, tx := range w.Transactions {
		if tx.Status != TxStatusCompleted {
			continue
		}
		switch tx.Kind {
		case TxCredit, TxRefund, TxTransferIn, TxRelease:
			sum += tx.Amount
		case TxDebit, TxTransferOut, TxCapture, TxHold:
			sum -= tx.Amount
		}
	}
	return sum
}
