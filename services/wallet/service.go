package wallet

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	walletRepo "parkly/database/repository/wallet"
	"parkly/models"
	"parkly/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	casAttempts       = 3
	referenceAttempts = 3
	balanceEpsilon    = 0.005
)

// DefaultLedgerService implements LedgerService on a wallet repository.
type DefaultLedgerService struct {
	Repo   walletRepo.WalletRepository
	Logger *zap.Logger
}

// NewLedgerService wires a ledger over the given repository.
func NewLedgerService(repo walletRepo.WalletRepository, logger *zap.Logger) *DefaultLedgerService {
	return &DefaultLedgerService{Repo: repo, Logger: logger}
}

// EnsureWallet returns the owner's wallet, creating an empty active one if
// none exists yet.
func (s *DefaultLedgerService) EnsureWallet(ctx context.Context, ownerID string) (*models.Wallet, error) {
	w, err := s.Repo.GetByOwner(ownerID)
	if errors.Is(err, walletRepo.ErrNotFound) {
		w = &models.Wallet{OwnerID: ownerID, Active: true}
		if createErr := s.Repo.Create(w); createErr != nil {
			return nil, fmt.Errorf("failed to create wallet for %s: %w", ownerID, createErr)
		}
		return w, nil
	}
	if err != nil {
		return nil, err
	}
	return w, nil
}

// AvailableBalance returns the owner's current available balance.
func (s *DefaultLedgerService) AvailableBalance(ctx context.Context, ownerID string) (float64, error) {
	w, err := s.EnsureWallet(ctx, ownerID)
	if err != nil {
		return 0, err
	}
	return w.Available, nil
}

// Credit adds funds to the wallet.
func (s *DefaultLedgerService) Credit(ctx context.Context, ownerID string, amount float64, bookingID, note string) (string, error) {
	if err := validAmount(amount); err != nil {
		return "", err
	}
	var ref string
	err := s.withWallet(ctx, ownerID, func(w *models.Wallet) error {
		tx, err := s.appendTransaction(w, models.TxCredit, amount, bookingID, "", note, models.TxStatusCompleted)
		if err != nil {
			return err
		}
		ref = tx.Reference
		w.Available = utils.RoundMoney(w.Available + amount)
		return nil
	})
	return ref, err
}

// Debit removes funds; it fails with a FundsError when the balance is short.
func (s *DefaultLedgerService) Debit(ctx context.Context, ownerID string, amount float64, bookingID, note string) (string, error) {
	if err := validAmount(amount); err != nil {
		return "", err
	}
	var ref string
	err := s.withWallet(ctx, ownerID, func(w *models.Wallet) error {
		if w.Available < amount {
			return &FundsError{OwnerID: ownerID, Available: w.Available, Requested: amount}
		}
		tx, err := s.appendTransaction(w, models.TxDebit, amount, bookingID, "", note, models.TxStatusCompleted)
		if err != nil {
			return err
		}
		ref = tx.Reference
		w.Available = utils.RoundMoney(w.Available - amount)
		return nil
	})
	return ref, err
}

// DebitOrPending debits when funds allow, otherwise records a pending debit.
// Pending debits do not move the balance; they settle out-of-band.
func (s *DefaultLedgerService) DebitOrPending(ctx context.Context, ownerID string, amount float64, bookingID, note string) (string, bool, error) {
	if err := validAmount(amount); err != nil {
		return "", false, err
	}
	var ref string
	var pending bool
	err := s.withWallet(ctx, ownerID, func(w *models.Wallet) error {
		status := models.TxStatusCompleted
		if w.Available < amount {
			status = models.TxStatusPending
		}
		tx, err := s.appendTransaction(w, models.TxDebit, amount, bookingID, "", note, status)
		if err != nil {
			return err
		}
		ref = tx.Reference
		pending = status == models.TxStatusPending
		if !pending {
			w.Available = utils.RoundMoney(w.Available - amount)
		}
		return nil
	})
	return ref, pending, err
}

// Hold earmarks funds for a booking: the amount is deducted from available
// atomically with recording the hold transaction.
func (s *DefaultLedgerService) Hold(ctx context.Context, ownerID string, amount float64, bookingID, note string) (string, error) {
	if err := validAmount(amount); err != nil {
		return "", err
	}
	var holdRef string
	err := s.withWallet(ctx, ownerID, func(w *models.Wallet) error {
		if w.Available < amount {
			return &FundsError{OwnerID: ownerID, Available: w.Available, Requested: amount}
		}
		tx, err := s.appendTransaction(w, models.TxHold, amount, bookingID, "", note, models.TxStatusCompleted)
		if err != nil {
			return err
		}
		// A hold is identified by its own reference.
		tx.HoldRef = tx.Reference
		holdRef = tx.Reference
		w.Available = utils.RoundMoney(w.Available - amount)
		return nil
	})
	return holdRef, err
}

// Release unwinds a hold, restoring the available balance. It fails with
// ErrUnknownHold when the hold is missing or already resolved.
func (s *DefaultLedgerService) Release(ctx context.Context, ownerID, holdRef, note string) error {
	return s.withWallet(ctx, ownerID, func(w *models.Wallet) error {
		idx, state := findHold(w, holdRef)
		if idx < 0 || state != holdOpen {
			return fmt.Errorf("hold %s: %w", holdRef, ErrUnknownHold)
		}
		hold := w.Transactions[idx]
		tx, err := s.appendTransaction(w, models.TxRelease, hold.Amount, hold.BookingID, holdRef, note, models.TxStatusCompleted)
		if err != nil {
			return err
		}
		tx.Related = hold.Reference
		w.Available = utils.RoundMoney(w.Available + hold.Amount)
		return nil
	})
}

// Capture converts a hold into a spent debit. The balance does not change:
// the hold already deducted it. The original hold entry is cancelled so the
// derived balance counts the movement exactly once.
func (s *DefaultLedgerService) Capture(ctx context.Context, ownerID, holdRef, note string) error {
	return s.withWallet(ctx, ownerID, func(w *models.Wallet) error {
		idx, state := findHold(w, holdRef)
		if idx < 0 || state == holdReleased {
			return fmt.Errorf("hold %s: %w", holdRef, ErrUnknownHold)
		}
		if state == holdCaptured {
			return fmt.Errorf("hold %s: %w", holdRef, ErrDuplicateCapture)
		}
		hold := w.Transactions[idx]
		tx, err := s.appendTransaction(w, models.TxCapture, hold.Amount, hold.BookingID, holdRef, note, models.TxStatusCompleted)
		if err != nil {
			return err
		}
		tx.Related = hold.Reference
		// The append may have grown the log into a new backing array; the hold
		// must be cancelled through the slice, never through a pointer taken
		// before the append.
		w.Transactions[idx].Status = models.TxStatusCancelled
		return nil
	})
}

// Transfer moves funds between two wallets as a linked transfer-out /
// transfer-in pair; both land atomically or neither does.
func (s *DefaultLedgerService) Transfer(ctx context.Context, fromOwner, toOwner string, amount float64, bookingID, note string) error {
	if err := validAmount(amount); err != nil {
		return err
	}
	if fromOwner == toOwner {
		return fmt.Errorf("transfer to self is not allowed")
	}

	for attempt := 0; attempt < casAttempts; attempt++ {
		payer, err := s.EnsureWallet(ctx, fromOwner)
		if err != nil {
			return err
		}
		payee, err := s.EnsureWallet(ctx, toOwner)
		if err != nil {
			return err
		}
		if !payer.Active || !payee.Active {
			return ErrWalletInactive
		}
		if payer.Available < amount {
			return &FundsError{OwnerID: fromOwner, Available: payer.Available, Requested: amount}
		}

		out, err := s.appendTransaction(payer, models.TxTransferOut, amount, bookingID, "", note, models.TxStatusCompleted)
		if err != nil {
			return err
		}
		in, err := s.appendTransaction(payee, models.TxTransferIn, amount, bookingID, "", note, models.TxStatusCompleted)
		if err != nil {
			return err
		}
		out.Related = in.Reference
		in.Related = out.Reference
		payer.Available = utils.RoundMoney(payer.Available - amount)
		payee.Available = utils.RoundMoney(payee.Available + amount)

		if err := s.checkInvariant(payer); err != nil {
			return err
		}
		if err := s.checkInvariant(payee); err != nil {
			return err
		}

		err = s.Repo.SaveBoth(payer, payee)
		if err == nil {
			return nil
		}
		if !errors.Is(err, walletRepo.ErrVersionConflict) {
			return err
		}
	}
	return fmt.Errorf("transfer %s -> %s: %w", fromOwner, toOwner, walletRepo.ErrVersionConflict)
}

// Refund credits a previously captured amount back to the owner.
func (s *DefaultLedgerService) Refund(ctx context.Context, ownerID string, amount float64, bookingID, note string) (string, error) {
	if err := validAmount(amount); err != nil {
		return "", err
	}
	var ref string
	err := s.withWallet(ctx, ownerID, func(w *models.Wallet) error {
		tx, err := s.appendTransaction(w, models.TxRefund, amount, bookingID, "", note, models.TxStatusCompleted)
		if err != nil {
			return err
		}
		ref = tx.Reference
		w.Available = utils.RoundMoney(w.Available + amount)
		return nil
	})
	return ref, err
}

// RecordObligation appends a pending transfer-in for a payout that could not
// be settled yet. The balance does not move; a later settlement sweep finds
// the pending entry and completes it.
func (s *DefaultLedgerService) RecordObligation(ctx context.Context, ownerID string, amount float64, bookingID, note string) (string, error) {
	if err := validAmount(amount); err != nil {
		return "", err
	}
	var ref string
	err := s.withWallet(ctx, ownerID, func(w *models.Wallet) error {
		tx, err := s.appendTransaction(w, models.TxTransferIn, amount, bookingID, "", note, models.TxStatusPending)
		if err != nil {
			return err
		}
		ref = tx.Reference
		return nil
	})
	return ref, err
}

// ListTransactions pages through the owner's log, newest first.
func (s *DefaultLedgerService) ListTransactions(ctx context.Context, ownerID string, filter models.TransactionFilter, page, pageSize int) ([]models.WalletTransaction, error) {
	w, err := s.EnsureWallet(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if page < 1 {
		page = 1
	}

	matched := make([]models.WalletTransaction, 0, len(w.Transactions))
	for i := len(w.Transactions) - 1; i >= 0; i-- {
		tx := w.Transactions[i]
		if filter.Kind != "" && tx.Kind != filter.Kind {
			continue
		}
		if filter.Status != "" && tx.Status != filter.Status {
			continue
		}
		if filter.BookingID != "" && tx.BookingID != filter.BookingID {
			continue
		}
		matched = append(matched, tx)
	}

	start := (page - 1) * pageSize
	if start >= len(matched) {
		return []models.WalletTransaction{}, nil
	}
	end := start + pageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], nil
}

// --- internals ---

// withWallet runs the mutation inside a bounded compare-and-set loop.
func (s *DefaultLedgerService) withWallet(ctx context.Context, ownerID string, mutate func(*models.Wallet) error) error {
	for attempt := 0; attempt < casAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		w, err := s.EnsureWallet(ctx, ownerID)
		if err != nil {
			return err
		}
		if !w.Active {
			return ErrWalletInactive
		}
		s.repairReferences(w)

		if err := mutate(w); err != nil {
			return err
		}
		if err := s.checkInvariant(w); err != nil {
			return err
		}

		err = s.Repo.SaveWithVersion(w)
		if err == nil {
			return nil
		}
		if !errors.Is(err, walletRepo.ErrVersionConflict) {
			return err
		}
		s.Logger.Debug("wallet save lost the race, retrying",
			zap.String("owner", ownerID), zap.Int("attempt", attempt+1))
	}
	return fmt.Errorf("wallet %s: %w", ownerID, walletRepo.ErrVersionConflict)
}

// appendTransaction creates a log entry with a fresh unique reference.
func (s *DefaultLedgerService) appendTransaction(w *models.Wallet, kind string, amount float64, bookingID, holdRef, note, status string) (*models.WalletTransaction, error) {
	ref, err := s.newReference(w)
	if err != nil {
		return nil, err
	}
	w.Transactions = append(w.Transactions, models.WalletTransaction{
		Reference: ref,
		Kind:      kind,
		Amount:    utils.RoundMoney(amount),
		Status:    status,
		BookingID: bookingID,
		HoldRef:   holdRef,
		Note:      note,
		CreatedAt: time.Now(),
	})
	return &w.Transactions[len(w.Transactions)-1], nil
}

// newReference generates a reference id, retrying on collision a bounded
// number of times.
func (s *DefaultLedgerService) newReference(w *models.Wallet) (string, error) {
	for attempt := 0; attempt < referenceAttempts; attempt++ {
		ref := uuid.New().String()
		if !referenceExists(w, ref) {
			return ref, nil
		}
		s.Logger.Warn("transaction reference collision", zap.String("owner", w.OwnerID))
	}
	return "", ErrReferenceExhausted
}

// repairReferences backfills empty legacy references during any save.
func (s *DefaultLedgerService) repairReferences(w *models.Wallet) {
	for i := range w.Transactions {
		if w.Transactions[i].Reference == "" {
			ref, err := s.newReference(w)
			if err != nil {
				return
			}
			w.Transactions[i].Reference = ref
			s.Logger.Info("repaired empty transaction reference",
				zap.String("owner", w.OwnerID), zap.String("reference", ref))
		}
	}
}

// checkInvariant refuses to persist a wallet whose stored balance disagrees
// with the transaction log or went negative.
func (s *DefaultLedgerService) checkInvariant(w *models.Wallet) error {
	if w.Available < -balanceEpsilon {
		s.Logger.Error("negative wallet balance", zap.String("owner", w.OwnerID), zap.Float64("available", w.Available))
		return fmt.Errorf("wallet %s went negative: %w", w.OwnerID, ErrLedgerInvariant)
	}
	derived := w.DerivedAvailable()
	if math.Abs(derived-w.Available) > balanceEpsilon {
		s.Logger.Error("wallet balance diverged from ledger",
			zap.String("owner", w.OwnerID),
			zap.Float64("available", w.Available),
			zap.Float64("derived", derived))
		return fmt.Errorf("wallet %s balance %.2f != derived %.2f: %w", w.OwnerID, w.Available, derived, ErrLedgerInvariant)
	}
	return nil
}

func validAmount(amount float64) error {
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return fmt.Errorf("invalid amount %.2f", amount)
	}
	return nil
}

type holdState int

const (
	holdOpen holdState = iota
	holdReleased
	holdCaptured
)

// findHold locates the index of a hold entry and reports how it has been
// resolved so far. The index is -1 when no such hold exists.
func findHold(w *models.Wallet, holdRef string) (int, holdState) {
	idx := -1
	for i := range w.Transactions {
		tx := &w.Transactions[i]
		if tx.Kind == models.TxHold && tx.HoldRef == holdRef {
			idx = i
			break
		}
	}
	if idx < 0 {
		return -1, holdOpen
	}
	for i := range w.Transactions {
		tx := &w.Transactions[i]
		if tx.HoldRef != holdRef || tx.Status == models.TxStatusFailed {
			continue
		}
		switch tx.Kind {
		case models.TxRelease:
			return idx, holdReleased
		case models.TxCapture:
			return idx, holdCaptured
		}
	}
	return idx, holdOpen
}

func referenceExists(w *models.Wallet, ref string) bool {
	for i := range w.Transactions {
		if w.Transactions[i].Reference == ref {
			return true
		}
	}
	return false
}
