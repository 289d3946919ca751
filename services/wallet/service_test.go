package wallet

import (
	"context"
	"sync"
	"testing"

	walletRepo "parkly/database/repository/wallet"
	"parkly/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memWalletRepo mimics the Mongo repository's conditional-replace semantics
// in memory, including version bumps and copy-on-read.
type memWalletRepo struct {
	mu      sync.Mutex
	wallets map[string]models.Wallet
}

func newMemWalletRepo() *memWalletRepo {
	return &memWalletRepo{wallets: make(map[string]models.Wallet)}
}

func copyWallet(w models.Wallet) models.Wallet {
	out := w
	out.Transactions = append([]models.WalletTransaction(nil), w.Transactions...)
	return out
}

func (r *memWalletRepo) GetByOwner(ownerID string) (*models.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[ownerID]
	if !ok {
		return nil, walletRepo.ErrNotFound
	}
	out := copyWallet(w)
	return &out, nil
}

func (r *memWalletRepo) Create(wallet *models.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	wallet.Version = 1
	r.wallets[wallet.OwnerID] = copyWallet(*wallet)
	return nil
}

func (r *memWalletRepo) SaveWithVersion(wallet *models.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saveOne(wallet)
}

func (r *memWalletRepo) SaveBoth(a, b *models.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.saveOne(a); err != nil {
		return err
	}
	if err := r.saveOne(b); err != nil {
		// Roll back the first save, as the Mongo transaction would.
		a.Version--
		stored := r.wallets[a.OwnerID]
		stored.Version = a.Version
		r.wallets[a.OwnerID] = stored
		return err
	}
	return nil
}

func (r *memWalletRepo) saveOne(wallet *models.Wallet) error {
	stored, ok := r.wallets[wallet.OwnerID]
	if !ok || stored.Version != wallet.Version {
		return walletRepo.ErrVersionConflict
	}
	wallet.Version++
	r.wallets[wallet.OwnerID] = copyWallet(*wallet)
	return nil
}

func newTestLedger() (*DefaultLedgerService, *memWalletRepo) {
	repo := newMemWalletRepo()
	return NewLedgerService(repo, zap.NewNop()), repo
}

func fund(t *testing.T, ledger *DefaultLedgerService, owner string, amount float64) {
	t.Helper()
	_, err := ledger.Credit(context.Background(), owner, amount, "", "seed")
	require.NoError(t, err)
}

func balance(t *testing.T, ledger *DefaultLedgerService, owner string) float64 {
	t.Helper()
	available, err := ledger.AvailableBalance(context.Background(), owner)
	require.NoError(t, err)
	return available
}

func TestCreditAndDebit(t *testing.T) {
	ledger, _ := newTestLedger()
	ctx := context.Background()

	ref, err := ledger.Credit(ctx, "driver-1", 100, "", "top-up")
	require.NoError(t, err)
	assert.NotEmpty(t, ref)
	assert.Equal(t, 100.0, balance(t, ledger, "driver-1"))

	_, err = ledger.Debit(ctx, "driver-1", 30, "bk-1", "charge")
	require.NoError(t, err)
	assert.Equal(t, 70.0, balance(t, ledger, "driver-1"))
}

func TestDebitInsufficientFunds(t *testing.T) {
	ledger, _ := newTestLedger()
	ctx := context.Background()
	fund(t, ledger, "driver-1", 10)

	_, err := ledger.Debit(ctx, "driver-1", 25, "bk-1", "charge")
	require.Error(t, err)
	assert.True(t, IsInsufficientFunds(err))

	var fe *FundsError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, 10.0, fe.Available)
	assert.Equal(t, 25.0, fe.Requested)
	assert.Equal(t, 10.0, balance(t, ledger, "driver-1"))
}

func TestHoldDeductsAvailable(t *testing.T) {
	ledger, _ := newTestLedger()
	ctx := context.Background()
	fund(t, ledger, "driver-1", 100)

	holdRef, err := ledger.Hold(ctx, "driver-1", 80, "bk-1", "booking hold")
	require.NoError(t, err)
	assert.NotEmpty(t, holdRef)
	assert.Equal(t, 20.0, balance(t, ledger, "driver-1"))

	// The held amount cannot be spent.
	_, err = ledger.Debit(ctx, "driver-1", 50, "", "other charge")
	assert.True(t, IsInsufficientFunds(err))
}

func TestReleaseRestoresBalance(t *testing.T) {
	ledger, _ := newTestLedger()
	ctx := context.Background()
	fund(t, ledger, "driver-1", 100)

	holdRef, err := ledger.Hold(ctx, "driver-1", 80, "bk-1", "booking hold")
	require.NoError(t, err)
	require.NoError(t, ledger.Release(ctx, "driver-1", holdRef, "rejected"))
	assert.Equal(t, 100.0, balance(t, ledger, "driver-1"))

	// A hold resolves exactly once.
	err = ledger.Release(ctx, "driver-1", holdRef, "again")
	assert.ErrorIs(t, err, ErrUnknownHold)
	err = ledger.Capture(ctx, "driver-1", holdRef, "after release")
	assert.ErrorIs(t, err, ErrUnknownHold)
}

func TestCaptureKeepsBalanceAndLedgerConsistent(t *testing.T) {
	ledger, repo := newTestLedger()
	ctx := context.Background()
	fund(t, ledger, "driver-1", 100)

	holdRef, err := ledger.Hold(ctx, "driver-1", 80, "bk-1", "booking hold")
	require.NoError(t, err)
	require.NoError(t, ledger.Capture(ctx, "driver-1", holdRef, "arrival"))

	// Capture spends what the hold earmarked: balance unchanged from the
	// held state, and the derived balance agrees.
	assert.Equal(t, 20.0, balance(t, ledger, "driver-1"))
	w, err := repo.GetByOwner("driver-1")
	require.NoError(t, err)
	assert.InDelta(t, w.Available, w.DerivedAvailable(), 0.001)

	// The stored hold entry itself is cancelled, not a stale copy of it: the
	// capture appends to the log before flipping the hold.
	var holdTx, captureTx *models.WalletTransaction
	for i := range w.Transactions {
		tx := &w.Transactions[i]
		switch {
		case tx.Reference == holdRef:
			holdTx = tx
		case tx.Kind == models.TxCapture:
			captureTx = tx
		}
	}
	require.NotNil(t, holdTx)
	require.NotNil(t, captureTx)
	assert.Equal(t, models.TxStatusCancelled, holdTx.Status)
	assert.Equal(t, holdRef, captureTx.Related)

	err = ledger.Capture(ctx, "driver-1", holdRef, "again")
	assert.ErrorIs(t, err, ErrDuplicateCapture)
	err = ledger.Release(ctx, "driver-1", holdRef, "after capture")
	assert.ErrorIs(t, err, ErrUnknownHold)
}

func TestTransferMovesBothSides(t *testing.T) {
	ledger, repo := newTestLedger()
	ctx := context.Background()
	fund(t, ledger, "platform", 200)

	require.NoError(t, ledger.Transfer(ctx, "platform", "landlord-1", 76.5, "bk-1", "earnings"))
	assert.Equal(t, 123.5, balance(t, ledger, "platform"))
	assert.Equal(t, 76.5, balance(t, ledger, "landlord-1"))

	// The pair is cross-linked.
	payer, err := repo.GetByOwner("platform")
	require.NoError(t, err)
	payee, err := repo.GetByOwner("landlord-1")
	require.NoError(t, err)
	out := payer.Transactions[len(payer.Transactions)-1]
	in := payee.Transactions[len(payee.Transactions)-1]
	assert.Equal(t, models.TxTransferOut, out.Kind)
	assert.Equal(t, models.TxTransferIn, in.Kind)
	assert.Equal(t, in.Reference, out.Related)
	assert.Equal(t, out.Reference, in.Related)
}

func TestTransferInsufficientFunds(t *testing.T) {
	ledger, _ := newTestLedger()
	ctx := context.Background()
	fund(t, ledger, "platform", 10)

	err := ledger.Transfer(ctx, "platform", "landlord-1", 50, "", "earnings")
	assert.True(t, IsInsufficientFunds(err))
	assert.Equal(t, 10.0, balance(t, ledger, "platform"))
	assert.Equal(t, 0.0, balance(t, ledger, "landlord-1"))
}

func TestDebitOrPending(t *testing.T) {
	ledger, repo := newTestLedger()
	ctx := context.Background()
	fund(t, ledger, "driver-1", 30)

	// Covered: behaves like a normal debit.
	_, pending, err := ledger.DebitOrPending(ctx, "driver-1", 20, "bk-1", "overtime")
	require.NoError(t, err)
	assert.False(t, pending)
	assert.Equal(t, 10.0, balance(t, ledger, "driver-1"))

	// Not covered: recorded pending, balance untouched.
	ref, pending, err := ledger.DebitOrPending(ctx, "driver-1", 50, "bk-1", "overtime")
	require.NoError(t, err)
	assert.True(t, pending)
	assert.NotEmpty(t, ref)
	assert.Equal(t, 10.0, balance(t, ledger, "driver-1"))

	w, err := repo.GetByOwner("driver-1")
	require.NoError(t, err)
	last := w.Transactions[len(w.Transactions)-1]
	assert.Equal(t, models.TxStatusPending, last.Status)
}

func TestRecordObligationDoesNotMoveBalance(t *testing.T) {
	ledger, repo := newTestLedger()
	ctx := context.Background()

	ref, err := ledger.RecordObligation(ctx, "landlord-1", 76.5, "bk-1", "deferred earnings")
	require.NoError(t, err)
	assert.NotEmpty(t, ref)
	assert.Equal(t, 0.0, balance(t, ledger, "landlord-1"))

	w, err := repo.GetByOwner("landlord-1")
	require.NoError(t, err)
	last := w.Transactions[len(w.Transactions)-1]
	assert.Equal(t, models.TxTransferIn, last.Kind)
	assert.Equal(t, models.TxStatusPending, last.Status)
}

func TestAbandonmentFlowChargesPenaltyOnce(t *testing.T) {
	ledger, _ := newTestLedger()
	ctx := context.Background()
	fund(t, ledger, "driver-1", 100)

	holdRef, err := ledger.Hold(ctx, "driver-1", 80, "bk-1", "booking hold")
	require.NoError(t, err)

	// Abandonment: the full hold releases, then the penalty debits.
	require.NoError(t, ledger.Release(ctx, "driver-1", holdRef, "abandoned"))
	_, err = ledger.Debit(ctx, "driver-1", 50, "bk-1", "abandonment penalty")
	require.NoError(t, err)
	assert.Equal(t, 50.0, balance(t, ledger, "driver-1"))

	// Nothing more can come out of the hold.
	err = ledger.Capture(ctx, "driver-1", holdRef, "late capture")
	assert.ErrorIs(t, err, ErrUnknownHold)
}

func TestEnsureWalletIdempotent(t *testing.T) {
	ledger, _ := newTestLedger()
	ctx := context.Background()

	w1, err := ledger.EnsureWallet(ctx, "driver-1")
	require.NoError(t, err)
	assert.True(t, w1.Active)

	fund(t, ledger, "driver-1", 42)
	w2, err := ledger.EnsureWallet(ctx, "driver-1")
	require.NoError(t, err)
	assert.Equal(t, 42.0, w2.Available)
}

func TestListTransactionsFilterAndPaging(t *testing.T) {
	ledger, _ := newTestLedger()
	ctx := context.Background()
	fund(t, ledger, "driver-1", 100)
	for i := 0; i < 3; i++ {
		_, err := ledger.Debit(ctx, "driver-1", 5, "bk-1", "charge")
		require.NoError(t, err)
	}

	debits, err := ledger.ListTransactions(ctx, "driver-1", models.TransactionFilter{Kind: models.TxDebit}, 1, 10)
	require.NoError(t, err)
	assert.Len(t, debits, 3)

	page, err := ledger.ListTransactions(ctx, "driver-1", models.TransactionFilter{}, 2, 2)
	require.NoError(t, err)
	assert.Len(t, page, 2)
}

func TestInvalidAmountsRejected(t *testing.T) {
	ledger, _ := newTestLedger()
	ctx := context.Background()

	_, err := ledger.Credit(ctx, "driver-1", 0, "", "zero")
	assert.Error(t, err)
	_, err = ledger.Credit(ctx, "driver-1", -5, "", "negative")
	assert.Error(t, err)
	_, err = ledger.Hold(ctx, "driver-1", -1, "bk", "negative hold")
	assert.Error(t, err)
}
