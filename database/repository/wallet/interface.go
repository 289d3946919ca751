package walletRepo

import "parkly/models"

// WalletRepository defines the interface for wallet aggregate persistence.
//
// The ledger works read-modify-write: it loads a wallet, mutates it in
// memory, and saves it back conditioned on the loaded version. SaveBoth is
// the transfer primitive: both conditional replaces land atomically or
// neither does.
type WalletRepository interface {
	GetByOwner(ownerID string) (*models.Wallet, error)
	Create(wallet *models.Wallet) error
	SaveWithVersion(wallet *models.Wallet) error
	SaveBoth(a, b *models.Wallet) error
}
