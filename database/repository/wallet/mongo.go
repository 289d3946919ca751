package walletRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"parkly/database"
	"parkly/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const walletCollection = "wallets"

// MongoWalletRepo implements WalletRepository on MongoDB.
type MongoWalletRepo struct {
	coll *mongo.Collection
}

// NewMongoWalletRepo returns a repository bound to the wallets collection.
func NewMongoWalletRepo() *MongoWalletRepo {
	return &MongoWalletRepo{coll: database.Collection(walletCollection)}
}

func newContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

// GetByOwner fetches the wallet for one party.
func (r *MongoWalletRepo) GetByOwner(ownerID string) (*models.Wallet, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	var wallet models.Wallet
	err := r.coll.FindOne(ctx, bson.M{"owner_id": ownerID}).Decode(&wallet)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch wallet for %s: %w", ownerID, err)
	}
	return &wallet, nil
}

// Create inserts a new wallet document.
func (r *MongoWalletRepo) Create(wallet *models.Wallet) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	now := time.Now()
	wallet.CreatedAt = now
	wallet.UpdatedAt = now
	wallet.Version = 1

	if _, err := r.coll.InsertOne(ctx, wallet); err != nil {
		return fmt.Errorf("failed to create wallet for %s: %w", wallet.OwnerID, err)
	}
	return nil
}

// SaveWithVersion replaces the wallet document conditioned on the version the
// caller loaded. This is the ledger's serialization primitive.
func (r *MongoWalletRepo) SaveWithVersion(wallet *models.Wallet) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()
	return r.saveOne(ctx, wallet)
}

// SaveBoth lands two conditional wallet replaces inside one Mongo session
// transaction: both or neither.
func (r *MongoWalletRepo) SaveBoth(a, b *models.Wallet) error {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	client := r.coll.Database().Client()
	sess, err := client.StartSession()
	if err != nil {
		return fmt.Errorf("could not start mongo session: %w", err)
	}
	defer sess.EndSession(ctx)

	if err := mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
		if err := sc.StartTransaction(); err != nil {
			return err
		}
		if err := r.saveOne(sc, a); err != nil {
			_ = sc.AbortTransaction(sc)
			return err
		}
		if err := r.saveOne(sc, b); err != nil {
			_ = sc.AbortTransaction(sc)
			return err
		}
		return sc.CommitTransaction(sc)
	}); err != nil {
		return fmt.Errorf("wallet transfer transaction failed: %w", err)
	}
	return nil
}

func (r *MongoWalletRepo) saveOne(ctx context.Context, wallet *models.Wallet) error {
	loadedVersion := wallet.Version
	wallet.Version = loadedVersion + 1
	wallet.UpdatedAt = time.Now()

	filter := bson.M{"owner_id": wallet.OwnerID, "version": loadedVersion}
	res, err := r.coll.ReplaceOne(ctx, filter, wallet)
	if err != nil {
		wallet.Version = loadedVersion
		return fmt.Errorf("failed to save wallet %s: %w", wallet.OwnerID, err)
	}
	if res.MatchedCount == 0 {
		wallet.Version = loadedVersion
		return ErrVersionConflict
	}
	return nil
}

// EnsureIndexes creates the unique owner index and the per-wallet reference
// uniqueness backstop.
func (r *MongoWalletRepo) EnsureIndexes() error {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "owner_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "transactions.reference", Value: 1}},
		},
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create wallet indexes: %w", err)
	}
	return nil
}
