package catalogRepo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"parkly/database"
	"parkly/models"
	"parkly/utils"

	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	spaceCollection   = "spaces"
	vehicleCollection = "vehicles"
	tariffCollection  = "tariffs"

	tariffCachePrefix = "tariff:"
	tariffCacheTTL    = 5 * time.Minute
)

// MongoCatalogRepo implements CatalogRepository on MongoDB with a Redis
// read-through cache in front of tariffs, which sit on the hot quote path.
type MongoCatalogRepo struct {
	spaces   *mongo.Collection
	vehicles *mongo.Collection
	tariffs  *mongo.Collection
	cache    *redis.Client
}

// NewMongoCatalogRepo returns a repository bound to the catalog collections.
func NewMongoCatalogRepo() *MongoCatalogRepo {
	return &MongoCatalogRepo{
		spaces:   database.Collection(spaceCollection),
		vehicles: database.Collection(vehicleCollection),
		tariffs:  database.Collection(tariffCollection),
		cache:    utils.GetCacheClient(),
	}
}

func (r *MongoCatalogRepo) SpaceByID(ctx context.Context, spaceID string) (*models.ParkingSpace, error) {
	var space models.ParkingSpace
	err := r.spaces.FindOne(ctx, bson.M{"id": spaceID}).Decode(&space)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("space %s: %w", spaceID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load space %s: %w", spaceID, err)
	}
	return &space, nil
}

func (r *MongoCatalogRepo) VehicleByID(ctx context.Context, vehicleID string) (*models.Vehicle, error) {
	var vehicle models.Vehicle
	err := r.vehicles.FindOne(ctx, bson.M{"id": vehicleID}).Decode(&vehicle)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("vehicle %s: %w", vehicleID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load vehicle %s: %w", vehicleID, err)
	}
	return &vehicle, nil
}

func (r *MongoCatalogRepo) TariffForSpace(ctx context.Context, spaceID string) (*models.Tariff, error) {
	key := tariffCachePrefix + spaceID
	if data, err := r.cache.Get(ctx, key).Result(); err == nil {
		var tariff models.Tariff
		if jsonErr := json.Unmarshal([]byte(data), &tariff); jsonErr == nil {
			return &tariff, nil
		}
	}

	var tariff models.Tariff
	err := r.tariffs.FindOne(ctx, bson.M{"space_id": spaceID}).Decode(&tariff)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("tariff for space %s: %w", spaceID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load tariff for space %s: %w", spaceID, err)
	}

	if data, jsonErr := json.Marshal(tariff); jsonErr == nil {
		r.cache.Set(ctx, key, data, tariffCacheTTL)
	}
	return &tariff, nil
}

func (r *MongoCatalogRepo) UpsertSpace(ctx context.Context, space *models.ParkingSpace) error {
	opts := options.Replace().SetUpsert(true)
	if _, err := r.spaces.ReplaceOne(ctx, bson.M{"id": space.ID}, space, opts); err != nil {
		return fmt.Errorf("failed to upsert space %s: %w", space.ID, err)
	}
	return nil
}

func (r *MongoCatalogRepo) UpsertVehicle(ctx context.Context, vehicle *models.Vehicle) error {
	opts := options.Replace().SetUpsert(true)
	if _, err := r.vehicles.ReplaceOne(ctx, bson.M{"id": vehicle.ID}, vehicle, opts); err != nil {
		return fmt.Errorf("failed to upsert vehicle %s: %w", vehicle.ID, err)
	}
	return nil
}

func (r *MongoCatalogRepo) UpsertTariff(ctx context.Context, tariff *models.Tariff) error {
	opts := options.Replace().SetUpsert(true)
	if _, err := r.tariffs.ReplaceOne(ctx, bson.M{"space_id": tariff.SpaceID}, tariff, opts); err != nil {
		return fmt.Errorf("failed to upsert tariff for space %s: %w", tariff.SpaceID, err)
	}
	// Invalidate the read-through entry so the next quote sees the new rates.
	r.cache.Del(ctx, tariffCachePrefix+tariff.SpaceID)
	return nil
}

// EnsureIndexes creates the unique lookup indexes for the catalog collections.
func (r *MongoCatalogRepo) EnsureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)
	if _, err := r.spaces.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "id", Value: 1}}, Options: unique,
	}); err != nil {
		return fmt.Errorf("failed to index spaces: %w", err)
	}
	if _, err := r.vehicles.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("failed to index vehicles: %w", err)
	}
	if _, err := r.tariffs.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "space_id", Value: 1}}, Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("failed to index tariffs: %w", err)
	}
	return nil
}
