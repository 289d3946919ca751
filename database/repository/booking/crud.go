package bookingRepo

import (
	"errors"
	"fmt"
	"time"

	"parkly/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Create inserts a new booking document.
func (r *MongoBookingRepo) Create(booking *models.Booking) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	now := time.Now()
	booking.CreatedAt = now
	booking.UpdatedAt = now
	booking.Version = 1

	if _, err := r.coll.InsertOne(ctx, booking); err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

// GetByID fetches a booking by its opaque id.
func (r *MongoBookingRepo) GetByID(id string) (*models.Booking, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	var booking models.Booking
	err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&booking)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch booking %s: %w", id, err)
	}
	return &booking, nil
}

// GetByCode fetches a booking by its human-friendly code.
func (r *MongoBookingRepo) GetByCode(code string) (*models.Booking, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	var booking models.Booking
	err := r.coll.FindOne(ctx, bson.M{"code": code}).Decode(&booking)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch booking by code %s: %w", code, err)
	}
	return &booking, nil
}

// UpdateWithVersion replaces the booking document conditioned on the version
// the caller loaded. The stored version is bumped on success.
func (r *MongoBookingRepo) UpdateWithVersion(booking *models.Booking) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	loadedVersion := booking.Version
	booking.Version = loadedVersion + 1
	booking.UpdatedAt = time.Now()

	filter := bson.M{"id": booking.ID, "version": loadedVersion}
	res, err := r.coll.ReplaceOne(ctx, filter, booking)
	if err != nil {
		booking.Version = loadedVersion
		return fmt.Errorf("failed to update booking %s: %w", booking.ID, err)
	}
	if res.MatchedCount == 0 {
		booking.Version = loadedVersion
		return ErrVersionConflict
	}
	return nil
}
