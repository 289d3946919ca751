package bookingRepo

import (
	"fmt"
	"time"

	"parkly/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var nonTerminalStatuses = []string{
	models.StatusPending,
	models.StatusAccepted,
	models.StatusParked,
}

// CountOverlapping counts non-terminal bookings on a space whose window
// overlaps [start, end).
func (r *MongoBookingRepo) CountOverlapping(spaceID string, start, end time.Time) (int64, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	filter := bson.M{
		"space_id":   spaceID,
		"status":     bson.M{"$in": nonTerminalStatuses},
		"start_time": bson.M{"$lt": end},
		"end_time":   bson.M{"$gt": start},
	}
	count, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count overlapping bookings for space %s: %w", spaceID, err)
	}
	return count, nil
}

// ListPendingCreatedBefore returns pending bookings older than the cutoff.
func (r *MongoBookingRepo) ListPendingCreatedBefore(cutoff time.Time) ([]models.Booking, error) {
	return r.list(bson.M{
		"status":     models.StatusPending,
		"created_at": bson.M{"$lt": cutoff},
	}, 0)
}

// ListStalled returns accepted/parked bookings whose window end passed the cutoff.
func (r *MongoBookingRepo) ListStalled(cutoff time.Time) ([]models.Booking, error) {
	return r.list(bson.M{
		"status":   bson.M{"$in": []string{models.StatusAccepted, models.StatusParked}},
		"end_time": bson.M{"$lt": cutoff},
	}, 0)
}

// ListByDriver returns the driver's bookings, newest first.
func (r *MongoBookingRepo) ListByDriver(driverID string, limit int64) ([]models.Booking, error) {
	return r.list(bson.M{"driver_id": driverID}, limit)
}

// ListByLandlord returns the landlord's bookings, newest first.
func (r *MongoBookingRepo) ListByLandlord(landlordID string, limit int64) ([]models.Booking, error) {
	return r.list(bson.M{"landlord_id": landlordID}, limit)
}

func (r *MongoBookingRepo) list(filter bson.M, limit int64) ([]models.Booking, error) {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts = opts.SetLimit(limit)
	}
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer cur.Close(ctx)

	var bookings []models.Booking
	if err := cur.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}
	return bookings, nil
}
