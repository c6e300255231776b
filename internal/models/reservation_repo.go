package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ReserveRequest asks to take Quantity units of a slot. Booked seeds the counter the first time
// a slot is reserved, so bookings written before the counter existed still count.
type ReserveRequest struct {
	Key      SlotKey
	Capacity int
	Booked   int
	Quantity int
}

// Reserver performs the conditional capacity decrement that precedes every ledger append.
type Reserver interface {
	Reserve(ctx context.Context, req ReserveRequest) (remaining int, err error)
	Release(ctx context.Context, key SlotKey, quantity int) error
}

type slotReservation struct {
	ID        string    `bson:"_id"`
	Slot      SlotKey   `bson:"slot"`
	Reserved  int       `bson:"reserved"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// MongoReserver keeps one counter document per slot in slot_reservations.
type MongoReserver struct {
	repo *MongodbRepo
}

func NewMongoReserver(repo *MongodbRepo) *MongoReserver {
	return &MongoReserver{repo: repo}
}

func (r *MongoReserver) Reserve(ctx context.Context, req ReserveRequest) (int, error) {
	if req.Quantity <= 0 {
		return 0, ErrInvalidQuantity
	}
	col, err := r.repo.GetCollection(ctx, ReservationsColName)
	if err != nil {
		return 0, fmt.Errorf("error getting collection: %w", err)
	}
	id := req.Key.String()
	now := time.Now()

	seed := bson.M{
		"$setOnInsert": bson.M{
			"slot":       req.Key,
			"reserved":   req.Booked,
			"updated_at": now,
		},
	}
	_, err = col.UpdateOne(ctx, bson.M{"_id": id}, seed, options.Update().SetUpsert(true))
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return 0, fmt.Errorf("error seeding reservation counter %s: %w", id, err)
	}

	// The filter is the capacity check; the update only matches while enough units remain.
	filter := bson.M{
		"_id":      id,
		"reserved": bson.M{"$lte": req.Capacity - req.Quantity},
	}
	update := bson.M{
		"$inc": bson.M{"reserved": req.Quantity},
		"$set": bson.M{"updated_at": now},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc slotReservation
	err = col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, ErrInsufficientCapacity
	}
	if err != nil {
		return 0, fmt.Errorf("error reserving %s: %w", id, err)
	}
	return req.Capacity - doc.Reserved, nil
}

func (r *MongoReserver) Release(ctx context.Context, key SlotKey, quantity int) error {
	if quantity <= 0 {
		return nil
	}
	col, err := r.repo.GetCollection(ctx, ReservationsColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %w", err)
	}
	filter := bson.M{
		"_id":      key.String(),
		"reserved": bson.M{"$gte": quantity},
	}
	update := bson.M{
		"$inc": bson.M{"reserved": -quantity},
		"$set": bson.M{"updated_at": time.Now()},
	}
	if _, err := col.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("error releasing %s: %w", key, err)
	}
	return nil
}
