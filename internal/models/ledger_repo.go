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

// LedgerScope narrows a ledger read. Zero fields are not filtered on.
type LedgerScope struct {
	Date      string
	Start     string
	End       string
	SessionID string
}

type LedgerRepo interface {
	AppendBooking(ctx context.Context, kind EntityKind, booking *Booking) error
	ListBookings(ctx context.Context, entityID string, scope LedgerScope) ([]Booking, error)
	GetBooking(ctx context.Context, id string) (*Booking, error)
	SetCheckIn(ctx context.Context, id string, checkedIn bool, at time.Time) (*Booking, error)
}

func ledgerIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		ActivityBookingsColName: {
			{
				Keys: bson.D{
					{Key: "activityId", Value: 1},
					{Key: "date", Value: 1},
					{Key: "startTime", Value: 1},
					{Key: "endTime", Value: 1},
				},
				Options: options.Index().SetName("activity_slot_idx"),
			},
			{
				Keys:    bson.D{{Key: "orderId", Value: 1}},
				Options: options.Index().SetName("order_id_idx").SetSparse(true),
			},
		},
		EventAttendeesColName: {
			{
				Keys: bson.D{
					{Key: "eventId", Value: 1},
					{Key: "sessionDate", Value: 1},
				},
				Options: options.Index().SetName("event_session_idx"),
			},
		},
	}
}

func (mdb *MongodbRepo) AppendBooking(ctx context.Context, kind EntityKind, booking *Booking) error {
	colName := EventAttendeesColName
	var doc any
	if kind == KindActivity {
		colName = ActivityBookingsColName
		doc = booking.ToSession()
	} else {
		doc = booking.ToLegacy()
	}

	col, err := mdb.GetCollection(ctx, colName)
	if err != nil {
		return fmt.Errorf("error getting collection: %w", err)
	}
	if _, err := col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", ErrBookingExists, booking.ID)
		}
		return fmt.Errorf("error appending booking %s: %w", booking.ID, err)
	}
	return nil
}

// ListBookings reads both ledger collections and returns normalized records, oldest first.
func (mdb *MongodbRepo) ListBookings(ctx context.Context, entityID string, scope LedgerScope) ([]Booking, error) {
	session := bson.M{"activityId": entityID}
	legacy := bson.M{"eventId": entityID}
	if scope.Date != "" {
		session["date"] = scope.Date
		legacy["sessionDate"] = scope.Date
	}
	if scope.Start != "" {
		session["startTime"] = scope.Start
		legacy["startTime"] = scope.Start
	}
	if scope.End != "" {
		session["endTime"] = scope.End
		legacy["endTime"] = scope.End
	}
	if scope.SessionID != "" {
		session["sessionId"] = scope.SessionID
	}

	out, err := mdb.findBookings(ctx, ActivityBookingsColName, session)
	if err != nil {
		return nil, err
	}
	if scope.SessionID == "" {
		more, err := mdb.findBookings(ctx, EventAttendeesColName, legacy)
		if err != nil {
			return nil, err
		}
		out = append(out, more...)
	}
	return out, nil
}

func (mdb *MongodbRepo) findBookings(ctx context.Context, colName string, filter bson.M) ([]Booking, error) {
	col, err := mdb.GetCollection(ctx, colName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("error finding bookings in %s: %w", colName, err)
	}
	defer cursor.Close(ctx)

	var bookings []Booking
	for cursor.Next(ctx) {
		raw, err := DecodeRawBooking(cursor.Current)
		if errors.Is(err, ErrUnknownBookingShape) {
			continue
		}
		if err != nil {
			return nil, err
		}
		b, err := raw.Normalize()
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return bookings, nil
}

func (mdb *MongodbRepo) GetBooking(ctx context.Context, id string) (*Booking, error) {
	for _, colName := range []string{ActivityBookingsColName, EventAttendeesColName} {
		col, err := mdb.GetCollection(ctx, colName)
		if err != nil {
			return nil, fmt.Errorf("error getting collection: %w", err)
		}
		raw, err := col.FindOne(ctx, bson.M{"_id": id}).Raw()
		if errors.Is(err, mongo.ErrNoDocuments) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("error finding booking %s: %w", id, err)
		}
		rb, err := DecodeRawBooking(raw)
		if err != nil {
			return nil, err
		}
		b, err := rb.Normalize()
		if err != nil {
			return nil, err
		}
		return &b, nil
	}
	return nil, ErrBookingNotFound
}

// SetCheckIn is the only mutation the ledger allows on an existing record.
func (mdb *MongodbRepo) SetCheckIn(ctx context.Context, id string, checkedIn bool, at time.Time) (*Booking, error) {
	set := bson.M{"checkedIn": checkedIn, "checkInTime": at}
	if !checkedIn {
		set["checkInTime"] = nil
	}
	update := bson.M{"$set": set}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	for _, colName := range []string{ActivityBookingsColName, EventAttendeesColName} {
		col, err := mdb.GetCollection(ctx, colName)
		if err != nil {
			return nil, fmt.Errorf("error getting collection: %w", err)
		}
		raw, err := col.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Raw()
		if errors.Is(err, mongo.ErrNoDocuments) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("error updating check-in for %s: %w", id, err)
		}
		rb, err := DecodeRawBooking(raw)
		if err != nil {
			return nil, err
		}
		b, err := rb.Normalize()
		if err != nil {
			return nil, err
		}
		return &b, nil
	}
	return nil, ErrBookingNotFound
}
