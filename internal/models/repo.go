package models

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/supabase-community/supabase-go"
	"go.mongodb.org/mongo-driver/mongo"
)

var Validate = validator.New()

const (
	EventsColName           = "events"
	ActivitiesColName       = "activities"
	ActivityBookingsColName = "activity_bookings"
	EventAttendeesColName   = "eventAttendees"
	ReservationsColName     = "slot_reservations"
)

// SupabaseRepo reads the sharing table and talks to Supabase Auth.
type SupabaseRepo struct {
	supabaseClient *supabase.Client
}

func SupabaseNewRepo(supabaseClient *supabase.Client) *SupabaseRepo {
	return &SupabaseRepo{supabaseClient: supabaseClient}
}

type MongodbRepo struct {
	mongodbClient *mongo.Client
	dbName        string
}

func MongodbNewRepo(mongodbClient *mongo.Client, dbName string) *MongodbRepo {
	return &MongodbRepo{
		mongodbClient: mongodbClient,
		dbName:        dbName,
	}
}

func (mdb *MongodbRepo) GetCollection(ctx context.Context, colName string) (*mongo.Collection, error) {
	if mdb.mongodbClient == nil {
		return nil, fmt.Errorf("mongodb client is not initialized")
	}
	return mdb.mongodbClient.Database(mdb.dbName).Collection(colName), nil
}

// EnsureIndexes creates the indexes the catalog, ledger and reservation queries rely on.
func (mdb *MongodbRepo) EnsureIndexes(ctx context.Context) error {
	for colName, indexes := range ledgerIndexes() {
		col, err := mdb.GetCollection(ctx, colName)
		if err != nil {
			return err
		}
		if _, err := col.Indexes().CreateMany(ctx, indexes); err != nil {
			return fmt.Errorf("error creating indexes on %s: %w", colName, err)
		}
	}
	for _, colName := range []string{EventsColName, ActivitiesColName} {
		col, err := mdb.GetCollection(ctx, colName)
		if err != nil {
			return err
		}
		if _, err := col.Indexes().CreateOne(ctx, organizerIndex()); err != nil {
			return fmt.Errorf("error creating indexes on %s: %w", colName, err)
		}
	}
	return nil
}
