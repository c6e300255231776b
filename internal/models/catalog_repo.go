package models

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type CatalogRepo interface {
	CreateEntity(ctx context.Context, entity *Entity) (*Entity, error)
	UpdateEntity(ctx context.Context, entity *Entity) (*Entity, error)
	GetEntity(ctx context.Context, id uuid.UUID) (*Entity, error)
	ListEntitiesByOrganizer(ctx context.Context, organizerID uuid.UUID, offset, limit int) ([]*Entity, int, error)
}

func catalogCollection(kind EntityKind) string {
	if kind == KindActivity {
		return ActivitiesColName
	}
	return EventsColName
}

func organizerIndex() mongo.IndexModel {
	return mongo.IndexModel{
		Keys: bson.D{
			{Key: "organizer_id", Value: 1},
			{Key: "created_at", Value: -1},
		},
		Options: options.Index().SetName("organizer_created_idx"),
	}
}

func (mdb *MongodbRepo) CreateEntity(ctx context.Context, entity *Entity) (*Entity, error) {
	col, err := mdb.GetCollection(ctx, catalogCollection(entity.Kind))
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}
	if _, err := col.InsertOne(ctx, entity); err != nil {
		return nil, fmt.Errorf("error inserting %s: %w", entity.Kind, err)
	}
	return entity, nil
}

// UpdateEntity replaces the catalog definition. Bookings already in the ledger are left as they are.
func (mdb *MongodbRepo) UpdateEntity(ctx context.Context, entity *Entity) (*Entity, error) {
	col, err := mdb.GetCollection(ctx, catalogCollection(entity.Kind))
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}
	entity.UpdatedAt = time.Now()

	res, err := col.ReplaceOne(ctx, bson.M{"_id": entity.ID}, entity)
	if err != nil {
		return nil, fmt.Errorf("error updating %s: %w", entity.Kind, err)
	}
	if res.MatchedCount == 0 {
		return nil, ErrEntityNotFound
	}
	return entity, nil
}

// GetEntity looks the id up in both catalog collections.
func (mdb *MongodbRepo) GetEntity(ctx context.Context, id uuid.UUID) (*Entity, error) {
	for _, colName := range []string{ActivitiesColName, EventsColName} {
		col, err := mdb.GetCollection(ctx, colName)
		if err != nil {
			return nil, fmt.Errorf("error getting collection: %w", err)
		}
		var entity Entity
		err = col.FindOne(ctx, bson.M{"_id": id}).Decode(&entity)
		if errors.Is(err, mongo.ErrNoDocuments) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("error finding entity %s: %w", id, err)
		}
		return &entity, nil
	}
	return nil, ErrEntityNotFound
}

func (mdb *MongodbRepo) ListEntitiesByOrganizer(ctx context.Context, organizerID uuid.UUID, offset, limit int) ([]*Entity, int, error) {
	filter := bson.M{"organizer_id": organizerID}
	var (
		all   []*Entity
		total int
	)
	for _, colName := range []string{EventsColName, ActivitiesColName} {
		col, err := mdb.GetCollection(ctx, colName)
		if err != nil {
			return nil, 0, fmt.Errorf("error getting collection: %w", err)
		}
		count, err := col.CountDocuments(ctx, filter)
		if err != nil {
			return nil, 0, fmt.Errorf("error counting %s: %w", colName, err)
		}
		total += int(count)

		opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
		cursor, err := col.Find(ctx, filter, opts)
		if err != nil {
			return nil, 0, fmt.Errorf("error finding %s: %w", colName, err)
		}
		var entities []*Entity
		if err := cursor.All(ctx, &entities); err != nil {
			return nil, 0, fmt.Errorf("error decoding %s: %w", colName, err)
		}
		all = append(all, entities...)
	}

	sortEntitiesNewestFirst(all)
	if offset >= len(all) {
		return []*Entity{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func sortEntitiesNewestFirst(entities []*Entity) {
	sort.SliceStable(entities, func(i, j int) bool {
		return entities[i].CreatedAt.After(entities[j].CreatedAt)
	})
}
