package repository

import (
	"context"
	"errors"
	"time"

	"itinerary-service/internal/domain/entity"
	"itinerary-service/internal/domain/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoTripRepository implements TripRepository on a MongoDB collection.
type MongoTripRepository struct {
	collection *mongo.Collection
}

// NewMongoTripRepository creates a new trip repository.
func NewMongoTripRepository(db *mongo.Database) repository.TripRepository {
	collection := db.Collection("trips")

	ctx := context.Background()
	userCreatedIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "userId", Value: 1},
			{Key: "createdAt", Value: -1},
		},
	}
	kindIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "userId", Value: 1},
			{Key: "kind", Value: 1},
		},
	}
	collection.Indexes().CreateMany(ctx, []mongo.IndexModel{userCreatedIndex, kindIndex})

	return &MongoTripRepository{collection: collection}
}

// Create inserts a new trip.
func (r *MongoTripRepository) Create(ctx context.Context, trip *entity.Trip) error {
	if trip.UpdatedAt.IsZero() {
		trip.UpdatedAt = time.Now()
	}
	_, err := r.collection.InsertOne(ctx, trip)
	return err
}

// Update replaces a stored trip; last write wins.
func (r *MongoTripRepository) Update(ctx context.Context, trip *entity.Trip) error {
	trip.UpdatedAt = time.Now()
	result, err := r.collection.ReplaceOne(
		ctx,
		bson.M{"_id": trip.ID, "userId": trip.UserID},
		trip,
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete removes a trip. Deleting an already-absent trip is not an error so
// callers can retry the missing half of a merge or split.
func (r *MongoTripRepository) Delete(ctx context.Context, userID, tripID string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": tripID, "userId": userID})
	return err
}

// FindByID loads one trip scoped to the user.
func (r *MongoTripRepository) FindByID(ctx context.Context, userID, tripID string) (*entity.Trip, error) {
	var trip entity.Trip
	err := r.collection.FindOne(ctx, bson.M{"_id": tripID, "userId": userID}).Decode(&trip)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &trip, nil
}

// FindByUser returns all of the user's trips, newest first.
func (r *MongoTripRepository) FindByUser(ctx context.Context, userID string) ([]*entity.Trip, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"userId": userID}, &options.FindOptions{
		Sort: bson.D{{Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var trips []*entity.Trip
	if err := cursor.All(ctx, &trips); err != nil {
		return nil, err
	}
	return trips, nil
}
