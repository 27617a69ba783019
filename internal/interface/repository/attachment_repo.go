package repository

import (
	"context"
	"errors"
	"time"

	"itinerary-service/internal/domain/entity"
	"itinerary-service/internal/domain/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoAttachmentRepository stores boarding passes in a MongoDB collection,
// one document per (userId, tripId, slot).
type MongoAttachmentRepository struct {
	collection *mongo.Collection
}

// NewMongoAttachmentRepository creates a new attachment repository.
func NewMongoAttachmentRepository(db *mongo.Database) repository.AttachmentRepository {
	collection := db.Collection("boarding_passes")

	ctx := context.Background()
	keyIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "userId", Value: 1},
			{Key: "tripId", Value: 1},
			{Key: "slot", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	}
	collection.Indexes().CreateOne(ctx, keyIndex)

	return &MongoAttachmentRepository{collection: collection}
}

// Put upserts a boarding pass under its (userId, tripId, slot) key.
func (r *MongoAttachmentRepository) Put(ctx context.Context, pass *entity.BoardingPass) error {
	if pass.ID == "" {
		pass.ID = primitive.NewObjectID().Hex()
	}
	if pass.UploadedAt.IsZero() {
		pass.UploadedAt = time.Now()
	}

	filter := bson.M{"userId": pass.UserID, "tripId": pass.TripID, "slot": pass.Slot}
	update := bson.M{"$set": bson.M{
		"filename":    pass.Filename,
		"contentType": pass.ContentType,
		"data":        pass.Data,
		"uploadedAt":  pass.UploadedAt,
	}, "$setOnInsert": bson.M{
		"_id":    pass.ID,
		"userId": pass.UserID,
		"tripId": pass.TripID,
		"slot":   pass.Slot,
	}}

	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

// Get loads a boarding pass.
func (r *MongoAttachmentRepository) Get(ctx context.Context, userID, tripID string, slot entity.LegSlot) (*entity.BoardingPass, error) {
	var pass entity.BoardingPass
	err := r.collection.FindOne(ctx, bson.M{"userId": userID, "tripId": tripID, "slot": slot}).Decode(&pass)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &pass, nil
}

// Delete removes one boarding pass; missing passes are not an error.
func (r *MongoAttachmentRepository) Delete(ctx context.Context, userID, tripID string, slot entity.LegSlot) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"userId": userID, "tripId": tripID, "slot": slot})
	return err
}

// DeleteForTrip removes every pass keyed to the trip.
func (r *MongoAttachmentRepository) DeleteForTrip(ctx context.Context, userID, tripID string) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"userId": userID, "tripId": tripID})
	return err
}

// Rekey moves a pass to a new (tripId, slot) key in place. A missing source
// pass is a no-op.
func (r *MongoAttachmentRepository) Rekey(ctx context.Context, userID, fromTripID string, fromSlot entity.LegSlot, toTripID string, toSlot entity.LegSlot) error {
	filter := bson.M{"userId": userID, "tripId": fromTripID, "slot": fromSlot}
	update := bson.M{"$set": bson.M{"tripId": toTripID, "slot": toSlot}}
	_, err := r.collection.UpdateOne(ctx, filter, update)
	return err
}
