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

// staleProcessingAge is how long an email may sit in PROCESSING before it is
// assumed orphaned and reset.
const staleProcessingAge = 10 * time.Minute

// MongoEmailRepository implements the EmailRepository interface.
type MongoEmailRepository struct {
	collection *mongo.Collection
}

// NewMongoEmailRepository creates a new MongoDB email repository.
func NewMongoEmailRepository(db *mongo.Database) repository.EmailRepository {
	collection := db.Collection("import_emails")

	ctx := context.Background()
	messageIDIndex := mongo.IndexModel{
		Keys:    bson.M{"messageId": 1},
		Options: options.Index().SetUnique(true),
	}
	statusIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "processStatus", Value: 1},
			{Key: "receivedAt", Value: 1},
		},
	}
	receivedIndex := mongo.IndexModel{
		Keys: bson.M{"receivedAt": -1},
	}
	collection.Indexes().CreateMany(ctx, []mongo.IndexModel{messageIDIndex, statusIndex, receivedIndex})

	return &MongoEmailRepository{collection: collection}
}

// Save stores a fetched email, defaulting its status to PENDING.
func (r *MongoEmailRepository) Save(ctx context.Context, email *entity.ImportEmail) error {
	if email.ProcessStatus == "" {
		email.ProcessStatus = entity.StatusPending
	}
	_, err := r.collection.InsertOne(ctx, email)
	return err
}

// FindByMessageID finds an email by its Gmail message ID.
func (r *MongoEmailRepository) FindByMessageID(ctx context.Context, messageID string) (*entity.ImportEmail, error) {
	var email entity.ImportEmail
	err := r.collection.FindOne(ctx, bson.M{"messageId": messageID}).Decode(&email)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &email, nil
}

// FindByMessageIDs returns the subset of the given IDs that already exist,
// keyed by message ID.
func (r *MongoEmailRepository) FindByMessageIDs(ctx context.Context, messageIDs []string) (map[string]*entity.ImportEmail, error) {
	out := make(map[string]*entity.ImportEmail, len(messageIDs))
	if len(messageIDs) == 0 {
		return out, nil
	}

	cursor, err := r.collection.Find(ctx, bson.M{"messageId": bson.M{"$in": messageIDs}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var emails []*entity.ImportEmail
	if err := cursor.All(ctx, &emails); err != nil {
		return nil, err
	}
	for _, e := range emails {
		out[e.MessageID] = e
	}
	return out, nil
}

// FindUnprocessed finds emails still waiting for import, oldest first.
func (r *MongoEmailRepository) FindUnprocessed(ctx context.Context, limit int) ([]*entity.ImportEmail, error) {
	filter := bson.M{
		"$or": []bson.M{
			{"processStatus": ""},
			{"processStatus": entity.StatusPending},
			{"processStatus": bson.M{"$exists": false}},
		},
	}

	limit64 := int64(limit)
	cursor, err := r.collection.Find(ctx, filter, &options.FindOptions{
		Limit: &limit64,
		Sort:  bson.D{{Key: "receivedAt", Value: 1}},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var emails []*entity.ImportEmail
	if err := cursor.All(ctx, &emails); err != nil {
		return nil, err
	}
	return emails, nil
}

// LastReceived returns the most recently received email, or nil when the
// collection is empty.
func (r *MongoEmailRepository) LastReceived(ctx context.Context) (*entity.ImportEmail, error) {
	var email entity.ImportEmail
	err := r.collection.FindOne(ctx, bson.M{}, &options.FindOneOptions{
		Sort: bson.D{{Key: "receivedAt", Value: -1}},
	}).Decode(&email)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &email, nil
}

// UpdateStatus sets the status and processing start time.
func (r *MongoEmailRepository) UpdateStatus(ctx context.Context, messageID, status string, startedAt time.Time) error {
	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"messageId": messageID},
		bson.M{"$set": bson.M{
			"processStatus":    status,
			"processStartedAt": startedAt,
		}},
	)
	return err
}

// UpdateImportSteps records import progress.
func (r *MongoEmailRepository) UpdateImportSteps(ctx context.Context, messageID string, steps entity.ImportSteps) error {
	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"messageId": messageID},
		bson.M{"$set": bson.M{"importSteps": steps}},
	)
	return err
}

// MarkProcessed records the final import outcome for an email.
func (r *MongoEmailRepository) MarkProcessed(ctx context.Context, messageID, status, errorDetail string, extractedData map[string]interface{}) error {
	set := bson.M{
		"processStatus": status,
		"processedAt":   time.Now(),
		"errorDetail":   errorDetail,
	}
	if extractedData != nil {
		set["extractedData"] = extractedData
	}
	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"messageId": messageID},
		bson.M{"$set": set},
	)
	return err
}

// ResetProcessing returns emails stuck in PROCESSING back to PENDING so they
// are retried after a crash.
func (r *MongoEmailRepository) ResetProcessing(ctx context.Context) error {
	cutoff := time.Now().Add(-staleProcessingAge)
	_, err := r.collection.UpdateMany(
		ctx,
		bson.M{
			"processStatus":    entity.StatusProcessing,
			"processStartedAt": bson.M{"$lt": cutoff},
		},
		bson.M{"$set": bson.M{"processStatus": entity.StatusPending}},
	)
	return err
}
