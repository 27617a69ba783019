package repository

import (
	"context"
	"errors"

	"itinerary-service/internal/domain/entity"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// TripRepository defines the interface for trip storage operations. Merge and
// split are applied as one update plus one delete (or creates plus a delete),
// never as a multi-document transaction; callers retry the missing half on
// partial failure.
type TripRepository interface {
	Create(ctx context.Context, trip *entity.Trip) error
	Update(ctx context.Context, trip *entity.Trip) error
	Delete(ctx context.Context, userID, tripID string) error
	FindByID(ctx context.Context, userID, tripID string) (*entity.Trip, error)
	// FindByUser returns the user's trips ordered by creation time descending.
	FindByUser(ctx context.Context, userID string) ([]*entity.Trip, error)
}
