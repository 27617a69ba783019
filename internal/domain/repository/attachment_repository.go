package repository

import (
	"context"

	"itinerary-service/internal/domain/entity"
)

// AttachmentRepository stores boarding passes keyed by (userId, tripId, slot).
// The engine never reads pass content; it only re-keys or deletes passes when
// trips merge, split or disappear.
type AttachmentRepository interface {
	Put(ctx context.Context, pass *entity.BoardingPass) error
	Get(ctx context.Context, userID, tripID string, slot entity.LegSlot) (*entity.BoardingPass, error)
	Delete(ctx context.Context, userID, tripID string, slot entity.LegSlot) error
	// DeleteForTrip removes every pass keyed to the trip, any slot.
	DeleteForTrip(ctx context.Context, userID, tripID string) error
	// Rekey moves a pass from one (tripId, slot) key to another. Missing
	// source passes are not an error.
	Rekey(ctx context.Context, userID, fromTripID string, fromSlot entity.LegSlot, toTripID string, toSlot entity.LegSlot) error
}
