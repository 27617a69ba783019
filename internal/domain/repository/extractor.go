package repository

import (
	"context"
	"time"

	"itinerary-service/internal/domain/entity"
)

// ExtractionResult is the untrusted output of a text-extraction pass. Every
// candidate still goes through duplicate detection and normalization.
type ExtractionResult struct {
	Legs         []entity.FlightLeg
	PurchaseDate *time.Time
}

// LegExtractor turns free-form itinerary text into flight-leg candidates.
type LegExtractor interface {
	ExtractLegs(ctx context.Context, text string) (*ExtractionResult, error)
}
