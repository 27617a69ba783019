package repository

import (
	"context"

	"itinerary-service/internal/domain/entity"
)

// AirportRepository defines read access to the airport reference table.
type AirportRepository interface {
	GetByCode(ctx context.Context, code string) (*entity.Airport, error)
}
