package repository

import (
	"context"
	"time"

	"itinerary-service/internal/domain/entity"
)

// EmailRepository defines the interface for import email storage.
type EmailRepository interface {
	Save(ctx context.Context, email *entity.ImportEmail) error
	FindByMessageID(ctx context.Context, messageID string) (*entity.ImportEmail, error)
	FindByMessageIDs(ctx context.Context, messageIDs []string) (map[string]*entity.ImportEmail, error)
	FindUnprocessed(ctx context.Context, limit int) ([]*entity.ImportEmail, error)
	LastReceived(ctx context.Context) (*entity.ImportEmail, error)
	UpdateStatus(ctx context.Context, messageID, status string, startedAt time.Time) error
	UpdateImportSteps(ctx context.Context, messageID string, steps entity.ImportSteps) error
	MarkProcessed(ctx context.Context, messageID, status, errorDetail string, extractedData map[string]interface{}) error
	// ResetProcessing returns emails stuck in PROCESSING back to PENDING.
	ResetProcessing(ctx context.Context) error
}
