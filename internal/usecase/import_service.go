package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"itinerary-service/internal/domain/entity"
	"itinerary-service/internal/domain/repository"
	"itinerary-service/pkg/logger"
	"itinerary-service/pkg/metrics"
)

// ImportService turns stored booking-confirmation emails into flight legs:
// extract candidates, push each through ingestion, record progress on the
// email document, then trigger a sweep for the affected user.
type ImportService struct {
	emails    repository.EmailRepository
	extractor repository.LegExtractor
	trips     *TripService
	sweeps    *SweepScheduler
	metrics   *metrics.Metrics
	logger    logger.Logger
}

// NewImportService creates a new import service.
func NewImportService(
	emails repository.EmailRepository,
	extractor repository.LegExtractor,
	trips *TripService,
	sweeps *SweepScheduler,
	m *metrics.Metrics,
	log logger.Logger,
) *ImportService {
	return &ImportService{
		emails:    emails,
		extractor: extractor,
		trips:     trips,
		sweeps:    sweeps,
		metrics:   m,
		logger:    log,
	}
}

// ProcessEmail imports a single email. Extraction output is untrusted
// candidate data: every leg still runs through duplicate detection and
// normalization. A failing leg never aborts the rest of the email.
func (s *ImportService) ProcessEmail(ctx context.Context, email *entity.ImportEmail) error {
	s.logger.Info("Importing email", "messageId", email.MessageID, "subject", email.Subject)

	if err := s.emails.UpdateStatus(ctx, email.MessageID, entity.StatusProcessing, time.Now()); err != nil {
		return fmt.Errorf("update status: %w", err)
	}

	text := email.Body
	if strings.TrimSpace(text) == "" {
		text = email.HTMLBody
	}
	if strings.TrimSpace(text) == "" {
		return s.emails.MarkProcessed(ctx, email.MessageID, entity.StatusSkipped, "empty body", nil)
	}

	result, err := s.extractor.ExtractLegs(ctx, text)
	if err != nil {
		s.logger.Error("Extraction failed", "messageId", email.MessageID, "error", err)
		s.countError("extract")
		// Mark failed but keep processing other emails.
		return s.emails.MarkProcessed(ctx, email.MessageID, entity.StatusFailed, err.Error(), nil)
	}
	if len(result.Legs) == 0 {
		return s.emails.MarkProcessed(ctx, email.MessageID, entity.StatusSkipped, "no flight legs found", map[string]interface{}{
			"subject": email.Subject,
		})
	}

	userID := UserIDFromAddress(email.From)
	steps := entity.ImportSteps{LegsExtracted: len(result.Legs)}
	s.emails.UpdateImportSteps(ctx, email.MessageID, steps)

	var processError error
	for _, leg := range result.Legs {
		ingest, err := s.trips.IngestLeg(ctx, userID, leg, result.PurchaseDate)
		if err != nil {
			s.logger.Error("Failed to ingest extracted leg",
				"messageId", email.MessageID,
				"flightNumber", leg.FlightNumber,
				"error", err)
			processError = err
			continue
		}
		switch ingest.Status {
		case IngestDuplicate:
			steps.DuplicatesSkipped++
		case IngestPaired:
			steps.LegsStored++
			steps.LegsPaired++
		default:
			steps.LegsStored++
		}
		s.emails.UpdateImportSteps(ctx, email.MessageID, steps)
	}

	finalStatus := entity.StatusCompleted
	errorDetail := ""
	if processError != nil {
		if steps.LegsStored == 0 && steps.DuplicatesSkipped == 0 {
			finalStatus = entity.StatusFailed
			errorDetail = processError.Error()
		} else {
			errorDetail = fmt.Sprintf("partially imported: %d/%d legs stored, error: %v",
				steps.LegsStored, steps.LegsExtracted, processError)
		}
	}

	extracted := map[string]interface{}{
		"legsExtracted":     steps.LegsExtracted,
		"legsStored":        steps.LegsStored,
		"legsPaired":        steps.LegsPaired,
		"duplicatesSkipped": steps.DuplicatesSkipped,
	}
	if err := s.emails.MarkProcessed(ctx, email.MessageID, finalStatus, errorDetail, extracted); err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}

	if s.metrics != nil {
		s.metrics.EmailsImported.Inc()
	}
	if s.sweeps != nil && steps.LegsStored > 0 {
		s.sweeps.Trigger(userID)
	}

	s.logger.Info("Email import completed",
		"messageId", email.MessageID,
		"status", finalStatus,
		"legsStored", steps.LegsStored,
		"duplicatesSkipped", steps.DuplicatesSkipped)
	return nil
}

// ProcessPendingEmails retries emails that were missed or interrupted.
func (s *ImportService) ProcessPendingEmails(ctx context.Context) error {
	if err := s.emails.ResetProcessing(ctx); err != nil {
		s.logger.Error("Failed to reset stale processing emails", "error", err)
	}

	emails, err := s.emails.FindUnprocessed(ctx, 100)
	if err != nil {
		return fmt.Errorf("find unprocessed emails: %w", err)
	}
	if len(emails) == 0 {
		return nil
	}

	s.logger.Info("Processing pending emails", "count", len(emails))
	for _, email := range emails {
		if err := s.ProcessEmail(ctx, email); err != nil {
			s.logger.Error("Failed to import email", "messageId", email.MessageID, "error", err)
		}
	}
	return nil
}

// UserIDFromAddress scopes trips by the sender of the forwarded booking.
// "Name <a@b.com>" and "A@B.com" both map to "a@b.com".
func UserIDFromAddress(from string) string {
	addr := from
	if i := strings.LastIndex(from, "<"); i >= 0 {
		if j := strings.LastIndex(from, ">"); j > i {
			addr = from[i+1 : j]
		}
	}
	return strings.ToLower(strings.TrimSpace(addr))
}

func (s *ImportService) countError(operation string) {
	if s.metrics != nil {
		s.metrics.ErrorsCount.WithLabelValues(operation).Inc()
	}
}
