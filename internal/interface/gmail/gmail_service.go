package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"itinerary-service/internal/domain/entity"
	"itinerary-service/internal/domain/repository"
	"itinerary-service/internal/usecase"
	"itinerary-service/pkg/logger"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// GmailService polls the inbox for forwarded booking confirmations and hands
// new messages to the import pipeline.
type GmailService struct {
	gmailService *gmail.Service
	emailRepo    repository.EmailRepository
	importer     *usecase.ImportService
	logger       logger.Logger
	pollInterval time.Duration
}

// NewGmailService creates a Gmail poller.
func NewGmailService(
	ctx context.Context,
	tokenSource oauth2.TokenSource,
	emailRepo repository.EmailRepository,
	importer *usecase.ImportService,
	log logger.Logger,
	pollInterval time.Duration,
) (*GmailService, error) {
	service, err := gmail.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, err
	}

	return &GmailService{
		gmailService: service,
		emailRepo:    emailRepo,
		importer:     importer,
		logger:       log,
		pollInterval: pollInterval,
	}, nil
}

// StartPolling polls Gmail until the context is cancelled. Pending emails
// are retried once on startup.
func (s *GmailService) StartPolling(ctx context.Context) {
	if err := s.importer.ProcessPendingEmails(ctx); err != nil {
		s.logger.Error("Failed to process pending emails on startup", "error", err)
	}

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Gmail polling stopped")
			return
		case <-ticker.C:
			s.logger.Debug("Polling Gmail for new emails")
			if err := s.FetchAndImportEmails(ctx); err != nil {
				s.logger.Error("Error polling Gmail", "error", err)
			}
		}
	}
}

// FetchAndImportEmails fetches messages newer than the last stored one,
// saves them and imports them immediately.
func (s *GmailService) FetchAndImportEmails(ctx context.Context) error {
	lastEmail, err := s.emailRepo.LastReceived(ctx)
	if err != nil {
		s.logger.Error("Failed to get last email", "error", err)
	}

	var fetchFrom time.Time
	if lastEmail != nil {
		fetchFrom = lastEmail.ReceivedAt
	} else {
		fetchFrom = time.Now().AddDate(0, -6, 0)
	}

	query := fmt.Sprintf("after:%s", fetchFrom.Format("2006/01/02"))
	resp, err := s.gmailService.Users.Messages.List("me").Q(query).Do()
	if err != nil {
		return fmt.Errorf("list messages: %w", err)
	}
	if len(resp.Messages) == 0 {
		return nil
	}

	messageIDs := make([]string, len(resp.Messages))
	for i, msg := range resp.Messages {
		messageIDs[i] = msg.Id
	}
	existing, err := s.emailRepo.FindByMessageIDs(ctx, messageIDs)
	if err != nil {
		s.logger.Error("Failed to check existing emails", "error", err)
		existing = make(map[string]*entity.ImportEmail)
	}

	newCount := 0
	importedCount := 0
	for _, msg := range resp.Messages {
		if _, ok := existing[msg.Id]; ok {
			continue
		}

		fullMsg, err := s.gmailService.Users.Messages.Get("me", msg.Id).Do()
		if err != nil {
			s.logger.Error("Failed to get message", "msgId", msg.Id, "error", err)
			continue
		}

		email, err := s.convertToEmail(fullMsg)
		if err != nil {
			s.logger.Error("Failed to convert message", "msgId", msg.Id, "error", err)
			continue
		}

		if err := s.emailRepo.Save(ctx, email); err != nil {
			s.logger.Error("Failed to save email", "messageId", email.MessageID, "error", err)
			continue
		}
		newCount++

		if err := s.importer.ProcessEmail(ctx, email); err != nil {
			s.logger.Error("Failed to import email", "messageId", email.MessageID, "error", err)
		} else {
			importedCount++
		}
	}

	if newCount > 0 {
		s.logger.Info("Email fetch completed",
			"totalMessages", len(resp.Messages),
			"newEmails", newCount,
			"importedEmails", importedCount)
	}
	return nil
}

// convertToEmail converts a Gmail message to the domain entity.
func (s *GmailService) convertToEmail(msg *gmail.Message) (*entity.ImportEmail, error) {
	email := &entity.ImportEmail{
		MessageID:     msg.Id,
		Labels:        msg.LabelIds,
		ProcessStatus: entity.StatusPending,
	}

	for _, header := range msg.Payload.Headers {
		switch header.Name {
		case "From":
			email.From = header.Value
		case "To":
			email.To = header.Value
		case "Subject":
			email.Subject = header.Value
		}
	}

	if msg.Payload.Body != nil && msg.Payload.Body.Data != "" {
		data, err := base64.URLEncoding.DecodeString(msg.Payload.Body.Data)
		if err != nil {
			return nil, err
		}
		email.Body = string(data)
	}

	for _, part := range msg.Payload.Parts {
		if part.MimeType == "text/plain" && part.Body != nil {
			if data, err := base64.URLEncoding.DecodeString(part.Body.Data); err == nil {
				email.Body = string(data)
			}
		} else if part.MimeType == "text/html" && part.Body != nil {
			if data, err := base64.URLEncoding.DecodeString(part.Body.Data); err == nil {
				email.HTMLBody = string(data)
			}
		} else if part.Filename != "" && part.Body != nil {
			if data, err := base64.URLEncoding.DecodeString(part.Body.Data); err == nil {
				email.Attachments = append(email.Attachments, entity.EmailAttachment{
					Filename:    part.Filename,
					ContentType: part.MimeType,
					Data:        data,
				})
			}
		}
	}

	email.ReceivedAt = time.Unix(0, msg.InternalDate*1000000)
	return email, nil
}
