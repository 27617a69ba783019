package entity

import (
	"time"
)

// Import email process status
const (
	StatusPending    = "PENDING"
	StatusProcessing = "PROCESSING"
	StatusCompleted  = "COMPLETED"
	StatusFailed     = "FAILED"
	StatusSkipped    = "SKIPPED"
)

// ImportEmail is a booking confirmation pulled from the Gmail inbox, waiting
// to be turned into flight-leg candidates.
type ImportEmail struct {
	MessageID        string                 `bson:"messageId"`
	From             string                 `bson:"from"`
	To               string                 `bson:"to"`
	Subject          string                 `bson:"subject"`
	Body             string                 `bson:"body"`
	HTMLBody         string                 `bson:"htmlBody"`
	ReceivedAt       time.Time              `bson:"receivedAt"`
	Attachments      []EmailAttachment      `bson:"attachments"`
	Labels           []string               `bson:"labels"`
	ProcessStatus    string                 `bson:"processStatus"`
	ProcessStartedAt time.Time              `bson:"processStartedAt"`
	ProcessedAt      time.Time              `bson:"processedAt"`
	ImportSteps      ImportSteps            `bson:"importSteps"`
	ErrorDetail      string                 `bson:"errorDetail"`
	ExtractedData    map[string]interface{} `bson:"extractedData"`
}

// EmailAttachment is a raw attachment carried by an import email.
type EmailAttachment struct {
	Filename    string `bson:"filename"`
	ContentType string `bson:"contentType"`
	Data        []byte `bson:"data"`
}

// ImportSteps tracks how far the import of one email got.
type ImportSteps struct {
	LegsExtracted     int `bson:"legsExtracted"`
	LegsStored        int `bson:"legsStored"`
	LegsPaired        int `bson:"legsPaired"`
	DuplicatesSkipped int `bson:"duplicatesSkipped"`
}
