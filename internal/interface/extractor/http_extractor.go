package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"itinerary-service/internal/domain/entity"
	"itinerary-service/internal/domain/repository"
	"itinerary-service/pkg/logger"
)

// HTTPExtractor calls the external text-extraction service that turns
// free-form itinerary text into structured flight-leg candidates.
type HTTPExtractor struct {
	logger      logger.Logger
	baseURL     string
	bearerToken string
	client      *http.Client
}

// NewHTTPExtractor creates a new extraction client.
func NewHTTPExtractor(baseURL, bearerToken string, log logger.Logger) repository.LegExtractor {
	return &HTTPExtractor{
		logger:      log,
		baseURL:     baseURL,
		bearerToken: bearerToken,
		client:      &http.Client{Timeout: 60 * time.Second},
	}
}

type extractRequest struct {
	Text string `json:"text"`
}

type extractedLeg struct {
	FlightNumber     string  `json:"flightNumber"`
	Airline          string  `json:"airline"`
	DepartureAirport string  `json:"departureAirport"`
	DepartureCity    string  `json:"departureCity"`
	ArrivalAirport   string  `json:"arrivalAirport"`
	ArrivalCity      string  `json:"arrivalCity"`
	DepartureTime    string  `json:"departureTime"`
	ArrivalTime      string  `json:"arrivalTime"`
	Cost             *float64 `json:"cost,omitempty"`
	PaymentMethod    *string `json:"paymentMethod,omitempty"`
	ReservationCode  *string `json:"reservationCode,omitempty"`
}

type extractResponse struct {
	Legs         []extractedLeg `json:"legs"`
	PurchaseDate string         `json:"purchaseDate,omitempty"`
}

// ExtractLegs posts the text to the extraction service and maps the response
// into domain legs. Unparseable timestamps are dropped to nil rather than
// failing the whole candidate, so one bad field cannot sink an import.
func (e *HTTPExtractor) ExtractLegs(ctx context.Context, text string) (*repository.ExtractionResult, error) {
	body, err := json.Marshal(extractRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := e.baseURL + "/v1/extract"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+e.bearerToken)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call extraction service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("extraction service returned %d: %s", resp.StatusCode, string(payload))
	}

	var parsed extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	result := &repository.ExtractionResult{}
	for _, raw := range parsed.Legs {
		leg := entity.FlightLeg{
			FlightNumber:     raw.FlightNumber,
			Airline:          raw.Airline,
			DepartureAirport: raw.DepartureAirport,
			DepartureCity:    raw.DepartureCity,
			ArrivalAirport:   raw.ArrivalAirport,
			ArrivalCity:      raw.ArrivalCity,
			DepartureTime:    parseTimestamp(raw.DepartureTime),
			ArrivalTime:      parseTimestamp(raw.ArrivalTime),
			Cost:             raw.Cost,
			PaymentMethod:    raw.PaymentMethod,
			ReservationCode:  raw.ReservationCode,
		}
		result.Legs = append(result.Legs, leg)
	}
	result.PurchaseDate = parseTimestamp(parsed.PurchaseDate)

	e.logger.Debug("Extraction service returned candidates", "count", len(result.Legs))
	return result, nil
}

func parseTimestamp(value string) *time.Time {
	if value == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04", "2006-01-02"} {
		if ts, err := time.Parse(layout, value); err == nil {
			return &ts
		}
	}
	return nil
}
