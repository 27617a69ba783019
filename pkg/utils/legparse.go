package utils

import (
	"context"
	"regexp"
	"strings"
	"time"

	"itinerary-service/internal/domain/entity"
	"itinerary-service/internal/domain/repository"
	"itinerary-service/pkg/logger"
)

// DateLayout is the timestamp format used in tabular itinerary text.
const DateLayout = "02 Jan 2006 15:04"

// ItineraryParser extracts flight-leg candidates from plain booking text. It
// is the fallback extractor used when no external extraction service is
// configured, and it implements the same LegExtractor contract.
type ItineraryParser struct {
	logger logger.Logger
}

// NewItineraryParser creates a new parser.
func NewItineraryParser(log logger.Logger) *ItineraryParser {
	return &ItineraryParser{logger: log}
}

// Segment lines look like:
//
//	AR1450  SLA  AEP  21 Oct 2025 10:30  21 Oct 2025 12:45
//
// with flexible spacing between columns.
var segmentRegex = regexp.MustCompile(`(?m)^\s*([A-Z0-9]{2}\s?\d{1,4})\s+([A-Z]{3,4})\s+([A-Z]{3,4})\s+(\d{2}\s+\w{3}\s+\d{4}\s+\d{2}:\d{2})\s+(\d{2}\s+\w{3}\s+\d{4}\s+\d{2}:\d{2})\s*$`)

var (
	reservationRegex  = regexp.MustCompile(`(?im)^\s*(?:booking|reservation|confirmation)\s*(?:code|reference|number)?\s*[:#]\s*([A-Z0-9]{5,8})\s*$`)
	airlineRegex      = regexp.MustCompile(`(?im)^\s*airline\s*[:#]\s*(.+?)\s*$`)
	purchaseDateRegex = regexp.MustCompile(`(?im)^\s*(?:purchase|payment|issued?)\s*(?:date)?\s*[:#]\s*(\d{2}\s+\w{3}\s+\d{4})\s*$`)
)

// ExtractLegs parses tabular itinerary text into flight-leg candidates plus
// an optional purchase date. Lines that do not match are skipped; a text
// with no recognizable segments yields an empty result, not an error.
func (p *ItineraryParser) ExtractLegs(_ context.Context, text string) (*repository.ExtractionResult, error) {
	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")

	result := &repository.ExtractionResult{}

	var reservation *string
	if m := reservationRegex.FindStringSubmatch(normalized); len(m) == 2 {
		code := strings.ToUpper(m[1])
		reservation = &code
	}
	airline := ""
	if m := airlineRegex.FindStringSubmatch(normalized); len(m) == 2 {
		airline = strings.TrimSpace(m[1])
	}
	if m := purchaseDateRegex.FindStringSubmatch(normalized); len(m) == 2 {
		if ts, err := time.Parse("02 Jan 2006", m[1]); err == nil {
			result.PurchaseDate = &ts
		}
	}

	for _, match := range segmentRegex.FindAllStringSubmatch(normalized, -1) {
		flightNo := strings.ReplaceAll(match[1], " ", "")
		from := match[2]
		to := match[3]

		depart, err := time.Parse(DateLayout, collapseSpaces(match[4]))
		if err != nil {
			p.logger.Warn("Skipping segment with unparseable departure", "flightNo", flightNo, "value", match[4])
			continue
		}
		arrive, err := time.Parse(DateLayout, collapseSpaces(match[5]))
		if err != nil {
			p.logger.Warn("Skipping segment with unparseable arrival", "flightNo", flightNo, "value", match[5])
			continue
		}

		leg := entity.FlightLeg{
			FlightNumber:     flightNo,
			Airline:          airline,
			DepartureAirport: from,
			ArrivalAirport:   to,
			DepartureTime:    &depart,
			ArrivalTime:      &arrive,
			ReservationCode:  reservation,
		}
		result.Legs = append(result.Legs, leg)
	}

	p.logger.Debug("Parsed itinerary text", "segments", len(result.Legs))
	return result, nil
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
