package usecase

import (
	"time"

	"itinerary-service/internal/domain/entity"
)

// Pairing score bands by gap between the two departures, in days. Most real
// round trips are short, so temporal proximity dominates; an equal
// reservation code is an authoritative tie-breaker on top.
const (
	scoreTight  = 100 // 1-5 days apart
	scoreMedium = 50  // 6-15 days apart
	scoreLoose  = 20  // 16-45 days apart

	reservationBonus = 30

	maxPairGapDays = 45
)

// PairScore computes the compatibility score between two one-way legs. It
// returns ok=false when the legs cannot pair at all: airports not mutually
// reversed, a missing departure timestamp, or a gap outside the allowed
// window. Pure; never mutates its inputs.
func PairScore(a, b entity.FlightLeg) (int, bool) {
	if !a.HasAirports() || !b.HasAirports() {
		return 0, false
	}
	if a.DepartureAirport != b.ArrivalAirport || a.ArrivalAirport != b.DepartureAirport {
		return 0, false
	}
	if !a.HasDeparture() || !b.HasDeparture() {
		return 0, false
	}

	gap := daysBetween(*a.DepartureTime, *b.DepartureTime)
	if gap < 0 {
		gap = -gap
	}

	var score int
	switch {
	case gap >= 1 && gap <= 5:
		score = scoreTight
	case gap >= 6 && gap <= 15:
		score = scoreMedium
	case gap >= 16 && gap <= maxPairGapDays:
		score = scoreLoose
	default:
		return 0, false
	}

	if code := a.Reservation(); code != "" && code == b.Reservation() {
		score += reservationBonus
	}
	return score, true
}

// daysBetween counts whole calendar days from a to b, ignoring time of day.
func daysBetween(a, b time.Time) int {
	ad := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bd := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(bd.Sub(ad) / (24 * time.Hour))
}
