package usecase

import (
	"strings"
	"time"

	"itinerary-service/internal/domain/entity"
)

// CanonicalFlightNumber upper-cases a flight number and strips all
// whitespace, so "ar 1450" and "AR1450" compare equal.
func CanonicalFlightNumber(number string) string {
	return strings.ToUpper(strings.Join(strings.Fields(number), ""))
}

// sameCalendarDay compares the calendar dates of two timestamps, ignoring
// time of day.
func sameCalendarDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// IsDuplicate reports whether the candidate leg already exists in the stored
// trips: same canonical flight number (non-empty on both sides) and same
// departure calendar date. Both slots of every trip are checked. Pure.
func IsDuplicate(candidate entity.FlightLeg, trips []*entity.Trip) bool {
	number := CanonicalFlightNumber(candidate.FlightNumber)
	if number == "" || !candidate.HasDeparture() {
		return false
	}
	for _, trip := range trips {
		if trip == nil {
			continue
		}
		for _, leg := range trip.Legs() {
			if !leg.HasDeparture() {
				continue
			}
			if CanonicalFlightNumber(leg.FlightNumber) != number {
				continue
			}
			if sameCalendarDay(*leg.DepartureTime, *candidate.DepartureTime) {
				return true
			}
		}
	}
	return false
}
