package usecase

import (
	"itinerary-service/internal/domain/entity"
)

// LegNormalizer decides which slot a leg belongs to relative to the
// configured home airport. It is the only place in the engine that decides
// slot membership.
type LegNormalizer struct {
	homeAirport string
}

// NewLegNormalizer creates a normalizer for the given home airport code.
func NewLegNormalizer(homeAirport string) *LegNormalizer {
	return &LegNormalizer{homeAirport: homeAirport}
}

// HomeAirport returns the configured home airport code.
func (n *LegNormalizer) HomeAirport() string {
	return n.homeAirport
}

// Direction classifies a leg: inbound when its arrival airport is the home
// airport, outbound otherwise. ok is false when either airport code is
// missing; such a leg cannot be classified.
func (n *LegNormalizer) Direction(leg entity.FlightLeg) (entity.LegSlot, bool) {
	if !leg.HasAirports() {
		return entity.SlotOutbound, false
	}
	if leg.ArrivalAirport == n.homeAirport {
		return entity.SlotInbound, true
	}
	return entity.SlotOutbound, true
}

// Normalize corrects a one-way trip stored under the wrong slot. Round trips,
// trips with unclassifiable legs and trips already in the right slot are
// returned unchanged. Idempotent.
func (n *LegNormalizer) Normalize(trip entity.Trip) (entity.Trip, bool) {
	if !trip.IsOneWay() || trip.Leg == nil {
		return trip, false
	}
	slot, ok := n.Direction(*trip.Leg)
	if !ok || slot == trip.Slot {
		return trip, false
	}
	trip.Slot = slot
	return trip, true
}

// resolveSlot returns the slot a one-way trip's leg actually belongs to,
// falling back to the stored slot when the leg cannot be classified.
func (n *LegNormalizer) resolveSlot(trip *entity.Trip) entity.LegSlot {
	if trip.Leg != nil {
		if slot, ok := n.Direction(*trip.Leg); ok {
			return slot
		}
	}
	return trip.Slot
}
