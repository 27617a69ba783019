package entity

import (
	"time"
)

// TripKind tags the two trip variants.
type TripKind string

const (
	TripOneWay    TripKind = "one_way"
	TripRoundTrip TripKind = "round_trip"
)

// Trip is the unit of storage and display. A one-way trip holds a single leg
// under Slot; a round trip holds exactly one outbound and one inbound leg.
// The constructors are the only intended way to build a Trip, so a record can
// never hold two legs of the same slot.
type Trip struct {
	ID           string     `bson:"_id"`
	UserID       string     `bson:"userId"`
	Kind         TripKind   `bson:"kind"`
	Slot         LegSlot    `bson:"slot,omitempty"`
	Leg          *FlightLeg `bson:"leg,omitempty"`
	Outbound     *FlightLeg `bson:"outbound,omitempty"`
	Inbound      *FlightLeg `bson:"inbound,omitempty"`
	PurchaseDate *time.Time `bson:"purchaseDate,omitempty"`
	CreatedAt    time.Time  `bson:"createdAt"`
	UpdatedAt    time.Time  `bson:"updatedAt"`
}

// NewOneWay builds a one-way trip holding a single leg in the given slot.
func NewOneWay(id, userID string, slot LegSlot, leg FlightLeg, purchaseDate *time.Time, createdAt time.Time) Trip {
	l := leg
	return Trip{
		ID:           id,
		UserID:       userID,
		Kind:         TripOneWay,
		Slot:         slot,
		Leg:          &l,
		PurchaseDate: cloneTime(purchaseDate),
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}
}

// NewRoundTrip builds a round trip from an outbound and an inbound leg.
func NewRoundTrip(id, userID string, outbound, inbound FlightLeg, purchaseDate *time.Time, createdAt time.Time) Trip {
	o, i := outbound, inbound
	return Trip{
		ID:           id,
		UserID:       userID,
		Kind:         TripRoundTrip,
		Outbound:     &o,
		Inbound:      &i,
		PurchaseDate: cloneTime(purchaseDate),
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}
}

// IsOneWay reports whether the trip holds a single leg.
func (t Trip) IsOneWay() bool {
	return t.Kind == TripOneWay
}

// IsRoundTrip reports whether the trip holds both legs.
func (t Trip) IsRoundTrip() bool {
	return t.Kind == TripRoundTrip
}

// Legs returns every leg the trip holds, outbound first for round trips.
func (t Trip) Legs() []FlightLeg {
	switch t.Kind {
	case TripOneWay:
		if t.Leg == nil {
			return nil
		}
		return []FlightLeg{*t.Leg}
	case TripRoundTrip:
		var out []FlightLeg
		if t.Outbound != nil {
			out = append(out, *t.Outbound)
		}
		if t.Inbound != nil {
			out = append(out, *t.Inbound)
		}
		return out
	}
	return nil
}

// LegInSlot returns the leg stored under the given slot, if any.
func (t Trip) LegInSlot(slot LegSlot) *FlightLeg {
	switch t.Kind {
	case TripOneWay:
		if t.Slot == slot {
			return t.Leg
		}
		return nil
	case TripRoundTrip:
		if slot == SlotOutbound {
			return t.Outbound
		}
		return t.Inbound
	}
	return nil
}

func cloneTime(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
