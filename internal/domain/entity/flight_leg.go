package entity

import (
	"time"
)

// LegSlot is the role a leg plays relative to the configured home airport.
type LegSlot string

const (
	SlotOutbound LegSlot = "outbound"
	SlotInbound  LegSlot = "inbound"
)

// Complement returns the opposite slot.
func (s LegSlot) Complement() LegSlot {
	if s == SlotOutbound {
		return SlotInbound
	}
	return SlotOutbound
}

// FlightLeg is one scheduled flight segment.
type FlightLeg struct {
	FlightNumber     string     `bson:"flightNumber" json:"flightNumber"`
	Airline          string     `bson:"airline" json:"airline"`
	DepartureAirport string     `bson:"departureAirport" json:"departureAirport"`
	DepartureCity    string     `bson:"departureCity" json:"departureCity"`
	ArrivalAirport   string     `bson:"arrivalAirport" json:"arrivalAirport"`
	ArrivalCity      string     `bson:"arrivalCity" json:"arrivalCity"`
	DepartureTime    *time.Time `bson:"departureTime" json:"departureTime"`
	ArrivalTime      *time.Time `bson:"arrivalTime" json:"arrivalTime"`
	Cost             *float64   `bson:"cost,omitempty" json:"cost,omitempty"`
	PaymentMethod    *string    `bson:"paymentMethod,omitempty" json:"paymentMethod,omitempty"`
	ReservationCode  *string    `bson:"reservationCode,omitempty" json:"reservationCode,omitempty"`
}

// HasAirports reports whether both airport codes are present. A leg without
// both codes cannot be classified or paired.
func (l FlightLeg) HasAirports() bool {
	return l.DepartureAirport != "" && l.ArrivalAirport != ""
}

// HasDeparture reports whether the leg carries a departure timestamp. A leg
// without one is inert: it never participates in pairing, duplicate
// detection or normalization.
func (l FlightLeg) HasDeparture() bool {
	return l.DepartureTime != nil && !l.DepartureTime.IsZero()
}

// Reservation returns the reservation code or "" when absent.
func (l FlightLeg) Reservation() string {
	if l.ReservationCode == nil {
		return ""
	}
	return *l.ReservationCode
}
