package usecase_test

import (
	"testing"
	"time"

	"itinerary-service/internal/domain/entity"
	"itinerary-service/internal/usecase"
)

const testHome = "AEP"

func mkLeg(flight, from, to string, departure time.Time) entity.FlightLeg {
	d := departure
	a := departure.Add(2 * time.Hour)
	return entity.FlightLeg{
		FlightNumber:     flight,
		DepartureAirport: from,
		ArrivalAirport:   to,
		DepartureTime:    &d,
		ArrivalTime:      &a,
	}
}

var baseDeparture = time.Date(2025, 10, 21, 10, 30, 0, 0, time.UTC)

func TestLegNormalizer_Direction(t *testing.T) {
	t.Parallel()

	n := usecase.NewLegNormalizer(testHome)

	tests := []struct {
		name     string
		from, to string
		want     entity.LegSlot
		wantOK   bool
	}{
		{"arrival at home is inbound", "SLA", "AEP", entity.SlotInbound, true},
		{"departure from home is outbound", "AEP", "SLA", entity.SlotOutbound, true},
		{"neither airport is home defaults to outbound", "SLA", "COR", entity.SlotOutbound, true},
		{"missing departure airport unclassifiable", "", "AEP", entity.SlotOutbound, false},
		{"missing arrival airport unclassifiable", "AEP", "", entity.SlotOutbound, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := n.Direction(mkLeg("AR1450", tt.from, tt.to, baseDeparture))
			if ok != tt.wantOK {
				t.Fatalf("ok=%v, want %v", ok, tt.wantOK)
			}
			if tt.wantOK && got != tt.want {
				t.Fatalf("slot=%s, want %s", got, tt.want)
			}
		})
	}
}

func TestLegNormalizer_Normalize_FixesMisstoredSlot(t *testing.T) {
	t.Parallel()

	n := usecase.NewLegNormalizer(testHome)

	// Inbound leg stored under the outbound slot.
	trip := entity.NewOneWay("t1", "u1", entity.SlotOutbound, mkLeg("AR1450", "SLA", "AEP", baseDeparture), nil, baseDeparture)

	fixed, changed := n.Normalize(trip)
	if !changed {
		t.Fatalf("expected a correction")
	}
	if fixed.Slot != entity.SlotInbound {
		t.Fatalf("slot=%s, want %s", fixed.Slot, entity.SlotInbound)
	}

	// Idempotent: a second pass changes nothing.
	again, changed := n.Normalize(fixed)
	if changed {
		t.Fatalf("second normalize reported a change")
	}
	if again.Slot != fixed.Slot {
		t.Fatalf("slot drifted from %s to %s", fixed.Slot, again.Slot)
	}
}

func TestLegNormalizer_Normalize_LeavesCorrectAndUnclassifiableAlone(t *testing.T) {
	t.Parallel()

	n := usecase.NewLegNormalizer(testHome)

	correct := entity.NewOneWay("t1", "u1", entity.SlotInbound, mkLeg("AR1450", "SLA", "AEP", baseDeparture), nil, baseDeparture)
	if _, changed := n.Normalize(correct); changed {
		t.Fatalf("correctly stored trip was changed")
	}

	missing := mkLeg("AR1450", "", "AEP", baseDeparture)
	unclassifiable := entity.NewOneWay("t2", "u1", entity.SlotOutbound, missing, nil, baseDeparture)
	got, changed := n.Normalize(unclassifiable)
	if changed {
		t.Fatalf("unclassifiable trip was changed")
	}
	if got.Slot != entity.SlotOutbound {
		t.Fatalf("slot=%s, want untouched %s", got.Slot, entity.SlotOutbound)
	}

	round := entity.NewRoundTrip("t3", "u1", mkLeg("AR1450", "AEP", "SLA", baseDeparture), mkLeg("AR1451", "SLA", "AEP", baseDeparture.AddDate(0, 0, 4)), nil, baseDeparture)
	if _, changed := n.Normalize(round); changed {
		t.Fatalf("round trip was changed")
	}
}
