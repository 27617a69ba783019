package usecase

import (
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"itinerary-service/internal/domain/entity"
	"itinerary-service/pkg/logger"
)

var (
	// ErrNotOneWay is returned when a merge input already holds two legs.
	ErrNotOneWay = errors.New("merge requires two one-way trips")
	// ErrSameTrip is returned when both merge inputs are the same record.
	ErrSameTrip = errors.New("cannot merge a trip with itself")
	// ErrSameSlot is returned when both merge inputs resolve to the same
	// slot. Proceeding would silently overwrite one leg.
	ErrSameSlot = errors.New("both legs resolve to the same slot")
	// ErrNotRoundTrip is returned when split is asked for a one-way trip.
	ErrNotRoundTrip = errors.New("split requires a round trip")
)

// MergeOutcome is the computed effect of merging two one-way trips: the
// surviving round-trip record, plus what must disappear. LoserSlot is the
// slot the losing leg ends up holding on the survivor, so callers can re-key
// attachments.
type MergeOutcome struct {
	Trip      *entity.Trip
	LoserID   string
	LoserSlot entity.LegSlot
}

// SweepOutcome is the plan produced by a full consolidation sweep: slot
// corrections for trips that stay one-way, and merges to apply. Running the
// sweep again on a collection with the plan applied yields an empty outcome.
type SweepOutcome struct {
	Normalized []*entity.Trip
	Merges     []MergeOutcome
}

// Empty reports whether the sweep found nothing to change.
func (o SweepOutcome) Empty() bool {
	return len(o.Normalized) == 0 && len(o.Merges) == 0
}

// Consolidator is the pure decision core: which legs pair, which record
// survives a merge, and what a full sweep over a user's trips should change.
// It performs no I/O; callers apply its outcomes against the store.
type Consolidator struct {
	normalizer *LegNormalizer
	logger     logger.Logger
	newID      func() string
}

// NewConsolidator creates a consolidator around the given normalizer.
func NewConsolidator(normalizer *LegNormalizer, log logger.Logger) *Consolidator {
	return &Consolidator{
		normalizer: normalizer,
		logger:     log,
		newID:      uuid.NewString,
	}
}

// SetNewIDForTest overrides trip ID generation for deterministic tests.
func (c *Consolidator) SetNewIDForTest(fn func() string) {
	if fn != nil {
		c.newID = fn
	}
}

// Normalizer exposes the slot decision logic the consolidator is built on.
func (c *Consolidator) Normalizer() *LegNormalizer {
	return c.normalizer
}

// BestMatch selects the pairing partner for a leg among the given trips:
// one-way trips in the complementary slot, scored by PairScore, strictly
// highest score first. Ties break by earliest candidate departure, then by
// smaller trip ID, so selection is deterministic. Returns nil when no
// candidate scores at all.
func (c *Consolidator) BestMatch(leg entity.FlightLeg, slot entity.LegSlot, trips []*entity.Trip) *entity.Trip {
	want := slot.Complement()

	var best *entity.Trip
	bestScore := -1

	for _, cand := range trips {
		if cand == nil || !cand.IsOneWay() || cand.Leg == nil {
			continue
		}
		if c.normalizer.resolveSlot(cand) != want {
			continue
		}
		score, ok := PairScore(leg, *cand.Leg)
		if !ok {
			continue
		}
		if best == nil || score > bestScore || (score == bestScore && candidateBefore(cand, best)) {
			best = cand
			bestScore = score
		}
	}
	return best
}

// candidateBefore orders equal-score candidates: earliest departure wins,
// then the lexicographically smaller trip ID.
func candidateBefore(a, b *entity.Trip) bool {
	ad, bd := a.Leg.DepartureTime, b.Leg.DepartureTime
	if !ad.Equal(*bd) {
		return ad.Before(*bd)
	}
	return a.ID < b.ID
}

// Merge computes the round trip resulting from two one-way trips. Slots are
// re-derived from airport codes, never trusted from the stored labels; a pair
// that resolves to the same slot is rejected. The record with the earlier
// creation time survives (ties break on the smaller ID) so identifiers stay
// stable across repeated merges. Deterministic: the same two inputs always
// produce the same surviving content.
func (c *Consolidator) Merge(a, b *entity.Trip, now time.Time) (MergeOutcome, error) {
	if a == nil || b == nil || !a.IsOneWay() || !b.IsOneWay() || a.Leg == nil || b.Leg == nil {
		return MergeOutcome{}, ErrNotOneWay
	}
	if a.ID == b.ID {
		return MergeOutcome{}, ErrSameTrip
	}

	slotA := c.normalizer.resolveSlot(a)
	slotB := c.normalizer.resolveSlot(b)
	if slotA == slotB {
		return MergeOutcome{}, ErrSameSlot
	}

	outboundTrip, inboundTrip := a, b
	if slotA == entity.SlotInbound {
		outboundTrip, inboundTrip = b, a
	}

	survivor, loser := a, b
	if b.CreatedAt.Before(a.CreatedAt) || (b.CreatedAt.Equal(a.CreatedAt) && b.ID < a.ID) {
		survivor, loser = b, a
	}

	purchase := earlierPurchaseDate(a.PurchaseDate, b.PurchaseDate)
	if purchase == nil {
		if outboundTrip.Leg.HasDeparture() {
			d := *outboundTrip.Leg.DepartureTime
			purchase = &d
		} else {
			n := now
			purchase = &n
		}
	}

	merged := entity.NewRoundTrip(survivor.ID, survivor.UserID, *outboundTrip.Leg, *inboundTrip.Leg, purchase, survivor.CreatedAt)
	merged.UpdatedAt = now

	loserSlot := slotA
	if loser == b {
		loserSlot = slotB
	}

	c.logger.Debug("Merged one-way trips into round trip",
		"survivor", survivor.ID,
		"loser", loser.ID,
		"loserSlot", loserSlot)

	return MergeOutcome{Trip: &merged, LoserID: loser.ID, LoserSlot: loserSlot}, nil
}

// Split computes the two one-way trips a round trip decomposes into. New
// identifiers are minted; purchase date and creation time are inherited so
// re-normalization and future pairing see consistent ages. The original
// record is retired by the caller.
func (c *Consolidator) Split(trip *entity.Trip, now time.Time) (*entity.Trip, *entity.Trip, error) {
	if trip == nil || !trip.IsRoundTrip() || trip.Outbound == nil || trip.Inbound == nil {
		return nil, nil, ErrNotRoundTrip
	}

	outbound := entity.NewOneWay(c.newID(), trip.UserID, entity.SlotOutbound, *trip.Outbound, trip.PurchaseDate, trip.CreatedAt)
	inbound := entity.NewOneWay(c.newID(), trip.UserID, entity.SlotInbound, *trip.Inbound, trip.PurchaseDate, trip.CreatedAt)
	outbound.UpdatedAt = now
	inbound.UpdatedAt = now

	c.logger.Debug("Split round trip",
		"trip", trip.ID,
		"outbound", outbound.ID,
		"inbound", inbound.ID)

	return &outbound, &inbound, nil
}

// Sweep re-derives the canonical slot for every one-way trip, then greedily
// pairs complementary one-way trips until no further merge is possible.
// Trips with unresolvable legs are left untouched and excluded from
// matching. Pure over the snapshot; "now" is taken once by the caller. The
// sweep over its own applied output changes nothing.
func (c *Consolidator) Sweep(trips []*entity.Trip, now time.Time) SweepOutcome {
	var outcome SweepOutcome

	// Phase 1: slot corrections, on private copies of the snapshot.
	working := make([]*entity.Trip, 0, len(trips))
	corrected := make(map[string]bool)
	for _, t := range trips {
		if t == nil {
			continue
		}
		cp := *t
		if cp.IsOneWay() {
			fixed, changed := c.normalizer.Normalize(cp)
			cp = fixed
			if changed {
				corrected[cp.ID] = true
			}
		}
		working = append(working, &cp)
	}

	// Phase 2: greedy pairing, first acceptable match per leg, in a
	// deterministic order.
	eligible := make([]*entity.Trip, 0, len(working))
	for _, t := range working {
		if t.IsOneWay() && t.Leg != nil && t.Leg.HasDeparture() && t.Leg.HasAirports() {
			eligible = append(eligible, t)
		}
	}
	sort.Slice(eligible, func(i, j int) bool {
		if !eligible[i].CreatedAt.Equal(eligible[j].CreatedAt) {
			return eligible[i].CreatedAt.Before(eligible[j].CreatedAt)
		}
		return eligible[i].ID < eligible[j].ID
	})

	consumed := make(map[string]bool)
	for _, t := range eligible {
		if consumed[t.ID] {
			continue
		}
		var candidates []*entity.Trip
		for _, cand := range eligible {
			if cand.ID == t.ID || consumed[cand.ID] {
				continue
			}
			candidates = append(candidates, cand)
		}
		partner := c.BestMatch(*t.Leg, c.normalizer.resolveSlot(t), candidates)
		if partner == nil {
			continue
		}
		merge, err := c.Merge(t, partner, now)
		if err != nil {
			// resolved slots raced a bad candidate filter; skip the pair
			c.logger.Warn("Sweep merge rejected", "trip", t.ID, "partner", partner.ID, "error", err)
			continue
		}
		consumed[t.ID] = true
		consumed[partner.ID] = true
		outcome.Merges = append(outcome.Merges, merge)
	}

	// Slot corrections for trips that stayed one-way; merged records already
	// carry the corrected legs.
	for _, t := range working {
		if corrected[t.ID] && !consumed[t.ID] {
			t.UpdatedAt = now
			outcome.Normalized = append(outcome.Normalized, t)
		}
	}

	return outcome
}
