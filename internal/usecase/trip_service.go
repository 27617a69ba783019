package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"itinerary-service/internal/domain/entity"
	"itinerary-service/internal/domain/repository"
	"itinerary-service/pkg/logger"
	"itinerary-service/pkg/metrics"
)

// IngestStatus is the distinguished outcome of a leg submission.
type IngestStatus string

const (
	// IngestCreated means the leg was stored as a standalone one-way trip.
	IngestCreated IngestStatus = "created"
	// IngestPaired means the leg was merged into an existing one-way trip.
	IngestPaired IngestStatus = "paired"
	// IngestDuplicate means the leg already exists and was discarded. Not an
	// error; callers show a notice and move on.
	IngestDuplicate IngestStatus = "duplicate"
)

// IngestResult reports what happened to a submitted leg.
type IngestResult struct {
	Status IngestStatus
	Trip   *entity.Trip
}

// TripService applies the consolidator's decisions against the persistent
// store and the attachment store. All engine decisions are computed over a
// snapshot fetched at the start of each operation; "now" is read once per
// invocation.
type TripService struct {
	trips        repository.TripRepository
	attachments  repository.AttachmentRepository
	airports     repository.AirportRepository
	consolidator *Consolidator
	metrics      *metrics.Metrics
	logger       logger.Logger

	now   func() time.Time
	newID func() string
}

// NewTripService creates a trip service. airports and m may be nil; city
// enrichment and metrics are then skipped.
func NewTripService(
	trips repository.TripRepository,
	attachments repository.AttachmentRepository,
	airports repository.AirportRepository,
	consolidator *Consolidator,
	m *metrics.Metrics,
	log logger.Logger,
) *TripService {
	return &TripService{
		trips:        trips,
		attachments:  attachments,
		airports:     airports,
		consolidator: consolidator,
		metrics:      m,
		logger:       log,
		now:          func() time.Time { return time.Now().UTC() },
		newID:        uuid.NewString,
	}
}

// SetNowForTest overrides the clock for deterministic tests.
func (s *TripService) SetNowForTest(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// SetNewIDForTest overrides trip ID generation for deterministic tests.
func (s *TripService) SetNewIDForTest(fn func() string) {
	if fn != nil {
		s.newID = fn
		s.consolidator.SetNewIDForTest(fn)
	}
}

// IngestLeg runs a candidate leg through duplicate detection, direction
// inference and automatic pairing, then persists the result. At most one
// merge happens per ingested leg.
func (s *TripService) IngestLeg(ctx context.Context, userID string, leg entity.FlightLeg, purchaseDate *time.Time) (IngestResult, error) {
	now := s.now()
	s.enrichCities(ctx, &leg)

	snapshot, err := s.trips.FindByUser(ctx, userID)
	if err != nil {
		s.countError("ingest")
		return IngestResult{}, fmt.Errorf("load trips: %w", err)
	}

	// A leg without a departure timestamp is inert data: stored, but never
	// deduplicated or paired.
	if leg.HasDeparture() {
		if IsDuplicate(leg, snapshot) {
			s.logger.Info("Duplicate leg discarded",
				"userId", userID,
				"flightNumber", leg.FlightNumber)
			if s.metrics != nil {
				s.metrics.DuplicatesRejected.Inc()
			}
			return IngestResult{Status: IngestDuplicate}, nil
		}
	}

	slot, classifiable := s.consolidator.Normalizer().Direction(leg)
	trip := entity.NewOneWay(s.newID(), userID, slot, leg, purchaseDate, now)

	if classifiable && leg.HasDeparture() {
		if partner := s.consolidator.BestMatch(leg, slot, snapshot); partner != nil {
			merge, err := s.consolidator.Merge(&trip, partner, now)
			if err == nil {
				if err := s.applyIngestMerge(ctx, merge, &trip, partner); err != nil {
					s.countError("ingest")
					return IngestResult{}, err
				}
				if s.metrics != nil {
					s.metrics.LegsIngested.Inc()
					s.metrics.TripsMerged.Inc()
				}
				return IngestResult{Status: IngestPaired, Trip: merge.Trip}, nil
			}
			s.logger.Warn("Auto-pairing rejected", "partner", partner.ID, "error", err)
		}
	}

	if err := s.trips.Create(ctx, &trip); err != nil {
		s.countError("ingest")
		return IngestResult{}, fmt.Errorf("create trip: %w", err)
	}
	s.logger.Info("Stored one-way trip",
		"userId", userID,
		"tripId", trip.ID,
		"slot", trip.Slot)
	if s.metrics != nil {
		s.metrics.LegsIngested.Inc()
	}
	return IngestResult{Status: IngestCreated, Trip: &trip}, nil
}

// applyIngestMerge persists a merge where one side (the freshly ingested
// trip) was never stored. When the stored partner survives, a single update
// suffices; otherwise the new record is created and the partner deleted.
func (s *TripService) applyIngestMerge(ctx context.Context, merge MergeOutcome, fresh, partner *entity.Trip) error {
	if merge.LoserID == fresh.ID {
		if err := s.trips.Update(ctx, merge.Trip); err != nil {
			return fmt.Errorf("update merged trip: %w", err)
		}
		return nil
	}
	if err := s.trips.Create(ctx, merge.Trip); err != nil {
		return fmt.Errorf("create merged trip: %w", err)
	}
	if err := s.trips.Delete(ctx, partner.UserID, partner.ID); err != nil {
		return fmt.Errorf("delete merged-away trip: %w", err)
	}
	s.migratePass(ctx, partner.UserID, merge.LoserID, merge.LoserSlot, merge.Trip.ID)
	return nil
}

// MergeTrips merges two one-way trips chosen by explicit user action. The
// pairing score is bypassed, but a pair resolving to the same slot is still
// rejected.
func (s *TripService) MergeTrips(ctx context.Context, userID, tripAID, tripBID string) (*entity.Trip, error) {
	now := s.now()
	a, err := s.trips.FindByID(ctx, userID, tripAID)
	if err != nil {
		return nil, fmt.Errorf("load trip %s: %w", tripAID, err)
	}
	b, err := s.trips.FindByID(ctx, userID, tripBID)
	if err != nil {
		return nil, fmt.Errorf("load trip %s: %w", tripBID, err)
	}

	merge, err := s.consolidator.Merge(a, b, now)
	if err != nil {
		return nil, err
	}
	if err := s.applyMerge(ctx, userID, merge); err != nil {
		s.countError("merge")
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.TripsMerged.Inc()
	}
	return merge.Trip, nil
}

// applyMerge persists a merge between two stored trips: update the survivor,
// delete the loser, then re-key the loser's boarding pass to the survivor.
// Callers retry on partial failure; the computation is deterministic so
// re-invocation is safe.
func (s *TripService) applyMerge(ctx context.Context, userID string, merge MergeOutcome) error {
	if err := s.trips.Update(ctx, merge.Trip); err != nil {
		return fmt.Errorf("update merged trip: %w", err)
	}
	if err := s.trips.Delete(ctx, userID, merge.LoserID); err != nil {
		return fmt.Errorf("delete merged-away trip: %w", err)
	}
	s.migratePass(ctx, userID, merge.LoserID, merge.LoserSlot, merge.Trip.ID)
	return nil
}

// SplitTrip splits a round trip into two fresh one-way trips. Boarding
// passes are migrated to the new identifiers, slot for slot.
func (s *TripService) SplitTrip(ctx context.Context, userID, tripID string) (*entity.Trip, *entity.Trip, error) {
	now := s.now()
	trip, err := s.trips.FindByID(ctx, userID, tripID)
	if err != nil {
		return nil, nil, fmt.Errorf("load trip %s: %w", tripID, err)
	}

	outbound, inbound, err := s.consolidator.Split(trip, now)
	if err != nil {
		return nil, nil, err
	}

	if err := s.trips.Create(ctx, outbound); err != nil {
		s.countError("split")
		return nil, nil, fmt.Errorf("create outbound trip: %w", err)
	}
	if err := s.trips.Create(ctx, inbound); err != nil {
		s.countError("split")
		return nil, nil, fmt.Errorf("create inbound trip: %w", err)
	}
	if err := s.trips.Delete(ctx, userID, tripID); err != nil {
		s.countError("split")
		return nil, nil, fmt.Errorf("delete split trip: %w", err)
	}

	s.migratePass(ctx, userID, tripID, entity.SlotOutbound, outbound.ID)
	s.migratePass(ctx, userID, tripID, entity.SlotInbound, inbound.ID)

	if s.metrics != nil {
		s.metrics.TripsSplit.Inc()
	}
	return outbound, inbound, nil
}

// DeleteTrip removes a trip and, best effort, its boarding passes.
func (s *TripService) DeleteTrip(ctx context.Context, userID, tripID string) error {
	if err := s.trips.Delete(ctx, userID, tripID); err != nil {
		s.countError("delete")
		return fmt.Errorf("delete trip: %w", err)
	}
	if s.attachments != nil {
		if err := s.attachments.DeleteForTrip(ctx, userID, tripID); err != nil {
			s.logger.Warn("Failed to delete boarding passes", "tripId", tripID, "error", err)
		}
	}
	return nil
}

// RunSweep re-normalizes and re-pairs the whole trip collection of one user.
// Safe to invoke repeatedly: a second run over unchanged data applies
// nothing.
func (s *TripService) RunSweep(ctx context.Context, userID string) (SweepOutcome, error) {
	started := s.now()

	snapshot, err := s.trips.FindByUser(ctx, userID)
	if err != nil {
		s.countError("sweep")
		return SweepOutcome{}, fmt.Errorf("load trips: %w", err)
	}

	outcome := s.consolidator.Sweep(snapshot, started)

	for _, t := range outcome.Normalized {
		if err := s.trips.Update(ctx, t); err != nil {
			s.countError("sweep")
			return outcome, fmt.Errorf("update normalized trip %s: %w", t.ID, err)
		}
	}
	for _, merge := range outcome.Merges {
		if err := s.applyMerge(ctx, userID, merge); err != nil {
			s.countError("sweep")
			return outcome, err
		}
		if s.metrics != nil {
			s.metrics.TripsMerged.Inc()
		}
	}

	if s.metrics != nil {
		s.metrics.SweepsRun.Inc()
		s.metrics.SweepDuration.Observe(time.Since(started).Seconds())
	}
	if !outcome.Empty() {
		s.logger.Info("Sweep applied changes",
			"userId", userID,
			"normalized", len(outcome.Normalized),
			"merges", len(outcome.Merges))
	}
	return outcome, nil
}

// AttachBoardingPass stores a boarding pass for a trip slot the trip
// actually holds.
func (s *TripService) AttachBoardingPass(ctx context.Context, pass *entity.BoardingPass) error {
	trip, err := s.trips.FindByID(ctx, pass.UserID, pass.TripID)
	if err != nil {
		return fmt.Errorf("load trip %s: %w", pass.TripID, err)
	}
	if trip.LegInSlot(pass.Slot) == nil {
		return fmt.Errorf("trip %s holds no %s leg", pass.TripID, pass.Slot)
	}
	if pass.UploadedAt.IsZero() {
		pass.UploadedAt = s.now()
	}
	return s.attachments.Put(ctx, pass)
}

// migratePass re-keys one boarding pass best effort; a missing pass or a
// storage error never fails the surrounding merge or split.
func (s *TripService) migratePass(ctx context.Context, userID, fromTripID string, slot entity.LegSlot, toTripID string) {
	if s.attachments == nil {
		return
	}
	if err := s.attachments.Rekey(ctx, userID, fromTripID, slot, toTripID, slot); err != nil {
		s.logger.Warn("Failed to migrate boarding pass",
			"fromTripId", fromTripID,
			"toTripId", toTripID,
			"slot", slot,
			"error", err)
	}
}

// enrichCities fills missing city names from the airport reference table,
// best effort.
func (s *TripService) enrichCities(ctx context.Context, leg *entity.FlightLeg) {
	if s.airports == nil {
		return
	}
	if leg.DepartureCity == "" && leg.DepartureAirport != "" {
		if a, err := s.airports.GetByCode(ctx, leg.DepartureAirport); err == nil {
			leg.DepartureCity = a.CityName
		}
	}
	if leg.ArrivalCity == "" && leg.ArrivalAirport != "" {
		if a, err := s.airports.GetByCode(ctx, leg.ArrivalAirport); err == nil {
			leg.ArrivalCity = a.CityName
		}
	}
}

func (s *TripService) countError(operation string) {
	if s.metrics != nil {
		s.metrics.ErrorsCount.WithLabelValues(operation).Inc()
	}
}
