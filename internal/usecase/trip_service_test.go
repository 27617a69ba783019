package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"itinerary-service/internal/domain/entity"
	"itinerary-service/internal/domain/repository"
	"itinerary-service/internal/usecase"
	"itinerary-service/pkg/logger"
)

// memTripRepo is an in-memory TripRepository for tests.
type memTripRepo struct {
	mu        sync.Mutex
	trips     map[string]entity.Trip
	findCalls int
}

func newMemTripRepo() *memTripRepo {
	return &memTripRepo{trips: make(map[string]entity.Trip)}
}

func (r *memTripRepo) Create(_ context.Context, trip *entity.Trip) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.trips[trip.ID]; ok {
		return fmt.Errorf("trip %s already exists", trip.ID)
	}
	r.trips[trip.ID] = *trip
	return nil
}

func (r *memTripRepo) Update(_ context.Context, trip *entity.Trip) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.trips[trip.ID]; !ok {
		return repository.ErrNotFound
	}
	r.trips[trip.ID] = *trip
	return nil
}

func (r *memTripRepo) Delete(_ context.Context, userID, tripID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.trips[tripID]; ok && t.UserID == userID {
		delete(r.trips, tripID)
	}
	return nil
}

func (r *memTripRepo) FindByID(_ context.Context, userID, tripID string) (*entity.Trip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.trips[tripID]
	if !ok || t.UserID != userID {
		return nil, repository.ErrNotFound
	}
	cp := t
	return &cp, nil
}

func (r *memTripRepo) FindByUser(_ context.Context, userID string) ([]*entity.Trip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.findCalls++
	var out []*entity.Trip
	for _, t := range r.trips {
		if t.UserID == userID {
			cp := t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *memTripRepo) all(userID string) []entity.Trip {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Trip
	for _, t := range r.trips {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *memTripRepo) findByUserCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findCalls
}

type passKey struct {
	userID string
	tripID string
	slot   entity.LegSlot
}

// memAttachmentRepo is an in-memory AttachmentRepository for tests.
type memAttachmentRepo struct {
	mu     sync.Mutex
	passes map[passKey]entity.BoardingPass
}

func newMemAttachmentRepo() *memAttachmentRepo {
	return &memAttachmentRepo{passes: make(map[passKey]entity.BoardingPass)}
}

func (r *memAttachmentRepo) Put(_ context.Context, pass *entity.BoardingPass) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.passes[passKey{pass.UserID, pass.TripID, pass.Slot}] = *pass
	return nil
}

func (r *memAttachmentRepo) Get(_ context.Context, userID, tripID string, slot entity.LegSlot) (*entity.BoardingPass, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.passes[passKey{userID, tripID, slot}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := p
	return &cp, nil
}

func (r *memAttachmentRepo) Delete(_ context.Context, userID, tripID string, slot entity.LegSlot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.passes, passKey{userID, tripID, slot})
	return nil
}

func (r *memAttachmentRepo) DeleteForTrip(_ context.Context, userID, tripID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k := range r.passes {
		if k.userID == userID && k.tripID == tripID {
			delete(r.passes, k)
		}
	}
	return nil
}

func (r *memAttachmentRepo) Rekey(_ context.Context, userID, fromTripID string, fromSlot entity.LegSlot, toTripID string, toSlot entity.LegSlot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	from := passKey{userID, fromTripID, fromSlot}
	p, ok := r.passes[from]
	if !ok {
		return nil
	}
	delete(r.passes, from)
	p.TripID = toTripID
	p.Slot = toSlot
	r.passes[passKey{userID, toTripID, toSlot}] = p
	return nil
}

type serviceFixture struct {
	service *usecase.TripService
	trips   *memTripRepo
	passes  *memAttachmentRepo
	now     time.Time
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		trips:  newMemTripRepo(),
		passes: newMemAttachmentRepo(),
		now:    baseDeparture.AddDate(0, 0, 10),
	}
	consolidator := usecase.NewConsolidator(usecase.NewLegNormalizer(testHome), logger.NewNop())
	f.service = usecase.NewTripService(f.trips, f.passes, nil, consolidator, nil, logger.NewNop())
	f.service.SetNowForTest(func() time.Time { return f.now })
	seq := 0
	f.service.SetNewIDForTest(func() string {
		seq++
		return fmt.Sprintf("trip-%d", seq)
	})
	return f
}

func (f *serviceFixture) seed(t *testing.T, trip entity.Trip) {
	t.Helper()
	if err := f.trips.Create(context.Background(), &trip); err != nil {
		t.Fatalf("seed trip %s: %v", trip.ID, err)
	}
}

func TestTripService_IngestLeg_CreatesOneWay(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t)
	got, err := f.service.IngestLeg(context.Background(), "u1", mkLeg("AR1450", "AEP", "SLA", baseDeparture), nil)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if got.Status != usecase.IngestCreated {
		t.Fatalf("status=%s, want %s", got.Status, usecase.IngestCreated)
	}
	if got.Trip.Slot != entity.SlotOutbound {
		t.Fatalf("slot=%s, want %s", got.Trip.Slot, entity.SlotOutbound)
	}
	stored := f.trips.all("u1")
	if len(stored) != 1 || stored[0].ID != got.Trip.ID {
		t.Fatalf("stored=%+v, want the ingested trip", stored)
	}
}

func TestTripService_IngestLeg_RejectsDuplicate(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t)
	f.seed(t, entity.NewOneWay("existing", "u1", entity.SlotOutbound,
		mkLeg("AR1450", "AEP", "SLA", baseDeparture), nil, baseDeparture))

	got, err := f.service.IngestLeg(context.Background(), "u1", mkLeg("ar 1450", "AEP", "SLA", baseDeparture.Add(5*time.Hour)), nil)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if got.Status != usecase.IngestDuplicate {
		t.Fatalf("status=%s, want %s", got.Status, usecase.IngestDuplicate)
	}
	if len(f.trips.all("u1")) != 1 {
		t.Fatalf("duplicate was stored")
	}
}

func TestTripService_IngestLeg_PairsWithStoredPartner(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t)
	// Partner created before the service clock, so the stored record survives.
	f.seed(t, entity.NewOneWay("partner", "u1", entity.SlotOutbound,
		mkLeg("AR1450", "AEP", "SLA", baseDeparture), nil, baseDeparture))

	got, err := f.service.IngestLeg(context.Background(), "u1", mkLeg("AR1451", "SLA", "AEP", baseDeparture.AddDate(0, 0, 4)), nil)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if got.Status != usecase.IngestPaired {
		t.Fatalf("status=%s, want %s", got.Status, usecase.IngestPaired)
	}
	stored := f.trips.all("u1")
	if len(stored) != 1 {
		t.Fatalf("stored %d trips, want 1", len(stored))
	}
	if stored[0].ID != "partner" || !stored[0].IsRoundTrip() {
		t.Fatalf("stored=%+v, want partner upgraded to round trip", stored[0])
	}
	if stored[0].Inbound.FlightNumber != "AR1451" {
		t.Fatalf("inbound=%s, want AR1451", stored[0].Inbound.FlightNumber)
	}
}

func TestTripService_IngestLeg_FreshSurvivorMigratesPass(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t)
	// Partner created after the service clock: the fresh record becomes the
	// survivor, so the partner's pass must follow its leg.
	f.seed(t, entity.NewOneWay("partner", "u1", entity.SlotInbound,
		mkLeg("AR1451", "SLA", "AEP", baseDeparture.AddDate(0, 0, 4)), nil, f.now.Add(time.Hour)))
	if err := f.passes.Put(context.Background(), &entity.BoardingPass{
		UserID: "u1", TripID: "partner", Slot: entity.SlotInbound, Filename: "pass.pdf",
	}); err != nil {
		t.Fatalf("seed pass: %v", err)
	}

	got, err := f.service.IngestLeg(context.Background(), "u1", mkLeg("AR1450", "AEP", "SLA", baseDeparture), nil)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if got.Status != usecase.IngestPaired {
		t.Fatalf("status=%s, want %s", got.Status, usecase.IngestPaired)
	}
	stored := f.trips.all("u1")
	if len(stored) != 1 || stored[0].ID == "partner" {
		t.Fatalf("stored=%+v, want a single fresh round trip", stored)
	}

	pass, err := f.passes.Get(context.Background(), "u1", stored[0].ID, entity.SlotInbound)
	if err != nil {
		t.Fatalf("pass not migrated to survivor: %v", err)
	}
	if pass.Filename != "pass.pdf" {
		t.Fatalf("filename=%s, want pass.pdf", pass.Filename)
	}
}

func TestTripService_IngestLeg_StoresInertLegWithoutPairing(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t)
	f.seed(t, entity.NewOneWay("partner", "u1", entity.SlotOutbound,
		mkLeg("AR1450", "AEP", "SLA", baseDeparture), nil, baseDeparture))

	leg := mkLeg("AR1451", "SLA", "AEP", baseDeparture)
	leg.DepartureTime = nil

	got, err := f.service.IngestLeg(context.Background(), "u1", leg, nil)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if got.Status != usecase.IngestCreated {
		t.Fatalf("status=%s, want %s", got.Status, usecase.IngestCreated)
	}
	if len(f.trips.all("u1")) != 2 {
		t.Fatalf("inert leg should be stored standalone")
	}
}

func TestTripService_MergeTrips(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t)
	f.seed(t, entity.NewOneWay("older", "u1", entity.SlotOutbound,
		mkLeg("AR1450", "AEP", "SLA", baseDeparture), nil, baseDeparture))
	f.seed(t, entity.NewOneWay("newer", "u1", entity.SlotInbound,
		mkLeg("AR1451", "SLA", "AEP", baseDeparture.AddDate(0, 0, 4)), nil, baseDeparture.Add(time.Hour)))
	if err := f.passes.Put(context.Background(), &entity.BoardingPass{
		UserID: "u1", TripID: "newer", Slot: entity.SlotInbound, Filename: "in.pdf",
	}); err != nil {
		t.Fatalf("seed pass: %v", err)
	}

	got, err := f.service.MergeTrips(context.Background(), "u1", "newer", "older")
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if got.ID != "older" || !got.IsRoundTrip() {
		t.Fatalf("got %+v, want older as round trip", got)
	}
	stored := f.trips.all("u1")
	if len(stored) != 1 || stored[0].ID != "older" {
		t.Fatalf("stored=%+v, want only the survivor", stored)
	}
	if _, err := f.passes.Get(context.Background(), "u1", "older", entity.SlotInbound); err != nil {
		t.Fatalf("pass not re-keyed to survivor: %v", err)
	}
}

func TestTripService_MergeTrips_RejectsSameSlot(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t)
	f.seed(t, entity.NewOneWay("a", "u1", entity.SlotOutbound,
		mkLeg("AR1450", "AEP", "SLA", baseDeparture), nil, baseDeparture))
	f.seed(t, entity.NewOneWay("b", "u1", entity.SlotOutbound,
		mkLeg("AR1452", "AEP", "COR", baseDeparture.AddDate(0, 0, 3)), nil, baseDeparture))

	if _, err := f.service.MergeTrips(context.Background(), "u1", "a", "b"); !errors.Is(err, usecase.ErrSameSlot) {
		t.Fatalf("err=%v, want ErrSameSlot", err)
	}
	if len(f.trips.all("u1")) != 2 {
		t.Fatalf("rejected merge changed the store")
	}
}

func TestTripService_SplitTrip_MigratesPasses(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t)
	round := entity.NewRoundTrip("round", "u1",
		mkLeg("AR1450", "AEP", "SLA", baseDeparture),
		mkLeg("AR1451", "SLA", "AEP", baseDeparture.AddDate(0, 0, 4)),
		nil, baseDeparture)
	f.seed(t, round)
	for _, slot := range []entity.LegSlot{entity.SlotOutbound, entity.SlotInbound} {
		if err := f.passes.Put(context.Background(), &entity.BoardingPass{
			UserID: "u1", TripID: "round", Slot: slot, Filename: string(slot) + ".pdf",
		}); err != nil {
			t.Fatalf("seed pass: %v", err)
		}
	}

	outbound, inbound, err := f.service.SplitTrip(context.Background(), "u1", "round")
	if err != nil {
		t.Fatalf("split: %v", err)
	}

	stored := f.trips.all("u1")
	if len(stored) != 2 {
		t.Fatalf("stored %d trips, want 2", len(stored))
	}
	for _, tr := range stored {
		if tr.ID == "round" {
			t.Fatalf("original record not retired")
		}
		if !tr.IsOneWay() {
			t.Fatalf("split produced a non one-way: %+v", tr)
		}
	}

	if _, err := f.passes.Get(context.Background(), "u1", outbound.ID, entity.SlotOutbound); err != nil {
		t.Fatalf("outbound pass not migrated: %v", err)
	}
	if _, err := f.passes.Get(context.Background(), "u1", inbound.ID, entity.SlotInbound); err != nil {
		t.Fatalf("inbound pass not migrated: %v", err)
	}
}

func TestTripService_DeleteTrip_RemovesPasses(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t)
	f.seed(t, entity.NewOneWay("t1", "u1", entity.SlotOutbound,
		mkLeg("AR1450", "AEP", "SLA", baseDeparture), nil, baseDeparture))
	if err := f.passes.Put(context.Background(), &entity.BoardingPass{
		UserID: "u1", TripID: "t1", Slot: entity.SlotOutbound, Filename: "out.pdf",
	}); err != nil {
		t.Fatalf("seed pass: %v", err)
	}

	if err := f.service.DeleteTrip(context.Background(), "u1", "t1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(f.trips.all("u1")) != 0 {
		t.Fatalf("trip not deleted")
	}
	if _, err := f.passes.Get(context.Background(), "u1", "t1", entity.SlotOutbound); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("pass not deleted: %v", err)
	}
}

func TestTripService_AttachBoardingPass_ValidatesSlot(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t)
	f.seed(t, entity.NewOneWay("t1", "u1", entity.SlotOutbound,
		mkLeg("AR1450", "AEP", "SLA", baseDeparture), nil, baseDeparture))

	err := f.service.AttachBoardingPass(context.Background(), &entity.BoardingPass{
		UserID: "u1", TripID: "t1", Slot: entity.SlotInbound, Filename: "in.pdf",
	})
	if err == nil {
		t.Fatalf("pass attached to a slot the trip does not hold")
	}

	pass := &entity.BoardingPass{UserID: "u1", TripID: "t1", Slot: entity.SlotOutbound, Filename: "out.pdf"}
	if err := f.service.AttachBoardingPass(context.Background(), pass); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if pass.UploadedAt.IsZero() {
		t.Fatalf("UploadedAt not stamped")
	}
}

func TestTripService_RunSweep_AppliesAndConverges(t *testing.T) {
	t.Parallel()

	f := newServiceFixture(t)
	f.seed(t, entity.NewOneWay("t-out", "u1", entity.SlotOutbound,
		mkLeg("AR1450", "AEP", "SLA", baseDeparture), nil, baseDeparture))
	f.seed(t, entity.NewOneWay("t-in", "u1", entity.SlotInbound,
		mkLeg("AR1451", "SLA", "AEP", baseDeparture.AddDate(0, 0, 4)), nil, baseDeparture.Add(time.Hour)))
	f.seed(t, entity.NewOneWay("t-misfiled", "u1", entity.SlotInbound,
		mkLeg("AR1452", "AEP", "COR", baseDeparture.AddDate(0, 0, 40)), nil, baseDeparture.Add(2*time.Hour)))

	first, err := f.service.RunSweep(context.Background(), "u1")
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(first.Merges) != 1 || len(first.Normalized) != 1 {
		t.Fatalf("merges=%d normalized=%d, want 1/1", len(first.Merges), len(first.Normalized))
	}

	stored := f.trips.all("u1")
	if len(stored) != 2 {
		t.Fatalf("stored %d trips, want 2", len(stored))
	}
	for _, tr := range stored {
		switch tr.ID {
		case "t-out":
			if !tr.IsRoundTrip() {
				t.Fatalf("t-out not upgraded to round trip")
			}
		case "t-misfiled":
			if tr.Slot != entity.SlotOutbound {
				t.Fatalf("misfiled slot not corrected: %s", tr.Slot)
			}
		default:
			t.Fatalf("unexpected trip %s", tr.ID)
		}
	}

	second, err := f.service.RunSweep(context.Background(), "u1")
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if !second.Empty() {
		t.Fatalf("second sweep not empty: %+v", second)
	}
}
