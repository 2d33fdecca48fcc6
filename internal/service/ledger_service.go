package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/smart-allotment-api/internal/allotment"
	"github.com/noah-isme/smart-allotment-api/internal/dto"
	"github.com/noah-isme/smart-allotment-api/internal/models"
	appErrors "github.com/noah-isme/smart-allotment-api/pkg/errors"
)

type bookingStore interface {
	ListAll(ctx context.Context) ([]models.Booking, error)
	Create(ctx context.Context, b *models.Booking) error
	Delete(ctx context.Context, id string) (bool, error)
	DeleteAll(ctx context.Context) error
}

type advisoryStore interface {
	Create(ctx context.Context, req *models.AdvisoryRequest) error
	List(ctx context.Context) ([]models.AdvisoryRequest, error)
}

// LedgerServiceParams groups constructor dependencies. Bookings and
// Advisories are optional; without them the ledger lives in memory only.
type LedgerServiceParams struct {
	Rooms      []models.Room
	Bookings   bookingStore
	Advisories advisoryStore
	Metrics    *MetricsService
	Validator  *validator.Validate
	Logger     *zap.Logger
	Location   *time.Location
}

// SeedReport summarises a seeding pass.
type SeedReport struct {
	Committed int  `json:"committed"`
	Conflicts int  `json:"conflicts"`
	Skipped   bool `json:"skipped,omitempty"`
}

// LedgerService owns the process-wide booking ledger and advisory queue.
// Mutations run under the write lock so a conflict check and its commit are
// atomic; reads take the read lock and return copies.
type LedgerService struct {
	mu       sync.RWMutex
	rooms    []models.Room
	bookings []models.Booking
	requests []models.AdvisoryRequest

	store      bookingStore
	advisories advisoryStore
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	loc        *time.Location
	now        func() time.Time
	newID      func(prefix string) string
}

// NewLedgerService constructs an empty ledger over the given catalog.
func NewLedgerService(params LedgerServiceParams) *LedgerService {
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	loc := params.Location
	if loc == nil {
		loc = time.UTC
	}
	rooms := params.Rooms
	if rooms == nil {
		rooms = models.DefaultCatalog()
	}
	return &LedgerService{
		rooms:      append([]models.Room(nil), rooms...),
		store:      params.Bookings,
		advisories: params.Advisories,
		metrics:    params.Metrics,
		validator:  validate,
		logger:     logger,
		loc:        loc,
		now:        time.Now,
		newID:      func(prefix string) string { return prefix + "-" + uuid.NewString() },
	}
}

// Load replaces the in-memory state with what the stores hold.
func (s *LedgerService) Load(ctx context.Context) error {
	var (
		bookings []models.Booking
		requests []models.AdvisoryRequest
	)
	g, gctx := errgroup.WithContext(ctx)
	if s.store != nil {
		g.Go(func() error {
			start := time.Now()
			rows, err := s.store.ListAll(gctx)
			s.metrics.ObserveDBQuery("bookings_list", time.Since(start))
			if err != nil {
				return fmt.Errorf("load bookings: %w", err)
			}
			bookings = rows
			return nil
		})
	}
	if s.advisories != nil {
		g.Go(func() error {
			start := time.Now()
			rows, err := s.advisories.List(gctx)
			s.metrics.ObserveDBQuery("advisory_requests_list", time.Since(start))
			if err != nil {
				return fmt.Errorf("load advisory requests: %w", err)
			}
			requests = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store != nil {
		s.bookings = bookings
	}
	if s.advisories != nil {
		s.requests = requests
	}
	s.metrics.ObserveLedgerOp("load", models.OutcomeSuccess, len(s.bookings))
	s.logger.Info("ledger loaded", zap.Int("bookings", len(s.bookings)), zap.Int("requests", len(s.requests)))
	return nil
}

// BookSlot commits a booking for admin or faculty callers.
func (s *LedgerService) BookSlot(ctx context.Context, req dto.BookSlotRequest) (*models.LedgerOutcome, error) {
	role := models.ParseRole(req.UserRole)
	if !role.CanMutateLedger() {
		return s.fail("book", appErrors.Clone(appErrors.ErrPermissionDenied, "only admin or faculty can book directly"))
	}
	if err := s.validator.Struct(req); err != nil {
		return s.fail("book", appErrors.Wrap(err, appErrors.ErrInvalidInput.Code, appErrors.ErrInvalidInput.Status, "invalid booking payload"))
	}
	iv, err := s.parseWindow(req.RoomID, req.Date, req.StartTime, req.EndTime)
	if err != nil {
		return s.fail("book", err)
	}
	if iv.Start.Time().Before(s.now()) {
		return s.fail("book", appErrors.Clone(appErrors.ErrPastSlot, "cannot book a slot that has already started"))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if conflict := allotment.FindConflict(s.bookings, req.RoomID, iv); conflict != nil {
		outcome := &models.LedgerOutcome{
			Status:             models.OutcomeConflict,
			Message:            fmt.Sprintf("Room %s is already booked by %s during this time.", req.RoomID, conflict.UserName),
			ConflictingBooking: conflict,
			VacantSuggestions:  allotment.FindVacantRooms(s.rooms, s.bookings, iv),
		}
		s.observe("book", outcome.Status)
		return outcome, nil
	}

	booking := models.Booking{
		ID:        s.newID("B"),
		RoomID:    req.RoomID,
		Date:      strings.TrimSpace(req.Date),
		StartTime: strings.TrimSpace(req.StartTime),
		EndTime:   strings.TrimSpace(req.EndTime),
		StartTS:   int64(iv.Start),
		EndTS:     int64(iv.End),
		UserRole:  role,
		UserName:  req.UserName,
		CreatedAt: s.now().UTC(),
	}
	if err := s.commitLocked(ctx, booking); err != nil {
		return s.fail("book", err)
	}

	outcome := &models.LedgerOutcome{
		Status:  models.OutcomeSuccess,
		Message: fmt.Sprintf("Room %s successfully booked by %s.", req.RoomID, req.UserName),
		Booking: &booking,
	}
	s.observe("book", outcome.Status)
	return outcome, nil
}

// CancelSlot removes a booking. Unknown ids fail with NotFound every time
// and never touch the ledger.
func (s *LedgerService) CancelSlot(ctx context.Context, bookingID, rawRole string) (*models.LedgerOutcome, error) {
	if !models.ParseRole(rawRole).CanMutateLedger() {
		return s.fail("cancel", appErrors.Clone(appErrors.ErrPermissionDenied, "only admin or faculty can cancel bookings"))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i := range s.bookings {
		if s.bookings[i].ID == bookingID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return s.fail("cancel", appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("booking %s not found", bookingID)))
	}

	if s.store != nil {
		start := time.Now()
		_, err := s.store.Delete(ctx, bookingID)
		s.metrics.ObserveDBQuery("bookings_delete", time.Since(start))
		if err != nil {
			return s.fail("cancel", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel booking"))
		}
	}

	removed := s.bookings[idx]
	s.bookings = append(s.bookings[:idx:idx], s.bookings[idx+1:]...)

	outcome := &models.LedgerOutcome{
		Status:  models.OutcomeSuccess,
		Message: fmt.Sprintf("Booking %s cancelled successfully.", bookingID),
		Booking: &removed,
	}
	s.observe("cancel", outcome.Status)
	return outcome, nil
}

// SubmitRequest queues an advisory request. The request is queued even when
// the room is taken, in which case the caller gets conflict_request with the
// rooms still free in that window.
func (s *LedgerService) SubmitRequest(ctx context.Context, req dto.SubmitRequestRequest) (*models.LedgerOutcome, error) {
	if err := s.validator.Struct(req); err != nil {
		return s.fail("request", appErrors.Wrap(err, appErrors.ErrInvalidInput.Code, appErrors.ErrInvalidInput.Status, "invalid request payload"))
	}
	iv, err := s.parseWindow(req.RoomID, req.Date, req.StartTime, req.EndTime)
	if err != nil {
		return s.fail("request", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	advisory := models.AdvisoryRequest{
		ID:        s.newID("R"),
		RoomID:    req.RoomID,
		UserName:  req.UserName,
		Date:      strings.TrimSpace(req.Date),
		StartTime: strings.TrimSpace(req.StartTime),
		EndTime:   strings.TrimSpace(req.EndTime),
		Status:    models.AdvisoryPending,
		CreatedAt: s.now().UTC(),
	}
	if s.advisories != nil {
		start := time.Now()
		err := s.advisories.Create(ctx, &advisory)
		s.metrics.ObserveDBQuery("advisory_requests_insert", time.Since(start))
		if err != nil {
			return s.fail("request", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue request"))
		}
	}
	s.requests = append(s.requests, advisory)

	outcome := &models.LedgerOutcome{Request: &advisory}
	if conflict := allotment.FindConflict(s.bookings, req.RoomID, iv); conflict != nil {
		outcome.Status = models.OutcomeConflictRequest
		outcome.Message = fmt.Sprintf("Request for %s conflicts with %s; it was queued for review.", req.RoomID, conflict.UserName)
		outcome.ConflictingBooking = conflict
		outcome.VacantSuggestions = allotment.FindVacantRooms(s.rooms, s.bookings, iv)
	} else {
		outcome.Status = models.OutcomeSuccess
		outcome.Message = fmt.Sprintf("Request for %s submitted successfully. No conflict found.", req.RoomID)
	}
	s.observe("request", outcome.Status)
	return outcome, nil
}

// ViewSchedule returns the bookings, optionally for one room, together with
// the full catalog.
func (s *LedgerService) ViewSchedule(_ context.Context, roomID string) models.ScheduleView {
	s.mu.RLock()
	defer s.mu.RUnlock()

	schedule := make([]models.Booking, 0, len(s.bookings))
	for _, b := range s.bookings {
		if roomID == "" || b.RoomID == roomID {
			schedule = append(schedule, b)
		}
	}
	return models.ScheduleView{Schedule: schedule, Rooms: append([]models.Room(nil), s.rooms...)}
}

// VacantRooms lists the rooms free for the whole window, in catalog order.
func (s *LedgerService) VacantRooms(_ context.Context, q dto.VacantRoomsQuery) ([]models.Room, error) {
	if err := s.validator.Struct(q); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidInput.Code, appErrors.ErrInvalidInput.Status, "date, start and end are required")
	}
	iv, err := s.parseInterval(q.Date, q.Start, q.End)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return allotment.FindVacantRooms(s.rooms, s.bookings, iv), nil
}

// Requests returns a copy of the advisory queue, oldest first.
func (s *LedgerService) Requests(_ context.Context) []models.AdvisoryRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append(make([]models.AdvisoryRequest, 0, len(s.requests)), s.requests...)
}

// Rooms returns a copy of the catalog.
func (s *LedgerService) Rooms() []models.Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Room(nil), s.rooms...)
}

// Len reports the number of committed bookings.
func (s *LedgerService) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.bookings)
}

// Clear drops every booking. Admin only.
func (s *LedgerService) Clear(ctx context.Context, rawRole string) (*models.LedgerOutcome, error) {
	switch models.ParseRole(rawRole) {
	case models.RoleAdmin:
	case models.RoleFaculty, models.RoleStudent, models.RoleUnknown:
		return s.fail("clear", appErrors.Clone(appErrors.ErrPermissionDenied, "only admin can clear the ledger"))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store != nil {
		start := time.Now()
		err := s.store.DeleteAll(ctx)
		s.metrics.ObserveDBQuery("bookings_clear", time.Since(start))
		if err != nil {
			return s.fail("clear", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear ledger"))
		}
	}
	removed := len(s.bookings)
	s.bookings = nil

	outcome := &models.LedgerOutcome{
		Status:  models.OutcomeSuccess,
		Message: fmt.Sprintf("Ledger cleared, %d bookings removed.", removed),
	}
	s.observe("clear", outcome.Status)
	return outcome, nil
}

// Seed commits pre-built bookings through the same room and conflict checks
// used by BookSlot. Conflicting entries are skipped and counted. Seeding
// ignores the past-slot rule so a timetable can start earlier in the current
// week.
func (s *LedgerService) Seed(ctx context.Context, bookings []models.Booking) (SeedReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var report SeedReport
	for _, b := range bookings {
		if !s.knownRoomLocked(b.RoomID) {
			return report, appErrors.Clone(appErrors.ErrInvalidInput, fmt.Sprintf("unknown room %s", b.RoomID))
		}
		iv := allotment.BookingInterval(b)
		if !iv.Valid() {
			return report, appErrors.Clone(appErrors.ErrInvalidInput, fmt.Sprintf("seed booking for %s on %s has an empty time range", b.RoomID, b.Date))
		}
		if conflict := allotment.FindConflict(s.bookings, b.RoomID, iv); conflict != nil {
			report.Conflicts++
			s.logger.Warn("skipping conflicting seed booking",
				zap.String("room_id", b.RoomID), zap.String("date", b.Date), zap.String("start", b.StartTime),
				zap.String("held_by", conflict.UserName))
			continue
		}
		if b.ID == "" {
			b.ID = s.newID("B")
		}
		if b.CreatedAt.IsZero() {
			b.CreatedAt = s.now().UTC()
		}
		if err := s.commitLocked(ctx, b); err != nil {
			return report, err
		}
		report.Committed++
	}
	s.observe("seed", models.OutcomeSuccess)
	return report, nil
}

func (s *LedgerService) commitLocked(ctx context.Context, b models.Booking) error {
	if s.store != nil {
		start := time.Now()
		err := s.store.Create(ctx, &b)
		s.metrics.ObserveDBQuery("bookings_insert", time.Since(start))
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist booking")
		}
	}
	s.bookings = append(s.bookings, b)
	return nil
}

func (s *LedgerService) parseWindow(roomID, date, start, end string) (allotment.Interval, error) {
	if !s.knownRoom(roomID) {
		return allotment.Interval{}, appErrors.Clone(appErrors.ErrInvalidInput, fmt.Sprintf("unknown room %s", roomID))
	}
	return s.parseInterval(date, start, end)
}

func (s *LedgerService) parseInterval(date, start, end string) (allotment.Interval, error) {
	iv, err := allotment.ParseInterval(date, start, end, s.loc)
	if err != nil {
		if errors.Is(err, allotment.ErrUnparseableTime) {
			return iv, appErrors.Wrap(err, appErrors.ErrInvalidInput.Code, appErrors.ErrInvalidInput.Status, "invalid date or time")
		}
		return iv, err
	}
	if !iv.Valid() {
		return iv, appErrors.Clone(appErrors.ErrInvalidInput, "start time must be before end time")
	}
	return iv, nil
}

func (s *LedgerService) knownRoom(roomID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.knownRoomLocked(roomID)
}

func (s *LedgerService) knownRoomLocked(roomID string) bool {
	for _, r := range s.rooms {
		if r.ID == roomID {
			return true
		}
	}
	return false
}

func (s *LedgerService) fail(op string, err error) (*models.LedgerOutcome, error) {
	s.metrics.ObserveLedgerOp(op, models.OutcomeError, -1)
	return nil, err
}

// observe must run under the ledger lock.
func (s *LedgerService) observe(op string, status models.OutcomeStatus) {
	s.metrics.ObserveLedgerOp(op, status, len(s.bookings))
}
