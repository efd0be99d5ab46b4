package service

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/halpe-hal/pizza-course-manager-app/internal/clock"
	"github.com/halpe-hal/pizza-course-manager-app/internal/logger"
	"github.com/halpe-hal/pizza-course-manager-app/internal/model"
	"github.com/halpe-hal/pizza-course-manager-app/internal/queue"
	"github.com/halpe-hal/pizza-course-manager-app/internal/repository"
	"github.com/halpe-hal/pizza-course-manager-app/internal/schedule"
	"github.com/halpe-hal/pizza-course-manager-app/internal/slot"
)

// Warning texts returned alongside successful results.
const (
	WarnNoProgress   = "course has no items; no progress rows were created"
	WarnRegenerating = "main dish rows could not be regenerated"
)

// Lifecycle creates, edits, deletes and checks in reservations.
type Lifecycle struct {
	courses      CourseStore
	reservations ReservationStore
	progress     ProgressStore
	locker       Locker
	events       queue.Sink
	clock        clock.Clock
	log          *logger.Logger
}

// NewLifecycle wires a Lifecycle. A nil locker falls back to an in-process
// mutex and a nil sink discards events.
func NewLifecycle(courses CourseStore, reservations ReservationStore, progress ProgressStore,
	locker Locker, events queue.Sink, c clock.Clock) *Lifecycle {
	if locker == nil {
		locker = NewMutexLocker()
	}
	if events == nil {
		events = queue.Discard{}
	}
	if c == nil {
		c = clock.System{}
	}
	return &Lifecycle{
		courses:      courses,
		reservations: reservations,
		progress:     progress,
		locker:       locker,
		events:       events,
		clock:        c,
		log:          logger.New("lifecycle"),
	}
}

// CreateInput holds a new booking.
type CreateInput struct {
	CourseID   uint64
	ReservedAt time.Time
	GuestName  string
	GuestCount int
	TableNo    string
	Note       string
	MainCounts model.MainCounts
}

// CreateResult is a stored reservation with its progress rows.
type CreateResult struct {
	Reservation *model.Reservation     `json:"reservation"`
	Progress    []model.ProgressRecord `json:"progress"`
	Warnings    []string               `json:"warnings,omitempty"`
}

// UpdateInput holds an edit. ReservedAt is only compared against the
// stored time; a zero value skips that comparison. An empty Status keeps
// the current one.
type UpdateInput struct {
	ReservedAt time.Time
	GuestName  string
	GuestCount int
	TableNo    string
	Status     model.Status
	Note       string
	MainCounts model.MainCounts
}

// UpdateResult is the edited reservation.
type UpdateResult struct {
	Reservation *model.Reservation `json:"reservation"`
	Warnings    []string           `json:"warnings,omitempty"`
}

// IsConflicted reports whether booking table at t would collide with a
// non-cancelled reservation on the same JST day. excludeID leaves one
// reservation out of the comparison; pass 0 for none.
func (l *Lifecycle) IsConflicted(ctx context.Context, t time.Time, table string, excludeID uint64) (bool, error) {
	from, to := clock.DateOf(t).Bounds()
	existing, err := l.reservations.ListBlocking(ctx, table, from, to, excludeID)
	if err != nil {
		return false, persistence("check slot", err)
	}
	times := make([]time.Time, len(existing))
	for i, r := range existing {
		times[i] = r.ReservedAt
	}
	return slot.ConflictsAny(t, times), nil
}

// Create validates and stores a reservation and its progress rows. If the
// reservation is stored but its progress rows are not, the result is
// returned together with a partial PersistenceError.
func (l *Lifecycle) Create(ctx context.Context, in CreateInput) (*CreateResult, error) {
	in.GuestName = strings.TrimSpace(in.GuestName)
	in.ReservedAt = in.ReservedAt.Truncate(time.Second)
	if in.ReservedAt.IsZero() {
		return nil, invalid("reserved_at", "is required")
	}
	if err := validateParty(in.GuestName, in.GuestCount, in.TableNo); err != nil {
		return nil, err
	}

	course, err := l.courses.GetCourse(ctx, in.CourseID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, invalid("course_id", "course %d does not exist", in.CourseID)
	}
	if err != nil {
		return nil, persistence("load course", err)
	}
	if !course.IsActive {
		return nil, invalid("course_id", "course %q is not active", course.Name)
	}
	items, err := l.courses.ListItems(ctx, course.ID)
	if err != nil {
		return nil, persistence("load course items", err)
	}
	if err := validateCounts(items, in.MainCounts, in.GuestCount); err != nil {
		return nil, err
	}

	unlock, err := l.locker.Lock(ctx, SlotKey(in.TableNo, in.ReservedAt))
	if err != nil {
		return nil, persistence("lock slot", err)
	}
	defer unlock()

	conflicted, err := l.IsConflicted(ctx, in.ReservedAt, in.TableNo, 0)
	if err != nil {
		return nil, err
	}
	if conflicted {
		return nil, &ConflictError{TableNo: in.TableNo, ReservedAt: in.ReservedAt}
	}

	now := l.clock.Now()
	res := &model.Reservation{
		CourseID:   course.ID,
		ReservedAt: in.ReservedAt,
		GuestName:  in.GuestName,
		GuestCount: in.GuestCount,
		TableNo:    in.TableNo,
		Status:     model.StatusReserved,
		Note:       strings.TrimSpace(in.Note),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if model.HasMain(items) {
		res.MainChoice = model.FormatMainChoice(in.MainCounts)
	}
	if err := l.reservations.CreateReservation(ctx, res); err != nil {
		return nil, persistence("create reservation", err)
	}
	l.publish(ctx, queue.ReservationCreated, res)

	out := &CreateResult{Reservation: res}
	recs := schedule.Expand(items, res.ReservedAt, in.MainCounts)
	if len(recs) == 0 {
		l.log.Warn("reservation %d: %s", res.ID, WarnNoProgress)
		out.Warnings = append(out.Warnings, WarnNoProgress)
		return out, nil
	}
	for i := range recs {
		recs[i].ReservationID = res.ID
	}
	if err := l.progress.CreateProgress(ctx, recs); err != nil {
		l.log.Error("reservation %d saved but progress rows failed: %v", res.ID, err)
		out.Progress = recs
		return out, &PersistenceError{
			Op:        "create reservation",
			Committed: "reservation",
			Failed:    "progress records",
			Err:       errors.WithStack(err),
		}
	}
	out.Progress = l.reload(ctx, res.ID, recs)
	return out, nil
}

// Update edits a reservation. The seating time cannot change. When the
// course has a Main item its dish rows are rebuilt from the new counts;
// a failure there is reported as a warning because the edit itself is
// already saved.
func (l *Lifecycle) Update(ctx context.Context, id uint64, in UpdateInput) (*UpdateResult, error) {
	cur, err := l.reservations.GetReservation(ctx, id)
	if err != nil {
		return nil, persistence("load reservation", err)
	}
	if !in.ReservedAt.IsZero() && !in.ReservedAt.Truncate(time.Second).Equal(cur.ReservedAt) {
		return nil, invalid("reserved_at", "cannot be changed; delete and re-create the reservation")
	}
	in.GuestName = strings.TrimSpace(in.GuestName)
	if in.Status == "" {
		in.Status = cur.Status
	}
	if !in.Status.Valid() {
		return nil, invalid("status", "unknown status %q", in.Status)
	}
	if err := validateParty(in.GuestName, in.GuestCount, in.TableNo); err != nil {
		return nil, err
	}
	items, err := l.courses.ListItems(ctx, cur.CourseID)
	if err != nil {
		return nil, persistence("load course items", err)
	}
	if err := validateCounts(items, in.MainCounts, in.GuestCount); err != nil {
		return nil, err
	}

	unlock, err := l.locker.Lock(ctx, SlotKey(in.TableNo, cur.ReservedAt))
	if err != nil {
		return nil, persistence("lock slot", err)
	}
	defer unlock()

	if in.Status.Blocks() {
		conflicted, err := l.IsConflicted(ctx, cur.ReservedAt, in.TableNo, cur.ID)
		if err != nil {
			return nil, err
		}
		if conflicted {
			return nil, &ConflictError{TableNo: in.TableNo, ReservedAt: cur.ReservedAt}
		}
	}

	now := l.clock.Now()
	next := *cur
	next.GuestName = in.GuestName
	next.GuestCount = in.GuestCount
	next.TableNo = in.TableNo
	next.Status = in.Status
	next.Note = strings.TrimSpace(in.Note)
	next.ArrivedAt = arrivalStamp(cur, in.Status, now)
	next.UpdatedAt = now
	hasMain := model.HasMain(items)
	if hasMain {
		next.MainChoice = model.FormatMainChoice(in.MainCounts)
	}
	if err := l.reservations.UpdateReservation(ctx, &next); err != nil {
		return nil, persistence("update reservation", err)
	}
	l.publish(ctx, queue.ReservationUpdated, &next)

	out := &UpdateResult{Reservation: &next}
	if hasMain {
		if err := l.regenerateMain(ctx, &next, items, in.MainCounts); err != nil {
			l.log.Warn("reservation %d: %s: %v", id, WarnRegenerating, err)
			out.Warnings = append(out.Warnings, WarnRegenerating)
		}
	}
	return out, nil
}

func (l *Lifecycle) regenerateMain(ctx context.Context, res *model.Reservation, items []model.CourseItem, counts model.MainCounts) error {
	var mainIDs []uint64
	for _, it := range items {
		if it.IsMain() {
			mainIDs = append(mainIDs, it.ID)
		}
	}
	if err := l.progress.DeleteForItems(ctx, res.ID, mainIDs); err != nil {
		return err
	}
	recs := schedule.ExpandMain(items, res.ReservedAt, counts)
	for i := range recs {
		recs[i].ReservationID = res.ID
	}
	return l.progress.CreateProgress(ctx, recs)
}

// Delete removes a reservation and its progress rows.
func (l *Lifecycle) Delete(ctx context.Context, id uint64) error {
	cur, err := l.reservations.GetReservation(ctx, id)
	if err != nil {
		return persistence("load reservation", err)
	}
	if err := l.reservations.DeleteReservation(ctx, id); err != nil {
		return persistence("delete reservation", err)
	}
	l.publish(ctx, queue.ReservationDeleted, cur)
	return nil
}

// SetStatus writes a new status. Entering arrived stamps the arrival
// time and going back to reserved clears it. Reviving a cancelled
// reservation re-checks its slot, since another booking may have taken it.
func (l *Lifecycle) SetStatus(ctx context.Context, id uint64, status model.Status) (*model.Reservation, error) {
	if !status.Valid() {
		return nil, invalid("status", "unknown status %q", status)
	}
	cur, err := l.reservations.GetReservation(ctx, id)
	if err != nil {
		return nil, persistence("load reservation", err)
	}
	if !cur.Blocks() && status.Blocks() {
		unlock, err := l.locker.Lock(ctx, SlotKey(cur.TableNo, cur.ReservedAt))
		if err != nil {
			return nil, persistence("lock slot", err)
		}
		defer unlock()
		conflicted, err := l.IsConflicted(ctx, cur.ReservedAt, cur.TableNo, cur.ID)
		if err != nil {
			return nil, err
		}
		if conflicted {
			return nil, &ConflictError{TableNo: cur.TableNo, ReservedAt: cur.ReservedAt}
		}
	}
	now := l.clock.Now()
	arrived := arrivalStamp(cur, status, now)
	if err := l.reservations.UpdateStatus(ctx, id, status, arrived, now); err != nil {
		return nil, persistence("update status", err)
	}
	cur.Status = status
	cur.ArrivedAt = arrived
	cur.UpdatedAt = now
	l.publish(ctx, queue.ReservationStatus, cur)
	return cur, nil
}

// Get returns one reservation.
func (l *Lifecycle) Get(ctx context.Context, id uint64) (*model.Reservation, []model.ProgressRecord, error) {
	res, err := l.reservations.GetReservation(ctx, id)
	if err != nil {
		return nil, nil, persistence("load reservation", err)
	}
	recs, err := l.progress.ListByReservations(ctx, []uint64{id})
	if err != nil {
		return nil, nil, persistence("load progress", err)
	}
	return res, recs, nil
}

// arrivalStamp computes arrived_at for a move from cur.Status to next.
func arrivalStamp(cur *model.Reservation, next model.Status, now time.Time) *time.Time {
	switch {
	case next == model.StatusArrived && cur.Status != model.StatusArrived:
		return &now
	case next == model.StatusReserved:
		return nil
	}
	return cur.ArrivedAt
}

func (l *Lifecycle) reload(ctx context.Context, id uint64, fallback []model.ProgressRecord) []model.ProgressRecord {
	recs, err := l.progress.ListByReservations(ctx, []uint64{id})
	if err != nil {
		l.log.Warn("reservation %d: reload progress: %v", id, err)
		return fallback
	}
	return recs
}

func (l *Lifecycle) publish(ctx context.Context, typ queue.EventType, r *model.Reservation) {
	ev := queue.CourseEvent{
		Type:          typ,
		ReservationID: r.ID,
		TableNo:       r.TableNo,
		GuestName:     r.GuestName,
		ReservedAt:    clock.Format(r.ReservedAt),
		Status:        string(r.Status),
		OccurredAt:    clock.Format(l.clock.Now()),
	}
	if err := l.events.Publish(ctx, ev); err != nil {
		l.log.Warn("publish %s: %v", typ, err)
	}
}

func validateParty(name string, count int, table string) error {
	if name == "" {
		return invalid("guest_name", "is required")
	}
	if count < 1 {
		return invalid("guest_count", "must be at least 1")
	}
	if !model.IsTable(table) {
		return invalid("table_no", "unknown table %q", table)
	}
	return nil
}

// validateCounts checks the dish counts of a course with a Main item: they
// must name known dishes, be non-negative and add up to the party size.
// Courses without a Main item ignore the counts.
func validateCounts(items []model.CourseItem, counts model.MainCounts, guests int) error {
	if !model.HasMain(items) {
		return nil
	}
	for name, n := range counts {
		if _, ok := model.LookupDish(name); !ok {
			return invalid("main_counts", "unknown dish %q", name)
		}
		if n < 0 {
			return invalid("main_counts", "count for %s must not be negative", name)
		}
	}
	if counts.Total() != guests {
		return invalid("main_counts", "main dishes add up to %d but the party is %d", counts.Total(), guests)
	}
	return nil
}
