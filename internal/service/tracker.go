package service

import (
	"context"
	"time"

	"github.com/halpe-hal/pizza-course-manager-app/internal/clock"
	"github.com/halpe-hal/pizza-course-manager-app/internal/logger"
	"github.com/halpe-hal/pizza-course-manager-app/internal/model"
	"github.com/halpe-hal/pizza-course-manager-app/internal/queue"
)

// Tracker flips the cooked and served flags of progress rows. Setting a
// flag stamps the current time, clearing it removes the stamp, and
// re-setting an already set flag keeps the first stamp. The two flags are
// independent: a dish may be marked served before it is marked cooked.
type Tracker struct {
	progress ProgressStore
	events   queue.Sink
	clock    clock.Clock
	log      *logger.Logger
}

// NewTracker wires a Tracker.
func NewTracker(progress ProgressStore, events queue.Sink, c clock.Clock) *Tracker {
	if events == nil {
		events = queue.Discard{}
	}
	if c == nil {
		c = clock.System{}
	}
	return &Tracker{progress: progress, events: events, clock: c, log: logger.New("tracker")}
}

// SetCooked sets or clears the cooked flag of a progress row.
func (t *Tracker) SetCooked(ctx context.Context, id uint64, flag bool) (*model.ProgressRecord, error) {
	return t.set(ctx, id, flag, queue.ProgressCooked, t.progress.SetCooked)
}

// SetServed sets or clears the served flag of a progress row.
func (t *Tracker) SetServed(ctx context.Context, id uint64, flag bool) (*model.ProgressRecord, error) {
	return t.set(ctx, id, flag, queue.ProgressServed, t.progress.SetServed)
}

type flagSetter func(ctx context.Context, id uint64, flag bool, at time.Time) error

func (t *Tracker) set(ctx context.Context, id uint64, flag bool, typ queue.EventType, apply flagSetter) (*model.ProgressRecord, error) {
	now := t.clock.Now()
	if err := apply(ctx, id, flag, now); err != nil {
		return nil, persistence(string(typ), err)
	}
	rec, err := t.progress.GetProgress(ctx, id)
	if err != nil {
		return nil, persistence("load progress", err)
	}
	f := flag
	ev := queue.CourseEvent{
		Type:          typ,
		ReservationID: rec.ReservationID,
		ProgressID:    rec.ID,
		Flag:          &f,
		OccurredAt:    clock.Format(now),
	}
	if err := t.events.Publish(ctx, ev); err != nil {
		t.log.Warn("publish %s: %v", typ, err)
	}
	return rec, nil
}
