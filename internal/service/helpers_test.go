package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/halpe-hal/pizza-course-manager-app/internal/clock"
	"github.com/halpe-hal/pizza-course-manager-app/internal/model"
	"github.com/halpe-hal/pizza-course-manager-app/internal/queue"
	"github.com/halpe-hal/pizza-course-manager-app/internal/repository/memstore"
)

var ctx = context.Background()

// serviceDay is the business day most tests run on.
var serviceDay = clock.Date{Year: 2024, Month: time.May, Day: 1}

func at(h, m int) time.Time {
	return time.Date(serviceDay.Year, serviceDay.Month, serviceDay.Day, h, m, 0, 0, clock.JST)
}

// movableClock is a clock tests can advance.
type movableClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *movableClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *movableClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

type recorder struct {
	mu     sync.Mutex
	events []queue.CourseEvent
}

func (r *recorder) Publish(_ context.Context, ev queue.CourseEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) types() []queue.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]queue.EventType, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

// failingProgress breaks CreateProgress while delegating everything else.
type failingProgress struct {
	ProgressStore
	fail bool
}

func (f *failingProgress) CreateProgress(ctx context.Context, recs []model.ProgressRecord) error {
	if f.fail {
		return errors.New("connection reset")
	}
	return f.ProgressStore.CreateProgress(ctx, recs)
}

type fixture struct {
	store     *memstore.Store
	progress  *failingProgress
	clock     *movableClock
	events    *recorder
	lifecycle *Lifecycle
	tracker   *Tracker
	sweeper   *Sweeper
	board     *Board
	courses   *Courses
	course    model.CourseTemplate
	items     []model.CourseItem
}

// newFixture seeds the course used throughout: three items at offsets 0,
// 10 and 30, the last of which is the Main item.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := memstore.New("")
	require.NoError(t, err)
	f := &fixture{
		store:    store,
		progress: &failingProgress{ProgressStore: store},
		clock:    &movableClock{t: at(12, 0)},
		events:   &recorder{},
	}
	f.lifecycle = NewLifecycle(store, store, f.progress, NewMutexLocker(), f.events, f.clock)
	f.tracker = NewTracker(store, f.events, f.clock)
	f.sweeper = NewSweeper(store, f.events, f.clock)
	f.board = NewBoard(store, store, store, f.sweeper)
	f.courses = NewCourses(store)

	course, err := f.courses.Create(ctx, CourseInput{Name: "Chef's Course", IsActive: true})
	require.NoError(t, err)
	f.course = *course
	for _, in := range []ItemInput{
		{ItemName: "Antipasto", OffsetMinutes: 0, MakingPlace: model.PlaceKitchen},
		{ItemName: "Margherita", OffsetMinutes: 10, MakingPlace: model.PlacePizza},
		{ItemName: "Main", Kind: model.KindMain, OffsetMinutes: 30, MakingPlace: model.PlaceBoth},
	} {
		it, err := f.courses.AddItem(ctx, course.ID, in)
		require.NoError(t, err)
		f.items = append(f.items, *it)
	}
	return f
}

func (f *fixture) book(t *testing.T, table string, when time.Time) *CreateResult {
	t.Helper()
	res, err := f.lifecycle.Create(ctx, CreateInput{
		CourseID:   f.course.ID,
		ReservedAt: when,
		GuestName:  "Tanaka",
		GuestCount: 2,
		TableNo:    table,
		MainCounts: model.MainCounts{"Pasta": 1, "Pizza": 1},
	})
	require.NoError(t, err)
	return res
}
