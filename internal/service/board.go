package service

import (
	"context"
	"sort"
	"time"

	"github.com/halpe-hal/pizza-course-manager-app/internal/clock"
	"github.com/halpe-hal/pizza-course-manager-app/internal/logger"
	"github.com/halpe-hal/pizza-course-manager-app/internal/model"
)

// Board builds the read-only views staff work from. Every view sweeps old
// days first; a failed sweep is logged and the view still renders.
type Board struct {
	courses      CourseStore
	reservations ReservationStore
	progress     ProgressStore
	sweeper      *Sweeper
	log          *logger.Logger
}

// NewBoard wires a Board. sweeper may be nil.
func NewBoard(courses CourseStore, reservations ReservationStore, progress ProgressStore, sweeper *Sweeper) *Board {
	return &Board{
		courses:      courses,
		reservations: reservations,
		progress:     progress,
		sweeper:      sweeper,
		log:          logger.New("board"),
	}
}

// BoardRow is a progress row joined with its course item.
type BoardRow struct {
	model.ProgressRecord
	ItemName     string            `json:"item_name"`
	Kind         model.ItemKind    `json:"kind"`
	MakingPlace  model.MakingPlace `json:"making_place"`
	DisplayOrder int               `json:"display_order"`
	Memo         string            `json:"memo,omitempty"`
	DueAt        string            `json:"due_at"`
	CookedTime   string            `json:"cooked_time,omitempty"`
	ServedTime   string            `json:"served_time,omitempty"`
}

// BoardEntry is one reservation with the rows shown for it.
type BoardEntry struct {
	Reservation model.Reservation `json:"reservation"`
	CourseName  string            `json:"course_name"`
	Rows        []BoardRow        `json:"rows"`
}

// SlotCount is the number of reservations at one standard seating time.
type SlotCount struct {
	Slot  string `json:"slot"`
	Count int    `json:"count"`
}

// CourseCount is the number of reservations of one course.
type CourseCount struct {
	CourseID   uint64 `json:"course_id"`
	CourseName string `json:"course_name"`
	Count      int    `json:"count"`
}

// DaySummary aggregates the reservations of a day.
type DaySummary struct {
	Date     string        `json:"date"`
	Total    int           `json:"total"`
	BySlot   []SlotCount   `json:"by_slot"`
	ByCourse []CourseCount `json:"by_course"`
}

// DayListing is every reservation of a day with its summary.
type DayListing struct {
	Summary      DaySummary          `json:"summary"`
	Reservations []model.Reservation `json:"reservations"`
}

// Day lists all reservations of date, cancelled ones included, sorted by
// time then table, with counts per standard slot and per course.
func (b *Board) Day(ctx context.Context, date clock.Date) (*DayListing, error) {
	b.sweep(ctx)
	from, to := date.Bounds()
	list, err := b.reservations.ListBetween(ctx, from, to)
	if err != nil {
		return nil, persistence("list reservations", err)
	}
	sortReservations(list)

	courses, err := b.courses.ListCourses(ctx, false)
	if err != nil {
		return nil, persistence("list courses", err)
	}

	bySlot := make(map[string]int, len(model.Slots))
	byCourse := map[uint64]int{}
	for _, r := range list {
		bySlot[clock.HHMM(r.ReservedAt)]++
		byCourse[r.CourseID]++
	}
	sum := DaySummary{Date: date.String(), Total: len(list)}
	for _, s := range model.Slots {
		sum.BySlot = append(sum.BySlot, SlotCount{Slot: s, Count: bySlot[s]})
	}
	for _, c := range courses {
		if n := byCourse[c.ID]; n > 0 {
			sum.ByCourse = append(sum.ByCourse, CourseCount{CourseID: c.ID, CourseName: c.Name, Count: n})
		}
	}
	if list == nil {
		list = []model.Reservation{}
	}
	return &DayListing{Summary: sum, Reservations: list}, nil
}

// Station returns the working board of one station for date. Only rows
// made at that station are shown; Main rows additionally need their dish
// to be made there. Reservations whose shown rows are all served drop off.
// An empty station shows every row.
func (b *Board) Station(ctx context.Context, date clock.Date, station model.MakingPlace) ([]BoardEntry, error) {
	b.sweep(ctx)
	from, to := date.Bounds()
	list, err := b.reservations.ListBetween(ctx, from, to)
	if err != nil {
		return nil, persistence("list reservations", err)
	}
	active := list[:0]
	for _, r := range list {
		if r.Blocks() {
			active = append(active, r)
		}
	}
	sortReservations(active)

	ids := make([]uint64, len(active))
	for i, r := range active {
		ids[i] = r.ID
	}
	recs, err := b.progress.ListByReservations(ctx, ids)
	if err != nil {
		return nil, persistence("list progress", err)
	}
	lk, err := b.newLookup(ctx)
	if err != nil {
		return nil, err
	}

	byRes := map[uint64][]BoardRow{}
	for _, p := range recs {
		row, ok := lk.row(p)
		if !ok || !visibleAt(row, station) {
			continue
		}
		byRes[p.ReservationID] = append(byRes[p.ReservationID], row)
	}

	out := []BoardEntry{}
	for _, r := range active {
		rows := byRes[r.ID]
		if !anyUnserved(rows) {
			continue
		}
		sortRows(rows)
		out = append(out, BoardEntry{Reservation: r, CourseName: lk.courseName(r.CourseID), Rows: rows})
	}
	return out, nil
}

// Cooked lists the rows cooked during date, grouped by reservation.
func (b *Board) Cooked(ctx context.Context, date clock.Date) ([]BoardEntry, error) {
	b.sweep(ctx)
	from, to := date.Bounds()
	recs, err := b.progress.ListCookedBetween(ctx, from, to)
	if err != nil {
		return nil, persistence("list cooked", err)
	}
	return b.group(ctx, recs)
}

// Served lists the rows served during date, grouped by reservation.
func (b *Board) Served(ctx context.Context, date clock.Date) ([]BoardEntry, error) {
	b.sweep(ctx)
	from, to := date.Bounds()
	recs, err := b.progress.ListServedBetween(ctx, from, to)
	if err != nil {
		return nil, persistence("list served", err)
	}
	return b.group(ctx, recs)
}

func (b *Board) group(ctx context.Context, recs []model.ProgressRecord) ([]BoardEntry, error) {
	lk, err := b.newLookup(ctx)
	if err != nil {
		return nil, err
	}
	byRes := map[uint64][]BoardRow{}
	var order []uint64
	for _, p := range recs {
		row, ok := lk.row(p)
		if !ok {
			continue
		}
		if _, seen := byRes[p.ReservationID]; !seen {
			order = append(order, p.ReservationID)
		}
		byRes[p.ReservationID] = append(byRes[p.ReservationID], row)
	}

	var list []model.Reservation
	for _, id := range order {
		r, err := b.reservations.GetReservation(ctx, id)
		if err != nil {
			// The reservation may have been deleted between the two reads.
			b.log.Debug("skip progress of reservation %d: %v", id, err)
			continue
		}
		list = append(list, *r)
	}
	sortReservations(list)

	out := []BoardEntry{}
	for _, r := range list {
		rows := byRes[r.ID]
		sortRows(rows)
		out = append(out, BoardEntry{Reservation: r, CourseName: lk.courseName(r.CourseID), Rows: rows})
	}
	return out, nil
}

func (b *Board) sweep(ctx context.Context) {
	if b.sweeper != nil {
		b.sweeper.TrySweep(ctx)
	}
}

// lookup resolves course and item metadata for progress rows.
type lookup struct {
	courses map[uint64]string
	items   map[uint64]model.CourseItem
}

func (b *Board) newLookup(ctx context.Context) (*lookup, error) {
	courses, err := b.courses.ListCourses(ctx, false)
	if err != nil {
		return nil, persistence("list courses", err)
	}
	lk := &lookup{courses: map[uint64]string{}, items: map[uint64]model.CourseItem{}}
	for _, c := range courses {
		lk.courses[c.ID] = c.Name
		items, err := b.courses.ListItems(ctx, c.ID)
		if err != nil {
			return nil, persistence("list items", err)
		}
		for _, it := range items {
			lk.items[it.ID] = it
		}
	}
	return lk, nil
}

func (lk *lookup) courseName(id uint64) string { return lk.courses[id] }

func (lk *lookup) row(p model.ProgressRecord) (BoardRow, bool) {
	it, ok := lk.items[p.CourseItemID]
	if !ok {
		return BoardRow{}, false
	}
	return BoardRow{
		ProgressRecord: p,
		ItemName:       it.ItemName,
		Kind:           it.Kind,
		MakingPlace:    it.MakingPlace,
		DisplayOrder:   it.DisplayOrder,
		Memo:           it.Memo,
		DueAt:          clock.HHMM(p.ScheduledTime),
		CookedTime:     flagTime(p.CookedAt),
		ServedTime:     flagTime(p.ServedAt),
	}, true
}

func visibleAt(row BoardRow, station model.MakingPlace) bool {
	if !row.MakingPlace.Serves(station) {
		return false
	}
	if row.Kind == model.KindMain && row.MainDetail != "" {
		dish, ok := model.LookupDish(row.MainDetail)
		return ok && dish.MakingPlace.Serves(station)
	}
	return true
}

func anyUnserved(rows []BoardRow) bool {
	for _, r := range rows {
		if !r.IsServed {
			return true
		}
	}
	return false
}

func sortReservations(list []model.Reservation) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if !a.ReservedAt.Equal(b.ReservedAt) {
			return a.ReservedAt.Before(b.ReservedAt)
		}
		return model.TableOrder(a.TableNo) < model.TableOrder(b.TableNo)
	})
}

func sortRows(rows []BoardRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if !a.ScheduledTime.Equal(b.ScheduledTime) {
			return a.ScheduledTime.Before(b.ScheduledTime)
		}
		if a.DisplayOrder != b.DisplayOrder {
			return a.DisplayOrder < b.DisplayOrder
		}
		return a.ID < b.ID
	})
}

// flagTime renders a cooked or served stamp as JST HH:MM.
func flagTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return clock.HHMM(*t)
}
