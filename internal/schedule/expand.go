// Package schedule turns a course template into the per-dish progress rows
// the kitchen works from.
package schedule

import (
	"time"

	"github.com/halpe-hal/pizza-course-manager-app/internal/model"
)

// Expand builds the unsaved progress rows for a reservation starting at
// reservedAt.  Standard items yield one row each.  Main items yield one row
// per dish with a positive count, in model.MainDishes order, carrying the
// count as quantity.  Counts are ignored when the course has no Main item.
func Expand(items []model.CourseItem, reservedAt time.Time, counts model.MainCounts) []model.ProgressRecord {
	out := make([]model.ProgressRecord, 0, len(items))
	for _, it := range items {
		if it.IsMain() {
			out = append(out, expandMain(it, reservedAt, counts)...)
			continue
		}
		out = append(out, model.ProgressRecord{
			CourseItemID:  it.ID,
			ScheduledTime: scheduled(reservedAt, it),
			Quantity:      1,
		})
	}
	return out
}

// ExpandMain is Expand restricted to Main items.  Reservation edits use it
// to rebuild only the dish-dependent rows.
func ExpandMain(items []model.CourseItem, reservedAt time.Time, counts model.MainCounts) []model.ProgressRecord {
	var out []model.ProgressRecord
	for _, it := range items {
		if it.IsMain() {
			out = append(out, expandMain(it, reservedAt, counts)...)
		}
	}
	return out
}

func expandMain(it model.CourseItem, reservedAt time.Time, counts model.MainCounts) []model.ProgressRecord {
	var out []model.ProgressRecord
	for _, d := range model.MainDishes {
		n := counts[d.Name]
		if n <= 0 {
			continue
		}
		out = append(out, model.ProgressRecord{
			CourseItemID:  it.ID,
			ScheduledTime: scheduled(reservedAt, it),
			MainDetail:    d.Name,
			Quantity:      n,
		})
	}
	return out
}

func scheduled(reservedAt time.Time, it model.CourseItem) time.Time {
	return reservedAt.Add(time.Duration(it.OffsetMinutes) * time.Minute)
}
