// Package service holds the board's business rules: booking and editing
// reservations without double-booking a table, turning courses into
// per-dish progress rows, tracking cooked and served flags and the daily
// cleanup. Persistence is reached through the interfaces below, which both
// the MySQL repositories and memstore satisfy.
package service

import (
	"context"
	"time"

	"github.com/halpe-hal/pizza-course-manager-app/internal/model"
)

// CourseStore reads and writes course templates and items.
type CourseStore interface {
	ListCourses(ctx context.Context, activeOnly bool) ([]model.CourseTemplate, error)
	GetCourse(ctx context.Context, id uint64) (*model.CourseTemplate, error)
	CreateCourse(ctx context.Context, c *model.CourseTemplate) error
	UpdateCourse(ctx context.Context, c *model.CourseTemplate) error
	DeleteCourse(ctx context.Context, id uint64) error

	ListItems(ctx context.Context, courseID uint64) ([]model.CourseItem, error)
	GetItem(ctx context.Context, id uint64) (*model.CourseItem, error)
	MaxDisplayOrder(ctx context.Context, courseID uint64) (int, error)
	CreateItem(ctx context.Context, it *model.CourseItem) error
	UpdateItem(ctx context.Context, it *model.CourseItem) error
	DeleteItem(ctx context.Context, id uint64) error
}

// ReservationStore reads and writes reservations.
type ReservationStore interface {
	CreateReservation(ctx context.Context, r *model.Reservation) error
	GetReservation(ctx context.Context, id uint64) (*model.Reservation, error)
	UpdateReservation(ctx context.Context, r *model.Reservation) error
	UpdateStatus(ctx context.Context, id uint64, status model.Status, arrivedAt *time.Time, updatedAt time.Time) error
	DeleteReservation(ctx context.Context, id uint64) error
	ListBetween(ctx context.Context, from, to time.Time) ([]model.Reservation, error)
	ListBlocking(ctx context.Context, table string, from, to time.Time, excludeID uint64) ([]model.Reservation, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// ProgressStore reads and writes progress rows.
type ProgressStore interface {
	CreateProgress(ctx context.Context, recs []model.ProgressRecord) error
	GetProgress(ctx context.Context, id uint64) (*model.ProgressRecord, error)
	ListByReservations(ctx context.Context, ids []uint64) ([]model.ProgressRecord, error)
	ListCookedBetween(ctx context.Context, from, to time.Time) ([]model.ProgressRecord, error)
	ListServedBetween(ctx context.Context, from, to time.Time) ([]model.ProgressRecord, error)
	DeleteForItems(ctx context.Context, reservationID uint64, itemIDs []uint64) error
	SetCooked(ctx context.Context, id uint64, flag bool, at time.Time) error
	SetServed(ctx context.Context, id uint64, flag bool, at time.Time) error
}
