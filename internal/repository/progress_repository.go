package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/halpe-hal/pizza-course-manager-app/internal/model"
)

// ProgressRepo stores the per-dish progress rows of reservations.
type ProgressRepo struct {
	db *sql.DB
}

// NewProgressRepo returns a new ProgressRepo bound to the given database.
func NewProgressRepo(db *sql.DB) *ProgressRepo { return &ProgressRepo{db: db} }

const progressColumns = `id, reservation_id, course_item_id, scheduled_time, is_cooked, cooked_at,
       is_served, served_at, main_detail, quantity`

// CreateProgress inserts multiple progress rows in a single statement.
// Passing an empty slice has no effect and returns nil.
func (r *ProgressRepo) CreateProgress(ctx context.Context, recs []model.ProgressRecord) error {
	if len(recs) == 0 {
		return nil
	}
	query := `INSERT INTO progress_records (reservation_id, course_item_id, scheduled_time, is_cooked, cooked_at, is_served, served_at, main_detail, quantity) VALUES `
	args := make([]any, 0, len(recs)*9)
	for i, p := range recs {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, ?, ?, ?, ?)"
		args = append(args, p.ReservationID, p.CourseItemID, p.ScheduledTime.UTC(), p.IsCooked, nullTime(p.CookedAt),
			p.IsServed, nullTime(p.ServedAt), p.MainDetail, p.Quantity)
	}
	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}

// GetProgress loads one progress row.
func (r *ProgressRepo) GetProgress(ctx context.Context, id uint64) (*model.ProgressRecord, error) {
	const q = `SELECT ` + progressColumns + ` FROM progress_records WHERE id = ?`
	p, err := scanProgress(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

// ListByReservations returns the rows of the given reservations ordered by
// scheduled_time then id.
func (r *ProgressRepo) ListByReservations(ctx context.Context, ids []uint64) ([]model.ProgressRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	q := `SELECT ` + progressColumns + ` FROM progress_records
          WHERE reservation_id IN (` + placeholders(len(ids)) + `)
          ORDER BY scheduled_time, id`
	return r.list(ctx, q, args...)
}

// ListCookedBetween returns cooked rows whose cooked_at lies in [from, to).
func (r *ProgressRepo) ListCookedBetween(ctx context.Context, from, to time.Time) ([]model.ProgressRecord, error) {
	const q = `SELECT ` + progressColumns + ` FROM progress_records
               WHERE is_cooked = 1 AND cooked_at >= ? AND cooked_at < ?
               ORDER BY cooked_at, id`
	return r.list(ctx, q, from.UTC(), to.UTC())
}

// ListServedBetween returns served rows whose served_at lies in [from, to).
func (r *ProgressRepo) ListServedBetween(ctx context.Context, from, to time.Time) ([]model.ProgressRecord, error) {
	const q = `SELECT ` + progressColumns + ` FROM progress_records
               WHERE is_served = 1 AND served_at >= ? AND served_at < ?
               ORDER BY served_at, id`
	return r.list(ctx, q, from.UTC(), to.UTC())
}

// DeleteForItems removes the rows of one reservation that were derived
// from any of the given course items.
func (r *ProgressRepo) DeleteForItems(ctx context.Context, reservationID uint64, itemIDs []uint64) error {
	if len(itemIDs) == 0 {
		return nil
	}
	args := make([]any, 0, len(itemIDs)+1)
	args = append(args, reservationID)
	for _, id := range itemIDs {
		args = append(args, id)
	}
	q := `DELETE FROM progress_records WHERE reservation_id = ? AND course_item_id IN (` + placeholders(len(itemIDs)) + `)`
	_, err := r.db.ExecContext(ctx, q, args...)
	return err
}

// SetCooked marks a row cooked or not. Marking an already cooked row keeps
// its original cooked_at.
func (r *ProgressRepo) SetCooked(ctx context.Context, id uint64, flag bool, at time.Time) error {
	q := `UPDATE progress_records SET is_cooked = 0, cooked_at = NULL WHERE id = ?`
	args := []any{id}
	if flag {
		q = `UPDATE progress_records SET is_cooked = 1, cooked_at = COALESCE(cooked_at, ?) WHERE id = ?`
		args = []any{at.UTC(), id}
	}
	result, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// SetServed is SetCooked for the served flag.
func (r *ProgressRepo) SetServed(ctx context.Context, id uint64, flag bool, at time.Time) error {
	q := `UPDATE progress_records SET is_served = 0, served_at = NULL WHERE id = ?`
	args := []any{id}
	if flag {
		q = `UPDATE progress_records SET is_served = 1, served_at = COALESCE(served_at, ?) WHERE id = ?`
		args = []any{at.UTC(), id}
	}
	result, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

func (r *ProgressRepo) list(ctx context.Context, q string, args ...any) ([]model.ProgressRecord, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.ProgressRecord
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func scanProgress(s rowScanner) (*model.ProgressRecord, error) {
	var p model.ProgressRecord
	var cooked, served sql.NullTime
	err := s.Scan(&p.ID, &p.ReservationID, &p.CourseItemID, &p.ScheduledTime, &p.IsCooked, &cooked,
		&p.IsServed, &served, &p.MainDetail, &p.Quantity)
	if err != nil {
		return nil, err
	}
	p.CookedAt = timePtr(cooked)
	p.ServedAt = timePtr(served)
	return &p, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
