package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/halpe-hal/pizza-course-manager-app/internal/model"
)

// ReservationRepo provides CRUD operations for reservations. All
// timestamp fields are stored in UTC; callers convert to JST for display.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

const reservationColumns = `id, course_id, reserved_at, guest_name, guest_count, table_no, status, note,
       main_choice, arrived_at, created_at, updated_at`

// CreateReservation inserts a reservation and populates its generated ID.
// CreatedAt and UpdatedAt must be set by the caller.
func (r *ReservationRepo) CreateReservation(ctx context.Context, res *model.Reservation) error {
	const q = `INSERT INTO reservations
               (course_id, reserved_at, guest_name, guest_count, table_no, status, note, main_choice, arrived_at, created_at, updated_at)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := r.db.ExecContext(ctx, q,
		res.CourseID, res.ReservedAt.UTC(), res.GuestName, res.GuestCount, res.TableNo, string(res.Status),
		res.Note, res.MainChoice, nullTime(res.ArrivedAt), res.CreatedAt.UTC(), res.UpdatedAt.UTC(),
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	return nil
}

// GetReservation loads one reservation by id.
func (r *ReservationRepo) GetReservation(ctx context.Context, id uint64) (*model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ?`
	res, err := scanReservation(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return res, err
}

// UpdateReservation overwrites the editable columns. reserved_at and
// course_id are fixed at creation and never written here.
func (r *ReservationRepo) UpdateReservation(ctx context.Context, res *model.Reservation) error {
	const q = `UPDATE reservations
               SET guest_name = ?, guest_count = ?, table_no = ?, status = ?, note = ?, main_choice = ?,
                   arrived_at = ?, updated_at = ?
               WHERE id = ?`
	result, err := r.db.ExecContext(ctx, q,
		res.GuestName, res.GuestCount, res.TableNo, string(res.Status), res.Note, res.MainChoice,
		nullTime(res.ArrivedAt), res.UpdatedAt.UTC(), res.ID,
	)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// UpdateStatus changes only the status, arrival stamp and updated_at.
func (r *ReservationRepo) UpdateStatus(ctx context.Context, id uint64, status model.Status, arrivedAt *time.Time, updatedAt time.Time) error {
	const q = `UPDATE reservations SET status = ?, arrived_at = ?, updated_at = ? WHERE id = ?`
	result, err := r.db.ExecContext(ctx, q, string(status), nullTime(arrivedAt), updatedAt.UTC(), id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// DeleteReservation removes the reservation's progress rows and then the
// reservation itself inside a single transaction.
func (r *ReservationRepo) DeleteReservation(ctx context.Context, id uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, `DELETE FROM progress_records WHERE reservation_id = ?`, id); err != nil {
		return err
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if err := requireAffected(result); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// ListBetween returns reservations with from <= reserved_at < to, ordered
// by reserved_at then id.
func (r *ReservationRepo) ListBetween(ctx context.Context, from, to time.Time) ([]model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + `
               FROM reservations
               WHERE reserved_at >= ? AND reserved_at < ?
               ORDER BY reserved_at, id`
	return r.list(ctx, q, from.UTC(), to.UTC())
}

// ListBlocking returns the non-cancelled reservations of a table in
// [from, to), leaving out excludeID. Pass 0 to exclude nothing.
func (r *ReservationRepo) ListBlocking(ctx context.Context, table string, from, to time.Time, excludeID uint64) ([]model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + `
               FROM reservations
               WHERE table_no = ? AND reserved_at >= ? AND reserved_at < ?
                 AND status <> 'cancelled' AND id <> ?
               ORDER BY reserved_at, id`
	return r.list(ctx, q, table, from.UTC(), to.UTC(), excludeID)
}

// DeleteBefore removes every reservation starting before cutoff together
// with its progress rows and returns the number of reservations removed.
func (r *ReservationRepo) DeleteBefore(ctx context.Context, cutoff time.Time) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	const delProgress = `DELETE p FROM progress_records p
                         JOIN reservations r ON r.id = p.reservation_id
                         WHERE r.reserved_at < ?`
	if _, err := tx.ExecContext(ctx, delProgress, cutoff.UTC()); err != nil {
		return 0, err
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM reservations WHERE reserved_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	return int(n), nil
}

func (r *ReservationRepo) list(ctx context.Context, q string, args ...any) ([]model.Reservation, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *res)
	}
	return out, rows.Err()
}

func scanReservation(s rowScanner) (*model.Reservation, error) {
	var res model.Reservation
	var status string
	var arrived sql.NullTime
	err := s.Scan(&res.ID, &res.CourseID, &res.ReservedAt, &res.GuestName, &res.GuestCount, &res.TableNo,
		&status, &res.Note, &res.MainChoice, &arrived, &res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		return nil, err
	}
	res.Status = model.Status(status)
	res.ArrivedAt = timePtr(arrived)
	return &res, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
