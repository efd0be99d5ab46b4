package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/halpe-hal/pizza-course-manager-app/internal/model"
)

// CourseRepo provides CRUD operations for course templates and their
// items. Items are always returned in display order.
type CourseRepo struct {
	db *sql.DB
}

// NewCourseRepo returns a new CourseRepo bound to the given database.
func NewCourseRepo(db *sql.DB) *CourseRepo { return &CourseRepo{db: db} }

const courseColumns = `id, name, description, is_active`

const itemColumns = `id, course_id, item_name, kind, offset_minutes, display_order, making_place, memo`

// ListCourses returns every course template ordered by id. When activeOnly
// is true inactive templates are skipped.
func (r *CourseRepo) ListCourses(ctx context.Context, activeOnly bool) ([]model.CourseTemplate, error) {
	q := `SELECT ` + courseColumns + ` FROM course_templates`
	if activeOnly {
		q += ` WHERE is_active = 1`
	}
	q += ` ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.CourseTemplate
	for rows.Next() {
		var c model.CourseTemplate
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.IsActive); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetCourse loads a single template. ErrNotFound is returned when the id
// does not exist.
func (r *CourseRepo) GetCourse(ctx context.Context, id uint64) (*model.CourseTemplate, error) {
	const q = `SELECT ` + courseColumns + ` FROM course_templates WHERE id = ?`
	var c model.CourseTemplate
	err := r.db.QueryRowContext(ctx, q, id).Scan(&c.ID, &c.Name, &c.Description, &c.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateCourse inserts a template and sets its generated ID.
func (r *CourseRepo) CreateCourse(ctx context.Context, c *model.CourseTemplate) error {
	const q = `INSERT INTO course_templates (name, description, is_active) VALUES (?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, c.Name, c.Description, c.IsActive)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return nil
}

// UpdateCourse overwrites name, description and the active flag.
func (r *CourseRepo) UpdateCourse(ctx context.Context, c *model.CourseTemplate) error {
	const q = `UPDATE course_templates SET name = ?, description = ?, is_active = ? WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, q, c.Name, c.Description, c.IsActive, c.ID); err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// DeleteCourse removes a template. Its items go with it through the
// foreign-key cascade. A template still referenced by a reservation is
// kept and ErrInUse is returned.
func (r *CourseRepo) DeleteCourse(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM course_templates WHERE id = ?`, id)
	if isReferenced(err) {
		return ErrInUse
	}
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListItems returns the items of a course ordered by display_order, id.
func (r *CourseRepo) ListItems(ctx context.Context, courseID uint64) ([]model.CourseItem, error) {
	const q = `SELECT ` + itemColumns + ` FROM course_items WHERE course_id = ? ORDER BY display_order, id`
	rows, err := r.db.QueryContext(ctx, q, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.CourseItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *it)
	}
	return out, rows.Err()
}

// GetItem loads one course item.
func (r *CourseRepo) GetItem(ctx context.Context, id uint64) (*model.CourseItem, error) {
	const q = `SELECT ` + itemColumns + ` FROM course_items WHERE id = ?`
	it, err := scanItem(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return it, err
}

// MaxDisplayOrder returns the highest display_order of a course, or 0 when
// it has no items.
func (r *CourseRepo) MaxDisplayOrder(ctx context.Context, courseID uint64) (int, error) {
	var n sql.NullInt64
	err := r.db.QueryRowContext(ctx, `SELECT MAX(display_order) FROM course_items WHERE course_id = ?`, courseID).Scan(&n)
	if err != nil {
		return 0, err
	}
	return int(n.Int64), nil
}

// CreateItem inserts an item and sets its generated ID.
func (r *CourseRepo) CreateItem(ctx context.Context, it *model.CourseItem) error {
	const q = `INSERT INTO course_items (course_id, item_name, kind, offset_minutes, display_order, making_place, memo)
               VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, it.CourseID, it.ItemName, string(it.Kind), it.OffsetMinutes,
		it.DisplayOrder, string(it.MakingPlace), it.Memo)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	it.ID = uint64(id)
	return nil
}

// UpdateItem overwrites every editable column of an item.
func (r *CourseRepo) UpdateItem(ctx context.Context, it *model.CourseItem) error {
	const q = `UPDATE course_items
               SET item_name = ?, kind = ?, offset_minutes = ?, display_order = ?, making_place = ?, memo = ?
               WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q, it.ItemName, string(it.Kind), it.OffsetMinutes, it.DisplayOrder,
		string(it.MakingPlace), it.Memo, it.ID)
	return err
}

// DeleteItem removes the progress rows derived from an item and then the
// item itself, inside one transaction.
func (r *CourseRepo) DeleteItem(ctx context.Context, id uint64) error {
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
	if _, err := tx.ExecContext(ctx, `DELETE FROM progress_records WHERE course_item_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM course_items WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(s rowScanner) (*model.CourseItem, error) {
	var it model.CourseItem
	var kind, place string
	if err := s.Scan(&it.ID, &it.CourseID, &it.ItemName, &kind, &it.OffsetMinutes, &it.DisplayOrder, &place, &it.Memo); err != nil {
		return nil, err
	}
	it.Kind = model.ItemKind(kind)
	it.MakingPlace = model.MakingPlace(place)
	return &it, nil
}
