package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	mysqldrv "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halpe-hal/pizza-course-manager-app/internal/model"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func TestGetCourseNotFound(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM course_templates WHERE id = ?")).
		WithArgs(7).
		WillReturnError(sql.ErrNoRows)

	_, err := NewCourseRepo(db).GetCourse(context.Background(), 7)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteCourseStillReferenced(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM course_templates WHERE id = ?")).
		WithArgs(3).
		WillReturnError(&mysqldrv.MySQLError{Number: 1451, Message: "Cannot delete or update a parent row"})

	err := NewCourseRepo(db).DeleteCourse(context.Background(), 3)
	assert.ErrorIs(t, err, ErrInUse)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListItemsScansKindAndPlace(t *testing.T) {
	db, mock := newMock(t)
	rows := sqlmock.NewRows([]string{"id", "course_id", "item_name", "kind", "offset_minutes", "display_order", "making_place", "memo"}).
		AddRow(1, 3, "Antipasto", "standard", 0, 1, "kitchen", "").
		AddRow(2, 3, "Main", "main", 20, 2, "both", "choose per guest")
	mock.ExpectQuery(regexp.QuoteMeta("FROM course_items WHERE course_id = ? ORDER BY display_order, id")).
		WithArgs(3).
		WillReturnRows(rows)

	items, err := NewCourseRepo(db).ListItems(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, model.KindStandard, items[0].Kind)
	assert.True(t, items[1].IsMain())
	assert.Equal(t, model.PlaceBoth, items[1].MakingPlace)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteItemRemovesProgressFirst(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM progress_records WHERE course_item_id = ?")).
		WithArgs(9).WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM course_items WHERE id = ?")).
		WithArgs(9).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, NewCourseRepo(db).DeleteItem(context.Background(), 9))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteReservationRollsBackWhenMissing(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM progress_records WHERE reservation_id = ?")).
		WithArgs(5).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM reservations WHERE id = ?")).
		WithArgs(5).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := NewReservationRepo(db).DeleteReservation(context.Background(), 5)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListBlockingSkipsCancelled(t *testing.T) {
	db, mock := newMock(t)
	from := time.Date(2024, 5, 1, 15, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)
	cols := []string{"id", "course_id", "reserved_at", "guest_name", "guest_count", "table_no", "status", "note",
		"main_choice", "arrived_at", "created_at", "updated_at"}
	rows := sqlmock.NewRows(cols).
		AddRow(1, 1, from.Add(3*time.Hour), "Sato", 2, "1-T1", "reserved", "", "Pasta:1, Pizza:1", nil, from, from)
	mock.ExpectQuery(regexp.QuoteMeta("AND status <> 'cancelled' AND id <> ?")).
		WithArgs("1-T1", from, to, 4).
		WillReturnRows(rows)

	got, err := NewReservationRepo(db).ListBlocking(context.Background(), "1-T1", from, to, 4)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.StatusReserved, got[0].Status)
	assert.Nil(t, got[0].ArrivedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteBeforeCountsReservations(t *testing.T) {
	db, mock := newMock(t)
	cutoff := time.Date(2024, 5, 1, 15, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE p FROM progress_records p")).
		WithArgs(cutoff).WillReturnResult(sqlmock.NewResult(0, 12))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM reservations WHERE reserved_at < ?")).
		WithArgs(cutoff).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	n, err := NewReservationRepo(db).DeleteBefore(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateProgressBulkInsert(t *testing.T) {
	db, mock := newMock(t)
	at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	recs := []model.ProgressRecord{
		{ReservationID: 1, CourseItemID: 1, ScheduledTime: at, Quantity: 1},
		{ReservationID: 1, CourseItemID: 2, ScheduledTime: at.Add(20 * time.Minute), MainDetail: "Pizza", Quantity: 2},
	}
	mock.ExpectExec(regexp.QuoteMeta("VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?),(?, ?, ?, ?, ?, ?, ?, ?, ?)")).
		WillReturnResult(sqlmock.NewResult(1, 2))

	require.NoError(t, NewProgressRepo(db).CreateProgress(context.Background(), recs))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateProgressEmptyIsNoop(t *testing.T) {
	db, mock := newMock(t)
	require.NoError(t, NewProgressRepo(db).CreateProgress(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetCookedKeepsFirstTimestamp(t *testing.T) {
	db, mock := newMock(t)
	at := time.Date(2024, 5, 1, 9, 5, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("SET is_cooked = 1, cooked_at = COALESCE(cooked_at, ?)")).
		WithArgs(at, 3).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("SET is_cooked = 0, cooked_at = NULL")).
		WithArgs(3).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("SET is_served = 1, served_at = COALESCE(served_at, ?)")).
		WithArgs(at, 99).WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewProgressRepo(db)
	require.NoError(t, repo.SetCooked(context.Background(), 3, true, at))
	require.NoError(t, repo.SetCooked(context.Background(), 3, false, at))
	assert.ErrorIs(t, repo.SetServed(context.Background(), 99, true, at), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "?", placeholders(1))
	assert.Equal(t, "?, ?, ?", placeholders(3))
}
