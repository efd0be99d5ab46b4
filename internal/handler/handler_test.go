package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halpe-hal/pizza-course-manager-app/internal/clock"
	"github.com/halpe-hal/pizza-course-manager-app/internal/handler"
	"github.com/halpe-hal/pizza-course-manager-app/internal/model"
	"github.com/halpe-hal/pizza-course-manager-app/internal/queue"
	"github.com/halpe-hal/pizza-course-manager-app/internal/repository/memstore"
	"github.com/halpe-hal/pizza-course-manager-app/internal/router"
	"github.com/halpe-hal/pizza-course-manager-app/internal/service"
)

// brokenProgress fails every progress insert.
type brokenProgress struct{ *memstore.Store }

func (brokenProgress) CreateProgress(context.Context, []model.ProgressRecord) error {
	return errors.New("disk full")
}

type api struct {
	t *testing.T
	e *echo.Echo
}

func newAPI(t *testing.T, breakProgress bool) *api {
	t.Helper()
	store, err := memstore.New("")
	require.NoError(t, err)
	var progress service.ProgressStore = store
	if breakProgress {
		progress = brokenProgress{store}
	}
	now := clock.Fixed{T: time.Date(2024, 5, 1, 12, 0, 0, 0, clock.JST)}
	events := queue.Discard{}

	sweeper := service.NewSweeper(store, events, now)
	lifecycle := service.NewLifecycle(store, store, progress, service.NewMutexLocker(), events, now)
	board := service.NewBoard(store, store, store, sweeper)
	tracker := service.NewTracker(store, events, now)

	e := echo.New()
	router.RegisterRoutes(e, router.Handlers{
		Courses:      handler.NewCourseHandler(service.NewCourses(store)),
		Reservations: handler.NewReservationHandler(lifecycle, board, now),
		Board:        handler.NewBoardHandler(board, tracker, now),
	})
	return &api{t: t, e: e}
}

func (a *api) do(method, target, body string, out any) int {
	a.t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	if out != nil && rec.Body.Len() > 0 {
		require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec.Code
}

// seedCourse creates the three-item course with a Main item and returns its id.
func (a *api) seedCourse() uint64 {
	a.t.Helper()
	var course model.CourseTemplate
	require.Equal(a.t, http.StatusCreated, a.do(http.MethodPost, "/v1/courses", `{"name":"Chef's Course"}`, &course))
	assert.True(a.t, course.IsActive)
	for _, item := range []string{
		`{"item_name":"Antipasto","offset_minutes":0,"making_place":"kitchen"}`,
		`{"item_name":"Margherita","offset_minutes":10,"making_place":"pizza"}`,
		`{"item_name":"Main","kind":"main","offset_minutes":30,"making_place":"both"}`,
	} {
		require.Equal(a.t, http.StatusCreated, a.do(http.MethodPost, "/v1/courses/"+itoa(course.ID)+"/items", item, nil))
	}
	return course.ID
}

type reservationView struct {
	Reservation model.Reservation      `json:"reservation"`
	Progress    []model.ProgressRecord `json:"progress"`
	Warnings    []string               `json:"warnings"`
}

func bookingBody(courseID uint64, table, at string) string {
	return `{"course_id":` + itoa(courseID) + `,"reserved_at":"` + at + `","guest_name":"Tanaka",` +
		`"guest_count":2,"table_no":"` + table + `","main_counts":{"Pasta":1,"Pizza":1}}`
}

func TestReservationFlow(t *testing.T) {
	a := newAPI(t, false)
	courseID := a.seedCourse()

	var created reservationView
	require.Equal(t, http.StatusCreated, a.do(http.MethodPost, "/v1/reservations", bookingBody(courseID, "1-T1", "2024-05-01T18:00:00"), &created))
	assert.Len(t, created.Progress, 4)
	assert.Equal(t, "Pasta:1, Pizza:1", created.Reservation.MainChoice)
	_, offset := created.Reservation.ReservedAt.Zone()
	assert.Equal(t, 9*3600, offset, "responses are rendered in JST")
	id := itoa(created.Reservation.ID)

	var conflict map[string]string
	assert.Equal(t, http.StatusConflict, a.do(http.MethodPost, "/v1/reservations", bookingBody(courseID, "1-T1", "2024-05-01T18:30:00+09:00"), &conflict))
	assert.Equal(t, "1-T1", conflict["table_no"])

	var check map[string]any
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/v1/slots/check?table=1-T1&reserved_at=2024-05-01T20:30:00", "", &check))
	assert.Equal(t, false, check["conflicted"])
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/v1/slots/check?table=1-T1&reserved_at=2024-05-01T18:30:00", "", &check))
	assert.Equal(t, true, check["conflicted"])

	var pizza []service.BoardEntry
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/v1/board?date=2024-05-01&station=pizza", "", &pizza))
	require.Len(t, pizza, 1)
	require.Len(t, pizza[0].Rows, 2)
	assert.Equal(t, "Margherita", pizza[0].Rows[0].ItemName)
	assert.Equal(t, "Pizza", pizza[0].Rows[1].MainDetail)

	var rec model.ProgressRecord
	row := itoa(pizza[0].Rows[0].ID)
	require.Equal(t, http.StatusOK, a.do(http.MethodPut, "/v1/progress/"+row+"/cooked", `{"flag":true}`, &rec))
	assert.True(t, rec.IsCooked)
	assert.NotNil(t, rec.CookedAt)
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPut, "/v1/progress/"+row+"/served", `{}`, nil))

	var cooked []service.BoardEntry
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/v1/board/cooked?date=2024-05-01", "", &cooked))
	require.Len(t, cooked, 1)
	assert.Equal(t, "12:00", cooked[0].Rows[0].CookedTime)

	var arrived model.Reservation
	require.Equal(t, http.StatusOK, a.do(http.MethodPatch, "/v1/reservations/"+id+"/status", `{"status":"arrived"}`, &arrived))
	assert.Equal(t, model.StatusArrived, arrived.Status)
	assert.NotNil(t, arrived.ArrivedAt)

	var day service.DayListing
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/v1/reservations?date=2024-05-01", "", &day))
	assert.Equal(t, 1, day.Summary.Total)
	assert.Equal(t, 1, day.Summary.BySlot[0].Count)

	var updated reservationView
	require.Equal(t, http.StatusOK, a.do(http.MethodPut, "/v1/reservations/"+id,
		`{"guest_name":"Tanaka","guest_count":3,"table_no":"1-T1","main_choice":"Pasta:3"}`, &updated))
	assert.Equal(t, "Pasta:3", updated.Reservation.MainChoice)

	var bad map[string]string
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPut, "/v1/reservations/"+id,
		`{"reserved_at":"2024-05-01T21:00:00","guest_name":"Tanaka","guest_count":3,"table_no":"1-T1","main_choice":"Pasta:3"}`, &bad))
	assert.Equal(t, "reserved_at", bad["field"])

	var inUse map[string]string
	assert.Equal(t, http.StatusConflict, a.do(http.MethodDelete, "/v1/courses/"+itoa(courseID), "", &inUse))
	assert.Equal(t, "course still has reservations", inUse["error"])

	assert.Equal(t, http.StatusNoContent, a.do(http.MethodDelete, "/v1/reservations/"+id, "", nil))
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/v1/reservations/"+id, "", nil))
	assert.Equal(t, http.StatusNoContent, a.do(http.MethodDelete, "/v1/courses/"+itoa(courseID), "", nil))
}

func TestCreateReservationValidation(t *testing.T) {
	a := newAPI(t, false)
	courseID := a.seedCourse()

	var body map[string]string
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPost, "/v1/reservations", bookingBody(courseID, "1-T1", "tonight"), &body))
	assert.Equal(t, "reserved_at", body["field"])

	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPost, "/v1/reservations", bookingBody(courseID, "Patio", "2024-05-01T18:00:00"), &body))
	assert.Equal(t, "table_no", body["field"])

	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPost, "/v1/reservations", `{"course_id":`+itoa(courseID)+
		`,"reserved_at":"2024-05-01T18:00:00","guest_name":"Tanaka","guest_count":2,"table_no":"1-T1","main_counts":{"Pasta":1}}`, &body))
	assert.Equal(t, "main_counts", body["field"])

	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPost, "/v1/reservations", `{not json`, nil))
}

func TestCreateReservationPartialFailure(t *testing.T) {
	a := newAPI(t, true)
	courseID := a.seedCourse()

	var body struct {
		Committed   string            `json:"committed"`
		Failed      string            `json:"failed"`
		Reservation model.Reservation `json:"reservation"`
	}
	require.Equal(t, http.StatusInternalServerError, a.do(http.MethodPost, "/v1/reservations", bookingBody(courseID, "1-T1", "2024-05-01T18:00:00"), &body))
	assert.Equal(t, "reservation", body.Committed)
	assert.Equal(t, "progress records", body.Failed)
	require.NotZero(t, body.Reservation.ID)

	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, "/v1/reservations/"+itoa(body.Reservation.ID), "", nil))
}

func TestCourseEndpoints(t *testing.T) {
	a := newAPI(t, false)
	courseID := a.seedCourse()
	id := itoa(courseID)

	var dup map[string]string
	assert.Equal(t, http.StatusConflict, a.do(http.MethodPost, "/v1/courses", `{"name":"chef's course"}`, &dup))

	var detail service.CourseDetail
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/v1/courses/"+id, "", &detail))
	require.Len(t, detail.Items, 3)
	assert.Equal(t, model.KindMain, detail.Items[2].Kind)

	var item model.CourseItem
	require.Equal(t, http.StatusOK, a.do(http.MethodPut, "/v1/items/"+itoa(detail.Items[0].ID),
		`{"item_name":"Bruschetta","offset_minutes":5,"making_place":"kitchen"}`, &item))
	assert.Equal(t, 1, item.DisplayOrder)
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPut, "/v1/items/"+itoa(detail.Items[0].ID),
		`{"item_name":"Bruschetta","offset_minutes":601}`, nil))

	var off model.CourseTemplate
	require.Equal(t, http.StatusOK, a.do(http.MethodPatch, "/v1/courses/"+id+"/active", `{"is_active":false}`, &off))
	assert.False(t, off.IsActive)

	var active []model.CourseTemplate
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/v1/courses?active=true", "", &active))
	assert.Empty(t, active)
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodGet, "/v1/courses?active=sometimes", "", nil))

	assert.Equal(t, http.StatusNoContent, a.do(http.MethodDelete, "/v1/items/"+itoa(detail.Items[0].ID), "", nil))
	assert.Equal(t, http.StatusNoContent, a.do(http.MethodDelete, "/v1/courses/"+id, "", nil))
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/v1/courses/"+id, "", nil))
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodGet, "/v1/courses/abc", "", nil))
}

func TestBoardParams(t *testing.T) {
	a := newAPI(t, false)
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodGet, "/v1/board?station=bar", "", nil))
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodGet, "/v1/board?date=05/01/2024", "", nil))

	var empty []service.BoardEntry
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/v1/board?station=all", "", &empty))
	assert.Empty(t, empty)
}

func TestHealthAndMeta(t *testing.T) {
	a := newAPI(t, false)
	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, "/healthz", "", nil))

	var meta struct {
		Tables []string         `json:"tables"`
		Slots  []string         `json:"slots"`
		Dishes []model.MainDish `json:"main_dishes"`
	}
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/v1/meta", "", &meta))
	assert.Contains(t, meta.Tables, "Record")
	assert.Equal(t, []string{"18:00", "18:30", "20:30", "21:00"}, meta.Slots)
	assert.Len(t, meta.Dishes, 2)
}

func itoa(n uint64) string { return strconv.FormatUint(n, 10) }
