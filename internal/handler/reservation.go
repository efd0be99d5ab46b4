package handler // handler package contains the reservation handlers

import (
	"errors"   // errors picks out partial persistence failures
	"net/http" // http defines status codes
	"strconv"  // strconv parses the optional exclude id
	"strings"  // strings trims query values

	"github.com/labstack/echo/v4" // echo provides the web context and JSON helpers

	"github.com/halpe-hal/pizza-course-manager-app/internal/clock"
	"github.com/halpe-hal/pizza-course-manager-app/internal/model"
	"github.com/halpe-hal/pizza-course-manager-app/internal/service"
)

// ReservationHandler exposes the reservation lifecycle and the day list.
type ReservationHandler struct {
	Lifecycle *service.Lifecycle
	Board     *service.Board
	Clock     clock.Clock
}

// NewReservationHandler panics if a service is missing.
func NewReservationHandler(lc *service.Lifecycle, board *service.Board, c clock.Clock) *ReservationHandler {
	if lc == nil || board == nil {
		panic("nil service passed to NewReservationHandler")
	}
	if c == nil {
		c = clock.System{}
	}
	return &ReservationHandler{Lifecycle: lc, Board: board, Clock: c}
}

// reservationBody is shared by create and update.  Dish counts may be sent
// either as a map or in the serialized "Pasta:1, Pizza:1" form.
type reservationBody struct {
	CourseID   uint64           `json:"course_id"`   // create only
	ReservedAt string           `json:"reserved_at"` // ISO-8601; naive values are JST
	GuestName  string           `json:"guest_name"`
	GuestCount int              `json:"guest_count"`
	TableNo    string           `json:"table_no"`
	Status     model.Status     `json:"status"` // update only
	Note       string           `json:"note"`
	MainCounts model.MainCounts `json:"main_counts"`
	MainChoice string           `json:"main_choice"`
}

func (b reservationBody) counts() model.MainCounts {
	if b.MainCounts == nil && strings.TrimSpace(b.MainChoice) != "" {
		return model.ParseMainChoice(b.MainChoice)
	}
	return b.MainCounts
}

// reservationView is a reservation with its progress rows, rendered in JST.
type reservationView struct {
	Reservation model.Reservation      `json:"reservation"`
	Progress    []model.ProgressRecord `json:"progress,omitempty"`
	Warnings    []string               `json:"warnings,omitempty"`
}

func newReservationView(r *model.Reservation, recs []model.ProgressRecord, warnings []string) reservationView {
	v := reservationView{Reservation: r.In(clock.JST), Warnings: warnings}
	for _, p := range recs {
		v.Progress = append(v.Progress, p.In(clock.JST))
	}
	return v
}

// ListReservations handles GET /v1/reservations?date=YYYY-MM-DD.  The
// date defaults to today.  Cancelled reservations are included.
func (h *ReservationHandler) ListReservations(c echo.Context) error {
	date, err := parseDate(c, h.Clock)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid date, want YYYY-MM-DD"})
	}
	day, err := h.Board.Day(c.Request().Context(), date)
	if err != nil {
		return writeError(c, err)
	}
	for i := range day.Reservations {
		day.Reservations[i] = day.Reservations[i].In(clock.JST)
	}
	return c.JSON(http.StatusOK, day)
}

// CreateReservation handles POST /v1/reservations.  A reservation that was
// saved without its progress rows is still returned, with status 500 and
// the committed and failed parts named.
func (h *ReservationHandler) CreateReservation(c echo.Context) error {
	var body reservationBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	at, err := clock.ParseTimestamp(body.ReservedAt)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid reserved_at", "field": "reserved_at"})
	}
	res, err := h.Lifecycle.Create(c.Request().Context(), service.CreateInput{
		CourseID:   body.CourseID,
		ReservedAt: at,
		GuestName:  body.GuestName,
		GuestCount: body.GuestCount,
		TableNo:    body.TableNo,
		Note:       body.Note,
		MainCounts: body.counts(),
	})
	if err != nil {
		var perr *service.PersistenceError
		if res != nil && errors.As(err, &perr) && perr.Partial() {
			httpLog.Error("create reservation %d: %v", res.Reservation.ID, err)
			return c.JSON(http.StatusInternalServerError, map[string]any{
				"error":       perr.Error(),
				"committed":   perr.Committed,
				"failed":      perr.Failed,
				"reservation": res.Reservation.In(clock.JST),
			})
		}
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, newReservationView(res.Reservation, res.Progress, res.Warnings))
}

// GetReservation handles GET /v1/reservations/:id.
func (h *ReservationHandler) GetReservation(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badID(c, "id")
	}
	res, recs, err := h.Lifecycle.Get(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, newReservationView(res, recs, nil))
}

// UpdateReservation handles PUT /v1/reservations/:id.  reserved_at may be
// omitted; if sent it must equal the stored time.
func (h *ReservationHandler) UpdateReservation(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badID(c, "id")
	}
	var body reservationBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	in := service.UpdateInput{
		GuestName:  body.GuestName,
		GuestCount: body.GuestCount,
		TableNo:    body.TableNo,
		Status:     body.Status,
		Note:       body.Note,
		MainCounts: body.counts(),
	}
	if strings.TrimSpace(body.ReservedAt) != "" {
		at, err := clock.ParseTimestamp(body.ReservedAt)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid reserved_at", "field": "reserved_at"})
		}
		in.ReservedAt = at
	}
	res, err := h.Lifecycle.Update(c.Request().Context(), id, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, newReservationView(res.Reservation, nil, res.Warnings))
}

// DeleteReservation handles DELETE /v1/reservations/:id.
func (h *ReservationHandler) DeleteReservation(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badID(c, "id")
	}
	if err := h.Lifecycle.Delete(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// SetStatus handles PATCH /v1/reservations/:id/status with {"status": "..."}.
func (h *ReservationHandler) SetStatus(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badID(c, "id")
	}
	var body struct {
		Status model.Status `json:"status"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	res, err := h.Lifecycle.SetStatus(c.Request().Context(), id, body.Status)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res.In(clock.JST))
}

// CheckSlot handles GET /v1/slots/check?table=&reserved_at=[&exclude_id=].
// It answers whether a booking there would collide without writing anything.
func (h *ReservationHandler) CheckSlot(c echo.Context) error {
	table := strings.TrimSpace(c.QueryParam("table"))
	if !model.IsTable(table) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "unknown table", "field": "table"})
	}
	at, err := clock.ParseTimestamp(c.QueryParam("reserved_at"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid reserved_at", "field": "reserved_at"})
	}
	var exclude uint64
	if raw := c.QueryParam("exclude_id"); raw != "" {
		if exclude, err = strconv.ParseUint(raw, 10, 64); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid exclude_id"})
		}
	}
	conflicted, err := h.Lifecycle.IsConflicted(c.Request().Context(), at, table, exclude)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"table_no":    table,
		"reserved_at": clock.Format(at),
		"conflicted":  conflicted,
	})
}
