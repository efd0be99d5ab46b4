package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/halpe-hal/pizza-course-manager-app/internal/clock"
	"github.com/halpe-hal/pizza-course-manager-app/internal/model"
	"github.com/halpe-hal/pizza-course-manager-app/internal/service"
)

// BoardHandler serves the station boards and the cooked/served toggles.
type BoardHandler struct {
	Board   *service.Board
	Tracker *service.Tracker
	Clock   clock.Clock
}

// NewBoardHandler panics if a service is missing.
func NewBoardHandler(board *service.Board, tracker *service.Tracker, c clock.Clock) *BoardHandler {
	if board == nil || tracker == nil {
		panic("nil service passed to NewBoardHandler")
	}
	if c == nil {
		c = clock.System{}
	}
	return &BoardHandler{Board: board, Tracker: tracker, Clock: c}
}

// parseStation maps ?station= onto a making place; "all" and "" mean every row.
func parseStation(raw string) (model.MakingPlace, bool) {
	switch s := model.MakingPlace(strings.ToLower(strings.TrimSpace(raw))); s {
	case "", "all":
		return "", true
	case model.PlacePizza, model.PlaceKitchen:
		return s, true
	}
	return "", false
}

func boardInJST(entries []service.BoardEntry) []service.BoardEntry {
	for i := range entries {
		entries[i].Reservation = entries[i].Reservation.In(clock.JST)
		for j := range entries[i].Rows {
			entries[i].Rows[j].ProgressRecord = entries[i].Rows[j].ProgressRecord.In(clock.JST)
		}
	}
	return entries
}

// Station handles GET /v1/board?date=&station=pizza|kitchen|all.
func (h *BoardHandler) Station(c echo.Context) error {
	date, err := parseDate(c, h.Clock)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid date, want YYYY-MM-DD"})
	}
	station, ok := parseStation(c.QueryParam("station"))
	if !ok {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "station must be pizza, kitchen or all"})
	}
	entries, err := h.Board.Station(c.Request().Context(), date, station)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, boardInJST(entries))
}

// Cooked handles GET /v1/board/cooked?date=.
func (h *BoardHandler) Cooked(c echo.Context) error {
	date, err := parseDate(c, h.Clock)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid date, want YYYY-MM-DD"})
	}
	entries, err := h.Board.Cooked(c.Request().Context(), date)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, boardInJST(entries))
}

// Served handles GET /v1/board/served?date=.
func (h *BoardHandler) Served(c echo.Context) error {
	date, err := parseDate(c, h.Clock)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid date, want YYYY-MM-DD"})
	}
	entries, err := h.Board.Served(c.Request().Context(), date)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, boardInJST(entries))
}

type flagBody struct {
	Flag *bool `json:"flag"`
}

// SetCooked handles PUT /v1/progress/:id/cooked with {"flag": bool}.
func (h *BoardHandler) SetCooked(c echo.Context) error {
	return h.toggle(c, h.Tracker.SetCooked)
}

// SetServed handles PUT /v1/progress/:id/served with {"flag": bool}.
func (h *BoardHandler) SetServed(c echo.Context) error {
	return h.toggle(c, h.Tracker.SetServed)
}

func (h *BoardHandler) toggle(c echo.Context, set func(ctx context.Context, id uint64, flag bool) (*model.ProgressRecord, error)) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badID(c, "id")
	}
	var body flagBody
	if err := c.Bind(&body); err != nil || body.Flag == nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "flag is required"})
	}
	rec, err := set(c.Request().Context(), id, *body.Flag)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, rec.In(clock.JST))
}
