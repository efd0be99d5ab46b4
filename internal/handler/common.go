package handler // handler defines http handlers

import (
	"errors"   // errors matches the service error types
	"net/http" // http defines status codes
	"strconv"  // strconv converts path params to integers
	"strings"  // strings trims query values

	"github.com/labstack/echo/v4" // echo defines request context types

	"github.com/halpe-hal/pizza-course-manager-app/internal/clock"
	"github.com/halpe-hal/pizza-course-manager-app/internal/logger"
	"github.com/halpe-hal/pizza-course-manager-app/internal/service"
)

var httpLog = logger.New("http")

// parseID reads a positive numeric path parameter.
func parseID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

// badID responds 400 for an unparsable path id.
func badID(c echo.Context, name string) error {
	return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid " + name})
}

// parseDate reads ?date=YYYY-MM-DD, defaulting to today in JST.
func parseDate(c echo.Context, now clock.Clock) (clock.Date, error) {
	raw := strings.TrimSpace(c.QueryParam("date"))
	if raw == "" {
		return clock.Today(now), nil
	}
	return clock.ParseDate(raw)
}

// writeError maps service errors onto HTTP responses.
func writeError(c echo.Context, err error) error {
	var (
		verr *service.ValidationError
		cerr *service.ConflictError
		perr *service.PersistenceError
	)
	switch {
	case errors.As(err, &verr):
		body := map[string]string{"error": verr.Message}
		if verr.Field != "" {
			body["field"] = verr.Field
		}
		return c.JSON(http.StatusBadRequest, body)
	case errors.As(err, &cerr):
		return c.JSON(http.StatusConflict, map[string]string{
			"error":       cerr.Error(),
			"table_no":    cerr.TableNo,
			"reserved_at": clock.Format(cerr.ReservedAt),
		})
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, service.ErrDuplicate):
		return c.JSON(http.StatusConflict, map[string]string{"error": "name already in use"})
	case errors.Is(err, service.ErrInUse):
		return c.JSON(http.StatusConflict, map[string]string{"error": "course still has reservations"})
	case errors.As(err, &perr):
		httpLog.Error("%s %s: %+v", c.Request().Method, c.Path(), err)
		body := map[string]any{"error": "storage failure during " + perr.Op}
		if perr.Partial() {
			body["committed"] = perr.Committed
			body["failed"] = perr.Failed
		}
		return c.JSON(http.StatusInternalServerError, body)
	}
	httpLog.Error("%s %s: %v", c.Request().Method, c.Path(), err)
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
}
