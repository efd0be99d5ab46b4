package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/halpe-hal/pizza-course-manager-app/internal/model"
)

// Health is a liveness probe for load balancers.  It returns "ok".
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// Meta returns the fixed floor data the board clients render pickers from.
func Meta(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"time_zone":     "Asia/Tokyo",
		"tables":        model.Tables,
		"slots":         model.Slots,
		"main_dishes":   model.MainDishes,
		"making_places": model.MakingPlaces,
		"statuses":      model.Statuses,
	})
}
