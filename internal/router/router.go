package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/halpe-hal/pizza-course-manager-app/internal/handler" // handlers backed by the services
)

// Handlers bundles the route targets.
type Handlers struct {
	Courses      *handler.CourseHandler
	Reservations *handler.ReservationHandler
	Board        *handler.BoardHandler
}

// RegisterRoutes registers the health check and every /v1 endpoint.  mw
// is applied to the /v1 group only, so probes bypass cache and rate limit.
func RegisterRoutes(e *echo.Echo, h Handlers, mw ...echo.MiddlewareFunc) {
	e.GET("/healthz", handler.Health)

	g := e.Group("/v1", mw...)
	g.GET("/meta", handler.Meta)

	// ---- Course master ----
	g.GET("/courses", h.Courses.ListCourses)
	g.POST("/courses", h.Courses.CreateCourse)
	g.GET("/courses/:id", h.Courses.GetCourse)
	g.PUT("/courses/:id", h.Courses.UpdateCourse)
	g.PATCH("/courses/:id/active", h.Courses.SetCourseActive)
	g.DELETE("/courses/:id", h.Courses.DeleteCourse)
	g.GET("/courses/:id/items", h.Courses.ListItems)
	g.POST("/courses/:id/items", h.Courses.AddItem)
	g.PUT("/items/:id", h.Courses.UpdateItem)
	g.DELETE("/items/:id", h.Courses.DeleteItem)

	// ---- Reservations ----
	g.GET("/reservations", h.Reservations.ListReservations)
	g.POST("/reservations", h.Reservations.CreateReservation)
	g.GET("/reservations/:id", h.Reservations.GetReservation)
	g.PUT("/reservations/:id", h.Reservations.UpdateReservation)
	g.DELETE("/reservations/:id", h.Reservations.DeleteReservation)
	g.PATCH("/reservations/:id/status", h.Reservations.SetStatus)
	g.GET("/slots/check", h.Reservations.CheckSlot)

	// ---- Kitchen boards ----
	g.GET("/board", h.Board.Station)
	g.GET("/board/cooked", h.Board.Cooked)
	g.GET("/board/served", h.Board.Served)
	g.PUT("/progress/:id/cooked", h.Board.SetCooked)
	g.PUT("/progress/:id/served", h.Board.SetServed)
}
