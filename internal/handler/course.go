package handler // handler package contains the course master handlers

import (
	"net/http" // http defines status codes
	"strconv"  // strconv parses the ?active flag

	"github.com/labstack/echo/v4" // echo provides the web context and JSON helpers

	"github.com/halpe-hal/pizza-course-manager-app/internal/model"
	"github.com/halpe-hal/pizza-course-manager-app/internal/service"
)

// CourseHandler exposes course templates and their items.
type CourseHandler struct {
	Courses *service.Courses
}

// NewCourseHandler panics on a nil service.
func NewCourseHandler(courses *service.Courses) *CourseHandler {
	if courses == nil {
		panic("nil service passed to NewCourseHandler")
	}
	return &CourseHandler{Courses: courses}
}

type courseBody struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsActive    *bool  `json:"is_active"` // defaults to true
}

func (b courseBody) input() service.CourseInput {
	active := true
	if b.IsActive != nil {
		active = *b.IsActive
	}
	return service.CourseInput{Name: b.Name, Description: b.Description, IsActive: active}
}

type itemBody struct {
	ItemName      string            `json:"item_name"`
	Kind          model.ItemKind    `json:"kind"`
	OffsetMinutes int               `json:"offset_minutes"`
	DisplayOrder  *int              `json:"display_order"`
	MakingPlace   model.MakingPlace `json:"making_place"`
	Memo          string            `json:"memo"`
}

func (b itemBody) input() service.ItemInput {
	return service.ItemInput{
		ItemName:      b.ItemName,
		Kind:          b.Kind,
		OffsetMinutes: b.OffsetMinutes,
		DisplayOrder:  b.DisplayOrder,
		MakingPlace:   b.MakingPlace,
		Memo:          b.Memo,
	}
}

// ListCourses handles GET /v1/courses.  ?active=true limits the list to
// templates that can be booked.
func (h *CourseHandler) ListCourses(c echo.Context) error {
	activeOnly := false
	if raw := c.QueryParam("active"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid active flag"})
		}
		activeOnly = v
	}
	list, err := h.Courses.List(c.Request().Context(), activeOnly)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

// GetCourse handles GET /v1/courses/:id and includes the items.
func (h *CourseHandler) GetCourse(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badID(c, "id")
	}
	detail, err := h.Courses.Get(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, detail)
}

// CreateCourse handles POST /v1/courses.
func (h *CourseHandler) CreateCourse(c echo.Context) error {
	var body courseBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	course, err := h.Courses.Create(c.Request().Context(), body.input())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, course)
}

// UpdateCourse handles PUT /v1/courses/:id.
func (h *CourseHandler) UpdateCourse(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badID(c, "id")
	}
	var body courseBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	course, err := h.Courses.Update(c.Request().Context(), id, body.input())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, course)
}

// SetCourseActive handles PATCH /v1/courses/:id/active with {"is_active": bool}.
func (h *CourseHandler) SetCourseActive(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badID(c, "id")
	}
	var body struct {
		IsActive *bool `json:"is_active"`
	}
	if err := c.Bind(&body); err != nil || body.IsActive == nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "is_active is required"})
	}
	course, err := h.Courses.SetActive(c.Request().Context(), id, *body.IsActive)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, course)
}

// DeleteCourse handles DELETE /v1/courses/:id.  Items go with it.
func (h *CourseHandler) DeleteCourse(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badID(c, "id")
	}
	if err := h.Courses.Delete(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListItems handles GET /v1/courses/:id/items.
func (h *CourseHandler) ListItems(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badID(c, "id")
	}
	detail, err := h.Courses.Get(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, detail.Items)
}

// AddItem handles POST /v1/courses/:id/items.
func (h *CourseHandler) AddItem(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badID(c, "id")
	}
	var body itemBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	item, err := h.Courses.AddItem(c.Request().Context(), id, body.input())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, item)
}

// UpdateItem handles PUT /v1/items/:id.
func (h *CourseHandler) UpdateItem(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badID(c, "id")
	}
	var body itemBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	item, err := h.Courses.UpdateItem(c.Request().Context(), id, body.input())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, item)
}

// DeleteItem handles DELETE /v1/items/:id.  Progress rows made from the
// item are removed first.
func (h *CourseHandler) DeleteItem(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badID(c, "id")
	}
	if err := h.Courses.DeleteItem(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
