package service

import (
	"context"
	"strings"

	"github.com/halpe-hal/pizza-course-manager-app/internal/logger"
	"github.com/halpe-hal/pizza-course-manager-app/internal/model"
)

// Courses manages course templates and their items.
type Courses struct {
	store CourseStore
	log   *logger.Logger
}

// NewCourses wires a Courses service.
func NewCourses(store CourseStore) *Courses {
	return &Courses{store: store, log: logger.New("courses")}
}

// CourseDetail is a template with its items in display order.
type CourseDetail struct {
	model.CourseTemplate
	Items []model.CourseItem `json:"items"`
}

// List returns every template, or only the active ones.
func (s *Courses) List(ctx context.Context, activeOnly bool) ([]model.CourseTemplate, error) {
	list, err := s.store.ListCourses(ctx, activeOnly)
	if err != nil {
		return nil, persistence("list courses", err)
	}
	if list == nil {
		list = []model.CourseTemplate{}
	}
	return list, nil
}

// Get returns a template with its items.
func (s *Courses) Get(ctx context.Context, id uint64) (*CourseDetail, error) {
	c, err := s.store.GetCourse(ctx, id)
	if err != nil {
		return nil, persistence("load course", err)
	}
	items, err := s.store.ListItems(ctx, id)
	if err != nil {
		return nil, persistence("load course items", err)
	}
	if items == nil {
		items = []model.CourseItem{}
	}
	return &CourseDetail{CourseTemplate: *c, Items: items}, nil
}

// CourseInput holds the editable fields of a template.
type CourseInput struct {
	Name        string
	Description string
	IsActive    bool
}

// Create adds a template.
func (s *Courses) Create(ctx context.Context, in CourseInput) (*model.CourseTemplate, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalid("name", "is required")
	}
	c := &model.CourseTemplate{Name: name, Description: strings.TrimSpace(in.Description), IsActive: in.IsActive}
	if err := s.store.CreateCourse(ctx, c); err != nil {
		return nil, persistence("create course", err)
	}
	s.log.Info("course %d %q created", c.ID, c.Name)
	return c, nil
}

// Update overwrites a template's fields.
func (s *Courses) Update(ctx context.Context, id uint64, in CourseInput) (*model.CourseTemplate, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalid("name", "is required")
	}
	if _, err := s.store.GetCourse(ctx, id); err != nil {
		return nil, persistence("load course", err)
	}
	c := &model.CourseTemplate{ID: id, Name: name, Description: strings.TrimSpace(in.Description), IsActive: in.IsActive}
	if err := s.store.UpdateCourse(ctx, c); err != nil {
		return nil, persistence("update course", err)
	}
	return c, nil
}

// SetActive toggles whether new reservations may use the template.
func (s *Courses) SetActive(ctx context.Context, id uint64, active bool) (*model.CourseTemplate, error) {
	c, err := s.store.GetCourse(ctx, id)
	if err != nil {
		return nil, persistence("load course", err)
	}
	c.IsActive = active
	if err := s.store.UpdateCourse(ctx, c); err != nil {
		return nil, persistence("update course", err)
	}
	return c, nil
}

// Delete removes a template together with its items. A template that any
// reservation still books, cancelled ones included, is refused with
// ErrInUse; deactivate it instead until the daily sweep clears them.
func (s *Courses) Delete(ctx context.Context, id uint64) error {
	if err := s.store.DeleteCourse(ctx, id); err != nil {
		return persistence("delete course", err)
	}
	s.log.Info("course %d deleted", id)
	return nil
}

// ItemInput holds the editable fields of an item. A nil DisplayOrder on
// create appends the item after the current last one.
type ItemInput struct {
	ItemName      string
	Kind          model.ItemKind
	OffsetMinutes int
	DisplayOrder  *int
	MakingPlace   model.MakingPlace
	Memo          string
}

// AddItem appends an item to a course.
func (s *Courses) AddItem(ctx context.Context, courseID uint64, in ItemInput) (*model.CourseItem, error) {
	if _, err := s.store.GetCourse(ctx, courseID); err != nil {
		return nil, persistence("load course", err)
	}
	order := 0
	if in.DisplayOrder != nil {
		order = *in.DisplayOrder
	} else {
		max, err := s.store.MaxDisplayOrder(ctx, courseID)
		if err != nil {
			return nil, persistence("load display order", err)
		}
		order = max + 1
		if order > model.MaxDisplayOrder {
			order = model.MaxDisplayOrder
		}
	}
	it, err := buildItem(in, order)
	if err != nil {
		return nil, err
	}
	it.CourseID = courseID
	if err := s.store.CreateItem(ctx, it); err != nil {
		return nil, persistence("create item", err)
	}
	return it, nil
}

// UpdateItem overwrites an item. A nil DisplayOrder keeps the current one.
func (s *Courses) UpdateItem(ctx context.Context, id uint64, in ItemInput) (*model.CourseItem, error) {
	cur, err := s.store.GetItem(ctx, id)
	if err != nil {
		return nil, persistence("load item", err)
	}
	order := cur.DisplayOrder
	if in.DisplayOrder != nil {
		order = *in.DisplayOrder
	}
	it, err := buildItem(in, order)
	if err != nil {
		return nil, err
	}
	it.ID = cur.ID
	it.CourseID = cur.CourseID
	if err := s.store.UpdateItem(ctx, it); err != nil {
		return nil, persistence("update item", err)
	}
	return it, nil
}

// DeleteItem removes an item and the progress rows derived from it.
func (s *Courses) DeleteItem(ctx context.Context, id uint64) error {
	if err := s.store.DeleteItem(ctx, id); err != nil {
		return persistence("delete item", err)
	}
	return nil
}

func buildItem(in ItemInput, order int) (*model.CourseItem, error) {
	name := strings.TrimSpace(in.ItemName)
	if name == "" {
		return nil, invalid("item_name", "is required")
	}
	kind := in.Kind
	if kind == "" {
		kind = model.KindStandard
	}
	if !kind.Valid() {
		return nil, invalid("kind", "unknown kind %q", kind)
	}
	place := in.MakingPlace
	if place == "" {
		place = model.PlaceKitchen
	}
	if !place.Valid() {
		return nil, invalid("making_place", "unknown making place %q", place)
	}
	if in.OffsetMinutes < 0 || in.OffsetMinutes > model.MaxOffsetMinutes {
		return nil, invalid("offset_minutes", "must be between 0 and %d", model.MaxOffsetMinutes)
	}
	if order < model.MinDisplayOrder || order > model.MaxDisplayOrder {
		return nil, invalid("display_order", "must be between %d and %d", model.MinDisplayOrder, model.MaxDisplayOrder)
	}
	return &model.CourseItem{
		ItemName:      name,
		Kind:          kind,
		OffsetMinutes: in.OffsetMinutes,
		DisplayOrder:  order,
		MakingPlace:   place,
		Memo:          strings.TrimSpace(in.Memo),
	}, nil
}
