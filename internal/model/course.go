package model

// ItemKind distinguishes ordinary course items from the Main placeholder.
type ItemKind string

const (
	// KindStandard items produce a single progress row per reservation.
	KindStandard ItemKind = "standard"
	// KindMain items are expanded into one row per chosen main dish.
	KindMain ItemKind = "main"
)

// Valid reports whether k is a known kind.
func (k ItemKind) Valid() bool { return k == KindStandard || k == KindMain }

// MakingPlace names the station that prepares an item.
type MakingPlace string

const (
	PlaceKitchen MakingPlace = "kitchen"
	PlacePizza   MakingPlace = "pizza"
	PlaceBoth    MakingPlace = "both"
)

// MakingPlaces lists every station value in display order.
var MakingPlaces = []MakingPlace{PlaceKitchen, PlacePizza, PlaceBoth}

// Valid reports whether p is a known station.
func (p MakingPlace) Valid() bool {
	switch p {
	case PlaceKitchen, PlacePizza, PlaceBoth:
		return true
	}
	return false
}

// Serves reports whether an item made at p belongs on the board of the
// given station.  "both" items show up on every board and the empty
// station matches all items.
func (p MakingPlace) Serves(station MakingPlace) bool {
	if station == "" || p == PlaceBoth {
		return true
	}
	return p == station
}

// Bounds applied to course items.
const (
	MaxOffsetMinutes = 600
	MinDisplayOrder  = 1
	MaxDisplayOrder  = 200
)

// CourseTemplate is a named menu sequence that reservations are booked
// against.
//
// Fields:
//  ID          – primary key identifier.
//  Name        – unique display name of the course.
//  Description – free text shown to staff.
//  IsActive    – only active courses accept new reservations.
type CourseTemplate struct {
	ID          uint64 `json:"id"`          // course_templates.id
	Name        string `json:"name"`        // course_templates.name
	Description string `json:"description"` // course_templates.description
	IsActive    bool   `json:"is_active"`   // course_templates.is_active
}

// CourseItem is one step of a course.  Kind marks the Main placeholder
// whose rows are derived from the reservation's dish counts.
//
// Fields:
//  ID            – primary key identifier.
//  CourseID      – owning course template.
//  ItemName      – dish or step name.
//  Kind          – standard or main.
//  OffsetMinutes – minutes after the reservation start the item is due.
//  DisplayOrder  – position within the course, 1-based.
//  MakingPlace   – station preparing the item.
//  Memo          – optional note for the kitchen.
type CourseItem struct {
	ID            uint64      `json:"id"`             // course_items.id
	CourseID      uint64      `json:"course_id"`      // course_items.course_id
	ItemName      string      `json:"item_name"`      // course_items.item_name
	Kind          ItemKind    `json:"kind"`           // course_items.kind
	OffsetMinutes int         `json:"offset_minutes"` // course_items.offset_minutes
	DisplayOrder  int         `json:"display_order"`  // course_items.display_order
	MakingPlace   MakingPlace `json:"making_place"`   // course_items.making_place
	Memo          string      `json:"memo"`           // course_items.memo
}

// IsMain reports whether the item is the Main placeholder.
func (i CourseItem) IsMain() bool { return i.Kind == KindMain }

// HasMain reports whether any of the items is a Main placeholder.
func HasMain(items []CourseItem) bool {
	for _, it := range items {
		if it.IsMain() {
			return true
		}
	}
	return false
}
