package model

import "time"

// Status is the lifecycle state of a reservation.
type Status string

const (
	StatusReserved  Status = "reserved"
	StatusArrived   Status = "arrived"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// Statuses lists every status value.
var Statuses = []Status{StatusReserved, StatusArrived, StatusCancelled, StatusCompleted}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

// Blocks reports whether a reservation in this status holds its table.
// Only cancelled reservations free the slot.
func (s Status) Blocks() bool { return s != StatusCancelled }

// Reservation is a booking of a course for a party at a table.
//
// Fields:
//  ID         – primary key identifier.
//  CourseID   – booked course template.
//  ReservedAt – seating time; fixed once created.
//  GuestName  – name the party booked under.
//  GuestCount – party size, at least one.
//  TableNo    – one of the restaurant's tables.
//  Status     – reserved, arrived, cancelled or completed.
//  Note       – free text.
//  MainChoice – serialized dish counts, e.g. "Pasta:1, Pizza:1".
//  ArrivedAt  – set when the party checks in.
//  CreatedAt  – creation timestamp.
//  UpdatedAt  – last update timestamp.
type Reservation struct {
	ID         uint64     `json:"id"`                   // reservations.id
	CourseID   uint64     `json:"course_id"`            // reservations.course_id
	ReservedAt time.Time  `json:"reserved_at"`          // reservations.reserved_at
	GuestName  string     `json:"guest_name"`           // reservations.guest_name
	GuestCount int        `json:"guest_count"`          // reservations.guest_count
	TableNo    string     `json:"table_no"`             // reservations.table_no
	Status     Status     `json:"status"`               // reservations.status
	Note       string     `json:"note"`                 // reservations.note
	MainChoice string     `json:"main_choice"`          // reservations.main_choice
	ArrivedAt  *time.Time `json:"arrived_at,omitempty"` // reservations.arrived_at (nullable)
	CreatedAt  time.Time  `json:"created_at"`           // reservations.created_at
	UpdatedAt  time.Time  `json:"updated_at"`           // reservations.updated_at
}

// Blocks reports whether the reservation occupies its table slot.
func (r Reservation) Blocks() bool { return r.Status.Blocks() }

// In returns a copy with every timestamp expressed in loc.
func (r Reservation) In(loc *time.Location) Reservation {
	r.ReservedAt = r.ReservedAt.In(loc)
	r.CreatedAt = r.CreatedAt.In(loc)
	r.UpdatedAt = r.UpdatedAt.In(loc)
	r.ArrivedAt = inPtr(r.ArrivedAt, loc)
	return r
}

func inPtr(t *time.Time, loc *time.Location) *time.Time {
	if t == nil {
		return nil
	}
	v := t.In(loc)
	return &v
}
