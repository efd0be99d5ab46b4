package model

import "time"

// ProgressRecord tracks one dish of one reservation through the kitchen.
//
// Fields:
//  ID            – primary key identifier.
//  ReservationID – owning reservation.
//  CourseItemID  – course item the row was derived from.
//  ScheduledTime – reservation start plus the item's offset.
//  IsCooked      – dish has left the station.
//  CookedAt      – set iff IsCooked.
//  IsServed      – dish has reached the table.
//  ServedAt      – set iff IsServed.
//  MainDetail    – chosen dish for rows derived from the Main item.
//  Quantity      – number of plates, at least one.
type ProgressRecord struct {
	ID            uint64     `json:"id"`                  // progress_records.id
	ReservationID uint64     `json:"reservation_id"`      // progress_records.reservation_id
	CourseItemID  uint64     `json:"course_item_id"`      // progress_records.course_item_id
	ScheduledTime time.Time  `json:"scheduled_time"`      // progress_records.scheduled_time
	IsCooked      bool       `json:"is_cooked"`           // progress_records.is_cooked
	CookedAt      *time.Time `json:"cooked_at,omitempty"` // progress_records.cooked_at (nullable)
	IsServed      bool       `json:"is_served"`           // progress_records.is_served
	ServedAt      *time.Time `json:"served_at,omitempty"` // progress_records.served_at (nullable)
	MainDetail    string     `json:"main_detail"`         // progress_records.main_detail
	Quantity      int        `json:"quantity"`            // progress_records.quantity
}

// In returns a copy with every timestamp expressed in loc.
func (p ProgressRecord) In(loc *time.Location) ProgressRecord {
	p.ScheduledTime = p.ScheduledTime.In(loc)
	p.CookedAt = inPtr(p.CookedAt, loc)
	p.ServedAt = inPtr(p.ServedAt, loc)
	return p
}
