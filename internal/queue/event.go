// Package queue defines message payloads exchanged over the message broker
// and the publisher and consumer that move them.
package queue

import (
	"fmt"
	"strings"
)

// DefaultQueue is the durable queue course-service events go to.
const DefaultQueue = "course.activity"

// EventType names what happened on the floor.
type EventType string

const (
	ReservationCreated EventType = "reservation.created"
	ReservationUpdated EventType = "reservation.updated"
	ReservationDeleted EventType = "reservation.deleted"
	ReservationStatus  EventType = "reservation.status"
	ProgressCooked     EventType = "progress.cooked"
	ProgressServed     EventType = "progress.served"
	ReservationsSwept  EventType = "reservations.swept"
)

// CourseEvent is published after a reservation or progress row changes.
// It carries enough context for the activity log without querying the
// primary database.
type CourseEvent struct {
	ID            string    `json:"id"`
	Type          EventType `json:"type"`
	ReservationID uint64    `json:"reservation_id,omitempty"`
	ProgressID    uint64    `json:"progress_id,omitempty"`
	TableNo       string    `json:"table_no,omitempty"`
	GuestName     string    `json:"guest_name,omitempty"`
	ReservedAt    string    `json:"reserved_at,omitempty"`
	Status        string    `json:"status,omitempty"`
	Flag          *bool     `json:"flag,omitempty"`
	Count         int       `json:"count,omitempty"`
	OccurredAt    string    `json:"occurred_at"`
}

// Line renders the event as one human-friendly log line.
func (ev CourseEvent) Line() string {
	parts := []string{fmt.Sprintf("[%s] %s", ev.OccurredAt, ev.Type)}
	if ev.ReservationID != 0 {
		parts = append(parts, fmt.Sprintf("reservation_id=%d", ev.ReservationID))
	}
	if ev.ProgressID != 0 {
		parts = append(parts, fmt.Sprintf("progress_id=%d", ev.ProgressID))
	}
	if ev.TableNo != "" {
		parts = append(parts, fmt.Sprintf("table=%q", ev.TableNo))
	}
	if ev.GuestName != "" {
		parts = append(parts, fmt.Sprintf("guest=%q", ev.GuestName))
	}
	if ev.ReservedAt != "" {
		parts = append(parts, "reserved_at="+ev.ReservedAt)
	}
	if ev.Status != "" {
		parts = append(parts, "status="+ev.Status)
	}
	if ev.Flag != nil {
		parts = append(parts, fmt.Sprintf("flag=%t", *ev.Flag))
	}
	if ev.Type == ReservationsSwept {
		parts = append(parts, fmt.Sprintf("count=%d", ev.Count))
	}
	return strings.Join(parts, " | ") + "\n"
}
