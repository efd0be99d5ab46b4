// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// services and handlers to distinguish between different failure
// scenarios without inspecting driver errors.
package repository

import "errors"

// ErrNotFound is returned when the requested course, item, reservation
// or progress row does not exist. Handlers translate it into HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a unique column such as a course name
// already holds the value. Handlers translate it into HTTP 409.
var ErrDuplicate = errors.New("duplicate")

// ErrInUse is returned when a row cannot be deleted because other rows
// still reference it, such as a course with reservations. Handlers
// translate it into HTTP 409.
var ErrInUse = errors.New("in use")
