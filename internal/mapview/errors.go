package mapview

import "errors"

var (
	// ErrViewportUnavailable is returned when the map viewport cannot be created.
	ErrViewportUnavailable = errors.New("mapview: viewport unavailable")
	// ErrInvalidTransition is returned for a gesture not allowed in the current mode.
	ErrInvalidTransition = errors.New("mapview: invalid transition")
	// ErrShapeNotFound is returned when a gesture targets an unknown shape.
	ErrShapeNotFound = errors.New("mapview: shape not found")
	// ErrVertexOutOfRange is returned when a vertex index does not exist on a shape.
	ErrVertexOutOfRange = errors.New("mapview: vertex index out of range")
	// ErrReleased is returned for operations on a surface that was already released.
	ErrReleased = errors.New("mapview: surface released")
)
