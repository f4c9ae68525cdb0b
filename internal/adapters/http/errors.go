package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/darukaa/siteboundary/internal/core/domain"
	"github.com/darukaa/siteboundary/internal/core/usecases"
	"github.com/darukaa/siteboundary/internal/mapview"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // Error code: bad_request, not_found, internal_error, etc.
	Message   string `json:"message"` // Human-readable message
	RequestID string `json:"request_id,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, 400, "bad_request", msg)
}

// errNotFound returns a 404 error.
func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, 404, "not_found", msg)
}

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, 500, "internal_error", msg)
}

// errUnauthorized returns a 401 error.
func errUnauthorized(c *fiber.Ctx, msg string) error {
	return newError(c, 401, "unauthorized", msg)
}

// classify maps a service error onto an HTTP status and error code.
// ok is false for errors that have no client-facing meaning.
func classify(err error) (status int, code, msg string, ok bool) {
	switch {
	case errors.Is(err, domain.ErrProjectNotFound):
		return 404, "not_found", "project not found", true
	case errors.Is(err, domain.ErrNotFound):
		return 404, "not_found", "site not found", true
	case errors.Is(err, usecases.ErrSessionNotFound):
		return 404, "not_found", "session not found", true
	case errors.Is(err, mapview.ErrShapeNotFound):
		return 404, "not_found", err.Error(), true
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, usecases.ErrUnknownGesture),
		errors.Is(err, mapview.ErrVertexOutOfRange):
		return 400, "bad_request", err.Error(), true
	case errors.Is(err, mapview.ErrInvalidTransition):
		return 409, "conflict", err.Error(), true
	case errors.Is(err, usecases.ErrTooManySessions):
		return 429, "too_many_sessions", err.Error(), true
	case errors.Is(err, mapview.ErrViewportUnavailable), errors.Is(err, mapview.ErrReleased):
		return 503, "viewport_unavailable", err.Error(), true
	}
	return 500, "internal_error", "internal error", false
}

// errFrom maps a service error onto the matching API error.
func errFrom(c *fiber.Ctx, err error) error {
	status, code, msg, ok := classify(err)
	if !ok {
		LoggerFromCtx(c.UserContext()).Error("request failed", "path", c.Path(), "error", err)
	}
	return newError(c, status, code, msg)
}
