package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/geofacet/internal/core/domain"
	"github.com/samirrijal/geofacet/internal/core/usecases"
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

// errConflict returns a 409 error.
func errConflict(c *fiber.Ctx, msg string) error {
	return newError(c, 409, "conflict", msg)
}

// errBadGateway returns a 502 error.
func errBadGateway(c *fiber.Ctx, msg string) error {
	return newError(c, 502, "bad_gateway", msg)
}

// errUnavailable returns a 503 error.
func errUnavailable(c *fiber.Ctx, msg string) error {
	return newError(c, 503, "service_unavailable", msg)
}

// serviceError maps a usecase or asset API error onto the error envelope.
func serviceError(c *fiber.Ctx, err error) error {
	msg := err.Error()
	switch {
	case errors.Is(err, usecases.ErrSessionNotFound),
		errors.Is(err, usecases.ErrSavedSearchNotFound),
		errors.Is(err, domain.ErrNotFound):
		return errNotFound(c, msg)
	case errors.Is(err, usecases.ErrInvalidRegion),
		errors.Is(err, usecases.ErrInvalidRange),
		errors.Is(err, usecases.ErrUnknownField),
		errors.Is(err, usecases.ErrInvalidSavedSearch):
		return errBadRequest(c, msg)
	case errors.Is(err, usecases.ErrStaleResponse):
		return errConflict(c, msg)
	case errors.Is(err, usecases.ErrNoThumbnailSource):
		return newError(c, 422, "unprocessable_entity", msg)
	case errors.Is(err, domain.ErrUpstreamUnavailable),
		errors.Is(err, usecases.ErrNoScheduler):
		return errUnavailable(c, msg)
	case errors.Is(err, domain.ErrUpstream):
		return errBadGateway(c, msg)
	case errors.Is(err, context.DeadlineExceeded):
		return newError(c, 504, "timeout", msg)
	}
	LoggerFromCtx(c.UserContext()).Error("request failed", "path", c.Path(), "error", err)
	return errInternal(c, msg)
}
