package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/florapix/devicehub/internal/core/domain"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // bad_request, not_found, internal_error, ...
	Message   string `json:"message"` // human-readable message
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

// locationErrorResponse maps the sensor error taxonomy onto HTTP. The
// numeric code rides along so clients keep the platform semantics.
type locationErrorResponse struct {
	Error domain.LocationError `json:"error"`
}

func errLocation(c *fiber.Ctx, locErr *domain.LocationError) error {
	status := 503
	switch locErr.Code {
	case domain.LocErrPermissionDenied:
		status = 403
	case domain.LocErrTimeout:
		status = 504
	}
	return c.Status(status).JSON(locationErrorResponse{Error: *locErr})
}
