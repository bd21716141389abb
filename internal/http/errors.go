package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/gridstatus/internal-analytics/internal/insights"
	"github.com/gridstatus/internal-analytics/internal/queries"
)

// ValidationError reports bad caller input; surfaced as HTTP 400.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// NotFoundError reports an absent referenced entity; surfaced as HTTP 404.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string { return e.Resource + " not found" }

// errorResponse is the wire shape for every error this API returns.
type errorResponse struct {
	Error string `json:"error"`
}

// respondError is the single place that maps the error taxonomy to HTTP
// statuses and sanitizes what the client sees. Internal details are
// logged, never returned.
func respondError(c *fiber.Ctx, logger *slog.Logger, err error) error {
	var validation *ValidationError
	var notFound *NotFoundError
	var unbound *queries.UnboundPlaceholderError
	var clientErr *insights.ClientError

	switch {
	case errors.As(err, &validation):
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: validation.Msg})

	case errors.As(err, &notFound):
		return c.Status(fiber.StatusNotFound).JSON(errorResponse{Error: notFound.Error()})

	case errors.As(err, &unbound):
		// Programmer error: a template reached rendering with missing
		// bindings. Real traffic hitting this means a test gap.
		logger.Error("template binding failure", slog.Any("error", err))
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "internal error"})

	case errors.As(err, &clientErr):
		logger.Error("analytics query rejected",
			slog.Int("status", clientErr.Status),
			slog.String("body", clientErr.Body))
		if clientErr.Status == http.StatusUnauthorized || clientErr.Status == http.StatusForbidden {
			return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "analytics service misconfigured"})
		}
		return c.Status(fiber.StatusBadGateway).JSON(errorResponse{Error: "analytics service rejected the query"})

	case insights.IsRetryable(err):
		// Retries already exhausted inside the client; tell the UI to
		// offer "try again" rather than "broken".
		logger.Warn("analytics service unavailable", slog.Any("error", err))
		return c.Status(fiber.StatusServiceUnavailable).JSON(errorResponse{Error: "analytics temporarily unavailable, please retry"})

	case errors.Is(err, context.Canceled):
		// Inbound request was aborted; nobody is listening anymore.
		return c.Status(fiber.StatusServiceUnavailable).JSON(errorResponse{Error: "request canceled"})

	default:
		logger.Error("unhandled error", slog.Any("error", err))
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "internal error"})
	}
}
