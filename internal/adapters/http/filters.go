package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/timeout"

	"github.com/samirrijal/geofacet/internal/core/domain"
	"github.com/samirrijal/geofacet/internal/core/usecases"
)

// filterScope is a filter panel plus what to re-run when its selection changes.
type filterScope struct {
	state   *usecases.FilterState
	query   func() string
	changed func(ctx context.Context) (any, error)
}

// scopeResolver finds the filter panel a request addresses.
type scopeResolver func(c *fiber.Ctx) (*filterScope, error)

type toggleRequest struct {
	Field    string `json:"field"`
	Value    string `json:"value"`
	Selected bool   `json:"selected"`
}

type rangeRequest struct {
	Field string   `json:"field"`
	Min   *float64 `json:"min"`
	Max   *float64 `json:"max"`
}

type timestampRequest struct {
	Min time.Time `json:"min"`
	Max time.Time `json:"max"`
}

type fieldRequest struct {
	Key     string `json:"key"`
	Visible bool   `json:"visible"`
}

// FilterChangeResponse is returned by every filter mutation.
type FilterChangeResponse struct {
	Filters domain.FilterView `json:"filters"`
	Query   string            `json:"query"`
	Result  any               `json:"result,omitempty"`
}

// registerFilterRoutes mounts the filter panel endpoints on r.
func registerFilterRoutes(r fiber.Router, resolve scopeResolver) {
	r.Get("/filters", timeout.NewWithContext(GetFiltersHandler(resolve), 15*time.Second))
	r.Post("/filters/toggle", timeout.NewWithContext(ToggleFilterHandler(resolve), 15*time.Second))
	r.Put("/filters/range", timeout.NewWithContext(SetRangeHandler(resolve), 15*time.Second))
	r.Put("/filters/timestamp", timeout.NewWithContext(SetTimestampHandler(resolve), 15*time.Second))
	r.Delete("/filters/timestamp", timeout.NewWithContext(ClearTimestampHandler(resolve), 15*time.Second))
	r.Get("/fields", timeout.NewWithContext(ListFieldsHandler(resolve), 15*time.Second))
	r.Put("/fields", timeout.NewWithContext(SetFieldHandler(resolve), 15*time.Second))
	r.Get("/query", timeout.NewWithContext(GetQueryHandler(resolve), 15*time.Second))
}

// GetFiltersHandler renders the filter panel.
func GetFiltersHandler(resolve scopeResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		scope, err := resolve(c)
		if err != nil {
			return serviceError(c, err)
		}
		c.Set("Cache-Control", "no-store")
		return c.JSON(scope.state.View())
	}
}

// ToggleFilterHandler selects or deselects one facet value.
func ToggleFilterHandler(resolve scopeResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req toggleRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.Field == "" || req.Value == "" {
			return errBadRequest(c, "field and value are required")
		}

		scope, err := resolve(c)
		if err != nil {
			return serviceError(c, err)
		}
		scope.state.Toggle(req.Field, req.Value, req.Selected)
		return filtersChanged(c, scope)
	}
}

// SetRangeHandler moves a numeric slider.
func SetRangeHandler(resolve scopeResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req rangeRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.Field == "" || req.Min == nil || req.Max == nil {
			return errBadRequest(c, "field, min and max are required")
		}

		scope, err := resolve(c)
		if err != nil {
			return serviceError(c, err)
		}
		if err := scope.state.SetRange(req.Field, *req.Min, *req.Max); err != nil {
			return serviceError(c, err)
		}
		return filtersChanged(c, scope)
	}
}

// SetTimestampHandler selects a timestamp window.
func SetTimestampHandler(resolve scopeResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req timestampRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.Min.IsZero() || req.Max.IsZero() {
			return errBadRequest(c, "min and max are required RFC 3339 timestamps")
		}

		scope, err := resolve(c)
		if err != nil {
			return serviceError(c, err)
		}
		if err := scope.state.SetTimestamp(req.Min, req.Max); err != nil {
			return serviceError(c, err)
		}
		return filtersChanged(c, scope)
	}
}

// ClearTimestampHandler removes the timestamp window.
func ClearTimestampHandler(resolve scopeResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		scope, err := resolve(c)
		if err != nil {
			return serviceError(c, err)
		}
		scope.state.ClearTimestamp()
		return filtersChanged(c, scope)
	}
}

// ListFieldsHandler lists the fields that can be shown in the panel.
func ListFieldsHandler(resolve scopeResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		scope, err := resolve(c)
		if err != nil {
			return serviceError(c, err)
		}
		c.Set("Cache-Control", "no-store")
		return c.JSON(scope.state.AvailableFields(c.Query("search")))
	}
}

// SetFieldHandler shows or hides a field. The query is only re-run when
// hiding the field dropped part of the selection.
func SetFieldHandler(resolve scopeResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req fieldRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.Key == "" {
			return errBadRequest(c, "key is required")
		}

		scope, err := resolve(c)
		if err != nil {
			return serviceError(c, err)
		}

		before := scope.state.QueryObject().Encode()
		scope.state.SetFieldVisible(req.Key, req.Visible)
		if scope.state.QueryObject().Encode() != before {
			return filtersChanged(c, scope)
		}
		return c.JSON(FilterChangeResponse{
			Filters: scope.state.View(),
			Query:   scope.query(),
		})
	}
}

// GetQueryHandler returns the encoded query for the current selection.
func GetQueryHandler(resolve scopeResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		scope, err := resolve(c)
		if err != nil {
			return serviceError(c, err)
		}
		c.Set("Cache-Control", "no-store")
		return c.JSON(fiber.Map{"query": scope.query()})
	}
}

func filtersChanged(c *fiber.Ctx, scope *filterScope) error {
	result, err := scope.changed(c.UserContext())
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(FilterChangeResponse{
		Filters: scope.state.View(),
		Query:   scope.query(),
		Result:  result,
	})
}
