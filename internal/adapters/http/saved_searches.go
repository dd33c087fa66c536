package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/geofacet/internal/core/domain"
)

// CreateSavedSearchRequest stores a region search. Omitted filters and keys
// are taken from the heatmap panel.
type CreateSavedSearchRequest struct {
	Name        string                  `json:"name"`
	Region      domain.Region           `json:"region"`
	Filters     *domain.SelectedFilters `json:"filters"`
	StringKeys  []string                `json:"string_keys"`
	NumericKeys []string                `json:"numeric_keys"`
}

// CreateSavedSearchHandler stores a new saved search.
func CreateSavedSearchHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.SavedSearches == nil {
			return errUnavailable(c, "database not available")
		}

		var req CreateSavedSearchRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		ss := domain.SavedSearch{
			Name:        req.Name,
			Region:      req.Region,
			StringKeys:  req.StringKeys,
			NumericKeys: req.NumericKeys,
		}
		if req.Filters != nil {
			ss.Filters = req.Filters.Clone()
		} else {
			ss.Filters = deps.Heatmap.Filters().Selected()
			if ss.StringKeys == nil && ss.NumericKeys == nil {
				ss.StringKeys, ss.NumericKeys = deps.Heatmap.Filters().Keys()
			}
		}

		if err := deps.SavedSearches.Create(c.UserContext(), &ss); err != nil {
			return serviceError(c, err)
		}
		c.Location("/v1/saved-searches/" + ss.ID)
		return c.Status(fiber.StatusCreated).JSON(ss)
	}
}

// ListSavedSearchesHandler returns saved searches, newest first.
func ListSavedSearchesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.SavedSearches == nil {
			return errUnavailable(c, "database not available")
		}

		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 20)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > 100 {
			limit = 20
		}

		searches, err := deps.SavedSearches.List(c.UserContext(), limit, offset)
		if err != nil {
			return serviceError(c, err)
		}
		total, err := deps.SavedSearches.Count(c.UserContext())
		if err != nil {
			return serviceError(c, err)
		}
		if searches == nil {
			searches = []domain.SavedSearch{}
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: searches, Pagination: pg})
	}
}

// GetSavedSearchHandler returns one saved search.
func GetSavedSearchHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.SavedSearches == nil {
			return errUnavailable(c, "database not available")
		}
		ss, err := deps.SavedSearches.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(ss)
	}
}

// DeleteSavedSearchHandler removes a saved search.
func DeleteSavedSearchHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.SavedSearches == nil {
			return errUnavailable(c, "database not available")
		}
		if err := deps.SavedSearches.Delete(c.UserContext(), c.Params("id")); err != nil {
			return serviceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// RunSavedSearchHandler opens a results session from a saved search.
func RunSavedSearchHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.SavedSearches == nil {
			return errUnavailable(c, "database not available")
		}
		sess, page, err := deps.SavedSearches.Run(c.UserContext(), c.Params("id"))
		if err != nil {
			return serviceError(c, err)
		}
		c.Location("/v1/searches/" + sess.ID())
		return c.Status(fiber.StatusCreated).JSON(page)
	}
}
