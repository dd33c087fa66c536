package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/geofacet/internal/core/domain"
	"github.com/samirrijal/geofacet/internal/core/usecases"
)

// OpenSearchRequest opens a results session. Omitted filters and keys are
// copied from the heatmap panel.
type OpenSearchRequest struct {
	Region      domain.Region           `json:"region"`
	Filters     *domain.SelectedFilters `json:"filters"`
	StringKeys  []string                `json:"string_keys"`
	NumericKeys []string                `json:"numeric_keys"`
}

// SessionInfo describes an open results session.
type SessionInfo struct {
	ID       string        `json:"id"`
	Region   domain.Region `json:"region"`
	Offset   int           `json:"offset"`
	Query    string        `json:"query"`
	Sampling bool          `json:"sampling"`
}

func sessionInfo(sess *usecases.ResultsSession) SessionInfo {
	return SessionInfo{
		ID:       sess.ID(),
		Region:   sess.Region(),
		Offset:   sess.Offset(),
		Query:    sess.QueryString(),
		Sampling: sess.Sampling(),
	}
}

// sessionScope resolves the filter panel of the session named by :id.
func sessionScope(deps *Dependencies) scopeResolver {
	return func(c *fiber.Ctx) (*filterScope, error) {
		sess, err := deps.Search.Get(c.Params("id"))
		if err != nil {
			return nil, err
		}
		return &filterScope{
			state: sess.Filters(),
			query: sess.QueryString,
			changed: func(ctx context.Context) (any, error) {
				return sess.FiltersChanged(ctx)
			},
		}, nil
	}
}

// OpenSearchHandler opens a results session for a region.
func OpenSearchHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req OpenSearchRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		selected := deps.Heatmap.Filters().Selected()
		stringKeys, numericKeys := req.StringKeys, req.NumericKeys
		if req.Filters != nil {
			selected = req.Filters.Clone()
		} else if stringKeys == nil && numericKeys == nil {
			stringKeys, numericKeys = deps.Heatmap.Filters().Keys()
		}

		sess, page, err := deps.Search.Open(c.UserContext(), req.Region, selected, stringKeys, numericKeys)
		if err != nil {
			return serviceError(c, err)
		}

		LoggerFromCtx(c.UserContext()).Info("search opened", "session", sess.ID())
		c.Location("/v1/searches/" + sess.ID())
		return c.Status(fiber.StatusCreated).JSON(page)
	}
}

// GetSearchHandler describes an open session.
func GetSearchHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := deps.Search.Get(c.Params("id"))
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(sessionInfo(sess))
	}
}

// SearchResultsHandler returns the current page, or seeks to ?offset=.
func SearchResultsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := deps.Search.Get(c.Params("id"))
		if err != nil {
			return serviceError(c, err)
		}

		var page *domain.ResultsPage
		if c.Query("offset") != "" {
			offset := c.QueryInt("offset", -1)
			if offset < 0 {
				return errBadRequest(c, "offset must be a non-negative integer")
			}
			page, err = sess.Seek(c.UserContext(), offset)
		} else {
			page, err = sess.Page(c.UserContext())
		}
		if err != nil {
			return serviceError(c, err)
		}

		c.Set("Cache-Control", "no-store")
		return c.JSON(page)
	}
}

// NextPageHandler advances the session by one page.
func NextPageHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := deps.Search.Get(c.Params("id"))
		if err != nil {
			return serviceError(c, err)
		}
		page, err := sess.Next(c.UserContext())
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(page)
	}
}

// PrevPageHandler moves the session back one page.
func PrevPageHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := deps.Search.Get(c.Params("id"))
		if err != nil {
			return serviceError(c, err)
		}
		page, err := sess.Prev(c.UserContext())
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(page)
	}
}

// CloseSearchHandler closes a session.
func CloseSearchHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Search.Close(c.Params("id")); err != nil {
			return serviceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// SearchDownloadHandler returns the bulk download link for the current page.
func SearchDownloadHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := deps.Search.Get(c.Params("id"))
		if err != nil {
			return serviceError(c, err)
		}
		c.Set("Cache-Control", "no-store")
		return c.JSON(fiber.Map{"url": sess.DownloadURL()})
	}
}
