package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/darukaa/siteboundary/internal/core/usecases"
)

// HeaderUserID carries the caller identity set by the authenticating gateway.
const HeaderUserID = "X-User-ID"

func userID(c *fiber.Ctx) string {
	return c.Get(HeaderUserID)
}

// ---- Sites ----

// ListSitesHandler returns a page of sites.
func ListSitesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 50)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > 100 {
			limit = 50
		}

		// One extra row tells whether a next page exists.
		sites, err := deps.Sites.List(c.UserContext(), offset, limit+1)
		if err != nil {
			return errFrom(c, err)
		}
		pg := Pagination{Offset: offset, Limit: limit, HasMore: len(sites) > limit}
		if pg.HasMore {
			sites = sites[:limit]
		}

		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: sites, Pagination: pg})
	}
}

// MySitesHandler returns the sites created by the caller.
func MySitesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := userID(c)
		if user == "" {
			return errUnauthorized(c, HeaderUserID+" header is required")
		}
		sites, err := deps.Sites.ListByUser(c.UserContext(), user)
		if err != nil {
			return errFrom(c, err)
		}
		return c.JSON(sites)
	}
}

// ProjectSitesHandler returns every site of a project.
func ProjectSitesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sites, err := deps.Sites.ListByProject(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFrom(c, err)
		}
		return c.JSON(sites)
	}
}

// CreateSiteHandler creates a site owned by the caller.
func CreateSiteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := userID(c)
		if user == "" {
			return errUnauthorized(c, HeaderUserID+" header is required")
		}
		var in usecases.SiteCreateInput
		if err := c.BodyParser(&in); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		site, err := deps.Sites.Create(c.UserContext(), in, user)
		if err != nil {
			return errFrom(c, err)
		}
		c.Location("/v1/sites/" + site.ID)
		return c.Status(fiber.StatusCreated).JSON(site)
	}
}

// GetSiteHandler returns a site by ID.
func GetSiteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		site, err := deps.Sites.GetByID(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFrom(c, err)
		}
		return c.JSON(site)
	}
}

// UpdateSiteHandler applies a partial update to a site.
func UpdateSiteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := userID(c)
		if user == "" {
			return errUnauthorized(c, HeaderUserID+" header is required")
		}
		var in usecases.SiteUpdateInput
		if err := c.BodyParser(&in); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		site, err := deps.Sites.Update(c.UserContext(), c.Params("id"), in, user)
		if err != nil {
			return errFrom(c, err)
		}
		return c.JSON(site)
	}
}

// DeleteSiteHandler deletes a site and stops its open editors.
func DeleteSiteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if userID(c) == "" {
			return errUnauthorized(c, HeaderUserID+" header is required")
		}
		id := c.Params("id")
		if err := deps.Sites.Delete(c.UserContext(), id); err != nil {
			return errFrom(c, err)
		}
		if deps.Boundaries != nil {
			deps.Boundaries.SiteDeleted(c.UserContext(), id)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// SiteBoundaryHandler returns the site boundary as a GeoJSON feature.
func SiteBoundaryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		f, err := deps.Sites.Boundary(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFrom(c, err)
		}
		data, err := f.MarshalJSON()
		if err != nil {
			return errFrom(c, err)
		}
		c.Set(fiber.HeaderContentType, "application/geo+json")
		return c.Send(data)
	}
}

// BoundaryHistoryHandler returns the audited boundary changes of a site.
func BoundaryHistoryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Audit == nil {
			return errInternal(c, "boundary history not available")
		}
		records, err := deps.Audit.History(c.UserContext(), c.Params("id"), c.QueryInt("limit", 50))
		if err != nil {
			return errFrom(c, err)
		}
		return c.JSON(records)
	}
}

// AnalyticsHistoryHandler returns analytics snapshots and chart series.
func AnalyticsHistoryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		days := c.QueryInt("days", 7)
		if days <= 0 || days > 365 {
			return errBadRequest(c, "days must be between 1 and 365")
		}
		h, err := deps.Sites.AnalyticsHistory(c.UserContext(), c.Params("id"), days)
		if err != nil {
			return errFrom(c, err)
		}
		return c.JSON(h)
	}
}

// ---- Projects ----

// ListProjectsHandler returns every project, or those of ?user_id.
func ListProjectsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		projects, err := deps.Projects.List(c.UserContext(), c.Query("user_id"))
		if err != nil {
			return errFrom(c, err)
		}
		return c.JSON(projects)
	}
}

// CreateProjectHandler creates a project owned by the caller.
func CreateProjectHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := userID(c)
		if user == "" {
			return errUnauthorized(c, HeaderUserID+" header is required")
		}
		var in usecases.ProjectCreateInput
		if err := c.BodyParser(&in); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		p, err := deps.Projects.Create(c.UserContext(), in, user)
		if err != nil {
			return errFrom(c, err)
		}
		c.Location("/v1/projects/" + p.ID)
		return c.Status(fiber.StatusCreated).JSON(p)
	}
}

// GetProjectHandler returns a project with its sites.
func GetProjectHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := deps.Projects.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFrom(c, err)
		}
		return c.JSON(p)
	}
}

// UpdateProjectHandler applies a partial update to a project.
func UpdateProjectHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := userID(c)
		if user == "" {
			return errUnauthorized(c, HeaderUserID+" header is required")
		}
		var in usecases.ProjectUpdateInput
		if err := c.BodyParser(&in); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		p, err := deps.Projects.Update(c.UserContext(), c.Params("id"), in, user)
		if err != nil {
			return errFrom(c, err)
		}
		return c.JSON(p)
	}
}

// DeleteProjectHandler deletes a project with its sites and stops their
// open editors.
func DeleteProjectHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if userID(c) == "" {
			return errUnauthorized(c, HeaderUserID+" header is required")
		}
		siteIDs, err := deps.Projects.Delete(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFrom(c, err)
		}
		if deps.Boundaries != nil {
			for _, id := range siteIDs {
				deps.Boundaries.SiteDeleted(c.UserContext(), id)
			}
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// ---- Boundary edit sessions ----

// OpenSessionHandler mounts a boundary editor for a site.
func OpenSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var vp usecases.ViewportRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&vp); err != nil {
				return errBadRequest(c, "invalid request body")
			}
		}
		if vp.Width < 0 || vp.Height < 0 {
			return errBadRequest(c, "width and height must not be negative")
		}

		sess, err := deps.Boundaries.Open(c.UserContext(), c.Params("id"), vp)
		if err != nil {
			return errFrom(c, err)
		}
		c.Location("/v1/sessions/" + sess.ID)
		return c.Status(fiber.StatusCreated).JSON(sess.Info())
	}
}

// GetSessionHandler describes an open session.
func GetSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := deps.Boundaries.Get(c.Params("id"))
		if err != nil {
			return errFrom(c, err)
		}
		return c.JSON(sess.Info())
	}
}

// SessionDraftHandler returns the latest boundary of a session.
func SessionDraftHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		snap, err := deps.Boundaries.Draft(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFrom(c, err)
		}
		return c.JSON(snap)
	}
}

// SessionGestureHandler applies one gesture to a session's editor.
func SessionGestureHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := deps.Boundaries.Get(c.Params("id"))
		if err != nil {
			return errFrom(c, err)
		}
		var g usecases.Gesture
		if err := c.BodyParser(&g); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		res, err := sess.Apply(g)
		if err != nil {
			return errFrom(c, err)
		}
		return c.JSON(res)
	}
}

// SaveSessionHandler writes the session draft to its site.
func SaveSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := userID(c)
		if user == "" {
			return errUnauthorized(c, HeaderUserID+" header is required")
		}
		site, err := deps.Boundaries.Save(c.UserContext(), c.Params("id"), user)
		if err != nil {
			return errFrom(c, err)
		}
		return c.JSON(site)
	}
}

// CloseSessionHandler unmounts a session's editor.
func CloseSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := deps.Boundaries.Close(c.UserContext(), c.Params("id"))
		if err != nil && !errors.Is(err, usecases.ErrSessionNotFound) {
			return errFrom(c, err)
		}
		if err != nil {
			return errNotFound(c, "session not found")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
