package showroom

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/eringen/showroom/catalog"
)

// handleListItems serves the storefront listing with optional filters and a
// sort override. Default ordering is insertion order.
func (a *App) handleListItems(c echo.Context) error {
	f := catalog.Filter{
		Brand:     c.QueryParam("brand"),
		Category:  c.QueryParam("category"),
		Condition: c.QueryParam("condition"),
		Featured:  c.QueryParam("featured") == "true",
		SortBy:    c.QueryParam("sortBy"),
		SortOrder: c.QueryParam("sortOrder"),
	}
	if v := c.QueryParam("minPrice"); v != "" {
		if p, err := strconv.ParseFloat(v, 64); err == nil {
			f.MinPrice = p
		}
	}
	if v := c.QueryParam("maxPrice"); v != "" {
		if p, err := strconv.ParseFloat(v, 64); err == nil {
			f.MaxPrice = p
		}
	}
	return c.JSON(http.StatusOK, a.Catalog.Items(f))
}

func (a *App) handleGetItem(c echo.Context) error {
	it, err := a.Catalog.Item(c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, it)
}

// handleListCovers serves the hero/featured-section cover photos.
func (a *App) handleListCovers(c echo.Context) error {
	return c.JSON(http.StatusOK, a.Catalog.Covers())
}

// handleStorageInfo exposes quota status for the admin dashboard widget.
func (a *App) handleStorageInfo(c echo.Context) error {
	info, err := a.Catalog.StorageInfo()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, info)
}

func (a *App) handleFavicon(c echo.Context) error {
	return c.File(a.staticDir + "/favicon.svg")
}

// handleRobots generates robots.txt dynamically using the site URL.
func (a *App) handleRobots(c echo.Context) error {
	body := fmt.Sprintf("User-agent: *\nAllow: /\nDisallow: /admin/\nDisallow: /api/admin/\n\nSitemap: %s/sitemap.xml\n", a.Config.URL)
	return c.String(http.StatusOK, body)
}

func (a *App) handleSitemap(c echo.Context) error {
	return a.renderSitemap(c, a.Catalog.Items(catalog.Filter{}))
}

func (a *App) handleFeed(c echo.Context) error {
	return a.renderFeed(c, a.Catalog.Items(catalog.Filter{}))
}
