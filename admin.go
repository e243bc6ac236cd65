package showroom

import (
	"crypto/subtle"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/eringen/showroom/catalog"
)

const maxUploadMemory = 32 << 20

// mutationResponse reports the item plus the commit outcome so the console
// can tell the admin when images were dropped on a degraded commit.
type mutationResponse struct {
	Item    catalog.Item `json:"item"`
	Outcome string       `json:"outcome"`
}

func (a *App) handleAdminLogin(c echo.Context) error {
	if !a.loginLimiter.Check(c.RealIP()) {
		return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "too many login attempts"})
	}
	pass := c.FormValue("password")
	if subtle.ConstantTimeCompare([]byte(pass), []byte(a.Config.AdminPassword)) != 1 {
		a.loginLimiter.Record(c.RealIP())
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid password"})
	}
	if err := setAdminSession(c); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"csrfToken": CsrfToken(c)})
}

func handleAdminLogout(c echo.Context) error {
	if err := clearAdminSession(c); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func requireAdmin(c echo.Context) error {
	if !IsAdmin(c) {
		return echo.NewHTTPError(http.StatusUnauthorized, "admin session required")
	}
	return nil
}

func (a *App) handleAdminCreateItem(c echo.Context) error {
	if err := requireAdmin(c); err != nil {
		return err
	}
	draft := bindDraft(c)
	files, err := readUploads(c)
	if err != nil {
		return err
	}
	item, outcome, err := a.Catalog.AddItem(draft, files)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, mutationResponse{Item: item, Outcome: outcome.String()})
}

func (a *App) handleAdminUpdateItem(c echo.Context) error {
	if err := requireAdmin(c); err != nil {
		return err
	}
	patch := bindPatch(c)
	files, err := readUploads(c)
	if err != nil {
		return err
	}
	item, outcome, err := a.Catalog.UpdateItem(c.Param("id"), patch, files)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, mutationResponse{Item: item, Outcome: outcome.String()})
}

func (a *App) handleAdminDeleteItem(c echo.Context) error {
	if err := requireAdmin(c); err != nil {
		return err
	}
	if err := a.Catalog.DeleteItem(c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// handleAdminOriginal serves the session-retained full-resolution upload, if
// this process still has one for the item.
func (a *App) handleAdminOriginal(c echo.Context) error {
	if err := requireAdmin(c); err != nil {
		return err
	}
	blob := a.Catalog.Original(c.Param("id"))
	if blob == nil {
		return echo.NewHTTPError(http.StatusNotFound, "no original retained for this session")
	}
	return c.Blob(http.StatusOK, "application/octet-stream", blob)
}

func (a *App) handleAdminReorderImages(c echo.Context) error {
	if err := requireAdmin(c); err != nil {
		return err
	}
	var body struct {
		Order []int `json:"order"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := a.Catalog.ReorderImages(c.Param("id"), body.Order); err != nil {
		return err
	}
	return a.respondItem(c)
}

func (a *App) handleAdminReverseImages(c echo.Context) error {
	if err := requireAdmin(c); err != nil {
		return err
	}
	if err := a.Catalog.ReverseImages(c.Param("id")); err != nil {
		return err
	}
	return a.respondItem(c)
}

func (a *App) handleAdminShuffleImages(c echo.Context) error {
	if err := requireAdmin(c); err != nil {
		return err
	}
	if err := a.Catalog.ShuffleImages(c.Param("id")); err != nil {
		return err
	}
	return a.respondItem(c)
}

func (a *App) respondItem(c echo.Context) error {
	it, err := a.Catalog.Item(c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, it)
}

func (a *App) handleAdminAddCover(c echo.Context) error {
	if err := requireAdmin(c); err != nil {
		return err
	}
	file, err := c.FormFile("image")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "no image file provided")
	}
	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()
	blob, err := io.ReadAll(src)
	if err != nil {
		return err
	}
	ref, err := a.Catalog.AddCover(blob)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, ref)
}

func (a *App) handleAdminRemoveCover(c echo.Context) error {
	if err := requireAdmin(c); err != nil {
		return err
	}
	i, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid cover index")
	}
	if err := a.Catalog.RemoveCover(i); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// handleAdminEvict runs one of the two admin-invocable eviction strategies.
func (a *App) handleAdminEvict(c echo.Context) error {
	if err := requireAdmin(c); err != nil {
		return err
	}
	var removed int
	var err error
	switch c.QueryParam("strategy") {
	case "cap", "":
		max := catalog.DefaultEvictionCap
		if v := c.QueryParam("max"); v != "" {
			if n, aerr := strconv.Atoi(v); aerr == nil {
				max = n
			}
		}
		removed, err = a.Catalog.EvictCapImages(max)
	case "invalid":
		removed, err = a.Catalog.EvictInvalidImages()
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "unknown eviction strategy")
	}
	if err != nil {
		return err
	}
	needs, err := a.Catalog.NeedsEviction()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"removed": removed, "needsEviction": needs})
}

// --- form binding glue ---

func bindDraft(c echo.Context) catalog.Draft {
	return catalog.Draft{
		Brand:       c.FormValue("brand"),
		Model:       c.FormValue("model"),
		Year:        atoiOr(c.FormValue("year"), 0),
		Price:       parseFloatOr(c.FormValue("price"), 0),
		Category:    c.FormValue("category"),
		Condition:   c.FormValue("condition"),
		Mileage:     atoiOr(c.FormValue("mileage"), 0),
		Description: c.FormValue("description"),
		Features:    FilterEmpty(strings.Split(c.FormValue("features"), ",")),
		Featured:    c.FormValue("featured") != "",
	}
}

// bindPatch maps only the form fields actually present, so an empty update
// leaves the item untouched.
func bindPatch(c echo.Context) catalog.Patch {
	var p catalog.Patch
	if v, ok := formLookup(c, "brand"); ok {
		p.Brand = &v
	}
	if v, ok := formLookup(c, "model"); ok {
		p.Model = &v
	}
	if v, ok := formLookup(c, "year"); ok {
		n := atoiOr(v, 0)
		p.Year = &n
	}
	if v, ok := formLookup(c, "price"); ok {
		f := parseFloatOr(v, 0)
		p.Price = &f
	}
	if v, ok := formLookup(c, "category"); ok {
		p.Category = &v
	}
	if v, ok := formLookup(c, "condition"); ok {
		p.Condition = &v
	}
	if v, ok := formLookup(c, "mileage"); ok {
		n := atoiOr(v, 0)
		p.Mileage = &n
	}
	if v, ok := formLookup(c, "description"); ok {
		p.Description = &v
	}
	if v, ok := formLookup(c, "features"); ok {
		features := FilterEmpty(strings.Split(v, ","))
		p.Features = &features
	}
	if v, ok := formLookup(c, "featured"); ok {
		b := v != "" && v != "false"
		p.Featured = &b
	}
	return p
}

func formLookup(c echo.Context, key string) (string, bool) {
	req := c.Request()
	if req.Form == nil {
		// ParseMultipartForm falls back to ParseForm for urlencoded bodies.
		_ = req.ParseMultipartForm(maxUploadMemory)
	}
	vals, ok := req.Form[key]
	if !ok || len(vals) == 0 {
		return "", false
	}
	return vals[0], true
}

// readUploads collects the raw bytes of every uploaded image. Decoding and
// size policy belong to the catalog, not the transport.
func readUploads(c echo.Context) ([][]byte, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, nil // not a multipart request; no images
	}
	var files [][]byte
	for _, fh := range form.File["images"] {
		src, err := fh.Open()
		if err != nil {
			return nil, err
		}
		blob, err := io.ReadAll(src)
		src.Close()
		if err != nil {
			return nil, err
		}
		files = append(files, blob)
	}
	return files, nil
}

func atoiOr(s string, fallback int) int {
	if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		return n
	}
	return fallback
}

func parseFloatOr(s string, fallback float64) float64 {
	if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		return f
	}
	return fallback
}
