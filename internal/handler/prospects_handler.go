package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/octobees/prospector/internal/dto"
	"github.com/octobees/prospector/internal/tagfilter"
)

// ProspectSearcher runs a prospect search.
type ProspectSearcher interface {
	Search(ctx context.Context, req dto.SearchRequest) (*dto.SearchResponse, error)
}

// ProspectsHandler exposes the search pipeline over HTTP.
type ProspectsHandler struct {
	service ProspectSearcher
}

// NewProspectsHandler constructs a ProspectsHandler.
func NewProspectsHandler(service ProspectSearcher) *ProspectsHandler {
	return &ProspectsHandler{service: service}
}

// Search handles GET /prospects.
func (h *ProspectsHandler) Search(c echo.Context) error {
	req, err := bindSearchRequest(c)
	if err != nil {
		return Error(c, http.StatusBadRequest, "invalid query parameters: "+err.Error())
	}

	resp, err := h.service.Search(c.Request().Context(), req)
	if err != nil {
		return Fail(c, err)
	}
	return Success(c, http.StatusOK, "prospects retrieved", resp)
}

// Categories handles GET /categories.
func (h *ProspectsHandler) Categories(c echo.Context) error {
	return Success(c, http.StatusOK, "categories retrieved", tagfilter.Categories())
}

// bindSearchRequest reads the query string over the request defaults.
// Optional coordinates stay nil unless the parameter is present.
func bindSearchRequest(c echo.Context) (dto.SearchRequest, error) {
	req := dto.NewSearchRequest()

	var lat, lon, radius, radiusMin float64
	var seed int64
	err := echo.QueryParamsBinder(c).
		String("where", &req.Where).
		String("city", &req.City).
		Float64("lat", &lat).
		Float64("lon", &lon).
		Float64("radius_km", &radius).
		Float64("radius_min_km", &radiusMin).
		String("tags", &req.Tags).
		String("category", &req.Category).
		Int("number", &req.Number).
		Int("enrich_max", &req.EnrichMax).
		String("enrich_mode", &req.EnrichMode).
		String("has", &req.Has).
		Int("min_contacts", &req.MinContacts).
		String("exclude_names", &req.ExcludeNames).
		String("exclude_brands", &req.ExcludeBrands).
		String("sort", &req.Sort).
		String("dedupe", &req.Dedupe).
		String("view", &req.View).
		Int64("seed", &seed).
		Bool("include_coverage", &req.IncludeCoverage).
		BindError()
	if err != nil {
		return req, err
	}

	present := func(name string) bool { return c.QueryParam(name) != "" }
	if present("lat") {
		req.Lat = &lat
	}
	if present("lon") {
		req.Lon = &lon
	}
	if present("radius_km") {
		req.RadiusKm = &radius
	}
	if present("radius_min_km") {
		req.RadiusMinKm = &radiusMin
	}
	if present("seed") {
		req.Seed = &seed
	}
	return req, nil
}
