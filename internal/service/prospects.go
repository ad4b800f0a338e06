package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/octobees/prospector/internal/apperr"
	"github.com/octobees/prospector/internal/clock"
	"github.com/octobees/prospector/internal/dto"
	"github.com/octobees/prospector/internal/enrich"
	"github.com/octobees/prospector/internal/entity"
	"github.com/octobees/prospector/internal/geo"
	"github.com/octobees/prospector/internal/geocode"
	"github.com/octobees/prospector/internal/metrics"
	"github.com/octobees/prospector/internal/osm"
	"github.com/octobees/prospector/internal/overpass"
	"github.com/octobees/prospector/internal/refine"
	"github.com/octobees/prospector/internal/tagfilter"
)

// Area modes reported in the query meta.
const (
	ModeBBox    = "bbox"
	ModeAround  = "around"
	ModeAnnulus = "annulus"
)

const (
	defaultRadiusKm   = 5.0
	maxFetchLimit     = 200
	maxAnnulusFetch   = 1000
	fetchOversampling = 3
)

var validate = validator.New()

// Geocoder resolves a place name.
type Geocoder interface {
	Resolve(ctx context.Context, place string) (*geocode.Result, error)
}

// SpatialFetcher runs an Overpass query.
type SpatialFetcher interface {
	Fetch(ctx context.Context, query string) (*overpass.Response, error)
}

// ContactEnricher completes prospects with website contacts.
type ContactEnricher interface {
	Enrich(ctx context.Context, prospects []*entity.Prospect, maxEnrich int, mode enrich.Mode) enrich.Meta
}

// ProspectsConfig tunes the search area and query generation.
type ProspectsConfig struct {
	MaxRadiusKm     float64
	DefaultRadiusKm float64
	QueryTimeoutSec int
	// StrictTags rejects filter keys outside the POI vocabulary.
	StrictTags bool
}

// ProspectsOption configures a ProspectsService.
type ProspectsOption func(*ProspectsService)

// WithServiceClock overrides the clock used for stage timings.
func WithServiceClock(c clock.Clock) ProspectsOption {
	return func(s *ProspectsService) {
		if c != nil {
			s.clock = c
		}
	}
}

// ProspectsService runs the search pipeline: resolve the area, query
// Overpass, parse, enrich and refine.
type ProspectsService struct {
	geocoder Geocoder
	fetcher  SpatialFetcher
	enricher ContactEnricher
	clock    clock.Clock
	cfg      ProspectsConfig
}

// NewProspectsService wires the pipeline. A nil enricher disables enrichment.
func NewProspectsService(geocoder Geocoder, fetcher SpatialFetcher, enricher ContactEnricher, cfg ProspectsConfig, opts ...ProspectsOption) *ProspectsService {
	if cfg.MaxRadiusKm <= 0 {
		cfg.MaxRadiusKm = 25
	}
	if cfg.DefaultRadiusKm <= 0 {
		cfg.DefaultRadiusKm = defaultRadiusKm
	}
	s := &ProspectsService{
		geocoder: geocoder,
		fetcher:  fetcher,
		enricher: enricher,
		clock:    clock.System(),
		cfg:      cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// searchArea is the resolved spatial part of a request.
type searchArea struct {
	mode     string
	area     overpass.Area
	center   *geo.Point
	bbox     *geo.BBox
	radiusKm float64
	minKm    float64
}

// Search runs one prospect search. Errors wrap apperr.ErrInvalidInput,
// apperr.ErrNotFound or apperr.ErrUpstreamUnavailable.
func (s *ProspectsService) Search(ctx context.Context, req dto.SearchRequest) (resp *dto.SearchResponse, err error) {
	start := s.clock.Now()
	defer func() {
		metrics.SearchDuration.WithLabelValues(apperr.Kind(err)).Observe(s.clock.Now().Sub(start).Seconds())
	}()

	if req.Number == 0 {
		req.Number = dto.DefaultNumber
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	opts, err := refineOptions(req)
	if err != nil {
		return nil, err
	}
	mode, err := enrich.ParseMode(req.EnrichMode)
	if err != nil {
		return nil, err
	}

	tags := strings.TrimSpace(req.Tags)
	if tags == "" && strings.TrimSpace(req.Category) != "" {
		tags, _ = tagfilter.CategoryToTags(req.Category)
	}
	var parseOpts []tagfilter.Option
	if s.cfg.StrictTags {
		parseOpts = append(parseOpts, tagfilter.Strict())
	}
	clauses, err := tagfilter.Parse(tags, "", parseOpts...)
	if err != nil {
		return nil, err
	}

	place := strings.TrimSpace(req.Where)
	if place == "" {
		place = strings.TrimSpace(req.City)
	}

	meta := dto.QueryMeta{
		Where:   place,
		Tags:    tags,
		Filters: clauseStrings(clauses),
		Has:     opts.Has,
	}

	geocodeStart := s.clock.Now()
	area, err := s.resolveArea(ctx, req, place, &meta)
	if err != nil {
		return nil, err
	}
	geocodeSeconds := s.elapsed(geocodeStart)

	meta.Mode = area.mode
	meta.Center = area.center
	meta.BBox = area.bbox
	meta.RadiusKm = area.radiusKm
	meta.RadiusMinKm = area.minKm
	meta.FetchLimit = fetchLimit(req.Number, area.mode == ModeAnnulus)

	query, err := overpass.Build(clauses, area.area, overpass.BuildOptions{
		Limit:      meta.FetchLimit,
		TimeoutSec: s.cfg.QueryTimeoutSec,
		Has:        opts.Has,
	})
	if err != nil {
		return nil, err
	}

	overpassStart := s.clock.Now()
	raw, err := s.fetcher.Fetch(ctx, query)
	if err != nil {
		return nil, err
	}
	overpassSeconds := s.elapsed(overpassStart)
	meta.OverpassEndpoint = raw.Endpoint
	meta.OverpassAttempts = raw.Attempts

	prospects := osm.Parse(raw, place)
	if area.mode == ModeBBox {
		prospects = osm.FilterByBBox(prospects, *area.bbox)
	} else {
		prospects = osm.FilterByDistance(prospects, *area.center, area.minKm, area.radiusKm)
	}

	opts.RefPoint = referencePoint(req, area)

	enrichStart := s.clock.Now()
	enrichMeta := enrich.Meta{Mode: mode, MaxEnrich: req.EnrichMax}
	if s.enricher != nil && mode != enrich.ModeNever && req.EnrichMax > 0 {
		prioritized, perr := prioritize(prospects, opts, req.Number, req.EnrichMax)
		if perr != nil {
			zap.L().Warn("enrichment prioritisation failed, enriching in fetch order", zap.Error(perr))
			prioritized = prospects
		}
		prospects = prioritized
		enrichMeta = s.enricher.Enrich(ctx, prospects, req.EnrichMax, mode)
	}
	enrichSeconds := s.elapsed(enrichStart)

	refineStart := s.clock.Now()
	opts.Limit = req.Number
	result := refine.Refine(prospects, opts)
	refineSeconds := s.elapsed(refineStart)

	resp = &dto.SearchResponse{
		Query: meta,
		Requested: dto.RequestedMeta{
			Number:               req.Number,
			FetchedBeforeFilters: len(prospects),
		},
		Count:       result.Meta.Returned,
		EnrichMax:   req.EnrichMax,
		EnrichMode:  string(mode),
		Postprocess: result.Meta,
		Timings: dto.Timings{
			GeocodeSeconds:    geocodeSeconds,
			OverpassSeconds:   overpassSeconds,
			EnrichmentSeconds: enrichSeconds,
			RefineSeconds:     refineSeconds,
			TotalSeconds:      s.elapsed(start),
			Enrichment:        enrichMeta,
		},
		Results: result.Items(),
	}
	if req.IncludeCoverage {
		coverage := result.Coverage
		resp.Coverage = &coverage
	}

	zap.L().Info("prospect search completed",
		zap.String("mode", area.mode),
		zap.String("where", place),
		zap.Int("fetched", len(prospects)),
		zap.Int("returned", resp.Count),
		zap.Int("enriched", enrichMeta.EnrichedCount),
	)
	return resp, nil
}

// resolveArea picks the search area. Coordinates win over a place name; a
// geocoded place without radius is searched over its own bounding box.
func (s *ProspectsService) resolveArea(ctx context.Context, req dto.SearchRequest, place string, meta *dto.QueryMeta) (searchArea, error) {
	var minKm float64
	if req.RadiusMinKm != nil {
		minKm = *req.RadiusMinKm
	}

	var center geo.Point
	if req.Lat != nil && req.Lon != nil {
		center = geo.Point{Lat: *req.Lat, Lon: *req.Lon}
	} else {
		if s.geocoder == nil {
			return searchArea{}, eris.Wrap(apperr.ErrUpstreamUnavailable, "geocoder is not configured")
		}
		resolved, err := s.geocoder.Resolve(ctx, place)
		if err != nil {
			return searchArea{}, err
		}
		meta.Display = resolved.Display
		meta.GeocodeCacheHit = resolved.CacheHit
		center = resolved.Center()

		if req.RadiusKm == nil {
			bbox := resolved.BBox
			return searchArea{mode: ModeBBox, area: overpass.BBoxArea{Box: bbox}, bbox: &bbox}, nil
		}
	}

	radius := s.cfg.DefaultRadiusKm
	if req.RadiusKm != nil {
		radius = *req.RadiusKm
	}
	radius = geo.ClampRadiusKm(radius, s.cfg.MaxRadiusKm)
	if minKm >= radius {
		return searchArea{}, eris.Wrapf(apperr.ErrInvalidInput, "radius_min_km (%g) must be lower than radius_km (%g)", minKm, radius)
	}

	if minKm > 0 {
		return searchArea{
			mode:     ModeAnnulus,
			area:     overpass.AnnulusArea{Center: center, MinKm: minKm, MaxKm: radius},
			center:   &center,
			radiusKm: radius,
			minKm:    minKm,
		}, nil
	}
	return searchArea{
		mode:     ModeAround,
		area:     overpass.AroundArea{Center: center, RadiusKm: radius},
		center:   &center,
		radiusKm: radius,
	}, nil
}

func validateRequest(req dto.SearchRequest) error {
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			parts := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				parts = append(parts, fmt.Sprintf("%s fails %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			}
			return eris.Wrap(apperr.ErrInvalidInput, strings.Join(parts, "; "))
		}
		return eris.Wrap(apperr.ErrInvalidInput, err.Error())
	}

	hasCoords := req.Lat != nil && req.Lon != nil
	if (req.Lat == nil) != (req.Lon == nil) {
		return eris.Wrap(apperr.ErrInvalidInput, "lat and lon must be given together")
	}
	if !hasCoords && strings.TrimSpace(req.Where) == "" && strings.TrimSpace(req.City) == "" {
		return eris.Wrap(apperr.ErrInvalidInput, "where, city or lat/lon is required")
	}
	if req.RadiusMinKm != nil && *req.RadiusMinKm > 0 {
		if req.RadiusKm == nil {
			return eris.Wrap(apperr.ErrInvalidInput, "radius_min_km requires radius_km")
		}
		if *req.RadiusMinKm >= *req.RadiusKm {
			return eris.Wrap(apperr.ErrInvalidInput, "radius_min_km must be lower than radius_km")
		}
	}
	return nil
}

func refineOptions(req dto.SearchRequest) (refine.Options, error) {
	sortMode, err := refine.ParseSort(req.Sort)
	if err != nil {
		return refine.Options{}, err
	}
	dedupe, err := refine.ParseDedupe(req.Dedupe)
	if err != nil {
		return refine.Options{}, err
	}
	view, err := refine.ParseView(req.View)
	if err != nil {
		return refine.Options{}, err
	}
	return refine.Options{
		Filters: refine.Filters{
			Has:           SplitCSV(req.Has),
			MinContacts:   req.MinContacts,
			ExcludeNames:  SplitCSV(req.ExcludeNames),
			ExcludeBrands: SplitCSV(req.ExcludeBrands),
		},
		Sort:   sortMode,
		Dedupe: dedupe,
		View:   view,
		Seed:   req.Seed,
	}, nil
}

// fetchLimit over-samples the requested number so filtering and dedupe still
// leave enough results. Annulus searches discard the inner disc and fetch more.
func fetchLimit(number int, annulus bool) int {
	limit := min(max(number*fetchOversampling, number), maxFetchLimit)
	if annulus {
		limit = min(limit*fetchOversampling, maxAnnulusFetch)
	}
	return limit
}

// referencePoint is the request coordinate, else the searched box centre,
// else the geocoded centre.
func referencePoint(req dto.SearchRequest, area searchArea) *geo.Point {
	switch {
	case req.Lat != nil && req.Lon != nil:
		return &geo.Point{Lat: *req.Lat, Lon: *req.Lon}
	case area.bbox != nil:
		c := area.bbox.Center()
		return &c
	case area.center != nil:
		c := *area.center
		return &c
	default:
		return nil
	}
}

// prioritize moves the prospects most likely to survive refinement to the
// front so the enrichment budget is spent on them first.
func prioritize(prospects []*entity.Prospect, opts refine.Options, number, enrichMax int) (out []*entity.Prospect, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("preview panicked: %v", r)
		}
	}()

	preview := refine.Preview(prospects, opts)
	topK := min(max(2*number, 3*enrichMax, enrichMax), len(preview))
	picked := make(map[*entity.Prospect]struct{}, topK)

	out = make([]*entity.Prospect, 0, len(prospects))
	for _, p := range preview[:topK] {
		picked[p] = struct{}{}
		out = append(out, p)
	}
	for _, p := range prospects {
		if _, ok := picked[p]; !ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func clauseStrings(clauses []tagfilter.Clause) []string {
	out := make([]string, 0, len(clauses))
	for _, c := range clauses {
		out = append(out, c.String())
	}
	return out
}

// SplitCSV splits a comma separated parameter, dropping blanks.
func SplitCSV(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// elapsed returns the seconds since t, rounded to milliseconds.
func (s *ProspectsService) elapsed(since time.Time) float64 {
	return geo.RoundTo(s.clock.Now().Sub(since).Seconds(), 3)
}
