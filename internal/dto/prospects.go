package dto

import (
	"github.com/octobees/prospector/internal/enrich"
	"github.com/octobees/prospector/internal/geo"
	"github.com/octobees/prospector/internal/refine"
)

// Defaults applied by NewSearchRequest.
const (
	DefaultNumber     = 20
	DefaultEnrichMax  = 10
	DefaultEnrichMode = "missing"
)

// SearchRequest holds the parameters of a prospect search. Query tags mirror
// the GET /prospects parameters; list parameters are comma separated.
type SearchRequest struct {
	Where       string   `json:"where,omitempty" query:"where"`
	City        string   `json:"city,omitempty" query:"city"`
	Lat         *float64 `json:"lat,omitempty" query:"lat" validate:"omitempty,gte=-90,lte=90"`
	Lon         *float64 `json:"lon,omitempty" query:"lon" validate:"omitempty,gte=-180,lte=180"`
	RadiusKm    *float64 `json:"radius_km,omitempty" query:"radius_km" validate:"omitempty,gt=0"`
	RadiusMinKm *float64 `json:"radius_min_km,omitempty" query:"radius_min_km" validate:"omitempty,gte=0"`
	Tags        string   `json:"tags,omitempty" query:"tags"`
	Category    string   `json:"category,omitempty" query:"category"`
	Number      int      `json:"number" query:"number" validate:"gte=1,lte=200"`

	EnrichMax  int    `json:"enrich_max" query:"enrich_max" validate:"gte=0,lte=200"`
	EnrichMode string `json:"enrich_mode" query:"enrich_mode" validate:"omitempty,oneof=missing always never"`

	Has             string `json:"has,omitempty" query:"has"`
	MinContacts     int    `json:"min_contacts" query:"min_contacts" validate:"gte=0,lte=4"`
	ExcludeNames    string `json:"exclude_names,omitempty" query:"exclude_names"`
	ExcludeBrands   string `json:"exclude_brands,omitempty" query:"exclude_brands"`
	Sort            string `json:"sort,omitempty" query:"sort" validate:"omitempty,oneof=contacts distance name random"`
	Dedupe          string `json:"dedupe,omitempty" query:"dedupe" validate:"omitempty,oneof=none strict smart"`
	View            string `json:"view,omitempty" query:"view" validate:"omitempty,oneof=full light"`
	Seed            *int64 `json:"seed,omitempty" query:"seed"`
	IncludeCoverage bool   `json:"include_coverage" query:"include_coverage"`
}

// NewSearchRequest returns a request carrying the documented defaults, ready
// to be overwritten by bound parameters.
func NewSearchRequest() SearchRequest {
	return SearchRequest{
		Number:          DefaultNumber,
		EnrichMax:       DefaultEnrichMax,
		EnrichMode:      DefaultEnrichMode,
		Sort:            string(refine.SortContacts),
		Dedupe:          string(refine.DedupeSmart),
		View:            string(refine.ViewFull),
		IncludeCoverage: true,
	}
}

// QueryMeta describes how the search area and filters were resolved.
type QueryMeta struct {
	Mode             string     `json:"mode"`
	Where            string     `json:"where,omitempty"`
	Display          string     `json:"display,omitempty"`
	Center           *geo.Point `json:"center,omitempty"`
	RadiusKm         float64    `json:"radius_km,omitempty"`
	RadiusMinKm      float64    `json:"radius_min_km,omitempty"`
	BBox             *geo.BBox  `json:"bbox,omitempty"`
	Tags             string     `json:"tags,omitempty"`
	Filters          []string   `json:"filters"`
	Has              []string   `json:"has,omitempty"`
	FetchLimit       int        `json:"fetch_limit"`
	GeocodeCacheHit  bool       `json:"geocode_cache_hit"`
	OverpassEndpoint string     `json:"overpass_endpoint,omitempty"`
	OverpassAttempts int        `json:"overpass_attempts,omitempty"`
}

// RequestedMeta echoes the requested size next to what was fetched.
type RequestedMeta struct {
	Number               int `json:"number"`
	FetchedBeforeFilters int `json:"fetched_before_filters"`
}

// Timings reports the seconds spent in each stage.
type Timings struct {
	GeocodeSeconds    float64     `json:"geocode_seconds"`
	OverpassSeconds   float64     `json:"overpass_seconds"`
	EnrichmentSeconds float64     `json:"enrichment_seconds"`
	RefineSeconds     float64     `json:"refine_seconds"`
	TotalSeconds      float64     `json:"total_seconds"`
	Enrichment        enrich.Meta `json:"enrichment"`
}

// SearchResponse is the result of a prospect search. Results holds either
// full prospects or light projections depending on the requested view.
type SearchResponse struct {
	Query       QueryMeta        `json:"query"`
	Requested   RequestedMeta    `json:"requested"`
	Count       int              `json:"count"`
	EnrichMax   int              `json:"enrich_max"`
	EnrichMode  string           `json:"enrich_mode"`
	Postprocess refine.Meta      `json:"postprocess"`
	Timings     Timings          `json:"timings"`
	Results     any              `json:"results"`
	Coverage    *refine.Coverage `json:"coverage,omitempty"`
}
