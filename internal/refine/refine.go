// Package refine turns raw prospects into a ranked, deduplicated list with
// sales fields and coverage statistics.
package refine

import (
	"github.com/octobees/prospector/internal/entity"
	"github.com/octobees/prospector/internal/geo"
)

// Options drive one Refine pass.
type Options struct {
	Filters
	Sort     SortMode
	Dedupe   DedupeMode
	View     View
	Limit    int
	RefPoint *geo.Point
	Seed     *int64
}

func (o Options) withDefaults() Options {
	if o.Sort == "" {
		o.Sort = SortContacts
	}
	if o.Dedupe == "" {
		o.Dedupe = DedupeSmart
	}
	if o.View == "" {
		o.View = ViewFull
	}
	return o
}

// Meta describes how many prospects survived each stage.
type Meta struct {
	Before      int        `json:"before"`
	AfterFilter int        `json:"after_filter"`
	AfterDedupe int        `json:"after_dedupe"`
	Returned    int        `json:"returned"`
	Sort        SortMode   `json:"sort"`
	Dedupe      DedupeMeta `json:"dedupe"`
	Filters     Filters    `json:"filters"`
	View        View       `json:"view"`
}

// Result is the outcome of Refine. Light is set only for the light view.
type Result struct {
	Prospects []*entity.Prospect
	Light     []entity.LightProspect
	Meta      Meta
	Coverage  Coverage
}

// Items returns the projection selected by the view.
func (r Result) Items() any {
	if r.Meta.View == ViewLight {
		return r.Light
	}
	return r.Prospects
}

// Refine derives sales fields, filters, sorts, deduplicates, truncates to
// Limit (when positive) and computes coverage over what is returned. The
// input slice is not reordered.
func Refine(prospects []*entity.Prospect, opts Options) Result {
	opts = opts.withDefaults()
	filters := opts.Filters.normalized()

	DeriveSales(prospects, opts.RefPoint)
	filtered := Filter(prospects, filters)
	sorted := Sort(filtered, opts.Sort, opts.Seed)
	deduped, dedupeMeta := Dedupe(sorted, opts.Dedupe)

	limited := deduped
	if opts.Limit > 0 && len(limited) > opts.Limit {
		limited = limited[:opts.Limit]
	}

	res := Result{
		Prospects: limited,
		Coverage:  ComputeCoverage(limited),
		Meta: Meta{
			Before:      len(prospects),
			AfterFilter: len(filtered),
			AfterDedupe: len(deduped),
			Returned:    len(limited),
			Sort:        opts.Sort,
			Dedupe:      dedupeMeta,
			Filters:     filters,
			View:        opts.View,
		},
	}
	if opts.View == ViewLight {
		res.Light = Light(limited)
	}
	return res
}

// Preview runs the ranking stages without limit or projection. It is used to
// decide which prospects deserve enrichment first.
func Preview(prospects []*entity.Prospect, opts Options) []*entity.Prospect {
	opts = opts.withDefaults()
	candidates := append([]*entity.Prospect(nil), prospects...)
	DeriveSales(candidates, opts.RefPoint)
	sorted := Sort(Filter(candidates, opts.Filters), opts.Sort, opts.Seed)
	deduped, _ := Dedupe(sorted, opts.Dedupe)
	return deduped
}
