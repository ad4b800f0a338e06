// Package overpass builds Overpass QL queries and fetches them from a pool of
// public endpoints.
package overpass

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/octobees/prospector/internal/apperr"
	"github.com/octobees/prospector/internal/geo"
	"github.com/octobees/prospector/internal/tagfilter"
)

const (
	// MaxHasCombinations bounds the has-channel cartesian product.
	MaxHasCombinations = 60

	defaultTimeoutSec = 25
	maxOutLimit       = 1000
)

// Contact channels accepted by has-filters.
const (
	ChannelWebsite  = "website"
	ChannelEmail    = "email"
	ChannelPhone    = "phone"
	ChannelWhatsApp = "whatsapp"
)

// hasSynonyms lists the tag names that can carry each contact channel.
var hasSynonyms = map[string][]string{
	ChannelWebsite:  {"website", "contact:website", "url", "contact:url"},
	ChannelEmail:    {"email", "contact:email"},
	ChannelPhone:    {"phone", "contact:phone", "mobile", "contact:mobile"},
	ChannelWhatsApp: {"whatsapp", "contact:whatsapp"},
}

// channelOrder keeps the generated query stable regardless of input order.
var channelOrder = []string{ChannelWebsite, ChannelEmail, ChannelPhone, ChannelWhatsApp}

// Area is the spatial restriction applied to every clause.
type Area interface {
	filter() string
}

// BBoxArea restricts results to a bounding box.
type BBoxArea struct {
	Box geo.BBox
}

func (a BBoxArea) filter() string {
	return "(" + joinFloats(a.Box.South, a.Box.West, a.Box.North, a.Box.East) + ")"
}

// AroundArea restricts results to a circle.
type AroundArea struct {
	Center   geo.Point
	RadiusKm float64
}

func (a AroundArea) filter() string {
	meters := int(math.Round(a.RadiusKm * 1000))
	return fmt.Sprintf("(around:%d,%s)", meters, joinFloats(a.Center.Lat, a.Center.Lon))
}

// AnnulusArea is a ring between MinKm and MaxKm. Overpass cannot express it
// cheaply, so it compiles to the outer circle and the inner radius is
// applied after parsing.
type AnnulusArea struct {
	Center geo.Point
	MinKm  float64
	MaxKm  float64
}

func (a AnnulusArea) filter() string {
	return AroundArea{Center: a.Center, RadiusKm: a.MaxKm}.filter()
}

// BuildOptions tunes the generated query.
type BuildOptions struct {
	Limit      int
	TimeoutSec int
	Has        []string
}

// Build compiles clauses and an area into an Overpass QL query.
func Build(clauses []tagfilter.Clause, area Area, opts BuildOptions) (string, error) {
	if area == nil {
		return "", eris.Wrap(apperr.ErrInvalidInput, "overpass: area is required")
	}
	if len(clauses) == 0 {
		clauses = tagfilter.DefaultClauses()
	}

	has, err := normalizeChannels(opts.Has)
	if err != nil {
		return "", err
	}
	area = PreferBBox(area, has)
	variants := HasVariants(synonymGroups(has), MaxHasCombinations)

	areaFilter := area.filter()
	var lines []string
	for _, c := range clauses {
		for _, selector := range clauseSelectors(c) {
			for _, variant := range variants {
				lines = append(lines, "nwr"+selector+hasSelector(variant)+`["name"]`+areaFilter+";")
			}
		}
	}

	timeout := opts.TimeoutSec
	if timeout <= 0 {
		timeout = defaultTimeoutSec
	}
	limit := max(1, min(opts.Limit, maxOutLimit))

	var b strings.Builder
	fmt.Fprintf(&b, "[out:json][timeout:%d];\n(\n", timeout)
	for _, line := range lines {
		b.WriteString("  ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, ");\nout center %d;\n", limit)
	return b.String(), nil
}

// PreferBBox swaps circular areas for their enclosing box when has-filters
// are present; radius mode with many tag variants is too slow upstream.
func PreferBBox(area Area, has []string) Area {
	if len(has) == 0 {
		return area
	}
	switch a := area.(type) {
	case AroundArea:
		return BBoxArea{Box: geo.BBoxAround(a.Center, a.RadiusKm)}
	case AnnulusArea:
		return BBoxArea{Box: geo.BBoxAround(a.Center, a.MaxKm)}
	default:
		return area
	}
}

// HasVariants returns the cartesian product of the synonym groups, stopping
// after limit combinations. An empty input yields a single empty variant.
func HasVariants(groups [][]string, limit int) [][]string {
	variants := [][]string{{}}
	for _, group := range groups {
		if len(group) == 0 {
			continue
		}
		next := make([][]string, 0, min(len(variants)*len(group), limit))
	product:
		for _, prefix := range variants {
			for _, tag := range group {
				combo := make([]string, len(prefix), len(prefix)+1)
				copy(combo, prefix)
				next = append(next, append(combo, tag))
				if limit > 0 && len(next) >= limit {
					break product
				}
			}
		}
		variants = next
	}
	return variants
}

// EscapeString escapes a value for use inside a double quoted QL string.
func EscapeString(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `"`, `\"`)
	v = strings.ReplaceAll(v, "\r", " ")
	return strings.ReplaceAll(v, "\n", " ")
}

func normalizeChannels(has []string) ([]string, error) {
	want := make(map[string]bool, len(has))
	for _, h := range has {
		h = strings.ToLower(strings.TrimSpace(h))
		if h == "" {
			continue
		}
		if _, ok := hasSynonyms[h]; !ok {
			return nil, eris.Wrapf(apperr.ErrInvalidInput, "unknown contact channel %q", h)
		}
		want[h] = true
	}
	out := make([]string, 0, len(want))
	for _, ch := range channelOrder {
		if want[ch] {
			out = append(out, ch)
		}
	}
	return out, nil
}

func synonymGroups(channels []string) [][]string {
	groups := make([][]string, 0, len(channels))
	for _, ch := range channels {
		groups = append(groups, hasSynonyms[ch])
	}
	return groups
}

func clauseSelectors(c tagfilter.Clause) []string {
	switch c.Kind {
	case tagfilter.KeyValue:
		return []string{fmt.Sprintf(`["%s"="%s"]`, EscapeString(c.Key), EscapeString(c.Value))}
	case tagfilter.KeyExists:
		return []string{fmt.Sprintf(`["%s"]`, EscapeString(c.Key))}
	default:
		out := make([]string, 0, len(tagfilter.DefaultPOIKeys))
		for _, key := range tagfilter.DefaultPOIKeys {
			out = append(out, fmt.Sprintf(`["%s"="%s"]`, key, EscapeString(c.Value)))
		}
		return out
	}
}

func hasSelector(tags []string) string {
	var b strings.Builder
	for _, tag := range tags {
		fmt.Fprintf(&b, `["%s"]`, tag)
	}
	return b.String()
}

func joinFloats(values ...float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strings.Join(parts, ",")
}
