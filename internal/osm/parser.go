// Package osm converts Overpass elements into prospects.
package osm

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/octobees/prospector/internal/entity"
	"github.com/octobees/prospector/internal/geo"
	"github.com/octobees/prospector/internal/overpass"
	"github.com/octobees/prospector/internal/tagfilter"
)

var (
	websiteTags  = []string{"website", "contact:website", "url", "contact:url"}
	emailTags    = []string{"email", "contact:email", "contact:email_1", "contact:email_2"}
	phoneTags    = []string{"phone", "contact:phone", "mobile", "contact:mobile", "fax", "contact:fax"}
	whatsAppTags = []string{"whatsapp", "contact:whatsapp"}
	cityTags     = []string{"addr:city", "addr:city:fr"}
	starsTags    = []string{"stars", "hotel:stars"}

	multiValueSeparator = regexp.MustCompile(`[;,|/]+|\s{2,}`)
	nonDigit            = regexp.MustCompile(`\D+`)
)

// EntityKey returns the stable identity of an element.
func EntityKey(elementType string, id int64) string {
	return fmt.Sprintf("osm:%s:%d", elementType, id)
}

// Permalink returns the openstreetmap.org page of an element.
func Permalink(elementType string, id int64) string {
	return fmt.Sprintf("https://www.openstreetmap.org/%s/%d", elementType, id)
}

// Parse converts an Overpass response into prospects. Elements without a
// name or usable coordinates are dropped and each entity key is kept once.
// fallbackCity fills the address city when no addr:city tag is present.
func Parse(resp *overpass.Response, fallbackCity string) []*entity.Prospect {
	if resp == nil {
		return nil
	}

	seen := make(map[string]struct{}, len(resp.Elements))
	out := make([]*entity.Prospect, 0, len(resp.Elements))
	for _, el := range resp.Elements {
		if el.Type == "" || el.ID == 0 {
			continue
		}
		key := EntityKey(el.Type, el.ID)
		if _, dup := seen[key]; dup {
			continue
		}

		p, ok := parseElement(el, fallbackCity)
		if !ok {
			continue
		}
		p.EntityKey = key
		seen[key] = struct{}{}
		out = append(out, p)
	}
	return out
}

func parseElement(el overpass.Element, fallbackCity string) (*entity.Prospect, bool) {
	tags := el.Tags
	name := strings.TrimSpace(tags["name"])
	if name == "" {
		return nil, false
	}

	point, ok := coordinates(el)
	if !ok {
		return nil, false
	}

	activityType, activityValue := activity(tags)
	city := firstTag(tags, cityTags...)
	if city == "" {
		city = strings.TrimSpace(fallbackCity)
	}

	return &entity.Prospect{
		Name:          name,
		ActivityType:  activityType,
		ActivityValue: activityValue,
		Website:       firstTag(tags, websiteTags...),
		Emails:        collect(tags, emailTags, strings.ToLower),
		Phones:        collect(tags, phoneTags, phoneKey),
		WhatsApp:      collect(tags, whatsAppTags, nil),
		Address: entity.Address{
			HouseNumber: strings.TrimSpace(tags["addr:housenumber"]),
			Street:      strings.TrimSpace(tags["addr:street"]),
			Postcode:    strings.TrimSpace(tags["addr:postcode"]),
			City:        city,
			Country:     strings.TrimSpace(tags["addr:country"]),
		},
		Stars:        firstTag(tags, starsTags...),
		Cuisine:      strings.TrimSpace(tags["cuisine"]),
		OpeningHours: strings.TrimSpace(tags["opening_hours"]),
		Operator:     strings.TrimSpace(tags["operator"]),
		Brand:        strings.TrimSpace(tags["brand"]),
		Lat:          point.Lat,
		Lon:          point.Lon,
		OSMURL:       Permalink(el.Type, el.ID),
		Source:       entity.SourceOpenStreetMap,
	}, true
}

func coordinates(el overpass.Element) (geo.Point, bool) {
	var p geo.Point
	switch {
	case el.Lat != nil && el.Lon != nil:
		p = geo.Point{Lat: *el.Lat, Lon: *el.Lon}
	case el.Center != nil:
		p = geo.Point{Lat: el.Center.Lat, Lon: el.Center.Lon}
	default:
		return p, false
	}
	return p, p.Valid()
}

// activity picks the first POI key, in priority order, that the element carries.
func activity(tags map[string]string) (string, string) {
	for _, key := range tagfilter.DefaultPOIKeys {
		if v := strings.TrimSpace(tags[key]); v != "" {
			return key, v
		}
	}
	return "", ""
}

func firstTag(tags map[string]string, keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(tags[key]); v != "" {
			return v
		}
	}
	return ""
}

// collect gathers every value of the given tags, split on multi-value
// separators and deduplicated by identity in first-seen order. A nil
// identity compares values verbatim.
func collect(tags map[string]string, keys []string, identity func(string) string) []string {
	out := []string{}
	seen := make(map[string]struct{})
	for _, key := range keys {
		for _, v := range SplitMulti(tags[key]) {
			id := v
			if identity != nil {
				id = identity(v)
			}
			if id == "" {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

// SplitMulti splits a tag value on ; , | / or runs of two or more spaces,
// trimming parts and dropping empty or repeated ones.
func SplitMulti(value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	var out []string
	seen := make(map[string]struct{})
	for _, part := range multiValueSeparator.Split(value, -1) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if _, dup := seen[part]; dup {
			continue
		}
		seen[part] = struct{}{}
		out = append(out, part)
	}
	return out
}

func phoneKey(v string) string {
	digits := nonDigit.ReplaceAllString(v, "")
	if strings.HasPrefix(strings.TrimSpace(v), "+") {
		return "+" + digits
	}
	return digits
}

// FilterByDistance keeps prospects with minKm < distance <= maxKm from
// center. A zero minKm keeps everything within maxKm, center included.
func FilterByDistance(prospects []*entity.Prospect, center geo.Point, minKm, maxKm float64) []*entity.Prospect {
	out := make([]*entity.Prospect, 0, len(prospects))
	for _, p := range prospects {
		d := geo.HaversineKm(center, geo.Point{Lat: p.Lat, Lon: p.Lon})
		if d > maxKm {
			continue
		}
		if minKm > 0 && d <= minKm {
			continue
		}
		out = append(out, p)
	}
	return out
}

// FilterByBBox keeps prospects whose point lies inside box, edges included.
// Way and relation centres can fall outside the box their geometry touches.
func FilterByBBox(prospects []*entity.Prospect, box geo.BBox) []*entity.Prospect {
	out := make([]*entity.Prospect, 0, len(prospects))
	for _, p := range prospects {
		if box.Contains(geo.Point{Lat: p.Lat, Lon: p.Lon}) {
			out = append(out, p)
		}
	}
	return out
}
