package osm

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/octobees/prospector/internal/entity"
	"github.com/octobees/prospector/internal/geo"
	"github.com/octobees/prospector/internal/overpass"
)

func ptr(v float64) *float64 { return &v }

func node(id int64, tags map[string]string) overpass.Element {
	return overpass.Element{Type: "node", ID: id, Lat: ptr(48.85), Lon: ptr(2.35), Tags: tags}
}

func TestParseElement(t *testing.T) {
	resp := &overpass.Response{Elements: []overpass.Element{
		node(42, map[string]string{
			"name":             "Le Petit Zinc",
			"shop":             "wine",
			"amenity":          "restaurant",
			"contact:website":  "https://petitzinc.fr",
			"url":              "https://other.example",
			"email":            "Contact@PetitZinc.fr; contact@petitzinc.fr",
			"contact:email_1":  "resa@petitzinc.fr",
			"phone":            "+33 1 42 00 00 00 / +33 6 00 00 00 00",
			"contact:mobile":   "+33600000000",
			"whatsapp":         "+33600000000",
			"addr:housenumber": "11",
			"addr:street":      "Rue de Buci",
			"addr:postcode":    "75006",
			"addr:city:fr":     "Paris",
			"hotel:stars":      "3",
			"cuisine":          "french",
			"opening_hours":    "Mo-Su 12:00-23:00",
			"operator":         "Zinc SAS",
			"brand":            "Petit Zinc",
		}),
	}}

	got := Parse(resp, "Lyon")
	require.Len(t, got, 1)
	p := got[0]

	assert.Equal(t, "osm:node:42", p.EntityKey)
	assert.Equal(t, "Le Petit Zinc", p.Name)
	assert.Equal(t, "amenity", p.ActivityType)
	assert.Equal(t, "restaurant", p.ActivityValue)
	assert.Equal(t, "https://petitzinc.fr", p.Website)
	assert.Equal(t, []string{"Contact@PetitZinc.fr", "resa@petitzinc.fr"}, p.Emails)
	assert.Equal(t, []string{"+33 1 42 00 00 00", "+33 6 00 00 00 00"}, p.Phones)
	assert.Equal(t, []string{"+33600000000"}, p.WhatsApp)
	assert.Equal(t, entity.Address{HouseNumber: "11", Street: "Rue de Buci", Postcode: "75006", City: "Paris"}, p.Address)
	assert.Equal(t, "3", p.Stars)
	assert.Equal(t, "french", p.Cuisine)
	assert.Equal(t, "Mo-Su 12:00-23:00", p.OpeningHours)
	assert.Equal(t, "Zinc SAS", p.Operator)
	assert.Equal(t, "Petit Zinc", p.Brand)
	assert.Equal(t, "https://www.openstreetmap.org/node/42", p.OSMURL)
	assert.Equal(t, entity.SourceOpenStreetMap, p.Source)
}

func TestParseUsesCenterAndFallbackCity(t *testing.T) {
	resp := &overpass.Response{Elements: []overpass.Element{{
		Type:   "way",
		ID:     7,
		Center: &overpass.LatLon{Lat: 45.76, Lon: 4.83},
		Tags:   map[string]string{"name": "Halles", "tourism": "attraction"},
	}}}

	got := Parse(resp, "Lyon")
	require.Len(t, got, 1)
	assert.Equal(t, 45.76, got[0].Lat)
	assert.Equal(t, 4.83, got[0].Lon)
	assert.Equal(t, "Lyon", got[0].Address.City)
	assert.Equal(t, "tourism", got[0].ActivityType)
	assert.Equal(t, []string{}, got[0].Emails)
}

func TestParseDropsAndDedupes(t *testing.T) {
	var elements []overpass.Element
	for i := 1; i <= 12; i++ {
		elements = append(elements, node(int64(i), map[string]string{"name": fmt.Sprintf("Resto %d", i), "amenity": "restaurant"}))
	}
	// three repeated keys
	elements = append(elements, elements[0], elements[1], elements[2])
	// two unnamed
	elements = append(elements,
		node(100, map[string]string{"amenity": "restaurant"}),
		node(101, map[string]string{"name": "  ", "amenity": "restaurant"}),
	)
	// no coordinates, invalid coordinates, no id
	elements = append(elements,
		overpass.Element{Type: "relation", ID: 200, Tags: map[string]string{"name": "Ghost"}},
		overpass.Element{Type: "node", ID: 201, Lat: ptr(123), Lon: ptr(2), Tags: map[string]string{"name": "Off map"}},
		overpass.Element{Type: "node", Lat: ptr(1), Lon: ptr(2), Tags: map[string]string{"name": "No id"}},
	)

	got := Parse(&overpass.Response{Elements: elements}, "")
	assert.Len(t, got, 12)

	keys := make(map[string]bool)
	for _, p := range got {
		assert.False(t, keys[p.EntityKey], "duplicate %s", p.EntityKey)
		keys[p.EntityKey] = true
	}
	assert.Nil(t, Parse(nil, ""))
}

func TestParseNameOnlyKeepsLaterNamedDuplicate(t *testing.T) {
	resp := &overpass.Response{Elements: []overpass.Element{
		node(5, map[string]string{"amenity": "cafe"}),
		node(5, map[string]string{"name": "Café Kitsuné", "amenity": "cafe"}),
	}}

	got := Parse(resp, "")
	require.Len(t, got, 1)
	assert.Equal(t, "Café Kitsuné", got[0].Name)
}

func TestSplitMulti(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{in: "", want: nil},
		{in: "a@b.fr", want: []string{"a@b.fr"}},
		{in: "a@b.fr;c@d.fr , e@f.fr|a@b.fr", want: []string{"a@b.fr", "c@d.fr", "e@f.fr"}},
		{in: "+33 1 00 00 00 00   +33 6 11 11 11 11", want: []string{"+33 1 00 00 00 00", "+33 6 11 11 11 11"}},
		{in: " ;; // ", want: nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SplitMulti(tt.in), tt.in)
	}
}

func TestFilterByDistanceAnnulus(t *testing.T) {
	center := geo.Point{Lat: 48.0, Lon: 2.0}
	at := func(km float64) *entity.Prospect {
		return &entity.Prospect{Name: fmt.Sprintf("%.1fkm", km), Lat: center.Lat + km/111.195, Lon: center.Lon}
	}
	near, mid, far := at(0.5), at(2), at(3.5)

	got := FilterByDistance([]*entity.Prospect{near, mid, far}, center, 1, 3)
	assert.Equal(t, []*entity.Prospect{mid}, got)

	got = FilterByDistance([]*entity.Prospect{near, mid, far}, center, 0, 3)
	assert.Equal(t, []*entity.Prospect{near, mid}, got)

	onCenter := &entity.Prospect{Name: "center", Lat: center.Lat, Lon: center.Lon}
	assert.Len(t, FilterByDistance([]*entity.Prospect{onCenter}, center, 0, 1), 1)
}

func TestFilterByBBox(t *testing.T) {
	box := geo.BBox{South: 48.8, West: 2.2, North: 48.9, East: 2.5}
	inside := &entity.Prospect{Name: "inside", Lat: 48.85, Lon: 2.35}
	onEdge := &entity.Prospect{Name: "edge", Lat: 48.9, Lon: 2.5}
	northOf := &entity.Prospect{Name: "north", Lat: 48.95, Lon: 2.35}
	westOf := &entity.Prospect{Name: "west", Lat: 48.85, Lon: 2.1}

	got := FilterByBBox([]*entity.Prospect{inside, onEdge, northOf, westOf}, box)
	assert.Equal(t, []*entity.Prospect{inside, onEdge}, got)
	assert.Empty(t, FilterByBBox(nil, box))
}
