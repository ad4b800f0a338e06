package tagfilter

import (
	"regexp"
	"sort"
	"strings"
)

var categorySeparator = regexp.MustCompile(`[\s\-]+`)

var categoryTags = map[string]string{
	// food and drink
	"restaurant": "amenity=restaurant",
	"restau":     "amenity=restaurant",
	"cafe":       "amenity=cafe",
	"bar":        "amenity=bar",
	"pub":        "amenity=pub",
	"fast_food":  "amenity=fast_food",
	"food_court": "amenity=food_court",
	"ice_cream":  "amenity=ice_cream",

	// lodging
	"hotel":       "tourism=hotel",
	"hostel":      "tourism=hostel",
	"motel":       "tourism=motel",
	"guest_house": "tourism=guest_house",
	"apartment":   "tourism=apartment",

	// retail
	"supermarket":   "shop=supermarket",
	"bakery":        "shop=bakery",
	"boulangerie":   "shop=bakery",
	"butcher":       "shop=butcher",
	"convenience":   "shop=convenience",
	"clothes":       "shop=clothes",
	"shoes":         "shop=shoes",
	"jewelry":       "shop=jewelry",
	"beauty":        "shop=beauty",
	"cosmetics":     "shop=cosmetics",
	"perfumery":     "shop=perfumery",
	"florist":       "shop=florist",
	"gift":          "shop=gift",
	"toy":           "shop=toy",
	"book":          "shop=books",
	"computer":      "shop=computer",
	"mobile_phone":  "shop=mobile_phone",
	"electronics":   "shop=electronics",
	"furniture":     "shop=furniture",
	"hardware":      "shop=hardware",
	"paint":         "shop=paint",
	"garden_centre": "shop=garden_centre",
	"pet":           "shop=pet",
	"optician":      "shop=optician",

	// services
	"pharmacy":    "amenity=pharmacy",
	"pharmacie":   "amenity=pharmacy",
	"fuel":        "amenity=fuel",
	"bank":        "amenity=bank",
	"atm":         "amenity=atm",
	"post_office": "amenity=post_office",

	// health
	"hospital":        "amenity=hospital",
	"clinic":          "amenity=clinic",
	"dentist":         "amenity=dentist",
	"doctors":         "amenity=doctors",
	"veterinary":      "amenity=veterinary",
	"veterinaire":     "amenity=veterinary",
	"physiotherapist": "healthcare=physiotherapist",

	// education and culture
	"school":       "amenity=school",
	"university":   "amenity=university",
	"kindergarten": "amenity=kindergarten",
	"library":      "amenity=library",
	"museum":       "tourism=museum",
	"theatre":      "amenity=theatre",
	"cinema":       "amenity=cinema",

	// leisure and wellness
	"gym":            "leisure=fitness_centre",
	"fitness":        "leisure=fitness_centre",
	"fitness_centre": "leisure=fitness_centre",
	"swimming_pool":  "leisure=swimming_pool",
	"spa":            "shop=beauty,amenity=public_bath",
	"beauty_salon":   "shop=beauty",
	"hairdresser":    "shop=hairdresser",
	"nail_salon":     "shop=beauty",
	"tattoo":         "shop=tattoo",
	"massage":        "shop=massage",

	// mobility
	"parking":        "amenity=parking",
	"car_rental":     "amenity=car_rental",
	"car_repair":     "amenity=car_repair,shop=car_repair",
	"car_wash":       "amenity=car_wash",
	"bicycle_rental": "amenity=bicycle_rental",
	"travel_agency":  "shop=travel_agency,office=travel_agent",

	// offices
	"real_estate_agency": "office=estate_agent",
	"insurance":          "office=insurance",
	"lawyer":             "office=lawyer",
	"accountant":         "office=accountant",
	"notary":             "office=notary",
	"funeral_directors":  "shop=funeral_directors",

	// crafts
	"carpenter":   "craft=carpenter",
	"electrician": "craft=electrician",
	"plumber":     "craft=plumber",
}

// normalizeCategory lowercases and joins words with underscores so that
// "Fast food", "fast-food" and "fast_food" share a table entry.
func normalizeCategory(category string) string {
	c := strings.ToLower(strings.TrimSpace(category))
	return categorySeparator.ReplaceAllString(c, "_")
}

// CategoryToTags converts a friendly category to a tag expression.
// Inputs that already look like tag expressions pass through untouched.
// Unknown categories come back trimmed with ok=false and are later
// treated as a bare value filter.
func CategoryToTags(category string) (string, bool) {
	trimmed := strings.TrimSpace(category)
	if trimmed == "" {
		return "", false
	}
	if strings.ContainsAny(trimmed, "=,") {
		return trimmed, true
	}
	if tags, ok := categoryTags[normalizeCategory(trimmed)]; ok {
		return tags, true
	}
	return trimmed, false
}

// Category is one row of the category table.
type Category struct {
	Name string `json:"name"`
	Tags string `json:"tags"`
}

// Categories lists the known categories sorted by name.
func Categories() []Category {
	out := make([]Category, 0, len(categoryTags))
	for name, tags := range categoryTags {
		out = append(out, Category{Name: name, Tags: tags})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
