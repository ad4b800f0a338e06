package entity

import "strings"

// SourceOpenStreetMap is the provenance label of every prospect built from OSM data.
const SourceOpenStreetMap = "OpenStreetMap"

// Address holds the postal parts read from addr:* tags.
type Address struct {
	HouseNumber string `json:"housenumber,omitempty"`
	Street      string `json:"street,omitempty"`
	Postcode    string `json:"postcode,omitempty"`
	City        string `json:"city,omitempty"`
	Country     string `json:"country,omitempty"`
}

// Prospect is a candidate business discovered from OpenStreetMap.
type Prospect struct {
	EntityKey     string   `json:"entity_key"`
	Name          string   `json:"name"`
	ActivityType  string   `json:"activity_type,omitempty"`
	ActivityValue string   `json:"activity_value,omitempty"`
	Website       string   `json:"website,omitempty"`
	Emails        []string `json:"emails"`
	Phones        []string `json:"phones"`
	WhatsApp      []string `json:"whatsapp"`
	Address       Address  `json:"address"`
	Stars         string   `json:"stars,omitempty"`
	Cuisine       string   `json:"cuisine,omitempty"`
	OpeningHours  string   `json:"opening_hours,omitempty"`
	Operator      string   `json:"operator,omitempty"`
	Brand         string   `json:"brand,omitempty"`
	Lat           float64  `json:"lat"`
	Lon           float64  `json:"lon"`
	OSMURL        string   `json:"osm_url"`
	Source        string   `json:"source"`

	ScrapedURLs []string      `json:"scraped_urls,omitempty"`
	Enrichment  *EnrichStatus `json:"enrichment,omitempty"`
	Sales       *Sales        `json:"sales,omitempty"`
}

// HasEmail reports whether at least one email is known.
func (p *Prospect) HasEmail() bool { return len(p.Emails) > 0 }

// HasPhone reports whether at least one phone number is known.
func (p *Prospect) HasPhone() bool { return len(p.Phones) > 0 }

// HasWhatsApp reports whether at least one WhatsApp link is known.
func (p *Prospect) HasWhatsApp() bool { return len(p.WhatsApp) > 0 }

// HasWebsite reports whether the prospect has a website.
func (p *Prospect) HasWebsite() bool { return strings.TrimSpace(p.Website) != "" }

// Sales carries the derived fields used to rank and contact a prospect.
type Sales struct {
	Domain              string   `json:"domain,omitempty"`
	EmailsCount         int      `json:"emails_count"`
	PhonesCount         int      `json:"phones_count"`
	WhatsAppCount       int      `json:"whatsapp_count"`
	ContactMethodsCount int      `json:"contact_methods_count"`
	PrimaryContact      string   `json:"primary_contact,omitempty"`
	DistanceKm          *float64 `json:"distance_km"`
}

// LightProspect is the compact projection returned by the light view.
type LightProspect struct {
	Name                string   `json:"name"`
	ActivityType        string   `json:"activity_type,omitempty"`
	ActivityValue       string   `json:"activity_value,omitempty"`
	Website             string   `json:"website,omitempty"`
	PrimaryContact      string   `json:"primary_contact,omitempty"`
	ContactMethodsCount int      `json:"contact_methods_count"`
	DistanceKm          *float64 `json:"distance_km"`
	EmailsCount         int      `json:"emails_count"`
	PhonesCount         int      `json:"phones_count"`
	WhatsAppCount       int      `json:"whatsapp_count"`
	City                string   `json:"city,omitempty"`
	Street              string   `json:"street,omitempty"`
	Postcode            string   `json:"postcode,omitempty"`
	Lat                 float64  `json:"lat"`
	Lon                 float64  `json:"lon"`
	OSMURL              string   `json:"osm_url"`
	Source              string   `json:"source"`
}
