package entity

import "time"

// EnrichmentCacheEntry stores the contacts scraped from a website.
type EnrichmentCacheEntry struct {
	Website     string    `json:"website"`
	Emails      []string  `json:"emails"`
	Phones      []string  `json:"phones"`
	WhatsApp    []string  `json:"whatsapp"`
	ScrapedURLs []string  `json:"scraped_urls"`
	IsEmpty     bool      `json:"is_empty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// HasContacts reports whether the entry holds at least one contact.
func (e *EnrichmentCacheEntry) HasContacts() bool {
	return len(e.Emails) > 0 || len(e.Phones) > 0 || len(e.WhatsApp) > 0
}

// Fresh reports whether the entry can still be served. Entries with contacts
// live for fullTTL, empty entries for emptyTTL.
func (e *EnrichmentCacheEntry) Fresh(now time.Time, fullTTL, emptyTTL time.Duration) bool {
	if e == nil || e.UpdatedAt.IsZero() {
		return false
	}
	ttl := fullTTL
	if e.IsEmpty || !e.HasContacts() {
		ttl = emptyTTL
	}
	return now.Sub(e.UpdatedAt) < ttl
}

// EnrichStatus records what happened when a prospect was enriched.
type EnrichStatus struct {
	Attempted bool           `json:"attempted"`
	Seconds   float64        `json:"seconds"`
	Error     string         `json:"error,omitempty"`
	Details   *EnrichDetails `json:"details,omitempty"`
}

// EnrichDetails is the per-prospect crawl trace.
type EnrichDetails struct {
	FromCache       bool        `json:"from_cache"`
	TotalSeconds    float64     `json:"total_seconds"`
	SleepSeconds    float64     `json:"sleep_seconds"`
	DiscoverSeconds float64     `json:"find_contact_urls_seconds"`
	Pages           []PageTrace `json:"pages,omitempty"`
	Added           AddedCounts `json:"added"`
}

// PageTrace describes a single fetched page.
type PageTrace struct {
	URL            string  `json:"url"`
	StatusCode     int     `json:"status_code"`
	OK             bool    `json:"ok"`
	Bytes          int     `json:"bytes"`
	FetchSeconds   float64 `json:"fetch_seconds"`
	ExtractSeconds float64 `json:"extract_seconds"`
	EmailsFound    int     `json:"emails_found"`
	PhonesFound    int     `json:"phones_found"`
	WhatsAppFound  int     `json:"whatsapp_found"`
	Error          string  `json:"error,omitempty"`
}

// AddedCounts reports how many new contacts enrichment contributed.
type AddedCounts struct {
	Emails   int `json:"emails"`
	Phones   int `json:"phones"`
	WhatsApp int `json:"whatsapp"`
}
