package enrich

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/octobees/prospector/internal/apperr"
	"github.com/octobees/prospector/internal/clock"
	"github.com/octobees/prospector/internal/entity"
	"github.com/octobees/prospector/internal/geo"
)

const (
	defaultMaxPages = 3
	defaultDelay    = 700 * time.Millisecond
)

// CrawlResult is what a site crawl collected.
type CrawlResult struct {
	Website  string
	Contacts Contacts
	Visited  []string
	Trace    entity.EnrichDetails
}

// Crawler visits a homepage and a few contact pages of the same site.
type Crawler struct {
	fetcher  PageFetcher
	clock    clock.Clock
	maxPages int
	delay    time.Duration
}

// NewCrawler builds a Crawler. maxPages counts the homepage; a delay is
// slept before every follow-up page.
func NewCrawler(fetcher PageFetcher, c clock.Clock, maxPages int, delay time.Duration) *Crawler {
	if c == nil {
		c = clock.System()
	}
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}
	if delay < 0 {
		delay = defaultDelay
	}
	return &Crawler{fetcher: fetcher, clock: c, maxPages: maxPages, delay: delay}
}

// NormalizeURL trims a website and prefixes https:// when no scheme is given.
func NormalizeURL(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	lower := strings.ToLower(s)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		s = "https://" + s
	}
	return s
}

// CrawlSite fetches website, then up to maxPages-1 contact pages discovered
// from its links or guessed from well-known paths. Page failures are
// recorded in the trace; only an unusable website or a cancelled context
// returns an error.
func (c *Crawler) CrawlSite(ctx context.Context, website string) (*CrawlResult, error) {
	start := c.clock.Now()
	website = NormalizeURL(website)
	base, err := url.Parse(website)
	if err != nil || base.Host == "" {
		return nil, eris.Wrapf(apperr.ErrInvalidInput, "enrich: unusable website %q", website)
	}

	res := &CrawlResult{
		Website:  website,
		Contacts: Contacts{Emails: []string{}, Phones: []string{}, WhatsApp: []string{}},
		Visited:  []string{},
	}
	emails, phones, whatsApp := newOrderedSet(), newOrderedSet(), newOrderedSet()

	visit := func(target string) *page {
		fetched, fetchErr := c.fetcher.Fetch(ctx, target)
		res.Visited = append(res.Visited, target)

		extractStart := time.Now()
		p := parsePage(fetched.Body)
		found := p.contacts()
		trace := entity.PageTrace{
			URL:            target,
			StatusCode:     fetched.StatusCode,
			OK:             fetchErr == nil && fetched.StatusCode > 0 && fetched.StatusCode < 400,
			Bytes:          len(fetched.Body),
			FetchSeconds:   geo.RoundTo(fetched.Elapsed.Seconds(), 3),
			ExtractSeconds: geo.RoundTo(time.Since(extractStart).Seconds(), 3),
			EmailsFound:    len(found.Emails),
			PhonesFound:    len(found.Phones),
			WhatsAppFound:  len(found.WhatsApp),
		}
		if fetchErr != nil {
			trace.Error = fetchErr.Error()
		}
		res.Trace.Pages = append(res.Trace.Pages, trace)

		for _, v := range found.Emails {
			emails.add(v)
		}
		for _, v := range found.Phones {
			phones.add(v)
		}
		for _, v := range found.WhatsApp {
			whatsApp.add(v)
		}
		return p
	}

	home := visit(website)

	discoverStart := time.Now()
	targets := home.contactLinks(base, c.maxPages-1)
	res.Trace.DiscoverSeconds = geo.RoundTo(time.Since(discoverStart).Seconds(), 3)
	if len(targets) == 0 {
		targets = GuessContactURLs(base, c.maxPages-1)
	}

	var slept time.Duration
	for _, target := range targets {
		if len(emails.items) > 0 && len(phones.items) > 0 {
			break
		}
		sleepStart := c.clock.Now()
		if err := c.clock.Sleep(ctx, c.delay); err != nil {
			return nil, eris.Wrap(err, "enrich: crawl interrupted")
		}
		slept += c.clock.Now().Sub(sleepStart)
		visit(target)
	}

	res.Contacts = Contacts{Emails: emails.items, Phones: phones.items, WhatsApp: whatsApp.items}
	res.Trace.SleepSeconds = geo.RoundTo(slept.Seconds(), 3)
	res.Trace.TotalSeconds = geo.RoundTo(c.clock.Now().Sub(start).Seconds(), 3)
	return res, nil
}
