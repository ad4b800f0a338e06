package enrich

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestContactLinks(t *testing.T) {
	body := `<html><body>
	  <a href="#top">Contact</a>
	  <a href="mailto:hello@example.com">Contact</a>
	  <a href="javascript:void(0)">Contact</a>
	  <a href="/nous-contacter#form">Écrivez-nous</a>
	  <a href="/team">À propos (about)</a>
	  <a href="https://other.example.org/contact">Partner contact</a>
	  <a href="/nous-contacter">Again</a>
	  <a href="/menu">Menu</a>
	  <a href="/impressum">Legal</a>
	</body></html>`

	got := parsePage(body).contactLinks(mustURL(t, "https://www.example.com/"), 5)
	assert.Equal(t, []string{
		"https://www.example.com/nous-contacter",
		"https://www.example.com/team",
		"https://www.example.com/impressum",
	}, got)
}

func TestContactLinksRespectsLimit(t *testing.T) {
	body := `<a href="/contact">a</a><a href="/about">b</a><a href="/legal">c</a>`
	got := parsePage(body).contactLinks(mustURL(t, "https://example.com"), 2)
	assert.Equal(t, []string{"https://example.com/contact", "https://example.com/about"}, got)
}

func TestContactLinksMatchesAnchorText(t *testing.T) {
	body := `<a href="/p/42"><span>Kontakt</span></a>`
	got := parsePage(body).contactLinks(mustURL(t, "https://example.de/"), 2)
	assert.Equal(t, []string{"https://example.de/p/42"}, got)
}

func TestContactLinksWithoutPage(t *testing.T) {
	assert.Empty(t, parsePage("  ").contactLinks(mustURL(t, "https://example.com"), 2))
	assert.Empty(t, parsePage(`<a href="/contact">c</a>`).contactLinks(nil, 2))
}

func TestGuessContactURLs(t *testing.T) {
	got := GuessContactURLs(mustURL(t, "https://example.com/shop/index.html"), 2)
	assert.Equal(t, []string{"https://example.com/contact", "https://example.com/contact-us"}, got)
	assert.Empty(t, GuessContactURLs(nil, 2))
	assert.Empty(t, GuessContactURLs(mustURL(t, "https://example.com"), 0))
}
