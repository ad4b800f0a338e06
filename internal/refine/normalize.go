package refine

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/net/idna"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	separatorRun = regexp.MustCompile(`[\s\-_]+`)
	nonWord      = regexp.MustCompile(`[^\p{L}\p{N}\s]`)
	spaceRun     = regexp.MustCompile(`\s+`)
	nonDigit     = regexp.MustCompile(`\D`)
)

// NormalizeText lowercases s, folds diacritics, turns separators into spaces
// and drops punctuation.
func NormalizeText(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(fold, s); err == nil {
		s = folded
	}
	s = separatorRun.ReplaceAllString(s, " ")
	s = nonWord.ReplaceAllString(s, "")
	return strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))
}

// Domain extracts the lowercase host of a website, without "www." and in
// ASCII form.
func Domain(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	lowered := strings.ToLower(raw)
	if !strings.HasPrefix(lowered, "http://") && !strings.HasPrefix(lowered, "https://") {
		lowered = "https://" + lowered
	}
	parsed, err := url.Parse(lowered)
	if err != nil {
		return ""
	}
	host := strings.TrimPrefix(strings.ToLower(parsed.Host), "www.")
	if ascii, err := idna.Lookup.ToASCII(host); err == nil && ascii != "" {
		return ascii
	}
	return host
}

// NormalizePhone keeps a leading "+" and the digits.
func NormalizePhone(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	if strings.HasPrefix(p, "+") {
		return "+" + nonDigit.ReplaceAllString(p[1:], "")
	}
	return nonDigit.ReplaceAllString(p, "")
}
