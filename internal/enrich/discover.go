package enrich

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// contactKeywords are matched against lowercased link targets and anchor text.
var contactKeywords = []string{
	"contact", "contact-us", "contacts", "contactez", "contactez-nous", "nous-contacter",
	"support", "help", "customer-service",
	"about", "about-us", "a-propos", "apropos", "company",
	"legal", "impressum", "mentions-legales", "privacy", "terms",
	"contacto", "contato", "contatti", "assistenza", "chi-siamo", "acerca", "sobre",
	"kontakt", "kundenservice", "hilfe", "over-ons", "klantenservice",
	"контакты", "контакт", "поддержка", "о-нас",
	"اتصل", "اتصل-بنا", "تواصل", "الدعم", "من-نحن",
	"联系", "联系我们", "聯絡", "聯絡我們", "客服", "客户服务", "關於", "关于我们",
	"お問い合わせ", "お問合せ", "会社概要", "サポート",
	"문의", "고객센터", "연락처", "회사소개",
}

// contactPathGuesses are tried when a homepage links to no contact page.
var contactPathGuesses = []string{
	"/contact", "/contact-us", "/contacts", "/support", "/help",
	"/a-propos", "/about", "/about-us", "/mentions-legales", "/legal",
	"/impressum", "/privacy", "/terms",
	"/联系", "/联系我们", "/聯絡", "/聯絡我們", "/お問い合わせ", "/문의",
}

var skippedHrefPrefixes = []string{"#", "mailto:", "tel:", "javascript:"}

// contactLinks scans the page anchors for links whose target or text looks
// like a contact, about or legal page. Only links on the same host as base
// are returned, deduplicated and capped at limit.
func (p *page) contactLinks(base *url.URL, limit int) []string {
	if p == nil || base == nil || limit <= 0 {
		return []string{}
	}
	out := newOrderedSet()
	p.doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if href == "" || hasAnyPrefix(strings.ToLower(href), skippedHrefPrefixes) {
			return true
		}
		text := strings.ToLower(whitespaceRun.ReplaceAllString(strings.TrimSpace(s.Text()), " "))
		if !mentionsContact(strings.ToLower(href)) && !mentionsContact(text) {
			return true
		}

		ref, err := url.Parse(href)
		if err != nil {
			return true
		}
		full := base.ResolveReference(ref)
		if !strings.EqualFold(full.Host, base.Host) {
			return true
		}
		full.Fragment = ""
		out.add(full.String())
		return len(out.items) < limit
	})
	return out.items
}

// GuessContactURLs joins the well-known contact paths onto base, up to limit.
func GuessContactURLs(base *url.URL, limit int) []string {
	out := []string{}
	if base == nil {
		return out
	}
	for _, path := range contactPathGuesses {
		if len(out) >= limit {
			break
		}
		out = append(out, base.ResolveReference(&url.URL{Path: path}).String())
	}
	return out
}

func mentionsContact(s string) bool {
	if s == "" {
		return false
	}
	for _, k := range contactKeywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}
