package enrich

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/nyaruka/phonenumbers"
	"golang.org/x/net/html"
	"golang.org/x/net/idna"
)

var (
	emailPattern      = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	obfuscatedPattern = regexp.MustCompile(`(?i)([a-z0-9._%+-]+)\s*(?:@|\(at\)|\[at\]| at )\s*([a-z0-9.-]+)\s*(?:\.|\(dot\)|\[dot\]| dot )\s*([a-z]{2,})`)

	telLinkPattern    = regexp.MustCompile(`(?i)^tel:([+0-9][0-9\s().-]{5,})`)
	phoneLatinContext = regexp.MustCompile(`(?i)(?:^|[^\p{L}\p{N}])(?:téléphone|telephone|tél|tel|phone|mobile|call|hotline|whatsapp|support)\s*[:：]?\s*(\+?\d[\d\s().-]{7,}\d)`)
	phoneCJKContext   = regexp.MustCompile(`(?:电话|電話|联系我们|聯絡我們|聯絡|客服|客户服务|문의|고객센터|연락처|お問い合わせ|お問合せ)\s*[:：]?\s*(\+?\d[\d\s().-]{7,}\d)`)
	phoneLoose        = regexp.MustCompile(`(?:^|[^\d+])(\+?\d[\d\s().-]{7,}\d)`)
	coordinateShape   = regexp.MustCompile(`\b\d{1,3}\.\d+\b`)
	whitespaceRun     = regexp.MustCompile(`\s+`)
	nonDigit          = regexp.MustCompile(`\D`)

	whatsAppPattern = regexp.MustCompile(`(?i)https?://(?:wa\.me/|api\.whatsapp\.com/|web\.whatsapp\.com/)[^\s"'<>]+`)

	emailProfile = idna.Lookup
)

// badEmailTLDs catches asset names that look like addresses, e.g. logo@2x.png.
var badEmailTLDs = map[string]struct{}{
	"png": {}, "jpg": {}, "jpeg": {}, "gif": {}, "svg": {}, "webp": {}, "ico": {}, "bmp": {},
	"tif": {}, "tiff": {}, "css": {}, "js": {}, "pdf": {}, "woff": {}, "woff2": {}, "ttf": {},
	"eot": {}, "mp4": {}, "mp3": {},
}

const (
	minPhoneDigits      = 7
	maxPhoneDigits      = 18
	minIntlPhoneDigits  = 9
	maxIntlPhoneDigits  = 15
	maxEmailLocalLength = 64
	maxEmailDomainLen   = 255
)

// Contacts groups the channels found on one page or one site.
type Contacts struct {
	Emails   []string
	Phones   []string
	WhatsApp []string
}

// Empty reports whether no channel was found.
func (c Contacts) Empty() bool {
	return len(c.Emails) == 0 && len(c.Phones) == 0 && len(c.WhatsApp) == 0
}

// page is a parsed document with scripts and styles removed.
type page struct {
	doc   *goquery.Document
	text  string
	hrefs []string
}

func parsePage(body string) *page {
	if strings.TrimSpace(body) == "" {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil
	}
	doc.Find("script, style, noscript, template").Remove()

	p := &page{doc: doc, text: visibleText(doc)}
	doc.Find("[href]").Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok {
			if href = strings.TrimSpace(href); href != "" {
				p.hrefs = append(p.hrefs, href)
			}
		}
	})
	return p
}

// visibleText joins every text node, skipping comments and non-rendered
// elements, and collapses whitespace.
func visibleText(doc *goquery.Document) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.CommentNode:
			return
		case html.TextNode:
			b.WriteString(n.Data)
			b.WriteByte(' ')
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "noscript", "template", "head":
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range doc.Nodes {
		walk(n)
	}
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(b.String(), " "))
}

// contacts runs every extractor over the page. A nil page, as returned for
// an empty or unparsable body, yields empty lists.
func (p *page) contacts() Contacts {
	if p == nil {
		return Contacts{Emails: []string{}, Phones: []string{}, WhatsApp: []string{}}
	}
	return Contacts{
		Emails:   p.emails(),
		Phones:   p.phones(),
		WhatsApp: p.whatsApp(),
	}
}

// emails returns the addresses found in mailto links, then in the visible
// text, then in obfuscated "user (at) domain (dot) tld" form.
func (p *page) emails() []string {
	out := newOrderedSet()
	for _, href := range p.hrefs {
		if len(href) < 7 || !strings.EqualFold(href[:7], "mailto:") {
			continue
		}
		target := href[7:]
		if i := strings.IndexAny(target, "?#"); i >= 0 {
			target = target[:i]
		}
		if unescaped, err := url.PathUnescape(target); err == nil {
			target = unescaped
		}
		for _, candidate := range strings.Split(target, ",") {
			if email, ok := SanitizeEmail(candidate); ok {
				out.add(email)
			}
		}
	}

	for _, m := range emailPattern.FindAllString(p.text, -1) {
		if email, ok := SanitizeEmail(m); ok {
			out.add(email)
		}
	}

	for _, m := range obfuscatedPattern.FindAllStringSubmatch(p.text, -1) {
		candidate := strings.ReplaceAll(m[1]+"@"+m[2]+"."+m[3], " ", "")
		if email, ok := SanitizeEmail(candidate); ok {
			out.add(email)
		}
	}
	return out.items
}

// SanitizeEmail trims a candidate address, strips anything after a path,
// query or fragment separator and rejects asset names and malformed domains.
// The returned address is lowercased.
func SanitizeEmail(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if i := strings.IndexAny(s, "?#/"); i >= 0 {
		s = s[:i]
	}
	s = strings.Trim(s, " \t\r\n\"'<>[](){}.,;:")
	s = strings.ReplaceAll(s, " ", "")

	at := strings.LastIndex(s, "@")
	if at <= 0 || at == len(s)-1 {
		return "", false
	}
	local, domain := s[:at], s[at+1:]

	dot := strings.LastIndex(domain, ".")
	if dot <= 0 || dot == len(domain)-1 {
		return "", false
	}
	if _, bad := badEmailTLDs[strings.ToLower(domain[dot+1:])]; bad {
		return "", false
	}
	if strings.Contains(s, "..") {
		return "", false
	}
	if len(local) > maxEmailLocalLength || len(domain) > maxEmailDomainLen {
		return "", false
	}
	if _, err := emailProfile.ToASCII(strings.ToLower(domain)); err != nil {
		return "", false
	}
	return strings.ToLower(s), true
}

func (p *page) phones() []string {
	var candidates []string
	add := func(raw string) {
		raw = whitespaceRun.ReplaceAllString(strings.TrimSpace(raw), " ")
		if raw != "" && plausiblePhone(raw) {
			candidates = append(candidates, raw)
		}
	}

	for _, href := range p.hrefs {
		if m := telLinkPattern.FindStringSubmatch(href); m != nil {
			add(m[1])
		}
	}
	for _, re := range []*regexp.Regexp{phoneLatinContext, phoneCJKContext, phoneLoose} {
		for _, m := range re.FindAllStringSubmatch(p.text, -1) {
			add(m[1])
		}
	}
	return KeepInternationalPhones(candidates)
}

// plausiblePhone rejects coordinate-looking fragments and digit runs that are
// too short or too long to be a phone number.
func plausiblePhone(raw string) bool {
	if coordinateShape.MatchString(raw) {
		return false
	}
	n := len(nonDigit.ReplaceAllString(raw, ""))
	return n >= minPhoneDigits && n <= maxPhoneDigits
}

// KeepInternationalPhones keeps only numbers written with an international
// prefix ("+" or "00") that libphonenumber accepts as valid, formatted E.164
// and deduplicated in first-seen order.
func KeepInternationalPhones(candidates []string) []string {
	out := newOrderedSet()
	for _, raw := range candidates {
		s := strings.TrimSpace(raw)
		if strings.HasPrefix(s, "00") {
			s = "+" + s[2:]
		}
		if !strings.HasPrefix(s, "+") {
			continue
		}
		digits := nonDigit.ReplaceAllString(s, "")
		if len(digits) < minIntlPhoneDigits || len(digits) > maxIntlPhoneDigits {
			continue
		}
		num, err := phonenumbers.Parse("+"+digits, "")
		if err != nil {
			continue
		}
		if !phonenumbers.IsPossibleNumber(num) || !phonenumbers.IsValidNumber(num) {
			continue
		}
		out.add(phonenumbers.Format(num, phonenumbers.E164))
	}
	return out.items
}

func (p *page) whatsApp() []string {
	out := newOrderedSet()
	for _, href := range p.hrefs {
		if m := whatsAppPattern.FindString(href); m != "" {
			out.add(m)
		}
	}
	for _, m := range whatsAppPattern.FindAllString(p.text, -1) {
		out.add(m)
	}
	return out.items
}

type orderedSet struct {
	seen  map[string]struct{}
	items []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: map[string]struct{}{}, items: []string{}}
}

func (s *orderedSet) add(v string) bool {
	if v == "" {
		return false
	}
	if _, dup := s.seen[v]; dup {
		return false
	}
	s.seen[v] = struct{}{}
	s.items = append(s.items, v)
	return true
}
