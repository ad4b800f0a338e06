package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const contactPage = `<!doctype html>
<html>
<head><title>Chez Lulu</title><style>.x{background:url(logo@2x.png)}</style></head>
<body>
  <script>var support = "tracking@analytics.example.com";</script>
  <!-- old: retired@chezlulu.fr -->
  <nav><a href="/">Accueil</a> <a href="/contact">Nous contacter</a></nav>
  <p>Écrivez-nous : <a href="mailto:Reservations@ChezLulu.fr?subject=Table">réservations</a></p>
  <p>Presse : presse@chezlulu.fr</p>
  <p>Partenariats : partners (at) chezlulu (dot) fr</p>
  <p>Tél : +33 1 42 68 53 00</p>
  <p><a href="tel:0033612345678">Appeler le mobile</a></p>
  <p>Standard : 01 42 68 53 00</p>
  <p>GPS 48.8566, 2.3522</p>
  <img src="icon@3x.jpg">
  <a href="https://wa.me/33612345678?text=Bonjour">WhatsApp</a>
</body>
</html>`

func TestExtractEmails(t *testing.T) {
	got := parsePage(contactPage).contacts().Emails
	assert.Equal(t, []string{
		"reservations@chezlulu.fr",
		"presse@chezlulu.fr",
		"partners@chezlulu.fr",
	}, got)
}

func TestExtractPhonesKeepsInternationalOnly(t *testing.T) {
	got := parsePage(contactPage).contacts().Phones
	assert.Equal(t, []string{"+33612345678", "+33142685300"}, got)
}

func TestExtractWhatsApp(t *testing.T) {
	assert.Equal(t, []string{"https://wa.me/33612345678?text=Bonjour"}, parsePage(contactPage).contacts().WhatsApp)
}

func TestExtractContactsEmptyBody(t *testing.T) {
	got := parsePage("   ").contacts()
	assert.True(t, got.Empty())
	assert.NotNil(t, got.Emails)
	assert.NotNil(t, got.Phones)
	assert.NotNil(t, got.WhatsApp)
}

func TestExtractPhonesCJKContext(t *testing.T) {
	body := `<html><body><p>联系我们 电话：+33 6 12 34 56 78</p></body></html>`
	assert.Equal(t, []string{"+33612345678"}, parsePage(body).contacts().Phones)
}

func TestSanitizeEmail(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{in: " <Hello@Example.com>. ", want: "hello@example.com", ok: true},
		{in: "sales@example.com?subject=hi", want: "sales@example.com", ok: true},
		{in: "logo@2x.png", ok: false},
		{in: "a..b@example.com", ok: false},
		{in: "no-at-sign.example.com", ok: false},
		{in: "user@localhost", ok: false},
		{in: "user@exa_mple.com", ok: false},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, ok := SanitizeEmail(tc.in)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestKeepInternationalPhones(t *testing.T) {
	got := KeepInternationalPhones([]string{
		"+33 1 42 68 53 00",
		"0033 1 42 68 53 00",
		"01 42 68 53 00",
		"+33 6 12 34 56 78",
		"+1 23",
		"+99 999 999 999",
	})
	assert.Equal(t, []string{"+33142685300", "+33612345678"}, got)
}

func TestPlausiblePhone(t *testing.T) {
	assert.True(t, plausiblePhone("+33 1 42 68 53 00"))
	assert.False(t, plausiblePhone("48.8566 2"))
	assert.False(t, plausiblePhone("12 34"))
	assert.False(t, plausiblePhone("1234567890123456789"))
}
