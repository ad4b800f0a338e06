package refine

import (
	"strings"

	"github.com/octobees/prospector/internal/entity"
)

// Channel names accepted by has-filters.
const (
	ChannelWebsite  = "website"
	ChannelEmail    = "email"
	ChannelPhone    = "phone"
	ChannelWhatsApp = "whatsapp"
)

// Filters are the inclusion rules applied before sorting.
type Filters struct {
	Has           []string `json:"has"`
	MinContacts   int      `json:"min_contacts"`
	ExcludeNames  []string `json:"exclude_names"`
	ExcludeBrands []string `json:"exclude_brands"`
}

func (f Filters) normalized() Filters {
	return Filters{
		Has:           lowerAll(f.Has),
		MinContacts:   f.MinContacts,
		ExcludeNames:  lowerAll(f.ExcludeNames),
		ExcludeBrands: lowerAll(f.ExcludeBrands),
	}
}

// Filter keeps the prospects matching f. Sales must already be derived.
func Filter(prospects []*entity.Prospect, f Filters) []*entity.Prospect {
	f = f.normalized()
	has := make(map[string]bool, len(f.Has))
	for _, h := range f.Has {
		has[h] = true
	}

	out := make([]*entity.Prospect, 0, len(prospects))
	for _, p := range prospects {
		if p == nil {
			continue
		}
		if containsAny(strings.ToLower(p.Name), f.ExcludeNames) {
			continue
		}
		if containsAny(strings.ToLower(p.Brand+" "+p.Operator), f.ExcludeBrands) {
			continue
		}
		if has[ChannelWebsite] && !p.HasWebsite() ||
			has[ChannelEmail] && !p.HasEmail() ||
			has[ChannelPhone] && !p.HasPhone() ||
			has[ChannelWhatsApp] && !p.HasWhatsApp() {
			continue
		}
		if f.MinContacts > 0 && salesOf(p).ContactMethodsCount < f.MinContacts {
			continue
		}
		out = append(out, p)
	}
	return out
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func lowerAll(items []string) []string {
	out := make([]string, 0, len(items))
	for _, v := range items {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			out = append(out, v)
		}
	}
	return out
}
