package refine

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/octobees/prospector/internal/apperr"
	"github.com/octobees/prospector/internal/entity"
	"github.com/octobees/prospector/internal/geo"
)

// View selects the projection of the returned prospects.
type View string

const (
	ViewFull  View = "full"
	ViewLight View = "light"
)

// ParseView accepts full or light; empty means full.
func ParseView(s string) (View, error) {
	switch v := View(strings.ToLower(strings.TrimSpace(s))); v {
	case "":
		return ViewFull, nil
	case ViewFull, ViewLight:
		return v, nil
	default:
		return "", eris.Wrapf(apperr.ErrInvalidInput, "refine: unknown view %q", s)
	}
}

// Light projects prospects to the compact list view.
func Light(prospects []*entity.Prospect) []entity.LightProspect {
	out := make([]entity.LightProspect, 0, len(prospects))
	for _, p := range prospects {
		s := salesOf(p)
		out = append(out, entity.LightProspect{
			Name:                p.Name,
			ActivityType:        p.ActivityType,
			ActivityValue:       p.ActivityValue,
			Website:             p.Website,
			PrimaryContact:      s.PrimaryContact,
			ContactMethodsCount: s.ContactMethodsCount,
			DistanceKm:          s.DistanceKm,
			EmailsCount:         s.EmailsCount,
			PhonesCount:         s.PhonesCount,
			WhatsAppCount:       s.WhatsAppCount,
			City:                p.Address.City,
			Street:              p.Address.Street,
			Postcode:            p.Address.Postcode,
			Lat:                 p.Lat,
			Lon:                 p.Lon,
			OSMURL:              p.OSMURL,
			Source:              p.Source,
		})
	}
	return out
}

// CoverageCounts counts prospects per available channel.
type CoverageCounts struct {
	HasSite     int `json:"has_site"`
	HasEmail    int `json:"has_email"`
	HasPhone    int `json:"has_phone"`
	HasWhatsApp int `json:"has_whatsapp"`
	Contactable int `json:"contactable"`
}

// CoveragePercents are CoverageCounts over the total, one decimal.
type CoveragePercents struct {
	HasSite     float64 `json:"has_site"`
	HasEmail    float64 `json:"has_email"`
	HasPhone    float64 `json:"has_phone"`
	HasWhatsApp float64 `json:"has_whatsapp"`
	Contactable float64 `json:"contactable"`
}

// Coverage summarizes which channels a result set can be reached through.
type Coverage struct {
	Total    int              `json:"total"`
	Counts   CoverageCounts   `json:"counts"`
	Percents CoveragePercents `json:"percents"`
}

// ComputeCoverage counts channels over prospects.
func ComputeCoverage(prospects []*entity.Prospect) Coverage {
	c := Coverage{Total: len(prospects)}
	for _, p := range prospects {
		site, email, phone, wa := p.HasWebsite(), p.HasEmail(), p.HasPhone(), p.HasWhatsApp()
		if site {
			c.Counts.HasSite++
		}
		if email {
			c.Counts.HasEmail++
		}
		if phone {
			c.Counts.HasPhone++
		}
		if wa {
			c.Counts.HasWhatsApp++
		}
		if site || email || phone || wa {
			c.Counts.Contactable++
		}
	}

	pct := func(n int) float64 {
		if c.Total == 0 {
			return 0
		}
		return geo.RoundTo(float64(n)/float64(c.Total)*100, 1)
	}
	c.Percents = CoveragePercents{
		HasSite:     pct(c.Counts.HasSite),
		HasEmail:    pct(c.Counts.HasEmail),
		HasPhone:    pct(c.Counts.HasPhone),
		HasWhatsApp: pct(c.Counts.HasWhatsApp),
		Contactable: pct(c.Counts.Contactable),
	}
	return c
}
