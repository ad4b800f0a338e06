package refine

import (
	"strings"

	"github.com/octobees/prospector/internal/entity"
	"github.com/octobees/prospector/internal/geo"
)

// DeriveSales sets the Sales block of every prospect. Distance is filled
// only when ref is given.
func DeriveSales(prospects []*entity.Prospect, ref *geo.Point) {
	for _, p := range prospects {
		if p == nil {
			continue
		}
		site := strings.TrimSpace(p.Website)
		s := &entity.Sales{
			Domain:        Domain(site),
			EmailsCount:   len(p.Emails),
			PhonesCount:   len(p.Phones),
			WhatsAppCount: len(p.WhatsApp),
		}
		for _, present := range []bool{site != "", p.HasEmail(), p.HasPhone(), p.HasWhatsApp()} {
			if present {
				s.ContactMethodsCount++
			}
		}

		switch {
		case p.HasEmail():
			s.PrimaryContact = p.Emails[0]
		case p.HasPhone():
			s.PrimaryContact = p.Phones[0]
		case p.HasWhatsApp():
			s.PrimaryContact = p.WhatsApp[0]
		case site != "":
			s.PrimaryContact = site
		}

		if ref != nil {
			d := geo.RoundTo(geo.HaversineKm(*ref, geo.Point{Lat: p.Lat, Lon: p.Lon}), 3)
			s.DistanceKm = &d
		}
		p.Sales = s
	}
}

func salesOf(p *entity.Prospect) entity.Sales {
	if p.Sales == nil {
		return entity.Sales{}
	}
	return *p.Sales
}
