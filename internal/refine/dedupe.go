package refine

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/octobees/prospector/internal/apperr"
	"github.com/octobees/prospector/internal/entity"
)

// DedupeMode selects how duplicates are detected.
type DedupeMode string

const (
	DedupeNone   DedupeMode = "none"
	DedupeStrict DedupeMode = "strict"
	DedupeSmart  DedupeMode = "smart"
)

// ParseDedupe accepts none, strict or smart; empty means smart.
func ParseDedupe(s string) (DedupeMode, error) {
	switch m := DedupeMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return DedupeSmart, nil
	case DedupeNone, DedupeStrict, DedupeSmart:
		return m, nil
	default:
		return "", eris.Wrapf(apperr.ErrInvalidInput, "refine: unknown dedupe mode %q", s)
	}
}

// DedupeMeta reports what deduplication removed.
type DedupeMeta struct {
	Mode    DedupeMode `json:"mode"`
	Removed int        `json:"removed"`
}

// Dedupe keeps the first prospect of every identity. Run it after Sort so the
// best ranked duplicate survives.
func Dedupe(prospects []*entity.Prospect, mode DedupeMode) ([]*entity.Prospect, DedupeMeta) {
	meta := DedupeMeta{Mode: mode}
	if mode == DedupeNone {
		return prospects, meta
	}

	key := smartKey
	if mode == DedupeStrict {
		key = strictKey
	}

	seen := make(map[string]struct{}, len(prospects))
	out := make([]*entity.Prospect, 0, len(prospects))
	for _, p := range prospects {
		k := key(p)
		if k == "" {
			out = append(out, p)
			continue
		}
		if _, dup := seen[k]; dup {
			meta.Removed++
			continue
		}
		seen[k] = struct{}{}
		out = append(out, p)
	}
	return out, meta
}

func strictKey(p *entity.Prospect) string {
	if k := strings.TrimSpace(p.EntityKey); k != "" {
		return k
	}
	return strings.TrimSpace(p.OSMURL)
}

// smartKey is the website domain, else the first phone, else name and address.
func smartKey(p *entity.Prospect) string {
	domain := salesOf(p).Domain
	if domain == "" {
		domain = Domain(p.Website)
	}
	if domain != "" {
		return "d:" + domain
	}
	if p.HasPhone() {
		return "p:" + NormalizePhone(p.Phones[0])
	}
	return "n:" + NormalizeText(p.Name) +
		"|c:" + NormalizeText(p.Address.City) +
		"|s:" + NormalizeText(p.Address.Street) +
		"|h:" + NormalizeText(p.Address.HouseNumber)
}
