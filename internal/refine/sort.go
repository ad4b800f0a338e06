package refine

import (
	"math/rand/v2"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/octobees/prospector/internal/apperr"
	"github.com/octobees/prospector/internal/entity"
)

// SortMode orders the refined list.
type SortMode string

const (
	SortContacts SortMode = "contacts"
	SortDistance SortMode = "distance"
	SortName     SortMode = "name"
	SortRandom   SortMode = "random"
)

// ParseSort accepts contacts, distance, name or random; empty means contacts.
func ParseSort(s string) (SortMode, error) {
	switch m := SortMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return SortContacts, nil
	case SortContacts, SortDistance, SortName, SortRandom:
		return m, nil
	default:
		return "", eris.Wrapf(apperr.ErrInvalidInput, "refine: unknown sort %q", s)
	}
}

// Sort returns a sorted copy of prospects. Deterministic modes are stable;
// random mode is reproducible when seed is set.
func Sort(prospects []*entity.Prospect, mode SortMode, seed *int64) []*entity.Prospect {
	out := append([]*entity.Prospect(nil), prospects...)

	switch mode {
	case SortRandom:
		var rnd *rand.Rand
		if seed != nil {
			rnd = rand.New(rand.NewPCG(uint64(*seed), 0))
		} else {
			rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		}
		rnd.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })

	case SortName:
		keys := nameKeys(out)
		sort.SliceStable(out, func(i, j int) bool { return keys[out[i]] < keys[out[j]] })

	case SortDistance:
		sort.SliceStable(out, func(i, j int) bool {
			di, dj := salesOf(out[i]).DistanceKm, salesOf(out[j]).DistanceKm
			switch {
			case di == nil:
				return false
			case dj == nil:
				return true
			default:
				return *di < *dj
			}
		})

	default:
		keys := nameKeys(out)
		sort.SliceStable(out, func(i, j int) bool {
			a, b := salesOf(out[i]), salesOf(out[j])
			if a.ContactMethodsCount != b.ContactMethodsCount {
				return a.ContactMethodsCount > b.ContactMethodsCount
			}
			if si, sj := out[i].HasWebsite(), out[j].HasWebsite(); si != sj {
				return si
			}
			if a.EmailsCount != b.EmailsCount {
				return a.EmailsCount > b.EmailsCount
			}
			if a.PhonesCount != b.PhonesCount {
				return a.PhonesCount > b.PhonesCount
			}
			return keys[out[i]] < keys[out[j]]
		})
	}
	return out
}

func nameKeys(prospects []*entity.Prospect) map[*entity.Prospect]string {
	keys := make(map[*entity.Prospect]string, len(prospects))
	for _, p := range prospects {
		keys[p] = NormalizeText(p.Name)
	}
	return keys
}
