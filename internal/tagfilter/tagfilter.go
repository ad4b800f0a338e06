// Package tagfilter turns user supplied tag expressions into OSM filter clauses.
package tagfilter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/octobees/prospector/internal/apperr"
)

// DefaultPOIKeys is the POI vocabulary. Its order is also the priority used
// to pick a prospect's activity.
var DefaultPOIKeys = []string{"amenity", "shop", "tourism", "leisure", "office", "craft", "healthcare"}

// ErrInvalidFilterKey is returned for keys that are not safe to embed in a query.
var ErrInvalidFilterKey = fmt.Errorf("%w: invalid filter key", apperr.ErrInvalidInput)

var (
	safeKeyPattern   = regexp.MustCompile(`^[A-Za-z0-9:_-]+$`)
	safeValuePattern = regexp.MustCompile(`^[\p{L}\p{N} _.:'&+\-]+$`)
)

// Kind is the shape of a filter clause.
type Kind int

const (
	// KeyExists matches elements carrying the key with any value.
	KeyExists Kind = iota
	// KeyValue matches elements whose key equals the value.
	KeyValue
	// ValueOnly matches the value under any default POI key.
	ValueOnly
)

func (k Kind) String() string {
	switch k {
	case KeyExists:
		return "key_exists"
	case KeyValue:
		return "kv"
	case ValueOnly:
		return "value_only"
	default:
		return "unknown"
	}
}

// MarshalText renders the kind by name in JSON output.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Clause is a single parsed filter.
type Clause struct {
	Kind  Kind   `json:"kind"`
	Key   string `json:"key,omitempty"`
	Value string `json:"value,omitempty"`
}

func (c Clause) String() string {
	switch c.Kind {
	case KeyValue:
		return c.Key + "=" + c.Value
	case KeyExists:
		return c.Key
	default:
		return c.Value
	}
}

// Option tunes parsing.
type Option func(*parser)

// Strict rejects keys outside the POI vocabulary.
func Strict() Option {
	return func(p *parser) {
		p.strict = true
	}
}

type parser struct {
	strict bool
}

// DefaultClauses returns a key-exists clause for every POI key.
func DefaultClauses() []Clause {
	out := make([]Clause, 0, len(DefaultPOIKeys))
	for _, key := range DefaultPOIKeys {
		out = append(out, Clause{Kind: KeyExists, Key: key})
	}
	return out
}

// Parse reads a comma separated tag expression. When tags is empty the
// category is mapped through the category table instead; when both are
// empty every default POI key is searched.
func Parse(tags, category string, opts ...Option) ([]Clause, error) {
	p := &parser{}
	for _, opt := range opts {
		opt(p)
	}

	expr := strings.TrimSpace(tags)
	if expr == "" && strings.TrimSpace(category) != "" {
		expr, _ = CategoryToTags(category)
	}
	if expr == "" {
		return DefaultClauses(), nil
	}

	var clauses []Clause
	seen := make(map[Clause]struct{})
	for _, token := range strings.Split(expr, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		clause, err := p.parseToken(token)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[clause]; dup {
			continue
		}
		seen[clause] = struct{}{}
		clauses = append(clauses, clause)
	}

	if len(clauses) == 0 {
		return DefaultClauses(), nil
	}
	return clauses, nil
}

func (p *parser) parseToken(token string) (Clause, error) {
	key, value, hasEquals := strings.Cut(token, "=")
	if !hasEquals {
		if isPOIKey(token) {
			return Clause{Kind: KeyExists, Key: strings.ToLower(token)}, nil
		}
		if !safeValuePattern.MatchString(token) {
			return Clause{}, eris.Wrapf(apperr.ErrInvalidInput, "invalid filter value %q", token)
		}
		return Clause{Kind: ValueOnly, Value: token}, nil
	}

	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	if key == "" || !safeKeyPattern.MatchString(key) {
		return Clause{}, eris.Wrapf(ErrInvalidFilterKey, "key %q", key)
	}
	if p.strict && !isPOIKey(key) {
		return Clause{}, eris.Wrapf(ErrInvalidFilterKey, "key %q is not a known POI key", key)
	}
	if value == "" {
		return Clause{Kind: KeyExists, Key: key}, nil
	}
	if !safeValuePattern.MatchString(value) {
		return Clause{}, eris.Wrapf(apperr.ErrInvalidInput, "invalid filter value %q", value)
	}
	return Clause{Kind: KeyValue, Key: key, Value: value}, nil
}

func isPOIKey(token string) bool {
	token = strings.ToLower(strings.TrimSpace(token))
	for _, key := range DefaultPOIKeys {
		if key == token {
			return true
		}
	}
	return false
}
