// Package resolver implements the name→id lookup used everywhere a
// sheet cell names a QBO entity. Bookkeepers type short account names
// while QBO stores fully qualified hierarchical ones, so resolution is
// layered: explicit replacement rules, exact match, case-insensitive
// match, substring, leaf segment, and finally Levenshtein similarity.
package resolver

import (
	"strings"

	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// SimilarityCutoff is the minimum similarity ratio for a fuzzy hit.
const SimilarityCutoff = 0.80

// Kind selects which mapping table a lookup runs against.
type Kind string

const (
	Accounts       Kind = "accounts"
	Locations      Kind = "locations"
	Classes        Kind = "classes"
	Vendors        Kind = "vendors"
	PaymentMethods Kind = "paymentmethods"
)

// MappingSet holds the display-name→id tables for one QBO company.
// It is fetched once per company switch and read-only for the rest of
// the job.
type MappingSet struct {
	Accounts       map[string]string
	Locations      map[string]string
	Classes        map[string]string
	Vendors        map[string]string
	PaymentMethods map[string]string
}

func (m MappingSet) table(kind Kind) map[string]string {
	switch kind {
	case Accounts:
		return m.Accounts
	case Locations:
		return m.Locations
	case Classes:
		return m.Classes
	case Vendors:
		return m.Vendors
	case PaymentMethods:
		return m.PaymentMethods
	default:
		return nil
	}
}

// Resolver resolves sheet names against a MappingSet, applying the
// replacement rules first.
type Resolver struct {
	mappings MappingSet
	rules    Rules
	allowAll bool
}

// New builds a resolver over the given mappings and replacement rules.
func New(mappings MappingSet, rules Rules) *Resolver {
	return &Resolver{mappings: mappings, rules: rules}
}

// AllowAll returns a resolver that accepts every non-empty name and
// echoes it back as the id. Used by the offline preview path, where no
// live chart of accounts is available.
func AllowAll() *Resolver {
	return &Resolver{allowAll: true}
}

// Replace applies the replacement rules to a name without resolving it.
func (r *Resolver) Replace(kind Kind, name string) string {
	return r.rules.apply(kind, name)
}

// Find resolves a display name to a QBO id. The empty string means no
// match; callers turn that into a row-level validation error.
func (r *Resolver) Find(kind Kind, name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if r.allowAll {
		return name
	}
	name = r.rules.apply(kind, name)

	table := r.mappings.table(kind)
	if len(table) == 0 {
		return ""
	}

	// Exact, then case-insensitive exact.
	if id, ok := table[name]; ok {
		return id
	}
	lower := strings.ToLower(name)
	for qboName, id := range table {
		if strings.ToLower(qboName) == lower {
			return id
		}
	}
	// Substring: the sheet name appears inside the qualified QBO name.
	for qboName, id := range table {
		if strings.Contains(strings.ToLower(qboName), lower) {
			return id
		}
	}
	// Leaf and similarity.
	var bestID string
	bestScore := 0.0
	for qboName, id := range table {
		if strings.EqualFold(leaf(qboName), name) {
			return id
		}
		score := similarity(lower, strings.ToLower(qboName))
		if s := similarity(lower, strings.ToLower(leaf(qboName))); s > score {
			score = s
		}
		if score >= SimilarityCutoff && score > bestScore {
			bestScore = score
			bestID = id
		}
	}
	return bestID
}

// FuzzyEqual reports whether a sheet name and a QBO name refer to the
// same entity: exact case-insensitive, leaf-segment, or similarity at
// or above the cutoff against either the full name or its leaf.
func FuzzyEqual(sheetName, qboName string) bool {
	a := strings.TrimSpace(strings.ToLower(sheetName))
	b := strings.TrimSpace(strings.ToLower(qboName))
	if a == "" || b == "" {
		return a == b
	}
	if a == b || a == strings.ToLower(leaf(qboName)) {
		return true
	}
	if similarity(a, b) >= SimilarityCutoff {
		return true
	}
	return similarity(a, strings.ToLower(leaf(qboName))) >= SimilarityCutoff
}

// leaf returns the last colon-delimited segment of a hierarchical QBO
// account name ("Assets:Bank:Checking" → "Checking").
func leaf(name string) string {
	if i := strings.LastIndex(name, ":"); i >= 0 {
		return strings.TrimSpace(name[i+1:])
	}
	return strings.TrimSpace(name)
}

// similarity is 1 - dist/maxLen over runes, in [0,1].
func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	ra, rb := []rune(a), []rune(b)
	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}
	if maxLen == 0 {
		return 1.0
	}
	dist := levenshtein.DistanceForStrings(ra, rb, levenshtein.DefaultOptions)
	return 1.0 - float64(dist)/float64(maxLen)
}
