// Package symbol holds the fixed, ordered set of tradable instrument
// identifiers known at startup (C1). Extending the universe requires a
// redeploy — there is no discovery mechanism.
package symbol

import "strings"

// bases is the hard-coded set of base assets; each is paired with the
// "usdt" quote to form the tradable symbol (e.g. "btc" -> "btcusdt").
var bases = []string{
	"btc", "eth", "xrp", "sol", "bnb", "kaito", "ltc", "doge", "bera", "sui",
	"ada", "trx", "link", "apt", "avax", "om", "fil", "xlm", "cake", "tao",
	"ton", "dot", "uni", "aave", "wld", "etc", "hbar",
}

// all is computed once and never mutated after package init.
var all []string

// known indexes all for O(1) membership checks.
var known map[string]struct{}

func init() {
	all = make([]string, len(bases))
	known = make(map[string]struct{}, len(bases))
	for i, b := range bases {
		s := b + "usdt"
		all[i] = s
		known[s] = struct{}{}
	}
}

// All returns the full, ordered symbol universe. The returned slice must
// not be mutated by callers.
func All() []string {
	return all
}

// Known reports whether s (case-insensitive) is in the universe.
func Known(s string) bool {
	_, ok := known[strings.ToLower(s)]
	return ok
}

// Normalize lower-cases s for use as a registry/price-book key.
func Normalize(s string) string {
	return strings.ToLower(s)
}
