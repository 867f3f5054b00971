package auth

import "strings"

// PathRule is a single path-prefix gating rule. Matching is prefix-based
// and case-sensitive.
type PathRule struct {
	Prefix    string
	AdminOnly bool
}

// PathSet is an ordered set of path-prefix rules. Rules are evaluated
// top-to-bottom and the first match wins, so a more specific admin prefix
// should be listed before a broader authenticated prefix.
type PathSet struct {
	rules []PathRule
}

// NewPathSet builds a PathSet from ordered rules. Empty prefixes are
// dropped; rule order is preserved.
func NewPathSet(rules ...PathRule) PathSet {
	kept := make([]PathRule, 0, len(rules))
	for _, r := range rules {
		if r.Prefix == "" {
			continue
		}
		kept = append(kept, r)
	}
	return PathSet{rules: kept}
}

// Classify returns the first rule whose prefix matches path, and whether
// any rule matched. No match means the path is unprotected.
func (s PathSet) Classify(path string) (PathRule, bool) {
	for _, r := range s.rules {
		if strings.HasPrefix(path, r.Prefix) {
			return r, true
		}
	}
	return PathRule{}, false
}

// Rules returns a copy of the ordered rule list.
func (s PathSet) Rules() []PathRule {
	return append([]PathRule(nil), s.rules...)
}
