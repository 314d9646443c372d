package banking

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

// folder is stateless and shared.
var folder = cases.Fold()

func fold(s string) string {
	return folder.String(strings.TrimSpace(s))
}

// SortRules orders active rules by ascending priority, ties by id.
func SortRules(rules []Rule) []Rule {
	out := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if r.Active {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// FirstMatch returns the first rule in sorted order whose test succeeds.
// Rules must already be ordered by SortRules.
func FirstMatch(sorted []Rule, tx Transaction) (Rule, bool) {
	for _, r := range sorted {
		if r.Matches(tx) {
			return r, true
		}
	}
	return Rule{}, false
}

// Matches applies the rule to the transaction, ignoring case.
func (r Rule) Matches(tx Transaction) bool {
	needle := fold(r.MatchValue)
	if needle == "" {
		return false
	}
	var field string
	switch r.MatchField {
	case FieldDescription:
		field = tx.Description
	case FieldReference:
		field = tx.Reference
	case FieldCounterparty:
		field = tx.Counterparty
	default:
		return false
	}
	haystack := fold(field)
	switch r.MatchOperator {
	case OpContains:
		return strings.Contains(haystack, needle)
	case OpStartsWith:
		return strings.HasPrefix(haystack, needle)
	case OpEquals:
		return haystack == needle
	default:
		return false
	}
}
