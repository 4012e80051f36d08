package source

import "strings"

// ContainsExcludedKeyword returns true if any exclusion term appears
// (case-insensitive) anywhere in the combined title + company + description
// text.
//
// Applied by the discover cycle before scoring — a hit discards the offer.
func ContainsExcludedKeyword(title, company, description string, excluded []string) bool {
	if len(excluded) == 0 {
		return false
	}
	combined := strings.ToLower(title + " " + company + " " + description)
	for _, term := range excluded {
		if term == "" {
			continue
		}
		if strings.Contains(combined, strings.ToLower(term)) {
			return true
		}
	}
	return false
}
