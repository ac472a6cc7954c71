package names

import (
	"fmt"
	"strings"
)

// Validator applies the structural rules and the blacklist used by
// maintenance to purge names that cannot belong to a real member.
type Validator struct {
	blacklist []string
}

func NewValidator(blacklist []string) Validator {
	lowered := make([]string, 0, len(blacklist))
	for _, w := range blacklist {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			lowered = append(lowered, w)
		}
	}
	return Validator{blacklist: lowered}
}

// Invalid returns the reason a name should be purged, or false when the
// name is exactly two tokens with no digits and no blacklisted substring.
// Apostrophes stay part of their token.
func (v Validator) Invalid(name string) (string, bool) {
	if hasDigit(name) {
		return "contains a digit", true
	}

	tokens := strings.Fields(name)
	switch {
	case len(tokens) == 0:
		return "blank", true
	case len(tokens) == 1:
		return "single token", true
	case len(tokens) > 2:
		return fmt.Sprintf("%d tokens", len(tokens)), true
	}

	lower := strings.ToLower(name)
	for _, banned := range v.blacklist {
		if strings.Contains(lower, banned) {
			return fmt.Sprintf("blacklisted %q", banned), true
		}
	}
	return "", false
}
