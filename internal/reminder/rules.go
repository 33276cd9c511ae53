// Package reminder contains the reminder rule set, the per-group settings
// operations, and the scan loop that fires due reminder tiers.
package reminder

import (
	"regexp"
	"strings"
	"time"
)

// Rule is one reminder tier: a lead time before the deadline at which a
// notification may fire, with a human label for replies.
type Rule struct {
	Key   string
	Label string
	Lead  time.Duration
}

// DefaultRules is the process-wide rule table, longest lead first. The order
// matters for display and for the scan loop's first-hit tie-break; firing
// eligibility is evaluated per rule independently.
var DefaultRules = []Rule{
	{Key: "1w", Label: "1 minggu", Lead: 7 * 24 * time.Hour},
	{Key: "5d", Label: "5 hari", Lead: 5 * 24 * time.Hour},
	{Key: "3d", Label: "3 hari", Lead: 3 * 24 * time.Hour},
	{Key: "1d", Label: "1 hari", Lead: 24 * time.Hour},
	{Key: "12h", Label: "12 jam", Lead: 12 * time.Hour},
	{Key: "6h", Label: "6 jam", Lead: 6 * time.Hour},
	{Key: "3h", Label: "3 jam", Lead: 3 * time.Hour},
	{Key: "1h", Label: "1 jam", Lead: time.Hour},
	{Key: "30m", Label: "30 menit", Lead: 30 * time.Minute},
}

// RuleKeys returns the default rule keys in display order.
func RuleKeys() []string {
	keys := make([]string, len(DefaultRules))
	for i, r := range DefaultRules {
		keys[i] = r.Key
	}
	return keys
}

// RuleLabel returns the human label for a rule key, or the key itself when
// unknown.
func RuleLabel(key string) string {
	for _, r := range DefaultRules {
		if r.Key == key {
			return r.Label
		}
	}
	return key
}

var tokenPattern = regexp.MustCompile(`^(\d+)(w|d|h|m)$`)

var nonWord = regexp.MustCompile(`[^\w]`)

// NormalizeRuleToken maps one user-entered token onto a known rule key.
// Matching is case-insensitive and tolerant of punctuation; a token is
// accepted only if it lands exactly on a key in the default table.
func NormalizeRuleToken(token string) (string, bool) {
	cleaned := nonWord.ReplaceAllString(strings.ToLower(token), "")
	if cleaned == "" {
		return "", false
	}
	if isKnownKey(cleaned) {
		return cleaned, true
	}
	m := tokenPattern.FindStringSubmatch(cleaned)
	if m == nil {
		return "", false
	}
	key := m[1] + m[2]
	if isKnownKey(key) {
		return key, true
	}
	return "", false
}

// ParseRuleTokens splits a comma/space-separated admin input into the
// normalized rule keys it names. Unrecognized tokens are dropped silently;
// duplicates keep their first position.
func ParseRuleTokens(input string) []string {
	var keys []string
	seen := make(map[string]bool)
	for _, chunk := range strings.Split(input, ",") {
		for _, part := range strings.Fields(chunk) {
			key, ok := NormalizeRuleToken(part)
			if !ok || seen[key] {
				continue
			}
			seen[key] = true
			keys = append(keys, key)
		}
	}
	return keys
}

// EffectiveRules filters the default table down to the allowed keys. A nil
// or empty allowed set means the full default set applies.
func EffectiveRules(allowed []string) []Rule {
	if len(allowed) == 0 {
		return DefaultRules
	}
	allowedSet := make(map[string]bool, len(allowed))
	for _, k := range allowed {
		allowedSet[k] = true
	}
	var rules []Rule
	for _, r := range DefaultRules {
		if allowedSet[r.Key] {
			rules = append(rules, r)
		}
	}
	return rules
}

func isKnownKey(key string) bool {
	for _, r := range DefaultRules {
		if r.Key == key {
			return true
		}
	}
	return false
}
