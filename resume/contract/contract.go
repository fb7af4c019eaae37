package contract

import (
	"fmt"
	"sort"
	"strings"
)

// Placeholder groups of the résumé template. A template marks each slot as {{key}}.
const (
	SummaryBulletCount     = 7
	ExperienceBulletCount  = 6
	ExperienceAchievements = 2
)

// Experience block prefixes used by the template: the second-most-recent role
// and the latest role.
const (
	PrefixSummary   = "summary_bullet"
	PrefixExpTwo    = "exp2"
	PrefixExpLatest = "expl"
)

var keys = buildKeys()

func buildKeys() []string {
	out := make([]string, 0, SummaryBulletCount+2*(ExperienceBulletCount+ExperienceAchievements))
	for i := 1; i <= SummaryBulletCount; i++ {
		out = append(out, fmt.Sprintf("%s_%d", PrefixSummary, i))
	}
	for _, block := range []string{PrefixExpTwo, PrefixExpLatest} {
		for i := 1; i <= ExperienceBulletCount; i++ {
			out = append(out, fmt.Sprintf("%s_bullet_%d", block, i))
		}
		for i := 1; i <= ExperienceAchievements; i++ {
			out = append(out, fmt.Sprintf("%s_achievement_%d", block, i))
		}
	}
	return out
}

// Keys returns the fixed placeholder vocabulary in template order.
func Keys() []string {
	return append([]string(nil), keys...)
}

// IsKnown reports whether key belongs to the vocabulary. Surrounding spaces are ignored.
func IsKnown(key string) bool {
	key = strings.TrimSpace(key)
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}

// Coverage describes how a replacement map lines up with the vocabulary.
type Coverage struct {
	Missing []string
	Extra   []string
}

// Check compares replacements against the vocabulary. Neither missing nor extra
// keys are errors: missing slots stay literal in the document and extra keys are ignored
// unless the template happens to use them.
func Check(replacements map[string]string) Coverage {
	var cov Coverage
	for _, k := range keys {
		if _, ok := replacements[k]; !ok {
			cov.Missing = append(cov.Missing, k)
		}
	}
	for k := range replacements {
		if !IsKnown(k) {
			cov.Extra = append(cov.Extra, k)
		}
	}
	sort.Strings(cov.Extra)
	return cov
}
