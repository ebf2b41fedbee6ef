// Package util provides small text and number helpers shared by the CLI,
// the app shell and the feature services.
package util

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	// Matches spaces, underscores, and slashes (for replacement with dashes).
	wordSeparatorRe = regexp.MustCompile(`[\s_/]+`)
	// Matches non-alphanumeric characters (except dashes).
	nonAlphanumericRe = regexp.MustCompile(`[^a-z0-9-]`)
	// Matches multiple consecutive dashes.
	multipleDashRe = regexp.MustCompile(`-+`)
)

// NormalizeTag converts user input to the canonical tag form stored on ideas.
//
//	"Deep Work"    → "deep-work"
//	"café_culture" → "cafe-culture"
//	"🚀 AI!"       → "ai"
func NormalizeTag(input string) string {
	// Decompose accents so "é" keeps its base letter.
	s := norm.NFKD.String(input)
	s = strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, s)

	s = strings.ToLower(strings.TrimSpace(s))
	s = wordSeparatorRe.ReplaceAllString(s, "-")
	s = nonAlphanumericRe.ReplaceAllString(s, "")
	s = multipleDashRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// NormalizeTags normalizes and de-duplicates tags, keeping first-seen order
// and dropping entries that normalize to nothing.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		n := NormalizeTag(t)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// FormatNumber abbreviates counts for compact display: 950, 1.2K, 3.4M.
func FormatNumber(n int) string {
	switch {
	case n >= 1_000_000:
		return strconv.FormatFloat(float64(n)/1_000_000, 'f', 1, 64) + "M"
	case n >= 1_000:
		return strconv.FormatFloat(float64(n)/1_000, 'f', 1, 64) + "K"
	default:
		return strconv.Itoa(n)
	}
}

var agoUnits = []struct {
	seconds int64
	name    string
}{
	{31536000, "years"},
	{2592000, "months"},
	{86400, "days"},
	{3600, "hours"},
	{60, "minutes"},
}

// TimeAgo renders the distance between t and now in the largest whole unit
// that is strictly more than one, e.g. "3 days ago".
func TimeAgo(t, now time.Time) string {
	seconds := int64(now.Sub(t) / time.Second)
	for _, u := range agoUnits {
		if seconds > u.seconds {
			return strconv.FormatInt(seconds/u.seconds, 10) + " " + u.name + " ago"
		}
	}
	return strconv.FormatInt(seconds, 10) + " seconds ago"
}
