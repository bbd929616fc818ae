package features

import "strings"

// DefaultKeywords are the spam keywords looked for in the combined email text.
var DefaultKeywords = []string{
	"free", "win", "winner", "prize", "congratulations", "urgent", "offer",
	"money", "cash", "click", "buy", "purchase", "limited", "act now",
	"call now", "guaranteed", "no cost", "risk-free",
}

// DefaultSuspiciousDomains are link-shortener hosts treated as a spam signal.
var DefaultSuspiciousDomains = []string{
	"bit.ly", "tinyurl.com", "goo.gl", "grabify.link", "shorturl.at",
}

// Config holds the tunable lists used by an Extractor
type Config struct {
	Keywords          []string
	SuspiciousDomains []string
}

// DefaultConfig returns a Config populated with the default lists
func DefaultConfig() Config {
	return Config{
		Keywords:          append([]string(nil), DefaultKeywords...),
		SuspiciousDomains: append([]string(nil), DefaultSuspiciousDomains...),
	}
}

// normalizeList lower-cases and trims entries, dropping empties and duplicates.
// The first occurrence of an entry keeps its position.
func normalizeList(entries []string) []string {
	seen := make(map[string]struct{}, len(entries))
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return out
}
