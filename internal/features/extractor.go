// Package features turns raw email text into the fixed-order feature vector
// consumed by the classifiers. Everything here is pure: no I/O, no logging and
// no shared mutable state, so an Extractor may be used from any goroutine.
package features

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// nonSpace matches one rune that is not Unicode white space. \s alone only
// covers ASCII, so the vertical tab, the C0 separators, NEL and the Z category
// are listed explicitly.
const nonSpace = `[^\s\v\x{1c}-\x{1f}\x{85}\p{Z}]`

var (
	urlPattern     = regexp.MustCompile(`https?://` + nonSpace + `+|www\.` + nonSpace + `+`)
	nonWordPattern = regexp.MustCompile(`[^A-Za-z0-9_]+`)
)

// Extractor derives Features from email text
type Extractor struct {
	keywords          []string
	suspiciousDomains []string
}

// NewExtractor creates an Extractor for the given keyword and domain lists
func NewExtractor(cfg Config) *Extractor {
	return &Extractor{
		keywords:          normalizeList(cfg.Keywords),
		suspiciousDomains: normalizeList(cfg.SuspiciousDomains),
	}
}

// Keywords returns a copy of the keyword list in use
func (e *Extractor) Keywords() []string {
	return append([]string(nil), e.keywords...)
}

// SuspiciousDomains returns a copy of the domain denylist in use
func (e *Extractor) SuspiciousDomains() []string {
	return append([]string(nil), e.suspiciousDomains...)
}

// CombineText joins subject and body the way every caller must before extraction
func CombineText(subject, body string) string {
	return subject + " " + body
}

// ExtractURLs returns every http(s):// or www. run in text, left to right.
// Duplicates are kept.
func ExtractURLs(text string) []string {
	urls := urlPattern.FindAllString(text, -1)
	if urls == nil {
		return []string{}
	}
	return urls
}

// URLFeatures counts the URLs and how many of them point at a suspicious host
func (e *Extractor) URLFeatures(urls []string) URLFeatures {
	result := URLFeatures{NumURLs: len(urls)}
	for _, u := range urls {
		host := hostOf(u)
		if host == "" {
			continue
		}
		for _, domain := range e.suspiciousDomains {
			if strings.Contains(host, domain) {
				result.NumSuspiciousDomains++
				break
			}
		}
	}
	return result
}

// KeywordFeatures counts how many distinct keywords occur in text.
// Matching is plain substring containment on the lower-cased text.
func (e *Extractor) KeywordFeatures(text string) KeywordFeatures {
	lowered := cases.Lower(language.Und).String(text)

	var result KeywordFeatures
	for _, kw := range e.keywords {
		if strings.Contains(lowered, kw) {
			result.NumSpamKeywords++
		}
	}
	return result
}

// Extract computes the full feature set for a single text
func (e *Extractor) Extract(text string) Features {
	urlFeatures := e.URLFeatures(ExtractURLs(text))
	keywordFeatures := e.KeywordFeatures(text)

	return Features{
		NumURLs:              urlFeatures.NumURLs,
		NumSuspiciousDomains: urlFeatures.NumSuspiciousDomains,
		NumSpamKeywords:      keywordFeatures.NumSpamKeywords,
	}
}

// ExtractEmail computes the features of a subject/body pair
func (e *Extractor) ExtractEmail(subject, body string) Features {
	return e.Extract(CombineText(subject, body))
}

// Transform extracts features for each text independently, preserving order
func (e *Extractor) Transform(texts []string) []Features {
	result := make([]Features, len(texts))
	for i, text := range texts {
		result[i] = e.Extract(text)
	}
	return result
}

// Preprocess collapses every run of non-word characters into a single space
// and lower-cases the result. Leading and trailing spaces are kept.
func Preprocess(text string) string {
	return strings.ToLower(nonWordPattern.ReplaceAllString(text, " "))
}

// hostOf returns the lower-cased authority of scheme://authority/... or ""
// when the string has no scheme-qualified authority.
func hostOf(rawURL string) string {
	i := strings.Index(rawURL, "://")
	if i <= 0 || !isScheme(rawURL[:i]) {
		return ""
	}
	authority := rawURL[i+3:]
	if j := strings.IndexAny(authority, "/?#"); j >= 0 {
		authority = authority[:j]
	}
	return strings.ToLower(authority)
}

func isScheme(s string) bool {
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && (r >= '0' && r <= '9' || r == '+' || r == '-' || r == '.'):
		default:
			return false
		}
	}
	return true
}
