package features

// Canonical feature names, in vector order.
const (
	NumURLs              = "num_urls"
	NumSuspiciousDomains = "num_suspicious_domains"
	NumSpamKeywords      = "num_spam_keywords"
)

var featureNames = []string{NumURLs, NumSuspiciousDomains, NumSpamKeywords}

// FeatureNames returns the feature names in canonical order
func FeatureNames() []string {
	return append([]string(nil), featureNames...)
}

// Features is the fixed-order numeric summary of an email
type Features struct {
	NumURLs              int `json:"num_urls"`
	NumSuspiciousDomains int `json:"num_suspicious_domains"`
	NumSpamKeywords      int `json:"num_spam_keywords"`
}

// URLFeatures holds the link-derived counts
type URLFeatures struct {
	NumURLs              int `json:"num_urls"`
	NumSuspiciousDomains int `json:"num_suspicious_domains"`
}

// KeywordFeatures holds the keyword-derived counts
type KeywordFeatures struct {
	NumSpamKeywords int `json:"num_spam_keywords"`
}

// Vector returns the feature values in the order given by FeatureNames
func (f Features) Vector() []float64 {
	return []float64{
		float64(f.NumURLs),
		float64(f.NumSuspiciousDomains),
		float64(f.NumSpamKeywords),
	}
}

// Map returns the features keyed by name
func (f Features) Map() map[string]int {
	return map[string]int{
		NumURLs:              f.NumURLs,
		NumSuspiciousDomains: f.NumSuspiciousDomains,
		NumSpamKeywords:      f.NumSpamKeywords,
	}
}

// IsZero reports whether every count is zero
func (f Features) IsZero() bool {
	return f == Features{}
}
