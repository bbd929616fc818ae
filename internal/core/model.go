package core

import (
	"errors"
	"time"

	"github.com/mikey/spam-verdict/internal/features"
)

// ErrCacheMiss is returned by cache repositories when no live entry exists
var ErrCacheMiss = errors.New("cache entry not found")

// Email represents an email message
type Email struct {
	MessageID  string
	From       string
	To         []string
	Subject    string
	Body       string
	Headers    map[string][]string
	ReceivedAt time.Time
}

// Label is the binary classifier output
type Label int

const (
	// LabelHam marks a legitimate message
	LabelHam Label = 0
	// LabelSpam marks a spam message
	LabelSpam Label = 1
)

// Verdict is the user-facing rendering of a Label
type Verdict string

const (
	VerdictHam  Verdict = "ham"
	VerdictSpam Verdict = "spam"
)

// Verdict renders the label
func (l Label) Verdict() Verdict {
	if l == LabelSpam {
		return VerdictSpam
	}
	return VerdictHam
}

// LabelFromBool converts an is-spam flag into a Label
func LabelFromBool(isSpam bool) Label {
	if isSpam {
		return LabelSpam
	}
	return LabelHam
}

// Sample is what a classifier receives for a single email
type Sample struct {
	// Text is subject and body joined by features.CombineText
	Text     string
	Features features.Features
	Email    *Email
}

// Prediction is the raw classifier output
type Prediction struct {
	Label        Label
	Score        float64
	Confidence   float64
	Explanation  string
	ModelUsed    string
	ProcessingID string
}

// ClassificationResult represents the outcome of classifying one email
type ClassificationResult struct {
	Verdict      Verdict
	Label        Label
	Score        float64
	Confidence   float64
	Explanation  string
	Features     features.Features
	AnalyzedAt   time.Time
	ModelUsed    string
	ProcessingID string
}

// IsSpam reports whether the result carries the spam label
func (r *ClassificationResult) IsSpam() bool {
	return r.Label == LabelSpam
}

// CacheEntry is a stored verdict for a content fingerprint
type CacheEntry struct {
	Fingerprint string
	Label       Label
	Score       float64
	ModelUsed   string
	LastSeen    time.Time
	ExpiresAt   time.Time
}
