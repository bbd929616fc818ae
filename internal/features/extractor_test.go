package features_test

import (
	"math/rand"
	"strings"
	"testing"
	"unicode"

	"github.com/mikey/spam-verdict/internal/features"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDefaultExtractor() *features.Extractor {
	return features.NewExtractor(features.DefaultConfig())
}

func TestExtractURLs(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"empty", "", []string{}},
		{"no urls", "hello world", []string{}},
		{"single http", "see http://example.com now", []string{"http://example.com"}},
		{"https with path", "go to https://example.com/a?b=c#d.", []string{"https://example.com/a?b=c#d."}},
		{"bare www", "visit www.example.org today", []string{"www.example.org"}},
		{
			"mixed order and duplicates",
			"https://a.com/x, www.b.org and http://c.net then https://a.com/x,",
			[]string{"https://a.com/x,", "www.b.org", "http://c.net", "https://a.com/x,"},
		},
		{"scheme wins over inner www", "http://www.bit.ly/abc", []string{"http://www.bit.ly/abc"}},
		{"uppercase scheme is not a url", "HTTP://bit.ly/x", []string{}},
		{"uppercase scheme with www", "HTTPS://www.example.com", []string{"www.example.com"}},
		{"prefix without payload", "http:// and www. alone", []string{}},
		{"adjacent to text", "clickhttp://x.io/y", []string{"http://x.io/y"}},
		{"unicode space terminates", "http://a.com next　www.b.com", []string{"http://a.com", "www.b.com"}},
		{"line breaks terminate", "http://a.com\nhttp://b.com\r\n", []string{"http://a.com", "http://b.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, features.ExtractURLs(tt.text))
		})
	}
}

func TestExtractURLsElementsAreWellFormed(t *testing.T) {
	alphabet := []rune("htps:/w.abc \t\n  x?#=\u0085\v")
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 2000; i++ {
		n := rng.Intn(40)
		var sb strings.Builder
		for j := 0; j < n; j++ {
			sb.WriteRune(alphabet[rng.Intn(len(alphabet))])
		}
		// seed some real prefixes
		text := sb.String() + " http://" + sb.String() + "www." + sb.String()

		for _, u := range features.ExtractURLs(text) {
			hasPrefix := strings.HasPrefix(u, "http://") ||
				strings.HasPrefix(u, "https://") ||
				strings.HasPrefix(u, "www.")
			require.True(t, hasPrefix, "unexpected element %q", u)
			require.False(t, strings.IndexFunc(u, unicode.IsSpace) >= 0, "whitespace in %q", u)
		}
	}
}

func TestURLFeatures(t *testing.T) {
	e := newDefaultExtractor()

	tests := []struct {
		name string
		urls []string
		want features.URLFeatures
	}{
		{"empty", []string{}, features.URLFeatures{}},
		{"nil", nil, features.URLFeatures{}},
		{"shortener", []string{"http://bit.ly/abc"}, features.URLFeatures{NumURLs: 1, NumSuspiciousDomains: 1}},
		{"clean host", []string{"http://example.com"}, features.URLFeatures{NumURLs: 1}},
		{"subdomain of shortener", []string{"https://x.tinyurl.com/q"}, features.URLFeatures{NumURLs: 1, NumSuspiciousDomains: 1}},
		{"host is case folded", []string{"http://GOO.GL/x"}, features.URLFeatures{NumURLs: 1, NumSuspiciousDomains: 1}},
		{"shortener only in path", []string{"https://example.com/bit.ly"}, features.URLFeatures{NumURLs: 1}},
		{"shortener only in query", []string{"https://example.com?u=grabify.link"}, features.URLFeatures{NumURLs: 1}},
		{"www has no host", []string{"www.bit.ly/abc"}, features.URLFeatures{NumURLs: 1}},
		{"malformed", []string{"http://", "not a url", "://bit.ly"}, features.URLFeatures{NumURLs: 3}},
		{"port is part of host", []string{"http://shorturl.at:8080/x"}, features.URLFeatures{NumURLs: 1, NumSuspiciousDomains: 1}},
		{
			"counted once per url",
			[]string{"http://bit.ly.goo.gl/x", "http://bit.ly/y", "http://example.org"},
			features.URLFeatures{NumURLs: 3, NumSuspiciousDomains: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.URLFeatures(tt.urls))
		})
	}
}

func TestKeywordFeatures(t *testing.T) {
	e := newDefaultExtractor()

	tests := []struct {
		name string
		text string
		want int
	}{
		{"none", "hello world", 0},
		{"empty", "", 0},
		{"mixed case", "Congratulations! You WIN a FREE prize", 4},
		{"repeats do not double count", "free free FREE Free", 1},
		// winner also contains win
		{"substrings count", "freedom for the winner", 3},
		// risk-free also contains free
		{"multi word keywords", "Act Now or call now, risk-free with no cost", 5},
		{"hyphen required", "risk free", 1},
		{"guaranteed money", "Guaranteed money back, limited offer", 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.KeywordFeatures(tt.text).NumSpamKeywords)
		})
	}
}

func TestExtractEmailEndToEnd(t *testing.T) {
	e := newDefaultExtractor()

	got := e.ExtractEmail("WIN FREE CASH NOW", "Click http://bit.ly/x and http://tinyurl.com/y")

	// win, free, cash, click
	assert.Equal(t, features.Features{
		NumURLs:              2,
		NumSuspiciousDomains: 2,
		NumSpamKeywords:      4,
	}, got)
	assert.Equal(t, []float64{2, 2, 4}, got.Vector())
}

func TestExtractDegradesGracefully(t *testing.T) {
	e := newDefaultExtractor()

	inputs := []string{
		"",
		"   \t\n  ",
		"\xff\xfe\x00http://bit.ly/\xff x",
		string([]byte{0x00, 0x01, 0x02, 0xc3}),
		strings.Repeat("http://", 1000),
	}

	for _, in := range inputs {
		require.NotPanics(t, func() {
			f := e.Extract(in)
			assert.GreaterOrEqual(t, f.NumURLs, 0)
			assert.GreaterOrEqual(t, f.NumSuspiciousDomains, 0)
			assert.GreaterOrEqual(t, f.NumSpamKeywords, 0)
		})
	}

	assert.True(t, e.Extract("").IsZero())
	assert.True(t, e.Extract(" \n\t ").IsZero())
}

func TestTransform(t *testing.T) {
	e := newDefaultExtractor()

	a := "free money at http://bit.ly/a"
	b := "meeting notes, see www.example.com"

	both := e.Transform([]string{a, b})
	require.Len(t, both, 2)

	alone := e.Transform([]string{a})
	require.Len(t, alone, 1)

	assert.Equal(t, alone[0], both[0])
	assert.Equal(t, e.Extract(b), both[1])
	assert.Equal(t, both, e.Transform([]string{a, b}))
	assert.Empty(t, e.Transform(nil))
}

func TestCustomConfig(t *testing.T) {
	e := features.NewExtractor(features.Config{
		Keywords:          []string{" Lottery ", "lottery", "", "JACKPOT"},
		SuspiciousDomains: []string{"Evil.Example"},
	})

	assert.Equal(t, []string{"lottery", "jackpot"}, e.Keywords())
	assert.Equal(t, []string{"evil.example"}, e.SuspiciousDomains())

	f := e.Extract("Lottery JACKPOT! free http://evil.example/x http://bit.ly/y")
	assert.Equal(t, features.Features{NumURLs: 2, NumSuspiciousDomains: 1, NumSpamKeywords: 2}, f)
}

func TestDefaultConfigIsACopy(t *testing.T) {
	cfg := features.DefaultConfig()
	cfg.Keywords[0] = "changed"

	assert.Equal(t, "free", features.DefaultKeywords[0])
}

func TestPreprocess(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hello, World!! 123", "hello world 123"},
		{"", ""},
		{"  leading", " leading"},
		{"trailing!!", "trailing "},
		{"snake_case_kept", "snake_case_kept"},
		{"Crème brûlée", "cr me br l e"},
		{"a\t\n\r b", "a b"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, features.Preprocess(tt.in), "input %q", tt.in)
	}
}

func TestPreprocessIsIdempotent(t *testing.T) {
	samples := []string{
		"Hello, World!! 123",
		"WIN FREE CASH NOW -- click http://bit.ly/x",
		"Ünïcödé §§ text",
		"\xff\xfe broken",
		"   ",
	}

	for _, s := range samples {
		once := features.Preprocess(s)
		assert.Equal(t, once, features.Preprocess(once), "input %q", s)
	}
}

func TestFeatureNamesOrder(t *testing.T) {
	assert.Equal(t,
		[]string{features.NumURLs, features.NumSuspiciousDomains, features.NumSpamKeywords},
		features.FeatureNames())

	f := features.Features{NumURLs: 1, NumSuspiciousDomains: 2, NumSpamKeywords: 3}
	m := f.Map()
	for i, name := range features.FeatureNames() {
		assert.Equal(t, f.Vector()[i], float64(m[name]))
	}
}
