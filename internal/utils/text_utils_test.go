package utils

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestTruncateText(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	assert.Equal(t, "short", tp.TruncateText("short", 10))
	assert.Equal(t, "anything", tp.TruncateText("anything", 0))
	assert.Equal(t, "abc"+TruncationMarker, tp.TruncateText("abcdef", 3))

	// "é" is two bytes, cutting at 2 must not split it
	got := tp.TruncateText("aébc", 2)
	assert.Equal(t, "a"+TruncationMarker, got)
	assert.True(t, utf8.ValidString(got))
}

func TestSanitizeUTF8(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	assert.Equal(t, "hello", tp.SanitizeUTF8("hello"))
	assert.Equal(t, "héllo", tp.SanitizeUTF8("héllo"))
	assert.Equal(t, "ab", tp.SanitizeUTF8("a\xff\xfeb"))
	assert.Equal(t, "ab", tp.SanitizeUTF8("a\x00b"))
}

func TestProcessText(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	got := tp.ProcessText(strings.Repeat("x", 20)+"\xff", 10)
	assert.Equal(t, strings.Repeat("x", 10)+TruncationMarker, got)
}

func TestFirstRunes(t *testing.T) {
	assert.Equal(t, "héll", FirstRunes("héllo", 4))
	assert.Equal(t, "héllo", FirstRunes("héllo", 0))
	assert.Equal(t, "héllo", FirstRunes("héllo", 5))
	assert.Equal(t, "héllo", FirstRunes("héllo", 10))
	assert.Equal(t, "", FirstRunes("", 3))
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "hello", Preview("hello", 10))
	assert.Equal(t, "hel...", Preview("hello", 3))
	assert.Equal(t, "ün...", Preview("ünïcode", 2))
	assert.Equal(t, "full", Preview("full", 0))
}
