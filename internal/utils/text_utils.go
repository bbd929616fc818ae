package utils

import (
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

// TruncationMarker is appended to text cut by TruncateText
const TruncationMarker = "\n[... Content truncated due to size limits ...]"

// TextProcessor prepares untrusted email text for classifiers and output
type TextProcessor struct {
	logger *zap.Logger
}

// NewTextProcessor creates a new TextProcessor
func NewTextProcessor(logger *zap.Logger) *TextProcessor {
	return &TextProcessor{
		logger: logger,
	}
}

// TruncateText cuts text to at most maxSize bytes without splitting a rune
// and appends TruncationMarker. maxSize <= 0 disables the limit.
func (tp *TextProcessor) TruncateText(text string, maxSize int) string {
	if maxSize <= 0 || len(text) <= maxSize {
		return text
	}

	cut := maxSize
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	truncated := text[:cut]

	tp.logger.Debug("Text truncated",
		zap.Int("original_size", len(text)),
		zap.Int("truncated_size", len(truncated)),
		zap.Int("max_size", maxSize))

	return truncated + TruncationMarker
}

// SanitizeUTF8 drops invalid UTF-8 sequences and NUL bytes
func (tp *TextProcessor) SanitizeUTF8(text string) string {
	if utf8.ValidString(text) && !strings.ContainsRune(text, 0) {
		return text
	}

	sanitized := strings.ReplaceAll(strings.ToValidUTF8(text, ""), "\x00", "")

	tp.logger.Debug("Text sanitized",
		zap.Int("original_size", len(text)),
		zap.Int("sanitized_size", len(sanitized)))

	return sanitized
}

// ProcessText truncates and sanitizes text in one operation
func (tp *TextProcessor) ProcessText(text string, maxSize int) string {
	return tp.SanitizeUTF8(tp.TruncateText(text, maxSize))
}

// FirstRunes keeps the first n runes of text; n <= 0 keeps everything
func FirstRunes(text string, n int) string {
	if n <= 0 {
		return text
	}
	i := 0
	for pos := range text {
		if i == n {
			return text[:pos]
		}
		i++
	}
	return text
}

// Preview returns the first n runes of text followed by "..." when it was cut
func Preview(text string, n int) string {
	if cut := FirstRunes(text, n); len(cut) < len(text) {
		return cut + "..."
	}
	return text
}
