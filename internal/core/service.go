package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mikey/spam-verdict/internal/features"
	"github.com/mikey/spam-verdict/internal/utils"
	"go.uber.org/zap"
)

// SenderPolicy decides whether a sender bypasses classification
type SenderPolicy interface {
	IsWhitelisted(from string) bool
}

// ServiceConfig holds the tunables of the classifier service
type ServiceConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
	// Threshold, when positive, overrides the classifier label: a score at or
	// above it is spam, anything below is ham.
	Threshold float64
}

// BatchResult pairs an email with its classification outcome
type BatchResult struct {
	Email  *Email
	Result *ClassificationResult
	Err    error
}

// ClassifierService is the core service turning emails into verdicts
type ClassifierService struct {
	classifier    Classifier
	cache         CacheRepository
	extractor     *features.Extractor
	textProcessor *utils.TextProcessor
	senderPolicy  SenderPolicy
	logger        *zap.Logger
	cfg           ServiceConfig
	now           func() time.Time
}

// NewClassifierService creates a new classifier service. cache and
// senderPolicy may be nil.
func NewClassifierService(
	classifier Classifier,
	cache CacheRepository,
	extractor *features.Extractor,
	textProcessor *utils.TextProcessor,
	senderPolicy SenderPolicy,
	logger *zap.Logger,
	cfg ServiceConfig,
) *ClassifierService {
	return &ClassifierService{
		classifier:    classifier,
		cache:         cache,
		extractor:     extractor,
		textProcessor: textProcessor,
		senderPolicy:  senderPolicy,
		logger:        logger,
		cfg:           cfg,
		now:           time.Now,
	}
}

// Fingerprint returns the cache key for a combined email text
func Fingerprint(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// sanitizedText joins sanitized subject and body for classifiers and fingerprints
func (s *ClassifierService) sanitizedText(email *Email) string {
	subject := s.textProcessor.SanitizeUTF8(email.Subject)
	body := s.textProcessor.SanitizeUTF8(email.Body)
	return features.CombineText(subject, body)
}

// ExtractFeatures computes the feature vector of an email without classifying it
func (s *ClassifierService) ExtractFeatures(email *Email) features.Features {
	return s.extractor.ExtractEmail(email.Subject, email.Body)
}

func (s *ClassifierService) cacheEnabled() bool {
	return s.cfg.CacheEnabled && s.cache != nil
}

// Classify returns the verdict for an email
func (s *ClassifierService) Classify(ctx context.Context, email *Email) (*ClassificationResult, error) {
	feats := s.ExtractFeatures(email)
	text := s.sanitizedText(email)

	// Check whitelist first
	if s.senderPolicy != nil && email.From != "" && s.senderPolicy.IsWhitelisted(email.From) {
		s.logger.Info("Skipping classification for whitelisted sender",
			zap.String("sender", email.From),
			zap.String("action", "whitelist_bypass"))

		return &ClassificationResult{
			Verdict:     VerdictHam,
			Label:       LabelHam,
			Confidence:  1.0,
			Explanation: "Sender domain is whitelisted",
			Features:    feats,
			AnalyzedAt:  s.now(),
			ModelUsed:   "whitelist",
		}, nil
	}

	fingerprint := Fingerprint(text)

	if s.cacheEnabled() {
		entry, err := s.cache.Get(ctx, fingerprint)
		switch {
		case err == nil:
			s.logger.Debug("Cache hit", zap.String("fingerprint", fingerprint))
			return &ClassificationResult{
				Verdict:     entry.Label.Verdict(),
				Label:       entry.Label,
				Score:       entry.Score,
				Confidence:  1.0,
				Explanation: "Result from cache",
				Features:    feats,
				AnalyzedAt:  s.now(),
				ModelUsed:   "cache",
			}, nil
		case !errors.Is(err, ErrCacheMiss):
			s.logger.Warn("Cache lookup failed", zap.Error(err))
		}
	}

	prediction, err := s.classifier.Predict(ctx, &Sample{
		Text:     text,
		Features: feats,
		Email:    email,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to classify email: %w", err)
	}

	processingID := prediction.ProcessingID
	if processingID == "" {
		processingID = uuid.NewString()
	}

	label := prediction.Label
	if s.cfg.Threshold > 0 {
		label = LabelFromBool(prediction.Score >= s.cfg.Threshold)
	}

	result := &ClassificationResult{
		Verdict:      label.Verdict(),
		Label:        label,
		Score:        prediction.Score,
		Confidence:   prediction.Confidence,
		Explanation:  prediction.Explanation,
		Features:     feats,
		AnalyzedAt:   s.now(),
		ModelUsed:    prediction.ModelUsed,
		ProcessingID: processingID,
	}

	if s.cacheEnabled() {
		now := s.now()
		entry := &CacheEntry{
			Fingerprint: fingerprint,
			Label:       label,
			Score:       prediction.Score,
			ModelUsed:   prediction.ModelUsed,
			LastSeen:    now,
			ExpiresAt:   now.Add(s.cfg.CacheTTL),
		}
		if err := s.cache.Set(ctx, entry); err != nil {
			s.logger.Error("Failed to update cache", zap.Error(err))
		}
	}

	s.logger.Debug("Classified email",
		zap.String("sender", email.From),
		zap.String("verdict", string(result.Verdict)),
		zap.Float64("score", result.Score),
		zap.Int("num_urls", feats.NumURLs),
		zap.Int("num_suspicious_domains", feats.NumSuspiciousDomains),
		zap.Int("num_spam_keywords", feats.NumSpamKeywords),
		zap.String("model", result.ModelUsed),
		zap.String("processing_id", processingID))

	return result, nil
}

// ClassifyBatch classifies every email in order. A failure is recorded on its
// entry and does not stop the batch; only context cancellation does.
func (s *ClassifierService) ClassifyBatch(ctx context.Context, emails []*Email) []BatchResult {
	results := make([]BatchResult, len(emails))
	for i, email := range emails {
		results[i].Email = email
		if err := ctx.Err(); err != nil {
			results[i].Err = err
			continue
		}
		results[i].Result, results[i].Err = s.Classify(ctx, email)
	}
	return results
}
