package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mikey/spam-verdict/internal/features"
	"github.com/mikey/spam-verdict/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

type mockClassifier struct {
	mock.Mock
}

func (m *mockClassifier) Predict(ctx context.Context, sample *Sample) (*Prediction, error) {
	args := m.Called(ctx, sample)
	p, _ := args.Get(0).(*Prediction)
	return p, args.Error(1)
}

type mockCache struct {
	mock.Mock
}

func (m *mockCache) Get(ctx context.Context, fingerprint string) (*CacheEntry, error) {
	args := m.Called(ctx, fingerprint)
	e, _ := args.Get(0).(*CacheEntry)
	return e, args.Error(1)
}

func (m *mockCache) Set(ctx context.Context, entry *CacheEntry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *mockCache) Delete(ctx context.Context, fingerprint string) error {
	return m.Called(ctx, fingerprint).Error(0)
}

func (m *mockCache) Cleanup(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type staticPolicy map[string]bool

func (p staticPolicy) IsWhitelisted(from string) bool {
	return p[from]
}

type ServiceSuite struct {
	suite.Suite
	classifier *mockClassifier
	cache      *mockCache
	now        time.Time
}

func (s *ServiceSuite) SetupTest() {
	s.classifier = &mockClassifier{}
	s.cache = &mockCache{}
	s.now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
}

func (s *ServiceSuite) newService(policy SenderPolicy, cfg ServiceConfig) *ClassifierService {
	logger := zap.NewNop()
	svc := NewClassifierService(
		s.classifier,
		s.cache,
		features.NewExtractor(features.DefaultConfig()),
		utils.NewTextProcessor(logger),
		policy,
		logger,
		cfg,
	)
	svc.now = func() time.Time { return s.now }
	return svc
}

func spamEmail() *Email {
	return &Email{
		From:    "promo@example.com",
		Subject: "WIN FREE CASH NOW",
		Body:    "Click http://bit.ly/x and http://tinyurl.com/y",
	}
}

func (s *ServiceSuite) TestClassifyPassesFeaturesAndText() {
	s.classifier.On("Predict", mock.Anything, mock.MatchedBy(func(sample *Sample) bool {
		return sample.Text == "WIN FREE CASH NOW Click http://bit.ly/x and http://tinyurl.com/y" &&
			sample.Features == features.Features{NumURLs: 2, NumSuspiciousDomains: 2, NumSpamKeywords: 4}
	})).Return(&Prediction{Label: LabelSpam, Score: 0.9, ModelUsed: "m"}, nil)

	result, err := s.newService(nil, ServiceConfig{}).Classify(context.Background(), spamEmail())
	s.Require().NoError(err)

	s.Equal(VerdictSpam, result.Verdict)
	s.Equal(LabelSpam, result.Label)
	s.Equal(0.9, result.Score)
	s.Equal("m", result.ModelUsed)
	s.Equal(s.now, result.AnalyzedAt)
	s.True(result.IsSpam())
	s.Len(result.ProcessingID, 36)
	s.classifier.AssertExpectations(s.T())
	s.cache.AssertNotCalled(s.T(), "Get", mock.Anything, mock.Anything)
}

func (s *ServiceSuite) TestClassifyWhitelistedSender() {
	policy := staticPolicy{"promo@example.com": true}

	result, err := s.newService(policy, ServiceConfig{}).Classify(context.Background(), spamEmail())
	s.Require().NoError(err)

	s.Equal(VerdictHam, result.Verdict)
	s.Equal("whitelist", result.ModelUsed)
	s.Equal(4, result.Features.NumSpamKeywords)
	s.classifier.AssertNotCalled(s.T(), "Predict", mock.Anything, mock.Anything)
}

func (s *ServiceSuite) TestClassifyThresholdOverridesLabel() {
	s.classifier.On("Predict", mock.Anything, mock.Anything).
		Return(&Prediction{Label: LabelSpam, Score: 0.6}, nil)

	result, err := s.newService(nil, ServiceConfig{Threshold: 0.7}).Classify(context.Background(), spamEmail())
	s.Require().NoError(err)
	s.Equal(VerdictHam, result.Verdict)

	s.classifier.ExpectedCalls = nil
	s.classifier.On("Predict", mock.Anything, mock.Anything).
		Return(&Prediction{Label: LabelHam, Score: 0.7}, nil)

	result, err = s.newService(nil, ServiceConfig{Threshold: 0.7}).Classify(context.Background(), spamEmail())
	s.Require().NoError(err)
	s.Equal(VerdictSpam, result.Verdict)
}

func (s *ServiceSuite) TestClassifyKeepsProviderProcessingID() {
	s.classifier.On("Predict", mock.Anything, mock.Anything).
		Return(&Prediction{Label: LabelHam, ProcessingID: "resp-1"}, nil)

	result, err := s.newService(nil, ServiceConfig{}).Classify(context.Background(), spamEmail())
	s.Require().NoError(err)
	s.Equal("resp-1", result.ProcessingID)
}

func (s *ServiceSuite) TestClassifyWrapsClassifierError() {
	cause := errors.New("boom")
	s.classifier.On("Predict", mock.Anything, mock.Anything).Return(nil, cause)

	_, err := s.newService(nil, ServiceConfig{}).Classify(context.Background(), spamEmail())
	s.Require().Error(err)
	s.ErrorIs(err, cause)
	s.Equal("failed to classify email: boom", err.Error())
}

func (s *ServiceSuite) TestClassifyCacheHit() {
	email := spamEmail()
	fingerprint := Fingerprint(features.CombineText(email.Subject, email.Body))
	s.cache.On("Get", mock.Anything, fingerprint).
		Return(&CacheEntry{Fingerprint: fingerprint, Label: LabelSpam, Score: 0.8}, nil)

	result, err := s.newService(nil, ServiceConfig{CacheEnabled: true, CacheTTL: time.Hour}).
		Classify(context.Background(), email)
	s.Require().NoError(err)

	s.Equal(VerdictSpam, result.Verdict)
	s.Equal(0.8, result.Score)
	s.Equal("cache", result.ModelUsed)
	s.classifier.AssertNotCalled(s.T(), "Predict", mock.Anything, mock.Anything)
}

func (s *ServiceSuite) TestClassifyCacheMissWritesBack() {
	s.cache.On("Get", mock.Anything, mock.Anything).Return(nil, ErrCacheMiss)
	s.cache.On("Set", mock.Anything, mock.MatchedBy(func(e *CacheEntry) bool {
		return e.Label == LabelSpam && e.Score == 0.9 && e.ExpiresAt.Equal(s.now.Add(time.Hour))
	})).Return(nil)
	s.classifier.On("Predict", mock.Anything, mock.Anything).
		Return(&Prediction{Label: LabelSpam, Score: 0.9}, nil)

	_, err := s.newService(nil, ServiceConfig{CacheEnabled: true, CacheTTL: time.Hour}).
		Classify(context.Background(), spamEmail())
	s.Require().NoError(err)
	s.cache.AssertExpectations(s.T())
}

func (s *ServiceSuite) TestClassifyCacheFailuresAreNotFatal() {
	s.cache.On("Get", mock.Anything, mock.Anything).Return(nil, errors.New("db down"))
	s.cache.On("Set", mock.Anything, mock.Anything).Return(errors.New("db down"))
	s.classifier.On("Predict", mock.Anything, mock.Anything).
		Return(&Prediction{Label: LabelHam, Score: 0.1}, nil)

	result, err := s.newService(nil, ServiceConfig{CacheEnabled: true, CacheTTL: time.Hour}).
		Classify(context.Background(), spamEmail())
	s.Require().NoError(err)
	s.Equal(VerdictHam, result.Verdict)
}

func (s *ServiceSuite) TestClassifyBatch() {
	s.classifier.On("Predict", mock.Anything, mock.MatchedBy(func(sample *Sample) bool {
		return sample.Email.Subject == "bad"
	})).Return(nil, errors.New("boom"))
	s.classifier.On("Predict", mock.Anything, mock.Anything).
		Return(&Prediction{Label: LabelHam, Score: 0.1}, nil)

	emails := []*Email{{Subject: "one"}, {Subject: "bad"}, {Subject: "three"}}
	results := s.newService(nil, ServiceConfig{}).ClassifyBatch(context.Background(), emails)

	s.Require().Len(results, 3)
	s.NoError(results[0].Err)
	s.Error(results[1].Err)
	s.NoError(results[2].Err)
	s.Same(emails[2], results[2].Email)
}

func (s *ServiceSuite) TestClassifyBatchCancelled() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := s.newService(nil, ServiceConfig{}).ClassifyBatch(ctx, []*Email{{Subject: "a"}, {Subject: "b"}})

	s.Require().Len(results, 2)
	for _, r := range results {
		s.ErrorIs(r.Err, context.Canceled)
	}
	s.classifier.AssertNotCalled(s.T(), "Predict", mock.Anything, mock.Anything)
}

func (s *ServiceSuite) TestExtractFeatures() {
	got := s.newService(nil, ServiceConfig{}).ExtractFeatures(spamEmail())
	s.Equal(features.Features{NumURLs: 2, NumSuspiciousDomains: 2, NumSpamKeywords: 4}, got)
}

func (s *ServiceSuite) TestExtractFeaturesKeepsRawBytes() {
	email := &Email{Subject: "fr\x00ee c\xffash", Body: "see http://bit.ly\x00x"}
	want := features.NewExtractor(features.DefaultConfig()).ExtractEmail(email.Subject, email.Body)

	s.Equal(want, s.newService(nil, ServiceConfig{}).ExtractFeatures(email))
	s.Equal(0, want.NumSpamKeywords)
}

func (s *ServiceSuite) TestClassifyFeaturesIgnoreSanitizing() {
	email := &Email{Subject: "fr\x00ee c\xffash", Body: "see http://bit.ly\x00x"}
	want := features.NewExtractor(features.DefaultConfig()).ExtractEmail(email.Subject, email.Body)

	s.classifier.On("Predict", mock.Anything, mock.MatchedBy(func(sample *Sample) bool {
		return sample.Features == want
	})).Return(&Prediction{Label: LabelHam, Score: 0.1, ModelUsed: "m"}, nil)

	result, err := s.newService(nil, ServiceConfig{}).Classify(context.Background(), email)
	s.Require().NoError(err)
	s.Equal(want, result.Features)
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint("hello world")
	require.Len(t, a, 64)
	assert.Equal(t, a, Fingerprint("hello world"))
	assert.NotEqual(t, a, Fingerprint("hello world!"))
}

func TestLabelVerdict(t *testing.T) {
	assert.Equal(t, VerdictSpam, LabelSpam.Verdict())
	assert.Equal(t, VerdictHam, LabelHam.Verdict())
	assert.Equal(t, LabelSpam, LabelFromBool(true))
	assert.Equal(t, LabelHam, LabelFromBool(false))
}
