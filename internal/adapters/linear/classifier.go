package linear

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/mikey/spam-verdict/internal/core"
	"github.com/mikey/spam-verdict/internal/features"
	"go.uber.org/zap"
)

// ModelName is reported as ModelUsed on every prediction
const ModelName = "linear-features"

// Classifier is a logistic model over the extracted feature vector
type Classifier struct {
	weights   []float64
	bias      float64
	threshold float64
	logger    *zap.Logger
}

// NewClassifier builds a classifier from per-feature weights. Features without
// a weight contribute nothing; unknown names are rejected.
func NewClassifier(weights map[string]float64, bias, threshold float64, logger *zap.Logger) (*Classifier, error) {
	names := features.FeatureNames()
	index := make(map[string]int, len(names))
	for i, name := range names {
		index[name] = i
	}

	ordered := make([]float64, len(names))
	for name, w := range weights {
		i, ok := index[strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("unknown feature weight: %s", name)
		}
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, fmt.Errorf("weight for %s is not finite", name)
		}
		ordered[i] = w
	}

	if threshold <= 0 || threshold >= 1 {
		return nil, fmt.Errorf("threshold must be in (0, 1), got %v", threshold)
	}

	return &Classifier{
		weights:   ordered,
		bias:      bias,
		threshold: threshold,
		logger:    logger,
	}, nil
}

// Score returns the spam probability for a feature vector
func (c *Classifier) Score(f features.Features) float64 {
	z := c.bias
	for i, x := range f.Vector() {
		z += c.weights[i] * x
	}
	return 1 / (1 + math.Exp(-z))
}

// Predict labels a sample using its features only
func (c *Classifier) Predict(ctx context.Context, sample *core.Sample) (*core.Prediction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	score := c.Score(sample.Features)
	label := core.LabelFromBool(score >= c.threshold)

	c.logger.Debug("Linear model scored sample",
		zap.Float64("score", score),
		zap.Float64("threshold", c.threshold))

	return &core.Prediction{
		Label:       label,
		Score:       score,
		Confidence:  math.Abs(score-0.5) * 2,
		Explanation: explain(sample.Features),
		ModelUsed:   ModelName,
	}, nil
}

func explain(f features.Features) string {
	return fmt.Sprintf("%d urls, %d suspicious domains, %d spam keywords",
		f.NumURLs, f.NumSuspiciousDomains, f.NumSpamKeywords)
}
