package news

import (
	"context"
	"math"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/newthinker/quorum/internal/core"
)

// Scorer assigns a sentiment in [-1, 1] to a headline.
type Scorer interface {
	Score(ctx context.Context, headline string) (float64, error)
}

// ScoredProvider fills in sentiment for headlines the source left unscored.
type ScoredProvider struct {
	provider Provider
	scorer   Scorer
	logger   *zap.Logger
}

// NewScoredProvider wraps provider with scorer.
func NewScoredProvider(provider Provider, scorer Scorer, logger *zap.Logger) *ScoredProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScoredProvider{provider: provider, scorer: scorer, logger: logger}
}

// GetRecentNews fetches headlines and scores the unscored ones.
// A scoring failure leaves that headline unscored.
func (p *ScoredProvider) GetRecentNews(ctx context.Context, symbol string, limit int) ([]core.NewsItem, error) {
	items, err := p.provider.GetRecentNews(ctx, symbol, limit)
	if err != nil {
		return nil, err
	}

	for i := range items {
		if !items[i].Unscored {
			continue
		}
		score, err := p.scorer.Score(ctx, items[i].Headline)
		if err != nil {
			p.logger.Warn("headline scoring failed",
				zap.String("symbol", symbol),
				zap.String("headline", items[i].Headline),
				zap.Error(err),
			)
			continue
		}
		items[i].Sentiment = Clamp(score)
		items[i].Unscored = false
	}
	return items, nil
}

// Clamp bounds a sentiment score to [-1, 1]. NaN maps to 0.
func Clamp(score float64) float64 {
	if math.IsNaN(score) {
		return 0
	}
	return math.Max(-1, math.Min(1, score))
}

var (
	bullishWords = map[string]bool{
		"beat": true, "beats": true, "surge": true, "surges": true, "soar": true, "soars": true,
		"rally": true, "rallies": true, "upgrade": true, "upgraded": true, "record": true,
		"growth": true, "profit": true, "gain": true, "gains": true, "strong": true,
		"outperform": true, "bullish": true, "raises": true, "jump": true, "jumps": true,
	}
	bearishWords = map[string]bool{
		"miss": true, "misses": true, "plunge": true, "plunges": true, "fall": true, "falls": true,
		"drop": true, "drops": true, "downgrade": true, "downgraded": true, "loss": true,
		"lawsuit": true, "probe": true, "weak": true, "cut": true, "cuts": true,
		"underperform": true, "bearish": true, "recall": true, "slump": true, "slumps": true,
	}
)

// KeywordScorer scores headlines by counting bullish and bearish words.
// It is the scorer used when no LLM is configured.
type KeywordScorer struct{}

// Score returns (bull-bear)/(bull+bear), or 0 when no keyword matches.
func (KeywordScorer) Score(ctx context.Context, headline string) (float64, error) {
	words := strings.FieldsFunc(strings.ToLower(headline), func(r rune) bool {
		return !unicode.IsLetter(r)
	})

	var bull, bear float64
	for _, w := range words {
		switch {
		case bullishWords[w]:
			bull++
		case bearishWords[w]:
			bear++
		}
	}
	if bull+bear == 0 {
		return 0, nil
	}
	return (bull - bear) / (bull + bear), nil
}
