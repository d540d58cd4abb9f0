package analyzer

import (
	"math"
	"sort"

	"github.com/newthinker/quorum/internal/core"
)

const (
	sentimentItems     = 5
	sentimentThreshold = 0.2
)

// Sentiment votes on the average score of recent headlines.
type Sentiment struct{}

// NewSentiment creates the market sentiment analyzer.
func NewSentiment() *Sentiment {
	return &Sentiment{}
}

func (s *Sentiment) Name() string    { return NameSentiment }
func (s *Sentiment) Weight() float64 { return 8 }
func (s *Sentiment) MinBars() int    { return 0 }

func (s *Sentiment) Analyze(in Input) (Result, error) {
	scored := make([]core.NewsItem, 0, len(in.News))
	for _, item := range in.News {
		if !item.Unscored {
			scored = append(scored, item)
		}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].PublishedAt.After(scored[j].PublishedAt)
	})
	if len(scored) > sentimentItems {
		scored = scored[:sentimentItems]
	}

	res := Result{
		Direction:  core.DirectionNeutral,
		Confidence: NeutralConfidence,
		Values:     map[string]float64{"news_count": float64(len(scored))},
	}
	if len(scored) == 0 {
		return res, nil
	}

	var sum float64
	for _, item := range scored {
		sum += item.Sentiment
	}
	avg := sum / float64(len(scored))
	res.Values["average_sentiment"] = avg

	boost := int(math.Min(30, math.Round(math.Abs(avg)*50)))
	switch {
	case avg > sentimentThreshold:
		res.Direction = core.DirectionBuy
		res.Confidence = 50 + boost
		res.Signals = []core.Signal{signal("Positive News Sentiment", core.DirectionBuy, math.Abs(avg)*100)}
	case avg < -sentimentThreshold:
		res.Direction = core.DirectionSell
		res.Confidence = 50 + boost
		res.Signals = []core.Signal{signal("Negative News Sentiment", core.DirectionSell, math.Abs(avg)*100)}
	}
	return res, nil
}
