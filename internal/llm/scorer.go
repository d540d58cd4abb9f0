package llm

import (
	"context"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/newthinker/quorum/internal/core"
)

const sentimentPrompt = `You rate financial news headlines by their likely short-term effect on the stock price.
Reply with a single number between -1 (very bearish) and 1 (very bullish). 0 means neutral. Reply with the number only.`

var numberPattern = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// SentimentScorer asks an LLM to rate headlines in [-1, 1].
type SentimentScorer struct {
	provider Provider
	timeout  time.Duration
}

// NewSentimentScorer creates a scorer. A non-positive timeout disables the
// per-headline deadline.
func NewSentimentScorer(provider Provider, timeout time.Duration) *SentimentScorer {
	return &SentimentScorer{provider: provider, timeout: timeout}
}

// Score rates one headline.
func (s *SentimentScorer) Score(ctx context.Context, headline string) (float64, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	resp, err := s.provider.Chat(ctx, ChatRequest{
		SystemPrompt: sentimentPrompt,
		Messages:     []Message{{Role: "user", Content: strings.TrimSpace(headline)}},
		MaxTokens:    16,
	})
	if err != nil {
		return 0, err
	}
	return ParseSentiment(resp.Content)
}

// ParseSentiment extracts the first number in text and clamps it to [-1, 1].
func ParseSentiment(text string) (float64, error) {
	m := numberPattern.FindString(text)
	if m == "" {
		return 0, core.Wrapf(core.ErrLLMFailed, "no sentiment score in reply %q", text)
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, core.Wrapf(core.ErrLLMFailed, "parse sentiment %q: %w", m, err)
	}
	return math.Max(-1, math.Min(1, v)), nil
}
