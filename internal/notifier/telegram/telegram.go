// Package telegram sends hub events as Telegram Bot API messages.
package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/newthinker/quorum/internal/consensus"
	"github.com/newthinker/quorum/internal/core"
	"github.com/newthinker/quorum/internal/events"
)

const defaultBaseURL = "https://api.telegram.org"

// Telegram implements notifier.Notifier for the Telegram Bot API.
type Telegram struct {
	name     string
	botToken string
	chatID   string
	client   *resty.Client
}

// New creates a Telegram notifier. An empty baseURL uses the public API.
func New(name, botToken, chatID, baseURL string) (*Telegram, error) {
	if botToken == "" {
		return nil, core.Wrapf(core.ErrConfigMissing, "telegram %s: bot_token is required", name)
	}
	if chatID == "" {
		return nil, core.Wrapf(core.ErrConfigMissing, "telegram %s: chat_id is required", name)
	}
	if name == "" {
		name = "telegram"
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	client := resty.New()
	client.SetBaseURL(strings.TrimRight(baseURL, "/"))
	client.SetTimeout(30 * time.Second)

	return &Telegram{name: name, botToken: botToken, chatID: chatID, client: client}, nil
}

func (t *Telegram) Name() string {
	return t.name
}

// Notify formats e as a Markdown message and sends it to the chat.
func (t *Telegram) Notify(ctx context.Context, e events.Event) error {
	text := Format(e)
	if text == "" {
		return nil
	}
	return t.sendMessage(ctx, text)
}

// Format renders an event as a short Markdown message. Unknown payloads
// render as "".
func Format(e events.Event) string {
	switch data := e.Data.(type) {
	case core.TradeRecord:
		return formatTrade(data)
	case consensus.Report:
		return formatReport(data)
	case events.BotStatus:
		return formatStatus(data)
	}
	return ""
}

func formatTrade(rec core.TradeRecord) string {
	var sb strings.Builder

	if rec.Action == core.TradeOpen {
		emoji := "📈"
		if rec.Side == core.SideShort {
			emoji = "📉"
		}
		sb.WriteString(fmt.Sprintf("%s *%s* OPEN %s %g @ $%.2f\n", emoji, rec.Symbol, rec.Side, rec.Quantity, rec.Price))
		sb.WriteString(fmt.Sprintf("🛡️ Stop: $%.2f  🎯 Target: $%.2f\n", rec.StopLoss, rec.TakeProfit))
		sb.WriteString(fmt.Sprintf("📊 Confidence: %d%%\n", rec.Confidence))
	} else {
		emoji := "✅"
		if rec.Status == core.StatusClosedDanger {
			emoji = "⚠️"
		}
		sb.WriteString(fmt.Sprintf("%s *%s* %s %s %g @ $%.2f\n", emoji, rec.Symbol, rec.Status, rec.Side, rec.Quantity, rec.Price))
		if rec.PnL != nil {
			sb.WriteString(fmt.Sprintf("💰 PnL: $%.2f\n", *rec.PnL))
		}
	}

	sb.WriteString(fmt.Sprintf("⏰ Time: %s", rec.Time.UTC().Format("2006-01-02 15:04:05")))
	return sb.String()
}

func formatReport(r consensus.Report) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("📊 *%s* %s (%d%%)\n", r.Symbol, r.Direction, r.Confidence))
	sb.WriteString(fmt.Sprintf("💰 Price: $%.2f", r.Price))
	for _, d := range r.DangerSignals {
		sb.WriteString(fmt.Sprintf("\n⚠️ %s (%d)", d.Name, d.Importance))
	}
	return sb.String()
}

func formatStatus(s events.BotStatus) string {
	state := "stopped"
	if s.Running {
		state = "running"
	}
	msg := fmt.Sprintf("🤖 Bot %s: %d symbols, %d cycles", state, len(s.Symbols), s.Cycles)
	if s.LastError != "" {
		msg += "\n❗ " + s.LastError
	}
	return msg
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (t *Telegram) sendMessage(ctx context.Context, text string) error {
	var result apiResponse
	resp, err := t.client.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"chat_id":    t.chatID,
			"text":       text,
			"parse_mode": "Markdown",
		}).
		SetResult(&result).
		SetError(&result).
		Post("/bot" + t.botToken + "/sendMessage")
	if err != nil {
		return core.Wrapf(core.ErrNotifierFailed, "telegram: failed to send message: %w", err)
	}
	if resp.IsError() || !result.OK {
		return core.Wrapf(core.ErrNotifierFailed, "telegram: API error (status %d): %s", resp.StatusCode(), result.Description)
	}
	return nil
}
