// Package operator implements the Telegram command interface for reading and
// writing per-rarity alert thresholds. It runs independently of the poll
// loop and shares only the floor store with it.
package operator

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"floorwatch/internal/alerting"
	"floorwatch/internal/rarity"
	"floorwatch/internal/storage"
)

const pollTimeoutSec = 30

// Listener long-polls the bot API and services /set and /current commands,
// restricted to one designated channel.
type Listener struct {
	client *alerting.TelegramClient
	floors storage.FloorStore
	chatID string
	logger zerolog.Logger
}

// NewListener constructs the command listener. chatID is either a numeric
// chat id ("-100...") or an "@username" channel reference.
func NewListener(client *alerting.TelegramClient, floors storage.FloorStore, chatID string, logger zerolog.Logger) *Listener {
	return &Listener{
		client: client,
		floors: floors,
		chatID: chatID,
		logger: logger.With().Str("component", "operator").Logger(),
	}
}

// Run blocks servicing commands until ctx is cancelled. Transport errors are
// logged and retried; the listener itself only stops cooperatively.
func (l *Listener) Run(ctx context.Context) error {
	var offset int64
	for {
		updates, err := l.client.GetUpdates(ctx, offset, pollTimeoutSec)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			l.logger.Warn().Err(err).Msg("getUpdates failed")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(3 * time.Second):
			}
			continue
		}

		for _, update := range updates {
			if update.UpdateID >= offset {
				offset = update.UpdateID + 1
			}
			msg := update.Message
			if msg == nil {
				msg = update.ChannelPost
			}
			if msg == nil || msg.Text == "" {
				continue
			}
			l.dispatch(ctx, msg)
		}
	}
}

func (l *Listener) dispatch(ctx context.Context, msg *alerting.Message) {
	command, payload := splitCommand(msg.Text)
	switch {
	case command == "/set":
		l.handleSet(ctx, msg, payload)
	case command == "/current":
		l.handleCurrent(ctx, msg)
	}
}

func (l *Listener) handleSet(ctx context.Context, msg *alerting.Message, payload string) {
	if !l.allowed(msg.Chat) {
		l.reply(ctx, msg.Chat, "Command is only available in the specified channel")
		return
	}

	tier, percent, err := ParseSet(payload)
	if err != nil {
		l.reply(ctx, msg.Chat, err.Error())
		return
	}

	if err := l.floors.SetThreshold(ctx, tier.String(), percent); err != nil {
		l.logger.Error().Err(err).Str("rarity", tier.String()).Msg("failed to persist threshold")
		l.reply(ctx, msg.Chat, "Failed to update threshold")
		return
	}

	l.logger.Info().Str("rarity", tier.String()).Float64("percent", percent).Msg("threshold updated")
	l.reply(ctx, msg.Chat, fmt.Sprintf("Threshold updated for %s: %.2f%%", tier, percent))
}

func (l *Listener) handleCurrent(ctx context.Context, msg *alerting.Message) {
	if !l.allowed(msg.Chat) {
		l.reply(ctx, msg.Chat, "Command is only available in the specified channel")
		return
	}

	lines := make([]string, 0, len(rarity.All()))
	for _, tier := range rarity.All() {
		percent, err := l.floors.GetThreshold(ctx, tier.String())
		if err != nil {
			l.logger.Error().Err(err).Str("rarity", tier.String()).Msg("failed to fetch threshold")
			l.reply(ctx, msg.Chat, "Failed to fetch current thresholds")
			return
		}
		lines = append(lines, fmt.Sprintf("%s %s -> %.2f%%", tier.Glyph(), tier, percent))
	}

	l.reply(ctx, msg.Chat, strings.Join(lines, "\n"))
	l.logger.Info().Msg("current thresholds sent")
}

func (l *Listener) allowed(chat alerting.Chat) bool {
	if l.chatID == "" {
		return true
	}
	if strings.HasPrefix(l.chatID, "@") {
		return chat.Username != "" && "@"+chat.Username == l.chatID
	}
	if id, err := strconv.ParseInt(l.chatID, 10, 64); err == nil {
		return chat.ID == id
	}
	return false
}

func (l *Listener) reply(ctx context.Context, chat alerting.Chat, text string) {
	if err := l.client.SendMessage(ctx, strconv.FormatInt(chat.ID, 10), text); err != nil {
		l.logger.Warn().Err(err).Int64("chat", chat.ID).Msg("failed to send reply")
	}
}

// splitCommand separates the command token (with any @botname suffix removed)
// from the rest of the message.
func splitCommand(text string) (command, payload string) {
	text = strings.TrimSpace(text)
	command = text
	if idx := strings.IndexAny(text, " \t\n"); idx >= 0 {
		command = text[:idx]
		payload = strings.TrimSpace(text[idx+1:])
	}
	if at := strings.Index(command, "@"); at > 0 {
		command = command[:at]
	}
	return command, payload
}

