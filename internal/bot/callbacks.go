package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"autoads_bot/internal/model"
)

const togglePrefix = "toggle"

// toggleCallbackData encodes a value toggle as "toggle:<dimension>:<index>".
// The option index keeps the payload inside Telegram's 64-byte limit.
func toggleCallbackData(dim model.Dimension, index int) string {
	return fmt.Sprintf("%s:%s:%d", togglePrefix, dim, index)
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil {
		return
	}
	chatID := cb.Message.Chat.ID

	parts := strings.Split(cb.Data, ":")
	if len(parts) != 3 || parts[0] != togglePrefix {
		b.ackCallback(cb.ID, "")
		return
	}

	dim := model.Dimension(parts[1])
	options, ok := dimensionOptions[dim]
	if !ok {
		b.ackCallback(cb.ID, "")
		return
	}
	index, err := strconv.Atoi(parts[2])
	if err != nil || index < 0 || index >= len(options) {
		b.ackCallback(cb.ID, "")
		return
	}
	value := options[index]

	b.log.Info("toggle filter",
		"dimension", dim,
		"value", value,
		"chat_id", chatID,
		"user_id", cb.From.ID,
	)

	has, err := b.store.HasFilterValue(ctx, chatID, dim, value)
	if err != nil {
		b.log.Error("check filter value", "chat_id", chatID, "error", err)
		b.ackCallback(cb.ID, "")
		return
	}

	if has {
		err = b.store.RemoveFilterValue(ctx, chatID, dim, value)
	} else {
		err = b.store.AddFilterValue(ctx, chatID, dim, value)
	}
	if err != nil {
		b.log.Error("toggle filter value", "chat_id", chatID, "error", err)
		b.ackCallback(cb.ID, "")
		return
	}

	if has {
		b.ackCallback(cb.ID, value+" removed")
	} else {
		b.ackCallback(cb.ID, value+" added")
	}

	// Redraw the keyboard so check marks reflect the new state.
	filters, err := b.store.GetFilters(ctx, chatID)
	if err != nil {
		b.log.Error("get filters", "chat_id", chatID, "error", err)
		return
	}
	markup := toggleKeyboard(dim, filters[dim])
	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, cb.Message.MessageID, markup)
	if _, err := b.api.Send(edit); err != nil {
		b.log.Error("edit toggle keyboard", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) ackCallback(id, text string) {
	callback := tgbotapi.NewCallback(id, text)
	if _, err := b.api.Send(callback); err != nil {
		b.log.Error("send callback ack", "error", err)
	}
}
