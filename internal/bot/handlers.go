package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"autoads_bot/internal/filter"
	"autoads_bot/internal/model"
	"autoads_bot/internal/storage"
)

func (b *Bot) handleStart(ctx context.Context, chatID int64) {
	if err := b.store.CreateUser(ctx, chatID); err != nil {
		b.log.Error("create user", "chat_id", chatID, "error", err)
		b.reply(chatID, "Something went wrong, try again later.")
		return
	}
	if err := b.store.SetActive(ctx, chatID, true); err != nil {
		b.log.Error("activate user", "chat_id", chatID, "error", err)
	}

	msg := tgbotapi.NewMessage(chatID,
		"Hi! I will send you all new ads of the cars from the site.\n"+
			"Pick at least one filter below — without filters you will not receive anything.")
	msg.ReplyMarkup = mainKeyboard()
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send start message", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) handleStop(ctx context.Context, chatID int64) {
	if err := b.store.DeleteUser(ctx, chatID); err != nil {
		b.log.Error("delete user", "chat_id", chatID, "error", err)
		b.reply(chatID, "Something went wrong, try again later.")
		return
	}
	b.reply(chatID, "To start receiving new ads — write /start and choose filters.")
}

func (b *Bot) handlePause(ctx context.Context, chatID int64) {
	if _, ok := b.mustUser(ctx, chatID); !ok {
		return
	}
	if err := b.store.SetActive(ctx, chatID, false); err != nil {
		b.log.Error("pause user", "chat_id", chatID, "error", err)
		return
	}
	b.reply(chatID, "Notifications paused. Use /resume to continue.")
}

func (b *Bot) handleResume(ctx context.Context, chatID int64) {
	if _, ok := b.mustUser(ctx, chatID); !ok {
		return
	}
	if err := b.store.SetActive(ctx, chatID, true); err != nil {
		b.log.Error("resume user", "chat_id", chatID, "error", err)
		return
	}
	b.reply(chatID, "Notifications resumed.")
}

func (b *Bot) handleFilters(ctx context.Context, chatID int64) {
	user, ok := b.mustUser(ctx, chatID)
	if !ok {
		return
	}
	b.reply(chatID, FormatFilters(user.Filters))
}

func (b *Bot) handleReset(ctx context.Context, chatID int64) {
	if _, ok := b.mustUser(ctx, chatID); !ok {
		return
	}
	if err := b.store.ResetFilters(ctx, chatID); err != nil {
		b.log.Error("reset filters", "chat_id", chatID, "error", err)
		return
	}
	b.reply(chatID, "All filters cleared.")
}

func (b *Bot) handleHelp(chatID int64) {
	b.reply(chatID, `Commands:
/start — subscribe and show the filter menu
/stop — unsubscribe and forget your filters
/pause — keep filters but stop notifications
/resume — continue notifications
/filters — show your current filters
/reset — clear all filters

Filter buttons:
Марка, Год, Цена — free text; Год and Цена accept a single value,
a range "2015-2017" or an open range "2015-".
Регистрация, Топливо, КПП, Состояние, Автор, Руль — toggle values
on and off with the inline buttons.

You need at least one filter to receive notifications.`)
}

// handleText routes non-command text: a menu button label, or free-text
// filter input for the dimension the user is currently editing.
func (b *Bot) handleText(ctx context.Context, chatID int64, text string) {
	user, err := b.store.GetUser(ctx, chatID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			b.reply(chatID, "Write /start to subscribe first.")
			return
		}
		b.log.Error("get user", "chat_id", chatID, "error", err)
		return
	}

	switch text {
	case btnFilters:
		b.reply(chatID, FormatFilters(user.Filters))
		return
	case btnReset:
		b.handleReset(ctx, chatID)
		return
	}

	if dim, ok := buttonDimensions[text]; ok {
		b.openDimension(ctx, chatID, user, dim)
		return
	}

	if dim, ok := dimensionForStep[user.CurrentStep]; ok {
		b.applyTextFilter(ctx, chatID, dim, text)
		return
	}

	b.reply(chatID, "Sorry, I didn't understand that command. Use /help.")
}

// openDimension starts editing one dimension: free-text dimensions set the
// user's current step and prompt for input, button dimensions show an inline
// toggle keyboard.
func (b *Bot) openDimension(ctx context.Context, chatID int64, user *model.User, dim model.Dimension) {
	if step, ok := stepForDimension[dim]; ok {
		if err := b.store.SetStep(ctx, chatID, step); err != nil {
			b.log.Error("set step", "chat_id", chatID, "error", err)
			return
		}
		switch dim {
		case model.DimBrand:
			b.reply(chatID, "Enter a brand or model, e.g. BMW:")
		case model.DimYear:
			b.reply(chatID, "Enter a year or a range, e.g. 2015 or 2015-2017 or 2015-:")
		case model.DimPrice:
			b.reply(chatID, "Enter a price or a range in €, e.g. 12000 or 10000-15000 or 10000-:")
		}
		return
	}

	msg := tgbotapi.NewMessage(chatID, dimensionLabels[dim]+":")
	msg.ReplyMarkup = toggleKeyboard(dim, user.Filters[dim])
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send toggle keyboard", "chat_id", chatID, "error", err)
	}
}

// applyTextFilter stores free-text input for the brand, year or price
// dimension. Malformed year or price input is silently ignored: no mutation,
// no error message, the editing step stays open.
func (b *Bot) applyTextFilter(ctx context.Context, chatID int64, dim model.Dimension, text string) {
	var added []string

	switch dim {
	case model.DimBrand:
		added = []string{text}
	case model.DimYear:
		years, err := filter.ExpandYearRange(text, time.Now())
		if err != nil {
			return
		}
		added = years
	case model.DimPrice:
		r, err := filter.NormalizePriceRange(text)
		if err != nil {
			return
		}
		added = []string{r}
	}

	for _, v := range added {
		if err := b.store.AddFilterValue(ctx, chatID, dim, v); err != nil {
			b.log.Error("add filter value", "chat_id", chatID, "dimension", dim, "error", err)
			return
		}
	}
	if err := b.store.SetStep(ctx, chatID, model.StepNone); err != nil {
		b.log.Error("clear step", "chat_id", chatID, "error", err)
	}

	b.reply(chatID, fmt.Sprintf("%s: filter saved.", dimensionLabels[dim]))
}

// mustUser loads a user and prompts for /start when the chat is unknown.
func (b *Bot) mustUser(ctx context.Context, chatID int64) (*model.User, bool) {
	user, err := b.store.GetUser(ctx, chatID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			b.reply(chatID, "Write /start to subscribe first.")
		} else {
			b.log.Error("get user", "chat_id", chatID, "error", err)
		}
		return nil, false
	}
	return user, true
}
