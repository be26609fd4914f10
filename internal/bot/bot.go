// Package bot implements the Telegram surface: subscription commands, the
// filter-editing menu and notification delivery.
package bot

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"autoads_bot/internal/fetcher"
	"autoads_bot/internal/model"
	"autoads_bot/internal/storage"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot is the Telegram bot that handles user commands and sends notifications.
type Bot struct {
	api     telegramAPI
	store   storage.Storage
	fetcher *fetcher.Fetcher
	log     *slog.Logger
}

// New creates a Bot with the given Telegram token, storage and fetcher.
// The fetcher is used to download ad photos for notifications.
func New(token string, store storage.Storage, f *fetcher.Fetcher, log *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	return &Bot{
		api:     api,
		store:   store,
		fetcher: f,
		log:     log,
	}, nil
}

// Run starts the bot's long-polling loop, blocking until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update := <-updates:
			if update.CallbackQuery != nil {
				b.handleCallback(ctx, update.CallbackQuery)
				continue
			}
			if update.Message == nil {
				continue
			}
			if update.Message.IsCommand() {
				b.handleCommand(ctx, update.Message)
				continue
			}
			if update.Message.Text != "" {
				b.handleText(ctx, update.Message.Chat.ID, update.Message.Text)
			}
		}
	}
}

// SendListing delivers one listing to one chat as a photo with an HTML
// caption. When the photo cannot be fetched the caption is sent as plain
// text. Delivery errors are logged and swallowed so a single failed send
// never stops the broadcast fan-out.
func (b *Bot) SendListing(ctx context.Context, chatID int64, l model.Listing) {
	caption := FormatCaption(l)

	img, err := b.fetcher.FetchImage(ctx, l.Image)
	if err != nil {
		b.log.Warn("fetch ad photo", "link", l.Link, "error", err)
		b.sendHTML(chatID, caption)
		return
	}

	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "ad.jpg", Bytes: img})
	photo.Caption = caption
	photo.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(photo); err != nil {
		b.log.Error("send photo", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) sendHTML(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send message", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send message", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := msg.Command()
	chatID := msg.Chat.ID

	b.log.Debug("command", "cmd", cmd, "chat_id", chatID)

	switch cmd {
	case "start":
		b.handleStart(ctx, chatID)
	case "stop":
		b.handleStop(ctx, chatID)
	case "pause":
		b.handlePause(ctx, chatID)
	case "resume":
		b.handleResume(ctx, chatID)
	case "filters":
		b.handleFilters(ctx, chatID)
	case "reset":
		b.handleReset(ctx, chatID)
	case "help":
		b.handleHelp(chatID)
	default:
		b.reply(chatID, "Sorry, I didn't understand that command. Use /help.")
	}
}
