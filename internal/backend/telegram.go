package backend

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// telegramMaxMessageLength is the maximum text payload Telegram accepts in
// one sendMessage call.
const telegramMaxMessageLength = 4096

// reconnectBackoff is how long to wait after a failed getUpdates request
// before polling again.
const reconnectBackoff = 5 * time.Second

// TelegramBackend talks to the Telegram Bot API with explicit long-poll
// requests. It owns the update offset: after every successful batch the
// offset advances to the maximum seen update id plus one, so acknowledged
// updates are not redelivered. The offset lives in memory only; a restart
// re-polls from the backend's notion of "now".
type TelegramBackend struct {
	bot     *tgbotapi.BotAPI
	token   string
	timeout int // long-poll timeout, seconds
	offset  int
	log     *slog.Logger
}

// NewTelegramBackend authenticates against the Bot API and returns a ready
// backend. timeout is the long-poll window in seconds; values below one
// second fall back to the default of five minutes.
func NewTelegramBackend(token string, timeout int) (*TelegramBackend, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	if timeout < 1 {
		timeout = 300
	}
	return &TelegramBackend{
		bot:     bot,
		token:   token,
		timeout: timeout,
		log:     slog.Default().With("backend", "telegram"),
	}, nil
}

// Name returns the backend's unique identifier.
func (t *TelegramBackend) Name() string {
	return "telegram"
}

// Username returns the handle the bot authenticated as.
func (t *TelegramBackend) Username() string {
	return t.bot.Self.UserName
}

// FetchUpdates issues one long-poll getUpdates request and returns the raw
// batch. A network timeout is a normal "no updates yet" outcome and yields
// an empty batch; a transient connection error is logged, waits out a short
// backoff and also yields an empty batch. When blockUntilNonEmpty is set
// the call keeps re-polling (each round blocking on a real long-poll
// window, never spinning) until at least one update arrives or the context
// is cancelled.
func (t *TelegramBackend) FetchUpdates(ctx context.Context, blockUntilNonEmpty bool) ([]tgbotapi.Update, error) {
	for {
		cfg := tgbotapi.NewUpdate(t.offset)
		cfg.Timeout = t.timeout

		updates, err := t.bot.GetUpdates(cfg)
		if err != nil {
			t.log.Warn("getUpdates failed, treating as empty batch", "error", err)
			updates = nil
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(reconnectBackoff):
			}
		}

		t.advanceOffset(updates)

		if len(updates) > 0 || !blockUntilNonEmpty {
			return updates, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
	}
}

// advanceOffset moves the poll watermark past the highest update id in the
// batch. An empty batch leaves the offset untouched, so repeated polls with
// no traffic never move it backwards.
func (t *TelegramBackend) advanceOffset(updates []tgbotapi.Update) {
	maxID := -1
	for _, u := range updates {
		if u.UpdateID > maxID {
			maxID = u.UpdateID
		}
	}
	if maxID >= 0 {
		t.offset = maxID + 1
	}
}

// ActOnUpdates fetches one batch of updates and runs action on the
// normalized form of each, in delivery order.
func (t *TelegramBackend) ActOnUpdates(ctx context.Context, action func(*Message) error, blockUntilNonEmpty bool) error {
	updates, err := t.FetchUpdates(ctx, blockUntilNonEmpty)
	if err != nil {
		return err
	}
	for _, update := range updates {
		if err := action(ParseTelegramUpdate(update)); err != nil {
			return err
		}
	}
	return nil
}

// SendText sends text to a chat, splitting payloads above the Telegram
// maximum. When markdown is set and Telegram rejects the markup, the chunk
// is retried once as plain text.
func (t *TelegramBackend) SendText(text string, chatID int64, markdown bool) error {
	for _, chunk := range splitMessage(text, telegramMaxMessageLength) {
		msg := tgbotapi.NewMessage(chatID, chunk)
		if markdown {
			msg.ParseMode = tgbotapi.ModeMarkdown
		}
		if _, err := t.bot.Send(msg); err != nil {
			if !markdown {
				return fmt.Errorf("failed to send message: %w", err)
			}
			t.log.Warn("markdown message rejected, retrying as plain text", "error", err)
			msg.ParseMode = ""
			if _, err := t.bot.Send(msg); err != nil {
				return fmt.Errorf("failed to send message: %w", err)
			}
		}
	}
	return nil
}

// SendImage uploads an image from a local path to a chat.
func (t *TelegramBackend) SendImage(path string, chatID int64) error {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FilePath(path))
	if _, err := t.bot.Send(photo); err != nil {
		t.log.Error("failed to send image", "path", path, "error", err)
		return fmt.Errorf("failed to send image %s: %w", path, err)
	}
	return nil
}

// SendFile uploads a document from a local path to a chat.
func (t *TelegramBackend) SendFile(path string, chatID int64) error {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FilePath(path))
	if _, err := t.bot.Send(doc); err != nil {
		t.log.Error("failed to send file", "path", path, "error", err)
		return fmt.Errorf("failed to send file %s: %w", path, err)
	}
	return nil
}

// DownloadFile resolves a Telegram file id to its download URL and
// retrieves it to destPath, generating a numbered alternate name rather
// than overwriting anything already there. The path actually written is
// returned.
func (t *TelegramBackend) DownloadFile(fileID, destPath string) (string, error) {
	file, err := t.bot.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return "", fmt.Errorf("invalid file reference %s: %w", fileID, err)
	}
	return downloadURL(http.DefaultClient, file.Link(t.token), destPath)
}

// ParseTelegramUpdate converts a raw Telegram update into the canonical
// Message. Updates that are not a message, an edited message or an edited
// channel post, and messages that only carry chat housekeeping (member
// join/leave, stickers, games, contact shares), come back with Ignore set.
func ParseTelegramUpdate(update tgbotapi.Update) *Message {
	msg := update.Message
	if msg == nil {
		msg = update.EditedMessage
	}
	if msg == nil {
		msg = update.EditedChannelPost
	}
	if msg == nil || msg.Chat == nil {
		return &Message{Ignore: true}
	}

	if len(msg.NewChatMembers) > 0 || msg.LeftChatMember != nil ||
		msg.Sticker != nil || msg.Game != nil || msg.Contact != nil {
		return &Message{Ignore: true}
	}

	out := &Message{
		ChatID:   msg.Chat.ID,
		Username: senderName(msg),
		IsGroup:  msg.Chat.IsGroup() || msg.Chat.IsSuperGroup(),
	}

	switch {
	case len(msg.Photo) > 0:
		// Highest-resolution variant comes last.
		out.FileID = msg.Photo[len(msg.Photo)-1].FileID
		out.Text = msg.Caption
		if out.Text == "" {
			out.Text = "untitled"
		}
	case msg.Document != nil:
		out.FileID = msg.Document.FileID
		out.Text = msg.Document.FileName
		if msg.Caption != "" {
			out.Text = msg.Caption
		}
	default:
		out.applyCommand(msg.Text)
	}

	return out
}

// senderName picks the best available display name for the sender.
// Backends are inconsistent about which naming fields are populated, so it
// walks a priority chain: handle, then first name, then last name, falling
// through to UnknownUser. Messages without sender data fall back to the
// chat's own naming fields.
func senderName(msg *tgbotapi.Message) string {
	var first, last, handle string
	if msg.From != nil {
		first, last, handle = msg.From.FirstName, msg.From.LastName, msg.From.UserName
	} else {
		first, last, handle = msg.Chat.FirstName, msg.Chat.LastName, msg.Chat.UserName
	}

	name := UnknownUser
	if last != "" {
		name = last
	}
	if first != "" {
		name = first
	}
	if handle != "" {
		name = handle
	}
	return name
}
