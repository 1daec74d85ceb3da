package backend

import (
	"context"
	"os"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Well-known identity used by the test backend.
const (
	TestChatID int64 = 1234
	TestUser         = "hiro"
)

// SentMessage records one delivery made through the test backend.
type SentMessage struct {
	ChatID int64
	Text   string
	Kind   string // "text", "image" or "file"
}

// TestBackend is an in-process backend for exercising the update loop and
// the command registry without talking to any service. It fabricates
// Telegram-shaped updates from a list of texts (so the real normalizer is
// exercised) and records everything sent through it. When a communication
// file is configured, the last text sent is also written there.
type TestBackend struct {
	commFile string
	fakeMsgs []string
	consumed bool

	// Sent holds every message delivered through the backend, in order.
	Sent []SentMessage
}

// NewTestBackend creates a test backend. commFile may be empty.
func NewTestBackend(commFile string, fakeMsgs ...string) *TestBackend {
	if len(fakeMsgs) == 0 {
		fakeMsgs = []string{"This is only a test", "Another one"}
	}
	return &TestBackend{commFile: commFile, fakeMsgs: fakeMsgs}
}

// Name returns the backend's unique identifier.
func (b *TestBackend) Name() string {
	return "test"
}

// fakeUpdate builds a plausible Telegram private-chat update carrying text.
func fakeUpdate(id int, text string) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: id,
		Message: &tgbotapi.Message{
			MessageID: id,
			From: &tgbotapi.User{
				ID:        TestChatID,
				FirstName: TestUser,
				LastName:  TestUser,
				UserName:  TestUser,
			},
			Chat: &tgbotapi.Chat{
				ID:        TestChatID,
				FirstName: TestUser,
				LastName:  TestUser,
				UserName:  TestUser,
				Type:      "private",
			},
			Text: text,
		},
	}
}

// FetchUpdates returns the configured fake messages as raw updates. The
// batch is delivered once; subsequent calls return an empty batch.
func (b *TestBackend) FetchUpdates(ctx context.Context, blockUntilNonEmpty bool) ([]tgbotapi.Update, error) {
	if b.consumed {
		return nil, nil
	}
	b.consumed = true
	updates := make([]tgbotapi.Update, 0, len(b.fakeMsgs))
	for i, text := range b.fakeMsgs {
		updates = append(updates, fakeUpdate(i+1, text))
	}
	return updates, nil
}

// ActOnUpdates normalizes the fake batch with the Telegram parser and runs
// action on each message.
func (b *TestBackend) ActOnUpdates(ctx context.Context, action func(*Message) error, blockUntilNonEmpty bool) error {
	updates, err := b.FetchUpdates(ctx, blockUntilNonEmpty)
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

// SendText records the delivery and mirrors it to the communication file.
func (b *TestBackend) SendText(text string, chatID int64, markdown bool) error {
	b.Sent = append(b.Sent, SentMessage{ChatID: chatID, Text: text, Kind: "text"})
	if b.commFile != "" {
		return os.WriteFile(b.commFile, []byte(text), 0644)
	}
	return nil
}

// SendImage records the image path as a delivery.
func (b *TestBackend) SendImage(path string, chatID int64) error {
	b.Sent = append(b.Sent, SentMessage{ChatID: chatID, Text: path, Kind: "image"})
	return nil
}

// SendFile records the file path as a delivery.
func (b *TestBackend) SendFile(path string, chatID int64) error {
	b.Sent = append(b.Sent, SentMessage{ChatID: chatID, Text: path, Kind: "file"})
	return nil
}

// DownloadFile writes a placeholder to the destination so file-saving
// flows can be exercised end to end.
func (b *TestBackend) DownloadFile(fileID, destPath string) (string, error) {
	destPath = uniquePath(destPath)
	if err := os.WriteFile(destPath, []byte(fileID), 0644); err != nil {
		return "", err
	}
	return destPath, nil
}

// TextsSent returns only the text deliveries, for assertions.
func (b *TestBackend) TextsSent() []string {
	var texts []string
	for _, s := range b.Sent {
		if s.Kind == "text" {
			texts = append(texts, s.Text)
		}
	}
	return texts
}

// IsMsgInFile reports whether the communication file contains msg.
func (b *TestBackend) IsMsgInFile(msg string) bool {
	data, err := os.ReadFile(b.commFile)
	if err != nil {
		return false
	}
	return strings.Contains(string(data), msg)
}
