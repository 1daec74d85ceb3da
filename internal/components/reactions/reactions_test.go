package reactions

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hmontero/librarian/internal/backend"
	"github.com/hmontero/librarian/internal/config"
	"github.com/hmontero/librarian/internal/dispatch"
)

func newHandler(t *testing.T, b backend.Backend, mainFolder string) dispatch.Handler {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.MainFolder = mainFolder
	cfg.Telegram.ChatIDs = []int64{backend.TestChatID}
	handler, err := New(&dispatch.Invocation{
		Backend:    b,
		Config:     cfg,
		OperatorID: backend.TestChatID,
		ChatID:     backend.TestChatID,
	})
	if err != nil {
		t.Fatal(err)
	}
	return handler
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestSendReaction(t *testing.T) {
	folder := t.TempDir()
	writeFile(t, filepath.Join(folder, "reactions", "happy.png"), "png")
	b := backend.NewTestBackend("")
	handler := newHandler(t, b, folder)

	t.Run("stored reaction is sent as an image", func(t *testing.T) {
		msg := &backend.Message{ChatID: backend.TestChatID, Command: "reaction", Text: "happy"}
		if err := handler.TelegramMessage(msg); err != nil {
			t.Fatal(err)
		}
		if len(b.Sent) != 1 || b.Sent[0].Kind != "image" {
			t.Fatalf("sent = %v", b.Sent)
		}
		if !strings.HasSuffix(b.Sent[0].Text, "happy.png") {
			t.Errorf("sent path = %q", b.Sent[0].Text)
		}
	})

	t.Run("unknown reaction reports an error", func(t *testing.T) {
		before := len(b.Sent)
		msg := &backend.Message{ChatID: backend.TestChatID, Command: "reaction", Text: "grumpy"}
		if err := handler.TelegramMessage(msg); err != nil {
			t.Fatal(err)
		}
		sent := b.Sent[before:]
		if len(sent) != 1 || sent[0].Text != "Error: reaction 'grumpy' not found" {
			t.Errorf("sent = %v", sent)
		}
	})
}

func TestReactionList(t *testing.T) {
	folder := t.TempDir()
	b := backend.NewTestBackend("")
	handler := newHandler(t, b, folder)

	msg := &backend.Message{ChatID: backend.TestChatID, Command: "reaction_list"}
	if err := handler.TelegramMessage(msg); err != nil {
		t.Fatal(err)
	}
	if texts := b.TextsSent(); len(texts) != 1 || texts[0] != "No reaction pics saved yet" {
		t.Fatalf("empty folder reply = %v", texts)
	}

	writeFile(t, filepath.Join(folder, "reactions", "happy.png"), "png")
	writeFile(t, filepath.Join(folder, "reactions", "grumpy.jpg"), "jpg")
	if err := handler.TelegramMessage(msg); err != nil {
		t.Fatal(err)
	}
	texts := b.TextsSent()
	if got := texts[len(texts)-1]; got != "Reaction pics: grumpy, happy" {
		t.Errorf("list reply = %q", got)
	}
}

func TestReactionSave(t *testing.T) {
	folder := t.TempDir()
	old := filepath.Join(folder, "data", "2026", "July", "sunset.jpg")
	newest := filepath.Join(folder, "data", "2026", "August", "cat.png")
	writeFile(t, old, "old picture")
	writeFile(t, newest, "cat picture")
	if err := os.Chtimes(old, time.Now().Add(-time.Hour), time.Now().Add(-time.Hour)); err != nil {
		t.Fatal(err)
	}

	b := backend.NewTestBackend("")
	handler := newHandler(t, b, folder)

	msg := &backend.Message{ChatID: backend.TestChatID, Command: "reaction_save", Text: "my cat"}
	if err := handler.TelegramMessage(msg); err != nil {
		t.Fatal(err)
	}
	if texts := b.TextsSent(); len(texts) != 1 || texts[0] != "Reaction image mycat correctly saved" {
		t.Fatalf("save reply = %v", texts)
	}

	saved, err := os.ReadFile(filepath.Join(folder, "reactions", "mycat.png"))
	if err != nil {
		t.Fatal(err)
	}
	if string(saved) != "cat picture" {
		t.Errorf("saved content = %q, want the most recent picture", saved)
	}
}

func TestReactionSaveWithoutPicture(t *testing.T) {
	b := backend.NewTestBackend("")
	handler := newHandler(t, b, t.TempDir())

	msg := &backend.Message{ChatID: backend.TestChatID, Command: "reaction_save", Text: "cat"}
	if err := handler.TelegramMessage(msg); err != nil {
		t.Fatal(err)
	}
	texts := b.TextsSent()
	if len(texts) != 1 || !strings.Contains(texts[0], "Send me the picture first") {
		t.Errorf("reply = %v", texts)
	}
}

func TestReactionSaveIdentityGated(t *testing.T) {
	b := backend.NewTestBackend("")
	handler := newHandler(t, b, t.TempDir())

	msg := &backend.Message{ChatID: 999, Command: "reaction_save", Text: "cat"}
	if err := handler.TelegramMessage(msg); err != nil {
		t.Fatal(err)
	}
	if len(b.Sent) != 1 || b.Sent[0].Text != "You are not allowed to use this" {
		t.Errorf("sent = %v", b.Sent)
	}
}
