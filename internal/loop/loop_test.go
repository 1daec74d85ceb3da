package loop

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hmontero/librarian/internal/backend"
	"github.com/hmontero/librarian/internal/config"
	"github.com/hmontero/librarian/internal/dispatch"
)

// failingHandler fails or panics on demand.
type failingHandler struct {
	mode string // "ok", "error" or "panic"
	runs int
}

func (h *failingHandler) TelegramMessage(msg *backend.Message) error {
	h.runs++
	switch h.mode {
	case "error":
		return errors.New("handler broke")
	case "panic":
		panic("handler exploded")
	}
	return nil
}

func (h *failingHandler) CommandLine(args *dispatch.CmdArgs) error { return nil }

func testRegistry(handlers map[string]*failingHandler) *dispatch.Registry {
	var entries []dispatch.Entry
	for name, h := range handlers {
		handler := h
		entries = append(entries, dispatch.Entry{
			Names: []string{name},
			New: func(inv *dispatch.Invocation) (dispatch.Handler, error) {
				return handler, nil
			},
		})
	}
	return dispatch.NewRegistry(entries)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.MainFolder = t.TempDir()
	cfg.Telegram.ChatIDs = []int64{backend.TestChatID}
	return cfg
}

func TestRunProcessesWholeBatchAroundFailure(t *testing.T) {
	bad := &failingHandler{mode: "error"}
	good := &failingHandler{mode: "ok"}
	registry := testRegistry(map[string]*failingHandler{"bad": bad, "good": good})

	b := backend.NewTestBackend("", "/good", "/bad", "/good")
	d := New(b, registry, testConfig(t), Options{Clear: true, ExitOnMsg: true})

	if err := d.Run(context.Background()); err != nil {
		t.Fatalf("resilient mode must contain the failure: %v", err)
	}
	if good.runs != 2 {
		t.Errorf("messages after the failure were not processed: %d runs", good.runs)
	}
	if bad.runs != 1 {
		t.Errorf("bad handler ran %d times", bad.runs)
	}
}

func TestRunWithoutClearPropagates(t *testing.T) {
	bad := &failingHandler{mode: "error"}
	good := &failingHandler{mode: "ok"}
	registry := testRegistry(map[string]*failingHandler{"bad": bad, "good": good})

	b := backend.NewTestBackend("", "/bad", "/good")
	d := New(b, registry, testConfig(t), Options{ExitOnMsg: true})

	if err := d.Run(context.Background()); err == nil {
		t.Fatal("without resilient mode the failure must propagate")
	}
	if good.runs != 0 {
		t.Error("processing must stop at the first failure")
	}
}

func TestPanicIsContained(t *testing.T) {
	boom := &failingHandler{mode: "panic"}
	registry := testRegistry(map[string]*failingHandler{"boom": boom})

	b := backend.NewTestBackend("", "/boom")
	d := New(b, registry, testConfig(t), Options{Clear: true, ExitOnMsg: true})

	if err := d.Run(context.Background()); err != nil {
		t.Fatalf("panic must be contained in resilient mode: %v", err)
	}
}

func TestFailureThreshold(t *testing.T) {
	bad := &failingHandler{mode: "error"}
	registry := testRegistry(map[string]*failingHandler{"bad": bad})
	d := New(backend.NewTestBackend(""), registry, testConfig(t), Options{Clear: true})

	msg := &backend.Message{ChatID: backend.TestChatID, Command: "bad"}
	for i := 0; i < failThreshold; i++ {
		if err := d.actOnMessage(msg); err != nil {
			t.Fatalf("failure %d should be contained: %v", i+1, err)
		}
	}
	if err := d.actOnMessage(msg); err == nil {
		t.Error("failures past the threshold must propagate")
	}
}

func TestIgnoreResetsFailureCount(t *testing.T) {
	d := New(backend.NewTestBackend(""), testRegistry(nil), testConfig(t), Options{Clear: true})
	d.failCount = failThreshold - 1

	if err := d.actOnMessage(&backend.Message{Ignore: true}); err != nil {
		t.Fatal(err)
	}
	if d.failCount != 0 {
		t.Errorf("failCount = %d after an ignorable message", d.failCount)
	}
}

func TestSuccessResetsFailureCount(t *testing.T) {
	ok := &failingHandler{mode: "ok"}
	registry := testRegistry(map[string]*failingHandler{"ok": ok})
	d := New(backend.NewTestBackend(""), registry, testConfig(t), Options{Clear: true})
	d.failCount = 7

	if err := d.actOnMessage(&backend.Message{ChatID: backend.TestChatID, Command: "ok"}); err != nil {
		t.Fatal(err)
	}
	if d.failCount != 0 {
		t.Errorf("failCount = %d after a success", d.failCount)
	}
}

func TestPlainTextLogsAndAcknowledges(t *testing.T) {
	cfg := testConfig(t)
	b := backend.NewTestBackend("", "a note to self")
	d := New(b, testRegistry(nil), cfg, Options{ExitOnMsg: true})

	if err := d.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	now := time.Now()
	logPath := filepath.Join(cfg.MainFolderPath(), "data",
		fmt.Sprintf("%d", now.Year()), now.Month().String(),
		fmt.Sprintf("%d.log", now.Day()))
	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("daily log missing: %v", err)
	}
	if !strings.Contains(string(data), "a note to self") {
		t.Errorf("daily log content = %q", data)
	}

	texts := b.TextsSent()
	if len(texts) != 1 {
		t.Fatalf("want one acknowledgement, got %v", texts)
	}
	if !isStillAliveReply(texts[0]) {
		t.Errorf("acknowledgement %q is not a known reply", texts[0])
	}
}

func TestFileIsSavedToMonthlyFolder(t *testing.T) {
	cfg := testConfig(t)
	b := backend.NewTestBackend("")
	d := New(b, testRegistry(nil), cfg, Options{})

	msg := &backend.Message{
		ChatID:   backend.TestChatID,
		Username: backend.TestUser,
		Text:     "my holiday photo",
		FileID:   "photo-file-id",
	}
	if err := d.actOnMessage(msg); err != nil {
		t.Fatal(err)
	}

	now := time.Now()
	saved := filepath.Join(cfg.MainFolderPath(), "data",
		fmt.Sprintf("%d", now.Year()), now.Month().String(), "myholidayphoto")
	if _, err := os.Stat(saved); err != nil {
		t.Errorf("file not saved at %s: %v", saved, err)
	}

	texts := b.TextsSent()
	if len(texts) != 1 || texts[0] != "File received and saved!" {
		t.Errorf("confirmation = %v", texts)
	}
}

func TestChivatoForwardsStrangers(t *testing.T) {
	cfg := testConfig(t)
	cfg.Telegram.Chivato = true
	b := backend.NewTestBackend("")
	d := New(b, testRegistry(nil), cfg, Options{})

	msg := &backend.Message{ChatID: 999, Username: "stranger", Text: "who are you?"}
	if err := d.actOnMessage(msg); err != nil {
		t.Fatal(err)
	}

	var audit *backend.SentMessage
	for i := range b.Sent {
		if b.Sent[i].ChatID == backend.TestChatID {
			audit = &b.Sent[i]
		}
	}
	if audit == nil {
		t.Fatal("no audit message forwarded to the operator")
	}
	if !strings.Contains(audit.Text, "stranger") || !strings.Contains(audit.Text, "999") {
		t.Errorf("audit message = %q", audit.Text)
	}
}

func TestChivatoSkipsOperator(t *testing.T) {
	cfg := testConfig(t)
	cfg.Telegram.Chivato = true
	b := backend.NewTestBackend("")
	d := New(b, testRegistry(nil), cfg, Options{})

	msg := &backend.Message{ChatID: backend.TestChatID, Username: backend.TestUser, Text: "note"}
	if err := d.actOnMessage(msg); err != nil {
		t.Fatal(err)
	}
	for _, sent := range b.Sent {
		if strings.Contains(sent.Text, "sent the following message") {
			t.Errorf("operator messages must not be forwarded: %q", sent.Text)
		}
	}
}
