package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/hmontero/librarian/internal/config"
)

// facebookAPI is the Graph API endpoint used to deliver replies.
const facebookAPI = "https://graph.facebook.com/v2.12/me/messages"

// facebookMaxMessageLength is the maximum text payload Messenger accepts.
const facebookMaxMessageLength = 2000

// FacebookBackend is the webhook-style counterpart of the Telegram
// backend: instead of long-polling, it runs an HTTP endpoint that receives
// push deliveries from Messenger. The normalizer and the dispatch pipeline
// are reused unchanged; only the delivery mechanism differs.
type FacebookBackend struct {
	cfg    config.FacebookConfig
	client *http.Client
	action func(*Message) error
	log    *slog.Logger
}

// facebookUpdate is the shape of one webhook delivery.
type facebookUpdate struct {
	Object string `json:"object"`
	Entry  []struct {
		Messaging []struct {
			Sender struct {
				ID string `json:"id"`
			} `json:"sender"`
			Message struct {
				Text string `json:"text"`
			} `json:"message"`
		} `json:"messaging"`
	} `json:"entry"`
}

// NewFacebookBackend creates a Messenger webhook backend.
func NewFacebookBackend(cfg config.FacebookConfig) *FacebookBackend {
	return &FacebookBackend{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
		log:    slog.Default().With("backend", "facebook"),
	}
}

// Name returns the backend's unique identifier.
func (f *FacebookBackend) Name() string {
	return "facebook"
}

// ActOnUpdates registers action as the webhook consumer and serves the
// webhook endpoint until the context is cancelled. blockUntilNonEmpty is
// meaningless for a push backend and is ignored.
func (f *FacebookBackend) ActOnUpdates(ctx context.Context, action func(*Message) error, _ bool) error {
	f.action = action

	mux := http.NewServeMux()
	mux.HandleFunc("/webhook", f.handleWebhook)

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", f.cfg.Host, f.cfg.Port),
		Handler: mux,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("webhook server failed: %w", err)
	}
	return ctx.Err()
}

// handleWebhook answers Messenger's GET verification handshake and
// consumes POST deliveries.
func (f *FacebookBackend) handleWebhook(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if r.URL.Query().Get("hub.verify_token") == f.cfg.VerifyToken {
			fmt.Fprint(w, r.URL.Query().Get("hub.challenge"))
			return
		}
		http.Error(w, "incorrect verify token", http.StatusForbidden)
	case http.MethodPost:
		var update facebookUpdate
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			f.log.Warn("undecodable webhook delivery", "error", err)
			http.Error(w, "bad payload", http.StatusBadRequest)
			return
		}
		msg := parseFacebookUpdate(update)
		if !msg.Ignore && f.action != nil {
			if err := f.action(msg); err != nil {
				f.log.Error("action failed on webhook message", "error", err)
			}
		}
		w.WriteHeader(http.StatusOK)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// parseFacebookUpdate converts a webhook delivery into the canonical
// Message. Any shape other than a page messaging event with a sender comes
// back with Ignore set.
func parseFacebookUpdate(update facebookUpdate) *Message {
	if update.Object != "page" || len(update.Entry) == 0 || len(update.Entry[0].Messaging) == 0 {
		return &Message{Ignore: true}
	}
	event := update.Entry[0].Messaging[0]
	senderID, err := strconv.ParseInt(event.Sender.ID, 10, 64)
	if err != nil {
		return &Message{Ignore: true}
	}

	out := &Message{
		ChatID:   senderID,
		Username: UnknownUser,
	}
	out.applyCommand(event.Message.Text)
	return out
}

// SendText delivers a text reply through the Graph API, splitting payloads
// above the Messenger maximum. Messenger has no markdown mode, so the flag
// is ignored.
func (f *FacebookBackend) SendText(text string, chatID int64, _ bool) error {
	for _, chunk := range splitMessage(text, facebookMaxMessageLength) {
		payload := map[string]any{
			"recipient":         map[string]string{"id": strconv.FormatInt(chatID, 10)},
			"message":           map[string]string{"text": chunk},
			"notification_type": "regular",
		}
		body, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal message: %w", err)
		}

		url := fmt.Sprintf("%s?access_token=%s", facebookAPI, f.cfg.PageToken)
		resp, err := f.client.Post(url, "application/json", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("failed to send message: %w", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("failed to send message: status %s", resp.Status)
		}
	}
	return nil
}

// SendImage is not supported by this backend.
func (f *FacebookBackend) SendImage(path string, chatID int64) error {
	f.log.Error("this backend does not implement sending images")
	return fmt.Errorf("facebook backend does not implement sending images")
}

// SendFile is not supported by this backend.
func (f *FacebookBackend) SendFile(path string, chatID int64) error {
	f.log.Error("this backend does not implement sending files")
	return fmt.Errorf("facebook backend does not implement sending files")
}

// DownloadFile understands fileID as a plain URL and retrieves it.
func (f *FacebookBackend) DownloadFile(fileID, destPath string) (string, error) {
	return downloadURL(f.client, fileID, destPath)
}
