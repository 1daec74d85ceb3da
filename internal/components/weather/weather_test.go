package weather

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hmontero/librarian/internal/backend"
	"github.com/hmontero/librarian/internal/config"
	"github.com/hmontero/librarian/internal/dispatch"
)

const currentBody = `{
  "name": "Turin",
  "weather": [{"main": "Clouds", "description": "scattered clouds"}],
  "main": {"temp": 21.5, "feels_like": 22.1, "humidity": 60},
  "wind": {"speed": 3.4}
}`

const forecastBody = `{
  "city": {"name": "Turin"},
  "list": [
    {"dt_txt": "2026-08-30 12:00:00", "weather": [{"description": "light rain"}], "main": {"temp": 19.0}},
    {"dt_txt": "2026-08-30 15:00:00", "weather": [{"description": "clear sky"}], "main": {"temp": 23.0}}
  ]
}`

func withAPIServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("appid") == "" {
			http.Error(w, "no key", http.StatusUnauthorized)
			return
		}
		switch {
		case strings.HasSuffix(r.URL.Path, "/weather"):
			fmt.Fprint(w, currentBody)
		case strings.HasSuffix(r.URL.Path, "/forecast"):
			fmt.Fprint(w, forecastBody)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	old := baseURL
	baseURL = server.URL
	t.Cleanup(func() { baseURL = old })
	return server
}

func newComponent(t *testing.T, b backend.Backend, apiKey string) (dispatch.Handler, error) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Components.Weather.APIKey = apiKey
	cfg.Components.Weather.DefaultLocation = "Turin,IT"
	return New(&dispatch.Invocation{
		Backend:    b,
		Config:     cfg,
		OperatorID: backend.TestChatID,
		ChatID:     backend.TestChatID,
	})
}

func TestNewWithoutKeyReportsMissingDependency(t *testing.T) {
	_, err := newComponent(t, backend.NewTestBackend(""), "")
	if err == nil {
		t.Fatal("expected an error for the missing key")
	}
	var dep *dispatch.MissingDependencyError
	if !errors.As(err, &dep) {
		t.Fatalf("error is %T, want MissingDependencyError", err)
	}
	if !strings.Contains(dep.Reason, "API key") {
		t.Errorf("reason does not explain itself: %q", dep.Reason)
	}
}

func TestCurrent(t *testing.T) {
	withAPIServer(t)
	handler, err := newComponent(t, backend.NewTestBackend(""), "key")
	if err != nil {
		t.Fatal(err)
	}
	c := handler.(*Component)

	report, err := c.Current("Turin,IT")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Turin", "scattered clouds", "21.5", "60%"} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q: %q", want, report)
		}
	}
}

func TestForecast(t *testing.T) {
	withAPIServer(t)
	handler, _ := newComponent(t, backend.NewTestBackend(""), "key")
	c := handler.(*Component)

	report, err := c.Forecast("Turin,IT")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(report, "light rain") || !strings.Contains(report, "clear sky") {
		t.Errorf("forecast = %q", report)
	}
}

func TestTelegramMessageUsesDefaultLocation(t *testing.T) {
	withAPIServer(t)
	b := backend.NewTestBackend("")
	handler, _ := newComponent(t, b, "key")

	msg := &backend.Message{ChatID: backend.TestChatID, Command: "weather"}
	if err := handler.TelegramMessage(msg); err != nil {
		t.Fatal(err)
	}
	texts := b.TextsSent()
	if len(texts) != 1 || !strings.Contains(texts[0], "Turin") {
		t.Errorf("sent = %v", texts)
	}
}
