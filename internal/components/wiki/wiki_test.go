package wiki

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hmontero/librarian/internal/backend"
	"github.com/hmontero/librarian/internal/config"
	"github.com/hmontero/librarian/internal/dispatch"
)

const articleHTML = `<html><body><div id="mw-content-text">
<p></p>
<p>First paragraph of the article.</p>
<p>Second paragraph with more detail.</p>
<p>Third paragraph nobody reads.</p>
</div></body></html>`

func withWikiServer(t *testing.T) *[]string {
	t.Helper()
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		switch {
		case strings.Contains(r.URL.Path, "/api/rest_v1/page/summary/"):
			term := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
			if term == "Nothing" {
				http.NotFound(w, r)
				return
			}
			fmt.Fprintf(w, `{"title": %q, "extract": "A short summary.", "content_urls": {"desktop": {"page": "https://example.org/wiki/%s"}}}`,
				term, term)
		case strings.Contains(r.URL.Path, "/wiki/"):
			fmt.Fprint(w, articleHTML)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	old := hostFormat
	// The language slot is kept so language overrides stay visible in the
	// request path.
	hostFormat = server.URL + "/%s"
	t.Cleanup(func() { hostFormat = old })
	return &paths
}

func newComponent(t *testing.T, b backend.Backend) *Component {
	t.Helper()
	handler, err := New(&dispatch.Invocation{
		Backend:    b,
		Config:     config.DefaultConfig(),
		OperatorID: backend.TestChatID,
		ChatID:     backend.TestChatID,
	})
	if err != nil {
		t.Fatal(err)
	}
	return handler.(*Component)
}

func TestSummary(t *testing.T) {
	withWikiServer(t)
	c := newComponent(t, backend.NewTestBackend(""))

	text, err := c.Summary("en", "Golang")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text, "Golang") || !strings.Contains(text, "A short summary.") {
		t.Errorf("summary = %q", text)
	}
	if !strings.Contains(text, "https://example.org/wiki/Golang") {
		t.Errorf("summary misses the article link: %q", text)
	}
}

func TestSummaryNotFound(t *testing.T) {
	withWikiServer(t)
	c := newComponent(t, backend.NewTestBackend(""))

	text, err := c.Summary("en", "Nothing")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text, "could not find") {
		t.Errorf("missing-article reply = %q", text)
	}
}

func TestSummaryTruncated(t *testing.T) {
	withWikiServer(t)
	c := newComponent(t, backend.NewTestBackend(""))
	c.summarySize = 7

	text, err := c.Summary("en", "Golang")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text, "A short...") {
		t.Errorf("extract not truncated: %q", text)
	}
}

func TestFull(t *testing.T) {
	withWikiServer(t)
	c := newComponent(t, backend.NewTestBackend(""))

	text, err := c.Full("en", "Some Article", 2)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text, "First paragraph") || !strings.Contains(text, "Second paragraph") {
		t.Errorf("full text = %q", text)
	}
	if strings.Contains(text, "Third paragraph") {
		t.Errorf("paragraph limit ignored: %q", text)
	}
}

func TestTelegramMessageLanguageOverride(t *testing.T) {
	paths := withWikiServer(t)
	b := backend.NewTestBackend("")
	c := newComponent(t, b)

	msg := &backend.Message{
		ChatID:       backend.TestChatID,
		Command:      "wiki_es",
		Text:         "Golang",
		HasArguments: true,
	}
	if err := c.TelegramMessage(msg); err != nil {
		t.Fatal(err)
	}
	if len(*paths) != 1 || !strings.HasPrefix((*paths)[0], "/es/") {
		t.Errorf("requested paths = %v, want the es host slot", *paths)
	}
	if texts := b.TextsSent(); len(texts) != 1 {
		t.Fatalf("sent = %v", texts)
	}
}

func TestTelegramMessageFullParsesCount(t *testing.T) {
	withWikiServer(t)
	b := backend.NewTestBackend("")
	c := newComponent(t, b)

	msg := &backend.Message{
		ChatID:       backend.TestChatID,
		Command:      "wiki_full",
		Text:         "2 Some Article",
		HasArguments: true,
	}
	if err := c.TelegramMessage(msg); err != nil {
		t.Fatal(err)
	}
	texts := b.TextsSent()
	if len(texts) != 1 {
		t.Fatalf("sent = %v", texts)
	}
	if !strings.Contains(texts[0], "Second paragraph") || strings.Contains(texts[0], "Third paragraph") {
		t.Errorf("reply = %q", texts[0])
	}
}

func TestTelegramMessageEmptyTerm(t *testing.T) {
	withWikiServer(t)
	b := backend.NewTestBackend("")
	c := newComponent(t, b)

	msg := &backend.Message{ChatID: backend.TestChatID, Command: "wiki"}
	if err := c.TelegramMessage(msg); err != nil {
		t.Fatal(err)
	}
	texts := b.TextsSent()
	if len(texts) != 1 || !strings.Contains(texts[0], "What do you want to know about?") {
		t.Errorf("sent = %v", texts)
	}
}
