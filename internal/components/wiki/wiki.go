// Package wiki answers with Wikipedia article summaries. The plain /wiki
// command uses the REST summary endpoint, /wiki_full scrapes a number of
// paragraphs from the article itself, and /wiki_<lang> overrides the
// configured language for one query.
package wiki

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/hmontero/librarian/internal/backend"
	"github.com/hmontero/librarian/internal/dispatch"
)

// Help is the usage text aggregated by /help.
const Help = ` > Wiki module
   /wiki term: Wikipedia summary for the term
   /wiki_full N term: first N paragraphs of the article
   /wiki_<lang> term: summary from the <lang> Wikipedia`

// hostFormat is swapped out by the tests.
var hostFormat = "https://%s.wikipedia.org"

type summaryResponse struct {
	Title   string `json:"title"`
	Extract string `json:"extract"`
	Content struct {
		Desktop struct {
			Page string `json:"page"`
		} `json:"desktop"`
	} `json:"content_urls"`
}

// Component queries Wikipedia.
type Component struct {
	inv         *dispatch.Invocation
	language    string
	summarySize int
	client      *http.Client
}

// New builds the handler for one invocation.
func New(inv *dispatch.Invocation) (dispatch.Handler, error) {
	cfg := inv.Config.Components.Wiki
	language := cfg.Language
	if language == "" {
		language = "en"
	}
	size := cfg.SummarySize
	if size <= 0 {
		size = 1024
	}
	return &Component{
		inv:         inv,
		language:    language,
		summarySize: size,
		client:      &http.Client{Timeout: 15 * time.Second},
	}, nil
}

func (c *Component) host(language string) string {
	return fmt.Sprintf(hostFormat, language)
}

// Summary fetches the REST summary for a term, truncated to the
// configured size with a link to the full article.
func (c *Component) Summary(language, term string) (string, error) {
	endpoint := fmt.Sprintf("%s/api/rest_v1/page/summary/%s",
		c.host(language), url.PathEscape(term))
	resp, err := c.client.Get(endpoint)
	if err != nil {
		return "", fmt.Errorf("wiki request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Sprintf("I could not find anything about %s, sorry", term), nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("wiki request failed: status %d", resp.StatusCode)
	}
	var s summaryResponse
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return "", err
	}
	extract := s.Extract
	if len(extract) > c.summarySize {
		extract = extract[:c.summarySize] + "..."
	}
	text := fmt.Sprintf("%s\n%s", s.Title, extract)
	if s.Content.Desktop.Page != "" {
		text += "\n" + s.Content.Desktop.Page
	}
	return text, nil
}

// Full scrapes the first n content paragraphs of the article page.
func (c *Component) Full(language, term string, n int) (string, error) {
	endpoint := fmt.Sprintf("%s/wiki/%s", c.host(language), url.PathEscape(strings.ReplaceAll(term, " ", "_")))
	resp, err := c.client.Get(endpoint)
	if err != nil {
		return "", fmt.Errorf("wiki request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Sprintf("I could not find anything about %s, sorry", term), nil
	}
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", err
	}
	var paragraphs []string
	doc.Find("#mw-content-text p").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := strings.TrimSpace(sel.Text())
		if text == "" {
			return true
		}
		paragraphs = append(paragraphs, text)
		return len(paragraphs) < n
	})
	if len(paragraphs) == 0 {
		return fmt.Sprintf("I could not find anything about %s, sorry", term), nil
	}
	return strings.Join(paragraphs, "\n\n"), nil
}

// TelegramMessage dispatches /wiki, /wiki_full and /wiki_<lang>.
func (c *Component) TelegramMessage(msg *backend.Message) error {
	term := strings.TrimSpace(msg.Text)
	language := c.language
	full := false
	n := 1

	switch {
	case msg.Command == "wiki":
	case msg.Command == "wiki_full":
		full = true
		if first, rest, ok := strings.Cut(term, " "); ok {
			if parsed, err := strconv.Atoi(first); err == nil && parsed > 0 {
				n = parsed
				term = rest
			}
		}
	case strings.HasPrefix(msg.Command, "wiki_"):
		language = strings.TrimPrefix(msg.Command, "wiki_")
	default:
		return c.inv.Reply(fmt.Sprintf("Command %s not understood?", msg.Command))
	}

	if term == "" {
		return c.inv.Reply("What do you want to know about? /" + msg.Command + " <term>")
	}

	var text string
	var err error
	if full {
		text, err = c.Full(language, term, n)
	} else {
		text, err = c.Summary(language, term)
	}
	if err != nil {
		return c.inv.Reply(fmt.Sprintf("Could not look up %s, sorry", term))
	}
	return c.inv.Reply(text)
}

// CommandLine is not wired to any flag.
func (c *Component) CommandLine(args *dispatch.CmdArgs) error {
	return nil
}
