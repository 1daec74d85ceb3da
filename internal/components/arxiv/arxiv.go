// Package arxiv queries the arXiv API. It can describe a paper by id,
// download its PDF, run free-text queries, and build a digest of new
// submissions in the configured categories filtered by keywords.
package arxiv

import (
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hmontero/librarian/internal/backend"
	"github.com/hmontero/librarian/internal/dispatch"
)

// Help is the usage text aggregated by /help.
const Help = ` > Arxiv module
   /arxiv id: information about the paper with that arxiv id
   /arxiv_get id: sends the PDF of the paper
   /arxiv_query terms: free-text search`

// baseURL is swapped out by the tests.
var baseURL = "http://export.arxiv.org/api/query"

// maxQueryResults caps free-text searches.
const maxQueryResults = 5

type atomFeed struct {
	XMLName xml.Name    `xml:"feed"`
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID        string       `xml:"id"`
	Title     string       `xml:"title"`
	Summary   string       `xml:"summary"`
	Published string       `xml:"published"`
	Authors   []atomAuthor `xml:"author"`
	Links     []atomLink   `xml:"link"`
}

type atomAuthor struct {
	Name string `xml:"name"`
}

type atomLink struct {
	Href  string `xml:"href,attr"`
	Title string `xml:"title,attr"`
	Type  string `xml:"type,attr"`
}

// Paper is one arXiv entry in a digestible form.
type Paper struct {
	ID        string
	Title     string
	Authors   []string
	Abstract  string
	PDFLink   string
	Published time.Time
}

func (p Paper) String() string {
	authors := strings.Join(p.Authors, ", ")
	if len(p.Authors) > 4 {
		authors = strings.Join(p.Authors[:4], ", ") + " et al."
	}
	return fmt.Sprintf("%s\n%s\n%s", p.Title, authors, p.ID)
}

func parseEntry(entry atomEntry) Paper {
	p := Paper{
		ID:       strings.TrimSpace(entry.ID),
		Title:    strings.Join(strings.Fields(entry.Title), " "),
		Abstract: strings.TrimSpace(entry.Summary),
	}
	for _, a := range entry.Authors {
		p.Authors = append(p.Authors, a.Name)
	}
	for _, l := range entry.Links {
		if l.Title == "pdf" || l.Type == "application/pdf" {
			p.PDFLink = l.Href
		}
	}
	if t, err := time.Parse(time.RFC3339, entry.Published); err == nil {
		p.Published = t
	}
	return p
}

// Component queries the arXiv API.
type Component struct {
	inv        *dispatch.Invocation
	categories []string
	keywords   []string
	client     *http.Client
}

// New builds the handler for one invocation.
func New(inv *dispatch.Invocation) (dispatch.Handler, error) {
	cfg := inv.Config.Components.Arxiv
	return &Component{
		inv:        inv,
		categories: cfg.Categories,
		keywords:   cfg.Keywords,
		client:     &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (c *Component) query(params url.Values) ([]Paper, error) {
	resp, err := c.client.Get(baseURL + "?" + params.Encode())
	if err != nil {
		return nil, fmt.Errorf("arxiv request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv request failed: status %d", resp.StatusCode)
	}
	var feed atomFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("arxiv response not understood: %w", err)
	}
	papers := make([]Paper, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		papers = append(papers, parseEntry(entry))
	}
	return papers, nil
}

// GetPaper fetches the entry for one arXiv id.
func (c *Component) GetPaper(id string) (Paper, error) {
	params := url.Values{}
	params.Set("id_list", id)
	papers, err := c.query(params)
	if err != nil {
		return Paper{}, err
	}
	if len(papers) == 0 || papers[0].ID == "" {
		return Paper{}, fmt.Errorf("no paper found for id %s", id)
	}
	return papers[0], nil
}

// Search runs a free-text query.
func (c *Component) Search(terms string) ([]Paper, error) {
	params := url.Values{}
	params.Set("search_query", "all:"+terms)
	params.Set("max_results", fmt.Sprint(maxQueryResults))
	return c.query(params)
}

// NewSubmissions fetches the latest submissions in each configured
// category, keeping those newer than the cutoff for today.
func (c *Component) NewSubmissions(now time.Time) ([]Paper, error) {
	if len(c.categories) == 0 {
		return nil, fmt.Errorf("no arxiv categories configured")
	}
	cutoff := announcementCutoff(now)
	var papers []Paper
	seen := make(map[string]bool)
	for _, cat := range c.categories {
		params := url.Values{}
		params.Set("search_query", "cat:"+cat)
		params.Set("sortBy", "submittedDate")
		params.Set("sortOrder", "descending")
		params.Set("max_results", "100")
		batch, err := c.query(params)
		if err != nil {
			return nil, err
		}
		for _, p := range batch {
			if p.Published.Before(cutoff) || seen[p.ID] {
				continue
			}
			seen[p.ID] = true
			papers = append(papers, p)
		}
	}
	return papers, nil
}

// announcementCutoff returns the start of the submission window that the
// most recent arXiv listing covers. Listings are published on weekdays and
// cover submissions up to 18:00 UTC of the previous working day, so the
// window stretches further back over weekends and on Mondays.
func announcementCutoff(now time.Time) time.Time {
	day := time.Date(now.Year(), now.Month(), now.Day(), 18, 0, 0, 0, time.UTC)
	back := 2
	switch now.Weekday() {
	case time.Monday:
		back = 4
	case time.Sunday:
		back = 3
	case time.Saturday:
		back = 3
	}
	return day.AddDate(0, 0, -back)
}

// filterKeywords keeps papers whose title or abstract mention any of the
// configured keywords. With no keywords configured everything passes.
func (c *Component) filterKeywords(papers []Paper) []Paper {
	if len(c.keywords) == 0 {
		return papers
	}
	var kept []Paper
	for _, p := range papers {
		haystack := strings.ToLower(p.Title + " " + p.Abstract)
		for _, kw := range c.keywords {
			if strings.Contains(haystack, strings.ToLower(kw)) {
				kept = append(kept, p)
				break
			}
		}
	}
	return kept
}

// Digest builds the new-submissions report for the operator.
func (c *Component) Digest(now time.Time) (string, error) {
	papers, err := c.NewSubmissions(now)
	if err != nil {
		return "", err
	}
	interesting := c.filterKeywords(papers)
	var b strings.Builder
	fmt.Fprintf(&b, "%d new papers today", len(papers))
	if len(c.keywords) > 0 {
		fmt.Fprintf(&b, ", %d matching your keywords", len(interesting))
	}
	for _, p := range interesting {
		fmt.Fprintf(&b, "\n\n%s", p)
	}
	return b.String(), nil
}

// downloadPDF saves the PDF of a paper under the data folder and returns
// the path.
func (c *Component) downloadPDF(paper Paper) (string, error) {
	if paper.PDFLink == "" {
		return "", fmt.Errorf("no PDF link for %s", paper.ID)
	}
	resp, err := c.client.Get(paper.PDFLink)
	if err != nil {
		return "", fmt.Errorf("arxiv PDF download failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("arxiv PDF download failed: status %d", resp.StatusCode)
	}
	name := filepath.Base(paper.ID) + ".pdf"
	dest := filepath.Join(os.TempDir(), name)
	f, err := os.Create(dest)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := f.ReadFrom(resp.Body); err != nil {
		return "", err
	}
	return dest, nil
}

// TelegramMessage dispatches the arxiv commands.
func (c *Component) TelegramMessage(msg *backend.Message) error {
	arg := strings.TrimSpace(msg.Text)
	if arg == "" {
		return c.inv.Reply("Give me an arxiv id or some search terms")
	}
	switch msg.Command {
	case "arxiv_get", "arxivget":
		paper, err := c.GetPaper(arg)
		if err != nil {
			return c.inv.Reply(fmt.Sprintf("Could not find %s, sorry", arg))
		}
		path, err := c.downloadPDF(paper)
		if err != nil {
			return c.inv.Reply(fmt.Sprintf("Could not download the PDF for %s, sorry", arg))
		}
		defer os.Remove(path)
		return c.inv.Backend.SendFile(path, c.inv.ChatID)
	case "arxiv_query":
		papers, err := c.Search(arg)
		if err != nil {
			return c.inv.Reply("The arxiv search failed, sorry")
		}
		if len(papers) == 0 {
			return c.inv.Reply(fmt.Sprintf("Nothing found for %s", arg))
		}
		var lines []string
		for _, p := range papers {
			lines = append(lines, p.String())
		}
		return c.inv.Reply(strings.Join(lines, "\n\n"))
	default:
		paper, err := c.GetPaper(arg)
		if err != nil {
			return c.inv.Reply(fmt.Sprintf("Could not find %s, sorry", arg))
		}
		abstract := paper.Abstract
		if len(abstract) > 1500 {
			abstract = abstract[:1500] + "..."
		}
		return c.inv.Reply(fmt.Sprintf("%s\n\n%s", paper, abstract))
	}
}

// CommandLine sends the new-submissions digest to the operator, for use
// from cron.
func (c *Component) CommandLine(args *dispatch.CmdArgs) error {
	digest, err := c.Digest(time.Now().UTC())
	if err != nil {
		return err
	}
	return c.inv.Notify(digest)
}
