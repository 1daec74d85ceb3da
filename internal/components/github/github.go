// Package github reports new issues on the configured repositories. A
// state file keeps the timestamp of the last check so cron runs only
// report what is new since.
package github

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/hmontero/librarian/internal/backend"
	"github.com/hmontero/librarian/internal/dispatch"
)

// Help is the usage text aggregated by /help.
const Help = ` > Github module
   /github [repo]: open issues on the configured repositories`

// baseURL is swapped out by the tests.
var baseURL = "https://api.github.com"

type issue struct {
	Number  int    `json:"number"`
	Title   string `json:"title"`
	HTMLURL string `json:"html_url"`
	State   string `json:"state"`
	User    struct {
		Login string `json:"login"`
	} `json:"user"`
	PullRequest *struct{} `json:"pull_request"`
}

// Component queries the GitHub issues API.
type Component struct {
	inv       *dispatch.Invocation
	token     string
	repos     []string
	stateFile string
	client    *http.Client
}

// New fails with a missing-dependency error when no repositories are
// configured.
func New(inv *dispatch.Invocation) (dispatch.Handler, error) {
	cfg := inv.Config.Components.Github
	if len(cfg.Repos) == 0 {
		return nil, &dispatch.MissingDependencyError{
			Component: "github",
			Reason:    "no repositories configured",
		}
	}
	return &Component{
		inv:       inv,
		token:     cfg.Token,
		repos:     cfg.Repos,
		stateFile: cfg.StateFile,
		client:    &http.Client{Timeout: 15 * time.Second},
	}, nil
}

// Issues lists issues on one repository, optionally only those updated
// since the given time. Pull requests are filtered out.
func (c *Component) Issues(repo string, since time.Time) ([]issue, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/issues?state=open", baseURL, repo)
	if !since.IsZero() {
		endpoint += "&since=" + since.UTC().Format(time.RFC3339)
	}
	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("github request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("github request for %s failed: status %d", repo, resp.StatusCode)
	}
	var all []issue
	if err := json.NewDecoder(resp.Body).Decode(&all); err != nil {
		return nil, err
	}
	issues := all[:0]
	for _, is := range all {
		if is.PullRequest == nil {
			issues = append(issues, is)
		}
	}
	return issues, nil
}

// lastCheck reads the state-file watermark. A missing or unreadable file
// means everything is new.
func (c *Component) lastCheck() time.Time {
	if c.stateFile == "" {
		return time.Time{}
	}
	data, err := os.ReadFile(c.stateFile)
	if err != nil {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(string(data)))
	if err != nil {
		return time.Time{}
	}
	return t
}

func (c *Component) saveCheck(t time.Time) {
	if c.stateFile == "" {
		return
	}
	_ = os.WriteFile(c.stateFile, []byte(t.UTC().Format(time.RFC3339)+"\n"), 0o644)
}

func formatIssues(repo string, issues []issue) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d open issues", repo, len(issues))
	for _, is := range issues {
		fmt.Fprintf(&b, "\n#%d %s (by %s)\n%s", is.Number, is.Title, is.User.Login, is.HTMLURL)
	}
	return b.String()
}

// TelegramMessage handles /github, listing open issues for one repo or
// for all configured ones.
func (c *Component) TelegramMessage(msg *backend.Message) error {
	repos := c.repos
	if arg := strings.TrimSpace(msg.Text); arg != "" {
		repos = []string{arg}
	}
	var reports []string
	for _, repo := range repos {
		issues, err := c.Issues(repo, time.Time{})
		if err != nil {
			reports = append(reports, fmt.Sprintf("Could not check %s: %v", repo, err))
			continue
		}
		reports = append(reports, formatIssues(repo, issues))
	}
	return c.inv.Reply(strings.Join(reports, "\n\n"))
}

// CommandLine reports issues updated since the last run to the operator,
// for use from cron. Nothing is sent when there is nothing new.
func (c *Component) CommandLine(args *dispatch.CmdArgs) error {
	since := c.lastCheck()
	now := time.Now()
	var reports []string
	for _, repo := range c.repos {
		issues, err := c.Issues(repo, since)
		if err != nil {
			return err
		}
		if len(issues) == 0 {
			continue
		}
		reports = append(reports, formatIssues(repo, issues))
	}
	c.saveCheck(now)
	if len(reports) == 0 {
		return nil
	}
	return c.inv.Notify(strings.Join(reports, "\n\n"))
}
