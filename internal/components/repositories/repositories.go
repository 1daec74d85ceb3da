// Package repositories checks local git checkouts for upstream changes.
// Each configured path is fetched and the commits between HEAD and its
// upstream are reported.
package repositories

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/hmontero/librarian/internal/backend"
	"github.com/hmontero/librarian/internal/dispatch"
)

// Help is the usage text aggregated by /help.
const Help = ` > Repositories module
   /repositories: checks the configured git checkouts for upstream changes`

// gitTimeout bounds every git invocation.
const gitTimeout = 60 * time.Second

// Component checks git checkouts.
type Component struct {
	inv   *dispatch.Invocation
	paths []string
	log   *slog.Logger
}

// New fails with a missing-dependency error when no repositories are
// configured.
func New(inv *dispatch.Invocation) (dispatch.Handler, error) {
	paths := inv.Config.Components.Repositories.Paths
	if len(paths) == 0 {
		return nil, &dispatch.MissingDependencyError{
			Component: "repositories",
			Reason:    "no repository paths configured",
		}
	}
	return &Component{
		inv:   inv,
		paths: paths,
		log:   slog.Default().With("component", "repositories"),
	}, nil
}

func git(dir string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), gitTimeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if ctx.Err() == context.DeadlineExceeded {
		return "", fmt.Errorf("git %s timed out in %s", strings.Join(args, " "), dir)
	}
	if err != nil {
		return "", fmt.Errorf("git %s failed in %s: %w\n%s", strings.Join(args, " "), dir, err, out)
	}
	return strings.TrimSpace(string(out)), nil
}

// Check fetches one checkout and lists the commits it is behind.
func (c *Component) Check(path string) (string, error) {
	c.log.Info("checking repository", "path", path)
	if _, err := git(path, "fetch", "--quiet"); err != nil {
		return "", err
	}
	log, err := git(path, "log", "--oneline", "HEAD..@{u}")
	if err != nil {
		return "", err
	}
	if log == "" {
		return "", nil
	}
	return fmt.Sprintf("%s is behind upstream:\n%s", path, log), nil
}

// CheckAll checks every configured checkout and reports those behind.
func (c *Component) CheckAll() []string {
	var reports []string
	for _, path := range c.paths {
		report, err := c.Check(path)
		if err != nil {
			reports = append(reports, fmt.Sprintf("Could not check %s: %v", path, err))
			continue
		}
		if report != "" {
			reports = append(reports, report)
		}
	}
	return reports
}

// TelegramMessage handles /repositories.
func (c *Component) TelegramMessage(msg *backend.Message) error {
	if !c.inv.CheckIdentity(msg) {
		return c.inv.NotAllowed(msg)
	}
	reports := c.CheckAll()
	if len(reports) == 0 {
		return c.inv.Reply("All repositories are up to date")
	}
	return c.inv.Reply(strings.Join(reports, "\n\n"))
}

// CommandLine reports outdated checkouts to the operator, for use from
// cron. Nothing is sent when everything is up to date.
func (c *Component) CommandLine(args *dispatch.CmdArgs) error {
	reports := c.CheckAll()
	if len(reports) == 0 {
		return nil
	}
	return c.inv.Notify(strings.Join(reports, "\n\n"))
}
