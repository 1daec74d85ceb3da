// Package scripts runs operator-configured scripts by name and sends
// their output back. Unlike the system component, scripts receive the
// rest of the message as arguments.
package scripts

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/hmontero/librarian/internal/backend"
	"github.com/hmontero/librarian/internal/dispatch"
)

// Help is the usage text aggregated by /help.
const Help = ` > Scripts module
   /script name [args]: runs the configured script with that name`

// scriptTimeout bounds every script run.
const scriptTimeout = 5 * time.Minute

// Component runs configured scripts.
type Component struct {
	inv     *dispatch.Invocation
	scripts map[string]string
	log     *slog.Logger
}

// New fails with a missing-dependency error when no scripts are
// configured.
func New(inv *dispatch.Invocation) (dispatch.Handler, error) {
	scripts := inv.Config.Components.Scripts.Scripts
	if len(scripts) == 0 {
		return nil, &dispatch.MissingDependencyError{
			Component: "scripts",
			Reason:    "no scripts configured",
		}
	}
	return &Component{
		inv:     inv,
		scripts: scripts,
		log:     slog.Default().With("component", "scripts"),
	}, nil
}

func (c *Component) names() []string {
	names := make([]string, 0, len(c.scripts))
	for name := range c.scripts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TelegramMessage handles /script.
func (c *Component) TelegramMessage(msg *backend.Message) error {
	if !c.inv.CheckIdentity(msg) {
		return c.inv.NotAllowed(msg)
	}
	name, rest, _ := strings.Cut(strings.TrimSpace(msg.Text), " ")
	if name == "" {
		return c.inv.Reply("Available scripts: " + strings.Join(c.names(), ", "))
	}
	path, ok := c.scripts[name]
	if !ok {
		return c.inv.Reply(fmt.Sprintf("I know no script named %s", name))
	}

	c.log.Info("running script", "name", name, "path", path, "args", rest)
	var args []string
	if rest != "" {
		args = strings.Fields(rest)
	}
	ctx, cancel := context.WithTimeout(context.Background(), scriptTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, path, args...).CombinedOutput()
	if ctx.Err() == context.DeadlineExceeded {
		return c.inv.Reply(fmt.Sprintf("The script %s timed out", name))
	}
	if err != nil {
		return c.inv.Reply(fmt.Sprintf("The script %s failed: %v\n%s", name, err, out))
	}
	text := strings.TrimSpace(string(out))
	if text == "" {
		text = "Done (no output)"
	}
	return c.inv.Reply(text)
}

// CommandLine is not wired to any flag.
func (c *Component) CommandLine(args *dispatch.CmdArgs) error {
	return nil
}
