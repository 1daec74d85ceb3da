// Package system runs a curated set of shell commands on the host. Only
// commands named in the configuration can run, and only the operator can
// run them.
package system

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
const Help = ` > System module
   /system name: runs the configured command with that name
   /system list: lists the configured commands`

// commandTimeout bounds every command run.
var commandTimeout = 30 * time.Second

// Component runs configured host commands.
type Component struct {
	inv      *dispatch.Invocation
	commands map[string]string
	log      *slog.Logger
}

// New fails with a missing-dependency error when no commands are
// configured.
func New(inv *dispatch.Invocation) (dispatch.Handler, error) {
	commands := inv.Config.Components.System.Commands
	if len(commands) == 0 {
		return nil, &dispatch.MissingDependencyError{
			Component: "system",
			Reason:    "no system commands configured",
		}
	}
	return &Component{
		inv:      inv,
		commands: commands,
		log:      slog.Default().With("component", "system"),
	}, nil
}

func (c *Component) names() []string {
	names := make([]string, 0, len(c.commands))
	for name := range c.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// run executes one configured command and captures its combined output.
func (c *Component) run(name string) (string, error) {
	cmdline, ok := c.commands[name]
	if !ok {
		return "", fmt.Errorf("no command named %s", name)
	}
	c.log.Info("running system command", "name", name, "cmd", cmdline)
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, "sh", "-c", cmdline).CombinedOutput()
	if ctx.Err() == context.DeadlineExceeded {
		return "", fmt.Errorf("command %s timed out", name)
	}
	if err != nil {
		return "", fmt.Errorf("command %s failed: %w\n%s", name, err, out)
	}
	return strings.TrimSpace(string(out)), nil
}

// TelegramMessage handles /system.
func (c *Component) TelegramMessage(msg *backend.Message) error {
	if !c.inv.CheckIdentity(msg) {
		return c.inv.NotAllowed(msg)
	}
	name := strings.TrimSpace(msg.Text)
	if name == "" || name == "list" {
		return c.inv.Reply("Available commands: " + strings.Join(c.names(), ", "))
	}
	out, err := c.run(name)
	if err != nil {
		return c.inv.Reply(fmt.Sprintf("That did not work: %v", err))
	}
	if out == "" {
		out = "Done (no output)"
	}
	return c.inv.Reply(out)
}

// CommandLine is not wired to any flag.
func (c *Component) CommandLine(args *dispatch.CmdArgs) error {
	return nil
}
