// Package ip reports the external IP address of the machine the bot runs
// on.
package ip

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hmontero/librarian/internal/backend"
	"github.com/hmontero/librarian/internal/dispatch"
)

// Help is the usage text aggregated by /help.
const Help = ` > IP module
   /ip : send the current ip in which the bot is running`

// lookupURL answers plain-text "what is my ip" requests. Overridable in
// tests.
var lookupURL = "https://ident.me"

// Component sends the host's external IP to the operator.
type Component struct {
	inv    *dispatch.Invocation
	client *http.Client
}

// New builds the handler for one invocation.
func New(inv *dispatch.Invocation) (dispatch.Handler, error) {
	return &Component{
		inv:    inv,
		client: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Lookup asks the lookup service for the host's external IP.
func (c *Component) Lookup() (string, error) {
	resp, err := c.client.Get(lookupURL)
	if err != nil {
		return "", fmt.Errorf("ip lookup failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ip lookup failed: status %s", resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("ip lookup failed: %w", err)
	}
	return strings.TrimSpace(string(body)), nil
}

// TelegramMessage sends the current IP if the asking chat is the right
// one, and refuses otherwise.
func (c *Component) TelegramMessage(msg *backend.Message) error {
	if !c.inv.CheckIdentity(msg) {
		return c.inv.NotAllowed(msg)
	}
	ip, err := c.Lookup()
	if err != nil {
		return err
	}
	return c.inv.Reply(ip)
}

// CommandLine sends the current IP to the operator chat, appended to any
// positional message text, which it consumes.
func (c *Component) CommandLine(args *dispatch.CmdArgs) error {
	ip, err := c.Lookup()
	if err != nil {
		return err
	}
	text := ip
	if len(args.Message) > 0 {
		text = strings.Join(args.Message, " ") + " " + ip
		args.Message = nil
	}
	return c.inv.Notify(text)
}
