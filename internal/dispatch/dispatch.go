// Package dispatch routes parsed commands to pluggable components. The
// registry is an immutable-after-startup value: the table of commands is
// built once, handed to the update loop and the CLI driver, and consulted
// on every dispatch. A component that cannot come up (an unconfigured API
// key, a missing external program) degrades to a friendly in-chat reply
// instead of taking the bot down.
package dispatch

import (
	"fmt"
	"strings"

	"github.com/hmontero/librarian/internal/backend"
	"github.com/hmontero/librarian/internal/config"
)

// Handler is the contract every pluggable command component implements.
type Handler interface {
	// TelegramMessage handles one incoming command from the update loop.
	// The handler replies through the invocation it was built with.
	TelegramMessage(msg *backend.Message) error

	// CommandLine handles the one-shot CLI invocation path. It receives
	// the full parsed argument set, not just the flag that selected it,
	// so components can combine with other flags when useful.
	CommandLine(args *CmdArgs) error
}

// CmdArgs carries the complete parsed command-line argument set.
type CmdArgs struct {
	// Message is the positional text passed on the command line. A
	// component may consume it (set it to nil) to suppress the final
	// passthrough send.
	Message []string
	Image   string
	File    string

	MyIP         bool
	PIDs         []int32
	Weather      bool
	ArxivNew     bool
	CheckRepos   bool
	StockWatcher bool
	GithubIssues bool
	Roll         string
}

// Invocation is the authorization and execution context built fresh for
// every dispatched command and discarded after the handler returns.
type Invocation struct {
	Backend backend.Backend
	Config  *config.Config
	// OperatorID is the operator's own allow-listed chat id, where
	// unsolicited notifications go.
	OperatorID int64
	// ChatID is where replies should be sent. In group contexts it may
	// differ from the operator id.
	ChatID int64
	// RunningInLoop distinguishes the polling loop from one-shot CLI
	// dispatch.
	RunningInLoop bool
}

// CheckIdentity reports whether the message's sender is in the operator
// allow-list. Identity checks are opt-in per component: innocuous
// components skip them, security-sensitive ones must call this.
func (inv *Invocation) CheckIdentity(msg *backend.Message) bool {
	return inv.Config.IsAllowed(msg.ChatID)
}

// NotAllowed sends the standard refusal reply to the sender.
func (inv *Invocation) NotAllowed(msg *backend.Message) error {
	return inv.Backend.SendText("You are not allowed to use this", msg.ChatID, false)
}

// Reply sends plain text to the interaction chat.
func (inv *Invocation) Reply(text string) error {
	return inv.Backend.SendText(text, inv.ChatID, false)
}

// ReplyMarkdown sends markdown-formatted text to the interaction chat.
func (inv *Invocation) ReplyMarkdown(text string) error {
	return inv.Backend.SendText(text, inv.ChatID, true)
}

// Notify sends plain text to the operator's own chat, regardless of where
// the interaction came from.
func (inv *Invocation) Notify(text string) error {
	return inv.Backend.SendText(text, inv.OperatorID, false)
}

// MissingDependencyError is returned by a component factory when something
// the component needs is not available. The dispatcher turns it into a
// friendly reply rather than an error, so one broken component never
// affects the rest of the bot.
type MissingDependencyError struct {
	Component string
	Reason    string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("component %q is missing a dependency: %s", e.Component, e.Reason)
}

// Factory builds a handler for one invocation.
type Factory func(*Invocation) (Handler, error)

// Entry describes one registered component.
type Entry struct {
	// Names are the command names served by the component. The first
	// name doubles as the component identifier on the CLI path.
	Names []string
	// Prefix, when non-empty, matches any command starting with it.
	Prefix string
	// Help is the usage text aggregated by the /help meta-command.
	Help string
	// New builds the handler for one invocation.
	New Factory
}

// Matches reports whether the entry serves the given command name.
// Matching is case-insensitive.
func (e *Entry) Matches(command string) bool {
	command = strings.ToLower(command)
	for _, name := range e.Names {
		if command == name {
			return true
		}
	}
	return e.Prefix != "" && strings.HasPrefix(command, e.Prefix)
}
