package dispatch

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hmontero/librarian/internal/backend"
	"github.com/hmontero/librarian/internal/config"
)

// Registry maps command names to component entries. It is built once at
// startup and never mutated afterwards.
type Registry struct {
	entries []Entry
	log     *slog.Logger
}

// NewRegistry builds a registry from the given entries.
func NewRegistry(entries []Entry) *Registry {
	return &Registry{
		entries: entries,
		log:     slog.Default().With("module", "dispatch"),
	}
}

// Lookup returns the entry serving the command name, or nil.
func (r *Registry) Lookup(command string) *Entry {
	for i := range r.entries {
		if r.entries[i].Matches(command) {
			return &r.entries[i]
		}
	}
	return nil
}

// HelpText aggregates the usage text of every registered component.
func (r *Registry) HelpText() string {
	var b strings.Builder
	b.WriteString("Hi! This is what I can do:\n")
	for _, entry := range r.entries {
		if entry.Help == "" {
			continue
		}
		b.WriteString(entry.Help)
		b.WriteString("\n")
	}
	return b.String()
}

// ActOnCommand dispatches one incoming command message.
//
// An unrecognized command is not an error: it is logged and silently
// dropped. A component whose factory reports a missing dependency produces
// exactly one in-chat reply naming the command and otherwise leaves the
// process untouched. Handler errors propagate to the caller, which owns
// failure containment.
func (r *Registry) ActOnCommand(b backend.Backend, cfg *config.Config, msg *backend.Message) error {
	command := msg.Command

	if strings.EqualFold(command, "help") {
		return b.SendText(r.HelpText(), msg.ChatID, false)
	}

	entry := r.Lookup(command)
	if entry == nil {
		r.log.Debug("no component registered for command", "command", command)
		return nil
	}

	inv := &Invocation{
		Backend:       b,
		Config:        cfg,
		OperatorID:    cfg.MainID(),
		ChatID:        msg.ChatID,
		RunningInLoop: true,
	}

	handler, err := entry.New(inv)
	if err != nil {
		var dep *MissingDependencyError
		if errors.As(err, &dep) {
			r.log.Warn("component unavailable", "command", command, "reason", dep.Reason)
			return b.SendText(
				fmt.Sprintf("The /%s command is not available here: %s", command, dep.Reason),
				msg.ChatID, false)
		}
		return fmt.Errorf("building handler for /%s: %w", command, err)
	}

	return handler.TelegramMessage(msg)
}

// RunCommandLine dispatches the one-shot CLI path: each named component is
// constructed with the operator's own chat as the interaction chat and its
// CommandLine handler is invoked with the full argument set. Several
// components may run in the same process invocation.
func (r *Registry) RunCommandLine(b backend.Backend, cfg *config.Config, names []string, args *CmdArgs) error {
	for _, name := range names {
		entry := r.Lookup(name)
		if entry == nil {
			r.log.Warn("no component registered for name", "name", name)
			continue
		}

		inv := &Invocation{
			Backend:       b,
			Config:        cfg,
			OperatorID:    cfg.MainID(),
			ChatID:        cfg.MainID(),
			RunningInLoop: false,
		}

		handler, err := entry.New(inv)
		if err != nil {
			var dep *MissingDependencyError
			if errors.As(err, &dep) {
				r.log.Warn("component unavailable", "name", name, "reason", dep.Reason)
				continue
			}
			return fmt.Errorf("building handler for %s: %w", name, err)
		}

		if err := handler.CommandLine(args); err != nil {
			return fmt.Errorf("running %s: %w", name, err)
		}
	}
	return nil
}
