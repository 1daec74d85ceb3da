package components

import (
	"strings"
	"testing"
)

func TestEveryKnownCommandResolves(t *testing.T) {
	registry := NewRegistry()
	commands := []string{
		"ip",
		"is_pid_alive", "kill_pid", "pid",
		"r", "roll",
		"weather", "forecast",
		"wiki", "wiki_full", "wiki_es",
		"arxiv", "arxiv_get", "arxiv_query", "arxivget",
		"system",
		"script",
		"stock", "stocks",
		"github",
		"reaction", "reaction_list", "reaction_save",
		"repositories", "check_repositories",
	}
	for _, command := range commands {
		if registry.Lookup(command) == nil {
			t.Errorf("command %q does not resolve", command)
		}
	}
	if registry.Lookup("nosuchcommand") != nil {
		t.Error("unknown command resolved to an entry")
	}
}

func TestHelpMentionsEveryComponent(t *testing.T) {
	help := NewRegistry().HelpText()
	for _, want := range []string{"IP", "PID", "DnD", "Weather", "Wiki", "Arxiv", "System", "Scripts", "Stocks", "Github", "Reactions", "Repositories"} {
		if !strings.Contains(help, want) {
			t.Errorf("help text does not mention the %s module", want)
		}
	}
}
