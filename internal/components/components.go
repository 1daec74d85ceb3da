// Package components wires every command handler into the dispatch
// registry. This is the single place that knows the full command table.
package components

import (
	"github.com/hmontero/librarian/internal/components/arxiv"
	"github.com/hmontero/librarian/internal/components/dnd"
	"github.com/hmontero/librarian/internal/components/github"
	"github.com/hmontero/librarian/internal/components/ip"
	"github.com/hmontero/librarian/internal/components/pid"
	"github.com/hmontero/librarian/internal/components/reactions"
	"github.com/hmontero/librarian/internal/components/repositories"
	"github.com/hmontero/librarian/internal/components/scripts"
	"github.com/hmontero/librarian/internal/components/stocks"
	"github.com/hmontero/librarian/internal/components/system"
	"github.com/hmontero/librarian/internal/components/weather"
	"github.com/hmontero/librarian/internal/components/wiki"
	"github.com/hmontero/librarian/internal/dispatch"
)

// Entries is the full command table. The registry built from it is fixed
// for the lifetime of the process.
func Entries() []dispatch.Entry {
	return []dispatch.Entry{
		{Names: []string{"ip"}, Help: ip.Help, New: ip.New},
		{Names: []string{"is_pid_alive", "kill_pid", "pid"}, Help: pid.Help, New: pid.New},
		{Names: []string{"r", "roll"}, Help: dnd.Help, New: dnd.New},
		{Names: []string{"weather", "forecast"}, Help: weather.Help, New: weather.New},
		{Prefix: "wiki", Help: wiki.Help, New: wiki.New},
		{Names: []string{"arxiv", "arxiv_get", "arxiv_query", "arxivget"}, Help: arxiv.Help, New: arxiv.New},
		{Names: []string{"system"}, Help: system.Help, New: system.New},
		{Names: []string{"script"}, Help: scripts.Help, New: scripts.New},
		{Names: []string{"stock", "stocks"}, Help: stocks.Help, New: stocks.New},
		{Names: []string{"github"}, Help: github.Help, New: github.New},
		{Names: []string{"reaction", "reaction_list", "reaction_save"}, Help: reactions.Help, New: reactions.New},
		{Names: []string{"repositories", "check_repositories"}, Help: repositories.Help, New: repositories.New},
	}
}

// NewRegistry builds the registry every entry point shares.
func NewRegistry() *dispatch.Registry {
	return dispatch.NewRegistry(Entries())
}
