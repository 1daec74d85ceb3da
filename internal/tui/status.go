package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/hmontero/librarian/internal/config"
)

var (
	statusBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Width(60)

	statusSectionStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				MarginTop(1)

	statusLabelStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252")).
				Width(18)

	statusEnabledStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("82")).
				Bold(true)

	statusDisabledStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240"))
)

func statusLine(label string, enabled bool, detail string) string {
	mark := statusDisabledStyle.Render("off")
	if enabled {
		mark = statusEnabledStyle.Render("on")
	}
	line := statusLabelStyle.Render(label) + mark
	if detail != "" {
		line += " " + statusDisabledStyle.Render(detail)
	}
	return line
}

// ShowStatus prints an overview of the configuration.
func ShowStatus(cfg *config.Config) {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("librarian configuration"))
	sb.WriteString("\n")

	sb.WriteString(statusSectionStyle.Render("Transport"))
	sb.WriteString("\n")
	sb.WriteString(statusLine("Telegram", cfg.Telegram.Token != "",
		fmt.Sprintf("%d allowed chats", len(cfg.Telegram.ChatIDs))))
	sb.WriteString("\n")
	sb.WriteString(statusLine("Facebook", cfg.Facebook.Enabled, ""))
	sb.WriteString("\n")
	sb.WriteString(statusLine("Forwarding", cfg.Telegram.Chivato, ""))
	sb.WriteString("\n")

	sb.WriteString(statusSectionStyle.Render("Components"))
	sb.WriteString("\n")
	sb.WriteString(statusLine("Weather", cfg.Components.Weather.APIKey != "",
		cfg.Components.Weather.DefaultLocation))
	sb.WriteString("\n")
	sb.WriteString(statusLine("Arxiv", len(cfg.Components.Arxiv.Categories) > 0,
		strings.Join(cfg.Components.Arxiv.Categories, ", ")))
	sb.WriteString("\n")
	sb.WriteString(statusLine("System", len(cfg.Components.System.Commands) > 0,
		fmt.Sprintf("%d commands", len(cfg.Components.System.Commands))))
	sb.WriteString("\n")
	sb.WriteString(statusLine("Scripts", len(cfg.Components.Scripts.Scripts) > 0,
		fmt.Sprintf("%d scripts", len(cfg.Components.Scripts.Scripts))))
	sb.WriteString("\n")
	sb.WriteString(statusLine("Stocks", cfg.Components.Stocks.WatchFile != "", ""))
	sb.WriteString("\n")
	sb.WriteString(statusLine("Github", len(cfg.Components.Github.Repos) > 0,
		fmt.Sprintf("%d repos", len(cfg.Components.Github.Repos))))
	sb.WriteString("\n")
	sb.WriteString(statusLine("Repositories", len(cfg.Components.Repositories.Paths) > 0,
		fmt.Sprintf("%d checkouts", len(cfg.Components.Repositories.Paths))))
	sb.WriteString("\n")

	sb.WriteString(statusSectionStyle.Render("Storage"))
	sb.WriteString("\n")
	sb.WriteString(statusLabelStyle.Render("Main folder") + cfg.MainFolderPath())

	fmt.Println(statusBoxStyle.Render(sb.String()))
}
