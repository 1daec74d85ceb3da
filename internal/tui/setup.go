// Package tui provides the interactive terminal setup wizard.
package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/hmontero/librarian/internal/config"
)

// Styles for the setup wizard.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			MarginBottom(1)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("82")).
			Bold(true)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2)
)

// ChatIDFinder discovers the chat id of whoever last messaged the bot.
// It is injected so the wizard does not depend on the transport package.
type ChatIDFinder func(token string) (int64, string, error)

// SetupState holds the answers collected by the wizard.
type SetupState struct {
	Token           string
	ChatID          string
	Chivato         bool
	ConfigWeather   bool
	WeatherKey      string
	WeatherLocation string
	ConfigArxiv     bool
	ArxivCategories string
	ArxivKeywords   string
	Confirmed       bool
}

// RunSetup runs the interactive setup wizard and saves the resulting
// configuration.
func RunSetup(findChatID ChatIDFinder) (*config.Config, error) {
	state := &SetupState{}

	welcome := boxStyle.Render(
		titleStyle.Render("Welcome to librarian setup") + "\n\n" +
			"This wizard will configure your personal assistant.\n" +
			"You can always edit the configuration later at:\n" +
			subtitleStyle.Render(config.GetConfigPath()),
	)
	fmt.Println(welcome)
	fmt.Println()

	if err := runTokenStep(state); err != nil {
		return nil, err
	}
	if err := runChatIDStep(state, findChatID); err != nil {
		return nil, err
	}
	if err := runComponentsStep(state); err != nil {
		return nil, err
	}
	if err := runConfirmationStep(state); err != nil {
		return nil, err
	}
	if !state.Confirmed {
		return nil, fmt.Errorf("setup cancelled by user")
	}

	cfg, err := buildConfigFromState(state)
	if err != nil {
		return nil, err
	}
	if err := config.SaveConfig(cfg, ""); err != nil {
		return nil, fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Println(successStyle.Render("\nConfiguration saved!"))
	fmt.Println(subtitleStyle.Render("Config file: " + config.GetConfigPath()))
	return cfg, nil
}

func runTokenStep(state *SetupState) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Telegram bot token").
				Description("Create a bot with @BotFather and paste its token here").
				Placeholder("123456789:AA...").
				EchoMode(huh.EchoModePassword).
				Value(&state.Token).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("a token is required")
					}
					return nil
				}),
		),
	)
	return form.Run()
}

// runChatIDStep either discovers the chat id from a live message or asks
// for it directly.
func runChatIDStep(state *SetupState, findChatID ChatIDFinder) error {
	var discover bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Discover your chat id automatically?").
				Description("Send any message to your bot now and the wizard will pick up the chat id").
				Value(&discover),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	if discover && findChatID != nil {
		fmt.Println(subtitleStyle.Render("Waiting for a message to the bot..."))
		chatID, username, err := findChatID(strings.TrimSpace(state.Token))
		if err == nil {
			fmt.Println(successStyle.Render(fmt.Sprintf("Got it, %s! Your chat id is %d", username, chatID)))
			state.ChatID = strconv.FormatInt(chatID, 10)
			return nil
		}
		fmt.Println(subtitleStyle.Render(fmt.Sprintf("Could not discover the chat id (%v), enter it manually", err)))
	}

	form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Your Telegram chat id").
				Description("Messages from other chats will be rejected").
				Placeholder("123456789").
				Value(&state.ChatID).
				Validate(func(s string) error {
					if _, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err != nil {
						return fmt.Errorf("the chat id must be a number")
					}
					return nil
				}),
		),
	)
	return form.Run()
}

func runComponentsStep(state *SetupState) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Forward messages from strangers to you?").
				Description("When enabled, anything sent by other people is forwarded to your chat").
				Value(&state.Chivato),
			huh.NewConfirm().
				Title("Configure the weather component?").
				Value(&state.ConfigWeather),
			huh.NewConfirm().
				Title("Configure the arxiv component?").
				Value(&state.ConfigArxiv),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	if state.ConfigWeather {
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("OpenWeatherMap API key").
					EchoMode(huh.EchoModePassword).
					Value(&state.WeatherKey),
				huh.NewInput().
					Title("Default location").
					Placeholder("Turin,IT").
					Value(&state.WeatherLocation),
			),
		)
		if err := form.Run(); err != nil {
			return err
		}
	}

	if state.ConfigArxiv {
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Arxiv categories").
					Description("Comma-separated, e.g. hep-ph, cs.LG").
					Value(&state.ArxivCategories),
				huh.NewInput().
					Title("Keywords to highlight").
					Description("Comma-separated, leave empty for everything").
					Value(&state.ArxivKeywords),
			),
		)
		if err := form.Run(); err != nil {
			return err
		}
	}
	return nil
}

func runConfirmationStep(state *SetupState) error {
	summary := fmt.Sprintf("Chat id: %s\nForwarding: %t\nWeather: %t\nArxiv: %t",
		state.ChatID, state.Chivato, state.ConfigWeather, state.ConfigArxiv)
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save this configuration?").
				Description(summary).
				Value(&state.Confirmed),
		),
	)
	return form.Run()
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func buildConfigFromState(state *SetupState) (*config.Config, error) {
	cfg := config.DefaultConfig()
	cfg.Telegram.Token = strings.TrimSpace(state.Token)
	cfg.Telegram.Chivato = state.Chivato

	chatID, err := strconv.ParseInt(strings.TrimSpace(state.ChatID), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat id %q", state.ChatID)
	}
	cfg.Telegram.ChatIDs = []int64{chatID}

	if state.ConfigWeather {
		cfg.Components.Weather.APIKey = strings.TrimSpace(state.WeatherKey)
		cfg.Components.Weather.DefaultLocation = strings.TrimSpace(state.WeatherLocation)
	}
	if state.ConfigArxiv {
		cfg.Components.Arxiv.Categories = splitList(state.ArxivCategories)
		cfg.Components.Arxiv.Keywords = splitList(state.ArxivKeywords)
	}
	return cfg, nil
}
