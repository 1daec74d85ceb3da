package config

import (
	"os"
	"path/filepath"
)

// Config represents the root configuration structure for the librarian.
type Config struct {
	// MainFolder is where the librarian keeps its data tree
	// (daily logs, downloaded files, state files).
	MainFolder string `json:"mainFolder"`

	Telegram   TelegramConfig   `json:"telegram"`
	Facebook   FacebookConfig   `json:"facebook"`
	Components ComponentsConfig `json:"components"`
}

// TelegramConfig represents the Telegram backend configuration.
type TelegramConfig struct {
	Token string `json:"token"`
	// ChatIDs is the operator allow-list. The first entry is the main
	// chat id, where unsolicited notifications are delivered.
	ChatIDs []int64 `json:"chatIds"`
	// Chivato forwards messages from senders outside the allow-list
	// to the main chat id.
	Chivato bool `json:"chivato"`
	// Timeout is the long-poll timeout in seconds.
	Timeout int `json:"timeout"`
}

// FacebookConfig represents the Facebook Messenger webhook configuration.
type FacebookConfig struct {
	Enabled     bool   `json:"enabled"`
	PageToken   string `json:"pageToken"`
	VerifyToken string `json:"verifyToken"`
	Host        string `json:"host"`
	Port        int    `json:"port"`
}

// ComponentsConfig holds the per-component sections. Each component reads
// only its own section; the core passes the whole Config through unmodified.
type ComponentsConfig struct {
	Weather      WeatherConfig      `json:"weather"`
	Arxiv        ArxivConfig        `json:"arxiv"`
	Wiki         WikiConfig         `json:"wiki"`
	System       SystemConfig       `json:"system"`
	Scripts      ScriptsConfig      `json:"scripts"`
	Stocks       StocksConfig       `json:"stocks"`
	Github       GithubConfig       `json:"github"`
	Repositories RepositoriesConfig `json:"repositories"`
}

// WeatherConfig represents the weather component configuration.
type WeatherConfig struct {
	APIKey          string `json:"apiKey"`
	DefaultLocation string `json:"defaultLocation"`
	Units           string `json:"units"`
}

// ArxivConfig represents the arxiv component configuration.
type ArxivConfig struct {
	Categories []string `json:"categories"`
	// Keywords filter the daily digest: only entries whose title or
	// abstract mention one of them are included. Empty means no filter.
	Keywords []string `json:"keywords"`
}

// WikiConfig represents the wiki component configuration.
type WikiConfig struct {
	Language    string `json:"language"`
	SummarySize int    `json:"summarySize"`
}

// SystemConfig maps command keywords to the actual commands the operator
// allows to be run through /system.
type SystemConfig struct {
	Commands map[string]string `json:"commands"`
}

// ScriptsConfig maps script names to paths runnable through /script.
type ScriptsConfig struct {
	Scripts map[string]string `json:"scripts"`
}

// StocksConfig represents the stock watcher configuration.
type StocksConfig struct {
	// WatchFile is a JSON file mapping tickers to threshold conditions.
	WatchFile string `json:"watchFile"`
}

// GithubConfig represents the github issue watcher configuration.
type GithubConfig struct {
	Token string   `json:"token"`
	Repos []string `json:"repos"`
	// StateFile stores the timestamp of the last issue check.
	StateFile string `json:"stateFile"`
}

// RepositoriesConfig lists local git repositories to scan for incoming changes.
type RepositoriesConfig struct {
	Paths []string `json:"paths"`
}

// DefaultConfig returns a new Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		MainFolder: "~/.librarian",
		Telegram: TelegramConfig{
			Token:   "",
			ChatIDs: []int64{},
			Chivato: false,
			Timeout: 300,
		},
		Facebook: FacebookConfig{
			Enabled: false,
			Host:    "0.0.0.0",
			Port:    3000,
		},
		Components: ComponentsConfig{
			Weather: WeatherConfig{
				Units: "metric",
			},
			Wiki: WikiConfig{
				Language:    "en",
				SummarySize: 1024,
			},
			System: SystemConfig{
				Commands: map[string]string{"uptime": "uptime"},
			},
			Scripts: ScriptsConfig{
				Scripts: map[string]string{},
			},
		},
	}
}

// MainID returns the main chat id (the first allow-listed id), or 0 when
// no chat id has been configured.
func (c *Config) MainID() int64 {
	if len(c.Telegram.ChatIDs) == 0 {
		return 0
	}
	return c.Telegram.ChatIDs[0]
}

// IsAllowed reports whether the given chat id is in the operator allow-list.
func (c *Config) IsAllowed(chatID int64) bool {
	for _, id := range c.Telegram.ChatIDs {
		if id == chatID {
			return true
		}
	}
	return false
}

// MainFolderPath returns the absolute path to the main data folder,
// expanding ~ to the user's home directory.
func (c *Config) MainFolderPath() string {
	folder := c.MainFolder
	if folder == "" {
		folder = "~/.librarian"
	}
	return expandPath(folder)
}

// expandPath expands ~ to the user's home directory and resolves the path.
func expandPath(path string) string {
	if path == "" {
		return path
	}

	if path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		if len(path) == 1 {
			return home
		}
		if path[1] == '/' || path[1] == filepath.Separator {
			path = filepath.Join(home, path[2:])
		} else {
			path = filepath.Join(home, path[1:])
		}
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return path
	}

	return absPath
}
