package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hmontero/librarian/internal/backend"
	"github.com/hmontero/librarian/internal/components"
	"github.com/hmontero/librarian/internal/config"
	"github.com/hmontero/librarian/internal/dispatch"
	"github.com/hmontero/librarian/internal/logging"
)

var (
	configPath  string
	debug       bool
	backendName string

	cliArgs   dispatch.CmdArgs
	imagePath string
	filePath  string
)

var rootCmd = &cobra.Command{
	Use:   "librarian [message...]",
	Short: "librarian - your personal Telegram assistant",
	Long: `librarian is a personal assistant that listens on Telegram and can also
be driven from the command line, typically from cron jobs. With no
subcommand it runs in one-shot mode: it executes the requested component
actions and sends the given message, image or file to your chat.`,
	RunE: runOneShot,
}

// Execute runs the CLI. It is called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the configuration file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "log debug output to the terminal")
	rootCmd.PersistentFlags().StringVar(&backendName, "backend", "telegram", "messaging backend (telegram, facebook, test)")

	flags := rootCmd.Flags()
	flags.BoolVar(&cliArgs.MyIP, "my-ip", false, "send the public IP of this machine")
	flags.Int32SliceVar(&cliArgs.PIDs, "pid", nil, "wait until the given PIDs finish before acting")
	flags.BoolVar(&cliArgs.Weather, "weather", false, "send the weather at the default location")
	flags.BoolVar(&cliArgs.ArxivNew, "arxiv-new", false, "send the digest of new arxiv submissions")
	flags.BoolVar(&cliArgs.CheckRepos, "check-repository", false, "check the configured git checkouts")
	flags.BoolVar(&cliArgs.StockWatcher, "stock-watcher", false, "check the stock watch file for crossed thresholds")
	flags.BoolVar(&cliArgs.GithubIssues, "github-issues", false, "send new issues on the watched repositories")
	flags.StringVar(&cliArgs.Roll, "roll", "", "roll dice, e.g. 2d8+2")
	flags.StringVar(&imagePath, "image", "", "send the image at this path")
	flags.StringVar(&filePath, "file", "", "send the file at this path")

	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig loads the configuration and sets up logging; every
// subcommand goes through it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if _, err := logging.Setup(cfg.MainFolderPath(), debug); err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}
	return cfg, nil
}

// buildBackend picks the messaging backend named by --backend.
func buildBackend(cfg *config.Config) (backend.Backend, error) {
	switch backendName {
	case "telegram":
		return backend.NewTelegramBackend(cfg.Telegram.Token, cfg.Telegram.Timeout)
	case "facebook":
		return backend.NewFacebookBackend(cfg.Facebook), nil
	case "test":
		return backend.NewTestBackend(""), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", backendName)
	}
}

// componentNames maps the set flags to the components to invoke, in the
// order they should run. Waiting for PIDs always happens first.
func componentNames(args *dispatch.CmdArgs) []string {
	var names []string
	if len(args.PIDs) > 0 {
		names = append(names, "pid")
	}
	if args.MyIP {
		names = append(names, "ip")
	}
	if args.Weather {
		names = append(names, "weather")
	}
	if args.ArxivNew {
		names = append(names, "arxiv")
	}
	if args.StockWatcher {
		names = append(names, "stocks")
	}
	if args.GithubIssues {
		names = append(names, "github")
	}
	if args.CheckRepos {
		names = append(names, "repositories")
	}
	if args.Roll != "" {
		names = append(names, "roll")
	}
	return names
}

func runOneShot(cmd *cobra.Command, args []string) error {
	cliArgs.Message = args
	names := componentNames(&cliArgs)
	if len(names) == 0 && len(args) == 0 && imagePath == "" && filePath == "" {
		return cmd.Help()
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	b, err := buildBackend(cfg)
	if err != nil {
		return err
	}

	registry := components.NewRegistry()
	if err := registry.RunCommandLine(b, cfg, names, &cliArgs); err != nil {
		return err
	}

	chatID := cfg.MainID()
	if len(cliArgs.Message) > 0 {
		if err := b.SendText(strings.Join(cliArgs.Message, " "), chatID, false); err != nil {
			return err
		}
	}
	if imagePath != "" {
		if err := b.SendImage(imagePath, chatID); err != nil {
			return err
		}
	}
	if filePath != "" {
		if err := b.SendFile(filePath, chatID); err != nil {
			return err
		}
	}
	return nil
}
