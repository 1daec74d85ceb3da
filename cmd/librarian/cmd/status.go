package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hmontero/librarian/internal/config"
	"github.com/hmontero/librarian/internal/tui"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the configuration status",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	if !config.Exists(configPath) {
		fmt.Println("No configuration found. Run 'librarian setup' first.")
		return nil
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	tui.ShowStatus(cfg)
	return nil
}
