package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hmontero/librarian/internal/backend"
	"github.com/hmontero/librarian/internal/tui"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Run the interactive setup wizard",
	Long:  "Run the interactive setup wizard to configure the Telegram token, your chat id, and the optional components.",
	RunE:  runSetup,
}

func runSetup(cmd *cobra.Command, args []string) error {
	cfg, err := tui.RunSetup(discoverChatID)
	if err != nil {
		return fmt.Errorf("setup failed: %w", err)
	}

	fmt.Println()
	tui.ShowStatus(cfg)

	fmt.Println()
	fmt.Println("You can now:")
	fmt.Println("  - Start listening:       librarian daemon")
	fmt.Println("  - Send yourself a note:  librarian hello world")
	fmt.Println("  - View the status:       librarian status")
	return nil
}

// discoverChatID waits for one message to the bot and reports who sent it
// from where. The wizard uses it to fill in the chat id.
func discoverChatID(token string) (int64, string, error) {
	b, err := backend.NewTelegramBackend(token, 30)
	if err != nil {
		return 0, "", err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	updates, err := b.FetchUpdates(ctx, true)
	if err != nil {
		return 0, "", err
	}
	for _, update := range updates {
		msg := backend.ParseTelegramUpdate(update)
		if msg == nil || msg.Ignore {
			continue
		}
		return msg.ChatID, msg.Username, nil
	}
	return 0, "", fmt.Errorf("no usable message arrived")
}
