package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hmontero/librarian/internal/components"
	"github.com/hmontero/librarian/internal/loop"
)

var (
	clearErrors bool
	exitOnMsg   bool
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Listen for incoming messages",
	Long:  "Start the update loop that listens for incoming messages and dispatches commands until interrupted.",
	RunE:  runDaemon,
}

func init() {
	daemonCmd.Flags().BoolVar(&clearErrors, "clear", false, "keep running when a handler fails, up to a failure threshold")
	daemonCmd.Flags().BoolVar(&exitOnMsg, "exit-on-msg", false, "exit after the first batch of messages")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	b, err := buildBackend(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	driver := loop.New(b, components.NewRegistry(), cfg, loop.Options{
		Clear:     clearErrors,
		ExitOnMsg: exitOnMsg,
	})

	slog.Info("listening for messages", "backend", b.Name())
	fmt.Printf("librarian is listening on %s, press Ctrl+C to stop\n", b.Name())
	return driver.Run(ctx)
}
