// Package loop drives the daemon mode: it repeatedly asks the backend for
// update batches and acts on every message, one at a time, to completion.
// Commands go to the dispatch registry, files are saved under a
// time-bucketed folder, and plain text lands in a daily log.
package loop

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hmontero/librarian/internal/backend"
	"github.com/hmontero/librarian/internal/config"
	"github.com/hmontero/librarian/internal/dispatch"
)

// failThreshold is the number of consecutive per-message failures tolerated
// in resilient mode before the error is allowed to propagate. One bad
// message in a batch should not halt the loop, but a persistently broken
// credential or dependency must not be silently retried forever.
const failThreshold = 20

// Options control the driver's behavior.
type Options struct {
	// Clear enables resilient mode: per-message errors are swallowed and
	// logged, up to failThreshold consecutive failures.
	Clear bool
	// ExitOnMsg stops the loop after the first processed batch.
	ExitOnMsg bool
}

// Driver owns the Waiting/Processing cycle. It is strictly
// single-threaded: one long-poll at a time, one message at a time.
type Driver struct {
	backend  backend.Backend
	registry *dispatch.Registry
	cfg      *config.Config
	opts     Options
	log      *slog.Logger

	failCount int
}

// New builds a loop driver.
func New(b backend.Backend, registry *dispatch.Registry, cfg *config.Config, opts Options) *Driver {
	return &Driver{
		backend:  b,
		registry: registry,
		cfg:      cfg,
		opts:     opts,
		log:      slog.Default().With("module", "loop"),
	}
}

// Run blocks processing update batches until the context is cancelled, a
// systemic failure propagates, or (with ExitOnMsg) one batch has been
// handled.
func (d *Driver) Run(ctx context.Context) error {
	for {
		if err := d.backend.ActOnUpdates(ctx, d.actOnMessage, true); err != nil {
			return err
		}
		if d.opts.ExitOnMsg {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}

// actOnMessage handles one normalized message, wrapped by the failure
// containment policy.
func (d *Driver) actOnMessage(msg *backend.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while handling message: %v", r)
		}
		if err == nil {
			return
		}
		d.log.Error("message produced an error", "error", err)
		if d.opts.Clear && d.failCount < failThreshold {
			d.failCount++
			d.log.Info("going for the next message", "consecutive_failures", d.failCount)
			err = nil
		}
	}()

	// An ignorable message is not a failure.
	if msg.Ignore {
		d.failCount = 0
		return nil
	}

	// Chivato mode: messages from outside the allow-list are forwarded
	// to the operator as an audit side channel. Normal processing
	// continues regardless.
	if d.cfg.Telegram.Chivato && !d.cfg.IsAllowed(msg.ChatID) {
		audit := fmt.Sprintf("User @%s (chat_id=%d) sent the following message:\n%s",
			msg.Username, msg.ChatID, msg.Raw())
		if err := d.backend.SendText(audit, d.cfg.MainID(), false); err != nil {
			d.log.Warn("failed to forward audit message", "error", err)
		}
	}

	switch {
	case msg.IsCommand():
		err = d.registry.ActOnCommand(d.backend, d.cfg, msg)
	case msg.IsFile():
		err = d.saveFile(msg)
	default:
		err = d.logAndAcknowledge(msg)
	}
	if err == nil {
		d.failCount = 0
	}
	return err
}

// saveFile downloads the message's attachment into the monthly folder and
// reports the outcome to the sender.
func (d *Driver) saveFile(msg *backend.Message) error {
	fileName := strings.ReplaceAll(msg.Text, " ", "")
	folder, err := monthlyFolder(d.cfg.MainFolderPath())
	if err != nil {
		return err
	}

	saved, err := d.backend.DownloadFile(msg.FileID, filepath.Join(folder, fileName))
	if err != nil {
		d.log.Warn("there was a problem with this update", "error", err)
		return d.backend.SendText("There was some problem with this, sorry", msg.ChatID, false)
	}

	d.log.Info("file saved", "path", saved)
	return d.backend.SendText("File received and saved!", msg.ChatID, false)
}

// logAndAcknowledge appends plain text to the daily log and sends back a
// lightweight reply.
func (d *Driver) logAndAcknowledge(msg *backend.Message) error {
	if err := writeDailyLog(d.cfg.MainFolderPath(), msg.Text); err != nil {
		return err
	}
	return d.backend.SendText(stillAlive(), msg.ChatID, false)
}

// monthlyFolder returns (creating it if needed) the time-bucketed data
// folder, e.g. <main>/data/2026/August.
func monthlyFolder(mainFolder string) (string, error) {
	now := time.Now()
	folder := filepath.Join(mainFolder, "data",
		fmt.Sprintf("%d", now.Year()), now.Month().String())
	if err := os.MkdirAll(folder, 0755); err != nil {
		return "", fmt.Errorf("failed to create monthly folder %s: %w", folder, err)
	}
	return folder, nil
}

// writeDailyLog appends one line to the current day's log file inside the
// monthly folder.
func writeDailyLog(mainFolder, text string) error {
	folder, err := monthlyFolder(mainFolder)
	if err != nil {
		return err
	}
	path := filepath.Join(folder, fmt.Sprintf("%d.log", time.Now().Day()))

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open daily log %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.WriteString(text + "\n"); err != nil {
		return fmt.Errorf("failed to write daily log %s: %w", path, err)
	}
	return nil
}
