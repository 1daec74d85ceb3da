// Package reactions stores and serves reaction pictures by name. Pictures
// live under <mainFolder>/reactions with the name as the file stem, so a
// reaction keeps whatever extension it arrived with.
package reactions

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/hmontero/librarian/internal/backend"
	"github.com/hmontero/librarian/internal/dispatch"
)

// Help is the usage text aggregated by /help.
const Help = ` > Reactions module
   /reaction name: sends back the stored reaction picture
   /reaction_list: lists the stored reaction pictures
   /reaction_save name: stores the last picture you sent me under that name`

// Component serves reaction pictures.
type Component struct {
	inv    *dispatch.Invocation
	folder string
	log    *slog.Logger
}

// New builds the reactions handler. The reactions folder is created on
// first use, not here, so an unconfigured setup costs nothing.
func New(inv *dispatch.Invocation) (dispatch.Handler, error) {
	return &Component{
		inv:    inv,
		folder: filepath.Join(inv.Config.MainFolderPath(), "reactions"),
		log:    slog.Default().With("component", "reactions"),
	}, nil
}

// lookup returns every stored file whose stem matches name, any extension.
func (c *Component) lookup(name string) []string {
	matches, err := filepath.Glob(filepath.Join(c.folder, name+".*"))
	if err != nil {
		return nil
	}
	return matches
}

// list returns the stems of all stored reactions, sorted.
func (c *Component) list() []string {
	entries, err := os.ReadDir(c.folder)
	if err != nil {
		return nil
	}
	stems := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		stems = append(stems, strings.TrimSuffix(name, filepath.Ext(name)))
	}
	sort.Strings(stems)
	return stems
}

// newestSavedFile walks the incoming-file archive and returns the most
// recently modified file, or an error when the archive is empty.
func newestSavedFile(dataFolder string) (string, error) {
	var newest string
	var newestTime time.Time
	err := filepath.WalkDir(dataFolder, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if newest == "" || info.ModTime().After(newestTime) {
			newest = path
			newestTime = info.ModTime()
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if newest == "" {
		return "", fmt.Errorf("no saved files under %s", dataFolder)
	}
	return newest, nil
}

// save copies src into the reactions folder under name, keeping the
// source's extension.
func (c *Component) save(name, src string) (string, error) {
	if err := os.MkdirAll(c.folder, 0o755); err != nil {
		return "", err
	}
	dest := filepath.Join(c.folder, name+filepath.Ext(src))
	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()
	out, err := os.Create(dest)
	if err != nil {
		return "", err
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return "", err
	}
	return dest, nil
}

// TelegramMessage handles /reaction, /reaction_list and /reaction_save.
// Sending and listing are open to everyone; saving writes to disk and is
// reserved for the operator.
func (c *Component) TelegramMessage(msg *backend.Message) error {
	switch msg.Command {
	case "reaction_list":
		stems := c.list()
		if len(stems) == 0 {
			return c.inv.Reply("No reaction pics saved yet")
		}
		return c.inv.Reply("Reaction pics: " + strings.Join(stems, ", "))

	case "reaction_save":
		if !c.inv.CheckIdentity(msg) {
			return c.inv.NotAllowed(msg)
		}
		name := strings.ReplaceAll(strings.TrimSpace(msg.Text), " ", "")
		if name == "" {
			return c.inv.Reply("What name should the reaction get?")
		}
		src, err := newestSavedFile(filepath.Join(c.inv.Config.MainFolderPath(), "data"))
		if err != nil {
			return c.inv.Reply("Send me the picture first, then /reaction_save name")
		}
		saved, err := c.save(name, src)
		if err != nil {
			c.log.Warn("could not save reaction", "name", name, "error", err)
			return c.inv.Reply("There was some problem with this, sorry")
		}
		c.log.Info("reaction saved", "path", saved)
		return c.inv.Reply(fmt.Sprintf("Reaction image %s correctly saved", name))

	default:
		name := strings.TrimSpace(msg.Text)
		if name == "" {
			return c.inv.Reply("Which reaction do you want?")
		}
		files := c.lookup(name)
		if len(files) == 0 {
			return c.inv.Reply(fmt.Sprintf("Error: reaction '%s' not found", name))
		}
		for _, file := range files {
			if err := c.inv.Backend.SendImage(file, c.inv.ChatID); err != nil {
				return err
			}
		}
		return nil
	}
}

// CommandLine is not wired to any flag.
func (c *Component) CommandLine(args *dispatch.CmdArgs) error {
	return nil
}
