// Package backend abstracts the messaging services the librarian can talk
// to. Each backend normalizes its own raw updates into the canonical
// Message type and exposes a small set of delivery primitives, so the
// update loop and the command registry never see backend-specific payloads.
package backend

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Backend is the interface every messaging backend implements.
type Backend interface {
	// Name returns the backend's unique identifier.
	Name() string

	// ActOnUpdates retrieves one batch of updates, normalizes each into
	// a Message and invokes action on it, in the order the backend
	// delivered them. When blockUntilNonEmpty is set the call does not
	// return until at least one update arrived. The first action error
	// stops the iteration and is returned.
	ActOnUpdates(ctx context.Context, action func(*Message) error, blockUntilNonEmpty bool) error

	// SendText delivers a text message to the chat, transparently
	// splitting payloads above the backend's maximum size. When markdown
	// is set and the backend rejects the markup, the text is retried
	// once without formatting.
	SendText(text string, chatID int64, markdown bool) error

	// SendImage uploads an image from a local path.
	SendImage(path string, chatID int64) error

	// SendFile uploads a document from a local path.
	SendFile(path string, chatID int64) error

	// DownloadFile resolves an opaque file reference and retrieves it,
	// never overwriting an existing file at the destination. It returns
	// the path actually written.
	DownloadFile(fileID, destPath string) (string, error)
}

// splitMessage breaks text into chunks of at most max bytes, preferring a
// newline and then a space as the break point, searching backward from the
// cutoff but only accepting a break past the midpoint so chunks never get
// pathologically short.
func splitMessage(text string, max int) []string {
	var parts []string
	for len(text) > max {
		cut := breakPoint(text, max)
		parts = append(parts, text[:cut])
		text = strings.TrimLeft(text[cut:], " \n")
	}
	return append(parts, text)
}

// breakPoint finds the position at which to break text so the first chunk
// fits in max bytes.
func breakPoint(text string, max int) int {
	if len(text) <= max {
		return len(text)
	}
	window := text[:max]
	for _, sep := range []string{"\n", " "} {
		if idx := strings.LastIndex(window, sep); idx > max/2 {
			return idx
		}
	}
	return max
}

// downloadURL retrieves url to destPath, picking a non-clobbering
// destination name, and returns the path actually written.
func downloadURL(client *http.Client, url, destPath string) (string, error) {
	resp, err := client.Get(url)
	if err != nil {
		return "", fmt.Errorf("failed to download %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to download %s: status %s", url, resp.Status)
	}

	destPath = uniquePath(destPath)
	out, err := os.Create(destPath)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", destPath, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", destPath, err)
	}
	return destPath, nil
}

// uniquePath returns path if nothing exists there, or an alternate name in
// the same directory with a numbered prefix otherwise.
func uniquePath(path string) string {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}
	dir, base := filepath.Split(path)
	for n := 0; ; n++ {
		alt := filepath.Join(dir, fmt.Sprintf("n%d-%s", n, base))
		if _, err := os.Stat(alt); os.IsNotExist(err) {
			return alt
		}
	}
}
