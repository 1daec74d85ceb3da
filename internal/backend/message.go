package backend

import "strings"

// UnknownUser is the username reported when the backend populated none of
// the naming fields of the sender.
const UnknownUser = "unknown_user"

// Message is the canonical, backend-agnostic view of one incoming update.
// It is built once per update by the backend's normalizer and is read-only
// afterwards.
type Message struct {
	// ChatID identifies the conversation the message arrived on.
	ChatID int64
	// Username is the best-effort display name of the sender.
	Username string
	// Text is the textual payload. For commands it holds only the
	// arguments; for files it holds the caption or file name.
	Text string
	// Command is the parsed command name, without the leading slash and
	// without any @bot suffix. Empty when the message is not a command.
	Command string
	// HasArguments reports whether a command came with trailing text.
	HasArguments bool
	// FileID is the backend's opaque reference to an attached photo or
	// document. Empty for text messages.
	FileID string
	// IsGroup is true when the chat is a multi-party conversation.
	IsGroup bool
	// Ignore marks updates that carry no actionable content (stickers,
	// join/leave events, unrecognized shapes). When set, every other
	// field is meaningless and consumers must skip the message.
	Ignore bool
}

// IsCommand reports whether the message carries a command.
func (m *Message) IsCommand() bool {
	return m.Command != ""
}

// IsFile reports whether the message carries a file reference.
func (m *Message) IsFile() bool {
	return m.FileID != ""
}

// Raw reconstructs a human-readable form of the message, understood as
// command + text, for audit forwarding and logging.
func (m *Message) Raw() string {
	var b strings.Builder
	if m.IsCommand() {
		b.WriteString("/")
		b.WriteString(m.Command)
		b.WriteString(" ")
	}
	b.WriteString(m.Text)
	if m.IsFile() {
		b.WriteString(" (contains file)")
	}
	return b.String()
}

// parseCommand splits a command message into the command name and the
// remaining text. A command is a message starting with "/"; an "@bot"
// suffix on the name (a directed command in a group) is discarded.
// ok is false when the text is not a command at all.
func parseCommand(text string) (command, rest string, ok bool) {
	if !strings.HasPrefix(text, "/") {
		return "", text, false
	}
	parts := strings.SplitN(text, " ", 2)
	command = strings.TrimPrefix(parts[0], "/")
	if at := strings.Index(command, "@"); at >= 0 {
		command = command[:at]
	}
	if len(parts) == 2 {
		rest = parts[1]
	}
	return command, rest, true
}

// applyCommand fills in the command fields of a message from its text.
// Captions on files are deliberately never command-parsed, so this is only
// called on the plain-text path: a message is either a command, a file or
// plain text, never two of those at once.
func (m *Message) applyCommand(text string) {
	command, rest, ok := parseCommand(text)
	if !ok {
		m.Text = text
		return
	}
	m.Command = command
	m.Text = rest
	m.HasArguments = rest != ""
}
