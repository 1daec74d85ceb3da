package backend

import "testing"

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		command  string
		rest     string
		ok       bool
	}{
		{"plain text", "hello there", "", "hello there", false},
		{"bare command", "/ip", "ip", "", true},
		{"command with args", "/weather Turin", "weather", "Turin", true},
		{"directed command", "/ip@my_bot", "ip", "", true},
		{"directed with args", "/roll@my_bot 2d6", "roll", "2d6", true},
		{"slash alone", "/", "", "", true},
		{"args keep spaces", "/wiki  leading space", "wiki", " leading space", true},
		{"slash mid-text", "not /a command", "", "not /a command", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			command, rest, ok := parseCommand(tt.text)
			if command != tt.command || rest != tt.rest || ok != tt.ok {
				t.Errorf("parseCommand(%q) = (%q, %q, %t), want (%q, %q, %t)",
					tt.text, command, rest, ok, tt.command, tt.rest, tt.ok)
			}
		})
	}
}

func TestApplyCommand(t *testing.T) {
	t.Run("command without arguments", func(t *testing.T) {
		var m Message
		m.applyCommand("/ip")
		if !m.IsCommand() || m.Command != "ip" {
			t.Fatalf("expected command ip, got %q", m.Command)
		}
		if m.HasArguments {
			t.Error("bare command should not report arguments")
		}
		if m.Text != "" {
			t.Errorf("text should be empty, got %q", m.Text)
		}
	})

	t.Run("command with arguments", func(t *testing.T) {
		var m Message
		m.applyCommand("/weather Turin, IT")
		if m.Command != "weather" || m.Text != "Turin, IT" {
			t.Fatalf("got command %q text %q", m.Command, m.Text)
		}
		if !m.HasArguments {
			t.Error("expected HasArguments")
		}
	})

	t.Run("plain text stays plain", func(t *testing.T) {
		var m Message
		m.applyCommand("just a note")
		if m.IsCommand() {
			t.Error("plain text must not become a command")
		}
		if m.Text != "just a note" {
			t.Errorf("text mangled: %q", m.Text)
		}
	})
}

func TestMessageRaw(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want string
	}{
		{"plain", Message{Text: "hello"}, "hello"},
		{"command", Message{Command: "weather", Text: "Turin"}, "/weather Turin"},
		{"file", Message{Text: "report.pdf", FileID: "abc"}, "report.pdf (contains file)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.msg.Raw(); got != tt.want {
				t.Errorf("Raw() = %q, want %q", got, tt.want)
			}
		})
	}
}
