package telegram

import (
	"strings"
	"testing"
)

func TestHandleCommand(t *testing.T) {
	b := &Bot{}
	for _, cmd := range []string{"start", "help"} {
		got := b.handleCommand(cmd)
		if got != Greeting {
			t.Errorf("handleCommand(%q) = %q, want greeting", cmd, got)
		}
	}
	if got := b.handleCommand("settings"); got == Greeting || got == "" {
		t.Errorf("unknown command should get a fallback reply, got %q", got)
	}
}

func TestGreetingMentionsBothPrograms(t *testing.T) {
	for _, want := range []string{"Искусственный интеллект", "Управление ИИ-продуктами"} {
		if !strings.Contains(Greeting, want) {
			t.Errorf("greeting does not mention %q", want)
		}
	}
}
