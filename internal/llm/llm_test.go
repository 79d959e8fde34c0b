// File path: internal/llm/llm_test.go
package llm

import (
	"context"
	"strings"
	"testing"

	"github.com/issuepilot-ai/issuepilot/internal/llm/providers"
)

func TestNewProviderFallsBackToLocal(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	provider := NewProvider()
	if provider.Name() != "local" {
		t.Fatalf("expected local provider, got %q", provider.Name())
	}
}

func TestNormalizeMessages(t *testing.T) {
	messages, err := providers.NormalizeMessages([]Message{{Role: "System", Content: "a"}, {Role: "USER", Content: "b"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if messages[0].Role != "system" || messages[1].Role != "user" {
		t.Errorf("roles not lowercased: %+v", messages)
	}
}

func TestNormalizeMessagesRejectsEmpty(t *testing.T) {
	if _, err := providers.NormalizeMessages(nil); err == nil {
		t.Fatal("expected error for empty message list")
	}
}

func TestChatNormalizesRolesBeforeDispatch(t *testing.T) {
	local := providers.NewLocalProvider()
	messages := []Message{
		{Role: "SYSTEM", Content: "instructions"},
		{Role: "User", Content: "what shipped?"},
	}
	if _, err := local.Chat(context.Background(), messages); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if messages[0].Role != "system" || messages[1].Role != "user" {
		t.Errorf("roles not normalized on dispatch: %+v", messages)
	}
}

func TestChatRejectsEmptyConversation(t *testing.T) {
	local := providers.NewLocalProvider()
	if _, err := local.Chat(context.Background(), nil); err == nil {
		t.Fatal("expected error for empty conversation")
	}
}

func TestLocalProviderChatEchoesLastMessage(t *testing.T) {
	local := providers.NewLocalProvider()
	reply, err := local.Chat(context.Background(), []Message{
		{Role: "system", Content: "instructions"},
		{Role: "user", Content: "  what shipped?  "},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(reply, "what shipped?") {
		t.Errorf("reply = %q", reply)
	}
}

func TestLocalProviderEmbedIsDeterministic(t *testing.T) {
	local := providers.NewLocalProvider()
	first, err := local.Embed(context.Background(), []string{"alpha beta", "gamma"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, _ := local.Embed(context.Background(), []string{"alpha beta", "gamma"})
	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("expected 2 vectors, got %d and %d", len(first), len(second))
	}
	for i := range first[0] {
		if first[0][i] != second[0][i] {
			t.Fatalf("embedding not deterministic at dim %d", i)
		}
	}
}
