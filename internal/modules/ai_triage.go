package modules

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/Nigelli/laikaboss/internal/model"
	"github.com/Nigelli/laikaboss/internal/runtime"
)

// AiTriageModule sends an object's already-accumulated flags and a short
// excerpt of its buffer to a chat-completion model and records the model's
// free-text triage note as metadata. It never itself sets a disposition or
// a MALICIOUS-class flag — spec.md's disposition table is the single
// authority for verdicts (§4.5); this module only adds an
// "AI_TRIAGE:REVIEWED" flag plus a metadata note a human or a downstream
// disposition rule can consult, keeping the deterministic P5
// (disposition-is-a-pure-function-of-committed-flags) guarantee intact
// even though the module's own output is not reproducible token-for-token.
//
// Kept off the default dispatch path in the shipped tables (the embedded
// module table lists it disabled): it is wired opt-in per rule (e.g.
// "SUSPICIOUS_ATTACHMENT : AI_TRIAGE") since it is the one built-in module
// that leaves the process boundary, and laikaboss.go registers it only when
// an OpenAI client is supplied.
type AiTriageModule struct {
	Client *openai.Client
	Model  string
}

func NewAiTriage(client *openai.Client, model string) runtime.Module {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &AiTriageModule{Client: client, Model: model}
}

func (m *AiTriageModule) Name() string { return "AI_TRIAGE" }

func (m *AiTriageModule) Run(ctx context.Context, h *runtime.Handle, _ *model.ScanResult, _ map[string]interface{}) ([]runtime.ChildSpec, error) {
	excerpt := h.Buffer()
	if len(excerpt) > 2048 {
		excerpt = excerpt[:2048]
	}

	prompt := fmt.Sprintf(
		"Object %s has flags %v and object_type %v. First bytes (best-effort text): %q\nGive a one-sentence triage note.",
		h.UUID(), h.ExistingFlags(), h.ObjectType(), sanitizeForPrompt(excerpt),
	)

	resp, err := m.Client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: m.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: "You are a terse malware-triage assistant."},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("ai_triage: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("ai_triage: no completion choices returned")
	}

	h.AddMetadata("note", strings.TrimSpace(resp.Choices[0].Message.Content))
	h.AddFlag("AI_TRIAGE:REVIEWED")
	return nil, nil
}

func sanitizeForPrompt(b []byte) string {
	out := make([]rune, 0, len(b))
	for _, r := range string(b) {
		if r >= 0x20 && r < 0x7f {
			out = append(out, r)
		}
	}
	return string(out)
}
