package advisor

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Narrator rewrites suggestions into a short paragraph.
type Narrator interface {
	Narrate(ctx context.Context, suggestions []Suggestion) (string, error)
	ModelName() string
}

// Compile-time interface checks
var (
	_ Narrator = (*OpenAINarrator)(nil)
	_ Narrator = NoopNarrator{}
)

const systemPrompt = "You are a friendly food diary assistant. Rewrite the observations " +
	"you are given as one short, encouraging paragraph. Do not give medical advice " +
	"and do not invent observations."

// ChatService defines the chat completion call the narrator needs.
// This abstraction enables testing without calling the real OpenAI API.
type ChatService interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// OpenAINarrator narrates with OpenAI chat completions.
type OpenAINarrator struct {
	chat  ChatService
	model openai.ChatModel
}

// NewOpenAINarrator creates a narrator using the given API key and model.
func NewOpenAINarrator(apiKey, model string) *OpenAINarrator {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return NewOpenAINarratorWithService(client.Chat.Completions, model)
}

// NewOpenAINarratorWithService creates a narrator over an existing chat service.
func NewOpenAINarratorWithService(chat ChatService, model string) *OpenAINarrator {
	return &OpenAINarrator{chat: chat, model: openai.ChatModel(model)}
}

// Narrate returns "" without calling the API when there is nothing to say.
func (o *OpenAINarrator) Narrate(ctx context.Context, suggestions []Suggestion) (string, error) {
	if len(suggestions) == 0 {
		return "", nil
	}

	lines := make([]string, len(suggestions))
	for i, s := range suggestions {
		lines[i] = "- " + s.Message
	}

	resp, err := o.chat.New(ctx, openai.ChatCompletionNewParams{
		Messages: openai.F([]openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(strings.Join(lines, "\n")),
		}),
		Model: openai.F(o.model),
	})
	if err != nil {
		return "", fmt.Errorf("narration failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("narration failed: no choices returned")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// ModelName returns the chat model name.
func (o *OpenAINarrator) ModelName() string {
	return string(o.model)
}

// NoopNarrator joins the suggestion messages without calling any service.
type NoopNarrator struct{}

// Narrate joins the messages with spaces.
func (NoopNarrator) Narrate(_ context.Context, suggestions []Suggestion) (string, error) {
	msgs := make([]string, len(suggestions))
	for i, s := range suggestions {
		msgs[i] = s.Message
	}
	return strings.Join(msgs, " "), nil
}

// ModelName reports that no model is used.
func (NoopNarrator) ModelName() string {
	return "none"
}
