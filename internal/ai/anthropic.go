package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"dinecall/internal/modules/slots"
)

const defaultAnthropicModel = "claude-3-5-haiku-latest"

// AnthropicExtractor implements Extractor with the Messages API.
type AnthropicExtractor struct {
	client *anthropic.Client
	model  string
}

func NewAnthropicExtractor(apiKey, modelName, baseURL string) *AnthropicExtractor {
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if modelName == "" {
		modelName = defaultAnthropicModel
	}
	client := anthropic.NewClient(opts...)
	return &AnthropicExtractor{client: &client, model: modelName}
}

func (e *AnthropicExtractor) Name() string { return "anthropic" }

func (e *AnthropicExtractor) Extract(ctx context.Context, utterance string, known slots.Set) (slots.Update, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(e.model),
		MaxTokens:   512,
		Temperature: anthropic.Float(0),
		System:      []anthropic.TextBlockParam{{Text: systemInstruction}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildUserPrompt(utterance, known))),
		},
	}

	resp, err := e.client.Messages.New(ctx, params)
	if err != nil {
		return slots.Update{}, fmt.Errorf("%w: anthropic api error: %v", ErrExtractionUnavailable, err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.AsText().Text)
		}
	}
	if text.Len() == 0 {
		return slots.Update{}, fmt.Errorf("%w: empty anthropic response", ErrExtractionUnavailable)
	}
	return parseExtraction(text.String())
}
