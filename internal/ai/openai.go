package ai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"dinecall/internal/modules/slots"
)

// OpenAIExtractor implements Extractor with the Chat Completions API in JSON mode.
type OpenAIExtractor struct {
	client *openai.Client
	model  string
}

// NewOpenAIExtractor builds a client; baseURL is optional and mostly used by tests.
func NewOpenAIExtractor(apiKey, modelName, baseURL string) *OpenAIExtractor {
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if modelName == "" {
		modelName = openai.ChatModelGPT4oMini
	}
	client := openai.NewClient(opts...)
	return &OpenAIExtractor{client: &client, model: modelName}
}

func (e *OpenAIExtractor) Name() string { return "openai" }

func (e *OpenAIExtractor) Extract(ctx context.Context, utterance string, known slots.Set) (slots.Update, error) {
	params := openai.ChatCompletionNewParams{
		Model:       e.model,
		Temperature: openai.Float(0),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemInstruction),
			openai.UserMessage(buildUserPrompt(utterance, known)),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	}

	resp, err := e.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return slots.Update{}, fmt.Errorf("%w: openai api error: %v", ErrExtractionUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return slots.Update{}, fmt.Errorf("%w: no choices returned", ErrExtractionUnavailable)
	}
	return parseExtraction(resp.Choices[0].Message.Content)
}
