package textgen

import (
	"context"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

type openaiBackend struct {
	client openai.Client
	model  shared.ChatModel
}

func newOpenAI(apiKey, model string) *openaiBackend {
	m := openai.ChatModelGPT4oMini
	if model != "" {
		m = shared.ChatModel(model)
	}
	return &openaiBackend{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  m,
	}
}

func (b *openaiBackend) complete(ctx context.Context, prompt string) (string, error) {
	resp, err := b.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: b.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		MaxCompletionTokens: openai.Int(maxTokens),
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
