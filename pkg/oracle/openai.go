package oracle

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/noesis-kb/noesis/pkg/types"
)

const judgeSystemPrompt = `You analyze pairs of knowledge-base entries and decide whether they are meaningfully related.
Respond with a single JSON object and nothing else:
{"isRelated": bool, "relationshipType": "related|prerequisite|expands-on|contradicts|implements", "strength": 0.0-1.0, "explanation": "one sentence"}`

// OpenAIClient implements Client against an OpenAI-compatible chat endpoint.
type OpenAIClient struct {
	client *openai.Client
	config Config
}

// NewOpenAIClient creates an oracle client for the given API key and config.
func NewOpenAIClient(apiKey string, config Config) *OpenAIClient {
	if config.Model == "" {
		config.Model = openai.GPT4oMini
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = 256
	}

	clientConfig := openai.DefaultConfig(apiKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &OpenAIClient{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
	}
}

// Judge asks the model to classify the relationship between a and b and
// returns the raw completion text.
func (c *OpenAIClient) Judge(ctx context.Context, a, b *types.AtomicUnit) (string, error) {
	userPrompt := fmt.Sprintf(
		"Entry A (%s): %s\n%s\n\nEntry B (%s): %s\n%s",
		a.Type, a.Title, a.Content,
		b.Type, b.Title, b.Content,
	)

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.config.Model,
		Temperature: c.config.Temperature,
		MaxTokens:   c.config.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: judgeSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("judge chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("judge chat completion: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}

// Close is a no-op for the HTTP client.
func (c *OpenAIClient) Close() error { return nil }
