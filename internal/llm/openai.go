package llm

import (
	"context"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ErumAfzal/Roleplay-App-sub000/internal/model"
)

// openAIClient talks to any OpenAI-compatible chat completion endpoint.
type openAIClient struct {
	api   *openai.Client
	model string
}

func newOpenAI(cfg Config) *openAIClient {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	return &openAIClient{
		api:   openai.NewClientWithConfig(config),
		model: cfg.Model,
	}
}

func (c *openAIClient) Complete(ctx context.Context, messages []model.Message) (string, error) {
	system, turns := splitHistory(messages)

	chatMsgs := make([]openai.ChatCompletionMessage, 0, len(turns)+1)
	if system != "" {
		chatMsgs = append(chatMsgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	for _, m := range turns {
		role := openai.ChatMessageRoleUser
		if m.Speaker == model.SpeakerPartner {
			role = openai.ChatMessageRoleAssistant
		}
		chatMsgs = append(chatMsgs, openai.ChatCompletionMessage{
			Role:    role,
			Content: m.Text,
		})
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: chatMsgs,
		// A conversation partner should not answer the same way twice.
		Temperature: 0.8,
	})
	if err != nil {
		return "", fmt.Errorf("LLM API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("LLM returned no choices")
	}

	reply := resp.Choices[0].Message.Content
	slog.Debug("LLM reply", "model", c.model, "length", len(reply))
	return reply, nil
}

func (c *openAIClient) Ping(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("LLM endpoint unreachable: %w", err)
	}
	return nil
}

func (c *openAIClient) ModelID() string {
	return c.model
}
