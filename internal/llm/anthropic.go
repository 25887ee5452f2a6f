package llm

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/ErumAfzal/Roleplay-App-sub000/internal/model"
)

const anthropicMaxTokens = 1024

// anthropicClient talks to the Anthropic Messages API.
type anthropicClient struct {
	client *anthropic.Client
	model  string
}

func newAnthropic(cfg Config) *anthropicClient {
	client := anthropic.NewClient(option.WithAPIKey(cfg.APIKey))
	return &anthropicClient{
		client: &client,
		model:  cfg.Model,
	}
}

func (c *anthropicClient) Complete(ctx context.Context, messages []model.Message) (string, error) {
	system, turns := splitHistory(messages)

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   anthropicMaxTokens,
		Messages:    buildAnthropicMessages(turns),
		Temperature: anthropic.Float(0.8),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("LLM API call: %w", err)
	}

	for _, block := range msg.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("no text content in LLM response")
}

func buildAnthropicMessages(turns []model.Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, len(turns))
	for i, m := range turns {
		role := anthropic.MessageParamRoleUser
		if m.Speaker == model.SpeakerPartner {
			role = anthropic.MessageParamRoleAssistant
		}
		out[i] = anthropic.MessageParam{
			Role: role,
			Content: []anthropic.ContentBlockParamUnion{
				anthropic.NewTextBlock(m.Text),
			},
		}
	}
	return out
}

// Ping issues a minimal request since the Messages API has no dedicated
// health endpoint.
func (c *anthropicClient) Ping(ctx context.Context) error {
	_, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: 1,
		Messages: []anthropic.MessageParam{
			{
				Role:    anthropic.MessageParamRoleUser,
				Content: []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock("ping")},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("LLM endpoint unreachable: %w", err)
	}
	return nil
}

func (c *anthropicClient) ModelID() string {
	return c.model
}
