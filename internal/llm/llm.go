// Package llm provides the completion clients that generate the simulated
// conversation partner's replies.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/ErumAfzal/Roleplay-App-sub000/internal/model"
)

// Client generates one partner reply from the conversation so far. The
// message sequence includes the seeded persona instruction as its first,
// system-role entry.
type Client interface {
	Complete(ctx context.Context, messages []model.Message) (string, error)
	// Ping verifies the endpoint is reachable. Called once at startup.
	Ping(ctx context.Context) error
	ModelID() string
}

// Config selects and configures a completion provider.
type Config struct {
	Provider string // openai or anthropic
	BaseURL  string // OpenAI-compatible base URL; ignored for anthropic
	APIKey   string
	Model    string
}

// New constructs the configured completion client. A missing API key is an
// error here; the caller decides whether to run without a client.
func New(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("completion API key is required")
	}
	switch strings.ToLower(cfg.Provider) {
	case "", "openai":
		return newOpenAI(cfg), nil
	case "anthropic":
		return newAnthropic(cfg), nil
	}
	return nil, fmt.Errorf("unknown completion provider %q", cfg.Provider)
}

// splitHistory separates the leading system persona instruction from the
// conversational turns. Both provider APIs take the system prompt out of
// band.
func splitHistory(messages []model.Message) (system string, turns []model.Message) {
	for _, m := range messages {
		if m.Speaker == model.SpeakerSystem {
			if system != "" {
				system += "\n\n"
			}
			system += m.Text
			continue
		}
		turns = append(turns, m)
	}
	return system, turns
}
