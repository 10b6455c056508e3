// Package openai adapts an OpenAI chat model into a contract-guarded
// agent function.
package openai

import (
	"context"
	"fmt"

	goopenai "github.com/sashabaranov/go-openai"

	contracts "github.com/aswhitehouse/behavioural-contracts"
	"github.com/aswhitehouse/behavioural-contracts/agent"
)

const defaultModel = "gpt-4o-mini"

// Config configures the OpenAI backend.
type Config struct {
	APIKey       string
	Model        string
	SystemPrompt string
}

// Agent calls an OpenAI chat model with the enforcer's temperature.
type Agent struct {
	client *goopenai.Client
	cfg    Config
}

// New creates an OpenAI-backed agent.
func New(cfg Config) (*Agent, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	return &Agent{client: goopenai.NewClient(cfg.APIKey), cfg: cfg}, nil
}

// Func returns the agent callable to wrap with an Enforcer.
func (a *Agent) Func() contracts.AgentFunc {
	return func(ctx context.Context, call contracts.Call) (any, error) {
		prompt, err := agent.Prompt(call)
		if err != nil {
			return nil, err
		}

		messages := []goopenai.ChatCompletionMessage{}
		if a.cfg.SystemPrompt != "" {
			messages = append(messages, goopenai.ChatCompletionMessage{
				Role:    goopenai.ChatMessageRoleSystem,
				Content: a.cfg.SystemPrompt,
			})
		}
		messages = append(messages, goopenai.ChatCompletionMessage{
			Role:    goopenai.ChatMessageRoleUser,
			Content: prompt,
		})

		resp, err := a.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
			Model:       a.cfg.Model,
			Messages:    messages,
			Temperature: float32(call.Temperature),
		})
		if err != nil {
			return nil, fmt.Errorf("openai: chat completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			return nil, fmt.Errorf("openai: empty completion")
		}
		return resp.Choices[0].Message.Content, nil
	}
}
