// Package bedrock adapts an AWS Bedrock model into a contract-guarded
// agent function via the Converse API.
package bedrock

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	contracts "github.com/aswhitehouse/behavioural-contracts"
	"github.com/aswhitehouse/behavioural-contracts/agent"
)

// Config configures the Bedrock backend.
type Config struct {
	ModelID      string
	Region       string
	SystemPrompt string
}

// Agent calls a Bedrock model with the enforcer's temperature.
type Agent struct {
	client *bedrockruntime.Client
	cfg    Config
}

// New creates a Bedrock-backed agent using the default AWS credential
// chain.
func New(ctx context.Context, cfg Config) (*Agent, error) {
	if cfg.ModelID == "" {
		return nil, fmt.Errorf("bedrock: model id is required")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("bedrock: load aws config: %w", err)
	}

	return &Agent{client: bedrockruntime.NewFromConfig(awsCfg), cfg: cfg}, nil
}

// Func returns the agent callable to wrap with an Enforcer.
func (a *Agent) Func() contracts.AgentFunc {
	return func(ctx context.Context, call contracts.Call) (any, error) {
		prompt, err := agent.Prompt(call)
		if err != nil {
			return nil, err
		}

		input := &bedrockruntime.ConverseInput{
			ModelId: aws.String(a.cfg.ModelID),
			Messages: []types.Message{{
				Role:    types.ConversationRoleUser,
				Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: prompt}},
			}},
			InferenceConfig: &types.InferenceConfiguration{
				Temperature: aws.Float32(float32(call.Temperature)),
			},
		}
		if a.cfg.SystemPrompt != "" {
			input.System = []types.SystemContentBlock{
				&types.SystemContentBlockMemberText{Value: a.cfg.SystemPrompt},
			}
		}

		out, err := a.client.Converse(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("bedrock: converse: %w", err)
		}

		msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
		if !ok {
			return nil, fmt.Errorf("bedrock: unexpected output type %T", out.Output)
		}

		var text strings.Builder
		for _, block := range msg.Value.Content {
			if t, ok := block.(*types.ContentBlockMemberText); ok {
				text.WriteString(t.Value)
			}
		}
		if text.Len() == 0 {
			return nil, fmt.Errorf("bedrock: empty completion")
		}
		return text.String(), nil
	}
}
