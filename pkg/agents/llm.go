package agents

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/ai/azopenai"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/rs/zerolog"

	"github.com/clockwork-labs/orchestrator/pkg/domain/agent"
	"github.com/clockwork-labs/orchestrator/pkg/domain/task"
	"github.com/clockwork-labs/orchestrator/pkg/service/config"
)

// ChatCompleter is the narrow LLM surface the agent needs
type ChatCompleter interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// AzureOpenAIClient wraps the Azure OpenAI chat completions API behind
// ChatCompleter.
type AzureOpenAIClient struct {
	client     *azopenai.Client
	deployment string
	maxTokens  int32
}

// NewAzureOpenAIClient creates a client from LLM configuration
func NewAzureOpenAIClient(cfg config.LLMConfig) (*AzureOpenAIClient, error) {
	keyCredential := azcore.NewKeyCredential(cfg.APIKey)
	client, err := azopenai.NewClientWithKeyCredential(cfg.Endpoint, keyCredential, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating Azure OpenAI client: %w", err)
	}
	return &AzureOpenAIClient{
		client:     client,
		deployment: cfg.Model,
		maxTokens:  int32(cfg.MaxTokens),
	}, nil
}

// Complete sends the prompt and returns the completion text
func (c *AzureOpenAIClient) Complete(ctx context.Context, system, prompt string) (string, error) {
	messages := []azopenai.ChatRequestMessageClassification{}
	if system != "" {
		messages = append(messages, &azopenai.ChatRequestSystemMessage{
			Content: azopenai.NewChatRequestSystemMessageContent(system),
		})
	}
	messages = append(messages, &azopenai.ChatRequestUserMessage{
		Content: azopenai.NewChatRequestUserMessageContent(prompt),
	})

	resp, err := c.client.GetChatCompletions(
		ctx,
		azopenai.ChatCompletionsOptions{
			DeploymentName: to.Ptr(c.deployment),
			Messages:       messages,
			MaxTokens:      to.Ptr(c.maxTokens),
		},
		nil,
	)
	if err != nil {
		return "", err
	}

	if len(resp.Choices) > 0 && resp.Choices[0].Message.Content != nil {
		return *resp.Choices[0].Message.Content, nil
	}
	return "", fmt.Errorf("no completion received from LLM")
}

// LLMAgent is a model-backed agent with a role-specific system message
type LLMAgent struct {
	*BaseAgent
	completer     ChatCompleter
	systemMessage string
}

// NewLLMAgent creates a model-backed agent
func NewLLMAgent(name, description, systemMessage string, capabilities []agent.Capability, handledTypes []task.Type, completer ChatCompleter, logger zerolog.Logger) *LLMAgent {
	return &LLMAgent{
		BaseAgent:     NewBaseAgent(name, description, capabilities, handledTypes, logger),
		completer:     completer,
		systemMessage: systemMessage,
	}
}

func (a *LLMAgent) ProcessMessage(ctx context.Context, msg agent.Message) (agent.Response, error) {
	a.RecordMessage(msg)
	content, err := a.completer.Complete(ctx, a.systemMessage, msg.Content)
	if err != nil {
		return agent.Response{}, err
	}
	return a.Respond(msg, content)
}

func (a *LLMAgent) HandleTask(ctx context.Context, t *task.Task) (agent.Response, error) {
	prompt := fmt.Sprintf("Task: %s\nType: %s\n\n%s", t.Title, t.Type, t.Description)
	content, err := a.completer.Complete(ctx, a.systemMessage, prompt)
	if err != nil {
		return agent.Response{}, err
	}
	return a.TaskResponse(content, true, nil), nil
}
