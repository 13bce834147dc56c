package ai

import (
	"context"
	"fmt"
	"log"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/survey-chat/backend/internal/config"
)

const continuationSystemPrompt = "You are continuing a transcript between a Human and an Assistant. " +
	"Write only the Assistant's next reply, in one or two short sentences."

// ChatModelGenerator adapts an eino chat model to the Generator contract.
type ChatModelGenerator struct {
	chatModel model.BaseChatModel
	template  prompt.ChatTemplate
}

// NewArkGenerator creates an Ark-backed generator from configuration.
func NewArkGenerator(ctx context.Context, cfg config.ArkConfig) (*ChatModelGenerator, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return NewChatModelGenerator(chatModel), nil
}

// NewChatModelGenerator wraps any eino chat model.
func NewChatModelGenerator(chatModel model.BaseChatModel) *ChatModelGenerator {
	return &ChatModelGenerator{
		chatModel: chatModel,
		template: prompt.FromMessages(
			schema.FString,
			schema.SystemMessage("{system}"),
			schema.UserMessage("{transcript}"),
		),
	}
}

// Generate asks the chat model for the next turn and appends it to prompt.
func (g *ChatModelGenerator) Generate(ctx context.Context, transcript string, params Params) (string, error) {
	messages, err := g.template.Format(ctx, map[string]any{
		"system":     continuationSystemPrompt,
		"transcript": transcript,
	})
	if err != nil {
		return "", fmt.Errorf("failed to format prompt: %w", err)
	}

	opts := make([]model.Option, 0, 3)
	if params.MaxNewTokens > 0 {
		opts = append(opts, model.WithMaxTokens(params.MaxNewTokens))
	}
	if params.DoSample {
		opts = append(opts, model.WithTemperature(float32(params.Temperature)))
		if params.TopP > 0 {
			opts = append(opts, model.WithTopP(float32(params.TopP)))
		}
	} else {
		opts = append(opts, model.WithTemperature(0))
	}

	response, err := g.chatModel.Generate(ctx, messages, opts...)
	if err != nil {
		return "", fmt.Errorf("failed to run chat model: %w", err)
	}
	if response == nil {
		return "", fmt.Errorf("%w: empty chat model reply", ErrMalformedResponse)
	}

	log.Printf("[ai] chat model generated %d bytes", len(response.Content))
	return transcript + response.Content, nil
}
