package notification

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"NetSentinel/internal/config"
)

const analysisPrompt = "You are a network security analyst. Given the " +
	"following intrusion detection verdict, summarize the likely attacker " +
	"behavior and recommend concrete next steps for the operator. Be brief " +
	"and use markdown.\n\n"

// IncidentAnalyzer asks an OpenAI-compatible model for a short analysis of a
// detected incident, attached to alert notifications.
type IncidentAnalyzer struct {
	cfg    *config.AIConfig
	client *openai.Client
}

// NewIncidentAnalyzer creates an analyzer from the AI configuration.
func NewIncidentAnalyzer(cfg *config.AIConfig) (*IncidentAnalyzer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("AI API key is not configured")
	}
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	client := openai.NewClientWithConfig(clientConfig)
	return &IncidentAnalyzer{cfg: cfg, client: client}, nil
}

// Analyze returns a markdown analysis of the incident description.
func (a *IncidentAnalyzer) Analyze(ctx context.Context, incident string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:     a.cfg.Model,
		MaxTokens: 1024,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: analysisPrompt + incident,
			},
		},
	}

	resp, err := a.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("AI analysis call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("AI analysis returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
