package llm

import (
	"encoding/json"

	"legalrecords-assistant/internal/config"
)

const anthropicVersion = "2023-06-01"

type AnthropicProvider struct {
	cfg config.ProviderConfig
}

func (p *AnthropicProvider) Name() string        { return p.cfg.Name }
func (p *AnthropicProvider) DisplayName() string { return p.cfg.DisplayName }

func (p *AnthropicProvider) PrepareRequest(messages []ChatMessage, systemPrompt string) (*Request, error) {
	return &Request{
		URL: p.cfg.URL,
		Headers: map[string]string{
			"Content-Type":      "application/json",
			"x-api-key":         p.cfg.APIKey,
			"anthropic-version": anthropicVersion,
		},
		Body: map[string]interface{}{
			"model":      p.cfg.Model,
			"max_tokens": p.cfg.MaxTokens,
			"messages":   withSystem(messages, systemPrompt),
		},
		Secret: p.cfg.APIKey,
	}, nil
}

func (p *AnthropicProvider) ExtractReply(body []byte) (string, bool) {
	var parsed struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", false
	}
	for _, item := range parsed.Content {
		if item.Type == "text" {
			return item.Text, true
		}
	}
	return "", false
}
