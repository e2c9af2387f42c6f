package llm

import (
	"encoding/json"

	"legalrecords-assistant/internal/config"
)

// OpenAICompatibleProvider talks to chat/completions style endpoints such as
// Deepseek.
type OpenAICompatibleProvider struct {
	cfg config.ProviderConfig
}

func (p *OpenAICompatibleProvider) Name() string        { return p.cfg.Name }
func (p *OpenAICompatibleProvider) DisplayName() string { return p.cfg.DisplayName }

func (p *OpenAICompatibleProvider) PrepareRequest(messages []ChatMessage, systemPrompt string) (*Request, error) {
	normalized := make([]ChatMessage, 0, len(messages))
	for _, m := range messages {
		role := "assistant"
		if m.Role == "user" {
			role = "user"
		}
		normalized = append(normalized, ChatMessage{Role: role, Content: m.Content})
	}
	return &Request{
		URL: p.cfg.URL,
		Headers: map[string]string{
			"Content-Type":  "application/json",
			"Authorization": "Bearer " + p.cfg.APIKey,
		},
		Body: map[string]interface{}{
			"model":       p.cfg.Model,
			"messages":    withSystem(normalized, systemPrompt),
			"max_tokens":  p.cfg.MaxTokens,
			"temperature": 0.7,
			"stream":      false,
		},
		Secret: p.cfg.APIKey,
	}, nil
}

func (p *OpenAICompatibleProvider) ExtractReply(body []byte) (string, bool) {
	var parsed struct {
		Choices []struct {
			Message struct {
				Content *string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", false
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == nil {
		return "", false
	}
	return *parsed.Choices[0].Message.Content, true
}
