package llm

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"legalrecords-assistant/internal/config"
)

// System prompt handling for providers without a system role.
const (
	SystemPromptPrepend = "prepend"
	SystemPromptDrop    = "drop"
)

type GeminiProvider struct {
	cfg config.ProviderConfig
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

func (p *GeminiProvider) Name() string        { return p.cfg.Name }
func (p *GeminiProvider) DisplayName() string { return p.cfg.DisplayName }

func (p *GeminiProvider) PrepareRequest(messages []ChatMessage, systemPrompt string) (*Request, error) {
	endpoint, err := url.Parse(p.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse gemini url failed: %w", err)
	}
	query := endpoint.Query()
	query.Set("key", p.cfg.APIKey)
	endpoint.RawQuery = query.Encode()

	contents := make([]geminiContent, 0, len(messages)+1)
	if p.cfg.SystemPromptMode == SystemPromptPrepend && strings.TrimSpace(systemPrompt) != "" {
		contents = append(contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: systemPrompt}}})
	}
	for _, m := range messages {
		role := "model"
		if m.Role == "user" {
			role = "user"
		}
		contents = append(contents, geminiContent{Role: role, Parts: []geminiPart{{Text: m.Content}}})
	}

	return &Request{
		URL:     endpoint.String(),
		Headers: map[string]string{"Content-Type": "application/json"},
		Body: map[string]interface{}{
			"contents": contents,
			"generationConfig": map[string]interface{}{
				"temperature":     0.7,
				"maxOutputTokens": 1024,
				"topP":            0.95,
				"topK":            40,
			},
		},
		Secret: p.cfg.APIKey,
	}, nil
}

func (p *GeminiProvider) ExtractReply(body []byte) (string, bool) {
	var parsed struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text *string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", false
	}
	if len(parsed.Candidates) == 0 {
		return "", false
	}
	for _, part := range parsed.Candidates[0].Content.Parts {
		if part.Text != nil {
			return *part.Text, true
		}
	}
	return "", false
}
