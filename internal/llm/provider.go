package llm

import (
	"fmt"
	"net/url"
	"strings"

	"legalrecords-assistant/internal/config"
)

const (
	KindAnthropic = "anthropic"
	KindOpenAI    = "openai"
	KindGemini    = "gemini"
)

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a fully shaped outbound call. Secret is the credential embedded
// somewhere in URL or Headers; it is only used to scrub log lines and errors.
type Request struct {
	URL     string
	Headers map[string]string
	Body    interface{}
	Secret  string
}

// Provider adapts the conversation to one vendor's wire format.
type Provider interface {
	Name() string
	DisplayName() string
	PrepareRequest(messages []ChatMessage, systemPrompt string) (*Request, error)
	// ExtractReply returns false when the body does not have the expected shape.
	ExtractReply(body []byte) (string, bool)
}

func NewProvider(cfg config.ProviderConfig) (Provider, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("llm provider %q has no url", cfg.Name)
	}
	if err := validateURL(cfg.URL); err != nil {
		return nil, fmt.Errorf("llm provider %q: %w", cfg.Name, err)
	}
	if cfg.DisplayName == "" {
		cfg.DisplayName = cfg.Name
	}
	switch strings.ToLower(cfg.Kind) {
	case KindAnthropic:
		return &AnthropicProvider{cfg: withDefaultTokens(cfg)}, nil
	case KindOpenAI:
		return &OpenAICompatibleProvider{cfg: withDefaultTokens(cfg)}, nil
	case KindGemini:
		mode := strings.ToLower(cfg.SystemPromptMode)
		if mode == "" {
			mode = SystemPromptPrepend
		}
		if mode != SystemPromptPrepend && mode != SystemPromptDrop {
			return nil, fmt.Errorf("llm provider %q: unknown system_prompt_mode %q", cfg.Name, cfg.SystemPromptMode)
		}
		cfg.SystemPromptMode = mode
		return &GeminiProvider{cfg: cfg}, nil
	default:
		return nil, fmt.Errorf("llm provider %q: unknown kind %q", cfg.Name, cfg.Kind)
	}
}

func validateURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("parse url failed: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme %q is not http or https", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("url has no host")
	}
	return nil
}

func withDefaultTokens(cfg config.ProviderConfig) config.ProviderConfig {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1000
	}
	return cfg
}

// withSystem puts the system prompt in front as a "system" role message.
func withSystem(messages []ChatMessage, systemPrompt string) []ChatMessage {
	out := make([]ChatMessage, 0, len(messages)+1)
	if strings.TrimSpace(systemPrompt) != "" {
		out = append(out, ChatMessage{Role: "system", Content: systemPrompt})
	}
	return append(out, messages...)
}
