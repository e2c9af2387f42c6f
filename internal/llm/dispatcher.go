package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"

	"legalrecords-assistant/internal/config"
	"legalrecords-assistant/internal/metrics"
	"legalrecords-assistant/internal/platform/logger"
)

type ReplyKind string

const (
	ReplyOK                 ReplyKind = "ok"
	ReplyAPIError           ReplyKind = "api_error"
	ReplyConnectionError    ReplyKind = "connection_error"
	ReplyUnexpectedResponse ReplyKind = "unexpected_response"
	ReplyUnknownProvider    ReplyKind = "unknown_provider"
	ReplyInvalidRequest     ReplyKind = "invalid_request"
)

const errorBodyLimit = 100

// Reply is what the user sees. Failures are reported through Kind and a
// readable Text, never as a Go error.
type Reply struct {
	Text     string    `json:"text"`
	Kind     ReplyKind `json:"kind"`
	Provider string    `json:"provider"`
}

func (r Reply) OK() bool {
	return r.Kind == ReplyOK
}

type ProviderInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Active      bool   `json:"active"`
}

// Dispatcher owns the provider registry and the single active selection.
type Dispatcher struct {
	mu        sync.RWMutex
	providers map[string]Provider
	order     []string
	active    string

	client *resty.Client
	debug  bool
	log    *logger.Logger
}

func NewDispatcher(cfg config.LLMConfig, log *logger.Logger) (*Dispatcher, error) {
	if log == nil {
		log = logger.NewNop()
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	d := &Dispatcher{
		providers: make(map[string]Provider, len(cfg.Providers)),
		client:    resty.New().SetTimeout(timeout),
		debug:     cfg.Debug,
		log:       log,
	}
	for _, pc := range cfg.Providers {
		p, err := NewProvider(pc)
		if err != nil {
			return nil, err
		}
		if _, dup := d.providers[p.Name()]; dup {
			return nil, fmt.Errorf("duplicate llm provider %q", p.Name())
		}
		d.providers[p.Name()] = p
		d.order = append(d.order, p.Name())
	}
	if !d.SetActive(cfg.ActiveProvider) {
		return nil, fmt.Errorf("active llm provider %q is not configured", cfg.ActiveProvider)
	}
	return d, nil
}

func (d *Dispatcher) Providers() []ProviderInfo {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]ProviderInfo, 0, len(d.order))
	for _, name := range d.order {
		out = append(out, ProviderInfo{
			Name:        name,
			DisplayName: d.providers[name].DisplayName(),
			Active:      name == d.active,
		})
	}
	return out
}

func (d *Dispatcher) Active() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.active
}

// SetActive switches the provider used by Complete. Unknown names leave the
// current selection untouched.
func (d *Dispatcher) SetActive(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.providers[name]; !ok {
		return false
	}
	d.active = name
	return true
}

func (d *Dispatcher) Complete(ctx context.Context, messages []ChatMessage, systemPrompt string) Reply {
	return d.CompleteWith(ctx, d.Active(), messages, systemPrompt)
}

func (d *Dispatcher) CompleteWith(ctx context.Context, name string, messages []ChatMessage, systemPrompt string) Reply {
	d.mu.RLock()
	p, ok := d.providers[name]
	d.mu.RUnlock()
	if !ok {
		return Reply{
			Text:     fmt.Sprintf("API no implementada o no reconocida: %s", name),
			Kind:     ReplyUnknownProvider,
			Provider: name,
		}
	}

	start := time.Now()
	reply := d.call(ctx, p, messages, systemPrompt)
	metrics.RecordProviderCall(name, string(reply.Kind), time.Since(start).Seconds())
	return reply
}

func (d *Dispatcher) call(ctx context.Context, p Provider, messages []ChatMessage, systemPrompt string) Reply {
	reply := Reply{Provider: p.Name()}

	req, err := p.PrepareRequest(messages, systemPrompt)
	if err != nil {
		d.log.Error("prepare llm request failed", "provider", p.Name(), "error", err)
		reply.Kind = ReplyInvalidRequest
		reply.Text = fmt.Sprintf("No se pudo preparar la solicitud para %s.", p.DisplayName())
		return reply
	}

	if d.debug {
		d.log.Info("llm request",
			"provider", p.Name(),
			"url", stripQuery(req.URL),
			"headers", maskHeaders(req.Headers),
			"messages", len(messages),
			"system_prompt_chars", utf8.RuneCountInString(systemPrompt),
		)
	}

	resp, err := d.client.R().
		SetContext(ctx).
		SetHeaders(req.Headers).
		SetBody(req.Body).
		Post(req.URL)
	if err != nil {
		msg := scrub(err.Error(), req.Secret)
		d.log.Warn("llm request failed", "provider", p.Name(), "error", msg)
		reply.Kind = ReplyConnectionError
		reply.Text = fmt.Sprintf("Error en la conexión con la API %s: %s", p.DisplayName(), msg)
		return reply
	}

	if d.debug {
		d.log.Info("llm response", "provider", p.Name(), "status", resp.StatusCode())
	}

	if resp.StatusCode() != 200 {
		body := scrub(resp.String(), req.Secret)
		d.log.Warn("llm api error", "provider", p.Name(), "status", resp.StatusCode(), "body", truncate(body, 500))
		reply.Kind = ReplyAPIError
		reply.Text = fmt.Sprintf("Error en la consulta a %s: %d - %s", p.DisplayName(), resp.StatusCode(), truncate(body, errorBodyLimit))
		return reply
	}

	text, ok := p.ExtractReply(resp.Body())
	if !ok {
		reply.Kind = ReplyUnexpectedResponse
		reply.Text = fmt.Sprintf("No se pudo extraer texto de la respuesta de %s.", p.DisplayName())
		return reply
	}
	reply.Kind = ReplyOK
	reply.Text = text
	return reply
}

func stripQuery(rawURL string) string {
	if i := strings.IndexAny(rawURL, "?#"); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}

func maskHeaders(headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		lower := strings.ToLower(k)
		if strings.Contains(lower, "key") || strings.Contains(lower, "auth") {
			out[k] = logger.MaskSecret(v)
			continue
		}
		out[k] = v
	}
	return out
}

// scrub replaces every occurrence of secret in s with its masked form.
func scrub(s, secret string) string {
	if secret == "" {
		return s
	}
	return strings.ReplaceAll(s, secret, logger.MaskSecret(secret))
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
