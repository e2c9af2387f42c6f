package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"legalrecords-assistant/internal/config"
	"legalrecords-assistant/internal/platform/logger"
)

const testSecret = "sk-test-0123456789abcdef"

var conversation = []ChatMessage{
	{Role: "user", Content: "¿Existe el expediente 2024-ABC-XYZ-0001?"},
	{Role: "assistant", Content: "Sí."},
	{Role: "user", Content: "¿Cuál es su estado?"},
}

func newDispatcher(t *testing.T, providers ...config.ProviderConfig) (*Dispatcher, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	log := &logger.Logger{SugaredLogger: zap.New(core).Sugar()}
	d, err := NewDispatcher(config.LLMConfig{
		ActiveProvider: providers[0].Name,
		Debug:          true,
		TimeoutSeconds: 5,
		Providers:      providers,
	}, log)
	require.NoError(t, err)
	return d, logs
}

func decodeBody(t *testing.T, r *http.Request) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	return body
}

func assertNoSecretLogged(t *testing.T, logs *observer.ObservedLogs) {
	t.Helper()
	for _, entry := range logs.All() {
		line := entry.Message + fmt.Sprint(entry.ContextMap())
		assert.NotContains(t, line, testSecret)
	}
}

func TestDispatcher_Anthropic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, testSecret, r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		body := decodeBody(t, r)
		assert.Equal(t, "claude-test", body["model"])
		assert.EqualValues(t, 1000, body["max_tokens"])
		msgs := body["messages"].([]interface{})
		require.Len(t, msgs, 4)
		assert.Equal(t, "system", msgs[0].(map[string]interface{})["role"])
		assert.Equal(t, "PROMPT", msgs[0].(map[string]interface{})["content"])
		_, _ = w.Write([]byte(`{"content":[{"type":"tool_use"},{"type":"text","text":"Está activo."}]}`))
	}))
	defer srv.Close()

	d, logs := newDispatcher(t, config.ProviderConfig{Name: "claude", Kind: KindAnthropic, URL: srv.URL, APIKey: testSecret, Model: "claude-test"})

	reply := d.Complete(context.Background(), conversation, "PROMPT")

	assert.Equal(t, ReplyOK, reply.Kind)
	assert.Equal(t, "Está activo.", reply.Text)
	assert.Equal(t, "claude", reply.Provider)
	assertNoSecretLogged(t, logs)
}

func TestDispatcher_OpenAICompatible(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer "+testSecret, r.Header.Get("Authorization"))
		body := decodeBody(t, r)
		assert.EqualValues(t, 0.7, body["temperature"])
		assert.EqualValues(t, 256, body["max_tokens"])
		msgs := body["messages"].([]interface{})
		require.Len(t, msgs, 4)
		roles := make([]string, 0, len(msgs))
		for _, m := range msgs {
			roles = append(roles, m.(map[string]interface{})["role"].(string))
		}
		assert.Equal(t, []string{"system", "user", "assistant", "user"}, roles)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Finalizado."}}]}`))
	}))
	defer srv.Close()

	d, logs := newDispatcher(t, config.ProviderConfig{Name: "deepseek", Kind: KindOpenAI, URL: srv.URL, APIKey: testSecret, Model: "deepseek-chat", MaxTokens: 256})

	reply := d.Complete(context.Background(), conversation, "PROMPT")

	assert.True(t, reply.OK())
	assert.Equal(t, "Finalizado.", reply.Text)
	assertNoSecretLogged(t, logs)
}

func TestDispatcher_GeminiPrependAndDrop(t *testing.T) {
	var lastBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, testSecret, r.URL.Query().Get("key"))
		assert.Empty(t, r.Header.Get("Authorization"))
		lastBody = decodeBody(t, r)
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Respuesta"}]}}]}`))
	}))
	defer srv.Close()

	d, logs := newDispatcher(t,
		config.ProviderConfig{Name: "gemini", Kind: KindGemini, URL: srv.URL + "/v1beta/models/gemini-pro:generateContent", APIKey: testSecret},
		config.ProviderConfig{Name: "gemini-drop", Kind: KindGemini, URL: srv.URL, APIKey: testSecret, SystemPromptMode: SystemPromptDrop},
	)

	reply := d.Complete(context.Background(), conversation, "PROMPT")
	require.Equal(t, ReplyOK, reply.Kind)
	assert.Equal(t, "Respuesta", reply.Text)

	contents := lastBody["contents"].([]interface{})
	require.Len(t, contents, 4)
	first := contents[0].(map[string]interface{})
	assert.Equal(t, "user", first["role"])
	assert.Equal(t, "PROMPT", first["parts"].([]interface{})[0].(map[string]interface{})["text"])
	assert.Equal(t, "model", contents[2].(map[string]interface{})["role"])
	gen := lastBody["generationConfig"].(map[string]interface{})
	assert.EqualValues(t, 1024, gen["maxOutputTokens"])
	assert.EqualValues(t, 40, gen["topK"])
	assert.EqualValues(t, 0.95, gen["topP"])

	reply = d.CompleteWith(context.Background(), "gemini-drop", conversation, "PROMPT")
	require.Equal(t, ReplyOK, reply.Kind)
	assert.Len(t, lastBody["contents"].([]interface{}), 3)

	assertNoSecretLogged(t, logs)
}

func TestDispatcher_APIErrorCarriesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(strings.Repeat("r", 300)))
	}))
	defer srv.Close()

	for _, kind := range []string{KindAnthropic, KindOpenAI, KindGemini} {
		t.Run(kind, func(t *testing.T) {
			d, _ := newDispatcher(t, config.ProviderConfig{Name: kind, Kind: kind, URL: srv.URL, APIKey: testSecret})

			reply := d.Complete(context.Background(), conversation, "")

			assert.Equal(t, ReplyAPIError, reply.Kind)
			assert.Contains(t, reply.Text, "429")
			assert.Contains(t, reply.Text, strings.Repeat("r", 100))
			assert.NotContains(t, reply.Text, strings.Repeat("r", 101))
		})
	}
}

func TestDispatcher_UnexpectedShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	d, _ := newDispatcher(t, config.ProviderConfig{Name: "deepseek", Kind: KindOpenAI, URL: srv.URL, APIKey: testSecret})

	reply := d.Complete(context.Background(), conversation, "")

	assert.Equal(t, ReplyUnexpectedResponse, reply.Kind)
	assert.Contains(t, reply.Text, "No se pudo extraer texto")
}

func TestDispatcher_ConnectionErrorHidesCredential(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	deadURL := srv.URL
	srv.Close()

	d, logs := newDispatcher(t, config.ProviderConfig{Name: "gemini", Kind: KindGemini, URL: deadURL, APIKey: testSecret})

	reply := d.Complete(context.Background(), conversation, "PROMPT")

	assert.Equal(t, ReplyConnectionError, reply.Kind)
	assert.True(t, strings.HasPrefix(reply.Text, "Error en la conexión"))
	assert.NotContains(t, reply.Text, testSecret)
	assertNoSecretLogged(t, logs)
}

func TestDispatcher_Selection(t *testing.T) {
	d, _ := newDispatcher(t,
		config.ProviderConfig{Name: "claude", Kind: KindAnthropic, URL: "http://127.0.0.1:1", DisplayName: "Claude"},
		config.ProviderConfig{Name: "gemini", Kind: KindGemini, URL: "http://127.0.0.1:1"},
	)

	assert.Equal(t, "claude", d.Active())
	assert.False(t, d.SetActive("gpt"))
	assert.Equal(t, "claude", d.Active())
	assert.True(t, d.SetActive("gemini"))
	assert.Equal(t, "gemini", d.Active())

	infos := d.Providers()
	require.Len(t, infos, 2)
	assert.Equal(t, ProviderInfo{Name: "claude", DisplayName: "Claude", Active: false}, infos[0])
	assert.True(t, infos[1].Active)

	reply := d.CompleteWith(context.Background(), "gpt", conversation, "")
	assert.Equal(t, ReplyUnknownProvider, reply.Kind)
}

func TestNewProvider_RejectsBadConfig(t *testing.T) {
	_, err := NewProvider(config.ProviderConfig{Name: "x", Kind: "cohere", URL: "http://x"})
	assert.Error(t, err)

	_, err = NewProvider(config.ProviderConfig{Name: "g", Kind: KindGemini, URL: "http://x", SystemPromptMode: "merge"})
	assert.Error(t, err)

	_, err = NewProvider(config.ProviderConfig{Name: "c", Kind: KindAnthropic})
	assert.Error(t, err)

	for _, raw := range []string{"api.anthropic.com/v1/messages", "ftp://example.com/x", "https://", "http://%zz"} {
		_, err = NewProvider(config.ProviderConfig{Name: "c", Kind: KindAnthropic, URL: raw})
		assert.Error(t, err, raw)
	}
}

type brokenProvider struct{}

func (brokenProvider) Name() string {
	return "broken"
}

func (brokenProvider) DisplayName() string {
	return "Broken"
}

func (brokenProvider) PrepareRequest([]ChatMessage, string) (*Request, error) {
	return nil, fmt.Errorf("parse url failed")
}

func (brokenProvider) ExtractReply([]byte) (string, bool) {
	return "", false
}

func TestDispatcher_PrepareFailureIsNotConnectionError(t *testing.T) {
	d, _ := newDispatcher(t, config.ProviderConfig{Name: "claude", Kind: KindAnthropic, URL: "http://127.0.0.1:1"})
	d.providers["broken"] = brokenProvider{}

	reply := d.CompleteWith(context.Background(), "broken", conversation, "")

	assert.Equal(t, ReplyInvalidRequest, reply.Kind)
	assert.Equal(t, "No se pudo preparar la solicitud para Broken.", reply.Text)
	assert.False(t, reply.OK())
}
