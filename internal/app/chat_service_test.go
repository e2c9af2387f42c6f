package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"legalrecords-assistant/internal/config"
	"legalrecords-assistant/internal/llm"
	"legalrecords-assistant/internal/model"
	"legalrecords-assistant/internal/prompt"
	"legalrecords-assistant/internal/repository"
	"legalrecords-assistant/internal/retrieval"
	"legalrecords-assistant/internal/testutil"
)

type fakeCompleter struct {
	mu       sync.Mutex
	calls    int
	provider string
	prompt   string
	messages []llm.ChatMessage
	reply    llm.Reply
}

func (f *fakeCompleter) Active() string { return "claude" }

func (f *fakeCompleter) Complete(ctx context.Context, messages []llm.ChatMessage, systemPrompt string) llm.Reply {
	return f.CompleteWith(ctx, "claude", messages, systemPrompt)
}

func (f *fakeCompleter) CompleteWith(_ context.Context, name string, messages []llm.ChatMessage, systemPrompt string) llm.Reply {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.provider = name
	f.prompt = systemPrompt
	f.messages = append([]llm.ChatMessage(nil), messages...)
	reply := f.reply
	if reply.Kind == "" {
		reply = llm.Reply{Text: "El expediente existe.", Kind: llm.ReplyOK}
	}
	reply.Provider = name
	return reply
}

type fakeAuditor struct {
	entries []model.QueryLog
	err     error
}

func (f *fakeAuditor) Publish(_ context.Context, entry model.QueryLog) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, entry)
	return nil
}

type chatFixture struct {
	db            *gorm.DB
	conversations *ConversationService
	completer     *fakeCompleter
	auditor       *fakeAuditor
	chat          *ChatService
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)

	conversations := NewConversationService(
		repository.NewConversationRepository(db),
		repository.NewMessageRepository(db),
		nil,
		log,
	)
	engine := retrieval.NewEngine(
		repository.NewCaseRecordRepository(db),
		repository.NewDocumentRepository(db),
		repository.NewReferenceRepository(db),
		config.RetrievalConfig{},
		log,
	)
	completer := &fakeCompleter{}
	auditor := &fakeAuditor{}
	return &chatFixture{
		db:            db,
		conversations: conversations,
		completer:     completer,
		auditor:       auditor,
		chat:          NewChatService(conversations, engine, completer, auditor, 10, log),
	}
}

func TestChatService_ProcessQueryEndToEnd(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	rec := testutil.SeedRecord(t, f.db, model.CaseRecord{
		Number:      "2024-ABC-XYZ-0001",
		ProcessType: "Licitación pública",
		MainTopic:   "Adquisición de equipos informáticos",
	})
	testutil.SeedRecord(t, f.db, model.CaseRecord{
		Number:    "2023-DEF-GHI-0002",
		MainTopic: "Mantenimiento vial",
	})
	testutil.SeedDocument(t, f.db, model.Document{RecordID: rec.ID, FileName: "oficio.pdf", Type: model.DocTypeOficio, Content: "Oficio de inicio"})
	testutil.SeedDocument(t, f.db, model.Document{RecordID: rec.ID, FileName: "informe.pdf", Type: model.DocTypeInforme, Content: "Informe técnico"})

	res, err := f.chat.ProcessQuery(ctx, ProcessQueryInput{
		UserID: "u1",
		Query:  "busca el expediente 2024-ABC-XYZ-0001",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, strings.Count(f.completer.prompt, "### Expediente "))
	assert.Equal(t, 2, strings.Count(f.completer.prompt, "### Documento "))
	assert.Contains(t, f.completer.prompt, "2024-ABC-XYZ-0001")
	assert.NotContains(t, f.completer.prompt, "2023-DEF-GHI-0002")

	assert.True(t, res.InfoFound)
	assert.Equal(t, llm.ReplyOK, res.ReplyKind)
	assert.Equal(t, "claude", res.Provider)
	assert.Equal(t, []string{"2024-ABC-XYZ-0001"}, res.MatchedRecords)
	assert.Equal(t, "El expediente existe.", res.Response)

	require.Len(t, f.completer.messages, 1)
	assert.Equal(t, model.RoleUser, f.completer.messages[0].Role)

	history, err := f.conversations.GetConversationHistory(ctx, res.ConversationID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, model.RoleUser, history[0].Role)
	assert.Equal(t, res.UserMessageID, history[0].ID)
	assert.Equal(t, model.RoleAssistant, history[1].Role)
	assert.Equal(t, res.MessageID, history[1].ID)

	meta := history[1].ParsedMetadata()
	require.NotNil(t, meta)
	assert.True(t, meta.InfoFound)
	assert.Equal(t, []string{"2024-ABC-XYZ-0001"}, meta.MatchedRecords)
	assert.Equal(t, string(res.Intent), meta.DetectedIntent)

	conv, err := f.conversations.GetConversation(ctx, res.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, "Consulta: busca el expediente 2024-ABC-XYZ-0001...", conv.Title)

	require.Len(t, f.auditor.entries, 1)
	assert.Equal(t, 1, f.auditor.entries[0].RecordCount)
	assert.Equal(t, 2, f.auditor.entries[0].DocumentCount)
	assert.Equal(t, "u1", f.auditor.entries[0].UserID)
}

func TestChatService_BlankQueryIsRejected(t *testing.T) {
	f := newChatFixture(t)

	_, err := f.chat.ProcessQuery(context.Background(), ProcessQueryInput{UserID: "u1", Query: "   "})
	require.ErrorIs(t, err, ErrQueryEmpty)
	assert.Zero(t, f.completer.calls)

	var count int64
	require.NoError(t, f.db.Model(&model.Conversation{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestChatService_ContextWindowKeepsNewestMessages(t *testing.T) {
	f := newChatFixture(t)
	f.chat = NewChatService(f.conversations, retrieval.NewEngine(
		repository.NewCaseRecordRepository(f.db),
		repository.NewDocumentRepository(f.db),
		repository.NewReferenceRepository(f.db),
		config.RetrievalConfig{},
		nil,
	), f.completer, nil, 3, nil)
	ctx := context.Background()

	conv, err := f.conversations.CreateConversation(ctx, CreateConversationInput{UserID: "u1"})
	require.NoError(t, err)
	for i, content := range []string{"m1", "m2", "m3"} {
		role := model.RoleUser
		if i%2 == 1 {
			role = model.RoleAssistant
		}
		_, err := f.conversations.AddMessage(ctx, AddMessageInput{ConversationID: conv.ID, Role: role, Content: content})
		require.NoError(t, err)
	}

	_, err = f.chat.ProcessQuery(ctx, ProcessQueryInput{UserID: "u1", ConversationID: conv.ID, Query: "m4"})
	require.NoError(t, err)

	require.Len(t, f.completer.messages, 3)
	assert.Equal(t, "m2", f.completer.messages[0].Content)
	assert.Equal(t, "m3", f.completer.messages[1].Content)
	assert.Equal(t, "m4", f.completer.messages[2].Content)
}

func TestChatService_NothingFoundAddsNotice(t *testing.T) {
	f := newChatFixture(t)

	res, err := f.chat.ProcessQuery(context.Background(), ProcessQueryInput{
		UserID: "u1",
		Query:  "¿existe el expediente 2099-AAA-BBB-9999?",
	})
	require.NoError(t, err)

	assert.False(t, res.InfoFound)
	assert.Equal(t, prompt.IntentSimple, res.Intent)
	assert.Contains(t, f.completer.prompt, "No se encontró información específica")
	assert.Contains(t, f.completer.prompt, "Los expedientes 2099-AAA-BBB-9999 no existen en el sistema.")
}

func TestChatService_OverridesAndOwnership(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	res, err := f.chat.ProcessQuery(ctx, ProcessQueryInput{
		UserID:   "u1",
		Query:    "contratos de obra",
		Intent:   "REPORT",
		Provider: "gemini",
	})
	require.NoError(t, err)
	assert.Equal(t, prompt.IntentReport, res.Intent)
	assert.Equal(t, "gemini", f.completer.provider)
	assert.Contains(t, f.completer.prompt, "Elabora un informe completo")

	_, err = f.chat.ProcessQuery(ctx, ProcessQueryInput{UserID: "u1", Query: "hola", Intent: "poema"})
	require.ErrorIs(t, err, ErrInvalidIntent)

	_, err = f.chat.ProcessQuery(ctx, ProcessQueryInput{UserID: "u2", ConversationID: res.ConversationID, Query: "hola"})
	require.ErrorIs(t, err, ErrConversationNotFound)
}

func TestChatService_ProviderFailureIsStoredAsReply(t *testing.T) {
	f := newChatFixture(t)
	f.completer.reply = llm.Reply{Text: "Error en la consulta a Claude: 429 - rate limited", Kind: llm.ReplyAPIError}
	f.auditor.err = errors.New("broker down")

	res, err := f.chat.ProcessQuery(context.Background(), ProcessQueryInput{UserID: "u1", Query: "licitaciones"})
	require.NoError(t, err)
	assert.Equal(t, llm.ReplyAPIError, res.ReplyKind)

	history, err := f.conversations.GetConversationHistory(context.Background(), res.ConversationID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "Error en la consulta a Claude: 429 - rate limited", history[1].Content)
}
