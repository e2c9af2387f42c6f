package app

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/datatypes"

	"legalrecords-assistant/internal/llm"
	"legalrecords-assistant/internal/metrics"
	"legalrecords-assistant/internal/model"
	"legalrecords-assistant/internal/platform/logger"
	"legalrecords-assistant/internal/prompt"
	"legalrecords-assistant/internal/retrieval"
)

const queryTitleRunes = 50

var (
	ErrQueryEmpty    = errors.New("query is empty")
	ErrInvalidIntent = errors.New("intent must be simple, search or report")
)

type Retriever interface {
	Search(ctx context.Context, query string) retrieval.Result
}

type Completer interface {
	Active() string
	Complete(ctx context.Context, messages []llm.ChatMessage, systemPrompt string) llm.Reply
	CompleteWith(ctx context.Context, name string, messages []llm.ChatMessage, systemPrompt string) llm.Reply
}

type QueryAuditPublisher interface {
	Publish(ctx context.Context, entry model.QueryLog) error
}

type ChatService struct {
	conversations *ConversationService
	retriever     Retriever
	completer     Completer
	auditor       QueryAuditPublisher
	maxContext    int
	log           *logger.Logger
}

type ProcessQueryInput struct {
	UserID         string
	ConversationID string
	ProjectID      string
	Query          string
	// Intent and Provider override the classifier and the active provider.
	Intent   string
	Provider string
}

type ProcessQueryResult struct {
	Response       string        `json:"response"`
	ConversationID string        `json:"conversation_id"`
	MessageID      string        `json:"message_id"`
	UserMessageID  string        `json:"user_message_id"`
	Intent         prompt.Intent `json:"intent"`
	InfoFound      bool          `json:"info_found"`
	ReplyKind      llm.ReplyKind `json:"reply_kind"`
	Provider       string        `json:"provider"`
	Keywords       []string      `json:"keywords"`
	MatchedRecords []string      `json:"matched_records"`
}

// NewChatService accepts a nil auditor.
func NewChatService(
	conversations *ConversationService,
	retriever Retriever,
	completer Completer,
	auditor QueryAuditPublisher,
	maxContext int,
	log *logger.Logger,
) *ChatService {
	if maxContext <= 0 {
		maxContext = 10
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &ChatService{
		conversations: conversations,
		retriever:     retriever,
		completer:     completer,
		auditor:       auditor,
		maxContext:    maxContext,
		log:           log,
	}
}

// ProcessQuery runs one user turn: store the question, retrieve context,
// ask the provider and store the answer.
func (s *ChatService) ProcessQuery(ctx context.Context, input ProcessQueryInput) (*ProcessQueryResult, error) {
	started := time.Now()

	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, ErrQueryEmpty
	}
	var override prompt.Intent
	if strings.TrimSpace(input.Intent) != "" {
		parsed, ok := prompt.ParseIntent(input.Intent)
		if !ok {
			return nil, ErrInvalidIntent
		}
		override = parsed
	}

	conversation, err := s.resolveConversation(ctx, input, query)
	if err != nil {
		return nil, err
	}

	userMessage, err := s.conversations.AddMessage(ctx, AddMessageInput{
		ConversationID: conversation.ID,
		Role:           model.RoleUser,
		Content:        query,
	})
	if err != nil {
		return nil, err
	}

	found := s.retriever.Search(ctx, query)

	history, err := s.conversations.GetMessageHistoryForContext(ctx, conversation.ID, s.maxContext)
	if err != nil {
		return nil, err
	}

	intent := override
	if intent == "" {
		intent = prompt.ClassifyIntent(query, len(found.Anchors) > 0)
	}
	systemPrompt := prompt.Assemble(found, intent)

	providerName := strings.TrimSpace(input.Provider)
	var reply llm.Reply
	if providerName != "" {
		reply = s.completer.CompleteWith(ctx, providerName, toChatMessages(history), systemPrompt)
	} else {
		reply = s.completer.Complete(ctx, toChatMessages(history), systemPrompt)
	}

	meta := &model.MessageMetadata{
		Keywords:       found.Keywords,
		MatchedRecords: found.RecordNumbers(),
		DetectedIntent: string(intent),
		InfoFound:      !found.Empty(),
	}
	assistantMessage, err := s.conversations.AddMessage(ctx, AddMessageInput{
		ConversationID: conversation.ID,
		Role:           model.RoleAssistant,
		Content:        replyText(reply),
		Metadata:       meta,
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordQuery(string(intent))
	s.audit(ctx, model.QueryLog{
		ConversationID: conversation.ID,
		UserID:         conversation.UserID,
		Query:          query,
		Intent:         string(intent),
		Provider:       reply.Provider,
		Keywords:       jsonList(meta.Keywords),
		MatchedRecords: jsonList(meta.MatchedRecords),
		RecordCount:    len(found.Records),
		DocumentCount:  len(found.Documents),
		ReferenceCount: len(found.References),
		ReplyKind:      string(reply.Kind),
		LatencyMS:      time.Since(started).Milliseconds(),
	})

	return &ProcessQueryResult{
		Response:       assistantMessage.Content,
		ConversationID: conversation.ID,
		MessageID:      assistantMessage.ID,
		UserMessageID:  userMessage.ID,
		Intent:         intent,
		InfoFound:      meta.InfoFound,
		ReplyKind:      reply.Kind,
		Provider:       reply.Provider,
		Keywords:       meta.Keywords,
		MatchedRecords: meta.MatchedRecords,
	}, nil
}

// resolveConversation loads the caller's conversation or opens a new one
// titled after the query.
func (s *ChatService) resolveConversation(ctx context.Context, input ProcessQueryInput, query string) (*model.Conversation, error) {
	if id := strings.TrimSpace(input.ConversationID); id != "" {
		conversation, err := s.conversations.GetConversation(ctx, id)
		if err != nil {
			return nil, err
		}
		if conversation.UserID != strings.TrimSpace(input.UserID) {
			return nil, ErrConversationNotFound
		}
		return conversation, nil
	}
	return s.conversations.CreateConversation(ctx, CreateConversationInput{
		UserID:    input.UserID,
		Title:     "Consulta: " + firstRunes(query, queryTitleRunes) + "...",
		ProjectID: input.ProjectID,
	})
}

func (s *ChatService) audit(ctx context.Context, entry model.QueryLog) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Publish(ctx, entry); err != nil {
		metrics.RecordAuditEvent("publish", "error")
		s.log.Warn("publish query audit event failed", "conversation_id", entry.ConversationID, "error", err)
		return
	}
	metrics.RecordAuditEvent("publish", "ok")
}

func toChatMessages(history []model.Message) []llm.ChatMessage {
	out := make([]llm.ChatMessage, 0, len(history))
	for _, m := range history {
		out = append(out, llm.ChatMessage{Role: m.Role, Content: m.Content})
	}
	return out
}

func replyText(reply llm.Reply) string {
	if strings.TrimSpace(reply.Text) == "" {
		return "El modelo devolvió una respuesta vacía."
	}
	return reply.Text
}

func firstRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func jsonList(items []string) datatypes.JSON {
	if items == nil {
		items = []string{}
	}
	b, _ := json.Marshal(items)
	return datatypes.JSON(b)
}
