package app

import (
	"context"
	"errors"
	"strings"

	"legalrecords-assistant/internal/model"
	"legalrecords-assistant/internal/platform/logger"
	"legalrecords-assistant/internal/repository"
)

const defaultConversationTitle = "Nueva conversación"

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrMessageNotFound      = errors.New("message not found")
	ErrInvalidRole          = errors.New("message role must be user or assistant")
)

type HistoryCache interface {
	GetHistory(ctx context.Context, conversationID string) ([]model.Message, bool, error)
	SetHistory(ctx context.Context, conversationID string, messages []model.Message) error
	IsDirty(ctx context.Context, conversationID string) (bool, error)
	Invalidate(ctx context.Context, conversationID string) error
}

type ConversationService struct {
	conversationRepo *repository.ConversationRepository
	messageRepo      *repository.MessageRepository
	historyCache     HistoryCache
	log              *logger.Logger
}

type CreateConversationInput struct {
	UserID    string
	Title     string
	ProjectID string
}

type AddMessageInput struct {
	ConversationID string
	Role           string
	Content        string
	Metadata       *model.MessageMetadata
}

// NewConversationService accepts a nil historyCache; history is then always
// read from the database.
func NewConversationService(
	conversationRepo *repository.ConversationRepository,
	messageRepo *repository.MessageRepository,
	historyCache HistoryCache,
	log *logger.Logger,
) *ConversationService {
	if log == nil {
		log = logger.NewNop()
	}
	return &ConversationService{
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		historyCache:     historyCache,
		log:              log,
	}
}

func (s *ConversationService) CreateConversation(ctx context.Context, input CreateConversationInput) (*model.Conversation, error) {
	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		return nil, ErrInvalidInput
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		title = defaultConversationTitle
	}

	conversation := &model.Conversation{
		UserID:    userID,
		ProjectID: strings.TrimSpace(input.ProjectID),
		Title:     title,
	}
	if err := s.conversationRepo.Create(ctx, conversation); err != nil {
		return nil, err
	}
	return conversation, nil
}

func (s *ConversationService) GetConversation(ctx context.Context, conversationID string) (*model.Conversation, error) {
	if strings.TrimSpace(conversationID) == "" {
		return nil, ErrInvalidInput
	}
	conversation, err := s.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conversation == nil {
		return nil, ErrConversationNotFound
	}
	return conversation, nil
}

// AddMessage appends to the conversation and bumps its updated_at.
func (s *ConversationService) AddMessage(ctx context.Context, input AddMessageInput) (*model.Message, error) {
	if input.Role != model.RoleUser && input.Role != model.RoleAssistant {
		return nil, ErrInvalidRole
	}
	if strings.TrimSpace(input.Content) == "" {
		return nil, ErrInvalidInput
	}
	if _, err := s.GetConversation(ctx, input.ConversationID); err != nil {
		return nil, err
	}

	message := &model.Message{
		ConversationID: input.ConversationID,
		Role:           input.Role,
		Content:        input.Content,
	}
	message.SetMetadata(input.Metadata)

	s.invalidate(ctx, input.ConversationID)
	if err := s.messageRepo.Create(ctx, message); err != nil {
		return nil, err
	}
	return message, nil
}

// GetConversationHistory returns every message, oldest first.
func (s *ConversationService) GetConversationHistory(ctx context.Context, conversationID string) ([]model.Message, error) {
	if strings.TrimSpace(conversationID) == "" {
		return nil, ErrInvalidInput
	}

	if s.historyCache != nil {
		dirty, err := s.historyCache.IsDirty(ctx, conversationID)
		if err == nil && !dirty {
			if cached, hit, cacheErr := s.historyCache.GetHistory(ctx, conversationID); cacheErr == nil && hit {
				return cached, nil
			}
		}
	}

	messages, err := s.messageRepo.ListByConversationID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if s.historyCache != nil {
		if dirty, dirtyErr := s.historyCache.IsDirty(ctx, conversationID); dirtyErr == nil && !dirty {
			if err := s.historyCache.SetHistory(ctx, conversationID, messages); err != nil {
				s.log.Warn("cache conversation history failed", "conversation_id", conversationID, "error", err)
			}
		}
	}
	return messages, nil
}

// GetMessageHistoryForContext returns the newest max messages, oldest first.
func (s *ConversationService) GetMessageHistoryForContext(ctx context.Context, conversationID string, max int) ([]model.Message, error) {
	if strings.TrimSpace(conversationID) == "" {
		return nil, ErrInvalidInput
	}
	return s.messageRepo.ListRecentByConversationID(ctx, conversationID, max)
}

// DeleteConversation removes the conversation together with its messages.
func (s *ConversationService) DeleteConversation(ctx context.Context, conversationID string) error {
	if strings.TrimSpace(conversationID) == "" {
		return ErrInvalidInput
	}
	s.invalidate(ctx, conversationID)
	deleted, err := s.conversationRepo.DeleteWithMessages(ctx, conversationID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrConversationNotFound
	}
	return nil
}

func (s *ConversationService) ListUserConversations(ctx context.Context, userID, projectID string) ([]model.Conversation, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrInvalidInput
	}
	return s.conversationRepo.ListByUserID(ctx, userID, strings.TrimSpace(projectID))
}

func (s *ConversationService) RenameConversation(ctx context.Context, conversationID, title string) error {
	title = strings.TrimSpace(title)
	if strings.TrimSpace(conversationID) == "" || title == "" {
		return ErrInvalidInput
	}
	updated, err := s.conversationRepo.UpdateTitle(ctx, conversationID, title)
	if err != nil {
		return err
	}
	if !updated {
		return ErrConversationNotFound
	}
	return nil
}

func (s *ConversationService) GetMessage(ctx context.Context, messageID string) (*model.Message, error) {
	if strings.TrimSpace(messageID) == "" {
		return nil, ErrInvalidInput
	}
	message, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if message == nil {
		return nil, ErrMessageNotFound
	}
	return message, nil
}

func (s *ConversationService) UpdateMessage(ctx context.Context, messageID, content string) (*model.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrInvalidInput
	}
	message, err := s.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, message.ConversationID)
	if _, err := s.messageRepo.UpdateContent(ctx, messageID, content); err != nil {
		return nil, err
	}
	message.Content = content
	return message, nil
}

func (s *ConversationService) DeleteMessage(ctx context.Context, messageID string) error {
	message, err := s.GetMessage(ctx, messageID)
	if err != nil {
		return err
	}
	s.invalidate(ctx, message.ConversationID)
	deleted, err := s.messageRepo.Delete(ctx, messageID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrMessageNotFound
	}
	return nil
}

func (s *ConversationService) invalidate(ctx context.Context, conversationID string) {
	if s.historyCache == nil {
		return
	}
	if err := s.historyCache.Invalidate(ctx, conversationID); err != nil {
		s.log.Warn("invalidate conversation history failed", "conversation_id", conversationID, "error", err)
	}
}
