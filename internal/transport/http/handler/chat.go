package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"legalrecords-assistant/internal/app"
	"legalrecords-assistant/internal/model"
	"legalrecords-assistant/internal/transport/http/middleware"
	"legalrecords-assistant/internal/transport/http/response"
)

type ChatHandler struct {
	chatService         *app.ChatService
	conversationService *app.ConversationService
}

type QueryRequest struct {
	ConversationID string `json:"conversation_id"`
	ProjectID      string `json:"project_id"`
	Query          string `json:"query"`
	Intent         string `json:"intent"`
	Provider       string `json:"provider"`
}

type CreateConversationRequest struct {
	Title     string `json:"title" binding:"max=255"`
	ProjectID string `json:"project_id" binding:"max=64"`
}

type RenameConversationRequest struct {
	Title string `json:"title" binding:"required,max=255"`
}

type UpdateMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

type conversationView struct {
	*model.Conversation
	Messages []model.Message `json:"messages,omitempty"`
}

func NewChatHandler(chatService *app.ChatService, conversationService *app.ConversationService) *ChatHandler {
	return &ChatHandler{
		chatService:         chatService,
		conversationService: conversationService,
	}
}

func (h *ChatHandler) Query(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeMissingUser, "missing user")
		return
	}

	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request payload")
		return
	}

	result, err := h.chatService.ProcessQuery(c.Request.Context(), app.ProcessQueryInput{
		UserID:         userID,
		ConversationID: req.ConversationID,
		ProjectID:      req.ProjectID,
		Query:          req.Query,
		Intent:         req.Intent,
		Provider:       req.Provider,
	})
	if err != nil {
		writeError(c, err, "process query failed")
		return
	}
	response.OK(c, result)
}

func (h *ChatHandler) CreateConversation(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeMissingUser, "missing user")
		return
	}

	var req CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request payload")
		return
	}

	conversation, err := h.conversationService.CreateConversation(c.Request.Context(), app.CreateConversationInput{
		UserID:    userID,
		Title:     req.Title,
		ProjectID: req.ProjectID,
	})
	if err != nil {
		writeError(c, err, "create conversation failed")
		return
	}
	response.OK(c, conversation)
}

func (h *ChatHandler) ListConversations(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeMissingUser, "missing user")
		return
	}

	conversations, err := h.conversationService.ListUserConversations(c.Request.Context(), userID, c.Query("project_id"))
	if err != nil {
		writeError(c, err, "list conversations failed")
		return
	}
	response.OK(c, conversations)
}

func (h *ChatHandler) GetConversation(c *gin.Context) {
	conversation, ok := h.ownedConversation(c)
	if !ok {
		return
	}

	view := conversationView{Conversation: conversation}
	if c.Query("include_messages") == "true" {
		messages, err := h.conversationService.GetConversationHistory(c.Request.Context(), conversation.ID)
		if err != nil {
			writeError(c, err, "get conversation failed")
			return
		}
		view.Messages = messages
	}
	response.OK(c, view)
}

func (h *ChatHandler) RenameConversation(c *gin.Context) {
	conversation, ok := h.ownedConversation(c)
	if !ok {
		return
	}

	var req RenameConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request payload")
		return
	}
	if err := h.conversationService.RenameConversation(c.Request.Context(), conversation.ID, req.Title); err != nil {
		writeError(c, err, "rename conversation failed")
		return
	}
	response.OK(c, gin.H{"id": conversation.ID, "title": req.Title})
}

func (h *ChatHandler) DeleteConversation(c *gin.Context) {
	conversation, ok := h.ownedConversation(c)
	if !ok {
		return
	}
	if err := h.conversationService.DeleteConversation(c.Request.Context(), conversation.ID); err != nil {
		writeError(c, err, "delete conversation failed")
		return
	}
	response.OK(c, gin.H{"deleted_conversation_id": conversation.ID})
}

func (h *ChatHandler) ListMessages(c *gin.Context) {
	conversation, ok := h.ownedConversation(c)
	if !ok {
		return
	}
	messages, err := h.conversationService.GetConversationHistory(c.Request.Context(), conversation.ID)
	if err != nil {
		writeError(c, err, "get history failed")
		return
	}
	response.OK(c, messages)
}

func (h *ChatHandler) UpdateMessage(c *gin.Context) {
	message, ok := h.ownedMessage(c)
	if !ok {
		return
	}

	var req UpdateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request payload")
		return
	}
	updated, err := h.conversationService.UpdateMessage(c.Request.Context(), message.ID, req.Content)
	if err != nil {
		writeError(c, err, "update message failed")
		return
	}
	response.OK(c, updated)
}

func (h *ChatHandler) DeleteMessage(c *gin.Context) {
	message, ok := h.ownedMessage(c)
	if !ok {
		return
	}
	if err := h.conversationService.DeleteMessage(c.Request.Context(), message.ID); err != nil {
		writeError(c, err, "delete message failed")
		return
	}
	response.OK(c, gin.H{"deleted_message_id": message.ID})
}

// ownedConversation loads :id and hides conversations of other users behind a 404.
func (h *ChatHandler) ownedConversation(c *gin.Context) (*model.Conversation, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeMissingUser, "missing user")
		return nil, false
	}
	conversation, err := h.loadConversation(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		writeError(c, err, "get conversation failed")
		return nil, false
	}
	return conversation, true
}

func (h *ChatHandler) ownedMessage(c *gin.Context) (*model.Message, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeMissingUser, "missing user")
		return nil, false
	}
	message, err := h.conversationService.GetMessage(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err, "get message failed")
		return nil, false
	}
	if _, err := h.loadConversation(c.Request.Context(), message.ConversationID, userID); err != nil {
		if errors.Is(err, app.ErrConversationNotFound) {
			err = app.ErrMessageNotFound
		}
		writeError(c, err, "get message failed")
		return nil, false
	}
	return message, true
}

func (h *ChatHandler) loadConversation(ctx context.Context, id, userID string) (*model.Conversation, error) {
	conversation, err := h.conversationService.GetConversation(ctx, id)
	if err != nil {
		return nil, err
	}
	if conversation.UserID != userID {
		return nil, app.ErrConversationNotFound
	}
	return conversation, nil
}
