package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"legalrecords-assistant/internal/llm"
	"legalrecords-assistant/internal/transport/http/response"
)

// ProviderRegistry is the part of the dispatcher the HTTP layer may touch.
type ProviderRegistry interface {
	Providers() []llm.ProviderInfo
	Active() string
	SetActive(name string) bool
}

type ProviderHandler struct {
	registry ProviderRegistry
}

type SetActiveProviderRequest struct {
	Name string `json:"name" binding:"required"`
}

func NewProviderHandler(registry ProviderRegistry) *ProviderHandler {
	return &ProviderHandler{registry: registry}
}

func (h *ProviderHandler) List(c *gin.Context) {
	response.OK(c, gin.H{
		"active":    h.registry.Active(),
		"providers": h.registry.Providers(),
	})
}

func (h *ProviderHandler) SetActive(c *gin.Context) {
	var req SetActiveProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request payload")
		return
	}
	if !h.registry.SetActive(req.Name) {
		response.Error(c, http.StatusNotFound, response.CodeProviderNotFound, "provider not configured: "+req.Name)
		return
	}
	response.OK(c, gin.H{"active": h.registry.Active()})
}
