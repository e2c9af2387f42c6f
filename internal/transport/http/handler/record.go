package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"legalrecords-assistant/internal/app"
	"legalrecords-assistant/internal/transport/http/response"
)

type RecordHandler struct {
	recordService   *app.RecordService
	documentService *app.DocumentService
}

type UpdateStatusRequest struct {
	Status string `json:"estado" binding:"required"`
}

func NewRecordHandler(recordService *app.RecordService, documentService *app.DocumentService) *RecordHandler {
	return &RecordHandler{
		recordService:   recordService,
		documentService: documentService,
	}
}

func (h *RecordHandler) Search(c *gin.Context) {
	records, err := h.recordService.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		writeError(c, err, "search records failed")
		return
	}
	response.OK(c, gin.H{"total": len(records), "expedientes": records})
}

// Get returns the record and its documents.
func (h *RecordHandler) Get(c *gin.Context) {
	detail, err := h.recordService.Lookup(c.Request.Context(), c.Param("number"))
	if err != nil {
		writeError(c, err, "get record failed")
		return
	}
	response.OK(c, detail)
}

func (h *RecordHandler) Create(c *gin.Context) {
	var req app.CreateRecordInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request payload")
		return
	}
	record, err := h.recordService.Create(c.Request.Context(), req)
	if err != nil {
		writeError(c, err, "create record failed")
		return
	}
	response.OK(c, record)
}

// Update changes only the fields present in the body.
func (h *RecordHandler) Update(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, "invalid record id")
		return
	}

	var req app.UpdateRecordInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request payload")
		return
	}
	record, err := h.recordService.Update(c.Request.Context(), uint(id), req)
	if err != nil {
		writeError(c, err, "update record failed")
		return
	}
	response.OK(c, record)
}

func (h *RecordHandler) UpdateStatus(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, "invalid record id")
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request payload")
		return
	}
	record, err := h.recordService.UpdateStatus(c.Request.Context(), uint(id), req.Status)
	if err != nil {
		writeError(c, err, "update record status failed")
		return
	}
	response.OK(c, record)
}

func (h *RecordHandler) ListDocuments(c *gin.Context) {
	docs, err := h.documentService.ListByRecord(c.Request.Context(), c.Param("number"))
	if err != nil {
		writeError(c, err, "list documents failed")
		return
	}
	response.OK(c, docs)
}
