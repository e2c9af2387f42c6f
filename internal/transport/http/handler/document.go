package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"legalrecords-assistant/internal/app"
	"legalrecords-assistant/internal/transport/http/response"
)

type DocumentHandler struct {
	documentService *app.DocumentService
}

type SaveDocumentRequest struct {
	RecordID     uint                   `json:"expediente_id"`
	RecordNumber string                 `json:"numero_expediente"`
	NewRecord    *app.CreateRecordInput `json:"nuevo_expediente"`
	FileName     string                 `json:"nombre_archivo" binding:"required"`
	Type         string                 `json:"tipo_documento" binding:"required"`
	Content      string                 `json:"contenido" binding:"required"`
}

func NewDocumentHandler(documentService *app.DocumentService) *DocumentHandler {
	return &DocumentHandler{documentService: documentService}
}

// Extract reads the multipart "file" field and returns the text for review.
// Nothing is stored.
func (h *DocumentHandler) Extract(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "missing pdf file")
		return
	}
	if fileHeader.Size > app.MaxPDFBytes {
		writeError(c, app.ErrPDFTooLarge, "")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "open upload failed")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, app.MaxPDFBytes+1))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "read upload failed")
		return
	}

	extracted, err := h.documentService.ExtractPDF(c.Request.Context(), fileHeader.Filename, data)
	if err != nil {
		writeError(c, err, "extract pdf failed")
		return
	}
	response.OK(c, extracted)
}

func (h *DocumentHandler) Save(c *gin.Context) {
	var req SaveDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request payload")
		return
	}

	doc, err := h.documentService.Save(c.Request.Context(), app.SaveDocumentInput{
		RecordID:     req.RecordID,
		RecordNumber: req.RecordNumber,
		NewRecord:    req.NewRecord,
		FileName:     req.FileName,
		Type:         req.Type,
		Content:      req.Content,
	})
	if err != nil {
		writeError(c, err, "save document failed")
		return
	}
	response.OK(c, doc)
}

func (h *DocumentHandler) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, "invalid document id")
		return
	}
	doc, err := h.documentService.GetByID(c.Request.Context(), uint(id))
	if err != nil {
		writeError(c, err, "get document failed")
		return
	}
	response.OK(c, doc)
}

// SearchByType serves GET /documents?tipo=.
func (h *DocumentHandler) SearchByType(c *gin.Context) {
	docs, err := h.documentService.SearchByType(c.Request.Context(), c.Query("tipo"))
	if err != nil {
		writeError(c, err, "search documents failed")
		return
	}
	response.OK(c, docs)
}
