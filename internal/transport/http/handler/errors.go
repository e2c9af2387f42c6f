package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"legalrecords-assistant/internal/app"
	"legalrecords-assistant/internal/transport/http/response"
)

type errorMapping struct {
	target error
	status int
	code   int
}

var errorMappings = []errorMapping{
	{app.ErrQueryEmpty, http.StatusBadRequest, response.CodeQueryEmpty},
	{app.ErrInvalidIntent, http.StatusBadRequest, response.CodeBadRequest},
	{app.ErrInvalidRole, http.StatusBadRequest, response.CodeBadRequest},
	{app.ErrInvalidRecordNumber, http.StatusBadRequest, response.CodeInvalidRecordNumber},
	{app.ErrInvalidStatus, http.StatusBadRequest, response.CodeInvalidStatus},
	{app.ErrInvalidDocumentType, http.StatusBadRequest, response.CodeInvalidDocumentType},
	{app.ErrPDFInvalid, http.StatusBadRequest, response.CodePDFInvalid},
	{app.ErrPDFEmpty, http.StatusUnprocessableEntity, response.CodePDFEmpty},
	{app.ErrPDFTooLarge, http.StatusRequestEntityTooLarge, response.CodePDFTooLarge},
	{app.ErrInvalidInput, http.StatusBadRequest, response.CodeBadRequest},
	{app.ErrConversationNotFound, http.StatusNotFound, response.CodeConversationNotFound},
	{app.ErrMessageNotFound, http.StatusNotFound, response.CodeMessageNotFound},
	{app.ErrRecordNotFound, http.StatusNotFound, response.CodeRecordNotFound},
	{app.ErrDocumentNotFound, http.StatusNotFound, response.CodeDocumentNotFound},
	{app.ErrRecordExists, http.StatusConflict, response.CodeRecordExists},
}

// writeError maps service sentinels onto the envelope. Anything unknown is a
// 500 carrying only the fallback text, never the wrapped storage error.
func writeError(c *gin.Context, err error, fallback string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			response.Error(c, m.status, m.code, m.target.Error())
			return
		}
	}
	_ = c.Error(err)
	response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, fallback)
}

func badRequest(c *gin.Context, message string) {
	response.Error(c, http.StatusBadRequest, response.CodeBadRequest, message)
}
