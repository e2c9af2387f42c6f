package response

import "github.com/gin-gonic/gin"

const (
	CodeOK                   = 0
	CodeBadRequest           = 40000
	CodeQueryEmpty           = 40001
	CodeInvalidRecordNumber  = 40002
	CodeInvalidStatus        = 40003
	CodeInvalidDocumentType  = 40004
	CodePDFInvalid           = 40005
	CodePDFEmpty             = 40006
	CodeMissingUser          = 40100
	CodeConversationNotFound = 40401
	CodeMessageNotFound      = 40402
	CodeRecordNotFound       = 40403
	CodeDocumentNotFound     = 40404
	CodeProviderNotFound     = 40405
	CodeRecordExists         = 40901
	CodePDFTooLarge          = 41300
	CodeInternalServer       = 50000
)

type APIResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func OK(c *gin.Context, data interface{}) {
	c.JSON(200, APIResponse{
		Code:    CodeOK,
		Message: "ok",
		Data:    data,
	})
}

func Error(c *gin.Context, httpStatus, code int, message string) {
	c.JSON(httpStatus, APIResponse{
		Code:    code,
		Message: message,
	})
}
