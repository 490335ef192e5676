package response

import "github.com/gin-gonic/gin"

const (
	CodeBadRequest         = 40000
	CodeNoFile             = 40001
	CodeUnsupportedType    = 40002
	CodeNotAuthenticated   = 40100
	CodeInvalidCredentials = 40101
	CodeInvalidToken       = 40102
	CodeQuotaExceeded      = 40300
	CodeImageNotFound      = 40400
	CodeUserNotFound       = 40401
	CodeRouteNotFound      = 40404
	CodeEmailExists        = 40900
	CodePayloadTooLarge    = 41300
	CodeInternalServer     = 50000
	CodeUpstream           = 50200
)

type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// JSON writes payload as the response body without an envelope.
func JSON(c *gin.Context, httpStatus int, payload interface{}) {
	c.JSON(httpStatus, payload)
}

func Message(c *gin.Context, httpStatus int, message string) {
	c.JSON(httpStatus, MessageResponse{Message: message})
}

func Error(c *gin.Context, httpStatus, code int, message string) {
	c.JSON(httpStatus, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// Abort writes the error and stops the handler chain.
func Abort(c *gin.Context, httpStatus, code int, message string) {
	c.AbortWithStatusJSON(httpStatus, ErrorResponse{
		Code:    code,
		Message: message,
	})
}
