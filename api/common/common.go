package common

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type Response struct {
	Status string      `json:"status"`
	Msg    string      `json:"msg,omitempty"`
	Data   interface{} `json:"data,omitempty"`
}

// ErrorResponse 统一错误响应体
type ErrorResponse struct {
	Status string `json:"status" example:"error"`
	Detail string `json:"detail" example:"File not found"`
}

// MessageResponse 简单消息响应
type MessageResponse struct {
	Message string `json:"message"`
}

func Respond(c *gin.Context, httpStatus int, status string, message string, data interface{}) {
	c.JSON(httpStatus, Response{
		Status: status,
		Msg:    message,
		Data:   data,
	})
}

// RespondSuccess sends a success response with data.
func RespondSuccess(c *gin.Context, data interface{}) {
	Respond(c, http.StatusOK, "success", "", data)
}

// RespondError sends an error response with detail.
func RespondError(c *gin.Context, httpStatus int, detail string) {
	c.JSON(httpStatus, ErrorResponse{Status: "error", Detail: detail})
}

// RespondErrorAbort 中间件中使用，输出错误并终止后续处理
func RespondErrorAbort(c *gin.Context, httpStatus int, detail string) {
	c.AbortWithStatusJSON(httpStatus, ErrorResponse{Status: "error", Detail: detail})
}
