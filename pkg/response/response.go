// Package response 提供统一的 HTTP JSON 响应封装
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Body 统一响应结构
type Body struct {
	// 业务错误码，成功时为 "OK"
	Code string `json:"code"`
	// 提示信息
	Message string `json:"message,omitempty"`
	// 业务数据
	Data any `json:"data,omitempty"`
}

// Success 返回成功响应
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Body{Code: "OK", Data: data})
}

// Error 返回 500 错误响应
func Error(c *gin.Context, message string) {
	ErrorWithStatus(c, http.StatusInternalServerError, message, "INTERNAL")
}

// ErrorWithStatus 返回指定状态码的错误响应
func ErrorWithStatus(c *gin.Context, status int, message, code string) {
	if code == "" {
		code = http.StatusText(status)
	}
	c.JSON(status, Body{Code: code, Message: message})
}
