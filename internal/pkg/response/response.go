package response

import "github.com/gin-gonic/gin"

type envelope struct {
	Code    string      `json:"code"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(200, envelope{Code: "ok", Data: data})
}

func Error(c *gin.Context, status int, code, message string) {
	c.JSON(status, envelope{Code: code, Message: message})
}
