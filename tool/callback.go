package tool

import (
	"github.com/gin-gonic/gin"
)

func FastReturnError(msg string) gin.H {
	return gin.H{
		"error": msg,
	}
}

func FastReturnSuccess() gin.H {
	return gin.H{
		"status": "ok",
	}
}

func FastReturnSuccessWithData(data any) gin.H {
	return gin.H{
		"data": data,
	}
}

// FastReturnErrorWithKind adds a machine-readable error kind next to the message,
// e.g. "invalid_input" or "not_found".
func FastReturnErrorWithKind(msg, kind string) gin.H {
	return gin.H{
		"error": msg,
		"kind":  kind,
	}
}
