package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// MaxIDParamLength - максимальная длина строкового идентификатора в URL
const MaxIDParamLength = 128

// ExtractStringParam создает middleware для извлечения и валидации строкового параметра URL.
// paramName - имя параметра в URL (например, "user_id").
// contextKey - ключ, под которым значение будет сохранено в контексте Gin.
func ExtractStringParam(paramName, contextKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		value := strings.TrimSpace(c.Param(paramName))
		if value == "" || len(value) > MaxIDParamLength {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid %s", paramName)})
			c.Abort()
			return
		}
		c.Set(contextKey, value)
		c.Next()
	}
}
