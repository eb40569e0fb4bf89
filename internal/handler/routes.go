package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/yourusername/gabarita-api/internal/middleware"
)

// RegisterRoutes подключает маршруты сервиса вопросов.
// generateLimit - ограничитель частоты для генерации (nil = без ограничения).
func RegisterRoutes(router *gin.Engine, h *QuestionHandler, auth *middleware.AuthMiddleware, generateLimit gin.HandlerFunc) {
	router.GET("/health", h.Health)

	api := router.Group("/api")
	{
		questions := api.Group("/questions")
		questions.Use(auth.RequireAuth())
		{
			generate := []gin.HandlerFunc{h.GenerateQuestion}
			if generateLimit != nil {
				generate = append([]gin.HandlerFunc{generateLimit}, generate...)
			}
			questions.POST("/generate", generate...)
			questions.POST("/answer", h.AnswerQuestion)
			questions.GET("/topics/:cargo/:bloco", h.GetTopics)

			// Пользовательские данные
			userScoped := questions.Group("")
			userScoped.Use(middleware.ExtractStringParam("user_id", "userID"))
			{
				userScoped.GET("/history/:user_id", h.GetHistory)
				userScoped.GET("/history/:user_id/export", h.ExportHistory)
				userScoped.GET("/stats/:user_id", h.GetUserStats)
			}

			// Служебные
			admin := questions.Group("/pool")
			admin.Use(auth.AdminOnly())
			{
				admin.GET("/stats", h.GetPoolStats)
			}
		}
	}
}
