package handler

import (
	"encoding/csv"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"github.com/yourusername/gabarita-api/internal/catalog"
	"github.com/yourusername/gabarita-api/internal/domain/entity"
	"github.com/yourusername/gabarita-api/internal/handler/dto"
	"github.com/yourusername/gabarita-api/internal/middleware"
	apperrors "github.com/yourusername/gabarita-api/internal/pkg/errors"
	"github.com/yourusername/gabarita-api/internal/service"
	"github.com/yourusername/gabarita-api/internal/service/questionpool"
)

// QuestionHandler обрабатывает запросы, связанные с выдачей вопросов и ответами
type QuestionHandler struct {
	engine         *questionpool.Engine
	recorder       *questionpool.Recorder
	historyService *service.HistoryService
	statsService   *service.StatsService
	poolService    *service.PoolService
	catalog        *catalog.Catalog
}

// NewQuestionHandler создает новый обработчик вопросов
func NewQuestionHandler(
	engine *questionpool.Engine,
	recorder *questionpool.Recorder,
	historyService *service.HistoryService,
	statsService *service.StatsService,
	poolService *service.PoolService,
	catalog *catalog.Catalog,
) *QuestionHandler {
	return &QuestionHandler{
		engine:         engine,
		recorder:       recorder,
		historyService: historyService,
		statsService:   statsService,
		poolService:    poolService,
		catalog:        catalog,
	}
}

// GenerateQuestion выдает пользователю вопрос, который он еще не видел
// POST /api/questions/generate
func (h *QuestionHandler) GenerateQuestion(c *gin.Context) {
	var req dto.GenerateQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !middleware.AuthorizedFor(c, req.UserID) {
		h.handleError(c, apperrors.ErrForbidden)
		return
	}

	knowledgeType, ok := entity.ParseKnowledgeType(req.KnowledgeType)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown knowledge_type %q", req.KnowledgeType)})
		return
	}
	kind := entity.QuestionKind(req.QuestionKind)
	if req.QuestionKind == "" {
		kind = entity.KindMultipleChoice
	}
	if !kind.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown question_kind %q", req.QuestionKind)})
		return
	}

	selection, err := h.engine.Select(c.Request.Context(), questionpool.SelectRequest{
		UserID: req.UserID,
		Filter: entity.ContentFilter{
			Cargo:         req.Cargo,
			Bloco:         req.Bloco,
			KnowledgeType: knowledgeType,
			FocusTopic:    req.FocusTopic,
		},
		Kind: kind,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewQuestionResponse(selection))
}

// AnswerQuestion проверяет ответ пользователя
// POST /api/questions/answer
func (h *QuestionHandler) AnswerQuestion(c *gin.Context) {
	var req dto.AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !middleware.AuthorizedFor(c, req.UserID) {
		h.handleError(c, apperrors.ErrForbidden)
		return
	}

	feedback, err := h.recorder.Record(c.Request.Context(), questionpool.AnswerRequest{
		UserID:         req.UserID,
		QuestionID:     req.QuestionID,
		ChosenOptionID: req.ChosenOptionID,
		ResponseTime:   req.ResponseTime(),
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, feedback)
}

// GetHistory возвращает страницу истории показов
// GET /api/questions/history/:user_id?page=1&page_size=20
func (h *QuestionHandler) GetHistory(c *gin.Context) {
	userID := c.GetString("userID")
	if !middleware.AuthorizedFor(c, userID) {
		h.handleError(c, apperrors.ErrForbidden)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(service.DefaultHistoryPageSize)))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > service.MaxHistoryPageSize {
		pageSize = service.DefaultHistoryPageSize
	}

	entries, total, err := h.historyService.GetHistory(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewPaginatedHistoryResponse(entries, total, page, pageSize))
}

// ExportHistory экспортирует историю пользователя в CSV или Excel формате
// GET /api/questions/history/:user_id/export?format=csv|xlsx
func (h *QuestionHandler) ExportHistory(c *gin.Context) {
	userID := c.GetString("userID")
	if !middleware.AuthorizedFor(c, userID) {
		h.handleError(c, apperrors.ErrForbidden)
		return
	}
	format := c.DefaultQuery("format", "csv")

	entries, err := h.historyService.GetHistoryAll(c.Request.Context(), userID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	filename := fmt.Sprintf("historico_%s_%s", sanitizeFilename(userID), time.Now().Format("2006-01-02"))

	switch format {
	case "xlsx":
		h.exportXLSX(c, entries, filename)
	default:
		h.exportCSV(c, entries, filename)
	}
}

var historyHeaders = []string{"Data", "Cargo", "Bloco", "Tema", "Questão", "Dificuldade", "Respondida", "Correta", "Tempo (ms)"}

func historyRow(e entity.HistoryEntry) []string {
	answered := "Não"
	correct := ""
	if e.Answered {
		answered = "Sim"
		correct = "Não"
		if e.Correct {
			correct = "Sim"
		}
	}
	return []string{
		e.SeenAt.UTC().Format(time.RFC3339),
		sanitizeForExcel(e.Cargo),
		sanitizeForExcel(e.Bloco),
		sanitizeForExcel(e.Topic),
		sanitizeForExcel(e.Body),
		string(e.Difficulty),
		answered,
		correct,
		strconv.FormatInt(e.ResponseTimeMs, 10),
	}
}

// exportCSV экспортирует историю в CSV с правильным экранированием спецсимволов
func (h *QuestionHandler) exportCSV(c *gin.Context, entries []entity.HistoryEntry, filename string) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.csv\"", filename))

	// BOM для корректного отображения UTF-8 в Excel
	c.Writer.Write([]byte{0xEF, 0xBB, 0xBF})

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	writer.Write(historyHeaders)
	for _, e := range entries {
		writer.Write(historyRow(e))
	}
}

// exportXLSX экспортирует историю в Excel с использованием StreamWriter
func (h *QuestionHandler) exportXLSX(c *gin.Context, entries []entity.HistoryEntry, filename string) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Histórico"
	f.SetSheetName("Sheet1", sheetName)

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		log.Printf("[QuestionHandler] Ошибка создания StreamWriter: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Excel file"})
		return
	}

	headers := make([]interface{}, len(historyHeaders))
	for i, hdr := range historyHeaders {
		headers[i] = hdr
	}
	if err := sw.SetRow("A1", headers); err != nil {
		log.Printf("[QuestionHandler] Ошибка записи заголовков: %v", err)
	}

	for i, e := range entries {
		rowNum := i + 2 // 1 - заголовки
		values := historyRow(e)
		row := make([]interface{}, len(values))
		for j, v := range values {
			row[j] = v
		}
		row[len(row)-1] = e.ResponseTimeMs
		if err := sw.SetRow(fmt.Sprintf("A%d", rowNum), row); err != nil {
			log.Printf("[QuestionHandler] Ошибка записи строки %d: %v", rowNum, err)
		}
	}

	if err := sw.Flush(); err != nil {
		log.Printf("[QuestionHandler] Ошибка при Flush: %v", err)
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.xlsx\"", filename))
	if err := f.Write(c.Writer); err != nil {
		log.Printf("[QuestionHandler] Ошибка записи Excel в response: %v", err)
	}
}

// GetTopics возвращает темы edital для режима фокуса
// GET /api/questions/topics/:cargo/:bloco
func (h *QuestionHandler) GetTopics(c *gin.Context) {
	cargo := c.Param("cargo")
	bloco := c.Param("bloco")

	c.JSON(http.StatusOK, gin.H{
		"cargo":  cargo,
		"bloco":  catalog.NormalizeBloco(bloco),
		"topics": h.catalog.Topics(cargo, bloco),
	})
}

// GetUserStats возвращает статистику пользователя
// GET /api/questions/stats/:user_id
func (h *QuestionHandler) GetUserStats(c *gin.Context) {
	userID := c.GetString("userID")
	if !middleware.AuthorizedFor(c, userID) {
		h.handleError(c, apperrors.ErrForbidden)
		return
	}

	stats, err := h.statsService.GetUserStats(c.Request.Context(), userID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewUserStatsResponse(stats))
}

// GetPoolStats возвращает статистику пула вопросов
// GET /api/questions/pool/stats
func (h *QuestionHandler) GetPoolStats(c *gin.Context) {
	stats, err := h.poolService.GetPoolStats(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewPoolStatsResponse(stats))
}

// Health проверяет доступность хранилищ
// GET /health
func (h *QuestionHandler) Health(c *gin.Context) {
	status, err := h.poolService.Health(c.Request.Context())
	if err != nil {
		log.Printf("CRITICAL: [QuestionHandler] Health check failed: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "stores": status})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "stores": status})
}

// sanitizeForExcel экранирует данные для защиты от formula injection в Excel/CSV
func sanitizeForExcel(s string) string {
	if len(s) == 0 {
		return s
	}
	// Символы, начинающие формулу в Excel/LibreOffice: = + - @ \t \r
	if s[0] == '=' || s[0] == '+' || s[0] == '-' || s[0] == '@' || s[0] == '\t' || s[0] == '\r' {
		return "'" + s
	}
	return s
}

// sanitizeFilename оставляет в имени файла только безопасные символы
func sanitizeFilename(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		b := s[i]
		if (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9') || b == '-' || b == '_' {
			out = append(out, b)
		}
	}
	if len(out) == 0 {
		return "user"
	}
	return string(out)
}

// handleError отображает ошибки сервисов в HTTP ответ
func (h *QuestionHandler) handleError(c *gin.Context, err error) {
	if errors.Is(err, apperrors.ErrServiceUnavailable) {
		log.Printf("CRITICAL: [QuestionHandler] %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service temporarily unavailable, please retry"})
	} else if errors.Is(err, apperrors.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrValidation) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrUnauthorized) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrForbidden) {
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrConflict) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	} else {
		log.Printf("ERROR: Internal server error in QuestionHandler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
