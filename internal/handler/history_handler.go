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

	"github.com/yourusername/studyquiz-api/internal/domain/entity"
	"github.com/yourusername/studyquiz-api/internal/handler/dto"
	apperrors "github.com/yourusername/studyquiz-api/internal/pkg/errors"
	"github.com/yourusername/studyquiz-api/internal/service"
)

// HistoryHandler обрабатывает запросы к истории завершенных викторин
type HistoryHandler struct {
	historyService *service.HistoryService
}

// NewHistoryHandler создает новый обработчик истории
func NewHistoryHandler(historyService *service.HistoryService) *HistoryHandler {
	return &HistoryHandler{historyService: historyService}
}

// List возвращает записи владельца от новых к старым
func (h *HistoryHandler) List(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)

	limit := 0
	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = parsed
	}

	entries, err := h.historyService.List(userID, limit)
	if err != nil {
		h.handleHistoryError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"history": dto.NewHistoryListResponse(entries)})
}

// Delete удаляет одну запись владельца
func (h *HistoryHandler) Delete(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)
	entryID := c.MustGet("entryID").(uint)

	if err := h.historyService.Delete(userID, entryID); err != nil {
		h.handleHistoryError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "History entry deleted"})
}

// DeleteAll удаляет всю историю владельца
func (h *HistoryHandler) DeleteAll(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)

	deleted, err := h.historyService.DeleteAll(userID)
	if err != nil {
		h.handleHistoryError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

// Export выгружает всю историю владельца в CSV или XLSX
func (h *HistoryHandler) Export(c *gin.Context) {
	userID := c.MustGet("user_id").(uint)
	format := c.DefaultQuery("format", "csv")

	entries, err := h.historyService.ListAll(userID)
	if err != nil {
		h.handleHistoryError(c, err)
		return
	}

	filename := fmt.Sprintf("quiz_history_%s", time.Now().Format("2006-01-02"))

	switch format {
	case "xlsx":
		h.exportXLSX(c, entries, filename)
	default:
		h.exportCSV(c, entries, filename)
	}
}

var exportHeaders = []string{"Дата", "Название", "Тема", "Очки", "Всего", "Процент", "Режим", "Тип вопросов", "Сложность", "Среднее время (с)", "Лучшая серия"}

func exportRow(e *entity.HistoryEntry) []string {
	return []string{
		e.CreatedAt.Format("2006-01-02 15:04"),
		sanitizeForExcel(e.Title),
		sanitizeForExcel(e.Topic),
		strconv.Itoa(e.Score),
		strconv.Itoa(e.Total),
		strconv.Itoa(e.Percent),
		e.Mode,
		e.QuestionType,
		e.Difficulty,
		strconv.FormatFloat(e.AverageResponseTime, 'f', 1, 64),
		strconv.Itoa(e.BestStreak),
	}
}

// exportCSV экспортирует историю в CSV с правильным экранированием спецсимволов
func (h *HistoryHandler) exportCSV(c *gin.Context, entries []entity.HistoryEntry, filename string) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.csv\"", filename))

	// BOM для корректного отображения UTF-8 в Excel
	c.Writer.Write([]byte{0xEF, 0xBB, 0xBF})

	// Используем encoding/csv для правильного экранирования запятых/кавычек
	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	writer.Write(exportHeaders)
	for i := range entries {
		writer.Write(exportRow(&entries[i]))
	}
}

// exportXLSX экспортирует историю в Excel с использованием StreamWriter
func (h *HistoryHandler) exportXLSX(c *gin.Context, entries []entity.HistoryEntry, filename string) {
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.xlsx\"", filename))

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "История"
	f.SetSheetName("Sheet1", sheetName)

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		log.Printf("[HistoryHandler] Ошибка создания StreamWriter: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Excel file"})
		return
	}

	headers := make([]interface{}, len(exportHeaders))
	for i, header := range exportHeaders {
		headers[i] = header
	}
	if err := sw.SetRow("A1", headers); err != nil {
		log.Printf("[HistoryHandler] Ошибка записи заголовков: %v", err)
	}

	for i := range entries {
		rowNum := i + 2 // Начинаем с 2 строки (1 - заголовки)
		values := exportRow(&entries[i])
		row := make([]interface{}, len(values))
		for j, v := range values {
			row[j] = v
		}
		if err := sw.SetRow(fmt.Sprintf("A%d", rowNum), row); err != nil {
			log.Printf("[HistoryHandler] Ошибка записи строки %d: %v", rowNum, err)
		}
	}

	if err := sw.Flush(); err != nil {
		log.Printf("[HistoryHandler] Ошибка при Flush: %v", err)
	}

	if err := f.Write(c.Writer); err != nil {
		log.Printf("[HistoryHandler] Ошибка записи Excel в response: %v", err)
	}
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

func (h *HistoryHandler) handleHistoryError(c *gin.Context, err error) {
	if errors.Is(err, apperrors.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrForbidden) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not own this history entry"})
	} else {
		log.Printf("ERROR: Internal server error in HistoryHandler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
