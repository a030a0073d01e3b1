package handler

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/yourusername/studyquiz-api/internal/pkg/errors"
	"github.com/yourusername/studyquiz-api/pkg/extract"
)

// Максимальный размер загружаемого документа
const maxDocumentSize = 10 << 20 // 10 MiB

// DocumentHandler извлекает текст из загруженных учебных материалов
type DocumentHandler struct {
	extractor *extract.Extractor
}

// NewDocumentHandler создает новый обработчик документов
func NewDocumentHandler(extractor *extract.Extractor) *DocumentHandler {
	return &DocumentHandler{extractor: extractor}
}

// Extract принимает multipart-файл и возвращает его текст.
// Результат подставляется в режим studyGuide на клиенте.
func (h *DocumentHandler) Extract(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if fileHeader.Size > maxDocumentSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file exceeds the 10 MB limit"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		log.Printf("[DocumentHandler] Не удалось открыть загруженный файл %s: %v", fileHeader.Filename, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxDocumentSize+1))
	if err != nil {
		log.Printf("[DocumentHandler] Не удалось прочитать файл %s: %v", fileHeader.Filename, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if len(data) > maxDocumentSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file exceeds the 10 MB limit"})
		return
	}

	text, err := h.extractor.Extract(fileHeader.Filename, data)
	if err != nil {
		if errors.Is(err, apperrors.ErrUnsupportedType) {
			c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": err.Error()})
			return
		}
		if errors.Is(err, apperrors.ErrNoExtractableText) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		log.Printf("ERROR: Internal server error in DocumentHandler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"text": text, "filename": fileHeader.Filename})
}
