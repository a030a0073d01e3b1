// Package extract извлекает текст из загруженных учебных материалов.
// Поддерживаются plain text, PDF и DOCX.
package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	apperrors "github.com/yourusername/studyquiz-api/internal/pkg/errors"
)

// Extractor извлекает текст из файла по его расширению
type Extractor struct{}

// NewExtractor создает новый экстрактор
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract возвращает текстовое содержимое файла.
// Пустой результат после извлечения считается ошибкой.
func (e *Extractor) Extract(filename string, data []byte) (string, error) {
	var text string
	var err error

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt", ".md":
		text, err = extractPlainText(data)
	case ".pdf":
		text, err = extractPDF(data)
	case ".docx":
		text, err = extractDOCX(data)
	default:
		return "", fmt.Errorf("file type %q is not supported: %w", filepath.Ext(filename), apperrors.ErrUnsupportedType)
	}
	if err != nil {
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("no text found in %s: %w", filename, apperrors.ErrNoExtractableText)
	}
	return text, nil
}

func extractPlainText(data []byte) (string, error) {
	// Срезаем UTF-8 BOM, если он есть
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	if !utf8.Valid(data) {
		return "", fmt.Errorf("file is not valid utf-8 text: %w", apperrors.ErrNoExtractableText)
	}
	return string(data), nil
}

func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", apperrors.ErrNoExtractableText)
	}

	var builder strings.Builder
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		builder.WriteString(content)
		builder.WriteString("\n")
	}
	return builder.String(), nil
}

// docx-документ — zip-архив, текст лежит в word/document.xml
// в элементах <w:t>; конец абзаца <w:p> дает перевод строки
func extractDOCX(data []byte) (string, error) {
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open docx archive: %w", apperrors.ErrNoExtractableText)
	}

	var document io.ReadCloser
	for _, file := range archive.File {
		if file.Name == "word/document.xml" {
			document, err = file.Open()
			if err != nil {
				return "", fmt.Errorf("failed to read docx document: %w", apperrors.ErrNoExtractableText)
			}
			break
		}
	}
	if document == nil {
		return "", fmt.Errorf("docx has no word/document.xml: %w", apperrors.ErrNoExtractableText)
	}
	defer document.Close()

	var builder strings.Builder
	decoder := xml.NewDecoder(document)
	inText := false
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to parse docx xml: %w", apperrors.ErrNoExtractableText)
		}
		switch t := token.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				builder.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				builder.Write(t)
			}
		}
	}
	return builder.String(), nil
}
