package services

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"alfredoptarigan/cv-formatter/internal/docx"
)

var (
	ErrUnsupportedFileType = errors.New("Unsupported file type. Please upload PDF, DOCX or XLSX files.")
	ErrEmptyContent        = errors.New("The uploaded file appears to be empty or could not be read.")
)

const (
	FileTypePDF  = "application/pdf"
	FileTypeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	FileTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type TextExtractor interface {
	// DetectType resolves the canonical file type from the declared content
	// type, falling back to the file extension.
	DetectType(filename, contentType string) (string, error)
	Extract(fileType string, data []byte) (string, error)
}

type textExtractor struct{}

func NewTextExtractor() TextExtractor {
	return &textExtractor{}
}

func (e *textExtractor) DetectType(filename, contentType string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0])) {
	case FileTypePDF:
		return FileTypePDF, nil
	case FileTypeDOCX:
		return FileTypeDOCX, nil
	case FileTypeXLSX:
		return FileTypeXLSX, nil
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return FileTypePDF, nil
	case ".docx":
		return FileTypeDOCX, nil
	case ".xlsx":
		return FileTypeXLSX, nil
	}

	return "", ErrUnsupportedFileType
}

func (e *textExtractor) Extract(fileType string, data []byte) (string, error) {
	var (
		text string
		err  error
	)

	switch fileType {
	case FileTypePDF:
		text, err = extractPDF(data)
	case FileTypeDOCX:
		text, err = docx.ExtractText(data)
	case FileTypeXLSX:
		text, err = extractXLSX(data)
	default:
		return "", ErrUnsupportedFileType
	}
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyContent
	}
	return text, nil
}

func extractPDF(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}

	var textBuilder strings.Builder
	totalPage := r.NumPage()

	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		page := r.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			zap.S().Named("extractor").Warnf("Skipping unreadable PDF page %d: %v", pageIndex, err)
			continue
		}

		textBuilder.WriteString(text)
		textBuilder.WriteString("\n\n")
	}

	return CleanText(textBuilder.String()), nil
}

func extractXLSX(data []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			zap.S().Named("extractor").Warnf("Could not read %s sheet: %v", sheet, err)
			continue
		}
		for _, row := range rows {
			b.WriteString(strings.Join(row, "\t"))
			b.WriteString("\n")
		}
	}
	return b.String(), nil
}

// CleanText trims every line and drops blank ones.
func CleanText(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}
