package services

import (
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
)

const MaxUploadSize = 10 * 1024 * 1024 // 10MB

var allowedDocumentExtensions = map[string]bool{
	".pdf":  true,
	".doc":  true,
	".docx": true,
	".txt":  true,
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// ValidateDocumentUpload checks size, extension and, for PDFs, the file signature
func ValidateDocumentUpload(fileHeader *multipart.FileHeader) error {
	if fileHeader == nil {
		return fmt.Errorf("no file provided")
	}
	if fileHeader.Size == 0 {
		return fmt.Errorf("file is empty")
	}
	if fileHeader.Size > MaxUploadSize {
		return fmt.Errorf("file size exceeds maximum allowed size of 10MB")
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !allowedDocumentExtensions[ext] {
		return fmt.Errorf("file type not allowed. Accepted formats: PDF, DOC, DOCX, TXT, JPG, PNG")
	}
	if ext != ".pdf" {
		return nil
	}

	file, err := fileHeader.Open()
	if err != nil {
		return fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer file.Close()

	// PDF files start with %PDF
	buffer := make([]byte, 4)
	n, err := io.ReadFull(file, buffer)
	if err != nil && err != io.ErrUnexpectedEOF {
		return fmt.Errorf("failed to read file content: %w", err)
	}
	if n < 4 || string(buffer) != "%PDF" {
		return fmt.Errorf("file is not a valid PDF")
	}
	return nil
}
