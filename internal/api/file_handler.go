package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"resumebuilder/internal/parser"
)

// FileHandler 同步抽取上传文件中的纯文本。
type FileHandler struct {
	scanner        VirusScanner
	maxUploadBytes int64
}

func NewFileHandler(scanner VirusScanner, maxUploadBytes int64) *FileHandler {
	return &FileHandler{scanner: scanner, maxUploadBytes: maxUploadBytes}
}

// ExtractText 支持 PDF、DOCX、DOC 与 TXT。
func (h *FileHandler) ExtractText(c *gin.Context) {
	if _, ok := userIDFromContext(c); !ok {
		AbortUnauthorized(c)
		return
	}

	file, err := readUpload(c, h.maxUploadBytes, h.scanner)
	if err != nil {
		RespondError(c, err)
		return
	}

	text, err := parser.Extract(file.Filename, file.ContentType, file.Data)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"text": text})
}
