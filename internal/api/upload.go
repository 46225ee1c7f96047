package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/dutchcoders/go-clamd"
	"github.com/gin-gonic/gin"

	"resumebuilder/internal/errcode"
)

// multipart 头部与边界的额外余量。
const multipartOverhead = 1 << 20

var errInfected = errors.New("malicious file detected")

// VirusScanner 扫描上传内容，发现威胁时返回 errInfected。
type VirusScanner interface {
	Scan(r io.Reader) error
}

type clamdScanner struct {
	addr string
}

// NewClamdScanner 返回基于 clamd 的扫描器；addr 为空时返回 nil，即跳过扫描。
func NewClamdScanner(addr string) VirusScanner {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil
	}
	return &clamdScanner{addr: addr}
}

func (s *clamdScanner) Scan(r io.Reader) error {
	abortChan := make(chan bool)
	defer close(abortChan)

	scanChan, err := clamd.NewClamd(s.addr).ScanStream(r, abortChan)
	if err != nil {
		return fmt.Errorf("clamd scan: %w", err)
	}

	infected := false
	for result := range scanChan {
		if result.Status != clamd.RES_OK {
			infected = true
		}
	}
	if infected {
		return errInfected
	}
	return nil
}

type upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// readUpload 读取表单字段 file，并在配置了扫描器时先做病毒扫描。
func readUpload(c *gin.Context, maxBytes int64, scanner VirusScanner) (*upload, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes+multipartOverhead)

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, errcode.Validation("file exceeds %d bytes", maxBytes)
		}
		return nil, errcode.Validation("missing file")
	}
	if header.Size > maxBytes {
		return nil, errcode.Validation("file exceeds %d bytes", maxBytes)
	}

	data, err := readFileHeader(header, maxBytes)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errcode.Validation("file is empty")
	}

	if scanner != nil {
		if err := scanner.Scan(bytes.NewReader(data)); err != nil {
			if errors.Is(err, errInfected) {
				return nil, errcode.Validation("malicious file detected")
			}
			return nil, err
		}
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &upload{
		Filename:    header.Filename,
		ContentType: contentType,
		Data:        data,
	}, nil
}

func readFileHeader(header *multipart.FileHeader, maxBytes int64) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, errcode.Validation("file exceeds %d bytes", maxBytes)
	}
	return data, nil
}
