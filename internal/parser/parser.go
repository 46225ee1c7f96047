// Package parser extracts plain text from uploaded resume source files.
package parser

import (
	"bytes"
	"fmt"
	"html"
	"mime"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"

	"resumebuilder/internal/errcode"
)

// Kind 是识别出的文件类型。
type Kind string

const (
	KindPDF  Kind = "pdf"
	KindDOCX Kind = "docx"
	KindDOC  Kind = "doc"
	KindTXT  Kind = "txt"
)

const (
	mimePDF  = "application/pdf"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeDOC  = "application/msword"
	mimeTXT  = "text/plain"
)

var (
	xmlTag        = regexp.MustCompile(`<[^>]+>`)
	inlineSpace   = regexp.MustCompile(`[ \t\f\v\x{00a0}]+`)
	blankLineRuns = regexp.MustCompile(`\n{3,}`)
)

// DetectKind 先看扩展名，再看 Content-Type。
func DetectKind(filename, contentType string) (Kind, bool) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return KindPDF, true
	case ".docx":
		return KindDOCX, true
	case ".doc":
		return KindDOC, true
	case ".txt", ".text", ".md":
		return KindTXT, true
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}
	switch mediaType {
	case mimePDF:
		return KindPDF, true
	case mimeDOCX:
		return KindDOCX, true
	case mimeDOC:
		return KindDOC, true
	case mimeTXT:
		return KindTXT, true
	}
	return "", false
}

// ContentType 返回类型对应的标准 MIME。
func (k Kind) ContentType() string {
	switch k {
	case KindPDF:
		return mimePDF
	case KindDOCX:
		return mimeDOCX
	case KindDOC:
		return mimeDOC
	default:
		return mimeTXT
	}
}

// Extract 识别文件类型并抽取文本，结果已规范化空白。
// 不支持的类型或抽取结果为空时返回 ErrValidation。
func Extract(filename, contentType string, data []byte) (string, error) {
	kind, ok := DetectKind(filename, contentType)
	if !ok {
		return "", errcode.Validation("unsupported file type")
	}

	var (
		text string
		err  error
	)
	switch kind {
	case KindPDF:
		text, err = extractPDF(data)
	case KindDOCX:
		text, err = extractDOCX(data)
	case KindDOC:
		text = extractDOC(data)
	case KindTXT:
		text, err = extractTXT(data)
	}
	if err != nil {
		return "", err
	}

	text = NormalizeWhitespace(text)
	if text == "" {
		return "", errcode.Validation("no text found")
	}
	return text, nil
}

// NormalizeWhitespace 统一换行、合并行内空白并最多保留一个空行。
func NormalizeWhitespace(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(inlineSpace.ReplaceAllString(line, " "))
	}
	text = strings.Join(lines, "\n")
	text = blankLineRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

func extractPDF(data []byte) (text string, err error) {
	// ledongthuc/pdf 在遇到损坏文件时会 panic。
	defer func() {
		if r := recover(); r != nil {
			text, err = "", errcode.Validation("unreadable pdf")
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", errcode.Validation("unreadable pdf")
	}

	var b strings.Builder
	fonts := make(map[string]*pdf.Font)
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		for _, name := range page.Fonts() {
			if _, ok := fonts[name]; !ok {
				f := page.Font(name)
				fonts[name] = &f
			}
		}
		pageText, err := page.GetPlainText(fonts)
		if err != nil {
			return "", fmt.Errorf("read pdf page %d: %w", i, err)
		}
		b.WriteString(pageText)
		b.WriteString("\n")
	}
	return b.String(), nil
}

func extractDOCX(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", errcode.Validation("unreadable docx")
	}
	defer doc.Close()

	return docxXMLToText(doc.Editable().GetContent()), nil
}

// docxXMLToText 把段落、换行与制表符转换为文本后去除其余标签。
func docxXMLToText(content string) string {
	replacer := strings.NewReplacer(
		"</w:p>", "\n",
		"<w:br/>", "\n",
		"<w:br />", "\n",
		"<w:cr/>", "\n",
		"<w:tab/>", "\t",
	)
	content = replacer.Replace(content)
	content = xmlTag.ReplaceAllString(content, "")
	return html.UnescapeString(content)
}

func extractTXT(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) {
		return "", errcode.Validation("text file is not valid UTF-8")
	}
	return string(data), nil
}
