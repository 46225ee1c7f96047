package parser

import "strings"

// 旧版 Word 二进制格式没有可用的 Go 解析库，这里扫描可打印字符序列。
// 正文通常以 8 位字符或 UTF-16LE 保存，两种方式都尝试，取文本更多的结果。
const minDocRun = 4

func extractDOC(data []byte) string {
	narrow := scanRuns(data, 1)
	wide := scanRuns(data, 2)
	if len(wide) > len(narrow) {
		return wide
	}
	return narrow
}

// scanRuns 以 step 为步长读取字符；step=2 时要求高字节为 0。
func scanRuns(data []byte, step int) string {
	var (
		out strings.Builder
		run []byte
	)
	flush := func() {
		if len(run) >= minDocRun && hasLetter(run) {
			out.Write(run)
			out.WriteByte('\n')
		}
		run = run[:0]
	}

	for i := 0; i+step <= len(data); i += step {
		c := data[i]
		if step == 2 && data[i+1] != 0 {
			flush()
			continue
		}
		switch {
		case c >= 0x20 && c < 0x7f:
			run = append(run, c)
		case c == '\t':
			run = append(run, ' ')
		default:
			flush()
		}
	}
	flush()
	return out.String()
}

func hasLetter(run []byte) bool {
	for _, c := range run {
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
			return true
		}
	}
	return false
}
