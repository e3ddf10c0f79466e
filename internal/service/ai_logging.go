package service

import (
	"log"
	"strings"
	"unicode/utf8"
)

const maxAILogSnippetRunes = 1024

// logAIExchange 输出模型请求与响应的片段，超过 1024 个字符时截断。
func logAIExchange(kind, phase, content string) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		log.Printf("[AI %s] %s: <empty>", kind, phase)
		return
	}

	log.Printf("[AI %s] %s (runes=%d): %s", kind, phase, utf8.RuneCountInString(trimmed), truncateRunes(trimmed, maxAILogSnippetRunes))
}

func truncateRunes(input string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(input) <= limit {
		return input
	}
	return string([]rune(input)[:limit]) + "…(truncated)"
}
