package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedAIOutput 表示模型输出无法解析为预期结构。
var ErrMalformedAIOutput = errors.New("malformed ai output")

// MalformedOutputError carries the stage that rejected the model output.
type MalformedOutputError struct {
	Stage string
	Err   error
}

func (e *MalformedOutputError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("malformed ai output (%s)", e.Stage)
	}
	return fmt.Sprintf("malformed ai output (%s): %v", e.Stage, e.Err)
}

func (e *MalformedOutputError) Unwrap() error { return e.Err }

func (e *MalformedOutputError) Is(target error) bool {
	return target == ErrMalformedAIOutput
}

type aiOutputValidator interface {
	validate() error
}

// decodeAIJSON 从模型输出中截取第一个 { 到最后一个 } 之间的内容，
// 清理控制字符、反引号与非法转义后解码到 v，并在 v 实现 validate 时校验必填字段。
func decodeAIJSON(raw string, v any) error {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return &MalformedOutputError{Stage: "extract", Err: errors.New("no JSON object found")}
	}

	cleaned := repairJSONEscapes(stripControlChars(raw[start : end+1]))

	decoder := json.NewDecoder(bytes.NewReader([]byte(cleaned)))
	if err := decoder.Decode(v); err != nil {
		return &MalformedOutputError{Stage: "decode", Err: err}
	}
	if decoder.More() {
		return &MalformedOutputError{Stage: "decode", Err: errors.New("trailing data after JSON object")}
	}

	if validator, ok := v.(aiOutputValidator); ok {
		if err := validator.validate(); err != nil {
			return &MalformedOutputError{Stage: "validate", Err: err}
		}
	}
	return nil
}

// stripControlChars removes C0/C1 control characters, DEL and backticks.
func stripControlChars(input string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r < 0x20, r >= 0x7F && r <= 0x9F, r == '`':
			return -1
		default:
			return r
		}
	}, input)
}

// repairJSONEscapes doubles backslashes that do not start a valid JSON escape.
func repairJSONEscapes(input string) string {
	if !strings.Contains(input, `\`) {
		return input
	}

	var builder strings.Builder
	builder.Grow(len(input) + 8)
	for i := 0; i < len(input); i++ {
		ch := input[i]
		if ch != '\\' {
			builder.WriteByte(ch)
			continue
		}
		if i+1 < len(input) && strings.IndexByte(`"\/bfnrtu`, input[i+1]) >= 0 {
			builder.WriteByte(ch)
			builder.WriteByte(input[i+1])
			i++
			continue
		}
		builder.WriteString(`\\`)
	}
	return builder.String()
}
