package llm

import (
	"encoding/json"
	"strings"
)

// StripJSONFence 去除 LLM 输出中包裹 JSON 的 Markdown 代码围栏。
// 支持 ```json ... ``` 与裸 ``` ... ``` 两种形式；无围栏时原样返回（仅去首尾空白）。
func StripJSONFence(content string) string {
	s := strings.TrimSpace(content)

	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimPrefix(s, "json")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
	}

	return strings.TrimSpace(s)
}

// ParseJSONContent 去围栏后将 LLM 输出反序列化到 v。
// 解析失败返回错误，由调用方降级为携带原始文本的失败结果。
func ParseJSONContent(content string, v any) error {
	return json.Unmarshal([]byte(StripJSONFence(content)), v)
}
