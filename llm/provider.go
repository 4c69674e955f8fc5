package llm

import (
	"net/http"
)

// 统一的 LLM 错误码，用于对齐 HTTP 状态、可重试性与降级策略。
type ErrorCode string

const (
	ErrInvalidRequest  ErrorCode = "LLM_INVALID_REQUEST"  // 参数/格式错误
	ErrUnauthorized    ErrorCode = "LLM_UNAUTHORIZED"     // 未授权或密钥失效
	ErrForbidden       ErrorCode = "LLM_FORBIDDEN"        // 权限或内容策略拒绝
	ErrRateLimited     ErrorCode = "LLM_RATE_LIMITED"     // 上游或本地限流
	ErrQuotaExceeded   ErrorCode = "LLM_QUOTA_EXCEEDED"   // 额度/配额用尽
	ErrModelOverloaded ErrorCode = "LLM_MODEL_OVERLOADED" // 模型过载
	ErrUpstreamTimeout ErrorCode = "LLM_UPSTREAM_TIMEOUT" // 上游超时
	ErrUpstreamError   ErrorCode = "LLM_UPSTREAM_ERROR"   // 上游 5xx/网络错误
	ErrBadPayload      ErrorCode = "LLM_BAD_PAYLOAD"      // 响应体无法解析
)

type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status"`
	Retryable  bool      `json:"retryable"`
	Provider   string    `json:"provider,omitempty"`
}

func (e *Error) Error() string { return e.Message }

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message 对话消息。MemoryManager 另有带时间戳的持久化形态（memory 包）。
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatOptions 单次请求级别的参数覆盖。
// nil 字段表示沿用适配器配置中的默认值。
type ChatOptions struct {
	Temperature *float32
	MaxTokens   *int
}

// Temp 构造一个仅覆盖温度的 ChatOptions。
func Temp(t float32) ChatOptions { return ChatOptions{Temperature: &t} }

type Usage struct {
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`
}

// Completion 非流式响应的解析结果。
type Completion struct {
	Content string `json:"content"`
	Model   string `json:"model,omitempty"`
	Usage   Usage  `json:"usage,omitempty"`
}

// ProtocolAdapter 封装单一厂商的请求/响应/流式线格式。
// 协议集合是封闭的：OpenAI、Anthropic、Google、OpenAI 兼容（本地）。
// 每个适配器实现五个扩展点：载荷构建、请求头构建、端点、流式行解析、响应解析。
type ProtocolAdapter interface {
	// Name 返回协议标识（用于日志与错误归因）
	Name() string

	// BuildPayload 构建厂商特定的请求体
	BuildPayload(messages []Message, opts ChatOptions, stream bool) ([]byte, error)

	// BuildHeaders 设置认证与内容协商请求头
	BuildHeaders(h http.Header)

	// ChatEndpoint 返回聊天补全端点 URL
	ChatEndpoint() string

	// ParseStreamLine 解析一行流式响应，返回增量文本。
	// 无内容的行（事件标记、[DONE] 哨兵、非文本事件）返回 ok=false。
	ParseStreamLine(line string) (delta string, ok bool)

	// ParseResponse 解析非流式 JSON 响应
	ParseResponse(data []byte) (*Completion, error)
}
