package providers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/BaSui01/tripflow/llm"
)

// AnthropicAdapter Anthropic Claude API 协议适配器。
// 与 OpenAI 风格的差异：system 消息提取为顶层 system 字段；
// 认证使用 x-api-key + anthropic-version 头；端点为 /messages。
type AnthropicAdapter struct {
	cfg Config
}

// NewAnthropicAdapter 创建 Anthropic 协议适配器。
func NewAnthropicAdapter(cfg Config) *AnthropicAdapter {
	cfg.applyDefaults()
	if cfg.APIBase == "" {
		cfg.APIBase = "https://api.anthropic.com/v1"
	}
	return &AnthropicAdapter{cfg: cfg}
}

func (a *AnthropicAdapter) Name() string { return "anthropic" }

type anthropicRequest struct {
	Model       string          `json:"model"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float32         `json:"temperature"`
	Messages    []openAIMessage `json:"messages"`
	System      string          `json:"system,omitempty"`
	Stream      bool            `json:"stream"`
}

func (a *AnthropicAdapter) BuildPayload(messages []llm.Message, opts llm.ChatOptions, stream bool) ([]byte, error) {
	var system string
	rest := make([]openAIMessage, 0, len(messages))
	for _, m := range messages {
		if m.Role == llm.RoleSystem {
			system = m.Content
			continue
		}
		rest = append(rest, openAIMessage{Role: string(m.Role), Content: m.Content})
	}

	temperature, maxTokens := resolveSampling(a.cfg, opts)
	return json.Marshal(anthropicRequest{
		Model:       a.cfg.Model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		Messages:    rest,
		System:      system,
		Stream:      stream,
	})
}

func (a *AnthropicAdapter) BuildHeaders(h http.Header) {
	h.Set("Content-Type", "application/json")
	h.Set("x-api-key", a.cfg.APIKey)
	h.Set("anthropic-version", a.cfg.APIVersion)
}

func (a *AnthropicAdapter) ChatEndpoint() string {
	return strings.TrimRight(a.cfg.APIBase, "/") + "/messages"
}

func (a *AnthropicAdapter) ParseStreamLine(line string) (string, bool) {
	if !strings.HasPrefix(line, "data: ") {
		return "", false
	}
	data := strings.TrimSpace(strings.TrimPrefix(line, "data: "))

	var chunk struct {
		Type  string `json:"type"`
		Delta struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"delta"`
	}
	if err := json.Unmarshal([]byte(data), &chunk); err != nil {
		return "", false
	}
	if chunk.Type != "content_block_delta" || chunk.Delta.Type != "text_delta" {
		return "", false
	}
	return chunk.Delta.Text, chunk.Delta.Text != ""
}

func (a *AnthropicAdapter) ParseResponse(data []byte) (*llm.Completion, error) {
	var resp struct {
		Model   string `json:"model"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		Usage struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, &llm.Error{
			Code:     llm.ErrBadPayload,
			Message:  "响应体解析失败: " + err.Error(),
			Provider: a.Name(),
		}
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	return &llm.Completion{
		Content: sb.String(),
		Model:   resp.Model,
		Usage: llm.Usage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
	}, nil
}
