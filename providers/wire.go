package providers

import (
	"encoding/json"
	"strings"

	"github.com/BaSui01/tripflow/llm"
)

// OpenAI 线格式，google 与兼容协议复用同一套类型。
type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model            string          `json:"model"`
	Messages         []openAIMessage `json:"messages"`
	Temperature      float32         `json:"temperature"`
	MaxTokens        int             `json:"max_tokens"`
	TopP             float32         `json:"top_p,omitempty"`
	FrequencyPenalty float32         `json:"frequency_penalty,omitempty"`
	PresencePenalty  float32         `json:"presence_penalty,omitempty"`
	Stream           bool            `json:"stream"`
}

type openAIResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage llm.Usage `json:"usage"`
}

func toOpenAIMessages(messages []llm.Message) []openAIMessage {
	out := make([]openAIMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, openAIMessage{Role: string(m.Role), Content: m.Content})
	}
	return out
}

func resolveSampling(cfg Config, opts llm.ChatOptions) (temperature float32, maxTokens int) {
	temperature = cfg.Temperature
	if opts.Temperature != nil {
		temperature = *opts.Temperature
	}
	maxTokens = cfg.MaxTokens
	if opts.MaxTokens != nil {
		maxTokens = *opts.MaxTokens
	}
	return temperature, maxTokens
}

// parseOpenAIStreamLine 解析一行 SSE：`data: {...}` 中 choices[0].delta.content。
// [DONE] 哨兵、空增量与无法解析的行均返回 ok=false。
func parseOpenAIStreamLine(line string) (string, bool) {
	if !strings.HasPrefix(line, "data: ") {
		return "", false
	}
	data := strings.TrimSpace(strings.TrimPrefix(line, "data: "))
	if data == "[DONE]" {
		return "", false
	}

	var chunk struct {
		Choices []struct {
			Delta struct {
				Content string `json:"content"`
			} `json:"delta"`
		} `json:"choices"`
	}
	if err := json.Unmarshal([]byte(data), &chunk); err != nil {
		return "", false
	}
	if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
		return "", false
	}
	return chunk.Choices[0].Delta.Content, true
}

func parseOpenAIResponse(data []byte, provider string) (*llm.Completion, error) {
	var resp openAIResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, &llm.Error{
			Code:     llm.ErrBadPayload,
			Message:  "响应体解析失败: " + err.Error(),
			Provider: provider,
		}
	}
	if len(resp.Choices) == 0 {
		return nil, &llm.Error{
			Code:     llm.ErrBadPayload,
			Message:  "响应缺少 choices",
			Provider: provider,
		}
	}
	return &llm.Completion{
		Content: resp.Choices[0].Message.Content,
		Model:   resp.Model,
		Usage:   resp.Usage,
	}, nil
}

func chatCompletionsEndpoint(apiBase string) string {
	return strings.TrimRight(apiBase, "/") + "/chat/completions"
}
