// Package llm 提供统一的 LLM 客户端：一个 ProtocolAdapter 负责厂商协议差异，
// Client 负责 HTTP 传输、重试、流式解析与结构化输出恢复。
package llm

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/tripflow/internal/metrics"
	"github.com/BaSui01/tripflow/llm/retry"
)

// ClientConfig 客户端运行参数（协议无关部分）。
type ClientConfig struct {
	Model      string
	Timeout    time.Duration // 单次 HTTP 请求超时
	MaxRetries int           // chat 总尝试次数（含首次）
}

func (c *ClientConfig) applyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
}

// ChatResult 非流式对话结果。调用失败时 Success=false 且 Error 携带原因，
// Chat 永远不向调用方返回 error。
type ChatResult struct {
	Success bool   `json:"success"`
	Content string `json:"content,omitempty"`
	Usage   Usage  `json:"usage,omitempty"`
	Model   string `json:"model,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Client 统一的 LLM 客户端。
type Client struct {
	adapter   ProtocolAdapter
	http      *http.Client
	cfg       ClientConfig
	retryer   retry.Retryer
	logger    *zap.Logger
	collector *metrics.Collector // nil 时不上报指标
}

// NewClient 创建客户端。adapter 决定线上协议，cfg 决定传输与重试行为。
func NewClient(adapter ProtocolAdapter, cfg ClientConfig, logger *zap.Logger) *Client {
	cfg.applyDefaults()

	policy := &retry.Policy{
		// 总尝试次数 = MaxRetries，重试次数比它少一次
		MaxRetries:   cfg.MaxRetries - 1,
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		Jitter:       false,
	}

	return &Client{
		adapter: adapter,
		http:    &http.Client{Timeout: cfg.Timeout},
		cfg:     cfg,
		retryer: retry.NewBackoffRetryer(policy, logger),
		logger:  logger,
	}
}

// Adapter 返回底层协议适配器。
func (c *Client) Adapter() ProtocolAdapter { return c.adapter }

// SetCollector 注入指标收集器。每轮 Chat 重试序列结束后按结果上报
// 请求数与 token 消耗。
func (c *Client) SetCollector(collector *metrics.Collector) { c.collector = collector }

// Chat 发起一次非流式对话。HTTP 错误、网络错误与其它异常按指数退避重试，
// 重试耗尽后折叠为失败结果返回。
func (c *Client) Chat(ctx context.Context, messages []Message, opts ChatOptions) *ChatResult {
	payload, err := c.adapter.BuildPayload(messages, opts, false)
	if err != nil {
		return &ChatResult{Success: false, Error: fmt.Sprintf("构造请求失败: %v", err)}
	}

	var completion *Completion
	err = c.retryer.Do(ctx, func() error {
		var callErr error
		completion, callErr = c.doRequest(ctx, payload)
		return callErr
	})
	if err != nil {
		c.logger.Warn("chat failed",
			zap.String("provider", c.adapter.Name()),
			zap.Error(err),
		)
		if c.collector != nil {
			c.collector.RecordLLMRequest(c.adapter.Name(), false, 0, 0)
		}
		return &ChatResult{Success: false, Error: err.Error()}
	}

	if c.collector != nil {
		c.collector.RecordLLMRequest(c.adapter.Name(), true,
			completion.Usage.PromptTokens, completion.Usage.CompletionTokens)
	}

	model := completion.Model
	if model == "" {
		model = c.cfg.Model
	}
	return &ChatResult{
		Success: true,
		Content: completion.Content,
		Usage:   completion.Usage,
		Model:   model,
	}
}

func (c *Client) doRequest(ctx context.Context, payload []byte) (*Completion, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.adapter.ChatEndpoint(), bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	c.adapter.BuildHeaders(req.Header)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("网络错误: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应失败: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &Error{
			Code:       codeFromStatus(resp.StatusCode),
			Message:    fmt.Sprintf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
			HTTPStatus: resp.StatusCode,
			Retryable:  resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500,
			Provider:   c.adapter.Name(),
		}
	}

	return c.adapter.ParseResponse(body)
}

// ChatStream 发起一次流式对话，返回增量文本片段通道。
// 单次尝试、不重试；任何错误以一个嵌入错误标记的片段收尾，不向上抛出。
// 通道在流结束后关闭。
func (c *Client) ChatStream(ctx context.Context, messages []Message, opts ChatOptions) <-chan string {
	out := make(chan string, 16)

	go func() {
		defer close(out)

		payload, err := c.adapter.BuildPayload(messages, opts, true)
		if err != nil {
			out <- fmt.Sprintf("\n\n[错误: %v]\n", err)
			return
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.adapter.ChatEndpoint(), bytes.NewReader(payload))
		if err != nil {
			out <- fmt.Sprintf("\n\n[错误: %v]\n", err)
			return
		}
		c.adapter.BuildHeaders(req.Header)

		// 流式连接不设整体超时，交给 ctx 控制
		httpClient := &http.Client{Transport: c.http.Transport}
		resp, err := httpClient.Do(req)
		if err != nil {
			out <- fmt.Sprintf("\n\n[错误: 网络连接失败 - %v]\n", err)
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			body, _ := io.ReadAll(resp.Body)
			out <- fmt.Sprintf("\n\n[错误: HTTP %d - %s]\n", resp.StatusCode, strings.TrimSpace(string(body)))
			return
		}

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			if delta, ok := c.adapter.ParseStreamLine(line); ok && delta != "" {
				select {
				case out <- delta:
				case <-ctx.Done():
					return
				}
			}
		}
		if err := scanner.Err(); err != nil {
			out <- fmt.Sprintf("\n\n[错误: %v]\n", err)
		}
	}()

	return out
}

func codeFromStatus(status int) ErrorCode {
	switch {
	case status == http.StatusUnauthorized:
		return ErrUnauthorized
	case status == http.StatusForbidden:
		return ErrForbidden
	case status == http.StatusTooManyRequests:
		return ErrRateLimited
	case status == http.StatusBadRequest:
		return ErrInvalidRequest
	case status == http.StatusServiceUnavailable:
		return ErrModelOverloaded
	case status == http.StatusGatewayTimeout:
		return ErrUpstreamTimeout
	case status >= 500:
		return ErrUpstreamError
	default:
		return ErrUpstreamError
	}
}
