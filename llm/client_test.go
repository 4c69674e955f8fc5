package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/tripflow/internal/metrics"
	"github.com/BaSui01/tripflow/llm/retry"
)

// stubAdapter 以最小 OpenAI 风格线格式实现 ProtocolAdapter，供传输层测试使用。
type stubAdapter struct {
	endpoint string
}

func (s *stubAdapter) Name() string { return "stub" }

func (s *stubAdapter) BuildPayload(messages []Message, opts ChatOptions, stream bool) ([]byte, error) {
	return json.Marshal(map[string]any{
		"messages": messages,
		"stream":   stream,
	})
}

func (s *stubAdapter) BuildHeaders(h http.Header) {
	h.Set("Content-Type", "application/json")
}

func (s *stubAdapter) ChatEndpoint() string { return s.endpoint }

func (s *stubAdapter) ParseStreamLine(line string) (string, bool) {
	if !strings.HasPrefix(line, "data: ") {
		return "", false
	}
	data := strings.TrimPrefix(line, "data: ")
	if data == "[DONE]" {
		return "", false
	}
	var v struct {
		Delta string `json:"delta"`
	}
	if err := json.Unmarshal([]byte(data), &v); err != nil {
		return "", false
	}
	return v.Delta, true
}

func (s *stubAdapter) ParseResponse(data []byte) (*Completion, error) {
	var v struct {
		Content string `json:"content"`
		Model   string `json:"model"`
		Usage   Usage  `json:"usage"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return &Completion{Content: v.Content, Model: v.Model, Usage: v.Usage}, nil
}

// fastRetryClient 将重试延迟压缩到毫秒级，避免拖慢测试。
func fastRetryClient(endpoint string, maxRetries int) *Client {
	c := NewClient(&stubAdapter{endpoint: endpoint},
		ClientConfig{Model: "test-model", MaxRetries: maxRetries}, zap.NewNop())
	c.retryer = retry.NewBackoffRetryer(&retry.Policy{
		MaxRetries:   maxRetries - 1,
		InitialDelay: 5 * time.Millisecond,
		MaxDelay:     50 * time.Millisecond,
		Multiplier:   2.0,
	}, zap.NewNop())
	return c
}

func TestClient_Chat_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"content": "你好，有什么可以帮你？",
			"model":   "test-model",
			"usage":   map[string]int{"prompt_tokens": 5, "completion_tokens": 9, "total_tokens": 14},
		})
	}))
	defer srv.Close()

	c := fastRetryClient(srv.URL, 3)
	res := c.Chat(context.Background(), []Message{{Role: RoleUser, Content: "你好"}}, ChatOptions{})

	require.True(t, res.Success)
	assert.Equal(t, "你好，有什么可以帮你？", res.Content)
	assert.Equal(t, "test-model", res.Model)
	assert.Equal(t, 14, res.Usage.TotalTokens)
	assert.Empty(t, res.Error)
}

func TestClient_Chat_RetryThenSuccess(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			http.Error(w, "upstream overloaded", http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"content": "ok", "model": "test-model"})
	}))
	defer srv.Close()

	c := fastRetryClient(srv.URL, 3)
	res := c.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, ChatOptions{})

	// 前 max_retries-1 次失败、最后一次成功 ⇒ 总尝试次数恰为 max_retries
	require.True(t, res.Success)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestClient_Chat_Exhausted(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := fastRetryClient(srv.URL, 2)
	res := c.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, ChatOptions{})

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "HTTP 502")
	assert.Equal(t, int32(2), attempts.Load())
}

func TestClient_Chat_NetworkError(t *testing.T) {
	// 指向未监听的端口
	c := fastRetryClient("http://127.0.0.1:1/v1/chat", 2)
	res := c.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, ChatOptions{})

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "网络错误")
}

func TestClient_Chat_RecordsMetrics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"content": "ok",
			"model":   "test-model",
			"usage":   map[string]int{"prompt_tokens": 5, "completion_tokens": 9, "total_tokens": 14},
		})
	}))
	defer srv.Close()

	reg := prometheus.NewRegistry()
	c := fastRetryClient(srv.URL, 1)
	c.SetCollector(metrics.NewCollector(reg))

	res := c.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, ChatOptions{})
	require.True(t, res.Success)

	expected := `
# HELP tripflow_llm_requests_total LLM chat requests by provider and outcome.
# TYPE tripflow_llm_requests_total counter
tripflow_llm_requests_total{outcome="success",provider="stub"} 1
# HELP tripflow_llm_tokens_total LLM tokens consumed by provider and kind.
# TYPE tripflow_llm_tokens_total counter
tripflow_llm_tokens_total{kind="completion",provider="stub"} 9
tripflow_llm_tokens_total{kind="prompt",provider="stub"} 5
`
	assert.NoError(t, promtest.GatherAndCompare(reg, strings.NewReader(expected),
		"tripflow_llm_requests_total", "tripflow_llm_tokens_total"))
}

func TestClient_Chat_RecordsMetricsOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	reg := prometheus.NewRegistry()
	c := fastRetryClient(srv.URL, 2)
	c.SetCollector(metrics.NewCollector(reg))

	res := c.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, ChatOptions{})
	require.False(t, res.Success)

	// 整轮重试序列只记一次失败，耗尽的中间尝试不单独计数
	expected := `
# HELP tripflow_llm_requests_total LLM chat requests by provider and outcome.
# TYPE tripflow_llm_requests_total counter
tripflow_llm_requests_total{outcome="failure",provider="stub"} 1
`
	assert.NoError(t, promtest.GatherAndCompare(reg, strings.NewReader(expected),
		"tripflow_llm_requests_total", "tripflow_llm_tokens_total"))
}

func TestClient_ChatStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Stream bool `json:"stream"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		assert.True(t, req.Stream)

		w.Header().Set("Content-Type", "text/event-stream")
		for _, delta := range []string{"北京", "是个", "好地方"} {
			fmt.Fprintf(w, "data: {\"delta\": %q}\n\n", delta)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	c := fastRetryClient(srv.URL, 1)

	var got []string
	for frag := range c.ChatStream(context.Background(), []Message{{Role: RoleUser, Content: "介绍北京"}}, ChatOptions{}) {
		got = append(got, frag)
	}

	assert.Equal(t, []string{"北京", "是个", "好地方"}, got)
}

func TestClient_ChatStream_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := fastRetryClient(srv.URL, 1)

	var got []string
	for frag := range c.ChatStream(context.Background(), nil, ChatOptions{}) {
		got = append(got, frag)
	}

	// 错误以单个标记片段收尾，而不是 panic 或空流
	require.Len(t, got, 1)
	assert.Contains(t, got[0], "[错误: HTTP 401")
}

func chatServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"content": content, "model": "test-model"})
	}))
}

func TestClient_GenerateCityRecommendation(t *testing.T) {
	body := `{"recommendations": [{"city": "杭州", "reason": "湖光山色", "match_score": 95}], "explanation": "适合自然风光偏好"}`

	t.Run("fenced and raw parse identically", func(t *testing.T) {
		for _, content := range []string{body, "```json\n" + body + "\n```"} {
			srv := chatServer(t, content)
			c := fastRetryClient(srv.URL, 1)

			res := c.GenerateCityRecommendation(context.Background(), "推荐自然风光的城市", "兴趣: 自然风光", []string{"杭州", "北京"})
			srv.Close()

			require.True(t, res.Success)
			require.NotNil(t, res.Recommendations)
			require.Len(t, res.Recommendations.Recommendations, 1)
			assert.Equal(t, "杭州", res.Recommendations.Recommendations[0].City)
			assert.Equal(t, 95, res.Recommendations.Recommendations[0].MatchScore)
		}
	})

	t.Run("invalid json degrades to failure with raw content", func(t *testing.T) {
		srv := chatServer(t, "抱歉，我直接给你讲讲杭州吧。")
		defer srv.Close()
		c := fastRetryClient(srv.URL, 1)

		res := c.GenerateCityRecommendation(context.Background(), "推荐城市", "", []string{"杭州"})

		assert.False(t, res.Success)
		assert.Contains(t, res.Error, "JSON解析失败")
		assert.Equal(t, "抱歉，我直接给你讲讲杭州吧。", res.RawContent)
		assert.Nil(t, res.Recommendations)
	})
}

func TestClient_GenerateRoutePlan(t *testing.T) {
	body := `{
		"route_plan": [{"day": 1, "attractions": ["西湖"], "schedule": "上午游览西湖", "tips": "早去"}],
		"total_cost_estimate": {"tickets": 0, "meals": 200, "transportation": 50, "total": 250},
		"travel_tips": ["带伞"]
	}`
	srv := chatServer(t, "```json\n"+body+"\n```")
	defer srv.Close()
	c := fastRetryClient(srv.URL, 1)

	res := c.GenerateRoutePlan(context.Background(), "杭州", 1,
		[]AttractionBrief{{Name: "西湖", Type: "自然景观", Duration: 3, Ticket: 0}}, "喜欢自然风光")

	require.True(t, res.Success)
	require.NotNil(t, res.Plan)
	require.Len(t, res.Plan.RoutePlan, 1)
	assert.Equal(t, []string{"西湖"}, res.Plan.RoutePlan[0].Attractions)
	assert.Equal(t, 250.0, res.Plan.TotalCostEstimate.Total)
	assert.Equal(t, []string{"带伞"}, res.Plan.TravelTips)
}
