// Package testutil 提供测试用的 LLM 客户端桩：用 httptest 伪装一个
// OpenAI 兼容端点，按脚本返回固定内容。
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"

	"github.com/BaSui01/tripflow/llm"
	"github.com/BaSui01/tripflow/providers"
)

// ChatClient 返回一个总是回复 content 的 llm.Client。
// 服务端在测试结束时自动关闭。
func ChatClient(t *testing.T, content string) *llm.Client {
	t.Helper()
	return ScriptedChatClient(t, content)
}

// ScriptedChatClient 按顺序回复 contents，耗尽后重复最后一条。
func ScriptedChatClient(t *testing.T, contents ...string) *llm.Client {
	t.Helper()
	if len(contents) == 0 {
		t.Fatal("ScriptedChatClient 至少需要一条回复")
	}

	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		i := int(calls.Add(1)) - 1
		if i >= len(contents) {
			i = len(contents) - 1
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model": "test-model",
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": contents[i]}},
			},
			"usage": map[string]int{"total_tokens": 1},
		})
	}))
	t.Cleanup(srv.Close)

	return clientFor(t, srv.URL)
}

// FailingChatClient 返回一个每次调用都失败的 llm.Client。
func FailingChatClient(t *testing.T) *llm.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	return clientFor(t, srv.URL)
}

func clientFor(t *testing.T, baseURL string) *llm.Client {
	t.Helper()
	adapter, err := providers.NewCompatibleAdapter(providers.Config{
		Model:   "test-model",
		APIBase: baseURL,
	})
	if err != nil {
		t.Fatalf("创建适配器失败: %v", err)
	}
	return llm.NewClient(adapter, llm.ClientConfig{Model: "test-model", MaxRetries: 1}, zap.NewNop())
}
