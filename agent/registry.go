package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const defaultToolTimeout = 30 * time.Second

type registeredTool struct {
	info ToolInfo
	exec Executor
}

// Registry 名称→工具的注册表。注册是启动期操作，由互斥锁保护；
// 查找与执行不加锁，依赖"注册先于稳态流量完成"的使用约定。
type Registry struct {
	mu     sync.Mutex
	tools  map[string]*registeredTool
	order  []string // 注册顺序，规则分解按它做 first-match
	logger *zap.Logger
}

// NewRegistry 创建空注册表。
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		tools:  make(map[string]*registeredTool),
		logger: logger,
	}
}

// Register 注册工具。重名注册返回 false 并保留原执行器，从不 panic。
func (r *Registry) Register(info ToolInfo, exec Executor) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if info.Name == "" || exec == nil {
		r.logger.Warn("rejecting tool registration",
			zap.String("tool", info.Name),
			zap.Bool("has_executor", exec != nil),
		)
		return false
	}
	if _, exists := r.tools[info.Name]; exists {
		r.logger.Warn("tool already registered", zap.String("tool", info.Name))
		return false
	}

	r.tools[info.Name] = &registeredTool{info: info, exec: exec}
	r.order = append(r.order, info.Name)
	r.logger.Debug("tool registered",
		zap.String("tool", info.Name),
		zap.String("category", info.Category),
	)
	return true
}

// Tools 按注册顺序返回全部工具描述。
func (r *Registry) Tools() []ToolInfo {
	out := make([]ToolInfo, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name].info)
	}
	return out
}

// Lookup 按名称取工具描述。
func (r *Registry) Lookup(name string) (ToolInfo, bool) {
	t, ok := r.tools[name]
	if !ok {
		return ToolInfo{}, false
	}
	return t.info, true
}

// FirstMatch 按注册顺序返回第一个名称包含任一子串的工具。
// 规则分解的平局规则依赖这里的注册顺序。
func (r *Registry) FirstMatch(substrings ...string) (ToolInfo, bool) {
	for _, name := range r.order {
		lower := strings.ToLower(name)
		for _, sub := range substrings {
			if strings.Contains(lower, sub) {
				return r.tools[name].info, true
			}
		}
	}
	return ToolInfo{}, false
}

// Execute 执行一次工具调用：校验必填参数、按工具自身预算限时执行，
// 非映射结果包装为 {"result": value}。所有失败返回 *ToolError。
func (r *Registry) Execute(ctx context.Context, name string, params map[string]any) (map[string]any, error) {
	t, ok := r.tools[name]
	if !ok {
		return nil, newToolError(ToolNotFound, name, "工具未注册")
	}

	// 前置校验，不依赖执行期报错
	for _, required := range t.info.RequiredParams {
		if _, present := params[required]; !present {
			return nil, newToolError(ToolMissingParameter, name, "缺少必填参数 %q", required)
		}
	}

	timeout := t.info.Timeout
	if timeout <= 0 {
		timeout = defaultToolTimeout
	}
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		value any
		err   error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- outcome{err: fmt.Errorf("panic: %v", rec)}
			}
		}()
		value, err := t.exec(execCtx, params)
		done <- outcome{value: value, err: err}
	}()

	select {
	case <-execCtx.Done():
		if execCtx.Err() == context.DeadlineExceeded {
			return nil, newToolError(ToolTimeout, name, "执行超过 %s 预算", timeout)
		}
		return nil, newToolError(ToolExecutionFailure, name, "执行被取消: %v", execCtx.Err())
	case out := <-done:
		if out.err != nil {
			return nil, newToolError(ToolExecutionFailure, name, "%v", out.err)
		}
		if m, isMap := out.value.(map[string]any); isMap {
			return m, nil
		}
		return map[string]any{"result": out.value}, nil
	}
}
