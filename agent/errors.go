package agent

import "fmt"

// ToolErrorKind 工具错误分类
type ToolErrorKind string

const (
	ToolNotFound         ToolErrorKind = "not_found"         // 工具未注册
	ToolMissingParameter ToolErrorKind = "missing_parameter" // 必填参数缺失
	ToolTimeout          ToolErrorKind = "timeout"           // 超出执行预算
	ToolExecutionFailure ToolErrorKind = "execution_failure" // 工具内部错误
)

// ToolError 工具层错误。所有种类在 Act 阶段折叠为 Failed Action，
// 不会让循环崩溃。
type ToolError struct {
	Kind    ToolErrorKind
	Tool    string
	Message string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool %s: %s: %s", e.Tool, e.Kind, e.Message)
}

func newToolError(kind ToolErrorKind, tool, format string, args ...any) *ToolError {
	return &ToolError{Kind: kind, Tool: tool, Message: fmt.Sprintf(format, args...)}
}
