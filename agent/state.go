package agent

import "fmt"

// State 定义 Agent 生命周期状态
type State string

const (
	StateIdle       State = "idle"       // 空闲，可接收任务
	StateObserving  State = "observing"  // 观察上一步结果
	StateReasoning  State = "reasoning"  // 生成思考
	StateActing     State = "acting"     // 执行工具调用
	StateEvaluating State = "evaluating" // 评估行动结果
	StateCompleted  State = "completed"  // 本次运行完成
	StateError      State = "error"      // 本次运行失败
)

// validTransitions 定义合法的状态转换
var validTransitions = map[State][]State{
	StateIdle:       {StateObserving, StateError},
	StateObserving:  {StateReasoning, StateError},
	StateReasoning:  {StateActing, StateCompleted, StateError}, // 停止条件在推理后检查
	StateActing:     {StateEvaluating, StateError},
	StateEvaluating: {StateObserving, StateCompleted, StateError},
	StateCompleted:  {StateIdle}, // reset 后可复用
	StateError:      {StateIdle},
}

// CanTransition 检查状态转换是否合法
func CanTransition(from, to State) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// ErrInvalidTransition 非法状态转换错误
type ErrInvalidTransition struct {
	From State
	To   State
}

func (e ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid state transition: %s -> %s", e.From, e.To)
}
