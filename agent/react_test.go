package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/BaSui01/tripflow/llm"
)

func newRuleAgent(maxSteps int) *ReActAgent {
	return NewReActAgent(Options{MaxSteps: maxSteps}, zap.NewNop())
}

func TestReActAgent_Run_RecommendationScenario(t *testing.T) {
	a := newRuleAgent(5)
	a.RegisterTool(ToolInfo{Name: "search_cities", Description: "搜索城市"},
		okExecutor(map[string]any{
			"success": true,
			"cities": []map[string]any{
				{"city": "西安"}, {"city": "北京"},
			},
		}))

	result := a.Run(context.Background(), "推荐适合历史文化的城市", nil)

	require.True(t, result.Success)
	assert.GreaterOrEqual(t, result.StepsCompleted, 1)
	assert.LessOrEqual(t, result.StepsCompleted, 5)
	assert.Equal(t, StateCompleted, a.State())

	// 第一步必须是规则分解选出的搜索工具且成功
	first := result.History[0]
	assert.Equal(t, "search_cities", first.Action.ToolName)
	assert.Equal(t, ActionSuccess, first.Action.Status)
	assert.True(t, first.Evaluation.Success)
}

func TestReActAgent_Run_TerminalToolStops(t *testing.T) {
	a := newRuleAgent(10)
	a.RegisterTool(ToolInfo{Name: "llm_chat", Description: "一般对话"},
		okExecutor(map[string]any{"success": true, "response": "你好！"}))

	result := a.Run(context.Background(), "你好", nil)

	require.True(t, result.Success)
	// llm_chat 成功后下一轮推理即触发终结工具停止条件
	assert.Equal(t, 1, result.StepsCompleted)
	assert.Equal(t, "llm_chat", result.History[0].Action.ToolName)
}

func TestReActAgent_Run_FailedToolDoesNotAbort(t *testing.T) {
	a := newRuleAgent(3)
	a.RegisterTool(ToolInfo{Name: "search_cities"},
		func(ctx context.Context, params map[string]any) (any, error) {
			return nil, errors.New("数据源不可用")
		})

	result := a.Run(context.Background(), "推荐适合海边的城市", nil)

	// 工具失败折叠进 history，run 本身正常完成
	require.True(t, result.Success)
	require.NotEmpty(t, result.History)
	first := result.History[0]
	assert.Equal(t, ActionFailed, first.Action.Status)
	assert.Contains(t, first.Action.Error, "数据源不可用")
	assert.False(t, first.Evaluation.Success)

	// 失败后的下一个思考是失败框架下的反思
	if len(result.History) > 1 {
		assert.Equal(t, ThoughtReflection, result.History[1].Thought.Type)
		assert.Contains(t, result.History[1].Thought.Content, "【执行失败】")
	}
}

func TestReActAgent_Run_ContextCarriesLastResult(t *testing.T) {
	a := newRuleAgent(3)
	a.RegisterTool(ToolInfo{Name: "llm_chat"},
		okExecutor(map[string]any{"success": true, "response": "好的"}))

	taskContext := map[string]any{"user": "u1"}
	result := a.Run(context.Background(), "随便聊聊", taskContext)

	require.True(t, result.Success)
	last, ok := taskContext["last_result"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "好的", last["response"])
}

func TestReActAgent_Run_NoToolsDegradesToNoop(t *testing.T) {
	a := newRuleAgent(2)

	result := a.Run(context.Background(), "你好", nil)

	require.True(t, result.Success)
	require.NotEmpty(t, result.History)
	// 没有可用工具时记录立即成功的空操作而不是崩溃
	assert.Equal(t, "none", result.History[0].Action.ToolName)
	assert.Equal(t, ActionSuccess, result.History[0].Action.Status)
}

func TestReActAgent_Callbacks(t *testing.T) {
	a := newRuleAgent(3)
	a.RegisterTool(ToolInfo{Name: "llm_chat"},
		okExecutor(map[string]any{"success": true, "response": "ok"}))

	var thoughts, actions int
	a.AddThoughtCallback(func(*Thought) { thoughts++ })
	a.AddThoughtCallback(func(*Thought) { panic("callback boom") }) // 回调炸掉不影响循环
	a.AddActionCallback(func(*Action) { actions++ })

	result := a.Run(context.Background(), "你好", nil)

	require.True(t, result.Success)
	assert.Greater(t, thoughts, 0)
	assert.Greater(t, actions, 0)
}

func TestReActAgent_Reset(t *testing.T) {
	a := newRuleAgent(3)
	a.RegisterTool(ToolInfo{Name: "llm_chat"},
		okExecutor(map[string]any{"success": true, "response": "ok"}))

	_ = a.Run(context.Background(), "你好", nil)
	require.Equal(t, StateCompleted, a.State())

	a.Reset()
	assert.Equal(t, StateIdle, a.State())
	assert.Empty(t, a.ThoughtHistory())

	// reset 后实例可复用
	result := a.Run(context.Background(), "再聊聊", nil)
	assert.True(t, result.Success)
}

func TestAction_StatusMonotonic(t *testing.T) {
	a := NewAction("t", nil)
	assert.Equal(t, ActionPending, a.Status)

	// Pending 不能直接到终态
	a.MarkSuccess(map[string]any{"success": true})
	assert.Equal(t, ActionPending, a.Status)

	a.MarkRunning()
	assert.Equal(t, ActionRunning, a.Status)

	a.MarkFailed("x")
	assert.Equal(t, ActionFailed, a.Status)
	assert.True(t, a.Terminal())

	// 终态后不再变更
	a.MarkSuccess(map[string]any{})
	assert.Equal(t, ActionFailed, a.Status)
	assert.Nil(t, a.Result)
	a.MarkRunning()
	assert.Equal(t, ActionFailed, a.Status)
}

func TestRemapParameters(t *testing.T) {
	mapped := remapParameters(map[string]any{
		"city":        "北京",
		"destination": []string{"上海"},
		"days":        3,
	})

	assert.Equal(t, 3, mapped["days"])
	// city/destination/location 都归一到 cities；标量字符串升格为单元素列表
	assert.NotContains(t, mapped, "city")
	cities := mapped["cities"]
	switch v := cities.(type) {
	case []string:
		assert.Len(t, v, 1)
	default:
		t.Fatalf("cities 应为列表，实际 %T", cities)
	}
}

func TestSummarizeResult(t *testing.T) {
	tests := []struct {
		name   string
		result map[string]any
		want   string
	}{
		{"nil result", nil, "工具执行成功"},
		{
			"route plan as decoded list",
			map[string]any{"success": true, "route_plan": []any{
				map[string]any{"day": 1}, map[string]any{"day": 2},
			}},
			"路线规划完成，共 2 天行程",
		},
		{
			"route plan as typed payload",
			map[string]any{"success": true, "route_plan": &llm.RoutePlanPayload{
				RoutePlan: []llm.RouteDay{{Day: 1}, {Day: 2}, {Day: 3}},
			}},
			"路线规划完成，共 3 天行程",
		},
		{
			"nil typed payload degrades to generic",
			map[string]any{"success": true, "route_plan": (*llm.RoutePlanPayload)(nil)},
			"工具执行成功，结果类型：map[string]interface {}",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, summarizeResult(tt.result))
		})
	}
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StateIdle, StateObserving))
	assert.True(t, CanTransition(StateReasoning, StateCompleted))
	assert.True(t, CanTransition(StateEvaluating, StateObserving))
	assert.False(t, CanTransition(StateCompleted, StateActing))
	assert.False(t, CanTransition(StateObserving, StateActing))

	err := ErrInvalidTransition{From: StateCompleted, To: StateActing}
	assert.Contains(t, err.Error(), "completed -> acting")
}

// 步数上界：任意任务、任意工具目录下 run 都在 max_steps 内终止，
// 且步数计数逐一递增。
func TestReActAgent_StepBound(t *testing.T) {
	tasks := []string{
		"推荐适合历史文化的城市",
		"北京 计划 3天",
		"帮我规划杭州的旅游路线，5天",
		"你好",
		"查询西安的信息",
	}
	toolNames := []string{"search_cities", "get_city_info", "generate_route", "llm_chat"}

	rapid.Check(t, func(t *rapid.T) {
		maxSteps := rapid.IntRange(1, 6).Draw(t, "max_steps")
		task := rapid.SampledFrom(tasks).Draw(t, "task")
		toolCount := rapid.IntRange(0, len(toolNames)).Draw(t, "tool_count")
		failTools := rapid.Bool().Draw(t, "fail_tools")

		a := newRuleAgent(maxSteps)
		for _, name := range toolNames[:toolCount] {
			if failTools {
				a.RegisterTool(ToolInfo{Name: name},
					func(ctx context.Context, params map[string]any) (any, error) {
						return nil, errors.New("fail")
					})
			} else {
				a.RegisterTool(ToolInfo{Name: name},
					okExecutor(map[string]any{"success": true, "response": "ok"}))
			}
		}

		result := a.Run(context.Background(), task, nil)

		if result.StepsCompleted > maxSteps {
			t.Fatalf("steps_completed=%d 超过 max_steps=%d", result.StepsCompleted, maxSteps)
		}
		for i, step := range result.History {
			if step.Step != i+1 {
				t.Fatalf("步骤计数不连续: history[%d].Step=%d", i, step.Step)
			}
			if step.Action != nil && !step.Action.Terminal() {
				t.Fatalf("历史中的行动必须处于终态: %s", step.Action.Status)
			}
		}
	})
}
