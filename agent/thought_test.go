package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/tripflow/testutil"
)

func TestThoughtEngine_AnalyzeTask_Rules(t *testing.T) {
	e := NewThoughtEngine(nil, zap.NewNop())

	thought := e.AnalyzeTask(context.Background(), "推荐适合历史文化的城市", nil)

	assert.Equal(t, ThoughtAnalysis, thought.Type)
	assert.Equal(t, 0.7, thought.Confidence)
	assert.Contains(t, thought.Content, "城市推荐")
	assert.Nil(t, thought.Plan)
}

func TestThoughtEngine_AnalyzeTask_LLM(t *testing.T) {
	client := testutil.ChatClient(t, "```json\n"+`{
		"intent": "recommendation",
		"reasoning": "用户想要城市推荐",
		"tools": [{"name": "search_cities", "parameters": {"interests": ["历史文化"]}}],
		"confidence": 0.95
	}`+"\n```")
	e := NewThoughtEngine(client, zap.NewNop())

	thought := e.AnalyzeTask(context.Background(), "推荐适合历史文化的城市", nil)

	assert.Equal(t, ThoughtAnalysis, thought.Type)
	assert.Equal(t, 0.95, thought.Confidence)
	assert.Contains(t, thought.Content, "用户想要城市推荐")
	require.NotNil(t, thought.Plan)
	require.Len(t, thought.Plan.Steps, 1)
	assert.Equal(t, "search_cities", thought.Plan.Steps[0].Tool)
}

func TestThoughtEngine_AnalyzeTask_LLMFallback(t *testing.T) {
	t.Run("unparseable output", func(t *testing.T) {
		e := NewThoughtEngine(testutil.ChatClient(t, "我觉得用户想要推荐。"), zap.NewNop())
		thought := e.AnalyzeTask(context.Background(), "推荐适合历史文化的城市", nil)
		// 回退到规则策略
		assert.Equal(t, 0.7, thought.Confidence)
	})

	t.Run("transport failure", func(t *testing.T) {
		e := NewThoughtEngine(testutil.FailingChatClient(t), zap.NewNop())
		thought := e.AnalyzeTask(context.Background(), "推荐适合历史文化的城市", nil)
		assert.Equal(t, 0.7, thought.Confidence)
	})
}

func TestThoughtEngine_PlanActions_Rules(t *testing.T) {
	e := NewThoughtEngine(nil, zap.NewNop())
	r := catalogRegistry("search_cities", "llm_chat")

	thought := e.PlanActions(context.Background(), "推荐适合历史文化的城市", r)

	assert.Equal(t, ThoughtPlanning, thought.Type)
	assert.Equal(t, 0.9, thought.Confidence)
	require.NotNil(t, thought.Plan)
	require.Len(t, thought.Plan.Steps, 1)
	assert.Equal(t, "search_cities", thought.Plan.Steps[0].Tool)
	assert.Contains(t, thought.ReasoningChain[1], "search_cities")
}

func TestThoughtEngine_PlanActions_LLM(t *testing.T) {
	client := testutil.ChatClient(t, `{
		"steps": [
			{"step": 1, "tool": "get_city_info", "parameters": {"city": "杭州"}},
			{"tool": "generate_route", "parameters": {"city": "杭州", "days": 3}}
		],
		"reasoning": "先查信息再规划"
	}`)
	e := NewThoughtEngine(client, zap.NewNop())
	r := catalogRegistry("get_city_info", "generate_route")

	thought := e.PlanActions(context.Background(), "杭州3天怎么玩", r)

	require.NotNil(t, thought.Plan)
	require.Len(t, thought.Plan.Steps, 2)
	assert.Equal(t, 1, thought.Plan.Steps[0].Step)
	// 缺失的 step 序号按位置补齐
	assert.Equal(t, 2, thought.Plan.Steps[1].Step)
	assert.Equal(t, "generate_route", thought.Plan.Steps[1].Tool)
}

func TestThoughtEngine_Reflect(t *testing.T) {
	e := NewThoughtEngine(nil, zap.NewNop())

	good := e.Reflect(map[string]any{"success": true})
	assert.Equal(t, ThoughtReflection, good.Type)
	assert.Equal(t, 0.9, good.Confidence)
	assert.Len(t, good.ReasoningChain, 2)

	bad := e.Reflect(map[string]any{"success": false})
	assert.Equal(t, 0.6, bad.Confidence)
	assert.Contains(t, bad.ReasoningChain[1], "建议检查参数")

	// 结果为空视为失败
	assert.Equal(t, 0.6, e.Reflect(nil).Confidence)
}

func TestPlan_StepAt(t *testing.T) {
	var nilPlan *Plan
	_, ok := nilPlan.StepAt(0)
	assert.False(t, ok)

	p := &Plan{Steps: []PlannedStep{{Step: 1, Tool: "a"}, {Step: 2, Tool: "b"}}}
	step, ok := p.StepAt(1)
	require.True(t, ok)
	assert.Equal(t, "b", step.Tool)
	_, ok = p.StepAt(2)
	assert.False(t, ok)
}
