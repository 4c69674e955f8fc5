package travel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/tripflow/agent"
	"github.com/BaSui01/tripflow/config"
	"github.com/BaSui01/tripflow/llm"
	"github.com/BaSui01/tripflow/testutil"
)

func newToolAgent(t *testing.T, client *llm.Client) *agent.ReActAgent {
	t.Helper()
	logger := zap.NewNop()
	a := agent.NewReActAgent(agent.Options{Name: "tools-test", MaxSteps: 5, LLMClient: client}, logger)

	knowledge := config.NewKnowledge()
	data := NewTravelData(knowledge, logger)
	NewToolset(data, knowledge, client, logger).Register(a)
	return a
}

func TestToolset_RegistersAllTools(t *testing.T) {
	a := newToolAgent(t, nil)

	tools := a.Registry().Tools()
	require.Len(t, tools, 8)

	names := make([]string, 0, len(tools))
	for _, info := range tools {
		names = append(names, info.Name)
	}
	assert.Equal(t, []string{
		"search_cities", "query_attractions", "generate_route", "calculate_budget",
		"get_city_info", "llm_chat", "generate_city_recommendation", "generate_route_plan",
	}, names)
}

func TestToolset_SearchCities_PlaceholderParams(t *testing.T) {
	a := newToolAgent(t, nil)

	// 规则拆解产出的占位参数形态
	result, err := a.Registry().Execute(context.Background(), "search_cities", map[string]any{
		"interests":  []string{},
		"budget_min": nil,
		"budget_max": nil,
		"season":     nil,
	})
	require.NoError(t, err)
	assert.Equal(t, 9, result["count"])
}

func TestToolset_SearchCities_JSONShapedParams(t *testing.T) {
	a := newToolAgent(t, nil)

	// LLM 规划出的参数经 JSON 反序列化后的形态
	result, err := a.Registry().Execute(context.Background(), "search_cities", map[string]any{
		"interests":  []any{"美食"},
		"budget_min": float64(300),
		"budget_max": float64(400),
	})
	require.NoError(t, err)
	entries := result["cities"].([]any)
	require.NotEmpty(t, entries)
	top := entries[0].(map[string]any)
	// 兴趣 +30 预算 +20
	assert.Equal(t, 50, top["score"])
}

func TestToolset_QueryAttractions(t *testing.T) {
	a := newToolAgent(t, nil)

	result, err := a.Registry().Execute(context.Background(), "query_attractions", map[string]any{
		"cities": []any{"杭州"},
	})
	require.NoError(t, err)
	data := result["data"].(map[string]any)
	assert.Contains(t, data, "杭州")
}

func TestToolset_QueryAttractions_MissingParam(t *testing.T) {
	a := newToolAgent(t, nil)

	_, err := a.Registry().Execute(context.Background(), "query_attractions", map[string]any{})
	require.Error(t, err)
}

func TestToolset_GenerateRoute_DefaultDays(t *testing.T) {
	a := newToolAgent(t, nil)

	result, err := a.Registry().Execute(context.Background(), "generate_route", map[string]any{
		"city": "杭州",
	})
	require.NoError(t, err)
	plan := result["route_plan"].([]any)
	assert.Len(t, plan, 3)
}

func TestToolset_CalculateBudget_FloatDays(t *testing.T) {
	a := newToolAgent(t, nil)

	result, err := a.Registry().Execute(context.Background(), "calculate_budget", map[string]any{
		"city": "北京",
		"days": float64(3),
	})
	require.NoError(t, err)
	budget := result["budget"].(map[string]any)
	assert.Equal(t, 3, budget["days"])
}

func TestToolset_GetCityInfo(t *testing.T) {
	a := newToolAgent(t, nil)

	result, err := a.Registry().Execute(context.Background(), "get_city_info", map[string]any{
		"city": "西安",
	})
	require.NoError(t, err)
	assert.Equal(t, true, result["success"])
}

func TestToolset_LLMChat(t *testing.T) {
	client := testutil.ChatClient(t, "西安是十三朝古都")
	a := newToolAgent(t, client)

	result, err := a.Registry().Execute(context.Background(), "llm_chat", map[string]any{
		"query":   "介绍一下西安",
		"context": "用户偏好历史文化",
	})
	require.NoError(t, err)
	assert.Equal(t, true, result["success"])
	assert.Equal(t, "西安是十三朝古都", result["response"])
}

func TestToolset_LLMChat_NoClient(t *testing.T) {
	a := newToolAgent(t, nil)

	result, err := a.Registry().Execute(context.Background(), "llm_chat", map[string]any{
		"query": "介绍一下西安",
	})
	require.NoError(t, err)
	assert.Equal(t, false, result["success"])
}

func TestToolset_GenerateCityRecommendation(t *testing.T) {
	payload := "```json\n{\"recommendations\":[{\"city\":\"西安\",\"reason\":\"历史底蕴深厚\",\"match_score\":95}],\"explanation\":\"按历史文化偏好推荐\"}\n```"
	client := testutil.ChatClient(t, payload)
	a := newToolAgent(t, client)

	result, err := a.Registry().Execute(context.Background(), "generate_city_recommendation", map[string]any{
		"user_query":       "推荐历史文化名城",
		"available_cities": []any{"北京", "西安"},
	})
	require.NoError(t, err)
	assert.Equal(t, true, result["success"])
	assert.NotEmpty(t, result["content"])

	recs, ok := result["recommendations"].(*llm.RecommendationPayload)
	require.True(t, ok)
	require.Len(t, recs.Recommendations, 1)
	assert.Equal(t, "西安", recs.Recommendations[0].City)
}

func TestToolset_GenerateCityRecommendation_BadJSON(t *testing.T) {
	client := testutil.ChatClient(t, "这不是JSON")
	a := newToolAgent(t, client)

	result, err := a.Registry().Execute(context.Background(), "generate_city_recommendation", map[string]any{
		"user_query":       "推荐城市",
		"available_cities": []any{"北京"},
	})
	require.NoError(t, err)
	assert.Equal(t, false, result["success"])
	assert.Equal(t, "这不是JSON", result["raw_content"])
}

func TestToolset_GenerateRoutePlan(t *testing.T) {
	payload := `{"route_plan":[{"day":1,"attractions":["兵马俑"],"schedule":"上午游览兵马俑","tips":"早点出发"}],"total_cost_estimate":{"tickets":120,"meals":160,"transportation":80,"total":360},"travel_tips":["带好证件"]}`
	client := testutil.ChatClient(t, payload)
	a := newToolAgent(t, client)

	result, err := a.Registry().Execute(context.Background(), "generate_route_plan", map[string]any{
		"city": "西安",
		"days": float64(1),
	})
	require.NoError(t, err)
	assert.Equal(t, true, result["success"])

	plan, ok := result["route_plan"].(*llm.RoutePlanPayload)
	require.True(t, ok)
	require.Len(t, plan.RoutePlan, 1)
	assert.Equal(t, []string{"兵马俑"}, plan.RoutePlan[0].Attractions)
}

func TestToolset_GenerateRoutePlan_UnknownCity(t *testing.T) {
	client := testutil.ChatClient(t, "{}")
	a := newToolAgent(t, client)

	result, err := a.Registry().Execute(context.Background(), "generate_route_plan", map[string]any{
		"city": "亚特兰蒂斯",
		"days": 2,
	})
	require.NoError(t, err)
	assert.Equal(t, false, result["success"])
	assert.Contains(t, result["error"], "未找到城市")
}
