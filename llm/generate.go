package llm

import (
	"context"
	"fmt"
	"strings"
)

// CityRecommendation 单条城市推荐。
type CityRecommendation struct {
	City       string `json:"city"`
	Reason     string `json:"reason"`
	MatchScore int    `json:"match_score"`
}

// RecommendationPayload 推荐生成的结构化输出。
type RecommendationPayload struct {
	Recommendations []CityRecommendation `json:"recommendations"`
	Explanation     string               `json:"explanation"`
}

// RecommendationResult 推荐调用结果：原始对话结果 + 解析出的推荐。
// JSON 解析失败时整体降级为失败，RawContent 保留原始文本用于排查。
type RecommendationResult struct {
	ChatResult
	Recommendations *RecommendationPayload `json:"recommendations,omitempty"`
	RawContent      string                 `json:"raw_content,omitempty"`
}

// AttractionBrief 路线规划提示词中用到的景点摘要。
type AttractionBrief struct {
	Name     string
	Type     string
	Duration float64 // 建议游玩小时数
	Ticket   float64 // 门票（元）
}

// RouteDay 路线中的一天安排。
type RouteDay struct {
	Day         int      `json:"day"`
	Attractions []string `json:"attractions"`
	Schedule    string   `json:"schedule"`
	Tips        string   `json:"tips"`
}

// CostEstimate 费用估算。
type CostEstimate struct {
	Tickets        float64 `json:"tickets"`
	Meals          float64 `json:"meals"`
	Transportation float64 `json:"transportation"`
	Total          float64 `json:"total"`
}

// RoutePlanPayload 路线规划的结构化输出。
type RoutePlanPayload struct {
	RoutePlan         []RouteDay   `json:"route_plan"`
	TotalCostEstimate CostEstimate `json:"total_cost_estimate"`
	TravelTips        []string     `json:"travel_tips"`
}

// RoutePlanResult 路线规划调用结果。
type RoutePlanResult struct {
	ChatResult
	Plan       *RoutePlanPayload `json:"route_plan,omitempty"`
	RawContent string            `json:"raw_content,omitempty"`
}

// GenerateCityRecommendation 基于用户需求与偏好从候选城市中生成推荐。
// 内部发起一次 Chat 调用并要求严格 JSON 输出；解析失败不会 panic，
// 而是返回携带原始内容的失败结果。
func (c *Client) GenerateCityRecommendation(ctx context.Context, userQuery, preferenceContext string, availableCities []string) *RecommendationResult {
	systemPrompt := fmt.Sprintf(`你是一个专业的旅游助手，负责根据用户需求推荐合适的旅游城市。

可推荐城市列表：%s

当前用户偏好：
%s

请基于用户需求，从可推荐城市中选择3-5个最合适的城市，并以JSON格式返回：
{
    "recommendations": [
        {
            "city": "城市名",
            "reason": "推荐理由（50字以内）",
            "match_score": 90
        }
    ],
    "explanation": "整体推荐说明（100字以内）"
}

注意：
1. 只推荐列表中存在的城市
2. match_score为匹配度评分（0-100）
3. 推荐理由需结合用户偏好和城市特色
4. 按匹配度从高到低排序`, strings.Join(availableCities, ", "), preferenceContext)

	resp := c.Chat(ctx, []Message{
		{Role: RoleSystem, Content: systemPrompt},
		{Role: RoleUser, Content: userQuery},
	}, Temp(0.7))

	if !resp.Success {
		return &RecommendationResult{ChatResult: *resp}
	}

	var payload RecommendationPayload
	if err := ParseJSONContent(resp.Content, &payload); err != nil {
		return &RecommendationResult{
			ChatResult: ChatResult{Success: false, Error: fmt.Sprintf("JSON解析失败: %v", err)},
			RawContent: resp.Content,
		}
	}

	return &RecommendationResult{ChatResult: *resp, Recommendations: &payload}
}

// GenerateRoutePlan 为指定城市与天数生成详细旅游路线。
func (c *Client) GenerateRoutePlan(ctx context.Context, city string, days int, attractions []AttractionBrief, userPreference string) *RoutePlanResult {
	lines := make([]string, 0, len(attractions))
	for _, a := range attractions {
		lines = append(lines, fmt.Sprintf("- %s：%s，建议游玩%g小时，门票%g元",
			a.Name, a.Type, a.Duration, a.Ticket))
	}

	systemPrompt := fmt.Sprintf(`你是一个专业的旅游规划师，负责为用户制定详细的旅游路线。

目标城市：%s
旅行天数：%d天
可选景点：
%s

用户偏好：
%s

请制定一个%d天的详细旅游路线，以JSON格式返回：
{
    "route_plan": [
        {
            "day": 1,
            "attractions": ["景点1", "景点2"],
            "schedule": "上午游览景点1（3小时），下午游览景点2（4小时）",
            "tips": "建议事项"
        }
    ],
    "total_cost_estimate": {
        "tickets": 500,
        "meals": 300,
        "transportation": 200,
        "total": 1000
    },
    "travel_tips": ["tip1", "tip2", "tip3"]
}

注意：
1. 合理安排每天行程，避免过于紧凑
2. 考虑景点间的地理位置和交通时间
3. 提供实用的旅行建议
4. 估算各项费用`, city, days, strings.Join(lines, "\n"), userPreference, days)

	resp := c.Chat(ctx, []Message{
		{Role: RoleSystem, Content: systemPrompt},
		{Role: RoleUser, Content: fmt.Sprintf("帮我规划%s%d天的旅游路线", city, days)},
	}, Temp(0.6))

	if !resp.Success {
		return &RoutePlanResult{ChatResult: *resp}
	}

	var payload RoutePlanPayload
	if err := ParseJSONContent(resp.Content, &payload); err != nil {
		return &RoutePlanResult{
			ChatResult: ChatResult{Success: false, Error: fmt.Sprintf("JSON解析失败: %v", err)},
			RawContent: resp.Content,
		}
	}

	return &RoutePlanResult{ChatResult: *resp, Plan: &payload}
}
