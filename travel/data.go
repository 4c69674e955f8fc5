// Package travel 旅游助手的领域层：知识库环境、工具集与对话门面。
package travel

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/tripflow/config"
	"github.com/BaSui01/tripflow/memory"
)

// TravelData 旅游数据环境，基于内置知识库回答查询类工具调用。
// 工具结果统一用 map 表达，便于在推理循环与回答提取之间流转。
type TravelData struct {
	knowledge *config.Knowledge
	logger    *zap.Logger
}

// NewTravelData 创建旅游数据环境。
func NewTravelData(knowledge *config.Knowledge, logger *zap.Logger) *TravelData {
	return &TravelData{knowledge: knowledge, logger: logger}
}

// SearchCities 根据兴趣、预算、季节搜索匹配城市，按匹配度降序。
// 兴趣命中 +30，预算区间命中 +20（低于上限 +10），季节命中 +15；
// 无任何条件时所有城市记 50 分。
func (d *TravelData) SearchCities(interests []string, budget *memory.BudgetRange, season string) map[string]any {
	type scored struct {
		entry map[string]any
		score int
	}
	var matched []scored

	for _, name := range d.knowledge.Cities() {
		info, ok := d.knowledge.City(name)
		if !ok {
			continue
		}

		score := 0
		var reasons []string

		for _, interest := range interests {
			hit := false
			for _, tag := range info.Tags {
				if interest == tag || strings.Contains(tag, interest) {
					hit = true
					break
				}
			}
			if hit {
				score += 30
				reasons = append(reasons, fmt.Sprintf("符合%s兴趣", interest))
			}
		}

		if budget != nil {
			switch {
			case budget.Min <= info.AvgBudgetPerDay && info.AvgBudgetPerDay <= budget.Max:
				score += 20
				reasons = append(reasons, "预算适合")
			case info.AvgBudgetPerDay < budget.Max:
				score += 10
			}
		}

		if season != "" {
			for _, s := range info.BestSeasons {
				if s == season {
					score += 15
					reasons = append(reasons, "季节适宜")
					break
				}
			}
		}

		if len(interests) == 0 && budget == nil && season == "" {
			score = 50
		}

		if score > 0 {
			matched = append(matched, scored{
				entry: map[string]any{
					"city":          name,
					"score":         score,
					"info":          cityInfoMap(info),
					"match_reasons": reasons,
				},
				score: score,
			})
		}
	}

	sort.SliceStable(matched, func(i, j int) bool { return matched[i].score > matched[j].score })

	cities := make([]any, 0, len(matched))
	for _, m := range matched {
		cities = append(cities, m.entry)
	}

	return map[string]any{
		"success": true,
		"cities":  cities,
		"count":   len(cities),
	}
}

// QueryAttractions 查询城市景点。名称不是城市时按地区名展开，
// 合并该地区所有城市的景点并标记来源地区。
func (d *TravelData) QueryAttractions(cities []string) map[string]any {
	result := make(map[string]any)

	for _, name := range cities {
		if info, ok := d.knowledge.City(name); ok {
			result[name] = map[string]any{
				"attractions":        attractionList(info.Attractions),
				"avg_budget_per_day": info.AvgBudgetPerDay,
				"recommended_days":   info.RecommendedDays,
			}
			continue
		}
		for _, actual := range d.citiesByRegion(name) {
			info, ok := d.knowledge.City(actual)
			if !ok {
				continue
			}
			result[actual] = map[string]any{
				"attractions":        attractionList(info.Attractions),
				"avg_budget_per_day": info.AvgBudgetPerDay,
				"recommended_days":   info.RecommendedDays,
				"region":             name,
			}
		}
	}

	return map[string]any{
		"success":      true,
		"data":         result,
		"cities_count": len(result),
	}
}

// CalculateBudget 估算行程预算：餐饮按日均 40%、市内交通 20%、
// 住宿 30%，城际交通固定 1000 元，门票按景点票价合计。
func (d *TravelData) CalculateBudget(city string, days int, includeAccommodation, includeTransportation bool) map[string]any {
	if days <= 0 {
		days = 3
	}
	info, ok := d.knowledge.City(city)
	if !ok {
		return map[string]any{
			"success": false,
			"error":   "未找到城市: " + city,
		}
	}

	avgDaily := info.AvgBudgetPerDay
	if avgDaily == 0 {
		avgDaily = 400
	}

	ticketTotal := 0
	for _, a := range info.Attractions {
		ticketTotal += a.Ticket
	}

	budget := map[string]any{
		"tickets":              ticketTotal,
		"meals":                int(float64(avgDaily) * 0.4 * float64(days)),
		"local_transportation": int(float64(avgDaily) * 0.2 * float64(days)),
	}
	if includeAccommodation {
		budget["accommodation"] = int(float64(avgDaily) * 0.3 * float64(days))
	}
	if includeTransportation {
		budget["inter_city_transportation"] = 1000
	}

	total := 0
	for _, v := range budget {
		total += v.(int)
	}
	budget["total"] = total
	budget["days"] = days
	budget["avg_per_day"] = total / days

	return map[string]any{
		"success": true,
		"city":    city,
		"budget":  budget,
	}
}

// GetCityInfo 获取城市详情。名称是地区时返回地区视图：
// 用首个城市的档案打底并附上地区内全部城市。
func (d *TravelData) GetCityInfo(city string) map[string]any {
	if info, ok := d.knowledge.City(city); ok {
		return map[string]any{
			"success": true,
			"city":    city,
			"info":    cityInfoMap(info),
		}
	}

	if regionCities := d.citiesByRegion(city); len(regionCities) > 0 {
		if info, ok := d.knowledge.City(regionCities[0]); ok {
			m := cityInfoMap(info)
			m["name"] = city
			m["is_region"] = true
			m["cities"] = regionCities
			return map[string]any{
				"success": true,
				"city":    city,
				"info":    m,
			}
		}
	}

	return map[string]any{
		"success": false,
		"error":   "未找到城市: " + city,
	}
}

// GenerateRoute 基于知识库生成简单的按天路线：每天安排一个景点，
// 天数超过景点数时截断。费用估算只含前 days 个景点门票与日均开销。
func (d *TravelData) GenerateRoute(city string, days int) map[string]any {
	result := d.GetCityInfo(city)
	if ok, _ := result["success"].(bool); !ok {
		return result
	}

	info, _ := result["info"].(map[string]any)
	attractions, _ := info["attractions"].([]any)

	var routePlan []any
	ticketTotal := 0
	for i := 0; i < days && i < len(attractions); i++ {
		attr, _ := attractions[i].(map[string]any)
		name, _ := attr["name"].(string)
		if ticket, ok := attr["ticket"].(int); ok {
			ticketTotal += ticket
		}
		routePlan = append(routePlan, map[string]any{
			"day":         i + 1,
			"attractions": []any{name},
			"schedule":    "游览" + name,
		})
	}

	avgDaily, _ := info["avg_budget_per_day"].(int)
	if avgDaily == 0 {
		avgDaily = 400
	}

	return map[string]any{
		"success":    true,
		"city":       city,
		"route_plan": routePlan,
		"total_cost_estimate": map[string]any{
			"tickets": ticketTotal,
			"total":   ticketTotal + avgDaily*days,
		},
	}
}

func (d *TravelData) citiesByRegion(region string) []string {
	var out []string
	for _, name := range d.knowledge.Cities() {
		if info, ok := d.knowledge.City(name); ok && info.Region == region {
			out = append(out, name)
		}
	}
	return out
}

func cityInfoMap(info config.CityInfo) map[string]any {
	return map[string]any{
		"name":               info.Name,
		"region":             info.Region,
		"tags":               toAnySlice(info.Tags),
		"best_season":        toAnySlice(info.BestSeasons),
		"avg_budget_per_day": info.AvgBudgetPerDay,
		"recommended_days":   info.RecommendedDays,
		"attractions":        attractionList(info.Attractions),
	}
}

func attractionList(attractions []config.Attraction) []any {
	out := make([]any, 0, len(attractions))
	for _, a := range attractions {
		out = append(out, map[string]any{
			"name":     a.Name,
			"type":     a.Type,
			"duration": a.Duration,
			"ticket":   a.Ticket,
		})
	}
	return out
}

func toAnySlice(in []string) []any {
	out := make([]any, 0, len(in))
	for _, s := range in {
		out = append(out, s)
	}
	return out
}
