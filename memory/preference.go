package memory

import (
	"regexp"
	"strconv"
	"strings"
)

// BudgetRange 预算区间，Min <= Max。
type BudgetRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// UserPreference 从用户消息里累积推断出的偏好。
// 字段只增不减：新文本只能补充或细化，不会把已有字段清空。
type UserPreference struct {
	BudgetRange      *BudgetRange `json:"budget_range,omitempty"`
	TravelDays       int          `json:"travel_days,omitempty"`
	InterestTags     []string     `json:"interest_tags,omitempty"`
	PreferredCities  []string     `json:"preferred_cities,omitempty"`
	SeasonPreference string       `json:"season_preference,omitempty"`
	TravelCompanions string       `json:"travel_companions,omitempty"`
}

var (
	// 只取紧跟在“预算”之后或紧邻“元/块”之前的数字，
	// 避免把天数之类的无关数字算进预算区间。
	budgetNumPattern = regexp.MustCompile(`预算\D{0,2}(\d+)|(\d+)\s*[元块]`)
	prefDaysPattern  = regexp.MustCompile(`(\d+)\s*天`)
)

// 兴趣关键词到标签的映射。顺序决定标签的追加顺序，不要重排。
var interestKeywords = []struct {
	keyword string
	tag     string
}{
	{"历史", "历史文化"},
	{"文化", "历史文化"},
	{"自然", "自然风光"},
	{"风景", "自然风光"},
	{"美食", "美食"},
	{"海边", "海滨度假"},
	{"海滨", "海滨度假"},
	{"购物", "现代都市"},
	{"休闲", "休闲养生"},
}

// UpdateFromText 扫描一条用户消息并增量更新偏好。
func (p *UserPreference) UpdateFromText(text string) {
	if strings.Contains(text, "预算") || strings.Contains(text, "元") || strings.Contains(text, "块") {
		var nums []int
		for _, m := range budgetNumPattern.FindAllStringSubmatch(text, -1) {
			raw := m[1]
			if raw == "" {
				raw = m[2]
			}
			if n, err := strconv.Atoi(raw); err == nil {
				nums = append(nums, n)
			}
		}
		switch {
		case len(nums) >= 2:
			lo, hi := nums[0], nums[0]
			for _, n := range nums[1:] {
				if n < lo {
					lo = n
				}
				if n > hi {
					hi = n
				}
			}
			p.BudgetRange = &BudgetRange{Min: lo, Max: hi}
		case len(nums) == 1:
			p.BudgetRange = &BudgetRange{Min: 0, Max: nums[0]}
		}
	}

	if strings.Contains(text, "天") {
		if m := prefDaysPattern.FindStringSubmatch(text); m != nil {
			if days, err := strconv.Atoi(m[1]); err == nil {
				p.TravelDays = days
			}
		}
	}

	for _, entry := range interestKeywords {
		if strings.Contains(text, entry.keyword) && !containsString(p.InterestTags, entry.tag) {
			p.InterestTags = append(p.InterestTags, entry.tag)
		}
	}
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
