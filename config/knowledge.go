package config

// Attraction 景点条目。
type Attraction struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Duration int    `json:"duration"` // 游玩时长（小时）
	Ticket   int    `json:"ticket"`   // 门票（元）
}

// CityInfo 城市旅游信息。
type CityInfo struct {
	Name            string       `json:"name"`
	Region          string       `json:"region"`
	Tags            []string     `json:"tags"`
	BestSeasons     []string     `json:"best_seasons"`
	AvgBudgetPerDay int          `json:"avg_budget_per_day"`
	RecommendedDays int          `json:"recommended_days"`
	Attractions     []Attraction `json:"attractions"`
}

// Knowledge 内置旅游知识库：城市档案 + 兴趣标签索引。
type Knowledge struct {
	cities       map[string]CityInfo
	cityOrder    []string
	interestTags map[string][]string
}

// NewKnowledge 构建内置知识库。
func NewKnowledge() *Knowledge {
	k := &Knowledge{
		cities:       make(map[string]CityInfo),
		interestTags: interestTagIndex(),
	}
	for _, city := range builtinCities() {
		k.cities[city.Name] = city
		k.cityOrder = append(k.cityOrder, city.Name)
	}
	return k
}

// City 按名称查城市档案。
func (k *Knowledge) City(name string) (CityInfo, bool) {
	c, ok := k.cities[name]
	return c, ok
}

// Cities 全部城市名，按内置顺序。
func (k *Knowledge) Cities() []string {
	out := make([]string, len(k.cityOrder))
	copy(out, k.cityOrder)
	return out
}

// CitiesByTag 按兴趣标签查城市名列表。
func (k *Knowledge) CitiesByTag(tag string) []string {
	return k.interestTags[tag]
}

func builtinCities() []CityInfo {
	return []CityInfo{
		{
			Name:            "北京",
			Region:          "华北",
			Tags:            []string{"历史文化", "首都", "古建筑"},
			BestSeasons:     []string{"春季", "秋季"},
			AvgBudgetPerDay: 500,
			RecommendedDays: 4,
			Attractions: []Attraction{
				{Name: "故宫", Type: "历史遗迹", Duration: 4, Ticket: 60},
				{Name: "长城", Type: "历史遗迹", Duration: 6, Ticket: 40},
				{Name: "天坛", Type: "历史遗迹", Duration: 3, Ticket: 15},
				{Name: "颐和园", Type: "园林", Duration: 4, Ticket: 30},
			},
		},
		{
			Name:            "上海",
			Region:          "华东",
			Tags:            []string{"现代都市", "购物", "美食"},
			BestSeasons:     []string{"春季", "秋季"},
			AvgBudgetPerDay: 600,
			RecommendedDays: 3,
			Attractions: []Attraction{
				{Name: "外滩", Type: "城市景观", Duration: 3, Ticket: 0},
				{Name: "东方明珠", Type: "地标建筑", Duration: 2, Ticket: 180},
				{Name: "迪士尼乐园", Type: "主题乐园", Duration: 8, Ticket: 399},
				{Name: "豫园", Type: "园林", Duration: 2, Ticket: 40},
			},
		},
		{
			Name:            "杭州",
			Region:          "华东",
			Tags:            []string{"自然风光", "人文历史", "休闲"},
			BestSeasons:     []string{"春季", "秋季"},
			AvgBudgetPerDay: 400,
			RecommendedDays: 3,
			Attractions: []Attraction{
				{Name: "西湖", Type: "自然风光", Duration: 4, Ticket: 0},
				{Name: "灵隐寺", Type: "宗教文化", Duration: 3, Ticket: 45},
				{Name: "千岛湖", Type: "自然风光", Duration: 6, Ticket: 150},
				{Name: "宋城", Type: "主题乐园", Duration: 4, Ticket: 310},
			},
		},
		{
			Name:            "成都",
			Region:          "西南",
			Tags:            []string{"美食", "休闲", "熊猫"},
			BestSeasons:     []string{"春季", "秋季"},
			AvgBudgetPerDay: 350,
			RecommendedDays: 4,
			Attractions: []Attraction{
				{Name: "大熊猫繁育研究基地", Type: "动物园", Duration: 4, Ticket: 55},
				{Name: "宽窄巷子", Type: "历史街区", Duration: 3, Ticket: 0},
				{Name: "武侯祠", Type: "历史遗迹", Duration: 2, Ticket: 50},
				{Name: "都江堰", Type: "历史遗迹", Duration: 5, Ticket: 80},
			},
		},
		{
			Name:            "西安",
			Region:          "西北",
			Tags:            []string{"历史文化", "古都", "美食"},
			BestSeasons:     []string{"春季", "秋季"},
			AvgBudgetPerDay: 400,
			RecommendedDays: 4,
			Attractions: []Attraction{
				{Name: "兵马俑", Type: "历史遗迹", Duration: 4, Ticket: 120},
				{Name: "大雁塔", Type: "历史遗迹", Duration: 2, Ticket: 50},
				{Name: "古城墙", Type: "历史遗迹", Duration: 3, Ticket: 54},
				{Name: "华清宫", Type: "历史遗迹", Duration: 3, Ticket: 120},
			},
		},
		{
			Name:            "厦门",
			Region:          "华南",
			Tags:            []string{"海滨", "休闲", "文艺"},
			BestSeasons:     []string{"春季", "秋季", "冬季"},
			AvgBudgetPerDay: 450,
			RecommendedDays: 3,
			Attractions: []Attraction{
				{Name: "鼓浪屿", Type: "海岛", Duration: 6, Ticket: 0},
				{Name: "南普陀寺", Type: "宗教文化", Duration: 2, Ticket: 0},
				{Name: "曾厝垵", Type: "历史街区", Duration: 3, Ticket: 0},
				{Name: "环岛路", Type: "城市景观", Duration: 3, Ticket: 0},
			},
		},
		{
			Name:            "呼和浩特",
			Region:          "内蒙古",
			Tags:            []string{"草原", "历史文化", "美食", "民族风情"},
			BestSeasons:     []string{"夏季", "秋季"},
			AvgBudgetPerDay: 350,
			RecommendedDays: 3,
			Attractions: []Attraction{
				{Name: "大召寺", Type: "宗教文化", Duration: 2, Ticket: 35},
				{Name: "内蒙古博物馆", Type: "博物馆", Duration: 2, Ticket: 0},
				{Name: "昭君墓", Type: "历史遗迹", Duration: 2, Ticket: 65},
				{Name: "敕勒川草原", Type: "自然风光", Duration: 4, Ticket: 0},
			},
		},
		{
			Name:            "呼伦贝尔",
			Region:          "内蒙古",
			Tags:            []string{"草原", "自然风光", "民族风情", "美食"},
			BestSeasons:     []string{"夏季", "秋季"},
			AvgBudgetPerDay: 450,
			RecommendedDays: 4,
			Attractions: []Attraction{
				{Name: "呼伦贝尔大草原", Type: "自然风光", Duration: 6, Ticket: 0},
				{Name: "额尔古纳湿地", Type: "自然风光", Duration: 4, Ticket: 65},
				{Name: "满洲里国门", Type: "历史遗迹", Duration: 2, Ticket: 80},
				{Name: "套娃广场", Type: "主题广场", Duration: 2, Ticket: 0},
			},
		},
		{
			Name:            "包头",
			Region:          "内蒙古",
			Tags:            []string{"草原", "工业", "美食"},
			BestSeasons:     []string{"夏季", "秋季"},
			AvgBudgetPerDay: 300,
			RecommendedDays: 2,
			Attractions: []Attraction{
				{Name: "赛罕塔拉公园", Type: "自然风光", Duration: 3, Ticket: 0},
				{Name: "北方兵器城", Type: "工业旅游", Duration: 2, Ticket: 50},
				{Name: "五当召", Type: "宗教文化", Duration: 3, Ticket: 60},
			},
		},
	}
}

// 兴趣标签索引里允许出现知识库之外的城市，只用于推荐提示。
func interestTagIndex() map[string][]string {
	return map[string][]string{
		"历史文化": {"北京", "西安", "洛阳", "南京"},
		"自然风光": {"杭州", "桂林", "张家界", "九寨沟", "呼伦贝尔"},
		"现代都市": {"上海", "深圳", "广州", "香港"},
		"美食":   {"成都", "重庆", "广州", "西安", "呼和浩特", "呼伦贝尔"},
		"海滨度假": {"三亚", "厦门", "青岛", "大连"},
		"休闲养生": {"杭州", "成都", "丽江", "大理"},
		"草原风光": {"呼伦贝尔", "呼和浩特", "包头"},
		"民族风情": {"呼和浩特", "呼伦贝尔", "大理", "丽江"},
	}
}
