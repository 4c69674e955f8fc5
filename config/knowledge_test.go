package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKnowledge_City(t *testing.T) {
	k := NewKnowledge()

	beijing, ok := k.City("北京")
	require.True(t, ok)
	assert.Equal(t, "华北", beijing.Region)
	assert.Contains(t, beijing.Tags, "历史文化")
	assert.Equal(t, 500, beijing.AvgBudgetPerDay)
	assert.Equal(t, 4, beijing.RecommendedDays)
	require.NotEmpty(t, beijing.Attractions)
	assert.Equal(t, "故宫", beijing.Attractions[0].Name)
	assert.Equal(t, 60, beijing.Attractions[0].Ticket)

	_, ok = k.City("亚特兰蒂斯")
	assert.False(t, ok)
}

func TestKnowledge_Cities(t *testing.T) {
	k := NewKnowledge()
	cities := k.Cities()
	require.Len(t, cities, 9)
	// 内置顺序稳定
	assert.Equal(t, "北京", cities[0])
	assert.Equal(t, "包头", cities[8])

	// 返回的是副本
	cities[0] = "改掉"
	assert.Equal(t, "北京", k.Cities()[0])
}

func TestKnowledge_CitiesByTag(t *testing.T) {
	k := NewKnowledge()
	assert.Equal(t, []string{"北京", "西安", "洛阳", "南京"}, k.CitiesByTag("历史文化"))
	assert.Contains(t, k.CitiesByTag("草原风光"), "呼伦贝尔")
	assert.Empty(t, k.CitiesByTag("不存在的标签"))
}
