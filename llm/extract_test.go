package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripJSONFence(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"no fence", `  {"a":1}  `, `{"a":1}`},
		{"fence with trailing text stripped", "```json\n{\"a\":1}\n```\n", `{"a":1}`},
		{"plain text", "没有找到结果", "没有找到结果"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripJSONFence(tt.content))
		})
	}
}

func TestParseJSONContent(t *testing.T) {
	var out struct {
		City string `json:"city"`
		Days int    `json:"days"`
	}

	err := ParseJSONContent("```json\n{\"city\": \"杭州\", \"days\": 3}\n```", &out)
	require.NoError(t, err)
	assert.Equal(t, "杭州", out.City)
	assert.Equal(t, 3, out.Days)

	err = ParseJSONContent("抱歉，我无法生成推荐。", &out)
	assert.Error(t, err)
}
