package agent

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestShortTermMemory_BoundedFIFO(t *testing.T) {
	m := NewShortTermMemory(3)

	for i := 0; i < 5; i++ {
		m.Add(fmt.Sprintf("entry-%d", i), 0.5)
	}

	assert.Equal(t, 3, m.Len())

	recent := m.Recent(0)
	require.Len(t, recent, 3)
	// 最新的在前，最旧的两条已被淘汰
	assert.Equal(t, "entry-4", recent[0].Content)
	assert.Equal(t, "entry-2", recent[2].Content)
}

func TestShortTermMemory_RecentLimit(t *testing.T) {
	m := NewShortTermMemory(10)
	for i := 0; i < 4; i++ {
		m.Add(i, 0.5)
	}

	recent := m.Recent(2)
	require.Len(t, recent, 2)
	assert.Equal(t, 3, recent[0].Content)
	assert.Equal(t, 2, recent[1].Content)

	m.Clear()
	assert.Equal(t, 0, m.Len())
}

func TestEvaluationEngine_Counters(t *testing.T) {
	e := NewEvaluationEngine(nil)

	success := NewAction("t", nil)
	success.MarkRunning()
	success.MarkSuccess(map[string]any{"success": true})

	failed := NewAction("t", nil)
	failed.MarkRunning()
	failed.MarkFailed("boom")

	ev := e.Evaluate(success)
	assert.True(t, ev.Success)
	assert.True(t, ev.HasResult)

	ev = e.Evaluate(failed)
	assert.False(t, ev.Success)
	assert.False(t, ev.HasResult)

	total, ok, bad := e.Counters()
	assert.Equal(t, 2, total)
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, bad)
}

func TestRegistryTools_Order(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	names := []string{"c_tool", "a_tool", "b_tool"}
	for _, n := range names {
		r.Register(ToolInfo{Name: n}, okExecutor(nil))
	}

	tools := r.Tools()
	require.Len(t, tools, 3)
	for i, tool := range tools {
		assert.Equal(t, names[i], tool.Name)
	}
}
