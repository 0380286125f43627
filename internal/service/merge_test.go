package service

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestShallowMerge(t *testing.T) {
	stored := map[string]any{"a": 1, "b": "keep"}
	update := map[string]any{"a": 2, "c": true}

	merged := ShallowMerge(stored, update)

	require.Equal(t, 2, merged["a"])
	require.Equal(t, "keep", merged["b"])
	require.Equal(t, true, merged["c"])
}

func TestShallowMerge_NilStored(t *testing.T) {
	merged := ShallowMerge(nil, map[string]any{"x": 1})
	require.Equal(t, map[string]any{"x": 1}, merged)
}

func TestShallowMerge_NestedValueReplacedWhole(t *testing.T) {
	// 浅合并：顶层 key 整体替换，不下钻
	stored := map[string]any{"nested": map[string]any{"x": 1, "y": 2}}
	update := map[string]any{"nested": map[string]any{"x": 9}}

	merged := ShallowMerge(stored, update)

	require.Equal(t, map[string]any{"x": 9}, merged["nested"])
}

func TestDeepMerge_PreservesNestedSiblings(t *testing.T) {
	stored := map[string]any{
		"a": map[string]any{"x": 1, "y": 2},
		"b": "other",
	}
	update := map[string]any{
		"a": map[string]any{"x": 10},
	}

	merged := DeepMerge(stored, update)

	nested, ok := merged["a"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, 10, nested["x"])
	require.Equal(t, 2, nested["y"])
	require.Equal(t, "other", merged["b"])
}

func TestDeepMerge_TypeMismatchReplaces(t *testing.T) {
	// 一边不是 map：update 的值整体替换
	stored := map[string]any{"a": map[string]any{"x": 1}}
	update := map[string]any{"a": "scalar"}

	merged := DeepMerge(stored, update)
	require.Equal(t, "scalar", merged["a"])
}

func TestDeepMerge_RecursesMultipleLevels(t *testing.T) {
	stored := map[string]any{
		"l1": map[string]any{
			"l2": map[string]any{"keep": true, "change": 1},
		},
	}
	update := map[string]any{
		"l1": map[string]any{
			"l2": map[string]any{"change": 2},
		},
	}

	merged := DeepMerge(stored, update)

	l2 := merged["l1"].(map[string]any)["l2"].(map[string]any)
	require.Equal(t, true, l2["keep"])
	require.Equal(t, 2, l2["change"])
}
