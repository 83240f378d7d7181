package core_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compozy/listview/engine/core"
)

func TestID(t *testing.T) {
	t.Run("Should report zero value", func(t *testing.T) {
		var id core.ID
		assert.True(t, id.IsZero())
		assert.False(t, core.ID("x").IsZero())
		assert.Equal(t, "x", core.ID("x").String())
	})
	t.Run("Should generate unique ids", func(t *testing.T) {
		a, err := core.NewID()
		require.NoError(t, err)
		b := core.MustNewID()
		assert.NotEqual(t, a, b)
		assert.Len(t, a.String(), 27)
	})
}

type sample struct {
	Name string
	Tags []string
	Meta map[string]int
}

func TestDeepCopy(t *testing.T) {
	t.Run("Should not share nested slices or maps", func(t *testing.T) {
		src := sample{Name: "a", Tags: []string{"x"}, Meta: map[string]int{"k": 1}}
		cp, err := core.DeepCopy(src)
		require.NoError(t, err)
		cp.Tags[0] = "changed"
		cp.Meta["k"] = 2
		assert.Equal(t, "x", src.Tags[0])
		assert.Equal(t, 1, src.Meta["k"])
	})
	t.Run("Should copy every slice element", func(t *testing.T) {
		src := []sample{{Name: "a", Tags: []string{"x"}}, {Name: "b"}}
		cp, err := core.CloneSlice(src)
		require.NoError(t, err)
		cp[0].Tags[0] = "y"
		assert.Equal(t, "x", src[0].Tags[0])
		assert.Len(t, cp, 2)
	})
	t.Run("Should keep nil slices nil", func(t *testing.T) {
		cp, err := core.CloneSlice[sample](nil)
		require.NoError(t, err)
		assert.Nil(t, cp)
	})
}

func TestETag(t *testing.T) {
	t.Run("Should be independent of map key order", func(t *testing.T) {
		a := map[string]any{"b": 1, "a": []any{"x", map[string]any{"z": true, "y": nil}}}
		b := map[string]any{"a": []any{"x", map[string]any{"y": nil, "z": true}}, "b": 1}
		assert.Equal(t, core.ETagFromAny(a), core.ETagFromAny(b))
	})
	t.Run("Should differ when values differ", func(t *testing.T) {
		assert.NotEqual(t, core.ETagFromAny(map[string]any{"a": 1}), core.ETagFromAny(map[string]any{"a": 2}))
	})
	t.Run("Should canonicalize raw JSON", func(t *testing.T) {
		got := core.StableJSONFromRaw([]byte(`{"b":1.50,"a":"x"}`))
		assert.Equal(t, `{"a":"x","b":1.50}`, string(got))
	})
}
