package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescriptor(t *testing.T) {
	t.Run("Should not mutate the receiver in helpers", func(t *testing.T) {
		base := Descriptor{PageSize: 4}.WithFilter("category", "tacos")
		next := base.WithFilter("category", "burgers").WithRange("price", AtMost(5))
		assert.Equal(t, "tacos", base.Filters["category"])
		assert.Empty(t, base.Ranges)
		assert.Equal(t, "burgers", next.Filters["category"])
	})

	t.Run("Should drop filters set to all", func(t *testing.T) {
		d := Descriptor{PageSize: 4}.WithFilter("category", "tacos").WithFilter("category", AllValues)
		assert.NotContains(t, d.Filters, "category")
	})

	t.Run("Should drop open ranges", func(t *testing.T) {
		d := Descriptor{PageSize: 4}.WithRange("price", AtMost(5)).WithRange("price", Range{})
		assert.NotContains(t, d.Ranges, "price")
	})

	t.Run("Should clear everything but the page size", func(t *testing.T) {
		d := Descriptor{Page: 3, PageSize: 8, Search: "x", SortKey: "price", SortDirection: Desc}.
			WithFilter("category", "tacos")
		assert.Equal(t, Descriptor{Page: 1, PageSize: 8}, d.Cleared())
	})

	t.Run("Should fill zero fields from defaults", func(t *testing.T) {
		defaults := Descriptor{Page: 1, PageSize: 4, SortKey: "price", SortDirection: Asc}
		d, err := Descriptor{Search: "wrap", SortDirection: Desc}.Normalize(defaults)
		require.NoError(t, err)
		assert.Equal(t, "wrap", d.Search)
		assert.Equal(t, 4, d.PageSize)
		assert.Equal(t, 1, d.Page)
		assert.Equal(t, "price", d.SortKey)
		assert.Equal(t, Desc, d.SortDirection)
	})

	t.Run("Should fingerprint equal descriptors identically", func(t *testing.T) {
		a := Descriptor{PageSize: 4}.WithFilter("a", "1").WithFilter("b", "2")
		b := Descriptor{Page: 1, PageSize: 4}.WithFilter("b", "2").WithFilter("a", "1")
		assert.Equal(t, a.Fingerprint(), b.Fingerprint())
		assert.NotEqual(t, a.Fingerprint(), a.WithPage(2).Fingerprint())
	})

	t.Run("Should tell id sets apart from no restriction", func(t *testing.T) {
		base := Descriptor{PageSize: 4}
		empty := base.WithIDs([]string{})
		assert.NotEqual(t, base.Fingerprint(), empty.Fingerprint())
		assert.Equal(t,
			base.WithIDs([]string{"b", "a"}).Fingerprint(),
			base.WithIDs([]string{"a", "b"}).Fingerprint())
		d, err := empty.Normalize(Descriptor{PageSize: 10})
		require.NoError(t, err)
		assert.NotNil(t, d.IDs)
	})

	t.Run("Should check inclusive ranges", func(t *testing.T) {
		r := Between(1, 3)
		assert.True(t, r.Contains(1))
		assert.True(t, r.Contains(3))
		assert.False(t, r.Contains(3.01))
		assert.True(t, AtLeast(2).Contains(100))
	})
}

func TestMemo(t *testing.T) {
	s := itemSchema(t)
	recs := pricedItems(4, 2, 8)
	d := Descriptor{Page: 1, PageSize: 2, SortKey: "price"}

	t.Run("Should cache per revision and descriptor", func(t *testing.T) {
		m, err := NewMemo(s, 8)
		require.NoError(t, err)
		a, err := m.Apply(1, recs, d)
		require.NoError(t, err)
		b, err := m.Apply(1, recs, d)
		require.NoError(t, err)
		assert.Equal(t, a, b)
		assert.Equal(t, 1, m.Len())
		_, err = m.Apply(2, recs, d)
		require.NoError(t, err)
		assert.Equal(t, 2, m.Len())
	})

	t.Run("Should hand out independent record slices", func(t *testing.T) {
		m, err := NewMemo(s, 8)
		require.NoError(t, err)
		a, err := m.Apply(1, recs, d)
		require.NoError(t, err)
		a.Records[0].Price = 1000
		b, err := m.Apply(1, recs, d)
		require.NoError(t, err)
		assert.InDelta(t, 2, b.Records[0].Price, 0.0001)
	})

	t.Run("Should not cache invalid descriptors", func(t *testing.T) {
		m, err := NewMemo(s, 8)
		require.NoError(t, err)
		_, err = m.Apply(1, recs, Descriptor{})
		require.ErrorIs(t, err, ErrInvalidArgument)
		assert.Equal(t, 0, m.Len())
	})

	t.Run("Should compute directly when disabled", func(t *testing.T) {
		m, err := NewMemo(s, 0)
		require.NoError(t, err)
		res, err := m.Apply(1, recs, d)
		require.NoError(t, err)
		assert.Equal(t, []float64{2, 4}, prices(res.Records))
		assert.Equal(t, 0, m.Len())
	})
}
