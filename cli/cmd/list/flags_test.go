package list

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compozy/listview/engine/query"
)

func parseFlags(t *testing.T, args ...string) *descriptorFlags {
	t.Helper()
	var f descriptorFlags
	c := &cobra.Command{Use: "test"}
	f.register(c)
	require.NoError(t, c.ParseFlags(args))
	return &f
}

func TestDescriptorFlags(t *testing.T) {
	t.Run("Should build filters, ranges and sort", func(t *testing.T) {
		f := parseFlags(t,
			"--filter", "type=tacos",
			"--min", "cleanliness=3",
			"--max", "cleanliness=5",
			"-q", "taco",
			"--sort", "name",
			"--page", "2",
		)
		d, err := f.descriptor()
		require.NoError(t, err)
		assert.Equal(t, "tacos", d.Filters["type"])
		require.NotNil(t, d.Ranges["cleanliness"].Min)
		assert.InDelta(t, 3.0, *d.Ranges["cleanliness"].Min, 0)
		assert.InDelta(t, 5.0, *d.Ranges["cleanliness"].Max, 0)
		assert.Equal(t, "taco", d.Search)
		assert.Equal(t, "name", d.SortKey)
		assert.Equal(t, query.Asc, d.SortDirection)
		assert.Equal(t, 2, d.Page)
	})
	t.Run("Should leave unset flags at zero", func(t *testing.T) {
		d, err := parseFlags(t).descriptor()
		require.NoError(t, err)
		assert.Empty(t, d.Filters)
		assert.Empty(t, d.SortKey)
		assert.Zero(t, d.PageSize)
	})
	t.Run("Should reject non-numeric bounds and negative pages", func(t *testing.T) {
		_, err := parseFlags(t, "--max", "price=cheap").descriptor()
		assert.ErrorIs(t, err, query.ErrInvalidArgument)
		_, err = parseFlags(t, "--page-size", "-1").descriptor()
		assert.ErrorIs(t, err, query.ErrInvalidArgument)
	})
}
