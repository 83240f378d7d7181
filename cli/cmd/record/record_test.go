package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compozy/listview/engine/collection"
	"github.com/compozy/listview/engine/query"
)

func TestBuildPatch(t *testing.T) {
	t.Run("Should parse --set values as JSON when possible", func(t *testing.T) {
		patch, err := buildPatch(nil, map[string]string{
			"points":     "2400",
			"vaccinated": "true",
			"name":       "Luna",
			"tags":       `["quick","vegan"]`,
		})
		require.NoError(t, err)
		assert.InDelta(t, 2400.0, patch["points"], 0)
		assert.Equal(t, true, patch["vaccinated"])
		assert.Equal(t, "Luna", patch["name"])
		assert.Equal(t, []any{"quick", "vegan"}, patch["tags"])
	})
	t.Run("Should merge a JSON object with --set taking precedence", func(t *testing.T) {
		patch, err := buildPatch([]string{`{"status":"traded","title":"Lamp"}`}, map[string]string{"status": "available"})
		require.NoError(t, err)
		assert.Equal(t, collection.Patch{"status": "available", "title": "Lamp"}, patch)
	})
	t.Run("Should reject empty and malformed changes", func(t *testing.T) {
		_, err := buildPatch(nil, nil)
		assert.ErrorIs(t, err, query.ErrInvalidArgument)
		_, err = buildPatch([]string{`"status"`}, nil)
		assert.ErrorIs(t, err, collection.ErrInvalidRecord)
	})
}
