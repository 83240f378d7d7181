package helpers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/compozy/listview/engine/catalog"
	"github.com/compozy/listview/engine/collection"
	"github.com/compozy/listview/engine/listview"
)

type row struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Tags  []string `json:"tags"`
	Score float64  `json:"score"`
}

func sampleView() catalog.View {
	return catalog.View{
		Records: []row{
			{ID: "1", Name: "Chicken Wrap", Tags: []string{"lunch", "quick"}, Score: 4.5},
			{ID: "2", Name: "Fried Rice", Score: 3},
		},
		TotalMatching: 2,
		TotalPages:    1,
		Page:          1,
		PageSize:      10,
		Status:        listview.StatusReady,
	}
}

func TestViewRows(t *testing.T) {
	t.Run("Should read columns by JSON path and join arrays", func(t *testing.T) {
		rows, err := ViewRows([]string{"id", "name", "tags", "score"}, sampleView())
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, []string{"1", "Chicken Wrap", "lunch, quick", "4.5"}, rows[0])
		assert.Equal(t, []string{"2", "Fried Rice", "", "3"}, rows[1])
	})
}

func TestOutputWriter(t *testing.T) {
	t.Run("Should print a table with a paging line", func(t *testing.T) {
		var buf bytes.Buffer
		ow := NewOutputWriter(&buf, OutputFormatTable, false)
		require.NoError(t, ow.WriteView([]string{"id", "name"}, sampleView()))
		out := buf.String()
		assert.Contains(t, out, "name")
		assert.Contains(t, out, "Chicken Wrap")
		assert.Contains(t, out, "page 1 of 1, 2 matching records")
	})

	t.Run("Should print the status message instead of an empty table", func(t *testing.T) {
		var buf bytes.Buffer
		view := catalog.View{Records: []row{}, Page: 1, Status: listview.StatusEmpty, Message: listview.MessageEmpty}
		require.NoError(t, NewOutputWriter(&buf, OutputFormatTable, false).WriteView([]string{"id"}, view))
		assert.Contains(t, buf.String(), listview.MessageEmpty)
		assert.Contains(t, buf.String(), "0 matching records")
	})

	t.Run("Should print views as JSON", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewOutputWriter(&buf, OutputFormatJSON, false).WriteView([]string{"id"}, sampleView()))
		assert.True(t, gjson.Valid(buf.String()))
		assert.Equal(t, "Fried Rice", gjson.Get(buf.String(), "records.1.name").String())
		assert.Equal(t, int64(2), gjson.Get(buf.String(), "total_matching").Int())
	})

	t.Run("Should use the text renderer outside JSON mode", func(t *testing.T) {
		var buf bytes.Buffer
		called := false
		err := NewOutputWriter(&buf, OutputFormatTable, false).WriteData(map[string]string{"theme": "dark"}, func(w io.Writer) error {
			called = true
			_, err := w.Write([]byte("dark\n"))
			return err
		})
		require.NoError(t, err)
		assert.True(t, called)
		assert.Equal(t, "dark\n", buf.String())
	})
}

func TestCategorize(t *testing.T) {
	t.Run("Should map engine errors to codes", func(t *testing.T) {
		assert.Equal(t, ErrCodeNotFound, Categorize(fmt.Errorf("%w: 9", collection.ErrNotFound)).Code)
		assert.Equal(t, ErrCodeInvalidArgument, Categorize(collection.ErrInvalidRecord).Code)
		assert.Equal(t, ErrCodeConflict, Categorize(collection.ErrDuplicateID).Code)
		assert.Equal(t, ErrCodeNotFound, Categorize(catalog.ErrUnknownKind).Code)
		assert.Equal(t, ErrCodeInternal, Categorize(errors.New("boom")).Code)
	})

	t.Run("Should keep existing CLI errors", func(t *testing.T) {
		cliErr := NewCliError(ErrCodeConflict, "taken", "id 1")
		assert.Same(t, cliErr, Categorize(fmt.Errorf("wrapped: %w", cliErr)))
		assert.Equal(t, "taken: id 1", cliErr.Error())
	})
}

func TestWriteError(t *testing.T) {
	t.Run("Should write a JSON error object", func(t *testing.T) {
		var buf bytes.Buffer
		WriteError(&buf, collection.ErrDuplicateID, OutputFormatJSON, false)
		assert.Equal(t, ErrCodeConflict, gjson.Get(buf.String(), "error.code").String())
	})

	t.Run("Should write a readable line", func(t *testing.T) {
		var buf bytes.Buffer
		WriteError(&buf, collection.ErrNotFound, OutputFormatTable, false)
		assert.Contains(t, buf.String(), "Not found")
		assert.Contains(t, buf.String(), "record not found")
	})
}

func TestTruncate(t *testing.T) {
	t.Run("Should cut long text with an ellipsis", func(t *testing.T) {
		assert.Equal(t, "abc", Truncate("abc", 5))
		assert.Equal(t, "ab...", Truncate("abcdefgh", 5))
		assert.Equal(t, "ab", Truncate("abcdef", 2))
	})
}
