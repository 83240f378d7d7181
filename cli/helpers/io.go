package helpers

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"

	"github.com/compozy/listview/engine/catalog"
	"github.com/compozy/listview/engine/listview"
)

const maxCellWidth = 40

// OutputWriter handles different output formats
type OutputWriter struct {
	writer   io.Writer
	format   OutputFormat
	color    bool
	renderer *lipgloss.Renderer
}

// NewOutputWriter creates a new output writer
func NewOutputWriter(writer io.Writer, format OutputFormat, color bool) *OutputWriter {
	return &OutputWriter{
		writer:   writer,
		format:   format,
		color:    color,
		renderer: lipgloss.NewRenderer(writer),
	}
}

func (ow *OutputWriter) Format() OutputFormat {
	return ow.format
}

func (ow *OutputWriter) Writer() io.Writer {
	return ow.writer
}

// WriteJSON writes v as indented JSON, colorized on terminals.
func (ow *OutputWriter) WriteJSON(v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	out := pretty.Pretty(raw)
	if ow.color {
		out = pretty.Color(out, nil)
	}
	_, err = ow.writer.Write(out)
	return err
}

// WriteData writes v as JSON in JSON mode and through text otherwise.
func (ow *OutputWriter) WriteData(v any, text func(w io.Writer) error) error {
	if ow.format == OutputFormatJSON || text == nil {
		return ow.WriteJSON(v)
	}
	return text(ow.writer)
}

// WriteTable renders rows under headers.
func (ow *OutputWriter) WriteTable(headers []string, rows [][]string) error {
	headerStyle := ow.renderer.NewStyle().Bold(true).Padding(0, 1)
	cellStyle := ow.renderer.NewStyle().Padding(0, 1)
	if ow.color {
		headerStyle = headerStyle.Foreground(lipgloss.Color("86"))
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(ow.renderer.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	_, err := fmt.Fprintln(ow.writer, t.Render())
	return err
}

// WriteView prints a list view. Tables show the given columns, read from
// each record by JSON path, followed by a paging line.
func (ow *OutputWriter) WriteView(columns []string, view catalog.View) error {
	if ow.format == OutputFormatJSON {
		return ow.WriteJSON(view)
	}
	rows, err := ViewRows(columns, view)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		if err := ow.writeNotice(view.Message); err != nil {
			return err
		}
	} else if err := ow.WriteTable(columns, rows); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(ow.writer, pagingLine(view)); err != nil {
		return err
	}
	if view.Status == listview.StatusError && len(rows) > 0 {
		if err := ow.writeNotice(view.Message); err != nil {
			return err
		}
	}
	if view.SaveError != "" {
		return ow.writeNotice("Changes were not saved: " + view.SaveError)
	}
	return nil
}

// ViewRows extracts the cells of every record in view.
func ViewRows(columns []string, view catalog.View) ([][]string, error) {
	raw, err := json.Marshal(view.Records)
	if err != nil {
		return nil, fmt.Errorf("failed to encode records: %w", err)
	}
	rows := [][]string{}
	gjson.ParseBytes(raw).ForEach(func(_, rec gjson.Result) bool {
		row := make([]string, len(columns))
		for i, col := range columns {
			row[i] = cellText(rec.Get(col))
		}
		rows = append(rows, row)
		return true
	})
	return rows, nil
}

func cellText(r gjson.Result) string {
	if r.IsArray() {
		parts := make([]string, 0, len(r.Array()))
		for _, v := range r.Array() {
			parts = append(parts, v.String())
		}
		return Truncate(strings.Join(parts, ", "), maxCellWidth)
	}
	return Truncate(r.String(), maxCellWidth)
}

func pagingLine(view catalog.View) string {
	line := fmt.Sprintf("page %d of %d, %s", view.Page, view.TotalPages,
		Pluralize(view.TotalMatching, "matching record", "matching records"))
	if view.HasNextPage {
		line += ", more available"
	}
	return line
}

func (ow *OutputWriter) writeNotice(msg string) error {
	if msg == "" {
		return nil
	}
	style := ow.renderer.NewStyle().Italic(true)
	if ow.color {
		style = style.Foreground(lipgloss.Color("192"))
	}
	_, err := fmt.Fprintln(ow.writer, style.Render(msg))
	return err
}

// Truncate shortens s to maxLength runes, marking the cut with an ellipsis.
func Truncate(s string, maxLength int) string {
	r := []rune(s)
	if len(r) <= maxLength {
		return s
	}
	if maxLength <= 3 {
		return string(r[:maxLength])
	}
	return string(r[:maxLength-3]) + "..."
}

func Pluralize(count int, singular, plural string) string {
	if count == 1 {
		return fmt.Sprintf("%d %s", count, singular)
	}
	return fmt.Sprintf("%d %s", count, plural)
}
