package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/tordrt/demomigrate/internal/migrate"
	"github.com/tordrt/demomigrate/internal/schema"
)

// TextFormatter formats output as compact text
type TextFormatter struct {
	writer io.Writer
}

// NewTextFormatter creates a new text formatter
func NewTextFormatter(w io.Writer) *TextFormatter {
	return &TextFormatter{writer: w}
}

// Format writes the schema in compact text format
func (f *TextFormatter) Format(s *schema.Schema) error {
	for i, table := range s.Tables {
		if i > 0 {
			_, _ = fmt.Fprintln(f.writer) // Blank line between tables
		}

		if err := f.FormatTable(table); err != nil {
			return err
		}
	}
	return nil
}

// FormatTable writes one table
func (f *TextFormatter) FormatTable(table schema.Table) error {
	pkStr := ""
	if len(table.PrimaryKey) > 0 {
		pkStr = fmt.Sprintf(" (PK: %s)", strings.Join(table.PrimaryKey, ", "))
	}
	_, _ = fmt.Fprintf(f.writer, "TABLE %s%s\n", table.Name, pkStr)

	for _, col := range table.Columns {
		_, _ = fmt.Fprintf(f.writer, "  %s\n", formatColumn(col))
	}

	if len(table.Relations) > 0 {
		_, _ = fmt.Fprintln(f.writer)
		_, _ = fmt.Fprintln(f.writer, "  RELATIONS:")
		for _, rel := range table.Relations {
			_, _ = fmt.Fprintf(f.writer, "    %s → %s.%s%s\n",
				rel.SourceColumn, rel.TargetTable, rel.TargetColumn, formatActions(rel))
		}
	}

	if len(table.Indexes) > 0 {
		_, _ = fmt.Fprintln(f.writer)
		_, _ = fmt.Fprintln(f.writer, "  INDEXES:")
		for _, idx := range table.Indexes {
			unique := ""
			if idx.IsUnique {
				unique = " UNIQUE"
			}
			_, _ = fmt.Fprintf(f.writer, "    %s (%s)%s\n", idx.Name, strings.Join(idx.Columns, ", "), unique)
		}
	}

	return nil
}

// FormatStatus writes an aligned table of versions and their state
func (f *TextFormatter) FormatStatus(kind string, statuses []migrate.Status) error {
	_, _ = fmt.Fprintf(f.writer, "%s:\n", strings.ToUpper(kind))
	if len(statuses) == 0 {
		_, _ = fmt.Fprintln(f.writer, "  none")
		return nil
	}

	data := make([][]string, 0, len(statuses))
	for _, st := range statuses {
		state, at := statusLabel(st)
		data = append(data, []string{st.Version, st.Name, state, at})
	}
	if err := renderTable([]string{"Version", "Name", "Status", "Applied At"}, data, f.writer); err != nil {
		return fmt.Errorf("render %s status: %w", kind, err)
	}
	return nil
}

func formatColumn(col schema.Column) string {
	parts := []string{col.Name + ":", col.Type}

	if col.AutoIncrement {
		parts = append(parts, "AUTOINCREMENT")
	}
	if col.IsUnique {
		parts = append(parts, "UNIQUE")
	}
	if !col.Nullable {
		parts = append(parts, "NOT NULL")
	}
	if col.DefaultValue != nil {
		parts = append(parts, fmt.Sprintf("DEFAULT %s", *col.DefaultValue))
	}

	return strings.Join(parts, " ")
}

func formatActions(rel schema.Relation) string {
	var s string
	if rel.OnUpdate != "" && rel.OnUpdate != "NO ACTION" {
		s += " ON UPDATE " + rel.OnUpdate
	}
	if rel.OnDelete != "" && rel.OnDelete != "NO ACTION" {
		s += " ON DELETE " + rel.OnDelete
	}
	return s
}

func renderTable(header []string, data [][]string, w io.Writer) error {
	table := tablewriter.NewTable(w,
		tablewriter.WithRenderer(renderer.NewBlueprint(
			tw.Rendition{
				Borders: tw.BorderNone,
				Symbols: tw.NewSymbols(tw.StyleASCII),
				Settings: tw.Settings{
					Lines: tw.Lines{
						ShowHeaderLine: tw.Off,
						ShowFooterLine: tw.Off,
						ShowTop:        tw.Off,
						ShowBottom:     tw.Off,
					},
					Separators: tw.Separators{
						ShowHeader:     tw.Off,
						ShowFooter:     tw.Off,
						BetweenRows:    tw.Off,
						BetweenColumns: tw.Off,
					},
				},
			},
		)),
		tablewriter.WithConfig(tablewriter.Config{
			Header: tw.CellConfig{
				Alignment: tw.CellAlignment{Global: tw.AlignLeft},
			},
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoWrap: tw.WrapNone},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
	)

	table.Header(header)
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}
