package formatter

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/tordrt/demomigrate/internal/migrate"
	"github.com/tordrt/demomigrate/internal/schema"
)

// MarkdownFormatter formats output as markdown
type MarkdownFormatter struct {
	writer io.Writer
}

// NewMarkdownFormatter creates a new markdown formatter
func NewMarkdownFormatter(w io.Writer) *MarkdownFormatter {
	return &MarkdownFormatter{writer: w}
}

// Format writes the schema in markdown format
func (f *MarkdownFormatter) Format(s *schema.Schema) error {
	_, _ = fmt.Fprintln(f.writer, "# Database Schema")
	_, _ = fmt.Fprintln(f.writer)

	for _, table := range s.Tables {
		if err := f.FormatTable(table); err != nil {
			return err
		}
	}
	return nil
}

// FormatTable writes one table as a second level section
func (f *MarkdownFormatter) FormatTable(table schema.Table) error {
	_, _ = fmt.Fprintf(f.writer, "## %s\n\n", table.Name)

	_, _ = fmt.Fprintln(f.writer, "### Columns")
	_, _ = fmt.Fprintln(f.writer)
	for _, col := range table.Columns {
		constraintStr := formatConstraints(col, table.PrimaryKey)
		if constraintStr != "" {
			_, _ = fmt.Fprintf(f.writer, "- **%s:** %s, %s\n", col.Name, col.Type, constraintStr)
		} else {
			_, _ = fmt.Fprintf(f.writer, "- **%s:** %s\n", col.Name, col.Type)
		}
	}
	_, _ = fmt.Fprintln(f.writer)

	if len(table.Relations) > 0 {
		_, _ = fmt.Fprintln(f.writer, "### References")
		_, _ = fmt.Fprintln(f.writer)
		for _, rel := range table.Relations {
			_, _ = fmt.Fprintf(f.writer, "- %s → %s.%s%s\n",
				rel.SourceColumn, rel.TargetTable, rel.TargetColumn, formatActions(rel))
		}
		_, _ = fmt.Fprintln(f.writer)
	}

	if len(table.Indexes) > 0 {
		_, _ = fmt.Fprintln(f.writer, "### Indexes")
		_, _ = fmt.Fprintln(f.writer)
		for _, idx := range table.Indexes {
			unique := ""
			if idx.IsUnique {
				unique = ", unique"
			}
			_, _ = fmt.Fprintf(f.writer, "- %s on (%s)%s\n", idx.Name, strings.Join(idx.Columns, ", "), unique)
		}
		_, _ = fmt.Fprintln(f.writer)
	}

	return nil
}

// FormatStatus writes the status as a markdown table
func (f *MarkdownFormatter) FormatStatus(kind string, statuses []migrate.Status) error {
	_, _ = fmt.Fprintf(f.writer, "## %s\n\n", strings.ToUpper(kind))
	if len(statuses) == 0 {
		_, _ = fmt.Fprintf(f.writer, "No %s defined.\n\n", kind)
		return nil
	}

	_, _ = fmt.Fprintln(f.writer, "| Version | Name | Status | Applied At |")
	_, _ = fmt.Fprintln(f.writer, "|---|---|---|---|")
	for _, st := range statuses {
		state, at := statusLabel(st)
		_, _ = fmt.Fprintf(f.writer, "| %s | %s | %s | %s |\n", st.Version, st.Name, state, at)
	}
	_, _ = fmt.Fprintln(f.writer)
	return nil
}

func formatConstraints(col schema.Column, primaryKey []string) string {
	var constraints []string

	if slices.Contains(primaryKey, col.Name) {
		constraints = append(constraints, "PK")
	}
	if col.AutoIncrement {
		constraints = append(constraints, "AUTOINCREMENT")
	}
	if col.IsUnique {
		constraints = append(constraints, "UNIQUE")
	}
	if !col.Nullable {
		constraints = append(constraints, "NOT NULL")
	}
	if col.DefaultValue != nil {
		constraints = append(constraints, fmt.Sprintf("DEFAULT %s", *col.DefaultValue))
	}

	return strings.Join(constraints, ", ")
}
