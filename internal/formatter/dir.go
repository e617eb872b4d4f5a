package formatter

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tordrt/demomigrate/internal/schema"
)

// DirWriter writes a schema as one file per table plus an _overview file
type DirWriter struct {
	OutputDir    string
	OutputFormat string
}

// NewDirWriter creates a writer for dir in the given format
func NewDirWriter(dir, format string) *DirWriter {
	return &DirWriter{OutputDir: dir, OutputFormat: format}
}

// Write renders s into the output directory, creating it if needed
func (d *DirWriter) Write(s *schema.Schema) error {
	if _, err := New(d.OutputFormat, nil); err != nil {
		return err
	}
	if err := os.MkdirAll(d.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := d.writeOverview(s); err != nil {
		return fmt.Errorf("failed to write overview: %w", err)
	}
	for _, table := range s.Tables {
		if err := d.writeTable(table); err != nil {
			return fmt.Errorf("failed to write table file for %s: %w", table.Name, err)
		}
	}
	return nil
}

func (d *DirWriter) writeOverview(s *schema.Schema) (err error) {
	file, err := os.Create(filepath.Join(d.OutputDir, "_overview"+d.extension()))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()

	tables := make([]schema.Table, len(s.Tables))
	copy(tables, s.Tables)
	sort.Slice(tables, func(i, j int) bool { return tables[i].Name < tables[j].Name })

	bullet := ""
	if d.OutputFormat == FormatMarkdown {
		_, _ = fmt.Fprintf(file, "# Schema Overview\n\n")
		bullet = "- "
	} else {
		_, _ = fmt.Fprintf(file, "SCHEMA OVERVIEW\n\n")
	}

	for _, table := range tables {
		_, _ = fmt.Fprintf(file, "%s%s", bullet, table.Name)
		if len(table.Relations) > 0 {
			targets := make([]string, 0, len(table.Relations))
			for _, rel := range table.Relations {
				targets = append(targets, rel.TargetTable)
			}
			_, _ = fmt.Fprintf(file, " (references: %s)", strings.Join(targets, ", "))
		}
		_, _ = fmt.Fprintln(file)
	}
	return nil
}

func (d *DirWriter) writeTable(table schema.Table) (err error) {
	file, err := os.Create(filepath.Join(d.OutputDir, table.Name+d.extension()))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()

	f, err := New(d.OutputFormat, file)
	if err != nil {
		return err
	}
	return f.FormatTable(table)
}

func (d *DirWriter) extension() string {
	if d.OutputFormat == FormatMarkdown {
		return ".md"
	}
	return ".txt"
}
