package schema

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnsupportedType is returned when a column definition uses a value type
// that no dialect knows how to map.
var ErrUnsupportedType = errors.New("unsupported value type")

// ValueType is the logical type of a column, independent of any dialect
type ValueType string

const (
	// String is a bounded character column (VARCHAR(255) on every dialect).
	String ValueType = "STRING"
	// Integer is a 32-bit signed integer column.
	Integer ValueType = "INTEGER"
	// Date is a timestamp column.
	Date ValueType = "DATE"
)

// Validate reports whether the value type can be mapped to SQL
func (t ValueType) Validate() error {
	switch t {
	case String, Integer, Date:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedType, string(t))
	}
}

// ColumnDefinition is the target shape of a column after a change
type ColumnDefinition struct {
	Type     ValueType
	Nullable bool
}

// ColumnDescriptor names a column together with the definition it should have
type ColumnDescriptor struct {
	Table  string
	Column string
	ColumnDefinition
}

// Inverse returns the descriptor with the nullability flipped. A constraint
// migration's reverse direction is the Inverse of its forward direction.
func (d ColumnDescriptor) Inverse() ColumnDescriptor {
	d.Nullable = !d.Nullable
	return d
}

// Attribute describes one column of a table being created
type Attribute struct {
	Name string
	ColumnDefinition
	PrimaryKey    bool
	AutoIncrement bool
}

// Record is a single row keyed by column name
type Record map[string]any

// Filter restricts a bulk operation to rows whose columns equal the given
// values. A nil or empty Filter matches every row.
type Filter map[string]any

// Columns returns the filter's column names in sorted order
func (f Filter) Columns() []string {
	return sortedKeys(f)
}

// RecordColumns returns the sorted union of column names across records
func RecordColumns(records []Record) []string {
	union := make(map[string]any)
	for _, r := range records {
		for k := range r {
			union[k] = nil
		}
	}
	return sortedKeys(union)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Schema represents the inspected state of a set of tables
type Schema struct {
	Tables []Table
}

// Table represents a database table
type Table struct {
	Name       string
	Columns    []Column
	Relations  []Relation
	Indexes    []Index
	PrimaryKey []string
}

// Column returns the named column, or nil if the table has none by that name
func (t *Table) Column(name string) *Column {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// Column represents a table column
type Column struct {
	Name          string
	Type          string
	Nullable      bool
	DefaultValue  *string
	IsUnique      bool
	AutoIncrement bool
}

// Relation represents a foreign key relationship
type Relation struct {
	TargetTable  string
	TargetColumn string
	SourceColumn string
	OnUpdate     string
	OnDelete     string
}

// Index represents a database index. Definition holds the original CREATE
// INDEX statement when the store keeps one (SQLite).
type Index struct {
	Name       string
	Columns    []string
	IsUnique   bool
	Definition string
}
