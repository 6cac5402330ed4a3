package models

// TableIdentity names the single table the catalog browses.
type TableIdentity struct {
	Schema string `json:"schema"`
	Table  string `json:"name"`
}

// ColumnDescriptor describes one column discovered from information_schema.
// Values are never modified after they are fetched.
type ColumnDescriptor struct {
	Name       string `json:"name"`
	DataType   string `json:"dataType"`
	IsNullable bool   `json:"isNullable"`
}

// SchemaResult is returned by the schema discovery endpoint.
type SchemaResult struct {
	Table   TableIdentity      `json:"table"`
	Columns []ColumnDescriptor `json:"columns"`
}

// ColumnSet indexes column descriptors by name for membership checks.
type ColumnSet map[string]ColumnDescriptor

// NewColumnSet builds a ColumnSet from an ordered column list.
func NewColumnSet(columns []ColumnDescriptor) ColumnSet {
	set := make(ColumnSet, len(columns))
	for _, c := range columns {
		set[c.Name] = c
	}
	return set
}

// Has reports whether name is one of the table's columns.
func (s ColumnSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}
