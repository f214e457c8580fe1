// Package schema describes the tables entities are mapped to and
// validates those descriptions before they are used to generate SQL.
package schema

import "fmt"

// Type is the semantic type of a column. It drives how keys are bound
// and whether ORDER BY terms get a collation.
type Type uint8

// Column types.
const (
	TypeInvalid Type = iota
	TypeInt64
	TypeInt
	TypeString
	TypeFloat64
	TypeBool
	TypeBytes
	TypeTime
)

var typeNames = [...]string{
	TypeInvalid: "invalid",
	TypeInt64:   "int64",
	TypeInt:     "int",
	TypeString:  "string",
	TypeFloat64: "float64",
	TypeBool:    "bool",
	TypeBytes:   "bytes",
	TypeTime:    "time",
}

// String returns the type name.
func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", t)
}

// ParseType returns the type with the given name.
func ParseType(name string) (Type, error) {
	for i, n := range typeNames {
		if i > 0 && n == name {
			return Type(i), nil
		}
	}
	switch name {
	case "long", "integer":
		return TypeInt64, nil
	case "text":
		return TypeString, nil
	case "double", "real":
		return TypeFloat64, nil
	case "blob":
		return TypeBytes, nil
	}
	return TypeInvalid, fmt.Errorf("schema: unknown column type %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(text []byte) error {
	v, err := ParseType(string(text))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Column is one column of a table.
type Column struct {
	Name       string `yaml:"name"`
	Type       Type   `yaml:"type"`
	PrimaryKey bool   `yaml:"pk"`
	Nullable   bool   `yaml:"nullable"`
}

// Table is a table an entity type is mapped to. Columns are in ordinal
// order, which is also the order an entity adapter binds and reads them.
type Table struct {
	Name       string
	Columns    []*Column
	PrimaryKey []*Column
}

// NewTable returns a table whose primary key is made of the columns
// flagged as PrimaryKey, in column order.
func NewTable(name string, columns ...*Column) *Table {
	t := &Table{Name: name, Columns: columns}
	for _, c := range columns {
		if c.PrimaryKey {
			t.PrimaryKey = append(t.PrimaryKey, c)
		}
	}
	return t
}

// ColumnNames returns the names of all columns.
func (t *Table) ColumnNames() []string { return names(t.Columns) }

// KeyNames returns the names of the primary key columns.
func (t *Table) KeyNames() []string { return names(t.PrimaryKey) }

// Column returns the named column, or nil.
func (t *Table) Column(name string) *Column {
	for _, c := range t.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// SingleKey returns the primary key column if the key is made of exactly one.
func (t *Table) SingleKey() (*Column, bool) {
	if len(t.PrimaryKey) != 1 {
		return nil, false
	}
	return t.PrimaryKey[0], true
}

func names(cols []*Column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Name
	}
	return out
}
