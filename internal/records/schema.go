package records

import (
	"fmt"
	"strings"
)

// FieldType is the declared type of an export column.
type FieldType int

const (
	FieldText FieldType = iota
	FieldInt
	FieldFloat
	FieldDate
	FieldBool
)

// FieldSpec declares one column a sheet must or may carry.
type FieldSpec struct {
	Name     string
	Type     FieldType
	Required bool
}

// Schema is the expected column set of one sheet.
type Schema struct {
	Sheet  string
	Fields []FieldSpec
}

// SchemaError is returned when a sheet lacks required columns.
type SchemaError struct {
	Sheet   string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("sheet %q is missing required columns: %s", e.Sheet, strings.Join(e.Missing, ", "))
}

// Validate checks that every required field is present in the table.
func (s Schema) Validate(t *Table) error {
	var missing []string
	for _, f := range s.Fields {
		if f.Required && !t.Has(f.Name) {
			missing = append(missing, f.Name)
		}
	}
	if len(missing) > 0 {
		return &SchemaError{Sheet: s.Sheet, Missing: missing}
	}
	return nil
}

// Names lists the schema's field names in declaration order.
func (s Schema) Names() []string {
	out := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		out[i] = f.Name
	}
	return out
}

// Text, Int, Float and Date are shorthands for required field specs.
func Text(name string) FieldSpec  { return FieldSpec{Name: name, Type: FieldText, Required: true} }
func Int(name string) FieldSpec   { return FieldSpec{Name: name, Type: FieldInt, Required: true} }
func Float(name string) FieldSpec { return FieldSpec{Name: name, Type: FieldFloat, Required: true} }
func Date(name string) FieldSpec  { return FieldSpec{Name: name, Type: FieldDate, Required: true} }

// Optional marks a field as not required.
func Optional(f FieldSpec) FieldSpec {
	f.Required = false
	return f
}
