// Handles column description and reflection-based schema generation.

package jsonldb

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
)

// ColumnType represents the type of a table column.
type ColumnType string

const (
	// ColumnTypeText is a JSON string.
	ColumnTypeText ColumnType = "text"
	// ColumnTypeNumber is a JSON number.
	ColumnTypeNumber ColumnType = "number"
	// ColumnTypeBool is a JSON boolean.
	ColumnTypeBool ColumnType = "bool"
	// ColumnTypeDate is a time.Time serialized as RFC3339.
	ColumnTypeDate ColumnType = "date"
	// ColumnTypeJSONB is any nested JSON value.
	ColumnTypeJSONB ColumnType = "jsonb"
)

// Column describes one field of a row type.
type Column struct {
	Name        string     `json:"name"`
	Type        ColumnType `json:"type"`
	Required    bool       `json:"required,omitempty"`
	Description string     `json:"description,omitempty"`
}

// Schema returns the JSON Schema of the row type T, with every property
// inlined.
//
// Descriptions come from `jsonschema:"description=..."` struct tags. Fields
// without `omitempty` are required.
func Schema[T any]() *jsonschema.Schema {
	r := jsonschema.Reflector{Anonymous: true, DoNotReference: true}
	return r.ReflectFromType(structType(reflect.TypeFor[T]()))
}

// Columns extracts the column definitions of the row type T.
func Columns[T any]() ([]Column, error) {
	t := reflect.TypeFor[T]()
	st := structType(t)
	if st.Kind() != reflect.Struct {
		return nil, fmt.Errorf("type must be a struct or pointer to struct, got %s", t.Kind())
	}
	schema := Schema[T]()

	required := make(map[string]bool, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = true
	}

	var columns []Column
	for pair := schema.Properties.Oldest(); pair != nil; pair = pair.Next() {
		colType := ColumnTypeText
		for i := range st.NumField() {
			field := st.Field(i)
			if jsonFieldName(&field) == pair.Key {
				colType = goTypeToColumnType(field.Type)
				break
			}
		}
		columns = append(columns, Column{
			Name:        pair.Key,
			Type:        colType,
			Required:    required[pair.Key],
			Description: pair.Value.Description,
		})
	}
	return columns, nil
}

func structType(t reflect.Type) reflect.Type {
	if t.Kind() == reflect.Pointer {
		return t.Elem()
	}
	return t
}

// jsonFieldName returns the JSON field name for a struct field.
func jsonFieldName(field *reflect.StructField) string {
	tag := field.Tag.Get("json")
	if tag == "" || tag == "-" {
		return field.Name
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		return field.Name
	}
	return name
}

// goTypeToColumnType maps Go types to column types.
func goTypeToColumnType(t reflect.Type) ColumnType {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == reflect.TypeFor[time.Time]() {
		return ColumnTypeDate
	}
	switch t.Kind() {
	case reflect.String:
		return ColumnTypeText
	case reflect.Bool:
		return ColumnTypeBool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return ColumnTypeNumber
	case reflect.Struct, reflect.Slice, reflect.Array, reflect.Map, reflect.Interface:
		return ColumnTypeJSONB
	default:
		return ColumnTypeText
	}
}
