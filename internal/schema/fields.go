package schema

import "slices"

// FieldType is the value type of a QPS filter field. It fixes the operators the
// field accepts.
type FieldType string

const (
	FieldInteger FieldType = "INTEGER"
	FieldText    FieldType = "TEXT"
	FieldDate    FieldType = "DATE"
	FieldKeyword FieldType = "KEYWORD"
	FieldBoolean FieldType = "BOOLEAN"
)

// DefaultOperator is applied to a filter field given without an operator.
const DefaultOperator = "EQUALS"

var operators = map[FieldType][]string{
	FieldInteger: {"EQUALS", "NOT EQUALS", "GREATER", "LESSER", "IN"},
	FieldText:    {"CONTAINS", "EQUALS", "NOT EQUALS"},
	FieldDate:    {"EQUALS", "NOT EQUALS", "GREATER", "LESSER"},
	FieldKeyword: {"EQUALS", "NOT EQUALS", "IN"},
	FieldBoolean: {"EQUALS", "NOT EQUALS"},
}

// Operators returns the operators accepted for the type.
func (t FieldType) Operators() []string {
	return slices.Clone(operators[t])
}

// Allows reports whether op is a valid operator for the type. op must already be upper-cased.
func (t FieldType) Allows(op string) bool {
	return slices.Contains(operators[t], op)
}

// OperatorRequired reports whether a value of this type must come with an explicit operator.
func (t FieldType) OperatorRequired() bool {
	return t == FieldDate
}
