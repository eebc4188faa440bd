// Copyright 2023 Columnstore, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sql

import "strings"

// RowField is a single field of a RowType. The name is optional: anonymous
// fields have an empty name and can only be accessed positionally.
type RowField struct {
	Name string
	Type Type
}

// RowType is a structured ("row") type whose values are nested Row values
// with one entry per field, in declaration order.
type RowType struct {
	fields []RowField
}

// NewRowType creates a RowType with the fields given.
func NewRowType(fields ...RowField) RowType {
	return RowType{fields: fields}
}

// Fields returns the fields of the type, in order.
func (t RowType) Fields() []RowField {
	return t.fields
}

// FieldAt returns the field at position idx and whether the position is
// valid for this type.
func (t RowType) FieldAt(idx int) (RowField, bool) {
	if idx < 0 || idx >= len(t.fields) {
		return RowField{}, false
	}
	return t.fields[idx], true
}

// FieldIndex returns the position of the named field, or -1 if no field has
// that name. Anonymous fields never match.
func (t RowType) FieldIndex(name string) int {
	if name == "" {
		return -1
	}
	for i, f := range t.fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

func (t RowType) String() string {
	var sb strings.Builder
	sb.WriteString("ROW(")
	for i, f := range t.fields {
		if i > 0 {
			sb.WriteString(", ")
		}
		if f.Name != "" {
			sb.WriteString(f.Name)
			sb.WriteString(" ")
		}
		sb.WriteString(f.Type.String())
	}
	sb.WriteString(")")
	return sb.String()
}

// Zero implements the Type interface.
func (t RowType) Zero() interface{} {
	row := make(Row, len(t.fields))
	for i, f := range t.fields {
		row[i] = f.Type.Zero()
	}
	return row
}

// Convert implements the Type interface.
func (t RowType) Convert(v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	row, ok := v.(Row)
	if !ok {
		return nil, ErrNotRowValue.New(v)
	}
	if len(row) != len(t.fields) {
		return nil, ErrUnexpectedRowLength.New(len(t.fields), len(row))
	}
	return row, nil
}
