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

package memory

import (
	errors "gopkg.in/src-d/go-errors.v1"

	"github.com/columnstore/go-subfield-pushdown/sql"
)

var (
	// ErrUnknownColumn is returned when a handle refers to a column the
	// table does not have.
	ErrUnknownColumn = errors.NewKind("table %q has no column %q")

	// ErrUnsupportedSubfield is returned when a requested subfield path
	// cannot be represented within a column's type.
	ErrUnsupportedSubfield = errors.NewKind("column %q of type %s has no subfield %q")
)

// Table is an in-memory table. It implements sql.TableHandle, so plan scans
// reference it directly.
type Table struct {
	name            string
	schema          sql.Schema
	rows            []sql.Row
	pushdownEnabled bool
}

var _ sql.TableHandle = (*Table)(nil)

// NewTable creates a new Table with the given schema. Subfield pushdown is
// enabled by default.
func NewTable(name string, schema sql.Schema) *Table {
	return &Table{
		name:            name,
		schema:          schema,
		pushdownEnabled: true,
	}
}

// Name implements the sql.TableHandle interface.
func (t *Table) Name() string { return t.name }

// Schema returns the table's schema.
func (t *Table) Schema() sql.Schema { return t.schema }

// SetSubfieldPushdownEnabled toggles subfield pushdown for scans of this
// table.
func (t *Table) SetSubfieldPushdownEnabled(enabled bool) {
	t.pushdownEnabled = enabled
}

// Insert appends a row to the table.
func (t *Table) Insert(row sql.Row) error {
	if len(row) != len(t.schema) {
		return sql.ErrUnexpectedRowLength.New(len(t.schema), len(row))
	}
	t.rows = append(t.rows, row)
	return nil
}

// ColumnHandle returns a base handle reading the named column whole.
func (t *Table) ColumnHandle(name string) (*ColumnHandle, error) {
	idx := t.schema.IndexOf(name)
	if idx < 0 {
		return nil, ErrUnknownColumn.New(t.name, name)
	}
	return &ColumnHandle{
		name:      name,
		column:    name,
		fieldType: t.schema[idx].Type,
	}, nil
}

// ColumnHandle reads a storage column, or a nested subfield of one. The
// name is the scan-output-facing column name; column and path address the
// stored data.
type ColumnHandle struct {
	name      string
	column    string
	path      []string
	fieldType sql.Type
}

var _ sql.ColumnHandle = (*ColumnHandle)(nil)

// Name returns the connector-level name of the handle.
func (h *ColumnHandle) Name() string { return h.name }

// Column returns the storage column the handle reads from.
func (h *ColumnHandle) Column() string { return h.column }

// Path returns the subfield path within the storage column, outermost
// first. Empty for base column handles.
func (h *ColumnHandle) Path() []string { return h.path }

// Type returns the type of the addressed value.
func (h *ColumnHandle) Type() sql.Type { return h.fieldType }

// extractFrom reads the handle's value out of a stored table row,
// descending the subfield path by field name. A null anywhere along the
// path yields null.
func (h *ColumnHandle) extractFrom(t *Table, row sql.Row) (interface{}, error) {
	idx := t.schema.IndexOf(h.column)
	if idx < 0 {
		return nil, ErrUnknownColumn.New(t.name, h.column)
	}

	val := row[idx]
	fieldType := t.schema[idx].Type
	for _, name := range h.path {
		rowType, ok := fieldType.(sql.RowType)
		if !ok {
			return nil, ErrUnsupportedSubfield.New(h.column, fieldType, name)
		}
		fieldIdx := rowType.FieldIndex(name)
		if fieldIdx < 0 {
			return nil, ErrUnsupportedSubfield.New(h.column, fieldType, name)
		}
		if val == nil {
			return nil, nil
		}
		nested, ok := val.(sql.Row)
		if !ok {
			return nil, sql.ErrNotRowValue.New(val)
		}
		if fieldIdx >= len(nested) {
			return nil, sql.ErrFieldIndexOutOfBounds.New(fieldIdx, len(nested))
		}
		val = nested[fieldIdx]
		field, _ := rowType.FieldAt(fieldIdx)
		fieldType = field.Type
	}
	return val, nil
}
