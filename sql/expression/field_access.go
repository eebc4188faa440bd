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

package expression

import (
	"fmt"

	"github.com/spf13/cast"
	errors "gopkg.in/src-d/go-errors.v1"

	"github.com/columnstore/go-subfield-pushdown/sql"
)

// ErrNotRowType is returned when a field access is built over a base
// expression that is not of row type.
var ErrNotRowType = errors.NewKind("field access over non-row type %s")

// ErrNoSuchField is returned when a field access is built with a field
// position that does not exist in the base row type.
var ErrNoSuchField = errors.NewKind("row type %s has no field at position %d")

// FieldAccess extracts one field from a value of row type by positional
// index. The index is an arbitrary expression; only accesses whose index
// folds to a constant integer naming a field are eligible for storage-level
// pushdown, but any integer index is valid at evaluation time.
type FieldAccess struct {
	base      sql.Expression
	index     sql.Expression
	fieldType sql.Type
}

var _ sql.Expression = (*FieldAccess)(nil)

// NewFieldAccess creates a FieldAccess with an explicit result type.
func NewFieldAccess(base, index sql.Expression, fieldType sql.Type) *FieldAccess {
	return &FieldAccess{
		base:      base,
		index:     index,
		fieldType: fieldType,
	}
}

// NewFieldAccessAt creates a FieldAccess for a constant field position,
// deriving the result type from the base expression's row type.
func NewFieldAccessAt(base sql.Expression, idx int) (*FieldAccess, error) {
	rowType, ok := base.Type().(sql.RowType)
	if !ok {
		return nil, ErrNotRowType.New(base.Type())
	}
	field, ok := rowType.FieldAt(idx)
	if !ok {
		return nil, ErrNoSuchField.New(rowType, idx)
	}
	return NewFieldAccess(base, NewLiteral(int64(idx), sql.Int64), field.Type), nil
}

// Base returns the expression the field is extracted from.
func (f *FieldAccess) Base() sql.Expression { return f.base }

// Index returns the field position expression.
func (f *FieldAccess) Index() sql.Expression { return f.index }

// Resolved implements the Expression interface.
func (f *FieldAccess) Resolved() bool {
	return f.base.Resolved() && f.index.Resolved()
}

// IsNullable implements the Expression interface.
func (*FieldAccess) IsNullable() bool { return true }

// Type implements the Expression interface.
func (f *FieldAccess) Type() sql.Type { return f.fieldType }

// Eval implements the Expression interface.
func (f *FieldAccess) Eval(ctx *sql.Context, row sql.Row) (interface{}, error) {
	baseVal, err := f.base.Eval(ctx, row)
	if err != nil {
		return nil, err
	}
	if baseVal == nil {
		return nil, nil
	}
	baseRow, ok := baseVal.(sql.Row)
	if !ok {
		return nil, sql.ErrNotRowValue.New(baseVal)
	}

	idxVal, err := f.index.Eval(ctx, row)
	if err != nil {
		return nil, err
	}
	idx, err := cast.ToIntE(idxVal)
	if err != nil {
		return nil, err
	}
	if idx < 0 || idx >= len(baseRow) {
		return nil, sql.ErrFieldIndexOutOfBounds.New(idx, len(baseRow))
	}
	return baseRow[idx], nil
}

// Children implements the Expression interface.
func (f *FieldAccess) Children() []sql.Expression {
	return []sql.Expression{f.base, f.index}
}

// WithChildren implements the Expression interface.
func (f *FieldAccess) WithChildren(children ...sql.Expression) (sql.Expression, error) {
	if len(children) != 2 {
		return nil, sql.ErrInvalidChildrenNumber.New(f, len(children), 2)
	}
	return NewFieldAccess(children[0], children[1], f.fieldType), nil
}

func (f *FieldAccess) String() string {
	if name, ok := f.FieldName(); ok {
		return fmt.Sprintf("%s.%s", f.base, name)
	}
	return fmt.Sprintf("%s.[%s]", f.base, f.index)
}

// FieldName returns the statically known name of the accessed field: the
// index must be a literal integer and the base row type must name the field
// at that position. No folding is attempted here.
func (f *FieldAccess) FieldName() (string, bool) {
	lit, ok := f.index.(*Literal)
	if !ok {
		return "", false
	}
	idx, ok := IntValue(lit.Value())
	if !ok {
		return "", false
	}
	rowType, ok := f.base.Type().(sql.RowType)
	if !ok {
		return "", false
	}
	field, ok := rowType.FieldAt(idx)
	if !ok || field.Name == "" {
		return "", false
	}
	return field.Name, true
}

// IntValue extracts an integer from a literal value of any integer type.
// Non-integral values (strings, floats, booleans) do not qualify: a field
// position must be an actual integer constant.
func IntValue(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		return int(n), true
	case uint64:
		return int(n), true
	case uint:
		return int(n), true
	}
	return 0, false
}
