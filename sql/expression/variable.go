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
	"github.com/columnstore/go-subfield-pushdown/sql"
)

// Variable is a reference to an output variable of the source node, by name
// and by position in the source's output row.
type Variable struct {
	name       string
	fieldIndex int
	fieldType  sql.Type
}

var _ sql.Expression = (*Variable)(nil)
var _ sql.Nameable = (*Variable)(nil)

// NewVariable creates a Variable expression.
func NewVariable(name string, index int, fieldType sql.Type) *Variable {
	return &Variable{
		name:       name,
		fieldIndex: index,
		fieldType:  fieldType,
	}
}

// Name implements the Nameable interface.
func (v *Variable) Name() string { return v.name }

// Index returns the position where the Variable will look for its value in
// a source row.
func (v *Variable) Index() int { return v.fieldIndex }

// Resolved implements the Expression interface.
func (*Variable) Resolved() bool { return true }

// IsNullable implements the Expression interface.
func (*Variable) IsNullable() bool { return true }

// Type implements the Expression interface.
func (v *Variable) Type() sql.Type { return v.fieldType }

// Eval implements the Expression interface.
func (v *Variable) Eval(ctx *sql.Context, row sql.Row) (interface{}, error) {
	if v.fieldIndex < 0 || v.fieldIndex >= len(row) {
		return nil, sql.ErrFieldIndexOutOfBounds.New(v.fieldIndex, len(row))
	}
	return row[v.fieldIndex], nil
}

// Children implements the Expression interface.
func (*Variable) Children() []sql.Expression { return nil }

// WithChildren implements the Expression interface.
func (v *Variable) WithChildren(children ...sql.Expression) (sql.Expression, error) {
	if len(children) != 0 {
		return nil, sql.ErrInvalidChildrenNumber.New(v, len(children), 0)
	}
	return v, nil
}

func (v *Variable) String() string { return v.name }
