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

// errUnableToEval means that we could not evaluate an expression
var errUnableToEval = errors.NewKind("unable to evaluate an expression: %v %s %v")

const (
	plusStr  = "+"
	minusStr = "-"
	multStr  = "*"
)

// Arithmetic expressions (+, -, *)
type Arithmetic struct {
	BinaryExpression
	Op string
}

var _ sql.Expression = (*Arithmetic)(nil)

// NewArithmetic creates a new Arithmetic sql.Expression.
func NewArithmetic(left, right sql.Expression, op string) *Arithmetic {
	return &Arithmetic{BinaryExpression{Left: left, Right: right}, op}
}

// NewPlus creates a new Arithmetic + sql.Expression.
func NewPlus(left, right sql.Expression) *Arithmetic {
	return NewArithmetic(left, right, plusStr)
}

// NewMinus creates a new Arithmetic - sql.Expression.
func NewMinus(left, right sql.Expression) *Arithmetic {
	return NewArithmetic(left, right, minusStr)
}

// NewMult creates a new Arithmetic * sql.Expression.
func NewMult(left, right sql.Expression) *Arithmetic {
	return NewArithmetic(left, right, multStr)
}

func (a *Arithmetic) String() string {
	return fmt.Sprintf("(%s %s %s)", a.Left, a.Op, a.Right)
}

// Type implements the Expression interface.
func (a *Arithmetic) Type() sql.Type {
	if a.Left.Type() == sql.Float64 || a.Right.Type() == sql.Float64 {
		return sql.Float64
	}
	return sql.Int64
}

// Eval implements the Expression interface.
func (a *Arithmetic) Eval(ctx *sql.Context, row sql.Row) (interface{}, error) {
	lval, err := a.Left.Eval(ctx, row)
	if err != nil {
		return nil, err
	}
	rval, err := a.Right.Eval(ctx, row)
	if err != nil {
		return nil, err
	}
	if lval == nil || rval == nil {
		return nil, nil
	}

	if a.Type() == sql.Float64 {
		l, err := cast.ToFloat64E(lval)
		if err != nil {
			return nil, errUnableToEval.New(lval, a.Op, rval)
		}
		r, err := cast.ToFloat64E(rval)
		if err != nil {
			return nil, errUnableToEval.New(lval, a.Op, rval)
		}
		switch a.Op {
		case plusStr:
			return l + r, nil
		case minusStr:
			return l - r, nil
		case multStr:
			return l * r, nil
		}
		return nil, errUnableToEval.New(lval, a.Op, rval)
	}

	l, err := cast.ToInt64E(lval)
	if err != nil {
		return nil, errUnableToEval.New(lval, a.Op, rval)
	}
	r, err := cast.ToInt64E(rval)
	if err != nil {
		return nil, errUnableToEval.New(lval, a.Op, rval)
	}
	switch a.Op {
	case plusStr:
		return l + r, nil
	case minusStr:
		return l - r, nil
	case multStr:
		return l * r, nil
	}
	return nil, errUnableToEval.New(lval, a.Op, rval)
}

// WithChildren implements the Expression interface.
func (a *Arithmetic) WithChildren(children ...sql.Expression) (sql.Expression, error) {
	if len(children) != 2 {
		return nil, sql.ErrInvalidChildrenNumber.New(a, len(children), 2)
	}
	return NewArithmetic(children[0], children[1], a.Op), nil
}
