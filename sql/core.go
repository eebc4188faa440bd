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

import "fmt"

// Nameable is anything that has a name.
type Nameable interface {
	// Name returns the name.
	Name() string
}

// Node is a node in the logical plan tree. Plan nodes are immutable values:
// optimizer rules never modify a node in place, they produce replacements
// through WithChildren or type-specific copy constructors.
type Node interface {
	fmt.Stringer
	// Resolved returns whether the node is resolved.
	Resolved() bool
	// Schema of the node.
	Schema() Schema
	// Children nodes, in order.
	Children() []Node
	// WithChildren returns a copy of the node with children replaced.
	// It must validate that the number of children is correct.
	WithChildren(children ...Node) (Node, error)
}

// Expression is a node in an expression tree. Like plan nodes, expressions
// are immutable values with structural equality: two expressions are equal
// iff their concrete types and children are recursively equal. Optimizer
// rules rely on this when keying rewrites on exact expression matches.
type Expression interface {
	fmt.Stringer
	// Resolved returns whether the expression is resolved.
	Resolved() bool
	// Type returns the expression type.
	Type() Type
	// IsNullable returns whether the expression can be null.
	IsNullable() bool
	// Eval evaluates the expression against the row given.
	Eval(ctx *Context, row Row) (interface{}, error)
	// Children expressions, in order.
	Children() []Expression
	// WithChildren returns a copy of the expression with children replaced.
	// It must validate that the number of children is correct.
	WithChildren(children ...Expression) (Expression, error)
}

// TableHandle is a connector-owned reference to a physical table. The
// planner carries it through scans verbatim; only the owning connector
// knows what is inside.
type TableHandle interface {
	Nameable
}

// ColumnHandle is a connector-owned reference to a readable column or
// subfield of a table. Opaque to the planner.
type ColumnHandle interface{}

// SubfieldConnector is the storage-side collaborator of subfield pushdown.
// Implementations are expected to be pure: calling any method repeatedly
// with the same arguments must yield equivalent results, and no method may
// have side effects visible to the planner.
type SubfieldConnector interface {
	// SubfieldPushdownEnabled reports whether subfield pushdown may be
	// applied to scans of the given table.
	SubfieldPushdownEnabled(ctx *Context, table TableHandle) bool
	// ColumnName returns the connector-level (underlying) column name the
	// handle refers to.
	ColumnName(handle ColumnHandle) string
	// SubfieldColumnHandle produces a handle reading only the given
	// subfield of the base column. The connector may refuse a path it
	// cannot represent, in which case the returned error is propagated
	// unchanged to the caller of the optimization.
	SubfieldColumnHandle(base ColumnHandle, subfield Subfield, fieldType Type, columnName string) (ColumnHandle, error)
}

// OptimizeLevel selects how aggressively an ExpressionOptimizer simplifies.
type OptimizeLevel int

const (
	// OptimizeDefault applies simplifications that are always safe,
	// including folding of constant subexpressions.
	OptimizeDefault OptimizeLevel = iota
	// OptimizeEvaluated additionally evaluates expressions that may only
	// be simplified at execution time.
	OptimizeEvaluated
)

// ExpressionOptimizer simplifies expressions. It is consumed as a black box
// by plan rewrites: given an expression it returns an equivalent, possibly
// simplified expression, synchronously and without side effects.
type ExpressionOptimizer interface {
	OptimizeExpression(ctx *Context, e Expression, level OptimizeLevel) (Expression, error)
}
