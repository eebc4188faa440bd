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

package plan

import (
	"fmt"
	"strings"

	"github.com/columnstore/go-subfield-pushdown/sql"
)

// Assignment binds one projection output name to the expression computing
// its value.
type Assignment struct {
	Name string
	Expr sql.Expression
}

// Project computes a set of named expressions over the rows of its child.
// Rewrites of a Project keep its output names and arity intact; only the
// assignment expressions and the source subtree may change.
type Project struct {
	UnaryNode
	id          sql.NodeId
	assignments []Assignment
}

var _ sql.Node = (*Project)(nil)

// NewProject creates a new projection.
func NewProject(id sql.NodeId, assignments []Assignment, child sql.Node) *Project {
	return &Project{
		UnaryNode:   UnaryNode{Child: child},
		id:          id,
		assignments: assignments,
	}
}

// Id returns the node id.
func (p *Project) Id() sql.NodeId { return p.id }

// Assignments returns the output assignments, in order.
func (p *Project) Assignments() []Assignment { return p.assignments }

// Expressions returns the assignment value expressions, in output order.
func (p *Project) Expressions() []sql.Expression {
	exprs := make([]sql.Expression, len(p.assignments))
	for i, a := range p.assignments {
		exprs[i] = a.Expr
	}
	return exprs
}

// Schema implements the Node interface.
func (p *Project) Schema() sql.Schema {
	schema := make(sql.Schema, len(p.assignments))
	for i, a := range p.assignments {
		schema[i] = &sql.Column{
			Name:     a.Name,
			Type:     a.Expr.Type(),
			Nullable: a.Expr.IsNullable(),
		}
	}
	return schema
}

// Resolved implements the Node interface.
func (p *Project) Resolved() bool {
	if !p.UnaryNode.Resolved() {
		return false
	}
	for _, a := range p.assignments {
		if !a.Expr.Resolved() {
			return false
		}
	}
	return true
}

// WithChildren implements the Node interface.
func (p *Project) WithChildren(children ...sql.Node) (sql.Node, error) {
	if len(children) != 1 {
		return nil, sql.ErrInvalidChildrenNumber.New(p, len(children), 1)
	}
	return NewProject(p.id, p.assignments, children[0]), nil
}

func (p *Project) String() string {
	fields := make([]string, len(p.assignments))
	for i, a := range p.assignments {
		fields[i] = fmt.Sprintf("%s: %s", a.Name, a.Expr)
	}
	return fmt.Sprintf("Project(%s)", strings.Join(fields, ", "))
}
