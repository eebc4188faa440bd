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

package analyzer

import (
	"reflect"

	errors "gopkg.in/src-d/go-errors.v1"

	"github.com/columnstore/go-subfield-pushdown/sql"
	"github.com/columnstore/go-subfield-pushdown/sql/expression"
	"github.com/columnstore/go-subfield-pushdown/sql/plan"
	"github.com/columnstore/go-subfield-pushdown/sql/transform"
)

var (
	// ErrSubfieldRootUnbound is returned when an accepted field access chain
	// bottoms out at a variable with no column handle in the scan. Every
	// variable a projection references must be bound in its direct scan
	// source, so this is a contract violation by the caller, not a user
	// error.
	ErrSubfieldRootUnbound = errors.NewKind("subfield pushdown: base column %q is not bound in the table scan output")

	// ErrMalformedFieldAccessChain is returned when an expression accepted
	// by candidate matching no longer resolves during binding synthesis.
	ErrMalformedFieldAccessChain = errors.NewKind("subfield pushdown: expected a field access chain with constant indices, got: %s")
)

// SubfieldPushdown rewrites Project-over-TableScan fragments so the scan
// reads only the nested subfields the projection actually uses, instead of
// whole structured columns. Columnar formats can then skip the unread bytes
// entirely.
//
// For every maximal field access chain with constant indices that bottoms
// out at a scan output (say msg.a.b), the rule asks the connector for a
// column handle addressing just that subfield, appends it to the scan's
// outputs, and replaces each occurrence of the chain with a reference to
// the new output. Chains whose data is already covered by another pushed
// chain, or by a whole-column reference, are left in place and evaluate
// against the pushed ancestor value. Rewritten scans may carry outputs that
// end up unreferenced; pruning those is a later rule's concern.
type SubfieldPushdown struct {
	connector sql.SubfieldConnector
	optimizer sql.ExpressionOptimizer
}

// NewSubfieldPushdown creates the rule around the connector owning the
// scanned tables and the expression optimizer used to fold field indices.
func NewSubfieldPushdown(connector sql.SubfieldConnector, optimizer sql.ExpressionOptimizer) *SubfieldPushdown {
	return &SubfieldPushdown{
		connector: connector,
		optimizer: optimizer,
	}
}

// Rule adapts the pass to an analyzer pipeline. Name and variable scopes
// are allocated fresh on every invocation.
func (p *SubfieldPushdown) Rule() Rule {
	return Rule{
		Name: "subfield_pushdown",
		Apply: func(ctx *sql.Context, a *Analyzer, n sql.Node) (sql.Node, transform.TreeIdentity, error) {
			node, same, err := p.Optimize(ctx, n, sql.NewVariableAllocator(), sql.NewNodeIdAllocator())
			if err == nil && !same {
				a.Log("subfield reads pushed below projection")
				a.LogNode(node)
			}
			return node, same, err
		},
	}
}

// Optimize applies the rewrite to every Project-over-TableScan site in the
// plan given and returns the resulting plan. The input plan is never
// modified; on a no-op (pattern mismatch, pushdown disabled for the table,
// or nothing to push) the input node is returned unchanged.
func (p *SubfieldPushdown) Optimize(ctx *sql.Context, n sql.Node, varAlloc *sql.VariableAllocator, idAlloc *sql.NodeIdAllocator) (sql.Node, transform.TreeIdentity, error) {
	span, ctx := ctx.Span("subfield_pushdown")
	defer span.Finish()

	return transform.Node(n, func(node sql.Node) (sql.Node, transform.TreeIdentity, error) {
		project, ok := node.(*plan.Project)
		if !ok {
			return node, transform.SameTree, nil
		}
		scan, ok := project.Child.(*plan.TableScan)
		if !ok {
			return node, transform.SameTree, nil
		}
		if !p.connector.SubfieldPushdownEnabled(ctx, scan.Table()) {
			return node, transform.SameTree, nil
		}
		return p.pushSubfields(ctx, project, scan, varAlloc, idAlloc)
	})
}

// pushSubfields rewrites one Project-over-TableScan site.
func (p *SubfieldPushdown) pushSubfields(ctx *sql.Context, project *plan.Project, scan *plan.TableScan, varAlloc *sql.VariableAllocator, idAlloc *sql.NodeIdAllocator) (sql.Node, transform.TreeIdentity, error) {
	baseColumns := p.baseColumnHandles(scan)

	candidates := p.collectCandidates(ctx, project)
	survivors := pruneSubsumedCandidates(candidates)
	if len(survivors) == 0 {
		return project, transform.SameTree, nil
	}

	// The new scan keeps the old outputs verbatim, in order, so variable
	// positions in untouched expressions stay valid.
	outputs := make([]*expression.Variable, len(scan.Outputs()), len(scan.Outputs())+len(survivors))
	copy(outputs, scan.Outputs())
	columns := make(map[string]sql.ColumnHandle, len(scan.Columns())+len(survivors))
	for name, handle := range scan.Columns() {
		columns[name] = handle
	}
	for _, out := range outputs {
		varAlloc.Reserve(out.Name())
	}

	type replacement struct {
		chain    *expression.FieldAccess
		variable *expression.Variable
	}
	replacements := make([]replacement, 0, len(survivors))

	for _, chain := range survivors {
		subfield, base, err := p.subfieldForChain(ctx, chain, baseColumns)
		if err != nil {
			return nil, transform.SameTree, err
		}

		name := varAlloc.Unique(sql.PushdownColumnName(subfield))
		handle, err := p.connector.SubfieldColumnHandle(base, subfield, chain.Type(), name)
		if err != nil {
			return nil, transform.SameTree, err
		}

		variable := expression.NewVariable(name, len(outputs), chain.Type())
		outputs = append(outputs, variable)
		columns[name] = handle
		replacements = append(replacements, replacement{chain: chain, variable: variable})
	}

	newScan := plan.NewTableScan(idAlloc.Next(), scan.Table(), outputs, columns).
		WithConstraint(scan.Constraint())

	assignments := make([]plan.Assignment, len(project.Assignments()))
	for i, assign := range project.Assignments() {
		expr, _, err := transform.Expr(assign.Expr, func(e sql.Expression) (sql.Expression, transform.TreeIdentity, error) {
			for _, r := range replacements {
				if reflect.DeepEqual(e, r.chain) {
					return r.variable, transform.NewTree, nil
				}
			}
			return e, transform.SameTree, nil
		})
		if err != nil {
			return nil, transform.SameTree, err
		}
		assignments[i] = plan.Assignment{Name: assign.Name, Expr: expr}
	}

	return plan.NewProject(idAlloc.Next(), assignments, newScan), transform.NewTree, nil
}

// baseColumnHandles maps both the scan's output variable names and the
// connector-level names of their handles to the handles. The second keying
// lets a chain rooted at a column pushed by a previous application of the
// rule still resolve, which keeps repeated application well defined.
func (p *SubfieldPushdown) baseColumnHandles(scan *plan.TableScan) map[string]sql.ColumnHandle {
	handles := make(map[string]sql.ColumnHandle, 2*len(scan.Columns()))
	for name, handle := range scan.Columns() {
		handles[name] = handle
		handles[p.connector.ColumnName(handle)] = handle
	}
	return handles
}

// collectCandidates walks the projection's value expressions (assignment
// names are not examined) and returns, without structural duplicates:
//
//   - every maximal field access chain that fully resolves: each index on
//     the way down folds to a constant integer naming a field of the base
//     row type, and the chain bottoms out at a bare variable;
//   - every bare variable referenced outside such a chain.
//
// A resolved chain is consumed whole: its children are not traversed, so a
// sub-chain is never recorded from within the same top-level expression. A
// chain that fails to resolve is traversed generically, which still finds
// independently resolvable chains nested deeper inside (including inside
// its index expressions).
func (p *SubfieldPushdown) collectCandidates(ctx *sql.Context, project *plan.Project) []sql.Expression {
	var candidates []sql.Expression
	for _, assign := range project.Assignments() {
		candidates = p.collectFromExpression(ctx, assign.Expr, candidates)
	}
	return candidates
}

func (p *SubfieldPushdown) collectFromExpression(ctx *sql.Context, e sql.Expression, acc []sql.Expression) []sql.Expression {
	switch e := e.(type) {
	case *expression.Variable:
		return appendCandidate(acc, e)
	case *expression.FieldAccess:
		if p.chainResolves(ctx, e) {
			return appendCandidate(acc, e)
		}
	}
	for _, child := range e.Children() {
		acc = p.collectFromExpression(ctx, child, acc)
	}
	return acc
}

func appendCandidate(acc []sql.Expression, e sql.Expression) []sql.Expression {
	if containsExpression(acc, e) {
		return acc
	}
	return append(acc, e)
}

func containsExpression(exprs []sql.Expression, e sql.Expression) bool {
	for _, candidate := range exprs {
		if reflect.DeepEqual(candidate, e) {
			return true
		}
	}
	return false
}

// chainResolves walks the chain from the outermost access inward and
// reports whether every level folds to a named field and the chain bottoms
// out at a bare variable.
func (p *SubfieldPushdown) chainResolves(ctx *sql.Context, access *expression.FieldAccess) bool {
	var cur sql.Expression = access
	for {
		switch e := cur.(type) {
		case *expression.Variable:
			return true
		case *expression.FieldAccess:
			if _, ok := p.resolveFieldName(ctx, e); !ok {
				return false
			}
			cur = e.Base()
		default:
			return false
		}
	}
}

// resolveFieldName folds the access's index expression and, if it yields a
// constant integer naming a field of the base row type, returns that
// field's name.
func (p *SubfieldPushdown) resolveFieldName(ctx *sql.Context, access *expression.FieldAccess) (string, bool) {
	rowType, ok := access.Base().Type().(sql.RowType)
	if !ok {
		return "", false
	}
	folded, err := p.optimizer.OptimizeExpression(ctx, access.Index(), sql.OptimizeDefault)
	if err != nil {
		return "", false
	}
	lit, ok := folded.(*expression.Literal)
	if !ok {
		return "", false
	}
	idx, ok := expression.IntValue(lit.Value())
	if !ok || idx < 0 {
		return "", false
	}
	field, ok := rowType.FieldAt(idx)
	if !ok || field.Name == "" {
		return "", false
	}
	return field.Name, true
}

// pruneSubsumedCandidates returns the candidates that should actually be
// pushed down. A candidate is dropped when its own base chain contains
// another collected candidate: materializing the ancestor already loads all
// data the descendant needs, so a separate storage read would be redundant.
// A bare variable candidate subsumes every chain rooted at it (the whole
// column is read anyway) and is itself never pushed.
func pruneSubsumedCandidates(candidates []sql.Expression) []*expression.FieldAccess {
	var survivors []*expression.FieldAccess
	for _, candidate := range candidates {
		chain, ok := candidate.(*expression.FieldAccess)
		if !ok {
			continue
		}
		if countCollectedPrefixes(chain, candidates) > 1 {
			continue
		}
		survivors = append(survivors, chain)
	}
	return survivors
}

// countCollectedPrefixes walks the chain's own base steps, structurally and
// without refolding indices, counting how many members of the candidate set
// it passes through. The chain itself always counts as one.
func countCollectedPrefixes(chain *expression.FieldAccess, candidates []sql.Expression) int {
	count := 0
	var cur sql.Expression = chain
	for {
		if containsExpression(candidates, cur) {
			count++
		}
		access, ok := cur.(*expression.FieldAccess)
		if !ok {
			return count
		}
		cur = access.Base()
	}
}

// subfieldForChain converts a surviving chain into the subfield it
// addresses, resolving the root variable to its scan column handle. The
// chain was accepted by matching, so failure here is an internal
// inconsistency, not a recoverable condition.
func (p *SubfieldPushdown) subfieldForChain(ctx *sql.Context, chain *expression.FieldAccess, baseColumns map[string]sql.ColumnHandle) (sql.Subfield, sql.ColumnHandle, error) {
	var path []string
	var cur sql.Expression = chain
	for {
		switch e := cur.(type) {
		case *expression.Variable:
			// The walk collects names from the outside in; the
			// subfield path reads from the root out.
			reverseStrings(path)
			handle, ok := baseColumns[e.Name()]
			if !ok {
				return sql.Subfield{}, nil, ErrSubfieldRootUnbound.New(e.Name())
			}
			return sql.NewSubfield(p.connector.ColumnName(handle), path...), handle, nil
		case *expression.FieldAccess:
			name, ok := p.resolveFieldName(ctx, e)
			if !ok {
				return sql.Subfield{}, nil, ErrMalformedFieldAccessChain.New(cur)
			}
			path = append(path, name)
			cur = e.Base()
		default:
			return sql.Subfield{}, nil, ErrMalformedFieldAccessChain.New(cur)
		}
	}
}

func reverseStrings(s []string) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
