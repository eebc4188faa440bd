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
	"testing"

	"github.com/stretchr/testify/require"
	errors "gopkg.in/src-d/go-errors.v1"

	"github.com/columnstore/go-subfield-pushdown/memory"
	"github.com/columnstore/go-subfield-pushdown/sql"
	"github.com/columnstore/go-subfield-pushdown/sql/expression"
	"github.com/columnstore/go-subfield-pushdown/sql/plan"
	"github.com/columnstore/go-subfield-pushdown/sql/transform"
)

var (
	bType = sql.NewRowType(
		sql.RowField{Name: "c", Type: sql.Int64},
	)
	aType = sql.NewRowType(
		sql.RowField{Name: "b", Type: bType},
		sql.RowField{Name: "d", Type: sql.Int64},
	)
	xType = sql.NewRowType(
		sql.RowField{Name: "a", Type: aType},
		sql.RowField{Name: "e", Type: sql.Int64},
	)
)

func TestSubfieldPushdownSimpleChain(t *testing.T) {
	require := require.New(t)
	ctx := sql.NewEmptyContext()

	table := newNestedTable("t")
	scan := newScan(t, table, 1).WithConstraint("tail-constraint")
	x := scanVar(scan, "x")
	n := scanVar(scan, "n")

	project := plan.NewProject(2, []plan.Assignment{
		{Name: "c", Expr: chain(t, x, "a", "b", "c")},
		{Name: "n2", Expr: expression.NewPlus(n, expression.NewLiteral(int64(1), sql.Int64))},
	}, scan)

	node, same := optimize(t, newPushdown(), ctx, project)
	require.Equal(transform.NewTree, same)

	newProject, newScan := projectOverScan(t, node)

	require.Len(newScan.Outputs(), 3)
	require.Equal("x", newScan.Outputs()[0].Name())
	require.Equal("n", newScan.Outputs()[1].Name())

	pushed := newScan.Outputs()[2]
	require.Equal("$pushdown$x.a.b.c", pushed.Name())
	require.Equal(2, pushed.Index())
	require.Equal(sql.Int64, pushed.Type())

	handle, ok := newScan.Columns()[pushed.Name()].(*memory.ColumnHandle)
	require.True(ok)
	require.Equal("x", handle.Column())
	require.Equal([]string{"a", "b", "c"}, handle.Path())

	// The chain is gone from the projection; the untouched assignment is
	// carried verbatim, and connector constraint state survives.
	v, ok := newProject.Assignments()[0].Expr.(*expression.Variable)
	require.True(ok)
	require.Equal(pushed.Name(), v.Name())
	require.Equal(project.Assignments()[1].Expr, newProject.Assignments()[1].Expr)
	require.Equal("tail-constraint", newScan.Constraint())
}

func TestSubfieldPushdownNoChains(t *testing.T) {
	require := require.New(t)
	ctx := sql.NewEmptyContext()

	table := newNestedTable("t")
	scan := newScan(t, table, 1)
	project := plan.NewProject(2, []plan.Assignment{
		{Name: "x", Expr: scanVar(scan, "x")},
		{Name: "n2", Expr: expression.NewMult(scanVar(scan, "n"), expression.NewLiteral(int64(2), sql.Int64))},
	}, scan)

	node, same := optimize(t, newPushdown(), ctx, project)
	require.Equal(transform.SameTree, same)
	require.Equal(sql.Node(project), node)
}

func TestSubfieldPushdownDisabledTable(t *testing.T) {
	require := require.New(t)
	ctx := sql.NewEmptyContext()

	table := newNestedTable("t")
	table.SetSubfieldPushdownEnabled(false)
	scan := newScan(t, table, 1)
	project := plan.NewProject(2, []plan.Assignment{
		{Name: "c", Expr: chain(t, scanVar(scan, "x"), "a", "b", "c")},
	}, scan)

	_, same := optimize(t, newPushdown(), ctx, project)
	require.Equal(transform.SameTree, same)
}

func TestSubfieldPushdownSessionVarOverride(t *testing.T) {
	require := require.New(t)

	table := newNestedTable("t")
	table.SetSubfieldPushdownEnabled(false)
	scan := newScan(t, table, 1)
	project := plan.NewProject(2, []plan.Assignment{
		{Name: "c", Expr: chain(t, scanVar(scan, "x"), "a", "b", "c")},
	}, scan)

	// The session variable overrides the table-level setting both ways.
	ctx := sql.NewEmptyContext()
	require.NoError(ctx.SetSessionVariable(ctx, sql.SubfieldPushdownEnabledSessionVar, true))
	_, same := optimize(t, newPushdown(), ctx, project)
	require.Equal(transform.NewTree, same)

	table.SetSubfieldPushdownEnabled(true)
	require.NoError(ctx.SetSessionVariable(ctx, sql.SubfieldPushdownEnabledSessionVar, false))
	_, same = optimize(t, newPushdown(), ctx, project)
	require.Equal(transform.SameTree, same)
}

func TestSubfieldPushdownAncestorSubsumesDescendant(t *testing.T) {
	require := require.New(t)
	ctx := sql.NewEmptyContext()

	table := newNestedTable("t")
	scan := newScan(t, table, 1)
	x := scanVar(scan, "x")

	project := plan.NewProject(2, []plan.Assignment{
		{Name: "ab", Expr: chain(t, x, "a", "b")},
		{Name: "abc", Expr: chain(t, x, "a", "b", "c")},
	}, scan)

	p := newPushdown()
	node, same := optimize(t, p, ctx, project)
	require.Equal(transform.NewTree, same)

	newProject, newScan := projectOverScan(t, node)

	// Only x.a.b is pushed; x.a.b.c reads the field out of the pushed
	// ancestor value.
	require.Len(newScan.Outputs(), 3)
	require.Equal("$pushdown$x.a.b", newScan.Outputs()[2].Name())

	ab, ok := newProject.Assignments()[0].Expr.(*expression.Variable)
	require.True(ok)
	require.Equal("$pushdown$x.a.b", ab.Name())

	abc, ok := newProject.Assignments()[1].Expr.(*expression.FieldAccess)
	require.True(ok)
	base, ok := abc.Base().(*expression.Variable)
	require.True(ok)
	require.Equal("$pushdown$x.a.b", base.Name())

	// A second application over the rewritten plan is a no-op.
	_, same = optimize(t, p, ctx, node)
	require.Equal(transform.SameTree, same)
}

func TestSubfieldPushdownWholeColumnSubsumes(t *testing.T) {
	require := require.New(t)
	ctx := sql.NewEmptyContext()

	table := newNestedTable("t")
	scan := newScan(t, table, 1)
	x := scanVar(scan, "x")

	project := plan.NewProject(2, []plan.Assignment{
		{Name: "x", Expr: x},
		{Name: "a", Expr: chain(t, x, "a")},
	}, scan)

	// The whole column is read anyway, so pushing x.a would be redundant.
	_, same := optimize(t, newPushdown(), ctx, project)
	require.Equal(transform.SameTree, same)
}

func TestSubfieldPushdownSiblingsBothPushed(t *testing.T) {
	require := require.New(t)
	ctx := sql.NewEmptyContext()

	table := newNestedTable("t")
	scan := newScan(t, table, 1)
	x := scanVar(scan, "x")

	project := plan.NewProject(2, []plan.Assignment{
		{Name: "ab", Expr: chain(t, x, "a", "b")},
		{Name: "ad", Expr: chain(t, x, "a", "d")},
	}, scan)

	p := newPushdown()
	node, same := optimize(t, p, ctx, project)
	require.Equal(transform.NewTree, same)

	_, newScan := projectOverScan(t, node)
	require.Len(newScan.Outputs(), 4)
	require.Equal("$pushdown$x.a.b", newScan.Outputs()[2].Name())
	require.Equal("$pushdown$x.a.d", newScan.Outputs()[3].Name())

	_, same = optimize(t, p, ctx, node)
	require.Equal(transform.SameTree, same)
}

func TestSubfieldPushdownDynamicIndex(t *testing.T) {
	require := require.New(t)
	ctx := sql.NewEmptyContext()

	table := newNestedTable("t")
	scan := newScan(t, table, 1)
	x := scanVar(scan, "x")

	// x.a[x.e] cannot be pushed, but both the base chain x.a and the
	// index chain x.e can.
	dynamic := expression.NewFieldAccess(chain(t, x, "a"), chain(t, x, "e"), sql.Int64)
	project := plan.NewProject(2, []plan.Assignment{
		{Name: "v", Expr: dynamic},
	}, scan)

	node, same := optimize(t, newPushdown(), ctx, project)
	require.Equal(transform.NewTree, same)

	newProject, newScan := projectOverScan(t, node)
	require.Len(newScan.Outputs(), 4)
	require.Equal("$pushdown$x.a", newScan.Outputs()[2].Name())
	require.Equal("$pushdown$x.e", newScan.Outputs()[3].Name())

	rewritten, ok := newProject.Assignments()[0].Expr.(*expression.FieldAccess)
	require.True(ok)
	base, ok := rewritten.Base().(*expression.Variable)
	require.True(ok)
	require.Equal("$pushdown$x.a", base.Name())
	idx, ok := rewritten.Index().(*expression.Variable)
	require.True(ok)
	require.Equal("$pushdown$x.e", idx.Name())
}

func TestSubfieldPushdownDynamicIndexOverColumn(t *testing.T) {
	require := require.New(t)
	ctx := sql.NewEmptyContext()

	table := newNestedTable("t")
	scan := newScan(t, table, 1)

	// x[n] over the bare column leaves nothing to push.
	dynamic := expression.NewFieldAccess(scanVar(scan, "x"), scanVar(scan, "n"), aType)
	project := plan.NewProject(2, []plan.Assignment{
		{Name: "v", Expr: dynamic},
	}, scan)

	_, same := optimize(t, newPushdown(), ctx, project)
	require.Equal(transform.SameTree, same)
}

func TestSubfieldPushdownFoldedIndex(t *testing.T) {
	require := require.New(t)
	ctx := sql.NewEmptyContext()

	table := newNestedTable("t")
	scan := newScan(t, table, 1)
	x := scanVar(scan, "x")

	// The index is constant after folding, so the chain still qualifies.
	computed := expression.NewFieldAccess(
		x,
		expression.NewPlus(expression.NewLiteral(int64(0), sql.Int64), expression.NewLiteral(int64(0), sql.Int64)),
		aType,
	)
	project := plan.NewProject(2, []plan.Assignment{
		{Name: "a", Expr: computed},
	}, scan)

	node, same := optimize(t, newPushdown(), ctx, project)
	require.Equal(transform.NewTree, same)

	_, newScan := projectOverScan(t, node)
	require.Equal("$pushdown$x.a", newScan.Outputs()[2].Name())
}

func TestSubfieldPushdownAnonymousField(t *testing.T) {
	require := require.New(t)
	ctx := sql.NewEmptyContext()

	anonType := sql.NewRowType(sql.RowField{Type: sql.Int64})
	table := memory.NewTable("t", sql.Schema{
		{Name: "y", Type: anonType, Source: "t"},
	})
	scan := newScan(t, table, 1)

	access, err := expression.NewFieldAccessAt(scanVar(scan, "y"), 0)
	require.NoError(err)
	project := plan.NewProject(2, []plan.Assignment{
		{Name: "v", Expr: access},
	}, scan)

	// Anonymous fields cannot be addressed by name in storage.
	_, same := optimize(t, newPushdown(), ctx, project)
	require.Equal(transform.SameTree, same)
}

func TestSubfieldPushdownNameCollision(t *testing.T) {
	require := require.New(t)
	ctx := sql.NewEmptyContext()

	p := newPushdown()
	table := newNestedTable("t")

	hx, err := table.ColumnHandle("x")
	require.NoError(err)
	taken, err := p.connector.SubfieldColumnHandle(hx, sql.NewSubfield("x", "a"), aType, "$pushdown$x.a")
	require.NoError(err)

	x := expression.NewVariable("x", 0, xType)
	scan := plan.NewTableScan(1, table,
		[]*expression.Variable{x, expression.NewVariable("$pushdown$x.a", 1, aType)},
		map[string]sql.ColumnHandle{"x": hx, "$pushdown$x.a": taken},
	)
	project := plan.NewProject(2, []plan.Assignment{
		{Name: "a", Expr: chain(t, x, "a")},
	}, scan)

	node, same := optimize(t, p, ctx, project)
	require.Equal(transform.NewTree, same)

	_, newScan := projectOverScan(t, node)
	require.Len(newScan.Outputs(), 3)
	require.Equal("$pushdown$x.a_1", newScan.Outputs()[2].Name())
}

func TestSubfieldPushdownUnderlyingColumnName(t *testing.T) {
	require := require.New(t)
	ctx := sql.NewEmptyContext()

	table := newNestedTable("t")
	hx, err := table.ColumnHandle("x")
	require.NoError(err)

	// The scan output is renamed, but the chain is rooted at the
	// connector-level column name; resolution falls back to that key.
	scan := plan.NewTableScan(1, table,
		[]*expression.Variable{expression.NewVariable("m", 0, xType)},
		map[string]sql.ColumnHandle{"m": hx},
	)
	project := plan.NewProject(2, []plan.Assignment{
		{Name: "a", Expr: chain(t, expression.NewVariable("x", 0, xType), "a")},
	}, scan)

	node, same := optimize(t, newPushdown(), ctx, project)
	require.Equal(transform.NewTree, same)

	_, newScan := projectOverScan(t, node)
	require.Len(newScan.Outputs(), 2)
	require.Equal("$pushdown$x.a", newScan.Outputs()[1].Name())
}

func TestSubfieldPushdownUnboundRoot(t *testing.T) {
	require := require.New(t)
	ctx := sql.NewEmptyContext()

	table := newNestedTable("t")
	scan := newScan(t, table, 1)

	ghost := expression.NewVariable("ghost", 5, xType)
	project := plan.NewProject(2, []plan.Assignment{
		{Name: "a", Expr: chain(t, ghost, "a")},
	}, scan)

	p := newPushdown()
	_, _, err := p.Optimize(ctx, project, sql.NewVariableAllocator(), sql.NewNodeIdAllocator())
	require.Error(err)
	require.True(ErrSubfieldRootUnbound.Is(err))
}

var errRefused = errors.NewKind("refused subfield %s of column %q")

type refusingConnector struct {
	*memory.Connector
}

func (c refusingConnector) SubfieldColumnHandle(base sql.ColumnHandle, subfield sql.Subfield, fieldType sql.Type, columnName string) (sql.ColumnHandle, error) {
	return nil, errRefused.New(subfield, subfield.RootName())
}

func TestSubfieldPushdownConnectorRefusal(t *testing.T) {
	require := require.New(t)
	ctx := sql.NewEmptyContext()

	table := newNestedTable("t")
	scan := newScan(t, table, 1)
	project := plan.NewProject(2, []plan.Assignment{
		{Name: "a", Expr: chain(t, scanVar(scan, "x"), "a")},
	}, scan)

	p := NewSubfieldPushdown(refusingConnector{memory.NewConnector()}, expression.NewFolder())
	_, _, err := p.Optimize(ctx, project, sql.NewVariableAllocator(), sql.NewNodeIdAllocator())
	require.Error(err)
	require.True(errRefused.Is(err))
}

func TestSubfieldPushdownSharedChain(t *testing.T) {
	require := require.New(t)
	ctx := sql.NewEmptyContext()

	table := newNestedTable("t")
	scan := newScan(t, table, 1)
	x := scanVar(scan, "x")

	project := plan.NewProject(2, []plan.Assignment{
		{Name: "p", Expr: chain(t, x, "a", "d")},
		{Name: "q", Expr: expression.NewPlus(chain(t, x, "a", "d"), expression.NewLiteral(int64(1), sql.Int64))},
	}, scan)

	node, same := optimize(t, newPushdown(), ctx, project)
	require.Equal(transform.NewTree, same)

	newProject, newScan := projectOverScan(t, node)

	// One binding serves both occurrences.
	require.Len(newScan.Outputs(), 3)

	p0, ok := newProject.Assignments()[0].Expr.(*expression.Variable)
	require.True(ok)
	q, ok := newProject.Assignments()[1].Expr.(*expression.Arithmetic)
	require.True(ok)
	q0, ok := q.Left.(*expression.Variable)
	require.True(ok)
	require.Equal(p0.Name(), q0.Name())
}

func TestSubfieldPushdownNestedProject(t *testing.T) {
	require := require.New(t)
	ctx := sql.NewEmptyContext()

	table := newNestedTable("t")
	scan := newScan(t, table, 1)
	inner := plan.NewProject(2, []plan.Assignment{
		{Name: "m", Expr: chain(t, scanVar(scan, "x"), "a")},
	}, scan)
	outer := plan.NewProject(3, []plan.Assignment{
		{Name: "o", Expr: expression.NewVariable("m", 0, aType)},
	}, inner)

	node, same := optimize(t, newPushdown(), ctx, outer)
	require.Equal(transform.NewTree, same)

	newOuter, ok := node.(*plan.Project)
	require.True(ok)
	require.Equal(outer.Assignments()[0].Expr, newOuter.Assignments()[0].Expr)

	_, newScan := projectOverScan(t, newOuter.Child)
	require.Equal("$pushdown$x.a", newScan.Outputs()[2].Name())
}

func TestSubfieldPushdownEndToEnd(t *testing.T) {
	require := require.New(t)
	ctx := sql.NewEmptyContext()

	table := memory.NewTable("t", sql.Schema{{Name: "x", Type: xType, Source: "t"}})
	require.NoError(table.Insert(sql.NewRow(
		sql.NewRow(sql.NewRow(sql.NewRow(int64(1)), int64(2)), int64(3)),
	)))
	require.NoError(table.Insert(sql.NewRow(nil)))
	require.NoError(table.Insert(sql.NewRow(sql.NewRow(nil, int64(9)))))

	scan := newScan(t, table, 1)
	x := scanVar(scan, "x")
	project := plan.NewProject(2, []plan.Assignment{
		{Name: "c", Expr: chain(t, x, "a", "b", "c")},
		{Name: "b", Expr: chain(t, x, "a", "b")},
		{Name: "d", Expr: chain(t, x, "a", "d")},
	}, scan)

	want, err := memory.NodeRows(ctx, project)
	require.NoError(err)

	node, same := optimize(t, newPushdown(), ctx, project)
	require.Equal(transform.NewTree, same)

	got, err := memory.NodeRows(ctx, node)
	require.NoError(err)
	require.Equal(want, got)

	require.Equal([]sql.Row{
		{int64(1), sql.NewRow(int64(1)), int64(2)},
		{nil, nil, nil},
		{nil, nil, nil},
	}, got)
}

func TestSubfieldPushdownRule(t *testing.T) {
	require := require.New(t)
	ctx := sql.NewEmptyContext()

	table := newNestedTable("t")
	scan := newScan(t, table, 1)
	project := plan.NewProject(2, []plan.Assignment{
		{Name: "c", Expr: chain(t, scanVar(scan, "x"), "a", "b", "c")},
	}, scan)

	rule := newPushdown().Rule()
	a := NewBuilder().AddRule(rule.Name, rule.Apply).Build()

	node, err := a.Analyze(ctx, project)
	require.NoError(err)

	_, newScan := projectOverScan(t, node)
	require.Len(newScan.Outputs(), 3)
	require.Equal("$pushdown$x.a.b.c", newScan.Outputs()[2].Name())
}

func newNestedTable(name string) *memory.Table {
	return memory.NewTable(name, sql.Schema{
		{Name: "x", Type: xType, Source: name},
		{Name: "n", Type: sql.Int64, Source: name},
	})
}

func newScan(t *testing.T, table *memory.Table, id sql.NodeId) *plan.TableScan {
	t.Helper()
	outputs := make([]*expression.Variable, len(table.Schema()))
	columns := make(map[string]sql.ColumnHandle, len(table.Schema()))
	for i, col := range table.Schema() {
		handle, err := table.ColumnHandle(col.Name)
		require.NoError(t, err)
		outputs[i] = expression.NewVariable(col.Name, i, col.Type)
		columns[col.Name] = handle
	}
	return plan.NewTableScan(id, table, outputs, columns)
}

func scanVar(scan *plan.TableScan, name string) *expression.Variable {
	for _, out := range scan.Outputs() {
		if out.Name() == name {
			return out
		}
	}
	return nil
}

// chain builds a field access chain over base following the named fields.
func chain(t *testing.T, base sql.Expression, names ...string) sql.Expression {
	t.Helper()
	e := base
	for _, name := range names {
		rowType, ok := e.Type().(sql.RowType)
		require.True(t, ok)
		idx := rowType.FieldIndex(name)
		require.True(t, idx >= 0)
		access, err := expression.NewFieldAccessAt(e, idx)
		require.NoError(t, err)
		e = access
	}
	return e
}

func newPushdown() *SubfieldPushdown {
	return NewSubfieldPushdown(memory.NewConnector(), expression.NewFolder())
}

func optimize(t *testing.T, p *SubfieldPushdown, ctx *sql.Context, n sql.Node) (sql.Node, transform.TreeIdentity) {
	t.Helper()
	node, same, err := p.Optimize(ctx, n, sql.NewVariableAllocator(), sql.NewNodeIdAllocator())
	require.NoError(t, err)
	return node, same
}

func projectOverScan(t *testing.T, n sql.Node) (*plan.Project, *plan.TableScan) {
	t.Helper()
	project, ok := n.(*plan.Project)
	require.True(t, ok)
	scan, ok := project.Child.(*plan.TableScan)
	require.True(t, ok)
	return project, scan
}
