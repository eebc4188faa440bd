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
	"github.com/columnstore/go-subfield-pushdown/sql/plan"
)

var (
	// ErrUnsupportedPlan is returned when executing a plan node the memory
	// engine does not implement.
	ErrUnsupportedPlan = errors.NewKind("memory execution does not support node %T")

	// ErrNotMemoryTable is returned when a scan references a table handle
	// that is not a memory table.
	ErrNotMemoryTable = errors.NewKind("expected a memory table, got %T")
)

// NodeRows executes the plan fragment given over memory tables and returns
// the produced rows. Scans materialize one value per output handle;
// projections evaluate their assignments over the scanned rows.
func NodeRows(ctx *sql.Context, node sql.Node) ([]sql.Row, error) {
	switch n := node.(type) {
	case *plan.TableScan:
		return scanRows(ctx, n)
	case *plan.Project:
		childRows, err := NodeRows(ctx, n.Child)
		if err != nil {
			return nil, err
		}
		rows := make([]sql.Row, len(childRows))
		for i, childRow := range childRows {
			row := make(sql.Row, len(n.Assignments()))
			for j, assign := range n.Assignments() {
				val, err := assign.Expr.Eval(ctx, childRow)
				if err != nil {
					return nil, err
				}
				row[j] = val
			}
			rows[i] = row
		}
		return rows, nil
	default:
		return nil, ErrUnsupportedPlan.New(node)
	}
}

func scanRows(ctx *sql.Context, scan *plan.TableScan) ([]sql.Row, error) {
	t, ok := scan.Table().(*Table)
	if !ok {
		return nil, ErrNotMemoryTable.New(scan.Table())
	}

	rows := make([]sql.Row, len(t.rows))
	for i, stored := range t.rows {
		row := make(sql.Row, len(scan.Outputs()))
		for j, out := range scan.Outputs() {
			handle, ok := scan.Columns()[out.Name()].(*ColumnHandle)
			if !ok {
				return nil, ErrUnknownColumn.New(t.name, out.Name())
			}
			val, err := handle.extractFrom(t, stored)
			if err != nil {
				return nil, err
			}
			row[j] = val
		}
		rows[i] = row
	}
	return rows, nil
}
