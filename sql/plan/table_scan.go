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
	"github.com/columnstore/go-subfield-pushdown/sql/expression"
)

// TableScan reads a table through a connector. It holds the connector's
// table handle, an ordered list of output variables and the column handle
// backing each of them, plus opaque connector constraint state that
// optimizer rules carry through unmodified.
//
// Every output variable name is unique within the scan and is a key of the
// column handle map. Scans are replaced, never mutated: rules that extend a
// scan's outputs build a new node with NewTableScan/WithConstraint.
type TableScan struct {
	id         sql.NodeId
	table      sql.TableHandle
	outputs    []*expression.Variable
	columns    map[string]sql.ColumnHandle
	constraint interface{}
}

var _ sql.Node = (*TableScan)(nil)

// NewTableScan creates a new TableScan node.
func NewTableScan(id sql.NodeId, table sql.TableHandle, outputs []*expression.Variable, columns map[string]sql.ColumnHandle) *TableScan {
	return &TableScan{
		id:      id,
		table:   table,
		outputs: outputs,
		columns: columns,
	}
}

// WithConstraint returns a copy of the scan carrying the given connector
// constraint state.
func (t *TableScan) WithConstraint(constraint interface{}) *TableScan {
	nt := *t
	nt.constraint = constraint
	return &nt
}

// Id returns the node id.
func (t *TableScan) Id() sql.NodeId { return t.id }

// Table returns the connector table handle.
func (t *TableScan) Table() sql.TableHandle { return t.table }

// Outputs returns the scan's output variables, in order.
func (t *TableScan) Outputs() []*expression.Variable { return t.outputs }

// Columns returns the column handle for each output variable name.
func (t *TableScan) Columns() map[string]sql.ColumnHandle { return t.columns }

// Constraint returns the opaque connector constraint state.
func (t *TableScan) Constraint() interface{} { return t.constraint }

// Resolved implements the Node interface.
func (*TableScan) Resolved() bool { return true }

// Schema implements the Node interface.
func (t *TableScan) Schema() sql.Schema {
	schema := make(sql.Schema, len(t.outputs))
	for i, out := range t.outputs {
		schema[i] = &sql.Column{
			Name:     out.Name(),
			Type:     out.Type(),
			Nullable: out.IsNullable(),
			Source:   t.table.Name(),
		}
	}
	return schema
}

// Children implements the Node interface.
func (*TableScan) Children() []sql.Node { return nil }

// WithChildren implements the Node interface.
func (t *TableScan) WithChildren(children ...sql.Node) (sql.Node, error) {
	return NillaryWithChildren(t, children...)
}

func (t *TableScan) String() string {
	names := make([]string, len(t.outputs))
	for i, out := range t.outputs {
		names[i] = out.Name()
	}
	return fmt.Sprintf("TableScan(%s: %s)", t.table.Name(), strings.Join(names, ", "))
}
