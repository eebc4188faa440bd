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
	"sync"

	"github.com/mitchellh/hashstructure"
	"github.com/spf13/cast"

	"github.com/columnstore/go-subfield-pushdown/sql"
)

// Connector is the in-memory implementation of sql.SubfieldConnector.
//
// Subfield handles are cached: producing a handle may involve metadata
// lookups in a real connector, and the planner is free to request the same
// handle any number of times.
type Connector struct {
	mu      sync.Mutex
	handles map[uint64]*ColumnHandle
}

var _ sql.SubfieldConnector = (*Connector)(nil)

// NewConnector creates a new Connector.
func NewConnector() *Connector {
	return &Connector{handles: make(map[uint64]*ColumnHandle)}
}

// SubfieldPushdownEnabled implements the sql.SubfieldConnector interface.
// The session variable sql.SubfieldPushdownEnabledSessionVar, when set,
// overrides the per-table setting.
func (c *Connector) SubfieldPushdownEnabled(ctx *sql.Context, table sql.TableHandle) bool {
	t, ok := table.(*Table)
	if !ok {
		return false
	}
	if v, err := ctx.GetSessionVariable(ctx, sql.SubfieldPushdownEnabledSessionVar); err == nil && v != nil {
		if enabled, err := cast.ToBoolE(v); err == nil {
			return enabled
		}
	}
	return t.pushdownEnabled
}

// ColumnName implements the sql.SubfieldConnector interface.
func (c *Connector) ColumnName(handle sql.ColumnHandle) string {
	return handle.(*ColumnHandle).name
}

type handleCacheKey struct {
	Column string
	Path   []string
	Name   string
}

// SubfieldColumnHandle implements the sql.SubfieldConnector interface. The
// produced handle addresses the subfield relative to the base handle: when
// the base is itself a subfield handle, the paths concatenate.
func (c *Connector) SubfieldColumnHandle(base sql.ColumnHandle, subfield sql.Subfield, fieldType sql.Type, columnName string) (sql.ColumnHandle, error) {
	bh, ok := base.(*ColumnHandle)
	if !ok {
		return nil, sql.ErrInvalidType.New("column handle")
	}

	path := make([]string, 0, len(bh.path)+len(subfield.Path()))
	path = append(path, bh.path...)
	path = append(path, subfield.Path()...)

	// Refuse paths the base column's type cannot represent.
	fieldTypeAt := bh.fieldType
	for _, name := range subfield.Path() {
		rowType, ok := fieldTypeAt.(sql.RowType)
		if !ok {
			return nil, ErrUnsupportedSubfield.New(bh.column, fieldTypeAt, name)
		}
		idx := rowType.FieldIndex(name)
		if idx < 0 {
			return nil, ErrUnsupportedSubfield.New(bh.column, fieldTypeAt, name)
		}
		field, _ := rowType.FieldAt(idx)
		fieldTypeAt = field.Type
	}

	key, err := hashstructure.Hash(handleCacheKey{
		Column: bh.column,
		Path:   path,
		Name:   columnName,
	}, nil)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if handle, ok := c.handles[key]; ok {
		return handle, nil
	}
	handle := &ColumnHandle{
		name:      columnName,
		column:    bh.column,
		path:      path,
		fieldType: fieldType,
	}
	c.handles[key] = handle
	return handle, nil
}
