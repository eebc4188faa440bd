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

// VariableAllocator hands out output variable names that are unique within
// one optimization pass. Allocators are acquired once per pass and not
// retained afterwards.
type VariableAllocator struct {
	used map[string]struct{}
}

// NewVariableAllocator creates an empty allocator.
func NewVariableAllocator() *VariableAllocator {
	return &VariableAllocator{used: make(map[string]struct{})}
}

// Reserve marks names as taken, so Unique never returns them.
func (a *VariableAllocator) Reserve(names ...string) {
	for _, name := range names {
		a.used[name] = struct{}{}
	}
}

// Unique returns name if it is still free, or the first free name of the
// form name_N. The result is deterministic given the same sequence of calls.
func (a *VariableAllocator) Unique(name string) string {
	candidate := name
	for i := 1; ; i++ {
		if _, taken := a.used[candidate]; !taken {
			a.used[candidate] = struct{}{}
			return candidate
		}
		candidate = fmt.Sprintf("%s_%d", name, i)
	}
}

// NodeId identifies a plan node within one optimization pass.
type NodeId uint64

// NodeIdAllocator hands out fresh plan node ids, scoped like a
// VariableAllocator.
type NodeIdAllocator struct {
	next NodeId
}

// NewNodeIdAllocator creates an allocator starting at id 1.
func NewNodeIdAllocator() *NodeIdAllocator {
	return &NodeIdAllocator{}
}

// Next returns a fresh node id.
func (a *NodeIdAllocator) Next() NodeId {
	a.next++
	return a.next
}
