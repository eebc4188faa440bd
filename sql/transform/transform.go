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

package transform

import (
	"github.com/columnstore/go-subfield-pushdown/sql"
)

// TreeIdentity tracks whether a transformation or traversal changed a tree
// or not. A SameTree result lets callers and parent transforms elide
// reallocations.
type TreeIdentity bool

const (
	SameTree TreeIdentity = true
	NewTree  TreeIdentity = false
)

// NodeFunc is a function that given a plan node will return that node as is
// or a new node, along with a TreeIdentity and an error, if any.
type NodeFunc func(n sql.Node) (sql.Node, TreeIdentity, error)

// ExprFunc is a function that given an expression will return that
// expression as is or a new expression, along with a TreeIdentity and an
// error, if any.
type ExprFunc func(e sql.Expression) (sql.Expression, TreeIdentity, error)

// Node applies a transformation function to the given plan tree from the
// bottom up. Each callback [f] returns a TreeIdentity that is aggregated
// into a final output indicating whether the tree was changed.
func Node(node sql.Node, f NodeFunc) (sql.Node, TreeIdentity, error) {
	children := node.Children()
	if len(children) == 0 {
		return f(node)
	}

	var (
		newChildren []sql.Node
		err         error
	)

	for i := 0; i < len(children); i++ {
		c := children[i]
		c, same, err := Node(c, f)
		if err != nil {
			return nil, SameTree, err
		}
		if !same {
			if newChildren == nil {
				newChildren = make([]sql.Node, len(children))
				copy(newChildren, children)
			}
			newChildren[i] = c
		}
	}

	sameC := SameTree
	if len(newChildren) > 0 {
		sameC = NewTree
		node, err = node.WithChildren(newChildren...)
		if err != nil {
			return nil, SameTree, err
		}
	}

	node, sameN, err := f(node)
	if err != nil {
		return nil, SameTree, err
	}
	return node, sameC && sameN, nil
}

// Inspect performs a pre-order traversal of the plan tree; first it calls
// f(node) and, if cont = true, Inspect is recursively called on the node's
// children.
func Inspect(node sql.Node, f func(sql.Node) bool) (cont bool) {
	if !f(node) {
		return false
	}
	for _, child := range node.Children() {
		if !Inspect(child, f) {
			return false
		}
	}
	return true
}
