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
	"github.com/columnstore/go-subfield-pushdown/sql"
)

// Folder is the default ExpressionOptimizer: it folds expressions whose
// subtrees are closed over literals into a single Literal. Folding is best
// effort; expressions that cannot be folded are returned unchanged and
// never produce an error.
type Folder struct{}

var _ sql.ExpressionOptimizer = Folder{}

// NewFolder creates a Folder.
func NewFolder() Folder { return Folder{} }

// OptimizeExpression implements the ExpressionOptimizer interface.
func (Folder) OptimizeExpression(ctx *sql.Context, e sql.Expression, level sql.OptimizeLevel) (sql.Expression, error) {
	if _, ok := e.(*Literal); ok {
		return e, nil
	}
	if !isConstant(e) {
		return e, nil
	}
	// Constant subtrees evaluate without any input row.
	val, err := e.Eval(ctx, nil)
	if err != nil {
		return e, nil
	}
	return NewLiteral(val, e.Type()), nil
}

func isConstant(e sql.Expression) bool {
	switch e := e.(type) {
	case *Literal:
		return true
	case *Variable:
		return false
	default:
		children := e.Children()
		if len(children) == 0 {
			return false
		}
		for _, child := range children {
			if !isConstant(child) {
				return false
			}
		}
		return true
	}
}
