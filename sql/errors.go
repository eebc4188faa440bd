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

import "gopkg.in/src-d/go-errors.v1"

var (
	// ErrInvalidType is thrown when there is an unexpected type at some part of
	// the plan or expression tree.
	ErrInvalidType = errors.NewKind("invalid type: %s")

	// ErrColumnNotFound is returned when a named column does not exist in the
	// schema in scope.
	ErrColumnNotFound = errors.NewKind("column %q could not be found in scope")

	// ErrUnexpectedRowLength is thrown when an obtained row has a different
	// number of values than its schema.
	ErrUnexpectedRowLength = errors.NewKind("expected %d values, got %d")

	// ErrInvalidChildrenNumber is returned when the WithChildren method of a
	// node or expression is called with an invalid number of arguments.
	ErrInvalidChildrenNumber = errors.NewKind("%T: invalid children number, got %d, expected %d")

	// ErrFieldIndexOutOfBounds is returned when a field access evaluates an
	// index outside the row value it is applied to.
	ErrFieldIndexOutOfBounds = errors.NewKind("field index %d out of bounds for row of %d fields")

	// ErrNotRowValue is returned when a field access is evaluated against a
	// value that is not a row.
	ErrNotRowValue = errors.NewKind("expected a row value, got %T")
)
