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

import (
	"fmt"

	"github.com/spf13/cast"
)

// Type represents a value type of a column or expression.
type Type interface {
	fmt.Stringer
	// Zero returns the zero value for this type.
	Zero() interface{}
	// Convert a value of a compatible type to this type.
	Convert(v interface{}) (interface{}, error)
}

var (
	// Int32 is a 32 bit integer type.
	Int32 Type = numberType{name: "INT32", zero: int32(0)}
	// Int64 is a 64 bit integer type.
	Int64 Type = numberType{name: "INT64", zero: int64(0)}
	// Float64 is a 64 bit floating point type.
	Float64 Type = numberType{name: "FLOAT64", zero: float64(0)}
	// Boolean is a boolean type.
	Boolean Type = boolType{}
	// Text is a string type.
	Text Type = textType{}
	// Null is the type of the null literal.
	Null Type = nullType{}
)

type numberType struct {
	name string
	zero interface{}
}

func (t numberType) String() string    { return t.name }
func (t numberType) Zero() interface{} { return t.zero }

func (t numberType) Convert(v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	switch t.zero.(type) {
	case int32:
		return cast.ToInt32E(v)
	case int64:
		return cast.ToInt64E(v)
	case float64:
		return cast.ToFloat64E(v)
	}
	return nil, ErrInvalidType.New(t.name)
}

type boolType struct{}

func (boolType) String() string    { return "BOOLEAN" }
func (boolType) Zero() interface{} { return false }

func (boolType) Convert(v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	return cast.ToBoolE(v)
}

type textType struct{}

func (textType) String() string    { return "TEXT" }
func (textType) Zero() interface{} { return "" }

func (textType) Convert(v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	return cast.ToStringE(v)
}

type nullType struct{}

func (nullType) String() string    { return "NULL" }
func (nullType) Zero() interface{} { return nil }

func (nullType) Convert(v interface{}) (interface{}, error) {
	if v != nil {
		return nil, ErrInvalidType.New("NULL")
	}
	return nil, nil
}

// NumberTypesEqual reports whether a and b are the same numeric type.
func NumberTypesEqual(a, b Type) bool {
	na, ok := a.(numberType)
	if !ok {
		return false
	}
	nb, ok := b.(numberType)
	return ok && na.name == nb.name
}

// IsNumber reports whether the type is numeric.
func IsNumber(t Type) bool {
	_, ok := t.(numberType)
	return ok
}
