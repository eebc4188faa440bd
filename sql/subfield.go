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

import "strings"

// Subfield addresses a nested value relative to a root column: the root
// column's connector-level name plus an ordered sequence of field names,
// outermost first. An empty path denotes the root column itself.
type Subfield struct {
	root string
	path []string
}

// NewSubfield creates a Subfield for the given root column and path.
func NewSubfield(root string, path ...string) Subfield {
	return Subfield{root: root, path: path}
}

// RootName returns the connector-level name of the root column.
func (s Subfield) RootName() string { return s.root }

// Path returns the nested field names, outermost first.
func (s Subfield) Path() []string { return s.path }

// IsPrefixOf reports whether s addresses a strict ancestor of other: same
// root, and s's path is a proper prefix of other's path. Reading an ancestor
// materializes all data of its descendants, which makes any descendant read
// redundant as a separate storage access.
func (s Subfield) IsPrefixOf(other Subfield) bool {
	if s.root != other.root || len(s.path) >= len(other.path) {
		return false
	}
	for i, name := range s.path {
		if other.path[i] != name {
			return false
		}
	}
	return true
}

func (s Subfield) String() string {
	var sb strings.Builder
	sb.WriteString(escapeSubfieldSegment(s.root))
	for _, name := range s.path {
		sb.WriteByte('.')
		sb.WriteString(escapeSubfieldSegment(name))
	}
	return sb.String()
}

// pushdownColumnPrefix marks scan outputs synthesized by subfield pushdown.
// Later passes treat such columns like any other scan output.
const pushdownColumnPrefix = "$pushdown$"

// PushdownColumnName derives the output column name for a pushed-down
// subfield. The encoding is deterministic and injective: segments are joined
// with '.' after escaping '\' and '.' inside segment names, so two distinct
// subfields can never encode to the same string.
func PushdownColumnName(s Subfield) string {
	return pushdownColumnPrefix + s.String()
}

func escapeSubfieldSegment(segment string) string {
	if !strings.ContainsAny(segment, `\.`) {
		return segment
	}
	var sb strings.Builder
	for _, r := range segment {
		if r == '\\' || r == '.' {
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
