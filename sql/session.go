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
	"context"
	"sync"

	opentracing "github.com/opentracing/opentracing-go"
)

// SubfieldPushdownEnabledSessionVar overrides, when set on a session, the
// connector's per-table subfield pushdown gate.
const SubfieldPushdownEnabledSessionVar = "subfield_pushdown_enabled"

// Session holds session-scoped state consulted during planning.
type Session interface {
	// SetSessionVariable sets the given system variable to the value given for this session.
	SetSessionVariable(ctx *Context, name string, value interface{}) error
	// GetSessionVariable returns this session's value of the system variable
	// with the given name, or nil if it has not been set.
	GetSessionVariable(ctx *Context, name string) (interface{}, error)
}

// BaseSession is the basic session type.
type BaseSession struct {
	mu   sync.RWMutex
	vars map[string]interface{}
}

// NewBaseSession creates a new empty session.
func NewBaseSession() *BaseSession {
	return &BaseSession{vars: make(map[string]interface{})}
}

// SetSessionVariable implements the Session interface.
func (s *BaseSession) SetSessionVariable(ctx *Context, name string, value interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vars[name] = value
	return nil
}

// GetSessionVariable implements the Session interface.
func (s *BaseSession) GetSessionVariable(ctx *Context, name string) (interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vars[name], nil
}

// Context of the query execution and planning.
type Context struct {
	context.Context
	Session
	tracer opentracing.Tracer
	pid    uint64
}

// ContextOption is a function to configure the context.
type ContextOption func(*Context)

// WithSession adds the given session to the context.
func WithSession(s Session) ContextOption {
	return func(ctx *Context) {
		ctx.Session = s
	}
}

// WithTracer adds the given tracer to the context.
func WithTracer(t opentracing.Tracer) ContextOption {
	return func(ctx *Context) {
		ctx.tracer = t
	}
}

// WithPid adds the given pid to the context.
func WithPid(pid uint64) ContextOption {
	return func(ctx *Context) {
		ctx.pid = pid
	}
}

// NewContext creates a new query context.
func NewContext(ctx context.Context, opts ...ContextOption) *Context {
	c := &Context{
		Context: ctx,
		Session: NewBaseSession(),
		tracer:  opentracing.NoopTracer{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewEmptyContext returns a default context with default values.
func NewEmptyContext() *Context { return NewContext(context.TODO()) }

// Pid returns the process id associated with this context.
func (c *Context) Pid() uint64 { return c.pid }

// Span creates a new tracing span with the given context.
// It will return the span and a new context that should be passed to all
// children of this span.
func (c *Context) Span(
	opName string,
	opts ...opentracing.StartSpanOption,
) (opentracing.Span, *Context) {
	parentSpan := opentracing.SpanFromContext(c.Context)
	if parentSpan != nil {
		opts = append(opts, opentracing.ChildOf(parentSpan.Context()))
	}
	span := c.tracer.StartSpan(opName, opts...)
	ctx := opentracing.ContextWithSpan(c.Context, span)

	return span, c.WithContext(ctx)
}

// WithContext returns a new context with the given underlying context.
func (c *Context) WithContext(ctx context.Context) *Context {
	nc := *c
	nc.Context = ctx
	return &nc
}
