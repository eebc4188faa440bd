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

package analyzer

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	errors "gopkg.in/src-d/go-errors.v1"

	"github.com/columnstore/go-subfield-pushdown/sql"
	"github.com/columnstore/go-subfield-pushdown/sql/transform"
)

const debugAnalyzerKey = "DEBUG_ANALYZER"

const maxBatchIterations = 1000

// ErrMaxBatchIters is thrown when a batch exceeds its iteration budget
// without reaching a fixed point.
var ErrMaxBatchIters = errors.NewKind("exceeded max batch iterations (%d)")

// RuleFunc is the function to be applied by a rule.
type RuleFunc func(ctx *sql.Context, a *Analyzer, n sql.Node) (sql.Node, transform.TreeIdentity, error)

// Rule to transform plan nodes.
type Rule struct {
	// Name of the rule.
	Name string
	// Apply transforms a node.
	Apply RuleFunc
}

// Batch executes a set of rules a specific number of times.
// When this number of times is reached, the actual node
// and ErrMaxBatchIters is returned.
type Batch struct {
	Desc       string
	Iterations int
	Rules      []Rule
}

// Eval applies the rules of the batch, until a fixed point is reached or
// the iteration budget is spent.
func (b *Batch) Eval(ctx *sql.Context, a *Analyzer, n sql.Node) (sql.Node, transform.TreeIdentity, error) {
	if b.Iterations == 0 {
		return n, transform.SameTree, nil
	}

	cur := n
	allSame := transform.SameTree
	for i := 0; ; i++ {
		if i >= b.Iterations {
			return cur, allSame, ErrMaxBatchIters.New(b.Iterations)
		}

		iterSame := transform.SameTree
		for _, rule := range b.Rules {
			next, same, err := rule.Apply(ctx, a, cur)
			if err != nil {
				return nil, transform.SameTree, err
			}
			if !same {
				a.Log("rule %s applied, tree changed", rule.Name)
				cur = next
				iterSame = transform.NewTree
			}
		}
		if iterSame {
			return cur, allSame, nil
		}
		allSame = transform.NewTree
	}
}

// Analyzer applies optimizer rules to plan trees.
type Analyzer struct {
	// Debug enables logging of various debugging messages.
	Debug bool
	// Parallelism bounds the number of plan fragments analyzed
	// concurrently by AnalyzeAll. Zero means unbounded.
	Parallelism int
	// Batches of rules to apply, in order.
	Batches []*Batch
}

// Builder provides an easy way to generate an Analyzer with custom rules
// and options.
type Builder struct {
	rules       []Rule
	iterations  int
	parallelism int
	debug       bool
}

// NewBuilder creates a new Builder.
func NewBuilder() *Builder {
	return &Builder{iterations: maxBatchIterations}
}

// WithDebug activates debug on the Analyzer.
func (b *Builder) WithDebug() *Builder {
	b.debug = true
	return b
}

// WithParallelism sets the parallelism level on the analyzer.
func (b *Builder) WithParallelism(parallelism int) *Builder {
	b.parallelism = parallelism
	return b
}

// WithIterations bounds the batch iteration budget.
func (b *Builder) WithIterations(n int) *Builder {
	b.iterations = n
	return b
}

// AddRule appends a rule to the analyzer batch.
func (b *Builder) AddRule(name string, fn RuleFunc) *Builder {
	b.rules = append(b.rules, Rule{Name: name, Apply: fn})
	return b
}

// Build creates an Analyzer from the builder's configuration.
func (b *Builder) Build() *Analyzer {
	_, debug := os.LookupEnv(debugAnalyzerKey)
	return &Analyzer{
		Debug:       debug || b.debug,
		Parallelism: b.parallelism,
		Batches: []*Batch{
			{
				Desc:       "optimization",
				Iterations: b.iterations,
				Rules:      b.rules,
			},
		},
	}
}

// Analyze applies all batches of rules to the plan given and returns the
// resulting plan.
func (a *Analyzer) Analyze(ctx *sql.Context, n sql.Node) (sql.Node, error) {
	span, ctx := ctx.Span("analyze")
	defer span.Finish()

	cur := n
	for _, batch := range a.Batches {
		next, _, err := batch.Eval(ctx, a, cur)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

// AnalyzeAll analyzes independent plan fragments concurrently. Rules are
// pure tree transformations over immutable inputs, so fragments need no
// coordination beyond collecting results.
func (a *Analyzer) AnalyzeAll(ctx *sql.Context, nodes []sql.Node) ([]sql.Node, error) {
	results := make([]sql.Node, len(nodes))

	g, gctx := errgroup.WithContext(ctx)
	if a.Parallelism > 0 {
		g.SetLimit(a.Parallelism)
	}
	for i, n := range nodes {
		i, n := i, n
		g.Go(func() error {
			analyzed, err := a.Analyze(ctx.WithContext(gctx), n)
			if err != nil {
				return err
			}
			results[i] = analyzed
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Log prints an INFO message to stdout with the given message and args if
// the analyzer is in debug mode.
func (a *Analyzer) Log(msg string, args ...interface{}) {
	if a != nil && a.Debug {
		logrus.Infof(msg, args...)
	}
}

// LogNode prints the node given if debug logging is enabled.
func (a *Analyzer) LogNode(n sql.Node) {
	if a != nil && a.Debug && n != nil {
		logrus.Info(strings.TrimSpace(n.String()))
	}
}
