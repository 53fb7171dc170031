// Package plan models a chat turn as a small, immutable step arena built
// before execution. Steps reference earlier outputs by index; references are
// validated at build time, so a well-formed plan can never read a step that
// has not run yet.
package plan

import "fmt"

// Handle is the index of a step in the plan's arena. A step may only hold
// handles strictly smaller than its own index.
type Handle int

// Value is one input to a step: a literal, the whole output of an earlier
// step, or a field of an earlier step's output addressed by a gjson path.
type Value struct {
	Literal any
	Ref     Handle
	Path    string // gjson path into the referenced output; empty means whole output
	isRef   bool
}

// Lit wraps a literal input.
func Lit(v any) Value { return Value{Literal: v} }

// Out references the whole output of an earlier step.
func Out(h Handle) Value { return Value{Ref: h, isRef: true} }

// Field references one field of an earlier step's output by gjson path.
func Field(h Handle, path string) Value { return Value{Ref: h, Path: path, isRef: true} }

// IsRef reports whether the value reads from an earlier step.
func (v Value) IsRef() bool { return v.isRef }

// Step kinds.
const (
	KindTool      = "tool"
	KindPair      = "pair"
	KindTransform = "transform"
	KindSummary   = "summary"
)

// TransformFunc computes a step output from resolved inputs in-process.
type TransformFunc func(args map[string]any) (any, error)

// Step is one node of the arena. Exactly one of the kind-specific fields is
// populated, matching Kind.
type Step struct {
	Kind string
	Name string

	// KindTool
	Tool string
	Args map[string]Value

	// KindPair: two tools invoked concurrently, outputs keyed by name.
	PairTools []string

	// KindTransform
	Fn TransformFunc

	// KindSummary
	Task   string
	Inputs map[string]Value
}

// Plan is the finished arena. Immutable after Build.
type Plan struct {
	Name  string
	Steps []Step
	Final Handle
}

// Builder accumulates steps and validates references as they are added.
type Builder struct {
	name  string
	steps []Step
	err   error
}

// NewBuilder starts a plan with the given name.
func NewBuilder(name string) *Builder {
	return &Builder{name: name}
}

func (b *Builder) add(s Step) Handle {
	h := Handle(len(b.steps))
	b.steps = append(b.steps, s)
	return h
}

func (b *Builder) checkRefs(stepName string, vals map[string]Value) {
	if b.err != nil {
		return
	}
	own := Handle(len(b.steps))
	for arg, v := range vals {
		if v.IsRef() && (v.Ref < 0 || v.Ref >= own) {
			b.err = fmt.Errorf("step %q arg %q references step %d, which does not precede it", stepName, arg, v.Ref)
			return
		}
	}
}

// InvokeTool appends a broker tool invocation.
func (b *Builder) InvokeTool(name, tool string, args map[string]Value) Handle {
	b.checkRefs(name, args)
	return b.add(Step{Kind: KindTool, Name: name, Tool: tool, Args: args})
}

// InvokeToolPair appends two argument-free tool invocations that run
// concurrently. The step output is a map keyed by tool name.
func (b *Builder) InvokeToolPair(name, toolA, toolB string) Handle {
	return b.add(Step{Kind: KindPair, Name: name, PairTools: []string{toolA, toolB}})
}

// Transform appends an in-process computation over earlier outputs.
func (b *Builder) Transform(name string, fn TransformFunc, args map[string]Value) Handle {
	b.checkRefs(name, args)
	return b.add(Step{Kind: KindTransform, Name: name, Fn: fn, Args: args})
}

// Summarize appends an LLM summary step over earlier outputs.
func (b *Builder) Summarize(name, task string, inputs map[string]Value) Handle {
	b.checkRefs(name, inputs)
	return b.add(Step{Kind: KindSummary, Name: name, Task: task, Inputs: inputs})
}

// Build finalizes the plan with final as the step whose output becomes the
// turn's result.
func (b *Builder) Build(final Handle) (*Plan, error) {
	if b.err != nil {
		return nil, b.err
	}
	if len(b.steps) == 0 {
		return nil, fmt.Errorf("plan %q has no steps", b.name)
	}
	if final < 0 || int(final) >= len(b.steps) {
		return nil, fmt.Errorf("plan %q final handle %d out of range", b.name, final)
	}
	return &Plan{Name: b.name, Steps: b.steps, Final: final}, nil
}
