package plan

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"llm-trading-agent/internal/logger"
	"llm-trading-agent/internal/trace"
)

// Run states.
const (
	StateRunning  = "RUNNING"
	StateComplete = "COMPLETE"
	StateFailed   = "FAILED"
)

// Invoker executes named broker tools with resolved literal arguments.
type Invoker interface {
	Invoke(ctx context.Context, tool string, args map[string]any) (any, error)
}

// Summarizer renders structured step outputs as conversational text.
type Summarizer interface {
	Summarize(ctx context.Context, task string, inputs any) (string, error)
}

// Run records one execution of a plan. Outputs is parallel to the plan's
// steps; entries past the failure point stay nil.
type Run struct {
	Plan          *Plan
	State         string
	Outputs       []any
	FailedStep    int
	FailureReason string
	Err           error
}

// Final returns the designated final output, nil unless the run completed.
func (r *Run) Final() any {
	if r.State != StateComplete {
		return nil
	}
	return r.Outputs[r.Plan.Final]
}

// Execute runs the plan's steps strictly in order, failing fast on the first
// error. No step is retried.
func Execute(ctx context.Context, p *Plan, inv Invoker, sum Summarizer) *Run {
	ctx, span := trace.StartSpan(ctx, "plan."+p.Name)
	defer span.End()

	run := &Run{Plan: p, State: StateRunning, Outputs: make([]any, len(p.Steps)), FailedStep: -1}

	for i, step := range p.Steps {
		out, err := executeStep(ctx, run, step, inv, sum)
		if err != nil {
			run.State = StateFailed
			run.FailedStep = i
			run.FailureReason = fmt.Sprintf("step %q failed", step.Name)
			run.Err = err
			logger.ErrorWithErr(ctx, "Plan step failed", err, "plan", p.Name, "step", step.Name)
			return run
		}
		run.Outputs[i] = out
		logger.Debug(ctx, "Plan step complete", "plan", p.Name, "step", step.Name)
	}

	run.State = StateComplete
	return run
}

func executeStep(ctx context.Context, run *Run, step Step, inv Invoker, sum Summarizer) (any, error) {
	ctx, span := trace.StartSpan(ctx, "step."+step.Name)
	defer span.End()

	switch step.Kind {
	case KindTool:
		args, err := resolveArgs(run, step.Args)
		if err != nil {
			return nil, err
		}
		return inv.Invoke(ctx, step.Tool, args)

	case KindPair:
		outs := make([]any, len(step.PairTools))
		g, gctx := errgroup.WithContext(ctx)
		for i, tool := range step.PairTools {
			i, tool := i, tool
			g.Go(func() error {
				out, err := inv.Invoke(gctx, tool, nil)
				if err != nil {
					return err
				}
				outs[i] = out
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		paired := make(map[string]any, len(step.PairTools))
		for i, tool := range step.PairTools {
			paired[tool] = outs[i]
		}
		return paired, nil

	case KindTransform:
		args, err := resolveArgs(run, step.Args)
		if err != nil {
			return nil, err
		}
		return step.Fn(args)

	case KindSummary:
		inputs, err := resolveArgs(run, step.Inputs)
		if err != nil {
			return nil, err
		}
		return sum.Summarize(ctx, step.Task, inputs)

	default:
		return nil, fmt.Errorf("unknown step kind %q", step.Kind)
	}
}

func resolveArgs(run *Run, vals map[string]Value) (map[string]any, error) {
	out := make(map[string]any, len(vals))
	for name, v := range vals {
		resolved, err := resolveValue(run, v)
		if err != nil {
			return nil, fmt.Errorf("resolve arg %q: %w", name, err)
		}
		out[name] = resolved
	}
	return out, nil
}

// resolveValue materializes a step input. Field references marshal the source
// output and address into it with a gjson path, so any JSON-shaped output is
// addressable regardless of its Go type.
func resolveValue(run *Run, v Value) (any, error) {
	if !v.IsRef() {
		return v.Literal, nil
	}
	src := run.Outputs[v.Ref]
	if v.Path == "" {
		return src, nil
	}
	b, err := json.Marshal(src)
	if err != nil {
		return nil, fmt.Errorf("marshal step %d output: %w", v.Ref, err)
	}
	res := gjson.GetBytes(b, v.Path)
	if !res.Exists() {
		return nil, fmt.Errorf("path %q not present in step %d output", v.Path, v.Ref)
	}
	return res.Value(), nil
}
