package llm

import (
	"context"
	"encoding/json"

	"llm-trading-agent/internal/trace"
)

const summarizeSystem = `You are a concise assistant for a stock trading agent.
You will receive a task and JSON data gathered from broker tools.
Answer the task in plain conversational English using only the data given.
Never invent numbers. Keep it short.`

// Summarize turns structured tool output into conversational text for the
// final plan step.
func Summarize(ctx context.Context, p Provider, task string, inputs any) (string, error) {
	ctx, span := trace.StartSpan(ctx, "llm.Summarize")
	defer span.End()

	b, err := json.Marshal(inputs)
	if err != nil {
		return "", err
	}
	return p.Complete(ctx, summarizeSystem, "Task: "+task+"\nData: "+string(b))
}
