package tools

import (
	"context"
	"fmt"
	"strings"
)

// Step is one entry of a tool chain request
type Step struct {
	Name string `json:"name"`
	Args Args   `json:"args"`
}

// ChainOutcome aggregates chain execution for the final model pass
type ChainOutcome struct {
	Steps   []Result `json:"steps"`
	Context string   `json:"context"`
}

// RunChain executes steps sequentially, appending each result to a
// growing context block. A failed step records its error string and the
// chain continues; later steps and the final model pass see the error.
func (d *Dispatcher) RunChain(ctx context.Context, steps []Step) ChainOutcome {
	outcome := ChainOutcome{}
	var sb strings.Builder

	for i, step := range steps {
		kind, ok := ParseKind(step.Name)
		if !ok {
			result := Result{
				Tool: Kind(step.Name),
				Err:  NewError(ErrToolNotFound, "unknown tool %q", step.Name).Error(),
			}
			outcome.Steps = append(outcome.Steps, result)
			fmt.Fprintf(&sb, "--- step %d (%s) failed: %s\n", i+1, step.Name, result.Err)
			continue
		}

		result, err := d.Run(ctx, kind, step.Args)
		outcome.Steps = append(outcome.Steps, result)
		if err != nil {
			fmt.Fprintf(&sb, "--- step %d (%s) failed: %s\n", i+1, kind, result.Err)
			continue
		}
		fmt.Fprintf(&sb, "--- step %d (%s):\n%s\n", i+1, kind, result.Output)
	}

	outcome.Context = sb.String()
	return outcome
}
