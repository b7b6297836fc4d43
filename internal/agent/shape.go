package agent

import "strings"

// ShapeAnswer derives the final answer from the trace's dependency
// graph. Step references form edges; the answer is the terminal value
// of each maximal chain, in step order. A fully chained plan therefore
// yields one value, and independent steps each contribute their own.
func ShapeAnswer(steps []Step, trace ExecutionTrace) FinalAnswer {
	// Last recorded status wins per step; fallback entries share the
	// number of the step they substitute for.
	status := make(map[int]StepStatus)
	result := make(map[int]string)
	for _, entry := range trace {
		status[entry.Step] = entry.Status
		if entry.Status == StepOK {
			result[entry.Step] = entry.Result
		}
	}

	// A step is consumed when a succeeding ok step references it.
	consumed := make(map[int]bool)
	for _, step := range steps {
		if status[step.Number] != StepOK {
			continue
		}
		for _, ref := range step.References() {
			consumed[ref] = true
		}
	}

	var answer FinalAnswer
	for _, step := range steps {
		if status[step.Number] != StepOK || consumed[step.Number] {
			continue
		}
		answer.Values = append(answer.Values, result[step.Number])
	}
	answer.Text = strings.Join(answer.Values, ", ")
	return answer
}

// LongestChain returns the length of the longest dependency chain among
// the plan's steps. Used for trace diagnostics.
func LongestChain(steps []Step) int {
	depth := make(map[int]int, len(steps))
	longest := 0
	for _, step := range steps {
		d := 1
		for _, ref := range step.References() {
			if depth[ref]+1 > d {
				d = depth[ref] + 1
			}
		}
		depth[step.Number] = d
		if d > longest {
			longest = d
		}
	}
	return longest
}
