package passes

import (
	"log/slog"

	"github.com/pkg/errors"

	"github.com/hidet-go/hidet/compute"
	"github.com/hidet-go/hidet/graph"
	"github.com/hidet-go/hidet/herrors"
	"github.com/hidet-go/hidet/task"
)

// FuseProloguePass folds an injective, single-output, single-use
// producer operator into its consumer by inlining the producer's
// algebraic expression as a Prologue (spec.md §4.2). It iterates to a
// fixed point: repeatedly scanning operators in reverse topological
// order and fusing the first eligible (consumer, producer) pair found,
// until a full scan finds none. Grounded line-for-line on hidet's
// tos/transforms/fuse_prologue.py.
func FuseProloguePass(g *graph.FlowGraph, pc *PassContext) (*graph.FlowGraph, error) {
	g = graph.Clone(g)

	for {
		usage := graph.AnalyzeUsage(g)
		fused, err := tryFusePrologue(g, usage, pc)
		if err != nil {
			return nil, err
		}
		if !fused {
			break
		}
		g.UpdateNodes()
	}
	return g, nil
}

func tryFusePrologue(g *graph.FlowGraph, usage map[*graph.Tensor][]graph.Use, pc *PassContext) (bool, error) {
	for i := len(g.Nodes) - 1; i >= 0; i-- {
		uOp := g.Nodes[i]
		if graph.IsBarrier(uOp) || pc.ShouldSkip(uOp) {
			continue
		}
		uTask := uOp.Task

		for pos, uInput := range uOp.Inputs {
			if len(usage[uInput]) > 1 {
				continue // fusing would duplicate the producer's work
			}
			vOp := uInput.Producer
			if vOp == nil {
				continue // graph input, nothing to fuse
			}
			if graph.IsBarrier(vOp) {
				continue
			}
			if len(vOp.Outputs) != 1 {
				continue
			}
			vTask := vOp.Task
			if !task.IsInjective(vTask) {
				continue
			}

			uTaskInput := uTask.Parameters[pos]
			if len(vTask.Prologues)+len(vTask.Epilogues) > 0 {
				continue // multi-step fusion subsumes this case
			}
			vTaskOutput := vTask.Outputs[0]

			newTask, err := buildPrologueFusedTask(uTask, uTaskInput, vTask, vTaskOutput)
			if err != nil {
				return false, err
			}
			newTask.Name = vTask.Name + "_" + uTask.Name

			numOrigInputs := len(uOp.Inputs)
			updateParamsForFusion(newTask, uOp, uInput, uTaskInput, vOp.Inputs, vTask.Inputs, numOrigInputs)

			uOp.Task = newTask
			if pc.Verbose {
				slog.Info("fused prologue", "producer", vOp.Name, "consumer", uOp.Name)
			}

			removeNode(g, vOp)
			return true, nil
		}
	}
	return false, nil
}

// buildPrologueFusedTask implements spec.md §4.2's three-way dispatch:
// the matched TensorNode is either an original task input (case 1), an
// extra-input of an existing prologue (case 2), or an extra-input of an
// existing epilogue (case 3, symmetric).
func buildPrologueFusedTask(uTask *task.Task, uTaskInput *compute.TensorNode, vTask *task.Task, vTaskOutput *compute.TensorNode) (*task.Task, error) {
	gc := vTaskOutput.Compute
	if gc == nil {
		return nil, herrors.New(herrors.KindFusion, "fuse_prologue", errors.Errorf("injective task %q output has no GridCompute", vTask.Name))
	}

	if containsTensorNode(uTask.Inputs, uTaskInput) {
		t := uTask.Copy()
		t.Prologues[uTaskInput] = &task.Prologue{
			ExtraInputs: append([]*compute.TensorNode(nil), vTask.Inputs...),
			Indices:     gc.Axes,
			Value:       gc.Value,
		}
		return t, nil
	}

	for origInput, existing := range uTask.Prologues {
		if !containsTensorNode(existing.ExtraInputs, uTaskInput) {
			continue
		}
		value := inlineIntoValue(existing.Value, uTaskInput, gc)
		filtered := filterTensorNode(existing.ExtraInputs, uTaskInput)
		t := uTask.Copy()
		t.Prologues[origInput] = &task.Prologue{
			ExtraInputs: append(filtered, vTask.Inputs...),
			Indices:     existing.Indices,
			Value:       value,
		}
		return t, nil
	}

	for origOutput, existing := range uTask.Epilogues {
		if !containsTensorNode(existing.ExtraInputs, uTaskInput) {
			continue
		}
		value := inlineIntoValue(existing.Value, uTaskInput, gc)
		filtered := filterTensorNode(existing.ExtraInputs, uTaskInput)
		t := uTask.Copy()
		t.Epilogues[origOutput] = &task.Epilogue{
			ExtraInputs: append(filtered, vTask.Inputs...),
			Indices:     existing.Indices,
			OrigValue:   existing.OrigValue,
			Value:       value,
			OutIndices:  existing.OutIndices,
			OutTensor:   existing.OutTensor,
		}
		return t, nil
	}

	return nil, herrors.New(herrors.KindFusion, "fuse_prologue", errors.Errorf("input %q has not been used in task %q", uTaskInput.Name, uTask.Name))
}

// inlineIntoValue replaces every compute.Read of base within value with
// the producer's GridCompute evaluated at that read's own indices
// (spec.md §4.2 case 2/3: "find every TensorElement whose base is this
// extra-input; replace it with V's GridCompute value with axes
// substituted by the element's index expressions").
func inlineIntoValue(value compute.Value, base *compute.TensorNode, gc *compute.GridCompute) compute.Value {
	var reads []*compute.Read
	compute.CollectReads(value, base, &reads)
	if len(reads) == 0 {
		return value
	}
	rmap := make(map[compute.Value]compute.Value, len(reads))
	for _, r := range reads {
		rmap[r] = compute.InlineAt(gc, r.Indices)
	}
	return compute.Substitute(value, rmap)
}

// updateParamsForFusion applies spec.md §4.2's update_params: drop
// opInput from op.Inputs and its TensorNode from the task's original
// input-parameter prefix, then append the producer's inputs to both,
// finally reassembling task.Parameters as inputs-then-outputs.
func updateParamsForFusion(t *task.Task, op *graph.Operator, opInput *graph.Tensor, taskInput *compute.TensorNode, extraOpInputs []*graph.Tensor, extraTaskInputs []*compute.TensorNode, numOrigInputs int) {
	paramInputs := append([]*compute.TensorNode(nil), t.Parameters[:numOrigInputs]...)
	paramOutputs := append([]*compute.TensorNode(nil), t.Parameters[numOrigInputs:]...)

	op.Inputs = filterTensor(op.Inputs, opInput)
	paramInputs = filterTensorNode(paramInputs, taskInput)

	op.Inputs = append(op.Inputs, extraOpInputs...)
	paramInputs = append(paramInputs, extraTaskInputs...)

	t.Parameters = append(paramInputs, paramOutputs...)
}

func removeNode(g *graph.FlowGraph, op *graph.Operator) {
	for i, n := range g.Nodes {
		if n == op {
			g.Nodes = append(g.Nodes[:i], g.Nodes[i+1:]...)
			return
		}
	}
}

func containsTensorNode(list []*compute.TensorNode, target *compute.TensorNode) bool {
	for _, n := range list {
		if n == target {
			return true
		}
	}
	return false
}

func filterTensorNode(list []*compute.TensorNode, exclude *compute.TensorNode) []*compute.TensorNode {
	out := make([]*compute.TensorNode, 0, len(list))
	for _, n := range list {
		if n != exclude {
			out = append(out, n)
		}
	}
	return out
}

func filterTensor(list []*graph.Tensor, exclude *graph.Tensor) []*graph.Tensor {
	out := make([]*graph.Tensor, 0, len(list))
	for _, t := range list {
		if t != exclude {
			out = append(out, t)
		}
	}
	return out
}
