package passes

import (
	"fmt"
	"log/slog"

	"github.com/hidet-go/hidet/compute"
	"github.com/hidet-go/hidet/graph"
	"github.com/hidet-go/hidet/herrors"
	"github.com/hidet-go/hidet/task"
)

// axisValues converts a GridCompute's bound axes into the Value slice an
// InverseMap.Forward expects, mirroring frontend's axesToIndices.
func axisValues(axes []*compute.Axis) []compute.Value {
	vals := make([]compute.Value, len(axes))
	for i, ax := range axes {
		vals[i] = ax
	}
	return vals
}

// FuseEpiloguePass is the mirror image of FuseProloguePass (spec.md
// §4.3): it looks for a producer op whose single output feeds exactly
// one consumer, where that consumer is itself injective, single-output,
// and not a barrier, and folds the consumer's algebraic expression into
// the producer as an Epilogue. Also iterated to a fixed point.
func FuseEpiloguePass(g *graph.FlowGraph, pc *PassContext) (*graph.FlowGraph, error) {
	g = graph.Clone(g)

	for {
		usage := graph.AnalyzeUsage(g)
		fused, err := tryFuseEpilogue(g, usage, pc)
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

func tryFuseEpilogue(g *graph.FlowGraph, usage map[*graph.Tensor][]graph.Use, pc *PassContext) (bool, error) {
	for i := len(g.Nodes) - 1; i >= 0; i-- {
		vOp := g.Nodes[i]
		if graph.IsBarrier(vOp) || pc.ShouldSkip(vOp) {
			continue
		}
		if len(vOp.Outputs) != 1 {
			continue
		}
		vTask := vOp.Task
		if !task.IsInjective(vTask) {
			continue
		}

		vOutput := vOp.Outputs[0]
		uses := usage[vOutput]
		if len(uses) != 1 || uses[0].Consumer == nil {
			continue // graph output, or fan-out: cannot fuse without duplicating work
		}
		uOp := uses[0].Consumer
		if graph.IsBarrier(uOp) || pc.ShouldSkip(uOp) {
			continue
		}
		uTask := uOp.Task
		if !task.IsInjective(uTask) {
			continue
		}
		if len(uTask.Prologues)+len(uTask.Epilogues) > 0 {
			continue
		}

		uTaskInput := uTask.Parameters[uses[0].InputPos]
		vTaskOutput := vTask.Outputs[0]
		gc := vTaskOutput.Compute
		if gc == nil {
			return false, herrors.New(herrors.KindFusion, "fuse_epilogue", fmt.Errorf("injective task %q output has no GridCompute", vTask.Name))
		}

		inv := uTask.Inverse[uTask.Outputs[0]]
		if inv == nil || inv.Forward == nil {
			continue // consumer has no well-defined inverse: cannot derive its output index tuple
		}

		placeholder := task.NewEpiloguePlaceholder(uTaskInput.Name)
		outIndices := inv.Forward(axisValues(gc.Axes))

		newVTask := vTask.Copy()
		newVTask.Epilogues[vTaskOutput] = &task.Epilogue{
			ExtraInputs: collectEpilogueExtraInputs(uTask, uTaskInput),
			Indices:     gc.Axes,
			OrigValue:   placeholder,
			Value:       substituteInputReadsWithPlaceholder(uTask, uTaskInput, placeholder),
			OutIndices:  outIndices,
			OutTensor:   uTask.Outputs[0],
		}
		newVTask.Outputs[0] = uTask.Outputs[0]
		newVTask.Name = vTask.Name + "_" + uTask.Name

		numOrigInputs := len(vOp.Inputs)
		extraOpInputs := filterTensor(uOp.Inputs, uOp.Inputs[uses[0].InputPos])
		extraTaskInputs := filterTensorNode(uTask.Inputs, uTaskInput)
		updateParamsForFusion(newVTask, vOp, nil, nil, extraOpInputs, extraTaskInputs, numOrigInputs)
		// updateParamsForFusion only splices the input-parameter prefix;
		// the trailing output parameter must be repointed at the fused
		// consumer's own output now that vOp produces it directly.
		newVTask.Parameters[len(newVTask.Parameters)-1] = uTask.Outputs[0]

		vOp.Task = newVTask
		vOp.Outputs[0] = uOp.Outputs[0]
		vOp.Outputs[0].Producer = vOp
		vOp.Outputs[0].OutputIndex = 0

		if pc.Verbose {
			slog.Info("fused epilogue", "producer", vOp.Name, "consumer", uOp.Name)
		}

		removeNode(g, uOp)
		return true, nil
	}
	return false, nil
}

// collectEpilogueExtraInputs is every task input of the consumer other
// than the one corresponding to the fused producer's output.
func collectEpilogueExtraInputs(uTask *task.Task, uTaskInput *compute.TensorNode) []*compute.TensorNode {
	return filterTensorNode(uTask.Inputs, uTaskInput)
}

// substituteInputReadsWithPlaceholder rewrites the consumer's single
// output GridCompute so that reads of uTaskInput become reads of the
// placeholder axis value standing in for "the value the producer just
// computed" (spec.md §4.3's "orig_value placeholder").
func substituteInputReadsWithPlaceholder(uTask *task.Task, uTaskInput *compute.TensorNode, placeholder *compute.Axis) compute.Value {
	gc := uTask.Outputs[0].Compute
	var reads []*compute.Read
	compute.CollectReads(gc.Value, uTaskInput, &reads)
	rmap := make(map[compute.Value]compute.Value, len(reads))
	for _, r := range reads {
		rmap[r] = placeholder
	}
	return compute.Substitute(gc.Value, rmap)
}
