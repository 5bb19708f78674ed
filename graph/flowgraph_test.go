package graph_test

import (
	"testing"

	"github.com/hidet-go/hidet/dtype"
	"github.com/hidet-go/hidet/frontend"
	"github.com/hidet-go/hidet/graph"
	"github.com/stretchr/testify/require"
)

// TestUpdateNodesIdempotent checks spec.md §8's "re-running node-update
// yields the same node list" property.
func TestUpdateNodesIdempotent(t *testing.T) {
	a := graph.NewInput(dtype.Float32, []int{4})
	b := graph.NewInput(dtype.Float32, []int{4})
	sum, err := frontend.Add(a, b)
	require.NoError(t, err)

	g := graph.New([]*graph.Tensor{a, b}, []*graph.Tensor{sum})
	before := append([]*graph.Operator(nil), g.Nodes...)

	g.UpdateNodes()
	require.Equal(t, before, g.Nodes)
}

func TestValidateAcceptsWellFormedGraph(t *testing.T) {
	a := graph.NewInput(dtype.Float32, []int{4})
	b := graph.NewInput(dtype.Float32, []int{4})
	sum, err := frontend.Add(a, b)
	require.NoError(t, err)
	relu, err := frontend.Relu(sum)
	require.NoError(t, err)

	g := graph.New([]*graph.Tensor{a, b}, []*graph.Tensor{relu})
	require.NoError(t, g.Validate())
	require.Len(t, g.Nodes, 2)
}

func TestValidateDetectsUnusedIntermediate(t *testing.T) {
	a := graph.NewInput(dtype.Float32, []int{4})
	b := graph.NewInput(dtype.Float32, []int{4})
	sum, err := frontend.Add(a, b)
	require.NoError(t, err)
	relu, err := frontend.Relu(sum)
	require.NoError(t, err)

	// relu is reachable from Nodes but declared as neither an input nor
	// an output and has no consumer: its output carries zero uses.
	g := graph.New([]*graph.Tensor{a, b}, []*graph.Tensor{sum})
	g.Nodes = append(g.Nodes, relu.Producer)

	err = g.Validate()
	require.Error(t, err)
}
