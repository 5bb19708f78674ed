package graphcache_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hidet-go/hidet/dtype"
	"github.com/hidet-go/hidet/frontend"
	"github.com/hidet-go/hidet/graph"
	"github.com/hidet-go/hidet/graph/passes"
	"github.com/hidet-go/hidet/graphcache"
	"github.com/stretchr/testify/require"
)

func defaultKey() graphcache.FingerprintKey {
	return graphcache.FingerprintKey{ModelName: "m", BatchSize: 1, Context: passes.NewContext()}
}

func buildGraph(t *testing.T) *graph.FlowGraph {
	t.Helper()
	a := graph.NewInput(dtype.Float32, []int{8})
	b := graph.NewInput(dtype.Float32, []int{8})
	sum, err := frontend.Add(a, b)
	require.NoError(t, err)
	out, err := frontend.Relu(sum)
	require.NoError(t, err)
	return graph.New([]*graph.Tensor{a, b}, []*graph.Tensor{out})
}

// TestComputeFingerprintDeterministic checks that retracing the same
// shapes yields an identical fingerprint, and a different shape doesn't.
func TestComputeFingerprintDeterministic(t *testing.T) {
	key := defaultKey()
	g1 := buildGraph(t)
	g2 := buildGraph(t)
	require.Equal(t, graphcache.ComputeFingerprint(g1, key), graphcache.ComputeFingerprint(g2, key))

	a := graph.NewInput(dtype.Float32, []int{16})
	b := graph.NewInput(dtype.Float32, []int{16})
	sum, err := frontend.Add(a, b)
	require.NoError(t, err)
	out, err := frontend.Relu(sum)
	require.NoError(t, err)
	g3 := graph.New([]*graph.Tensor{a, b}, []*graph.Tensor{out})

	require.NotEqual(t, graphcache.ComputeFingerprint(g1, key), graphcache.ComputeFingerprint(g3, key))
}

// TestComputeFingerprintDistinguishesConfig verifies two structurally
// identical graphs produce different fingerprints when model name,
// batch size, or PassContext settings differ, per spec.md §4.9/§6's
// fingerprint key (model_name, batch_size, precision, reduce_precision,
// mma_kind, parallel_k, space_level).
func TestComputeFingerprintDistinguishesConfig(t *testing.T) {
	g := buildGraph(t)
	base := defaultKey()
	baseFp := graphcache.ComputeFingerprint(g, base)

	byModel := base
	byModel.ModelName = "other-model"
	require.NotEqual(t, baseFp, graphcache.ComputeFingerprint(g, byModel))

	byBatch := base
	byBatch.BatchSize = 8
	require.NotEqual(t, baseFp, graphcache.ComputeFingerprint(g, byBatch))

	byPrecision := base
	byPrecision.Context = passes.NewContext(passes.WithPrecision(passes.PrecisionF32))
	require.NotEqual(t, baseFp, graphcache.ComputeFingerprint(g, byPrecision))

	byMMA := base
	byMMA.Context = passes.NewContext(passes.WithMMA(passes.MMAWmma))
	require.NotEqual(t, baseFp, graphcache.ComputeFingerprint(g, byMMA))

	byParallelK := base
	byParallelK.Context = passes.NewContext(passes.WithParallelK(passes.ParallelK{Mode: passes.ParallelKDefault}))
	require.NotEqual(t, baseFp, graphcache.ComputeFingerprint(g, byParallelK))

	bySpaceLevel := base
	bySpaceLevel.Context = passes.NewContext(passes.WithSpaceLevel(2))
	require.NotEqual(t, baseFp, graphcache.ComputeFingerprint(g, bySpaceLevel))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	root := t.TempDir()
	g := buildGraph(t)
	key := defaultKey()
	fp := graphcache.ComputeFingerprint(g, key)

	_, hit, err := graphcache.Load(root, fp)
	require.NoError(t, err)
	require.False(t, hit, "nothing saved yet")

	require.NoError(t, graphcache.Save(root, fp, g))

	loaded, hit, err := graphcache.Load(root, fp)
	require.NoError(t, err)
	require.True(t, hit)
	require.Equal(t, graphcache.ComputeFingerprint(g, key), graphcache.ComputeFingerprint(loaded, key))
	require.Len(t, loaded.Nodes, len(g.Nodes))
	require.Nil(t, loaded.Nodes[0].Task, "a cache hit must not fabricate a Task")
}

// TestSaveLeavesNoTempFile verifies the write-temp-then-rename pattern:
// after a successful Save only the final file remains.
func TestSaveLeavesNoTempFile(t *testing.T) {
	root := t.TempDir()
	g := buildGraph(t)
	fp := graphcache.ComputeFingerprint(g, defaultKey())

	require.NoError(t, graphcache.Save(root, fp, g))

	finalPath := graphcache.Path(root, fp)
	_, err := os.Stat(finalPath)
	require.NoError(t, err)

	_, err = os.Stat(finalPath + ".tmp")
	require.True(t, os.IsNotExist(err), "no .tmp sibling should survive a successful Save")
}

func TestLoadMissingReturnsNoHit(t *testing.T) {
	root := t.TempDir()
	g, hit, err := graphcache.Load(root, graphcache.Fingerprint("nonexistent"))
	require.NoError(t, err)
	require.False(t, hit)
	require.Nil(t, g)
	require.NoDirExists(t, filepath.Join(root, "graphs"))
}
