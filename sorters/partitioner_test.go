package sorters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinearPartition(t *testing.T) {
	for _, NumRanks := range []int{1, 2, 3, 7} {
		elemToRank := LinearPartition(20, NumRanks)
		require.Equal(t, 20, len(elemToRank))
		// Contiguous, monotonically non-decreasing assignment covering
		// every rank
		counts := make([]int, NumRanks)
		for i, rank := range elemToRank {
			counts[rank]++
			if i > 0 {
				assert.True(t, rank == elemToRank[i-1] || rank == elemToRank[i-1]+1)
			}
		}
		total := 0
		for _, n := range counts {
			assert.True(t, n > 0)
			total += n
		}
		assert.Equal(t, 20, total)
	}
}

func TestBuildMetisGraph(t *testing.T) {
	var (
		sm = testMesh() // Tris {0,1,2},{2,3,4},{4,5,6}, quad {6,7,8,9}
		sp = NewSurfacePartitioner(sm, DefaultPartitionConfig(2))
	)
	xadj, adjncy, vwgt, adjwgt := sp.buildMetisGraph()
	require.Equal(t, 5, len(xadj)) // 4 elements
	assert.Equal(t, len(adjncy), len(adjwgt))
	assert.Equal(t, int32(len(adjncy)), xadj[4])

	// The strip mesh only shares corner nodes, not edges, so the dual
	// graph has no adjacency; a quad sharing an edge must show up
	sm2 := testMesh()
	sm2.Tris = [][3]int{{0, 1, 2}, {1, 3, 2}} // Share edge (1,2)
	sm2.Quads = nil
	sp2 := NewSurfacePartitioner(sm2, DefaultPartitionConfig(2))
	xadj2, adjncy2, vwgt2, _ := sp2.buildMetisGraph()
	assert.Equal(t, []int32{0, 1, 2}, xadj2)
	assert.Equal(t, []int32{1, 0}, adjncy2)
	assert.Equal(t, []int32{1, 1}, vwgt2)

	// Quads weigh double: they become two output triangles
	assert.Equal(t, []int32{1, 1, 1, 2}, vwgt)
}

func TestPartitionSinglePart(t *testing.T) {
	// A single partition never calls METIS and assigns everything to rank 0
	sp := NewSurfacePartitioner(testMesh(), DefaultPartitionConfig(1))
	elemToRank, err := sp.Partition()
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 0, 0}, elemToRank)
}
