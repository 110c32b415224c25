package sorters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/saviopoovathingal/SU2/readfiles"
)

func testMesh() (sm *readfiles.SurfaceMesh) {
	var (
		numNodes = 10
		vx       = make([]float64, numNodes)
		vy       = make([]float64, numNodes)
		vz       = make([]float64, numNodes)
	)
	for i := 0; i < numNodes; i++ {
		vx[i] = float64(i)
		vy[i] = 2 * float64(i)
		vz[i] = 3 * float64(i)
	}
	sm = &readfiles.SurfaceMesh{
		NDim:     3,
		NumNodes: numNodes,
		VX:       mat.NewVecDense(numNodes, vx),
		VY:       mat.NewVecDense(numNodes, vy),
		VZ:       mat.NewVecDense(numNodes, vz),
		Tris:     [][3]int{{0, 1, 2}, {2, 3, 4}, {4, 5, 6}},
		Quads:    [][4]int{{6, 7, 8, 9}},
	}
	return
}

func TestSurfaceDistribution(t *testing.T) {
	var (
		sm       = testMesh()
		NumRanks = 3
		// Tris to ranks 0,1,2 and the quad to rank 1
		sd = NewSurfaceDistribution(sm, NumRanks, []int{0, 1, 2, 1})
	)
	{ // Element conservation across ranks
		totalTris, totalQuads := 0, 0
		for rank := 0; rank < NumRanks; rank++ {
			ds := sd.RankSorter(rank)
			totalTris += ds.ElemCount(Triangle)
			totalQuads += ds.ElemCount(Quadrilateral)
		}
		assert.Equal(t, len(sm.Tris), totalTris)
		assert.Equal(t, len(sm.Quads), totalQuads)
		assert.Equal(t, 1, sd.RankSorter(1).ElemCount(Quadrilateral))
	}
	{ // Connectivity is 1-based global node IDs
		ds := sd.RankSorter(0)
		require.Equal(t, 1, ds.ElemCount(Triangle))
		assert.Equal(t, 1, ds.Connectivity(Triangle, 0, 0))
		assert.Equal(t, 2, ds.Connectivity(Triangle, 0, 1))
		assert.Equal(t, 3, ds.Connectivity(Triangle, 0, 2))
	}
	{ // FindOwner is identical no matter which rank asks
		for node := 0; node < sm.NumNodes; node++ {
			owner := sd.RankSorter(0).FindOwner(node)
			for rank := 1; rank < NumRanks; rank++ {
				assert.Equal(t, owner, sd.RankSorter(rank).FindOwner(node))
			}
		}
	}
	{ // Each rank's field data covers exactly its node range
		for rank := 0; rank < NumRanks; rank++ {
			var (
				ds         = sd.RankSorter(rank)
				begin, end = sd.PM.NodeRange(rank)
			)
			for node := begin; node < end; node++ {
				local := node - ds.NodeBegin(rank)
				assert.Equal(t, float64(node), ds.FieldValue(0, local))
				assert.Equal(t, 2*float64(node), ds.FieldValue(1, local))
				assert.Equal(t, 3*float64(node), ds.FieldValue(2, local))
			}
			assert.Panics(t, func() { ds.FieldValue(0, end-begin) })
		}
	}
	{ // Assignment length must match the element count
		assert.Panics(t, func() { NewSurfaceDistribution(sm, 2, []int{0, 1}) })
	}
}

func TestElemKind(t *testing.T) {
	assert.Equal(t, 3, Triangle.NumCorners())
	assert.Equal(t, 4, Quadrilateral.NumCorners())
	assert.Equal(t, "Triangle", Triangle.String())
	assert.Equal(t, "Quadrilateral", Quadrilateral.String())
}
