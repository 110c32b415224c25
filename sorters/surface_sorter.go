package sorters

import (
	"fmt"

	"github.com/saviopoovathingal/SU2/readfiles"
	"github.com/saviopoovathingal/SU2/utils"
)

// SurfaceDistribution shards a serial surface mesh across NumRanks ranks:
// node coordinates by contiguous PartitionMap ranges, elements by the
// supplied element->rank assignment (tris first, then quads, in mesh
// order). The build happens once, before the ranks launch; afterwards each
// rank only touches its own SurfaceSorter.
type SurfaceDistribution struct {
	PM       *utils.PartitionMap
	NumRanks int
	sorters  []*SurfaceSorter
}

func NewSurfaceDistribution(sm *readfiles.SurfaceMesh, NumRanks int,
	elemToRank []int) (sd *SurfaceDistribution) {
	if len(elemToRank) != sm.NumElements() {
		panic(fmt.Sprintf("element assignment length %d does not match element count %d",
			len(elemToRank), sm.NumElements()))
	}
	sd = &SurfaceDistribution{
		PM:       utils.NewPartitionMap(NumRanks, sm.NumNodes),
		NumRanks: NumRanks,
		sorters:  make([]*SurfaceSorter, NumRanks),
	}
	for rank := 0; rank < NumRanks; rank++ {
		sd.sorters[rank] = newSurfaceSorter(sm, sd.PM, rank)
	}
	for i, tri := range sm.Tris {
		rank := elemToRank[i]
		sd.sorters[rank].tris = append(sd.sorters[rank].tris, tri)
	}
	for i, quad := range sm.Quads {
		rank := elemToRank[len(sm.Tris)+i]
		sd.sorters[rank].quads = append(sd.sorters[rank].quads, quad)
	}
	return
}

// RankSorter returns rank's private view of the distribution
func (sd *SurfaceDistribution) RankSorter(rank int) (ds *SurfaceSorter) {
	return sd.sorters[rank]
}

// SurfaceSorter is the concrete per-rank DataSorter. Field data for the
// rank's node range is copied out at build time, so ranks never read each
// other's storage during the gather.
type SurfaceSorter struct {
	rank      int
	pm        *utils.PartitionMap
	tris      [][3]int // Locally owned elements, 0-based global node IDs
	quads     [][4]int
	fieldData [][]float64 // [field][localNode] for the owned node range
}

func newSurfaceSorter(sm *readfiles.SurfaceMesh, pm *utils.PartitionMap,
	rank int) (ds *SurfaceSorter) {
	var (
		begin, end = pm.NodeRange(rank)
		numFields  = 3 // x, y, z coordinates
	)
	ds = &SurfaceSorter{
		rank:      rank,
		pm:        pm,
		fieldData: make([][]float64, numFields),
	}
	for field := 0; field < numFields; field++ {
		ds.fieldData[field] = make([]float64, end-begin)
		for node := begin; node < end; node++ {
			ds.fieldData[field][node-begin] = sm.FieldValue(field, node)
		}
	}
	return
}

func (ds *SurfaceSorter) NodeBegin(rank int) (begin int) {
	return ds.pm.NodeBegin(rank)
}

func (ds *SurfaceSorter) FindOwner(globalNode int) (rank int) {
	return ds.pm.FindOwner(globalNode)
}

func (ds *SurfaceSorter) ElemCount(kind ElemKind) (count int) {
	switch kind {
	case Triangle:
		count = len(ds.tris)
	case Quadrilateral:
		count = len(ds.quads)
	}
	return
}

// Connectivity follows the mesh file convention of 1-based global node IDs
func (ds *SurfaceSorter) Connectivity(kind ElemKind, elem, corner int) (globalNode int) {
	switch kind {
	case Triangle:
		globalNode = ds.tris[elem][corner] + 1
	case Quadrilateral:
		globalNode = ds.quads[elem][corner] + 1
	default:
		panic(fmt.Sprintf("no connectivity for element kind %d", kind))
	}
	return
}

func (ds *SurfaceSorter) FieldValue(field, localNode int) (val float64) {
	if localNode < 0 || localNode >= len(ds.fieldData[field]) {
		panic(fmt.Sprintf("rank %d: local node %d outside owned range of %d nodes",
			ds.rank, localNode, len(ds.fieldData[field])))
	}
	return ds.fieldData[field][localNode]
}

func (ds *SurfaceSorter) NumFields() (n int) {
	return len(ds.fieldData)
}
