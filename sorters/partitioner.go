package sorters

import (
	"fmt"
	"log"
	"math"

	metis "github.com/notargets/go-metis"

	"github.com/saviopoovathingal/SU2/readfiles"
	"github.com/saviopoovathingal/SU2/utils"
)

// PartitionConfig holds configuration for element partitioning
type PartitionConfig struct {
	NumPartitions    int32
	ImbalanceFactor  float32 // e.g., 1.05 for 5% imbalance
	UseEdgeWeights   bool
	UseVertexWeights bool
	Objective        string // "cut" or "vol"
}

// DefaultPartitionConfig returns default partitioning configuration
func DefaultPartitionConfig(nparts int32) *PartitionConfig {
	return &PartitionConfig{
		NumPartitions:    nparts,
		ImbalanceFactor:  1.05,
		UseEdgeWeights:   true,
		UseVertexWeights: true,
		Objective:        "vol", // minimize communication volume
	}
}

// LinearPartition assigns contiguous element ranges to ranks, elements
// ordered tris first then quads
func LinearPartition(NumElements, NumRanks int) (elemToRank []int) {
	var (
		pm = utils.NewPartitionMap(NumRanks, NumElements)
	)
	elemToRank = make([]int, NumElements)
	for rank := 0; rank < NumRanks; rank++ {
		begin, end := pm.NodeRange(rank)
		for k := begin; k < end; k++ {
			elemToRank[k] = rank
		}
	}
	return
}

// SurfacePartitioner distributes surface elements across ranks by
// partitioning the dual graph (elements adjacent through shared edges)
type SurfacePartitioner struct {
	mesh   *readfiles.SurfaceMesh
	config *PartitionConfig

	// Cost models
	computeCostModel func(kind ElemKind) int32
	commCostModel    func(sharedVertices int) int32
}

func NewSurfacePartitioner(mesh *readfiles.SurfaceMesh, config *PartitionConfig) *SurfacePartitioner {
	sp := &SurfacePartitioner{
		mesh:   mesh,
		config: config,
	}

	// A quad becomes two output triangles, so it carries double weight
	sp.computeCostModel = func(kind ElemKind) int32 {
		if kind == Quadrilateral {
			return 2
		}
		return 1
	}

	// Communication cost proportional to shared edge DOFs
	sp.commCostModel = func(sharedVertices int) int32 {
		return int32(sharedVertices)
	}

	return sp
}

// Partition computes the element->rank assignment with METIS
func (sp *SurfacePartitioner) Partition() (elemToRank []int, err error) {
	ne := sp.mesh.NumElements()
	if sp.config.NumPartitions < 2 {
		return make([]int, ne), nil
	}
	log.Printf("Partitioning surface mesh with %d elements into %d parts",
		ne, sp.config.NumPartitions)

	xadj, adjncy, vwgt, adjwgt := sp.buildMetisGraph()

	opts := make([]int32, metis.NoOptions)
	if err = metis.SetDefaultOptions(opts); err != nil {
		return nil, fmt.Errorf("failed to set METIS options: %w", err)
	}
	if sp.config.Objective == "vol" {
		opts[metis.OptionObjType] = metis.ObjTypeVol
	} else {
		opts[metis.OptionObjType] = metis.ObjTypeCut
	}

	ubvec := []float32{sp.config.ImbalanceFactor}

	var vwgtPtr, adjwgtPtr []int32
	if sp.config.UseVertexWeights {
		vwgtPtr = vwgt
	}
	if sp.config.UseEdgeWeights {
		adjwgtPtr = adjwgt
	}

	part, objval, err := metis.PartGraphKwayWeighted(
		xadj, adjncy, vwgtPtr, adjwgtPtr,
		sp.config.NumPartitions, nil, ubvec, opts,
	)
	if err != nil {
		return nil, fmt.Errorf("METIS partitioning failed: %w", err)
	}

	elemToRank = make([]int, ne)
	for i := 0; i < ne; i++ {
		elemToRank[i] = int(part[i])
	}

	sp.analyzePartition(elemToRank, objval)

	return elemToRank, nil
}

// elemCorners returns the corner node list of combined element index i
// (tris first, then quads)
func (sp *SurfacePartitioner) elemCorners(i int) (corners []int, kind ElemKind) {
	if i < len(sp.mesh.Tris) {
		tri := sp.mesh.Tris[i]
		return tri[:], Triangle
	}
	quad := sp.mesh.Quads[i-len(sp.mesh.Tris)]
	return quad[:], Quadrilateral
}

// buildMetisGraph converts the element dual graph to METIS CSR format.
// Two elements are adjacent when they share a mesh edge.
func (sp *SurfacePartitioner) buildMetisGraph() (xadj, adjncy, vwgt, adjwgt []int32) {
	ne := sp.mesh.NumElements()

	if sp.config.UseVertexWeights {
		vwgt = make([]int32, ne)
		for i := 0; i < ne; i++ {
			_, kind := sp.elemCorners(i)
			vwgt[i] = sp.computeCostModel(kind)
		}
	}

	// Collect the elements bordering each undirected mesh edge
	edgeElems := make(map[[2]int][]int)
	for i := 0; i < ne; i++ {
		corners, _ := sp.elemCorners(i)
		for c := range corners {
			a, b := corners[c], corners[(c+1)%len(corners)]
			if a > b {
				a, b = b, a
			}
			edgeElems[[2]int{a, b}] = append(edgeElems[[2]int{a, b}], i)
		}
	}

	neighbors := make([][]int, ne)
	for _, elems := range edgeElems {
		for _, e1 := range elems {
			for _, e2 := range elems {
				if e1 != e2 {
					neighbors[e1] = append(neighbors[e1], e2)
				}
			}
		}
	}

	xadj = make([]int32, ne+1)
	adjncy = []int32{}
	adjwgt = []int32{}

	xadj[0] = 0
	for elem := 0; elem < ne; elem++ {
		for _, neighbor := range neighbors[elem] {
			adjncy = append(adjncy, int32(neighbor))
			if sp.config.UseEdgeWeights {
				adjwgt = append(adjwgt, sp.commCostModel(2)) // Shared edge has 2 vertices
			}
		}
		xadj[elem+1] = int32(len(adjncy))
	}

	return xadj, adjncy, vwgt, adjwgt
}

// analyzePartition computes and reports partition quality metrics
func (sp *SurfacePartitioner) analyzePartition(elemToRank []int, objval int32) {
	var (
		nparts = int(sp.config.NumPartitions)
		load   = make([]int64, nparts)
	)
	for i := 0; i < sp.mesh.NumElements(); i++ {
		_, kind := sp.elemCorners(i)
		load[elemToRank[i]] += int64(sp.computeCostModel(kind))
	}
	avgLoad := float64(0)
	maxLoad := int64(0)
	minLoad := int64(math.MaxInt64)
	for _, l := range load {
		avgLoad += float64(l)
		if l > maxLoad {
			maxLoad = l
		}
		if l < minLoad {
			minLoad = l
		}
	}
	avgLoad /= float64(nparts)
	log.Printf("Partition quality: objval=%d, load min/avg/max = %d/%.1f/%d (imbalance %.3f)",
		objval, minLoad, avgLoad, maxLoad, float64(maxLoad)/avgLoad)
}
