package writers

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/saviopoovathingal/SU2/sorters"
	"github.com/saviopoovathingal/SU2/utils"
)

const STLFileExt = ".stl"

// quad2Tri splits a quadrilateral into two triangles after a fixed node
// order, assuming consistent winding of the quad's 4 corners. The pattern
// must be identical on every rank or cross-partition facets diverge.
var quad2Tri = []int{0, 1, 3, 1, 2, 3}

// STLWriter reconstructs a globally consistent triangulated surface from a
// mesh whose nodes and elements are partitioned across ranks, and emits one
// serial ASCII STL artifact on the master rank.
//
// The write proceeds in three strictly sequential phases on every rank:
//  1. resolve halo nodes - element corners owned by other ranks - and
//     exchange their field data with a two-phase sparse all-to-all,
//  2. flatten the locally owned elements into a fixed stride facet buffer,
//     splitting quadrilaterals into triangle pairs,
//  3. gather every rank's buffer onto the master, which alone serializes
//     the artifact.
type STLWriter struct {
	FileWriter
	comm *utils.Comm

	// SolidName labels the solid/endsolid tokens of the artifact
	SolidName string

	// Halo exchange state, rebuilt on every write and released afterwards
	sortedHaloNodes    []int
	numNodesToRecv     []int
	valuesToRecvDispls []int
	haloData           []float64
}

func NewSTLWriter(fields []string, fileName string, sorter sorters.DataSorter,
	comm *utils.Comm) (w *STLWriter) {
	w = &STLWriter{
		FileWriter: newFileWriter(fields, fileName, STLFileExt, sorter),
		comm:       comm,
		SolidName:  "SU2_output",
	}
	return
}

// Write runs the full gather pipeline. Every rank must call it during the
// same global phase; only the master rank touches the filesystem. I/O
// failure on the master is returned as an error; internal consistency
// violations (a halo node that cannot be resolved after the exchange)
// panic, since a diverged collective protocol cannot continue.
func (w *STLWriter) Write() (err error) {
	w.reprocessConnectivity()
	bufRecv, nTriaAllPerRank, maxLocalTriaAll := w.gatherFacetData()
	if w.comm.Rank == utils.MasterRank {
		err = w.writeFile(bufRecv, nTriaAllPerRank, maxLocalTriaAll)
	}
	w.release()
	return
}

// reprocessConnectivity rebuilds the cross-partition node information the
// node-range distribution destroyed: it finds every locally referenced but
// remotely owned node, then exchanges field data so this rank can describe
// all of its own elements.
func (w *STLWriter) reprocessConnectivity() {
	var (
		ds        = w.sorter
		rank      = w.comm.Rank
		size      = w.comm.Size()
		nTria     = ds.ElemCount(sorters.Triangle)
		nQuad     = ds.ElemCount(sorters.Quadrilateral)
		numFields = ds.NumFields()
	)

	// Gather a list of nodes we refer to but do not own
	haloNodes := make(map[int]struct{})
	for i := 0; i < nTria*3; i++ {
		g := ds.Connectivity(sorters.Triangle, i/3, i%3) - 1
		if ds.FindOwner(g) != rank {
			haloNodes[g] = struct{}{}
		}
	}
	for i := 0; i < nQuad*4; i++ {
		g := ds.Connectivity(sorters.Quadrilateral, i/4, i%4) - 1
		if ds.FindOwner(g) != rank {
			haloNodes[g] = struct{}{}
		}
	}

	// Sorted halo node list is the binary search key for later lookups
	w.sortedHaloNodes = make([]int, 0, len(haloNodes))
	for g := range haloNodes {
		w.sortedHaloNodes = append(w.sortedHaloNodes, g)
	}
	sort.Ints(w.sortedHaloNodes)

	// Demand phase: tell each rank how many nodes' worth of data we need
	// from it, learn how many we must supply
	w.numNodesToRecv = make([]int, size)
	for _, g := range w.sortedHaloNodes {
		w.numNodesToRecv[ds.FindOwner(g)]++
	}
	numNodesToSend := w.comm.Alltoall(w.numNodesToRecv)

	nodesToSendDispls := utils.PrefixSum(numNodesToSend)
	nodesToRecvDispls := utils.PrefixSum(w.numNodesToRecv)
	totalNodesToSend := nodesToSendDispls[size-1] + numNodesToSend[size-1]

	// Request phase: send the global node numbers whose data we need and
	// receive the lists of nodes whose data we must send. Each rank owns
	// globally consecutive node numbers, so the sorted halo list parcels
	// out directly by owner.
	nodesToSend := w.comm.AlltoallvInt(w.sortedHaloNodes,
		w.numNodesToRecv, nodesToRecvDispls, numNodesToSend, nodesToSendDispls)

	// Data phase: pack the requested field tuples, field-major within each
	// rank's block, and run the reverse exchange
	dataToSend := make([]float64, max(1, totalNodesToSend*numFields))
	var (
		numValuesToSend    = make([]int, size)
		valuesToSendDispls = make([]int, size)
		numValuesToRecv    = make([]int, size)
	)
	w.valuesToRecvDispls = make([]int, size)
	index := 0
	for iRank := 0; iRank < size; iRank++ {
		numValuesToSend[iRank] = numNodesToSend[iRank] * numFields
		valuesToSendDispls[iRank] = nodesToSendDispls[iRank] * numFields
		numValuesToRecv[iRank] = w.numNodesToRecv[iRank] * numFields
		w.valuesToRecvDispls[iRank] = nodesToRecvDispls[iRank] * numFields

		for field := 0; field < numFields; field++ {
			for iNode := 0; iNode < numNodesToSend[iRank]; iNode++ {
				nodeOffset := nodesToSend[nodesToSendDispls[iRank]+iNode] - ds.NodeBegin(rank)
				dataToSend[index] = ds.FieldValue(field, nodeOffset)
				index++
			}
		}
	}

	w.haloData = w.comm.AlltoallvFloat64(dataToSend,
		numValuesToSend, valuesToSendDispls, numValuesToRecv, w.valuesToRecvDispls)
}

// getHaloNodeValue resolves field of a remotely owned node from the
// exchanged halo data, keyed by the node's position in the sorted halo list
func (w *STLWriter) getHaloNodeValue(globalNode, field int) (val float64) {
	offset := sort.SearchInts(w.sortedHaloNodes, globalNode)
	if offset == len(w.sortedHaloNodes) || w.sortedHaloNodes[offset] != globalNode {
		panic(fmt.Sprintf(
			"stl writer: halo node %d not found on rank %d - ownership and connectivity have diverged",
			globalNode, w.comm.Rank))
	}
	id := 0
	for iRank := 0; iRank < w.comm.Size(); iRank++ {
		for i := 0; i < w.numNodesToRecv[iRank]; i++ {
			if id == offset {
				displ := w.valuesToRecvDispls[iRank] + w.numNodesToRecv[iRank]*field
				return w.haloData[displ+i]
			}
			id++
		}
	}
	panic(fmt.Sprintf("stl writer: halo node %d past received data on rank %d",
		globalNode, w.comm.Rank))
}

// gatherFacetData flattens the rank's triangulated surface into a dense
// (triangle, point, coordinate) buffer and gathers all buffers onto the
// master. Buffers are sized to the global maximum triangle count so the
// fixed stride gather is legal; the tail past a rank's true count is
// garbage and only trueCount entries may ever be read.
func (w *STLWriter) gatherFacetData() (bufRecv []float64, nTriaAllPerRank []int, maxLocalTriaAll int) {
	var (
		ds            = w.sorter
		rank          = w.comm.Rank
		nLocalTria    = ds.ElemCount(sorters.Triangle)
		nLocalQuad    = ds.ElemCount(sorters.Quadrilateral)
		nLocalTriaAll = nLocalTria + nLocalQuad*2 // Quad splits into 2 tris
	)

	maxLocalTriaAll = w.comm.AllreduceMax(nLocalTriaAll)
	nTriaAllPerRank = w.comm.GatherInt(nLocalTriaAll, utils.MasterRank)

	bufSend := make([]float64, max(1, maxLocalTriaAll*3*3)) // 3 points with 3 coords each
	index := 0
	loadPoint := func(globalNode int) {
		localNode := globalNode - ds.NodeBegin(rank)
		for field := 0; field < 3; field++ {
			if ds.FindOwner(globalNode) == rank {
				bufSend[index] = ds.FieldValue(field, localNode)
			} else {
				bufSend[index] = w.getHaloNodeValue(globalNode, field)
			}
			index++
		}
	}

	for iElem := 0; iElem < nLocalTria; iElem++ {
		for iPoint := 0; iPoint < 3; iPoint++ {
			loadPoint(ds.Connectivity(sorters.Triangle, iElem, iPoint) - 1)
		}
	}
	for iElem := 0; iElem < nLocalQuad; iElem++ {
		for _, iPoint := range quad2Tri {
			loadPoint(ds.Connectivity(sorters.Quadrilateral, iElem, iPoint) - 1)
		}
	}

	bufRecv = w.comm.GatherFloat64(bufSend, utils.MasterRank)
	return
}

// writeFile serializes the gathered facet data. Master rank only.
func (w *STLWriter) writeFile(bufRecv []float64, nTriaAllPerRank []int,
	maxLocalTriaAll int) (err error) {
	var (
		size   = w.comm.Size()
		stride = max(1, maxLocalTriaAll*3*3)
		start  = time.Now()
	)
	file, err := os.Create(w.fileName)
	if err != nil {
		return fmt.Errorf("unable to open STL file %s: %w", w.fileName, err)
	}
	defer file.Close()

	bw := bufio.NewWriter(file)
	fmt.Fprintf(bw, "solid %s\n", w.SolidName)

	written := int64(0)
	for iProcessor := 0; iProcessor < size; iProcessor++ {
		for iElem := 0; iElem < nTriaAllPerRank[iProcessor]; iElem++ {
			// Every tested consumer recomputes the normal, so this
			// arbitrary face normal does not matter
			fmt.Fprintf(bw, "facet normal 1 2 3\n")
			fmt.Fprintf(bw, "    outer loop\n")
			for iPoint := 0; iPoint < 3; iPoint++ {
				index := iProcessor*stride + iElem*3*3 + iPoint*3
				fmt.Fprintf(bw, "        vertex %.6g %.6g %.6g\n",
					bufRecv[index], bufRecv[index+1], bufRecv[index+2])
			}
			fmt.Fprintf(bw, "    endloop\n")
			fmt.Fprintf(bw, "endfacet\n")
		}
	}
	fmt.Fprintf(bw, "endsolid %s\n", w.SolidName)

	if err = bw.Flush(); err != nil {
		return fmt.Errorf("unable to write STL file %s: %w", w.fileName, err)
	}
	if info, serr := file.Stat(); serr == nil {
		written = info.Size()
	}
	w.recordWrite(written, time.Since(start))
	return nil
}

// release drops the per-invocation exchange state on every rank
func (w *STLWriter) release() {
	w.sortedHaloNodes = nil
	w.numNodesToRecv = nil
	w.valuesToRecvDispls = nil
	w.haloData = nil
}
