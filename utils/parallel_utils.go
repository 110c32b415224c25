package utils

import "fmt"

// PartitionMap splits the global node index space [0,NumNodes) into one
// contiguous, monotonically increasing range per rank. Every rank builds an
// identical map from the same (NumRanks, NumNodes) pair, so ownership
// queries never require communication.
type PartitionMap struct {
	NumNodes int
	NumRanks int
	Ranges   [][2]int // Begin and end node index of each rank's range
}

func NewPartitionMap(NumRanks, NumNodes int) (pm *PartitionMap) {
	pm = &PartitionMap{
		NumNodes: NumNodes,
		NumRanks: NumRanks,
		Ranges:   make([][2]int, NumRanks),
	}
	for n := 0; n < NumRanks; n++ {
		pm.Ranges[n] = pm.Split1D(n)
	}
	return
}

// Split1D produces rank r's node range, with a maximum imbalance of one node
func (pm *PartitionMap) Split1D(rank int) (nodeRange [2]int) {
	var (
		Npart            = pm.NumNodes / pm.NumRanks
		startAdd, endAdd int
		remainder        int
	)
	remainder = pm.NumNodes % pm.NumRanks
	if remainder != 0 { // spread the remainder over the first ranks evenly
		if rank+1 > remainder {
			startAdd = remainder
			endAdd = 0
		} else {
			startAdd = rank
			endAdd = 1
		}
	}
	nodeRange[0] = rank*Npart + startAdd
	nodeRange[1] = nodeRange[0] + Npart + endAdd
	return
}

func (pm *PartitionMap) NodeBegin(rank int) (begin int) {
	return pm.Ranges[rank][0]
}

func (pm *PartitionMap) NodeRange(rank int) (begin, end int) {
	begin, end = pm.Ranges[rank][0], pm.Ranges[rank][1]
	return
}

// NodeCount returns the number of nodes owned by rank
func (pm *PartitionMap) NodeCount(rank int) (count int) {
	count = pm.Ranges[rank][1] - pm.Ranges[rank][0]
	return
}

// FindOwner locates the rank owning globalNode. Pure function of the
// partition boundaries - every rank computes the same answer
func (pm *PartitionMap) FindOwner(globalNode int) (rank int) {
	rank, _ = pm.findOwnerWithTryCount(globalNode)
	return
}

func (pm *PartitionMap) findOwnerWithTryCount(globalNode int) (rank, tryCount int) {
	// Initial guess, then walk toward the owning range
	rank = int(float64(pm.NumRanks*globalNode) / float64(pm.NumNodes))
	if rank >= pm.NumRanks {
		rank = pm.NumRanks - 1
	}
	for !(pm.Ranges[rank][0] <= globalNode && pm.Ranges[rank][1] > globalNode) {
		if pm.Ranges[rank][0] > globalNode {
			rank--
		} else {
			rank++
		}
		if rank == -1 || rank == pm.NumRanks {
			panic(fmt.Sprintf("global node %d outside of partitioned range [0,%d)",
				globalNode, pm.NumNodes))
		}
		tryCount++
	}
	return
}

// GetLocalNode converts a global node index into the offset within its
// owning rank's range
func (pm *PartitionMap) GetLocalNode(globalNode int) (localOffset, rank int) {
	rank = pm.FindOwner(globalNode)
	localOffset = globalNode - pm.Ranges[rank][0]
	return
}

// GetGlobalNode converts a rank-local offset back to the global node index
func (pm *PartitionMap) GetGlobalNode(localOffset, rank int) (globalNode int) {
	globalNode = pm.Ranges[rank][0] + localOffset
	return
}
