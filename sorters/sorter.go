package sorters

// ElemKind identifies the shape of a surface element
type ElemKind uint8

const (
	Triangle ElemKind = iota
	Quadrilateral
)

func (k ElemKind) NumCorners() (n int) {
	switch k {
	case Triangle:
		n = 3
	case Quadrilateral:
		n = 4
	}
	return
}

func (k ElemKind) String() (s string) {
	switch k {
	case Triangle:
		s = "Triangle"
	case Quadrilateral:
		s = "Quadrilateral"
	}
	return
}

// DataSorter is one rank's view of the partitioned mesh and its per-node
// field data. Node ownership is carved into contiguous global ID ranges,
// one per rank; element connectivity may reference nodes owned by other
// ranks. Implementations must answer FindOwner purely from the partition
// boundaries so every rank computes identical ownership without
// communication.
type DataSorter interface {
	// NodeBegin returns the first global node ID owned by rank
	NodeBegin(rank int) int
	// FindOwner returns the rank owning globalNode
	FindOwner(globalNode int) int
	// ElemCount returns the number of locally owned elements of kind
	ElemCount(kind ElemKind) int
	// Connectivity returns the 1-based global node ID at corner of local
	// element elem
	Connectivity(kind ElemKind, elem, corner int) int
	// FieldValue returns field component at a locally owned node offset
	FieldValue(field, localNode int) float64
	// NumFields returns the per-node field tuple width
	NumFields() int
}
