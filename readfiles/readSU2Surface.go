package readfiles

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// From here: https://su2code.github.io/docs_v7/Mesh-File/
type SU2ElementType uint8

const (
	ELType_LINE          SU2ElementType = 3
	ELType_Triangle                     = 5
	ELType_Quadrilateral                = 9
	ELType_Tetrahedral                  = 10
	ELType_Hexahedral                   = 12
	ELType_Prism                        = 13
	ELType_Pyramid                      = 14
)

// SurfaceMesh is a serial surface mesh of triangles and quadrilaterals.
// Connectivity is stored 0-based here; the sorter layer re-exposes it
// 1-based to match the writer contract.
type SurfaceMesh struct {
	NDim     int
	NumNodes int
	VX, VY   *mat.VecDense
	VZ       *mat.VecDense // Zero vector for 2D meshes
	Tris     [][3]int
	Quads    [][4]int
}

func (sm *SurfaceMesh) NumElements() (K int) {
	return len(sm.Tris) + len(sm.Quads)
}

// FieldValue returns coordinate component field (0=x, 1=y, 2=z) of node
func (sm *SurfaceMesh) FieldValue(field, node int) (val float64) {
	switch field {
	case 0:
		val = sm.VX.AtVec(node)
	case 1:
		val = sm.VY.AtVec(node)
	case 2:
		val = sm.VZ.AtVec(node)
	default:
		panic(fmt.Sprintf("coordinate field index %d out of range", field))
	}
	return
}

// BoundingBox returns the axis aligned extent of the mesh coordinates
func (sm *SurfaceMesh) BoundingBox() (lo, hi [3]float64) {
	for i, v := range []*mat.VecDense{sm.VX, sm.VY, sm.VZ} {
		lo[i] = floats.Min(v.RawVector().Data)
		hi[i] = floats.Max(v.RawVector().Data)
	}
	return
}

func ReadSU2Surface(filename string, verbose bool) (sm *SurfaceMesh) {
	var (
		file *os.File
		err  error
	)
	if verbose {
		fmt.Printf("Reading SU2 surface file named: %s\n", filename)
	}
	if file, err = os.Open(filename); err != nil {
		panic(fmt.Errorf("unable to open file %s\n %s", filename, err))
	}
	defer file.Close()
	sm = ReadSU2SurfaceFrom(bufio.NewReader(file), verbose)
	return
}

// ReadSU2SurfaceFrom parses the NDIME / NELEM / NPOIN sections of an ASCII
// SU2 mesh containing only surface elements (triangles and quadrilaterals)
func ReadSU2SurfaceFrom(reader *bufio.Reader, verbose bool) (sm *SurfaceMesh) {
	sm = &SurfaceMesh{}
	sm.NDim = readNumber(reader)
	if sm.NDim != 2 && sm.NDim != 3 {
		panic(fmt.Errorf("unsupported dimensionality %d", sm.NDim))
	}
	readSurfaceElements(reader, sm)
	readSurfaceVertices(reader, sm)
	if verbose {
		lo, hi := sm.BoundingBox()
		fmt.Printf("Read %d nodes, %d triangles, %d quadrilaterals\n",
			sm.NumNodes, len(sm.Tris), len(sm.Quads))
		fmt.Printf("Bounding box: [%g,%g] x [%g,%g] x [%g,%g]\n",
			lo[0], hi[0], lo[1], hi[1], lo[2], hi[2])
	}
	return
}

func readSurfaceElements(reader *bufio.Reader, sm *SurfaceMesh) {
	var (
		nType          int
		v1, v2, v3, v4 int
		err            error
	)
	K := readNumber(reader)
	for k := 0; k < K; k++ {
		line := getLine(reader)
		if _, err = fmt.Sscanf(line, "%d", &nType); err != nil {
			panic(fmt.Errorf("unable to read element type from line [%s]", line))
		}
		switch SU2ElementType(nType) {
		case ELType_Triangle:
			if n, err := fmt.Sscanf(line, "%d %d %d %d", &nType, &v1, &v2, &v3); err != nil || n != 4 {
				panic(fmt.Errorf("unable to read triangle from line [%s]", line))
			}
			sm.Tris = append(sm.Tris, [3]int{v1, v2, v3})
		case ELType_Quadrilateral:
			if n, err := fmt.Sscanf(line, "%d %d %d %d %d", &nType, &v1, &v2, &v3, &v4); err != nil || n != 5 {
				panic(fmt.Errorf("unable to read quadrilateral from line [%s]", line))
			}
			sm.Quads = append(sm.Quads, [4]int{v1, v2, v3, v4})
		default:
			panic(fmt.Errorf("element type %d is not a surface element", nType))
		}
	}
}

func readSurfaceVertices(reader *bufio.Reader, sm *SurfaceMesh) {
	var (
		x, y, z float64
		err     error
	)
	Nv := readNumber(reader)
	var (
		vx = make([]float64, Nv)
		vy = make([]float64, Nv)
		vz = make([]float64, Nv)
	)
	for i := 0; i < Nv; i++ {
		line := getLine(reader)
		if sm.NDim == 2 {
			if n, err2 := fmt.Sscanf(line, "%f %f", &x, &y); err2 != nil || n != 2 {
				err = fmt.Errorf("unable to read 2D coordinates from line [%s]", line)
			}
			z = 0
		} else {
			if n, err2 := fmt.Sscanf(line, "%f %f %f", &x, &y, &z); err2 != nil || n != 3 {
				err = fmt.Errorf("unable to read 3D coordinates from line [%s]", line)
			}
		}
		if err != nil {
			panic(err)
		}
		vx[i], vy[i], vz[i] = x, y, z
	}
	sm.NumNodes = Nv
	sm.VX = mat.NewVecDense(Nv, vx)
	sm.VY = mat.NewVecDense(Nv, vy)
	sm.VZ = mat.NewVecDense(Nv, vz)
}

func getToken(reader *bufio.Reader) (token string) {
	var (
		line string
		err  error
	)
	line = getLineNoComments(reader)
	ind := strings.Index(line, "=")
	if ind < 0 {
		err = fmt.Errorf("badly formed input line [%s], should have an =", line)
		panic(err)
	}
	token = line[ind+1:]
	return
}

func readNumber(reader *bufio.Reader) (num int) {
	var (
		err error
	)
	token := getToken(reader)
	if _, err = fmt.Sscanf(token, "%d", &num); err != nil {
		err = fmt.Errorf("unable to read number from token: [%s]", token)
		panic(err)
	}
	return
}

func getLineNoComments(reader *bufio.Reader) (line string) {
	for {
		line = strings.Trim(getLine(reader), " ")
		ind := strings.Index(line, "%")
		if ind < 0 || ind != 0 {
			return
		}
	}
}

func getLine(reader *bufio.Reader) (line string) {
	var (
		err error
	)
	line, err = reader.ReadString('\n')
	if err != nil {
		if err == io.EOF {
			err = fmt.Errorf("early end of file")
		}
		panic(err)
	}
	line = line[:len(line)-1] // Strip away the newline
	return
}
