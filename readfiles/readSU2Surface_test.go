package readfiles

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var surfaceFile = []byte(`% Surface test case
NDIME= 3
NELEM= 3
5 0 1 2 0
5 2 3 4 1
9 4 5 6 7 2
NPOIN= 8
0.0 0.0 0.0 0
1.0 0.0 0.5 1
1.0 1.0 0.0 2
2.0 1.0 0.0 3
2.0 2.0 1.5 4
3.0 2.0 0.0 5
3.0 3.0 0.0 6
2.5 3.5 0.0 7
`)

func TestReadSU2Surface(t *testing.T) {
	{ // Full parse
		sm := ReadSU2SurfaceFrom(bufio.NewReader(bytes.NewReader(surfaceFile)), false)
		assert.Equal(t, 3, sm.NDim)
		assert.Equal(t, 8, sm.NumNodes)
		require.Equal(t, 2, len(sm.Tris))
		require.Equal(t, 1, len(sm.Quads))
		assert.Equal(t, [3]int{0, 1, 2}, sm.Tris[0])
		assert.Equal(t, [3]int{2, 3, 4}, sm.Tris[1])
		assert.Equal(t, [4]int{4, 5, 6, 7}, sm.Quads[0])
		assert.Equal(t, 3, sm.NumElements())

		assert.Equal(t, 1.0, sm.FieldValue(0, 1))
		assert.Equal(t, 3.5, sm.FieldValue(1, 7))
		assert.Equal(t, 1.5, sm.FieldValue(2, 4))

		lo, hi := sm.BoundingBox()
		assert.Equal(t, [3]float64{0, 0, 0}, lo)
		assert.Equal(t, [3]float64{3, 3.5, 1.5}, hi)
	}
	{ // 2D meshes get a zero z coordinate
		twoD := []byte("NDIME= 2\nNELEM= 1\n5 0 1 2 0\nNPOIN= 3\n0.0 0.0 0\n1.0 0.0 1\n0.0 1.0 2\n")
		sm := ReadSU2SurfaceFrom(bufio.NewReader(bytes.NewReader(twoD)), false)
		assert.Equal(t, 2, sm.NDim)
		assert.Equal(t, 0.0, sm.FieldValue(2, 1))
		assert.Equal(t, 1.0, sm.FieldValue(0, 1))
	}
	{ // Volume element types are rejected
		bad := []byte("NDIME= 3\nNELEM= 1\n10 0 1 2 3 0\nNPOIN= 4\n")
		assert.Panics(t, func() {
			ReadSU2SurfaceFrom(bufio.NewReader(bytes.NewReader(bad)), false)
		})
	}
	{ // A missing = is a format error
		bad := []byte("NDIME 3\n")
		assert.Panics(t, func() {
			ReadSU2SurfaceFrom(bufio.NewReader(bytes.NewReader(bad)), false)
		})
	}
}
