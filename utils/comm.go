package utils

import (
	"fmt"
	"sync"
)

// MasterRank is the coordinating rank that performs all serial file I/O
const MasterRank = 0

// mailBox is the channel fabric for one message type. chans[src][dst]
// carries the messages rank src addresses to rank dst. Buffered for the
// worst case so a staged collective never blocks on send.
type mailBox[T any] struct {
	chans [][]chan []T
}

func newMailBox[T any](NumRanks int) (mb *mailBox[T]) {
	mb = &mailBox[T]{
		chans: make([][]chan []T, NumRanks),
	}
	for src := 0; src < NumRanks; src++ {
		mb.chans[src] = make([]chan []T, NumRanks)
		for dst := 0; dst < NumRanks; dst++ {
			mb.chans[src][dst] = make(chan []T, NumRanks) // Worst case is all-to-all
		}
	}
	return
}

// World owns the communication fabric for one SPMD execution with NumRanks
// rank goroutines. It is created at the start of an output invocation and
// discarded at the end - no state survives across invocations.
type World struct {
	NumRanks int
	ints     *mailBox[int]
	floats   *mailBox[float64]
	tokens   *mailBox[struct{}]
}

func NewWorld(NumRanks int) (w *World) {
	if NumRanks < 1 {
		panic(fmt.Sprintf("world requires at least one rank, got %d", NumRanks))
	}
	w = &World{
		NumRanks: NumRanks,
		ints:     newMailBox[int](NumRanks),
		floats:   newMailBox[float64](NumRanks),
		tokens:   newMailBox[struct{}](NumRanks),
	}
	return
}

// Comm is rank's handle onto the world. One Comm per rank goroutine,
// never shared between ranks.
type Comm struct {
	world *World
	Rank  int
}

func (w *World) Comm(rank int) (c *Comm) {
	return &Comm{world: w, Rank: rank}
}

func (c *Comm) Size() (NumRanks int) {
	return c.world.NumRanks
}

// RunRanks launches body once per rank and blocks until every rank
// returns. Collective call order inside body must be identical on all
// ranks or the execution deadlocks - there is no out of band recovery,
// matching batch solver semantics. A panic on any rank takes the whole
// process down.
func (w *World) RunRanks(body func(c *Comm)) {
	var (
		wg = sync.WaitGroup{}
	)
	for n := 0; n < w.NumRanks; n++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			body(w.Comm(n))
		}(n)
	}
	wg.Wait()
}

// sendTo copies seg so the sender's buffer stays rank-private after the
// collective returns
func sendTo[T any](mb *mailBox[T], src, dst int, seg []T) {
	msg := make([]T, len(seg))
	copy(msg, seg)
	mb.chans[src][dst] <- msg
}

func recvFrom[T any](mb *mailBox[T], src, dst int) (msg []T) {
	return <-mb.chans[src][dst]
}

// alltoallv exchanges per-peer variable length segments. Both count
// vectors must be derived from a prior demand exchange so that every rank
// knows its exact receive sizes before this call - local-only guesses
// would deadlock peers.
func alltoallv[T any](mb *mailBox[T], c *Comm, send []T,
	sendCounts, sendDispls, recvCounts, recvDispls []int) (recv []T) {
	var (
		NP        = c.world.NumRanks
		totalRecv int
	)
	for _, n := range recvCounts {
		totalRecv += n
	}
	recv = make([]T, max(1, totalRecv)) // Sentinel size 1 when nothing arrives
	for dst := 0; dst < NP; dst++ {
		sendTo(mb, c.Rank, dst, send[sendDispls[dst]:sendDispls[dst]+sendCounts[dst]])
	}
	for src := 0; src < NP; src++ {
		msg := recvFrom(mb, src, c.Rank)
		if len(msg) != recvCounts[src] {
			panic(fmt.Sprintf("collective size violation: rank %d expected %d values from rank %d, got %d",
				c.Rank, recvCounts[src], src, len(msg)))
		}
		copy(recv[recvDispls[src]:], msg)
	}
	return
}

// Alltoall exchanges one int with every rank: send[j] goes to rank j,
// recv[j] arrives from rank j
func (c *Comm) Alltoall(send []int) (recv []int) {
	var (
		NP = c.world.NumRanks
	)
	recv = make([]int, NP)
	for dst := 0; dst < NP; dst++ {
		sendTo(c.world.ints, c.Rank, dst, send[dst:dst+1])
	}
	for src := 0; src < NP; src++ {
		recv[src] = recvFrom(c.world.ints, src, c.Rank)[0]
	}
	return
}

func (c *Comm) AlltoallvInt(send []int,
	sendCounts, sendDispls, recvCounts, recvDispls []int) (recv []int) {
	return alltoallv(c.world.ints, c, send, sendCounts, sendDispls, recvCounts, recvDispls)
}

func (c *Comm) AlltoallvFloat64(send []float64,
	sendCounts, sendDispls, recvCounts, recvDispls []int) (recv []float64) {
	return alltoallv(c.world.floats, c, send, sendCounts, sendDispls, recvCounts, recvDispls)
}

// GatherInt collects one int from every rank onto root, in rank order.
// Non-root ranks return nil immediately after posting their value.
func (c *Comm) GatherInt(val int, root int) (recv []int) {
	var (
		NP = c.world.NumRanks
	)
	sendTo(c.world.ints, c.Rank, root, []int{val})
	if c.Rank != root {
		return nil
	}
	recv = make([]int, NP)
	for src := 0; src < NP; src++ {
		recv[src] = recvFrom(c.world.ints, src, root)[0]
	}
	return
}

// GatherFloat64 is a fixed-stride gather: every rank contributes exactly
// len(send) values and root receives NumRanks*len(send) values laid out in
// rank order. Strides must be globally agreed (e.g. via AllreduceMax)
// before the call.
func (c *Comm) GatherFloat64(send []float64, root int) (recv []float64) {
	var (
		NP     = c.world.NumRanks
		stride = len(send)
	)
	sendTo(c.world.floats, c.Rank, root, send)
	if c.Rank != root {
		return nil
	}
	recv = make([]float64, NP*stride)
	for src := 0; src < NP; src++ {
		msg := recvFrom(c.world.floats, src, root)
		if len(msg) != stride {
			panic(fmt.Sprintf("collective size violation: gather stride mismatch, rank %d sent %d values, expected %d",
				src, len(msg), stride))
		}
		copy(recv[src*stride:], msg)
	}
	return
}

// AllreduceMax returns the maximum of val over all ranks, on every rank
func (c *Comm) AllreduceMax(val int) (max int) {
	var (
		NP = c.world.NumRanks
	)
	for dst := 0; dst < NP; dst++ {
		sendTo(c.world.ints, c.Rank, dst, []int{val})
	}
	max = val
	for src := 0; src < NP; src++ {
		if v := recvFrom(c.world.ints, src, c.Rank)[0]; v > max {
			max = v
		}
	}
	return
}

// PrefixSum returns the exclusive prefix sum of counts - the displacement
// of each rank's segment in a packed exchange buffer
func PrefixSum(counts []int) (displs []int) {
	displs = make([]int, len(counts))
	for n := 1; n < len(counts); n++ {
		displs[n] = displs[n-1] + counts[n-1]
	}
	return
}

// Barrier blocks until every rank has entered it
func (c *Comm) Barrier() {
	var (
		NP = c.world.NumRanks
	)
	for dst := 0; dst < NP; dst++ {
		sendTo(c.world.tokens, c.Rank, dst, nil)
	}
	for src := 0; src < NP; src++ {
		recvFrom(c.world.tokens, src, c.Rank)
	}
}
