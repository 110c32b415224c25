package utils

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommCollectives(t *testing.T) {
	{ // Alltoall is a transpose: recv[j] on rank i equals send[i] on rank j
		var (
			NP = 4
			w  = NewWorld(NP)
			mu sync.Mutex
		)
		got := make([][]int, NP)
		w.RunRanks(func(c *Comm) {
			send := make([]int, NP)
			for j := 0; j < NP; j++ {
				send[j] = 100*c.Rank + j
			}
			recv := c.Alltoall(send)
			mu.Lock()
			got[c.Rank] = recv
			mu.Unlock()
		})
		for i := 0; i < NP; i++ {
			for j := 0; j < NP; j++ {
				assert.Equal(t, 100*j+i, got[i][j])
			}
		}
	}
	{ // Alltoallv with ragged per-peer payloads
		var (
			NP = 3
			w  = NewWorld(NP)
			mu sync.Mutex
		)
		// Rank r sends r+1 copies of its rank number to every peer
		got := make([][]int, NP)
		w.RunRanks(func(c *Comm) {
			var (
				sendCounts = make([]int, NP)
				recvCounts = make([]int, NP)
			)
			send := make([]int, 0)
			for j := 0; j < NP; j++ {
				sendCounts[j] = c.Rank + 1
				recvCounts[j] = j + 1
				for i := 0; i < c.Rank+1; i++ {
					send = append(send, c.Rank)
				}
			}
			recv := c.AlltoallvInt(send,
				sendCounts, PrefixSum(sendCounts), recvCounts, PrefixSum(recvCounts))
			mu.Lock()
			got[c.Rank] = recv
			mu.Unlock()
		})
		for i := 0; i < NP; i++ {
			want := []int{0, 1, 1, 2, 2, 2}
			assert.Equal(t, want, got[i])
		}
	}
	{ // Empty payloads must not crash size-0 collectives
		var (
			NP = 2
			w  = NewWorld(NP)
		)
		w.RunRanks(func(c *Comm) {
			zeros := make([]int, NP)
			recv := c.AlltoallvInt(nil, zeros, zeros, zeros, zeros)
			assert.Equal(t, 1, len(recv)) // Sentinel allocation
			fRecv := c.AlltoallvFloat64(nil, zeros, zeros, zeros, zeros)
			assert.Equal(t, 1, len(fRecv))
		})
	}
	{ // Gather lands one value per rank on the master, in rank order
		var (
			NP = 5
			w  = NewWorld(NP)
			mu sync.Mutex
		)
		var onMaster []int
		w.RunRanks(func(c *Comm) {
			recv := c.GatherInt(c.Rank*c.Rank, MasterRank)
			if c.Rank == MasterRank {
				mu.Lock()
				onMaster = recv
				mu.Unlock()
			} else {
				assert.Nil(t, recv)
			}
		})
		assert.Equal(t, []int{0, 1, 4, 9, 16}, onMaster)
	}
	{ // Fixed stride float gather concatenates rank buffers in rank order
		var (
			NP = 3
			w  = NewWorld(NP)
			mu sync.Mutex
		)
		var onMaster []float64
		w.RunRanks(func(c *Comm) {
			send := []float64{float64(c.Rank), float64(c.Rank) + 0.5}
			recv := c.GatherFloat64(send, MasterRank)
			if c.Rank == MasterRank {
				mu.Lock()
				onMaster = recv
				mu.Unlock()
			}
		})
		assert.Equal(t, []float64{0, 0.5, 1, 1.5, 2, 2.5}, onMaster)
	}
	{ // AllreduceMax agrees on every rank
		var (
			NP = 6
			w  = NewWorld(NP)
		)
		w.RunRanks(func(c *Comm) {
			assert.Equal(t, 25, c.AllreduceMax((c.Rank%3)*10+c.Rank))
		})
	}
	{ // Barrier plus repeated staged collectives stay in phase
		var (
			NP = 4
			w  = NewWorld(NP)
		)
		w.RunRanks(func(c *Comm) {
			for iter := 0; iter < 50; iter++ {
				send := make([]int, NP)
				for j := 0; j < NP; j++ {
					send[j] = iter
				}
				recv := c.Alltoall(send)
				for j := 0; j < NP; j++ {
					assert.Equal(t, iter, recv[j])
				}
				c.Barrier()
			}
		})
	}
}
