// Package distribute handles cell ownership across ranks: partition layouts
// for rebalancing refined meshes, and redistribution of per-entity tagged
// values after any repartition.
package distribute

import (
	"fmt"
	"math"
)

// PartitionLayout describes a block decomposition of a global cell range:
// partition p owns the contiguous slice [Offsets[p], Offsets[p]+Counts[p]).
type PartitionLayout struct {
	NumPartitions int
	TotalCells    int
	Counts        []int // cells per partition
	Offsets       []int // first global cell of each partition
}

// NewBlockLayout assigns totalCells consecutive global cell indices to
// numPartitions partitions in near-equal blocks.
func NewBlockLayout(totalCells, numPartitions int) *PartitionLayout {
	if numPartitions < 1 {
		numPartitions = 1
	}
	per := (totalCells + numPartitions - 1) / numPartitions
	pl := &PartitionLayout{
		NumPartitions: numPartitions,
		TotalCells:    totalCells,
		Counts:        make([]int, numPartitions),
		Offsets:       make([]int, numPartitions),
	}
	for p := 0; p < numPartitions; p++ {
		start := p * per
		if start > totalCells {
			start = totalCells
		}
		end := start + per
		if end > totalCells {
			end = totalCells
		}
		pl.Offsets[p] = start
		pl.Counts[p] = end - start
	}
	return pl
}

// PartitionOf returns the partition owning the given global cell index, or
// -1 if the index is out of range.
func (pl *PartitionLayout) PartitionOf(globalCell int) int {
	if globalCell < 0 || globalCell >= pl.TotalCells {
		return -1
	}
	per := (pl.TotalCells + pl.NumPartitions - 1) / pl.NumPartitions
	p := globalCell / per
	if p >= pl.NumPartitions {
		p = pl.NumPartitions - 1
	}
	return p
}

// Validate checks internal consistency of the layout.
func (pl *PartitionLayout) Validate() error {
	sum := 0
	for p, n := range pl.Counts {
		if n < 0 {
			return fmt.Errorf("partition %d has negative count %d", p, n)
		}
		if pl.Offsets[p] != sum {
			return fmt.Errorf("partition %d: offset %d != running total %d", p, pl.Offsets[p], sum)
		}
		sum += n
	}
	if sum != pl.TotalCells {
		return fmt.Errorf("counts sum to %d, want %d", sum, pl.TotalCells)
	}
	return nil
}

// Stats summarizes load balance across partitions.
type Stats struct {
	NumPartitions int
	MinCells      int
	MaxCells      int
	AvgCells      float64
	Imbalance     float64 // MaxCells / AvgCells
}

// Statistics computes load balance metrics for the layout.
func (pl *PartitionLayout) Statistics() Stats {
	s := Stats{
		NumPartitions: pl.NumPartitions,
		MinCells:      math.MaxInt32,
		AvgCells:      float64(pl.TotalCells) / float64(pl.NumPartitions),
	}
	for _, n := range pl.Counts {
		if n < s.MinCells {
			s.MinCells = n
		}
		if n > s.MaxCells {
			s.MaxCells = n
		}
	}
	if s.AvgCells > 0 {
		s.Imbalance = float64(s.MaxCells) / s.AvgCells
	}
	return s
}
