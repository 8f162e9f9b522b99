package diskplan

// SectorSize is the fixed unit the planner converts sector-addressed
// library results into byte-addressed Intervals.
const SectorSize = 512

// Block is one allocated extent as reported by a query source, addressed
// in sectors (matching vixdisklib.Block's units).
type Block struct {
	Offset uint64
	Length uint64
}

// QueryFunc issues one allocation query over [startSector,
// startSector+numSectors), reporting blocks at chunkSectors granularity,
// and returns the allocated blocks the library found in that range.
// Implementations must not return blocks outside the requested range.
type QueryFunc func(startSector, numSectors, chunkSectors uint64) ([]Block, error)

// AllocationPlan configures library-query mode.
type AllocationPlan struct {
	CapacitySectors  uint64
	ChunkSectors     uint64
	MinChunkSectors  uint64
	MaxChunksPerCall uint64
	Query            QueryFunc
}

// PlanAllocation reports allocation at ChunkSectors granularity (clamped to
// at least MinChunkSectors), issuing one query per call for up to
// MaxChunksPerCall chunks at a time — mirroring the original's
// NumChunksToQuery = min(MAX_CHUNK_NUMBER, remaining chunks) times the
// configurable chunk size. It collects every returned block into a sorted
// disjoint byte-Interval list, and appends the unaligned tail — if the
// capacity isn't a multiple of the chunk size — as one final allocated
// interval covering it.
func PlanAllocation(p AllocationPlan) ([]Interval, error) {
	chunk := p.ChunkSectors
	if chunk < p.MinChunkSectors {
		chunk = p.MinChunkSectors
	}
	if chunk == 0 {
		chunk = p.CapacitySectors
	}

	window := chunk
	if p.MaxChunksPerCall > 0 {
		window = p.MaxChunksPerCall * chunk
	}

	var intervals []Interval
	var cursor uint64
	alignedEnd := (p.CapacitySectors / chunk) * chunk

	for cursor < alignedEnd {
		want := window
		if cursor+want > alignedEnd {
			want = alignedEnd - cursor
		}
		blocks, err := p.Query(cursor, want, chunk)
		if err != nil {
			return nil, err
		}
		for _, b := range blocks {
			if b.Length == 0 {
				continue
			}
			intervals = append(intervals, Interval{
				Start:  b.Offset * SectorSize,
				Length: b.Length * SectorSize,
			})
		}
		cursor += want
	}

	if alignedEnd < p.CapacitySectors {
		tailSectors := p.CapacitySectors - alignedEnd
		intervals = append(intervals, Interval{
			Start:  alignedEnd * SectorSize,
			Length: tailSectors * SectorSize,
		})
	}

	return mergeSorted(intervals), nil
}

// WholeDiskPlan returns the single interval covering the disk's entire
// capacity, used when allocation queries are disabled.
func WholeDiskPlan(capacitySectors uint64) []Interval {
	if capacitySectors == 0 {
		return nil
	}
	return []Interval{{Start: 0, Length: capacitySectors * SectorSize}}
}

// mergeSorted coalesces adjacent/overlapping intervals in a list that is
// already sorted by Start, which PlanAllocation's chunk-by-chunk walk
// guarantees. Kept separate from the query loop so it's trivially testable
// against hand-built interval lists.
func mergeSorted(in []Interval) []Interval {
	if len(in) == 0 {
		return in
	}
	out := make([]Interval, 0, len(in))
	cur := in[0]
	for _, iv := range in[1:] {
		if iv.Start <= cur.End() {
			if iv.End() > cur.End() {
				cur.Length = iv.End() - cur.Start
			}
			continue
		}
		out = append(out, cur)
		cur = iv
	}
	out = append(out, cur)
	return out
}
