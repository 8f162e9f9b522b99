package diskplan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanAllocationChunksWholeCapacity(t *testing.T) {
	// Capacity is an exact multiple of chunk size: no trailing remainder.
	const chunkSectors = 100
	const capacitySectors = 300

	var seen []uint64
	query := func(start, n, chunk uint64) ([]Block, error) {
		seen = append(seen, start)
		require.Equal(t, uint64(chunkSectors), n)
		require.Equal(t, uint64(chunkSectors), chunk)
		return []Block{{Offset: start, Length: n}}, nil
	}

	got, err := PlanAllocation(AllocationPlan{
		CapacitySectors: capacitySectors,
		ChunkSectors:    chunkSectors,
		MinChunkSectors: chunkSectors,
		Query:           query,
	})
	require.NoError(t, err)
	assert.Equal(t, []uint64{0, 100, 200}, seen)
	assert.Equal(t, []Interval{{Start: 0, Length: capacitySectors * SectorSize}}, got)
}

func TestPlanAllocationAppendsUnalignedTail(t *testing.T) {
	const chunkSectors = 100
	const capacitySectors = 250

	query := func(start, n, chunk uint64) ([]Block, error) {
		return nil, nil // nothing allocated in the aligned region
	}

	got, err := PlanAllocation(AllocationPlan{
		CapacitySectors: capacitySectors,
		ChunkSectors:    chunkSectors,
		MinChunkSectors: chunkSectors,
		Query:           query,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, Interval{Start: 200 * SectorSize, Length: 50 * SectorSize}, got[0])
}

func TestPlanAllocationClampsChunkToLibraryMinimum(t *testing.T) {
	var requestedChunks []uint64
	query := func(start, n, chunk uint64) ([]Block, error) {
		requestedChunks = append(requestedChunks, chunk)
		return nil, nil
	}
	_, err := PlanAllocation(AllocationPlan{
		CapacitySectors: 1000,
		ChunkSectors:    1, // smaller than the library minimum
		MinChunkSectors: 100,
		Query:           query,
	})
	require.NoError(t, err)
	for _, c := range requestedChunks {
		assert.GreaterOrEqual(t, c, uint64(100))
	}
}

// A single call's window should span up to MaxChunksPerCall chunks, not be
// capped at one chunk's worth of the library minimum.
func TestPlanAllocationWindowScalesWithConfiguredChunkSize(t *testing.T) {
	const chunkSectors = 100
	const capacitySectors = 1000

	var requestedWindows []uint64
	var requestedChunks []uint64
	query := func(start, n, chunk uint64) ([]Block, error) {
		requestedWindows = append(requestedWindows, n)
		requestedChunks = append(requestedChunks, chunk)
		return nil, nil
	}

	_, err := PlanAllocation(AllocationPlan{
		CapacitySectors:  capacitySectors,
		ChunkSectors:     chunkSectors,
		MinChunkSectors:  10, // much smaller than chunkSectors
		MaxChunksPerCall: 3,
		Query:            query,
	})
	require.NoError(t, err)

	// Each call should span 3 chunks (300 sectors) except the final
	// call, which only has 1000-900=100 sectors left, i.e. a full window
	// isn't forced beyond what remains.
	assert.Equal(t, []uint64{300, 300, 300, 100}, requestedWindows)
	for _, c := range requestedChunks {
		assert.Equal(t, uint64(chunkSectors), c)
	}
}

func TestWholeDiskPlanCoversEntireCapacity(t *testing.T) {
	got := WholeDiskPlan(1000)
	assert.Equal(t, []Interval{{Start: 0, Length: 1000 * SectorSize}}, got)
	assert.Empty(t, WholeDiskPlan(0))
}

func TestMergeSortedCoalescesAdjacentIntervals(t *testing.T) {
	in := []Interval{{Start: 0, Length: 10}, {Start: 10, Length: 10}, {Start: 30, Length: 5}}
	got := mergeSorted(in)
	assert.Equal(t, []Interval{{Start: 0, Length: 20}, {Start: 30, Length: 5}}, got)
}
