//go:build cgo

package vixdisklib

/*
#include "vixDiskLib.h"
*/
import "C"

import "unsafe"

// Block is one allocated extent as reported by QueryAllocatedBlocks: Offset
// and Length are both counted in sectors.
type Block struct {
	Offset uint64
	Length uint64
}

// QueryAllocatedBlocks asks the SDK which sectors in [startSector,
// startSector+numSectors) are allocated, reporting blocks at chunkSectors
// granularity. numSectors must be a multiple of chunkSectors and at most
// MaxChunkNumber*chunkSectors sectors, mirroring the SDK's own per-call
// limit; diskplan is responsible for chunking a whole-disk query into
// calls that respect this.
func QueryAllocatedBlocks(h *DiskHandle, startSector, numSectors, chunkSectors uint64) ([]Block, error) {
	var list *C.VixDiskLibBlockList
	err := C.VixDiskLib_QueryAllocatedBlocks(
		h.handle,
		C.VixDiskLibSectorType(startSector),
		C.VixDiskLibSectorType(numSectors),
		C.VixDiskLibSectorType(chunkSectors),
		&list,
	)
	if err != C.VIX_OK {
		return nil, newError("QueryAllocatedBlocks", err)
	}
	defer C.VixDiskLib_FreeBlockList(list)

	count := int(list.numBlocks)
	blocks := make([]Block, count)
	if count == 0 {
		return blocks, nil
	}
	cBlocks := (*[1 << 28]C.VixDiskLibBlock)(unsafe.Pointer(list.blocks))[:count:count]
	for i, b := range cBlocks {
		blocks[i] = Block{Offset: uint64(b.offset), Length: uint64(b.length)}
	}
	return blocks, nil
}
