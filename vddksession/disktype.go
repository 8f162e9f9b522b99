package vddksession

import (
	"fmt"

	"github.com/bareos/vadpdumper/vixdisklib"
)

// diskTypesByName mirrors the original tool's disk_types lookup table:
// the CLI-facing disk-type names accepted by --disk-type on create.
var diskTypesByName = map[string]vixdisklib.DiskType{
	"monolithic_sparse": vixdisklib.DiskTypeMonolithicSparse,
	"monolithic_flat":   vixdisklib.DiskTypeMonolithicFlat,
	"split_sparse":      vixdisklib.DiskTypeSplitSparse,
	"split_flat":        vixdisklib.DiskTypeSplitFlat,
	"vmfs_flat":         vixdisklib.DiskTypeVmfsFlat,
	"optimized":         vixdisklib.DiskTypeStreamOptimized,
	"vmfs_thin":         vixdisklib.DiskTypeVmfsThin,
	"vmfs_sparse":       vixdisklib.DiskTypeVmfsSparse,
}

// DiskTypeByName resolves a --disk-type flag value to the VixDiskLib
// constant it names, or an error listing the accepted names.
func DiskTypeByName(name string) (vixdisklib.DiskType, error) {
	dt, ok := diskTypesByName[name]
	if !ok {
		return vixdisklib.DiskTypeUnknown, fmt.Errorf("vddksession: unknown disk type %q (accepted: monolithic_sparse, monolithic_flat, split_sparse, split_flat, vmfs_flat, optimized, vmfs_thin, vmfs_sparse)", name)
	}
	return dt, nil
}
