package vddksession

import (
	"fmt"

	"github.com/bareos/vadpdumper/wire"
)

// ValidateGeometry checks that the geometry of a freshly created/opened
// restore target is at least as large in every dimension as the geometry
// recorded in the stream's DiskHeader. A target smaller than the original
// in any dimension cannot safely receive the backed-up sectors.
//
// Each of the six fields (BIOS cylinders/heads/sectors, physical
// cylinders/heads/sectors) is checked against its own counterpart exactly
// once.
func ValidateGeometry(target wire.Geometry, original wire.DiskHeader) error {
	type check struct {
		name          string
		targetValue   uint32
		originalValue uint32
	}
	checks := []check{
		{"BIOS cylinders", target.BiosCylinders, original.BiosCylinders},
		{"BIOS heads", target.BiosHeads, original.BiosHeads},
		{"BIOS sectors", target.BiosSectors, original.BiosSectors},
		{"PHYS cylinders", target.PhysCylinders, original.PhysCylinders},
		{"PHYS heads", target.PhysHeads, original.PhysHeads},
		{"PHYS sectors", target.PhysSectors, original.PhysSectors},
	}
	for _, c := range checks {
		if c.originalValue > 0 && c.targetValue < c.originalValue {
			return fmt.Errorf("vddksession: target disk has %d %s, original had %d", c.targetValue, c.name, c.originalValue)
		}
	}
	return nil
}
