package vddksession

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bareos/vadpdumper/wire"
)

func makeHeader(biosC, biosH, biosS, physC, physH, physS uint32) wire.DiskHeader {
	return wire.NewDiskHeader(0, 0, wire.Geometry{
		BiosCylinders: biosC,
		BiosHeads:     biosH,
		BiosSectors:   biosS,
		PhysCylinders: physC,
		PhysHeads:     physH,
		PhysSectors:   physS,
	})
}

func TestValidateGeometryAcceptsEqualOrLargerTarget(t *testing.T) {
	original := makeHeader(100, 255, 63, 200, 255, 63)
	target := wire.Geometry{BiosCylinders: 100, BiosHeads: 255, BiosSectors: 63, PhysCylinders: 200, PhysHeads: 255, PhysSectors: 63}
	assert.NoError(t, ValidateGeometry(target, original))

	larger := target
	larger.PhysCylinders = 400
	assert.NoError(t, ValidateGeometry(larger, original))
}

func TestValidateGeometryRejectsEachShrunkFieldIndependently(t *testing.T) {
	original := makeHeader(100, 255, 63, 200, 255, 63)
	base := wire.Geometry{BiosCylinders: 100, BiosHeads: 255, BiosSectors: 63, PhysCylinders: 200, PhysHeads: 255, PhysSectors: 63}

	cases := []struct {
		name   string
		mutate func(g *wire.Geometry)
	}{
		{"bios cylinders", func(g *wire.Geometry) { g.BiosCylinders = 50 }},
		{"bios heads", func(g *wire.Geometry) { g.BiosHeads = 100 }},
		{"bios sectors", func(g *wire.Geometry) { g.BiosSectors = 10 }},
		{"phys cylinders", func(g *wire.Geometry) { g.PhysCylinders = 50 }},
		{"phys heads", func(g *wire.Geometry) { g.PhysHeads = 100 }},
		{"phys sectors", func(g *wire.Geometry) { g.PhysSectors = 10 }},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			g := base
			c.mutate(&g)
			err := ValidateGeometry(g, original)
			require.Error(t, err)
		})
	}
}

func TestValidateGeometrySkipsZeroOriginalFields(t *testing.T) {
	original := makeHeader(0, 0, 0, 200, 255, 63)
	target := wire.Geometry{PhysCylinders: 200, PhysHeads: 255, PhysSectors: 63}
	assert.NoError(t, ValidateGeometry(target, original))
}

func TestDiskTypeByNameKnownAndUnknown(t *testing.T) {
	dt, err := DiskTypeByName("monolithic_sparse")
	require.NoError(t, err)
	assert.NotZero(t, dt)

	_, err = DiskTypeByName("not_a_real_type")
	assert.Error(t, err)
}
