// Package wire implements the on-wire container format that vadpdumper
// streams over stdin/stdout: a disk header, zero or more metadata records
// terminated by a sentinel, and zero or more length-prefixed data chunks.
//
// Every record is framed by the same 32-bit magic value at its start and
// end; a mismatch on either side is treated as a fatal protocol error.
package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Magic frames the start and end of every record in the stream.
const Magic uint32 = 0x12122012

// ProtocolVersion is the only DiskHeader version this package writes or
// accepts.
const ProtocolVersion uint32 = 1

// SectorSize is the fixed unit of addressing for all disk I/O.
const SectorSize = 512

// paddingWords sizes DiskHeader to the wire format's fixed 128 bytes.
const paddingWords = 16

// DiskHeader is the first record on the stream. It carries the geometry of
// the disk being backed up so that restore can validate the target before
// writing anything to it.
type DiskHeader struct {
	StartMagic          uint32
	ProtocolVersion     uint32
	AbsoluteDiskLength  uint64
	AbsoluteStartOffset uint64
	BiosCylinders       uint32
	BiosHeads           uint32
	BiosSectors         uint32
	PhysCylinders       uint32
	PhysHeads           uint32
	PhysSectors         uint32
	PhysCapacity        uint64
	AdapterType         uint32
	Padding             [paddingWords]uint32
	EndMagic            uint32
}

// diskHeaderSize is the fixed wire size of DiskHeader: it must stay 128
// bytes so the format matches the original C `runtime_disk_info_encoding`.
const diskHeaderSize = 4 + 4 + 8 + 8 + 4*6 + 8 + 4 + paddingWords*4 + 4

func init() {
	if diskHeaderSize != 128 {
		panic("wire: DiskHeader wire size drifted from 128 bytes")
	}
}

// NewDiskHeader builds a DiskHeader with both magics set and the given
// geometry, ready to be written with WriteDiskHeader.
func NewDiskHeader(absoluteDiskLength, absoluteStartOffset uint64, geo Geometry) DiskHeader {
	return DiskHeader{
		StartMagic:          Magic,
		ProtocolVersion:     ProtocolVersion,
		AbsoluteDiskLength:  absoluteDiskLength,
		AbsoluteStartOffset: absoluteStartOffset,
		BiosCylinders:       geo.BiosCylinders,
		BiosHeads:           geo.BiosHeads,
		BiosSectors:         geo.BiosSectors,
		PhysCylinders:       geo.PhysCylinders,
		PhysHeads:           geo.PhysHeads,
		PhysSectors:         geo.PhysSectors,
		PhysCapacity:        geo.PhysCapacity,
		AdapterType:         geo.AdapterType,
		EndMagic:            Magic,
	}
}

// Geometry is the subset of disk geometry carried in a DiskHeader.
type Geometry struct {
	BiosCylinders uint32
	BiosHeads     uint32
	BiosSectors   uint32
	PhysCylinders uint32
	PhysHeads     uint32
	PhysSectors   uint32
	PhysCapacity  uint64
	AdapterType   uint32
}

// WriteDiskHeader writes h to w in the fixed 128-byte wire layout.
func WriteDiskHeader(w io.Writer, h DiskHeader) error {
	if err := binary.Write(w, binary.LittleEndian, h); err != nil {
		return fmt.Errorf("write disk header: %w", err)
	}
	return nil
}

// ReadDiskHeader reads and validates a DiskHeader from r. Both magics must
// equal Magic or the read is rejected as a protocol error.
func ReadDiskHeader(r io.Reader) (DiskHeader, error) {
	var h DiskHeader
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return h, fmt.Errorf("read disk header: %w", err)
	}
	if h.StartMagic != Magic {
		return h, fmt.Errorf("disk header: bad start magic %#x, want %#x", h.StartMagic, Magic)
	}
	if h.EndMagic != Magic {
		return h, fmt.Errorf("disk header: bad end magic %#x, want %#x", h.EndMagic, Magic)
	}
	return h, nil
}
