//go:build cgo

package vixdisklib

/*
#include <stdlib.h>
#include "vixDiskLib.h"
*/
import "C"

import (
	"fmt"
	"unsafe"
)

// Identity is the string VixDiskLib_PrepareForAccess/EndAccess use to tag
// this process's snapshot/lock ownership, so a crashed run can be cleaned
// up by a later one that recognizes the same identity.
const Identity = "bareos-vadpdumper"

// Connection wraps a VixDiskLibConnection.
type Connection struct {
	handle C.VixDiskLibConnection
}

// PrepareForAccess must be called before ConnectEx when the connection will
// take a VM snapshot (i.e. when dumping); it registers this process's
// identity so a later Cleanup call can find and release it.
func PrepareForAccess(p *ConnectParams) error {
	cIdentity := C.CString(Identity)
	defer C.free(unsafe.Pointer(cIdentity))
	err := C.VixDiskLib_PrepareForAccess(p.ptr, cIdentity)
	return newError("PrepareForAccess", err)
}

// EndAccess releases what PrepareForAccess registered. Safe to call even if
// PrepareForAccess was never called for this ConnectParams; the SDK treats
// a missing registration as a no-op.
func EndAccess(p *ConnectParams) error {
	cIdentity := C.CString(Identity)
	defer C.free(unsafe.Pointer(cIdentity))
	err := C.VixDiskLib_EndAccess(p.ptr, cIdentity)
	return newError("EndAccess", err)
}

// ConnectEx opens a connection to the host named in p. readOnly must be
// true for backup and false for restore; the underlying SDK also uses this
// connection to decide whether snapshot-relative I/O is legal.
// forcedTransport, when non-empty, pins the transport mode (e.g. "nbd",
// "hotadd", "san") instead of letting the SDK pick automatically.
func ConnectEx(p *ConnectParams, readOnly bool, forcedTransport string) (*Connection, error) {
	var handle C.VixDiskLibConnection
	var cSnapshot *C.char
	if p.snapshotMoRef != "" {
		cSnapshot = C.CString(p.snapshotMoRef)
		defer C.free(unsafe.Pointer(cSnapshot))
	}
	var cTransport *C.char
	if forcedTransport != "" {
		cTransport = C.CString(forcedTransport)
		defer C.free(unsafe.Pointer(cTransport))
	}
	err := C.VixDiskLib_ConnectEx(p.ptr, boolToC(readOnly), cSnapshot, cTransport, &handle)
	if err != C.VIX_OK {
		return nil, newError("ConnectEx", err)
	}
	return &Connection{handle: handle}, nil
}

// Disconnect closes the connection. Safe to call once.
func (c *Connection) Disconnect() {
	if c == nil || c.handle == nil {
		return
	}
	C.VixDiskLib_Disconnect(c.handle)
	c.handle = nil
}

// Info is the subset of VixDiskLibInfo this tool cares about: capacity and
// geometry, needed to populate a wire.DiskHeader.
type Info struct {
	Capacity      uint64 // in sectors
	BiosCylinders uint32
	BiosHeads     uint32
	BiosSectors   uint32
	PhysCylinders uint32
	PhysHeads     uint32
	PhysSectors   uint32
	AdapterType   AdapterType
	NumLinks      int
}

// DiskHandle wraps a VixDiskLibHandle, either the read side of a dump or
// the write side of a restore.
type DiskHandle struct {
	handle C.VixDiskLibHandle
}

// Open opens an existing virtual disk at diskPath (a datastore path or a
// local file path, depending on transport) with the given flags.
func Open(conn *Connection, diskPath string, flags OpenFlags) (*DiskHandle, error) {
	cPath := C.CString(diskPath)
	defer C.free(unsafe.Pointer(cPath))
	var handle C.VixDiskLibHandle
	err := C.VixDiskLib_Open(conn.handle, cPath, C.uint32(flags), &handle)
	if err != C.VIX_OK {
		return nil, newError("Open", err)
	}
	return &DiskHandle{handle: handle}, nil
}

// CreateParams describes a virtual disk to be created before a restore.
type CreateParams struct {
	DiskType    DiskType
	AdapterType AdapterType
	Capacity    uint64 // in sectors
	HWVersion   uint16
}

// Create creates a new virtual disk at diskPath. It does not open it;
// callers still need Open afterward.
func Create(conn *Connection, diskPath string, params CreateParams) error {
	cPath := C.CString(diskPath)
	defer C.free(unsafe.Pointer(cPath))
	cParams := C.VixDiskLibCreateParams{
		diskType:    C.VixDiskLibDiskType(params.DiskType),
		adapterType: C.VixDiskLibAdapterType(params.AdapterType),
		hwVersion:   C.uint16(params.HWVersion),
		capacity:    C.VixDiskLibSectorType(params.Capacity),
	}
	err := C.VixDiskLib_Create(conn.handle, cPath, &cParams, nil, nil)
	return newError("Create", err)
}

// GetInfo fetches capacity and geometry for an open disk handle.
func GetInfo(h *DiskHandle) (Info, error) {
	var cInfo *C.VixDiskLibInfo
	err := C.VixDiskLib_GetInfo(h.handle, &cInfo)
	if err != C.VIX_OK {
		return Info{}, newError("GetInfo", err)
	}
	defer C.VixDiskLib_FreeInfo(cInfo)

	return Info{
		Capacity:      uint64(cInfo.capacity),
		BiosCylinders: uint32(cInfo.biosGeo.cylinders),
		BiosHeads:     uint32(cInfo.biosGeo.heads),
		BiosSectors:   uint32(cInfo.biosGeo.sectors),
		PhysCylinders: uint32(cInfo.physGeo.cylinders),
		PhysHeads:     uint32(cInfo.physGeo.heads),
		PhysSectors:   uint32(cInfo.physGeo.sectors),
		AdapterType:   AdapterType(cInfo.adapterType),
		NumLinks:      int(cInfo.numLinks),
	}, nil
}

// TransportMode reports which VDDK transport (nbd, nbdssl, san, hotadd,
// file) the SDK selected for this handle, for diagnostic logging only.
func TransportMode(h *DiskHandle) string {
	return C.GoString(C.VixDiskLib_GetTransportMode(h.handle))
}

// Close closes a disk handle. Safe to call once.
func (h *DiskHandle) Close() {
	if h == nil || h.handle == nil {
		return
	}
	C.VixDiskLib_Close(h.handle)
	h.handle = nil
}

// Read reads numSectors sectors starting at startSector into buf, which
// must be at least numSectors*SectorSize bytes.
func Read(h *DiskHandle, startSector, numSectors uint64, buf []byte) error {
	need := numSectors * SectorSize
	if uint64(len(buf)) < need {
		return fmt.Errorf("vixdisklib: Read buffer too small: have %d, need %d", len(buf), need)
	}
	err := C.VixDiskLib_Read(h.handle, C.VixDiskLibSectorType(startSector), C.VixDiskLibSectorType(numSectors),
		(*C.uint8)(unsafe.Pointer(&buf[0])))
	return newError("Read", err)
}

// Write writes numSectors sectors starting at startSector from buf, which
// must hold at least numSectors*SectorSize bytes.
func Write(h *DiskHandle, startSector, numSectors uint64, buf []byte) error {
	need := numSectors * SectorSize
	if uint64(len(buf)) < need {
		return fmt.Errorf("vixdisklib: Write buffer too small: have %d, need %d", len(buf), need)
	}
	err := C.VixDiskLib_Write(h.handle, C.VixDiskLibSectorType(startSector), C.VixDiskLibSectorType(numSectors),
		(*C.uint8)(unsafe.Pointer(&buf[0])))
	return newError("Write", err)
}

func boolToC(b bool) C.int32_t {
	if b {
		return 1
	}
	return 0
}
