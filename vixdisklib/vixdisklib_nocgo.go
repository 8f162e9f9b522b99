//go:build !cgo

// Package vixdisklib binds VMware's VixDiskLib C API. This file backs the
// package when built with CGO_ENABLED=0: every operation fails immediately
// rather than silently no-opping, since there is no way to talk to VDDK
// without cgo.
package vixdisklib

import "errors"

var errNoCGO = errors.New("vixdisklib: built without cgo; VDDK access is unavailable")

type DiskType int
type AdapterType int
type OpenFlags int

const (
	DiskTypeUnknown DiskType = iota
	DiskTypeMonolithicSparse
	DiskTypeMonolithicFlat
	DiskTypeSplitSparse
	DiskTypeSplitFlat
	DiskTypeVmfsFlat
	DiskTypeStreamOptimized
	DiskTypeVmfsThin
	DiskTypeVmfsSparse
)

const AdapterTypeScsiBuslogic AdapterType = 0
const OpenReadOnly OpenFlags = 1

const SectorSize = 512
const (
	MinChunkSize   = 8192
	MaxChunkNumber = 512
)

type ConnectSpec struct {
	VMXSpec       string
	Host          string
	ThumbPrint    string
	Username      string
	Password      string
	SnapshotMoRef string
}

type ConnectParams struct{}
type Connection struct{}
type DiskHandle struct{}
type Info struct {
	Capacity      uint64
	BiosCylinders uint32
	BiosHeads     uint32
	BiosSectors   uint32
	PhysCylinders uint32
	PhysHeads     uint32
	PhysSectors   uint32
	AdapterType   AdapterType
	NumLinks      int
}
type CreateParams struct {
	DiskType    DiskType
	AdapterType AdapterType
	Capacity    uint64
	HWVersion   uint16
}
type Block struct {
	Offset uint64
	Length uint64
}

func IsSuccess(err error) bool { return err == nil }

func AllocateConnectParams(ConnectSpec) (*ConnectParams, error) { return nil, errNoCGO }
func (p *ConnectParams) Free()                                  {}
func (p *ConnectParams) SnapshotMoRef() string                  { return "" }

func InitEx(int, int, string, string) error { return errNoCGO }
func Exit()                                 {}
func Cleanup(ConnectSpec) (int, int, error) { return 0, 0, errNoCGO }

func PrepareForAccess(*ConnectParams) error { return errNoCGO }
func EndAccess(*ConnectParams) error        { return errNoCGO }
func ConnectEx(*ConnectParams, bool, string) (*Connection, error) { return nil, errNoCGO }
func (c *Connection) Disconnect()                          {}

func Open(*Connection, string, OpenFlags) (*DiskHandle, error) { return nil, errNoCGO }
func Create(*Connection, string, CreateParams) error            { return errNoCGO }
func GetInfo(*DiskHandle) (Info, error)                         { return Info{}, errNoCGO }
func TransportMode(*DiskHandle) string                          { return "" }
func (h *DiskHandle) Close()                                    {}
func Read(*DiskHandle, uint64, uint64, []byte) error            { return errNoCGO }
func Write(*DiskHandle, uint64, uint64, []byte) error           { return errNoCGO }

func ReadMetadata(*DiskHandle, string) ([]byte, error)       { return nil, errNoCGO }
func WriteMetadata(*DiskHandle, string, []byte) error        { return errNoCGO }
func MetadataKeys(*DiskHandle) ([]string, error)             { return nil, errNoCGO }

func QueryAllocatedBlocks(*DiskHandle, uint64, uint64, uint64) ([]Block, error) { return nil, errNoCGO }

const Identity = "bareos-vadpdumper"

// PanicError mirrors the cgo build's type so callers can type-assert on it
// regardless of build mode; it is never actually constructed here.
type PanicError struct {
	Message string
}

func (e *PanicError) Error() string { return "vixdisklib: library panic: " + e.Message }

// TookPanic always reports no panic: without cgo, VDDK is never invoked at
// all, so its panic callback can never fire.
func TookPanic() error { return nil }
