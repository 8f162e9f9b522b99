//go:build cgo

// Package vixdisklib binds the subset of VMware's VixDiskLib C API that
// vadpdumper needs to open, read, write and query a virtual disk over
// VDDK's transport. VixDiskLib itself ships only as a proprietary binary
// SDK, so there is no Go module to import: this package is the boundary
// where cgo calls into libvixDiskLib.so directly.
//
// Every exported function here is a thin, allocation-aware wrapper around
// one VixDiskLib_* call: it converts Go strings/byte slices to the C
// calling convention, checks the returned VixError, and converts any
// failure into a Go error carrying the SDK's own error text.
package vixdisklib

/*
#cgo linux CFLAGS: -I/usr/include/vddk
#cgo linux LDFLAGS: -lvixDiskLib
#include <stdlib.h>
#include <string.h>
#include <stdarg.h>
#include <stdio.h>
#include "vixDiskLib.h"

static VixDiskLibConnectParams *vadp_alloc_connect_params() {
	return VixDiskLib_AllocateConnectParams();
}

extern void vadpPanicCallback(char *msg);

static void vadp_panic_trampoline(const char *fmt, va_list args) {
	char buf[4096];
	vsnprintf(buf, sizeof(buf), fmt, args);
	vadpPanicCallback(buf);
}

static VixDiskLibGenericLogFunc vadp_panic_func() {
	return (VixDiskLibGenericLogFunc)vadp_panic_trampoline;
}
*/
import "C"

import (
	"fmt"
	"sync"
	"unsafe"
)

// panicMu guards panicErr, set from the C panic callback trampoline. The
// original tool sets an exit code and calls exit() straight from that
// callback; here it only records the failure so the running operation can
// pick it up through TookPanic and map it to the documented panic exit
// code cooperatively.
var (
	panicMu  sync.Mutex
	panicErr error
)

//export vadpPanicCallback
func vadpPanicCallback(msg *C.char) {
	panicMu.Lock()
	defer panicMu.Unlock()
	panicErr = &PanicError{Message: C.GoString(msg)}
}

// PanicError reports that VixDiskLib invoked its panic callback, meaning
// the library considers itself in an unrecoverable state.
type PanicError struct {
	Message string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("vixdisklib: library panic: %s", e.Message)
}

// TookPanic reports the most recent panic the library has reported, if
// any. Callers should check it after any operation that might have
// triggered one and treat a non-nil result as fatal.
func TookPanic() error {
	panicMu.Lock()
	defer panicMu.Unlock()
	return panicErr
}

// DiskType mirrors VixDiskLibDiskType, the on-disk format requested when
// creating a new virtual disk.
type DiskType int

const (
	DiskTypeUnknown          DiskType = C.VIXDISKLIB_DISK_UNKNOWN
	DiskTypeMonolithicSparse DiskType = C.VIXDISKLIB_DISK_MONOLITHIC_SPARSE
	DiskTypeMonolithicFlat   DiskType = C.VIXDISKLIB_DISK_MONOLITHIC_FLAT
	DiskTypeSplitSparse      DiskType = C.VIXDISKLIB_DISK_SPLIT_SPARSE
	DiskTypeSplitFlat        DiskType = C.VIXDISKLIB_DISK_SPLIT_FLAT
	DiskTypeVmfsFlat         DiskType = C.VIXDISKLIB_DISK_VMFS_FLAT
	DiskTypeStreamOptimized  DiskType = C.VIXDISKLIB_DISK_STREAM_OPTIMIZED
	DiskTypeVmfsThin         DiskType = C.VIXDISKLIB_DISK_VMFS_THIN
	DiskTypeVmfsSparse       DiskType = C.VIXDISKLIB_DISK_VMFS_SPARSE
)

// AdapterType mirrors VixDiskLibAdapterType.
type AdapterType int

const (
	AdapterTypeScsiBuslogic AdapterType = C.VIXDISKLIB_ADAPTER_SCSI_BUSLOGIC
)

// OpenFlags mirrors the bitmask accepted by VixDiskLib_Open.
type OpenFlags int

const (
	OpenReadOnly OpenFlags = C.VIXDISKLIB_FLAG_OPEN_READ_ONLY
)

// SectorSize is VIXDISKLIB_SECTOR_SIZE: every offset and length the SDK
// deals in is counted in these units unless stated otherwise.
const SectorSize = C.VIXDISKLIB_SECTOR_SIZE

// MinChunkSize and MaxChunkNumber bound QueryAllocatedBlocks' arguments.
const (
	MinChunkSize   = C.VIXDISKLIB_MIN_CHUNK_SIZE
	MaxChunkNumber = C.VIXDISKLIB_MAX_CHUNK_NUMBER
)

// vixError wraps a raw VixError code together with the SDK-supplied
// diagnostic text, freed immediately after being copied into a Go string.
type vixError struct {
	op   string
	code C.VixError
	text string
}

func (e *vixError) Error() string {
	return fmt.Sprintf("vixdisklib: %s: %s (error %d)", e.op, e.text, uint64(e.code))
}

func newError(op string, err C.VixError) error {
	if err == C.VIX_OK {
		return nil
	}
	ctext := C.VixDiskLib_GetErrorText(err, nil)
	text := C.GoString(ctext)
	C.VixDiskLib_FreeErrorText(ctext)
	return &vixError{op: op, code: err, text: text}
}

// IsSuccess reports whether a VixError-derived error is nil, i.e. the call
// succeeded. It exists purely for readability at call sites that already
// hold a raw error value from this package.
func IsSuccess(err error) bool {
	return err == nil
}

// ConnectParams wraps a VixDiskLibConnectParams allocation. Callers must
// call Free once the params are no longer needed (after ConnectEx or on an
// early-exit error path).
type ConnectParams struct {
	ptr           *C.VixDiskLibConnectParams
	snapshotMoRef string
}

// ConnectSpec is the caller-supplied subset of connection information: a
// vCenter/ESXi hostname, credentials, and the moref identifying the VM and
// (when backing up) its snapshot.
type ConnectSpec struct {
	VMXSpec       string
	Host          string
	ThumbPrint    string
	Username      string
	Password      string
	SnapshotMoRef string
}

// AllocateConnectParams populates a new ConnectParams from spec.
func AllocateConnectParams(spec ConnectSpec) (*ConnectParams, error) {
	p := C.vadp_alloc_connect_params()
	if p == nil {
		return nil, fmt.Errorf("vixdisklib: AllocateConnectParams returned nil")
	}
	cp := &ConnectParams{ptr: p, snapshotMoRef: spec.SnapshotMoRef}

	setSpecString(&p.vmxSpec, spec.VMXSpec)
	setSpecString(&p.serverName, spec.Host)
	setSpecString(&p.thumbPrint, spec.ThumbPrint)
	setCreds(p, spec.Username, spec.Password)

	return cp, nil
}

// SnapshotMoRef is carried alongside the C connect params rather than in a
// connect-params field: ConnectEx passes it to VixDiskLib_ConnectEx as its
// snapshot argument.
func (p *ConnectParams) SnapshotMoRef() string {
	return p.snapshotMoRef
}

// Free releases the underlying VixDiskLibConnectParams. Safe to call once;
// callers must not use the ConnectParams afterward.
func (p *ConnectParams) Free() {
	if p == nil || p.ptr == nil {
		return
	}
	C.VixDiskLib_FreeConnectParams(p.ptr)
	p.ptr = nil
}

// InitEx initializes the VixDiskLib library. Must be called exactly once
// per process before any other VixDiskLib_* call, and paired with Exit.
func InitEx(majorAPIVersion, minorAPIVersion int, logLibDir, configFile string) error {
	cConfig := C.CString(configFile)
	defer C.free(unsafe.Pointer(cConfig))
	var cLibDir *C.char
	if logLibDir != "" {
		cLibDir = C.CString(logLibDir)
		defer C.free(unsafe.Pointer(cLibDir))
	}
	err := C.VixDiskLib_InitEx(
		C.uint32(majorAPIVersion), C.uint32(minorAPIVersion),
		nil, nil, C.vadp_panic_func(), // log/warn callbacks: none; panic callback: vadpPanicCallback
		cLibDir, cConfig,
	)
	return newError("InitEx", err)
}

// Exit tears down the library. Safe to call only after every connection,
// handle and connect-params allocation has already been released.
func Exit() {
	C.VixDiskLib_Exit()
}

// Cleanup runs VixDiskLib_Cleanup against a set of connection parameters,
// reclaiming any lingering snapshots or locks left by a crashed process
// using the same identity. Returns the counts the SDK reports.
func Cleanup(spec ConnectSpec) (numCleanedUp, numRemaining int, err error) {
	p, aerr := AllocateConnectParams(spec)
	if aerr != nil {
		return 0, 0, aerr
	}
	defer p.Free()

	var cCleaned, cRemaining C.uint32
	cerr := C.VixDiskLib_Cleanup(p.ptr, &cCleaned, &cRemaining)
	return int(cCleaned), int(cRemaining), newError("Cleanup", cerr)
}

func setSpecString(dst *[1024]C.char, s string) {
	if s == "" {
		return
	}
	cs := C.CString(s)
	defer C.free(unsafe.Pointer(cs))
	C.strncpy(&dst[0], cs, C.size_t(len(dst)-1))
}

// setCreds fills the union member of VixDiskLibConnectParams that
// corresponds to VIXDISKLIB_CRED_UID, the only credential type this tool
// supports (username/password, as opposed to session-ticket or SSPI auth).
func setCreds(p *C.VixDiskLibConnectParams, username, password string) {
	p.credType = C.VIXDISKLIB_CRED_UID
	uid := (*C.VixDiskLibConnectParamsUid)(unsafe.Pointer(&p.creds[0]))
	setSpecString(&uid.userName, username)
	setSpecString(&uid.password, password)
}
