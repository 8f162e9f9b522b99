//go:build cgo

package vixdisklib

/*
#include <stdlib.h>
#include "vixDiskLib.h"
*/
import "C"

import (
	"strings"
	"unsafe"
)

// ReadMetadata fetches the value stored under key, first querying the SDK
// for the required buffer size (the two-call pattern VixDiskLib_ReadMetadata
// requires) and then reading into a correctly sized buffer.
func ReadMetadata(h *DiskHandle, key string) ([]byte, error) {
	cKey := C.CString(key)
	defer C.free(unsafe.Pointer(cKey))

	var required C.size_t
	err := C.VixDiskLib_ReadMetadata(h.handle, cKey, nil, 0, &required)
	if err != C.VIX_OK && err != C.VIX_E_BUFFER_TOOSMALL {
		return nil, newError("ReadMetadata(size)", err)
	}
	if required == 0 {
		return []byte{}, nil
	}

	buf := make([]byte, required)
	err = C.VixDiskLib_ReadMetadata(h.handle, cKey, (*C.char)(unsafe.Pointer(&buf[0])), required, nil)
	if err != C.VIX_OK {
		return nil, newError("ReadMetadata", err)
	}
	return buf, nil
}

// WriteMetadata stores value under key, replacing any existing value.
func WriteMetadata(h *DiskHandle, key string, value []byte) error {
	cKey := C.CString(key)
	defer C.free(unsafe.Pointer(cKey))
	cVal := C.CString(string(value))
	defer C.free(unsafe.Pointer(cVal))
	err := C.VixDiskLib_WriteMetadata(h.handle, cKey, cVal)
	return newError("WriteMetadata", err)
}

// MetadataKeys lists every metadata key currently stored on the disk, using
// the same size-then-fetch pattern as ReadMetadata. Keys come back
// NUL-separated from the SDK; this splits them into a Go slice.
func MetadataKeys(h *DiskHandle) ([]string, error) {
	var required C.size_t
	err := C.VixDiskLib_GetMetadataKeys(h.handle, nil, 0, &required)
	if err != C.VIX_OK && err != C.VIX_E_BUFFER_TOOSMALL {
		return nil, newError("GetMetadataKeys(size)", err)
	}
	if required == 0 {
		return nil, nil
	}

	buf := make([]byte, required)
	err = C.VixDiskLib_GetMetadataKeys(h.handle, (*C.char)(unsafe.Pointer(&buf[0])), required, nil)
	if err != C.VIX_OK {
		return nil, newError("GetMetadataKeys", err)
	}

	raw := string(buf)
	parts := strings.FieldsFunc(raw, func(r rune) bool { return r == 0 })
	return parts, nil
}
