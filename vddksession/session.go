// Package vddksession manages the lifetime of one VDDK connection: the
// connect/prepare-access handshake, the read or write disk handle it
// opens on top of that connection, and the idempotent teardown that must
// run exactly once regardless of whether the run succeeded, failed, or
// was interrupted by a signal.
package vddksession

import (
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/bareos/vadpdumper/vixdisklib"
	"github.com/bareos/vadpdumper/wire"
)

const (
	apiVersionMajor = 6
	apiVersionMinor = 5
)

// Options configures how a Session connects and what it cleans up on
// Close.
type Options struct {
	Spec                vixdisklib.ConnectSpec
	ReadOnly            bool
	LocalVMDK           bool
	CleanupOnStart      bool
	CleanupOnDisconnect bool
	ConfigFile          string
	ForcedTransport     string
}

// Session owns exactly one VixDiskLib connection and the read and/or write
// handles opened against it. Close holds closeMu for its whole teardown,
// so concurrent Close calls tear down only once; Open, OpenRead and
// CreateAndOpenWrite set their fields without taking closeMu.
type Session struct {
	opts   Options
	params *vixdisklib.ConnectParams
	conn   *vixdisklib.Connection

	readHandle  *vixdisklib.DiskHandle
	writeHandle *vixdisklib.DiskHandle

	closeMu sync.Mutex
	closed  bool
}

// Open initializes VixDiskLib and connects using opts. Callers must call
// Close exactly once, however the run ends.
func Open(opts Options) (*Session, error) {
	if err := vixdisklib.InitEx(apiVersionMajor, apiVersionMinor, "", opts.ConfigFile); err != nil {
		return nil, fmt.Errorf("vddksession: init: %w", err)
	}

	s := &Session{opts: opts}

	params, err := vixdisklib.AllocateConnectParams(opts.Spec)
	if err != nil {
		vixdisklib.Exit()
		return nil, fmt.Errorf("vddksession: allocate connect params: %w", err)
	}
	s.params = params

	if opts.CleanupOnStart {
		cleaned, remaining, cerr := vixdisklib.Cleanup(opts.Spec)
		if cerr != nil {
			log.WithError(cerr).Warn("pre-run VDDK cleanup failed, continuing anyway")
		} else {
			log.WithFields(log.Fields{"cleaned_up": cleaned, "remaining": remaining}).Info("pre-run VDDK cleanup complete")
		}
	}

	if !opts.LocalVMDK {
		if err := vixdisklib.PrepareForAccess(params); err != nil {
			s.Close()
			return nil, fmt.Errorf("vddksession: prepare for access: %w", err)
		}
	}

	conn, err := vixdisklib.ConnectEx(params, opts.ReadOnly, opts.ForcedTransport)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("vddksession: connect: %w", err)
	}
	s.conn = conn

	return s, nil
}

// OpenRead opens diskPath for reading, the source side of a dump.
func (s *Session) OpenRead(diskPath string, flags vixdisklib.OpenFlags) error {
	h, err := vixdisklib.Open(s.conn, diskPath, flags)
	if err != nil {
		return fmt.Errorf("vddksession: open for read %q: %w", diskPath, err)
	}
	s.readHandle = h
	log.WithFields(log.Fields{"disk": diskPath, "transport": vixdisklib.TransportMode(h)}).Info("opened source disk")
	return nil
}

// CreateAndOpenWrite creates diskPath (unless it already exists and the
// caller only wants it opened) then opens it for writing, the target side
// of a restore.
func (s *Session) CreateAndOpenWrite(diskPath string, create bool, createParams vixdisklib.CreateParams) error {
	if create {
		if err := vixdisklib.Create(s.conn, diskPath, createParams); err != nil {
			return fmt.Errorf("vddksession: create %q: %w", diskPath, err)
		}
	}
	h, err := vixdisklib.Open(s.conn, diskPath, 0)
	if err != nil {
		return fmt.Errorf("vddksession: open for write %q: %w", diskPath, err)
	}
	s.writeHandle = h
	log.WithFields(log.Fields{"disk": diskPath, "transport": vixdisklib.TransportMode(h)}).Info("opened target disk")
	return nil
}

// ReadHandle returns the source disk handle opened by OpenRead, or nil.
func (s *Session) ReadHandle() *vixdisklib.DiskHandle { return s.readHandle }

// WriteHandle returns the target disk handle opened by CreateAndOpenWrite,
// or nil.
func (s *Session) WriteHandle() *vixdisklib.DiskHandle { return s.writeHandle }

// Geometry fetches capacity and geometry from the source disk handle, or
// from the target disk handle when no source handle is open (restore), and
// converts it to the wire package's representation.
func (s *Session) Geometry() (wire.Geometry, uint64, error) {
	h := s.readHandle
	if h == nil {
		h = s.writeHandle
	}
	info, err := vixdisklib.GetInfo(h)
	if err != nil {
		return wire.Geometry{}, 0, fmt.Errorf("vddksession: get info: %w", err)
	}
	return wire.Geometry{
		BiosCylinders: info.BiosCylinders,
		BiosHeads:     info.BiosHeads,
		BiosSectors:   info.BiosSectors,
		PhysCylinders: info.PhysCylinders,
		PhysHeads:     info.PhysHeads,
		PhysSectors:   info.PhysSectors,
		PhysCapacity:  info.Capacity,
		AdapterType:   uint32(info.AdapterType),
	}, info.Capacity, nil
}

// Close tears down every resource this session holds, in the same order
// the original tool's cleanup() does: handles, then connection (with an
// optional VixDiskLib_Cleanup), then EndAccess, then connect params, then
// library exit. Safe to call more than once, and safe to call from a
// signal handler running on a different goroutine.
func (s *Session) Close() {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	if s.closed {
		return
	}
	s.closed = true

	if s.readHandle != nil {
		s.readHandle.Close()
		s.readHandle = nil
	}
	if s.writeHandle != nil {
		s.writeHandle.Close()
		s.writeHandle = nil
	}
	if s.conn != nil {
		s.conn.Disconnect()
		if s.opts.CleanupOnDisconnect {
			if cleaned, remaining, err := vixdisklib.Cleanup(s.opts.Spec); err != nil {
				log.WithError(err).Warn("post-run VDDK cleanup failed")
			} else {
				log.WithFields(log.Fields{"cleaned_up": cleaned, "remaining": remaining}).Info("post-run VDDK cleanup complete")
			}
		}
		s.conn = nil
	}
	if s.params != nil {
		if !s.opts.LocalVMDK {
			if err := vixdisklib.EndAccess(s.params); err != nil {
				log.WithError(err).Warn("failed to end VDDK access")
			}
		}
		s.params.Free()
		s.params = nil
	}
	vixdisklib.Exit()
}
