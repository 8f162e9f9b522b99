// Package dumpengine implements the dump, restore and show state machines:
// it composes workfile, vddksession, diskplan, wire, copypipeline and
// inventory into the three top-level operations vadpdumper's CLI exposes.
package dumpengine

import (
	"context"
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/bareos/vadpdumper/vddksession"
	"github.com/bareos/vadpdumper/vixdisklib"
	"github.com/bareos/vadpdumper/wire"
)

// CommonOptions are the knobs shared by dump and restore.
type CommonOptions struct {
	WorkFilePath        string
	DiskNameOverride    string
	CreateLocal         bool
	LocalVMDK           bool
	DisableSizeCheck    bool
	CleanupOnDisconnect bool
	CleanupOnStart      bool
	MultiThreaded       bool
	SectorsPerCall      uint64
	DiskType            string
	ForcedTransport     string
	ConfigFile          string
	SkipInventoryCheck  bool
	RateLimitMBps       float64
	QueueDepth          int
}

func (o CommonOptions) sectorsPerCall() uint64 {
	if o.SectorsPerCall == 0 {
		return defaultSectorsPerCall
	}
	return o.SectorsPerCall
}

func (o CommonOptions) queueDepth() int {
	if o.QueueDepth <= 0 {
		return defaultQueueDepth
	}
	return o.QueueDepth
}

const (
	defaultSectorsPerCall = 1024
	defaultQueueDepth     = 32
)

// newLimiter builds a byte-rate limiter from a caller-supplied MB/s cap, or
// nil when no limit was requested. This is an addition beyond the original
// tool: nothing in it throttled VDDK I/O, so callers that don't set
// RateLimitMBps get unlimited throughput exactly as before.
func newLimiter(mbps float64) *rate.Limiter {
	if mbps <= 0 {
		return nil
	}
	bytesPerSec := mbps * 1024 * 1024
	burst := int(bytesPerSec)
	if burst < wire.SectorSize {
		burst = wire.SectorSize
	}
	return rate.NewLimiter(rate.Limit(bytesPerSec), burst)
}

func waitLimiter(ctx context.Context, l *rate.Limiter, n int) error {
	if l == nil {
		return nil
	}
	return l.WaitN(ctx, n)
}

// chunkSink is where a produced batch of sector data ends up: always the
// stream, optionally a raw file and/or a cloned VMDK write handle.
type chunkSink struct {
	stream io.Writer
	raw    *os.File
	clone  *vixdisklib.DiskHandle
}

// writeHeader frames one DataChunk header on the stream. Called once per
// emitted interval, before any of that interval's sub-batches are written.
func (s chunkSink) writeHeader(offset, length uint64) error {
	return wire.WriteChunkHeader(s.stream, offset, length)
}

// writeData writes one sub-batch of an interval already framed by
// writeHeader: the stream's raw bytes, and, if configured, the same bytes
// to a raw disk sink and/or a cloned VMDK write handle. No header is
// written here — callers must have already called writeHeader once for the
// interval this sub-batch belongs to.
func (s chunkSink) writeData(offset uint64, data []byte) error {
	if _, err := wire.WriteFull(s.stream, data); err != nil {
		return fmt.Errorf("dumpengine: write chunk data: %w", err)
	}
	if s.raw != nil {
		if _, err := s.raw.Seek(int64(offset), io.SeekStart); err != nil {
			return fmt.Errorf("dumpengine: seek raw sink: %w", err)
		}
		if _, err := wire.WriteFull(s.raw, data); err != nil {
			return fmt.Errorf("dumpengine: write raw sink: %w", err)
		}
	}
	if s.clone != nil {
		startSector := offset / wire.SectorSize
		numSectors := uint64(len(data)) / wire.SectorSize
		if err := vixdisklib.Write(s.clone, startSector, numSectors, data); err != nil {
			return fmt.Errorf("dumpengine: write clone sink: %w", err)
		}
	}
	return nil
}

// diskTypeOrDefault resolves opts.DiskType to a vixdisklib.DiskType,
// falling back to monolithic sparse (the original tool's default) when
// unset.
func diskTypeOrDefault(name string) (vixdisklib.DiskType, error) {
	if name == "" {
		return vixdisklib.DiskTypeMonolithicSparse, nil
	}
	return vddksession.DiskTypeByName(name)
}

func logStage(op, stage string) {
	log.WithFields(log.Fields{"op": op, "stage": stage}).Debug("entering stage")
}
