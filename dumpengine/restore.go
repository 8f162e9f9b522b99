package dumpengine

import (
	"context"
	"errors"
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"

	"github.com/bareos/vadpdumper/vddksession"
	"github.com/bareos/vadpdumper/vixdisklib"
	"github.com/bareos/vadpdumper/wire"
	"github.com/bareos/vadpdumper/workfile"
)

// RestoreOptions configures Restore beyond CommonOptions.
type RestoreOptions struct {
	CommonOptions
	RestoreMetadata bool
}

// Restore reads a stream previously produced by Dump and writes its
// sectors to the disk named in the work file.
func Restore(ctx context.Context, in io.Reader, opts RestoreOptions) (err error) {
	defer func() {
		if p := vixdisklib.TookPanic(); p != nil {
			err = p
		}
	}()

	wf, err := workfile.Load(opts.WorkFilePath, workfile.LoadOptions{
		RequireSnapshotMoRef: false,
		DiskNameOverride:     opts.DiskNameOverride,
	})
	if err != nil {
		return err
	}

	spec := vixdisklib.ConnectSpec{
		Host:       wf.ConnParams.VsphereHostName,
		ThumbPrint: wf.ConnParams.VsphereThumbPrint,
		Username:   wf.ConnParams.VsphereUsername,
		Password:   wf.ConnParams.VspherePassword,
	}

	logStage("restore", "connect")
	sess, err := vddksession.Open(vddksession.Options{
		Spec:                spec,
		ReadOnly:            false,
		LocalVMDK:           opts.LocalVMDK,
		CleanupOnStart:      opts.CleanupOnStart,
		CleanupOnDisconnect: opts.CleanupOnDisconnect,
		ConfigFile:          opts.ConfigFile,
		ForcedTransport:     opts.ForcedTransport,
	})
	if err != nil {
		return err
	}
	defer sess.Close()

	header, err := wire.ReadDiskHeader(in)
	if err != nil {
		return fmt.Errorf("dumpengine: read disk header: %w", err)
	}

	if opts.CreateLocal {
		diskType, terr := diskTypeOrDefault(opts.DiskType)
		if terr != nil {
			return terr
		}
		if err := sess.CreateAndOpenWrite(wf.DiskParams.DiskPath, true, vixdisklib.CreateParams{
			DiskType:    diskType,
			AdapterType: vixdisklib.AdapterTypeScsiBuslogic,
			Capacity:    header.PhysCapacity,
		}); err != nil {
			return err
		}
	} else {
		if err := sess.CreateAndOpenWrite(wf.DiskParams.DiskPath, false, vixdisklib.CreateParams{}); err != nil {
			return err
		}
	}

	if !opts.DisableSizeCheckSkipped(opts.CreateLocal) {
		target, _, terr := sess.Geometry()
		if terr != nil {
			return terr
		}
		if err := vddksession.ValidateGeometry(target, header); err != nil {
			return err
		}
	}

	if err := restoreOrDiscardMetadata(in, sess.WriteHandle(), opts.RestoreMetadata); err != nil {
		return err
	}

	sectorsPerCall := opts.sectorsPerCall()
	absoluteStartSector := header.AbsoluteStartOffset / wire.SectorSize

	for {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		chunkHdr, err := readNextChunkHeader(in)
		if err != nil {
			return err
		}
		if chunkHdr == nil {
			break
		}
		if err := writeChunkInBatches(sess.WriteHandle(), in, *chunkHdr, absoluteStartSector, sectorsPerCall); err != nil {
			return err
		}
	}

	log.Info("restore complete")
	return nil
}

// DisableSizeCheckSkipped reports whether geometry validation should be
// skipped: either the caller explicitly disabled it, or a freshly created
// disk is exactly sized from the stream header and can't fail the check.
func (o CommonOptions) DisableSizeCheckSkipped(justCreated bool) bool {
	return o.DisableSizeCheck || justCreated
}

func restoreOrDiscardMetadata(in io.Reader, writeHandle *vixdisklib.DiskHandle, replay bool) error {
	for {
		rec, ok, err := wire.ReadMetaRecord(in)
		if err != nil {
			return fmt.Errorf("dumpengine: read metadata record: %w", err)
		}
		if !ok {
			return nil
		}
		if replay && writeHandle != nil {
			if err := vixdisklib.WriteMetadata(writeHandle, rec.Key, rec.Value); err != nil {
				return fmt.Errorf("dumpengine: replay metadata %q: %w", rec.Key, err)
			}
		}
	}
}

// readNextChunkHeader reads one ChunkHeader, translating a clean EOF at a
// record boundary (no bytes read at all) into (nil, nil) so callers can
// loop until the stream ends. A short read partway through a header is a
// genuine protocol error and is returned as such.
func readNextChunkHeader(in io.Reader) (*wire.ChunkHeader, error) {
	hdr, err := wire.ReadChunkHeader(in)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}
	return &hdr, nil
}

func writeChunkInBatches(writeHandle *vixdisklib.DiskHandle, in io.Reader, hdr wire.ChunkHeader, absoluteStartSector, sectorsPerCall uint64) error {
	remaining := hdr.Length
	offset := hdr.StartOffset
	for remaining > 0 {
		batchBytes := sectorsPerCall * wire.SectorSize
		if batchBytes > remaining {
			batchBytes = remaining
		}
		buf := make([]byte, batchBytes)
		if _, err := wire.ReadFull(in, buf); err != nil {
			return fmt.Errorf("dumpengine: read chunk data: %w", err)
		}
		if writeHandle != nil {
			startSector := absoluteStartSector + offset/wire.SectorSize
			numSectors := batchBytes / wire.SectorSize
			if err := vixdisklib.Write(writeHandle, startSector, numSectors, buf); err != nil {
				return fmt.Errorf("dumpengine: write sectors at %d: %w", offset, err)
			}
		}
		offset += batchBytes
		remaining -= batchBytes
	}
	return nil
}
