package dumpengine

import (
	"context"
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/bareos/vadpdumper/copypipeline"
	"github.com/bareos/vadpdumper/diskplan"
	"github.com/bareos/vadpdumper/inventory"
	"github.com/bareos/vadpdumper/vddksession"
	"github.com/bareos/vadpdumper/vixdisklib"
	"github.com/bareos/vadpdumper/wire"
	"github.com/bareos/vadpdumper/workfile"
)

// DumpOptions configures Dump beyond CommonOptions.
type DumpOptions struct {
	CommonOptions
	SaveMetadata           bool
	DisableAllocationQuery bool
	ChunkSizeBytes         uint64
	CloneVMDKPath          string
	RawDiskPath            string
}

// Dump streams disk header, metadata and CBT-selected data chunks for the
// disk named in the work file to out.
func Dump(ctx context.Context, out io.Writer, opts DumpOptions) (err error) {
	defer func() {
		if p := vixdisklib.TookPanic(); p != nil {
			err = p
		}
	}()

	wf, err := workfile.Load(opts.WorkFilePath, workfile.LoadOptions{
		RequireSnapshotMoRef: true,
		DiskNameOverride:     opts.DiskNameOverride,
	})
	if err != nil {
		return err
	}

	if !opts.SkipInventoryCheck {
		logStage("dump", "inventory")
		if err := inventory.ValidateTarget(ctx, inventory.Target{
			Host:          wf.ConnParams.VsphereHostName,
			Username:      wf.ConnParams.VsphereUsername,
			Password:      wf.ConnParams.VspherePassword,
			VMMoRef:       wf.ConnParams.VMMoRef,
			SnapshotMoRef: wf.ConnParams.VsphereSnapshotRef,
		}); err != nil {
			return fmt.Errorf("dumpengine: inventory check: %w", err)
		}
	}

	spec := vixdisklib.ConnectSpec{
		Host:          wf.ConnParams.VsphereHostName,
		ThumbPrint:    wf.ConnParams.VsphereThumbPrint,
		Username:      wf.ConnParams.VsphereUsername,
		Password:      wf.ConnParams.VspherePassword,
		SnapshotMoRef: wf.ConnParams.VsphereSnapshotRef,
	}

	logStage("dump", "connect")
	sess, err := vddksession.Open(vddksession.Options{
		Spec:                spec,
		ReadOnly:            true,
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

	logStage("dump", "open-read")
	if err := sess.OpenRead(wf.DiskParams.DiskPath, vixdisklib.OpenReadOnly); err != nil {
		return err
	}

	geo, capacitySectors, err := sess.Geometry()
	if err != nil {
		return err
	}

	if opts.CloneVMDKPath != "" {
		diskType, terr := diskTypeOrDefault(opts.DiskType)
		if terr != nil {
			return terr
		}
		if err := sess.CreateAndOpenWrite(opts.CloneVMDKPath, opts.CreateLocal, vixdisklib.CreateParams{
			DiskType:    diskType,
			AdapterType: vixdisklib.AdapterTypeScsiBuslogic,
			Capacity:    capacitySectors,
		}); err != nil {
			return err
		}
	}

	header := wire.NewDiskHeader(wf.DiskChangeInfo.Length, wf.DiskChangeInfo.StartOffset, geo)
	if err := wire.WriteDiskHeader(out, header); err != nil {
		return err
	}

	if err := writeMetadata(sess, out, opts.SaveMetadata); err != nil {
		return err
	}

	var rawFile *os.File
	if opts.RawDiskPath != "" {
		rawFile, err = os.OpenFile(opts.RawDiskPath, os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return fmt.Errorf("dumpengine: open raw disk sink %q: %w", opts.RawDiskPath, err)
		}
		defer rawFile.Close()
	}

	saved, err := planSavedIntervals(sess.ReadHandle(), wf, capacitySectors, opts)
	if err != nil {
		return err
	}

	sink := chunkSink{stream: out, raw: rawFile, clone: sess.WriteHandle()}
	limiter := newLimiter(opts.RateLimitMBps)

	var pipeline *copypipeline.Pipeline
	if opts.MultiThreaded {
		pipeline = copypipeline.New(ctx, opts.queueDepth(), func(j copypipeline.Job) error {
			return sink.writeData(j.Offset, j.Data)
		})
		defer func() {
			if cerr := pipeline.Cleanup(); cerr != nil && err == nil {
				err = cerr
			}
		}()
	}

	sectorsPerCall := opts.sectorsPerCall()
	readHandle := sess.ReadHandle()

	for _, iv := range saved {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err := sink.writeHeader(iv.Start, iv.Length); err != nil {
			return err
		}

		offset := iv.Start
		remaining := iv.Length
		for remaining > 0 {
			batchBytes := sectorsPerCall * wire.SectorSize
			if batchBytes > remaining {
				batchBytes = remaining
			}
			startSector := offset / wire.SectorSize
			numSectors := batchBytes / wire.SectorSize

			buf := make([]byte, batchBytes)
			if err := vixdisklib.Read(readHandle, startSector, numSectors, buf); err != nil {
				return fmt.Errorf("dumpengine: read sectors at %d: %w", offset, err)
			}
			if err := waitLimiter(ctx, limiter, len(buf)); err != nil {
				return err
			}

			job := copypipeline.Job{Offset: offset, Data: buf}
			if pipeline != nil {
				if err := pipeline.Submit(job); err != nil {
					return err
				}
			} else if err := sink.writeData(offset, buf); err != nil {
				return err
			}

			offset += batchBytes
			remaining -= batchBytes
		}
		if pipeline != nil {
			if err := pipeline.Flush(); err != nil {
				return err
			}
		}
	}

	log.WithField("intervals", len(saved)).Info("dump complete")
	return nil
}

func writeMetadata(sess *vddksession.Session, out io.Writer, save bool) error {
	if save {
		keys, err := vixdisklib.MetadataKeys(sess.ReadHandle())
		if err != nil {
			return fmt.Errorf("dumpengine: list metadata keys: %w", err)
		}
		for _, key := range keys {
			value, err := vixdisklib.ReadMetadata(sess.ReadHandle(), key)
			if err != nil {
				return fmt.Errorf("dumpengine: read metadata %q: %w", key, err)
			}
			if err := wire.WriteMetaRecord(out, wire.MetaRecord{Key: key, Value: value}); err != nil {
				return err
			}
			if sess.WriteHandle() != nil {
				if err := vixdisklib.WriteMetadata(sess.WriteHandle(), key, value); err != nil {
					return fmt.Errorf("dumpengine: clone metadata %q: %w", key, err)
				}
			}
		}
	}
	return wire.WriteMetaTerminator(out)
}

func planSavedIntervals(readHandle *vixdisklib.DiskHandle, wf workfile.WorkFile, capacitySectors uint64, opts DumpOptions) ([]diskplan.Interval, error) {
	changed := make([]diskplan.Interval, len(wf.DiskChangeInfo.ChangedArea))
	for i, a := range wf.DiskChangeInfo.ChangedArea {
		changed[i] = diskplan.Interval{Start: a.Start, Length: a.Length}
	}

	var allocated []diskplan.Interval
	if opts.DisableAllocationQuery {
		allocated = diskplan.WholeDiskPlan(capacitySectors)
	} else {
		chunkSectors := opts.ChunkSizeBytes / wire.SectorSize
		var err error
		allocated, err = diskplan.PlanAllocation(diskplan.AllocationPlan{
			CapacitySectors:  capacitySectors,
			ChunkSectors:     chunkSectors,
			MinChunkSectors:  vixdisklib.MinChunkSize,
			MaxChunksPerCall: vixdisklib.MaxChunkNumber,
			Query: func(start, n, chunkSectors uint64) ([]diskplan.Block, error) {
				blocks, err := vixdisklib.QueryAllocatedBlocks(readHandle, start, n, chunkSectors)
				if err != nil {
					return nil, err
				}
				out := make([]diskplan.Block, len(blocks))
				for i, b := range blocks {
					out[i] = diskplan.Block{Offset: b.Offset, Length: b.Length}
				}
				return out, nil
			},
		})
		if err != nil {
			return nil, fmt.Errorf("dumpengine: plan allocation: %w", err)
		}
	}

	return diskplan.Intersect(changed, allocated), nil
}
