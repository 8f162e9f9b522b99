package dumpengine

import (
	"context"
	"errors"
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"

	"github.com/bareos/vadpdumper/wire"
)

// ShowOptions configures Show. Unlike Dump and Restore, Show needs no work
// file and never touches VDDK: it only parses the stream to confirm it is
// well formed.
type ShowOptions struct {
	SectorsPerCall uint64
}

// Show validates a stream previously produced by Dump without writing
// anything to any disk: it reads and checks the header, walks the metadata
// records, and consumes every data chunk, discarding the payload.
func Show(ctx context.Context, in io.Reader, opts ShowOptions) error {
	header, err := wire.ReadDiskHeader(in)
	if err != nil {
		return fmt.Errorf("dumpengine: read disk header: %w", err)
	}
	log.WithFields(log.Fields{
		"absolute_disk_length": header.AbsoluteDiskLength,
		"protocol_version":     header.ProtocolVersion,
	}).Info("stream header valid")

	metaCount := 0
	for {
		rec, ok, err := wire.ReadMetaRecord(in)
		if err != nil {
			return fmt.Errorf("dumpengine: read metadata record: %w", err)
		}
		if !ok {
			break
		}
		metaCount++
		log.WithField("key", rec.Key).Debug("metadata record")
	}

	sectorsPerCall := opts.SectorsPerCall
	if sectorsPerCall == 0 {
		sectorsPerCall = defaultSectorsPerCall
	}

	chunkCount := 0
	var totalBytes uint64
	for {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		hdr, err := wire.ReadChunkHeader(in)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}
		chunkCount++
		totalBytes += hdr.Length

		remaining := hdr.Length
		discard := make([]byte, sectorsPerCall*wire.SectorSize)
		for remaining > 0 {
			batch := uint64(len(discard))
			if batch > remaining {
				batch = remaining
			}
			if _, err := wire.ReadFull(in, discard[:batch]); err != nil {
				return fmt.Errorf("dumpengine: discard chunk data: %w", err)
			}
			remaining -= batch
		}
	}

	log.WithFields(log.Fields{"metadata_records": metaCount, "chunks": chunkCount, "bytes": totalBytes}).Info("stream valid")
	return nil
}
