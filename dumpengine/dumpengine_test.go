package dumpengine

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bareos/vadpdumper/vixdisklib"
	"github.com/bareos/vadpdumper/wire"
)

func TestCommonOptionsDefaults(t *testing.T) {
	var o CommonOptions
	assert.Equal(t, uint64(defaultSectorsPerCall), o.sectorsPerCall())
	assert.Equal(t, defaultQueueDepth, o.queueDepth())
}

func TestCommonOptionsHonorsExplicitValues(t *testing.T) {
	o := CommonOptions{SectorsPerCall: 64, QueueDepth: 4}
	assert.Equal(t, uint64(64), o.sectorsPerCall())
	assert.Equal(t, 4, o.queueDepth())
}

func TestNewLimiterNilWhenUnset(t *testing.T) {
	assert.Nil(t, newLimiter(0))
	assert.Nil(t, newLimiter(-1))
	assert.NotNil(t, newLimiter(10))
}

func TestWaitLimiterNoopWithoutLimiter(t *testing.T) {
	require.NoError(t, waitLimiter(context.Background(), nil, 4096))
}

func TestDiskTypeOrDefaultFallsBackToMonolithicSparse(t *testing.T) {
	dt, err := diskTypeOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, vixdisklib.DiskTypeMonolithicSparse, dt)
}

func TestDiskTypeOrDefaultRejectsUnknownName(t *testing.T) {
	_, err := diskTypeOrDefault("not-a-real-type")
	assert.Error(t, err)
}

// One writeHeader call followed by several writeData sub-batches must frame
// as a single DataChunk on the wire, not one per sub-batch.
func TestChunkSinkWritesOneHeaderPerIntervalAcrossSubBatches(t *testing.T) {
	var buf bytes.Buffer
	sink := chunkSink{stream: &buf}

	first := bytes.Repeat([]byte{0xAA}, wire.SectorSize)
	second := bytes.Repeat([]byte{0xBB}, wire.SectorSize)

	require.NoError(t, sink.writeHeader(0, uint64(len(first)+len(second))))
	require.NoError(t, sink.writeData(0, first))
	require.NoError(t, sink.writeData(uint64(len(first)), second))

	hdr, err := wire.ReadChunkHeader(&buf)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), hdr.StartOffset)
	assert.Equal(t, uint64(len(first)+len(second)), hdr.Length)

	got := make([]byte, len(first)+len(second))
	_, err = wire.ReadFull(&buf, got)
	require.NoError(t, err)
	assert.Equal(t, append(append([]byte{}, first...), second...), got)

	assert.Equal(t, 0, buf.Len(), "no trailing bytes: exactly one header was written for both sub-batches")
}
