package dumpengine

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bareos/vadpdumper/wire"
)

func TestDisableSizeCheckSkipped(t *testing.T) {
	assert.True(t, CommonOptions{DisableSizeCheck: true}.DisableSizeCheckSkipped(false))
	assert.True(t, CommonOptions{}.DisableSizeCheckSkipped(true))
	assert.False(t, CommonOptions{}.DisableSizeCheckSkipped(false))
}

func TestReadNextChunkHeaderReturnsNilAtCleanEOF(t *testing.T) {
	hdr, err := readNextChunkHeader(bytes.NewReader(nil))
	require.NoError(t, err)
	assert.Nil(t, hdr)
}

func TestReadNextChunkHeaderReturnsErrorOnTruncatedHeader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, wire.WriteChunkHeader(&buf, 0, wire.SectorSize))
	truncated := buf.Bytes()[:5]
	_, err := readNextChunkHeader(bytes.NewReader(truncated))
	assert.Error(t, err)
}

func TestReadNextChunkHeaderReturnsParsedHeader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, wire.WriteChunkHeader(&buf, 4096, wire.SectorSize*2))
	hdr, err := readNextChunkHeader(&buf)
	require.NoError(t, err)
	require.NotNil(t, hdr)
	assert.Equal(t, uint64(4096), hdr.StartOffset)
	assert.Equal(t, uint64(wire.SectorSize*2), hdr.Length)
}

func TestRestoreOrDiscardMetadataStopsAtTerminator(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, wire.WriteMetaRecord(&buf, wire.MetaRecord{Key: "uuid", Value: []byte("ABC")}))
	require.NoError(t, wire.WriteMetaTerminator(&buf))
	require.NoError(t, restoreOrDiscardMetadata(&buf, nil, false))
	assert.Equal(t, 0, buf.Len())
}
