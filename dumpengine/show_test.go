package dumpengine

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bareos/vadpdumper/wire"
)

func buildStream(t *testing.T, chunks [][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer

	header := wire.NewDiskHeader(uint64(len(chunks))*wire.SectorSize, 0, wire.Geometry{})
	require.NoError(t, wire.WriteDiskHeader(&buf, header))
	require.NoError(t, wire.WriteMetaRecord(&buf, wire.MetaRecord{Key: "uuid", Value: []byte("ABC")}))
	require.NoError(t, wire.WriteMetaTerminator(&buf))

	offset := uint64(0)
	for _, data := range chunks {
		require.NoError(t, wire.WriteChunkHeader(&buf, offset, uint64(len(data))))
		_, err := wire.WriteFull(&buf, data)
		require.NoError(t, err)
		offset += uint64(len(data))
	}
	return buf.Bytes()
}

func TestShowAcceptsWellFormedStream(t *testing.T) {
	chunk := bytes.Repeat([]byte{0xAB}, wire.SectorSize*2)
	stream := buildStream(t, [][]byte{chunk})

	err := Show(context.Background(), bytes.NewReader(stream), ShowOptions{})
	assert.NoError(t, err)
}

func TestShowRejectsBadHeaderMagic(t *testing.T) {
	stream := buildStream(t, nil)
	stream[0] ^= 0xFF

	err := Show(context.Background(), bytes.NewReader(stream), ShowOptions{})
	assert.Error(t, err)
}

func TestShowHonorsContextCancellation(t *testing.T) {
	chunk := bytes.Repeat([]byte{0x01}, wire.SectorSize)
	stream := buildStream(t, [][]byte{chunk})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Show(ctx, bytes.NewReader(stream), ShowOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}
