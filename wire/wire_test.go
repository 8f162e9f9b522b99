package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskHeaderRoundTrip(t *testing.T) {
	h := NewDiskHeader(1<<30, 4096, Geometry{
		BiosCylinders: 1024,
		BiosHeads:     255,
		BiosSectors:   63,
		PhysCylinders: 2048,
		PhysHeads:     255,
		PhysSectors:   63,
		PhysCapacity:  1 << 30 / SectorSize,
		AdapterType:   1,
	})

	var buf bytes.Buffer
	require.NoError(t, WriteDiskHeader(&buf, h))
	assert.Equal(t, 128, buf.Len())

	got, err := ReadDiskHeader(&buf)
	require.NoError(t, err)
	assert.Equal(t, h, got)
}

func TestReadDiskHeaderRejectsBadMagic(t *testing.T) {
	h := NewDiskHeader(0, 0, Geometry{})
	h.EndMagic = 0xdeadbeef

	var buf bytes.Buffer
	require.NoError(t, WriteDiskHeader(&buf, h))
	_, err := ReadDiskHeader(&buf)
	assert.Error(t, err)
}

func TestMetaRecordRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	recs := []MetaRecord{
		{Key: "ddb.adapterType", Value: []byte("lsilogic")},
		{Key: "ddb.geometry.cylinders", Value: []byte("1024")},
		{Key: "empty.value", Value: nil},
	}
	for _, r := range recs {
		require.NoError(t, WriteMetaRecord(&buf, r))
	}
	require.NoError(t, WriteMetaTerminator(&buf))

	var got []MetaRecord
	for {
		rec, ok, err := ReadMetaRecord(&buf)
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, rec)
	}

	require.Len(t, got, len(recs))
	for i, r := range recs {
		assert.Equal(t, r.Key, got[i].Key)
		assert.Equal(t, r.Value, got[i].Value)
	}
}

func TestReadMetaRecordDetectsTerminatorImmediately(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMetaTerminator(&buf))
	_, ok, err := ReadMetaRecord(&buf)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestChunkHeaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteChunkHeader(&buf, 4096, 3*SectorSize))
	hdr, err := ReadChunkHeader(&buf)
	require.NoError(t, err)
	assert.Equal(t, uint64(4096), hdr.StartOffset)
	assert.Equal(t, uint64(3*SectorSize), hdr.Length)
}

func TestWriteChunkHeaderRejectsUnalignedLength(t *testing.T) {
	var buf bytes.Buffer
	err := WriteChunkHeader(&buf, 0, SectorSize+1)
	assert.Error(t, err)
}

func TestWriteChunkHeaderRejectsZeroLength(t *testing.T) {
	var buf bytes.Buffer
	err := WriteChunkHeader(&buf, 0, 0)
	assert.Error(t, err)
}

type shortWriter struct {
	max int
	buf bytes.Buffer
}

func (w *shortWriter) Write(p []byte) (int, error) {
	if len(p) > w.max {
		p = p[:w.max]
	}
	return w.buf.Write(p)
}

func TestWriteFullRetriesOnShortWrites(t *testing.T) {
	w := &shortWriter{max: 3}
	data := []byte("0123456789")
	n, err := WriteFull(w, data)
	require.NoError(t, err)
	assert.Equal(t, len(data), n)
	assert.Equal(t, data, w.buf.Bytes())
}

func TestReadFullReturnsErrorOnTruncatedInput(t *testing.T) {
	r := bytes.NewReader([]byte("short"))
	buf := make([]byte, 10)
	_, err := ReadFull(r, buf)
	assert.Error(t, err)
}

func TestFullStreamOrdering(t *testing.T) {
	var buf bytes.Buffer
	h := NewDiskHeader(2*SectorSize, 0, Geometry{})
	require.NoError(t, WriteDiskHeader(&buf, h))
	require.NoError(t, WriteMetaRecord(&buf, MetaRecord{Key: "k", Value: []byte("v")}))
	require.NoError(t, WriteMetaTerminator(&buf))
	require.NoError(t, WriteChunkHeader(&buf, 0, SectorSize))
	_, err := buf.Write(make([]byte, SectorSize))
	require.NoError(t, err)

	gotHeader, err := ReadDiskHeader(&buf)
	require.NoError(t, err)
	assert.Equal(t, h, gotHeader)

	rec, ok, err := ReadMetaRecord(&buf)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "k", rec.Key)

	_, ok, err = ReadMetaRecord(&buf)
	require.NoError(t, err)
	assert.False(t, ok)

	chunkHdr, err := ReadChunkHeader(&buf)
	require.NoError(t, err)
	assert.Equal(t, uint64(SectorSize), chunkHdr.Length)
}
