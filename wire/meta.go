package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// metaRecordHeaderSize is the fixed wire size of a MetaRecord header:
// magic, keyLen, valueLen, magic.
const metaRecordHeaderSize = 4 + 4 + 4 + 4

type metaRecordHeader struct {
	StartMagic uint32
	KeyLen     uint32
	ValueLen   uint32
	EndMagic   uint32
}

// MetaRecord is one VDDK metadata key/value pair carried between the disk
// header and the first DataChunk. Key is stored NUL-terminated on the wire;
// Value is raw bytes with no implied encoding.
type MetaRecord struct {
	Key   string
	Value []byte
}

// WriteMetaRecord writes a single metadata record to w.
func WriteMetaRecord(w io.Writer, rec MetaRecord) error {
	keyBytes := append([]byte(rec.Key), 0)
	hdr := metaRecordHeader{
		StartMagic: Magic,
		KeyLen:     uint32(len(keyBytes)),
		ValueLen:   uint32(len(rec.Value)),
		EndMagic:   Magic,
	}
	if err := binary.Write(w, binary.LittleEndian, hdr); err != nil {
		return fmt.Errorf("write meta record header: %w", err)
	}
	if _, err := w.Write(keyBytes); err != nil {
		return fmt.Errorf("write meta record key: %w", err)
	}
	if len(rec.Value) > 0 {
		if _, err := w.Write(rec.Value); err != nil {
			return fmt.Errorf("write meta record value: %w", err)
		}
	}
	return nil
}

// WriteMetaTerminator writes the sentinel record (keyLen==0, valueLen==0)
// that ends the metadata section of the stream.
func WriteMetaTerminator(w io.Writer) error {
	hdr := metaRecordHeader{StartMagic: Magic, EndMagic: Magic}
	if err := binary.Write(w, binary.LittleEndian, hdr); err != nil {
		return fmt.Errorf("write meta terminator: %w", err)
	}
	return nil
}

// ReadMetaRecord reads one MetaRecord header plus payload from r. When the
// header is the terminator (keyLen==0 && valueLen==0), ok is false and rec
// is zero.
func ReadMetaRecord(r io.Reader) (rec MetaRecord, ok bool, err error) {
	var hdr metaRecordHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return MetaRecord{}, false, fmt.Errorf("read meta record header: %w", err)
	}
	if hdr.StartMagic != Magic {
		return MetaRecord{}, false, fmt.Errorf("meta record: bad start magic %#x, want %#x", hdr.StartMagic, Magic)
	}
	if hdr.EndMagic != Magic {
		return MetaRecord{}, false, fmt.Errorf("meta record: bad end magic %#x, want %#x", hdr.EndMagic, Magic)
	}
	if hdr.KeyLen == 0 && hdr.ValueLen == 0 {
		return MetaRecord{}, false, nil
	}

	keyBytes := make([]byte, hdr.KeyLen)
	if _, err := io.ReadFull(r, keyBytes); err != nil {
		return MetaRecord{}, false, fmt.Errorf("read meta record key: %w", err)
	}
	var value []byte
	if hdr.ValueLen > 0 {
		value = make([]byte, hdr.ValueLen)
		if _, err := io.ReadFull(r, value); err != nil {
			return MetaRecord{}, false, fmt.Errorf("read meta record value: %w", err)
		}
	}

	key := string(keyBytes)
	if n := len(key); n > 0 && key[n-1] == 0 {
		key = key[:n-1]
	}
	return MetaRecord{Key: key, Value: value}, true, nil
}
