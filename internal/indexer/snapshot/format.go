// Package snapshot persists an Index as a single self-checking blob and
// stores that blob on disk, in bolt, or in Redis.
//
// A snapshot is a 64-byte header, the (optionally compressed) CBOR encoding
// of index.Data, and a 32-byte footer holding the BLAKE3 digest of the
// uncompressed payload.
package snapshot

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/zeebo/blake3"

	"github.com/Adithya-Monish-Kumar-K/vectorsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/pkg/codec"
	apperrors "github.com/Adithya-Monish-Kumar-K/vectorsearch/pkg/errors"
)

const (
	MagicBytes    uint32 = 0x56534E50 // "VSNP"
	FormatVersion uint32 = 1
	HeaderSize    int    = 64
	FooterSize    int    = 32

	maxRawSize = 1 << 36
)

// Header is the fixed-size preamble of a snapshot.
type Header struct {
	Magic       uint32
	Version     uint32
	Compression Compression
	TermCount   uint32
	DocCount    uint32
	NormCount   uint32
	CreatedAt   int64
	RawSize     uint64
	PayloadSize uint64
}

func (h Header) marshal() []byte {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint32(buf[4:8], h.Version)
	buf[8] = byte(h.Compression)
	binary.LittleEndian.PutUint32(buf[12:16], h.TermCount)
	binary.LittleEndian.PutUint32(buf[16:20], h.DocCount)
	binary.LittleEndian.PutUint32(buf[20:24], h.NormCount)
	binary.LittleEndian.PutUint64(buf[24:32], uint64(h.CreatedAt))
	binary.LittleEndian.PutUint64(buf[32:40], h.RawSize)
	binary.LittleEndian.PutUint64(buf[40:48], h.PayloadSize)
	return buf
}

func parseHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, fmt.Errorf("snapshot shorter than header (%d bytes): %w", len(buf), apperrors.ErrCorruptSnapshot)
	}
	h := Header{
		Magic:       binary.LittleEndian.Uint32(buf[0:4]),
		Version:     binary.LittleEndian.Uint32(buf[4:8]),
		Compression: Compression(buf[8]),
		TermCount:   binary.LittleEndian.Uint32(buf[12:16]),
		DocCount:    binary.LittleEndian.Uint32(buf[16:20]),
		NormCount:   binary.LittleEndian.Uint32(buf[20:24]),
		CreatedAt:   int64(binary.LittleEndian.Uint64(buf[24:32])),
		RawSize:     binary.LittleEndian.Uint64(buf[32:40]),
		PayloadSize: binary.LittleEndian.Uint64(buf[40:48]),
	}
	if h.Magic != MagicBytes {
		return h, fmt.Errorf("bad magic bytes %x: %w", h.Magic, apperrors.ErrCorruptSnapshot)
	}
	if h.Version != FormatVersion {
		return h, fmt.Errorf("unsupported snapshot version %d: %w", h.Version, apperrors.ErrCorruptSnapshot)
	}
	return h, nil
}

// Encode serializes idx. When compression does not shrink the payload it
// is stored uncompressed and the header says so.
func Encode(idx *index.Index, comp Compression) ([]byte, error) {
	raw, err := codec.Marshal(idx.Export())
	if err != nil {
		return nil, fmt.Errorf("encoding index: %w", err)
	}
	payload, used, err := compress(raw, comp)
	if err != nil {
		return nil, err
	}

	h := Header{
		Magic:       MagicBytes,
		Version:     FormatVersion,
		Compression: used,
		TermCount:   uint32(idx.Dictionary().Len()),
		DocCount:    uint32(idx.NumDocuments()),
		NormCount:   uint32(idx.NumNorms()),
		CreatedAt:   time.Now().Unix(),
		RawSize:     uint64(len(raw)),
		PayloadSize: uint64(len(payload)),
	}
	digest := blake3.Sum256(raw)

	var buf bytes.Buffer
	buf.Grow(HeaderSize + len(payload) + FooterSize)
	buf.Write(h.marshal())
	buf.Write(payload)
	buf.Write(digest[:])
	return buf.Bytes(), nil
}

// Decode verifies and deserializes a snapshot produced by Encode. Any
// structural, checksum, or content problem yields ErrCorruptSnapshot.
func Decode(data []byte) (*index.Index, Header, error) {
	h, err := parseHeader(data)
	if err != nil {
		return nil, h, err
	}
	want := uint64(HeaderSize) + h.PayloadSize + uint64(FooterSize)
	if uint64(len(data)) != want {
		return nil, h, fmt.Errorf("snapshot is %d bytes, header implies %d: %w",
			len(data), want, apperrors.ErrCorruptSnapshot)
	}
	if h.RawSize > maxRawSize {
		return nil, h, fmt.Errorf("payload claims %d bytes: %w", h.RawSize, apperrors.ErrCorruptSnapshot)
	}
	payload := data[HeaderSize : HeaderSize+int(h.PayloadSize)]
	footer := data[HeaderSize+int(h.PayloadSize):]

	raw, err := decompress(payload, h.Compression, int(h.RawSize))
	if err != nil {
		return nil, h, fmt.Errorf("%v: %w", err, apperrors.ErrCorruptSnapshot)
	}
	digest := blake3.Sum256(raw)
	if !bytes.Equal(digest[:], footer) {
		return nil, h, fmt.Errorf("payload digest mismatch: %w", apperrors.ErrCorruptSnapshot)
	}

	var d index.Data
	if err := codec.Unmarshal(raw, &d); err != nil {
		return nil, h, fmt.Errorf("decoding index: %v: %w", err, apperrors.ErrCorruptSnapshot)
	}
	idx, err := index.FromData(d)
	if err != nil {
		return nil, h, err
	}
	return idx, h, nil
}

// Fingerprint identifies the content of idx: the hex BLAKE3 digest of its
// deterministic encoding. Equal indexes have equal fingerprints.
func Fingerprint(idx *index.Index) (string, error) {
	raw, err := codec.Marshal(idx.Export())
	if err != nil {
		return "", fmt.Errorf("encoding index: %w", err)
	}
	sum := blake3.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
