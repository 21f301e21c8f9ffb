package rbtree

import (
	"encoding/binary"

	"github.com/minio/highwayhash"
	"github.com/pierrec/lz4/v4"
	"github.com/pkg/errors"
)

const (
	rawBlock byte = iota
	lz4Block
)

var digestKey = []byte{
	0x4c, 0x9a, 0x1e, 0x07, 0xd3, 0x62, 0xb8, 0x2f, 0x91, 0x5d, 0xe6, 0x0a, 0x73, 0xc4, 0x38, 0xfb,
	0x16, 0xa9, 0x5e, 0xd0, 0x87, 0x2b, 0xf4, 0x6c, 0x3d, 0xb1, 0x08, 0xe2, 0x59, 0x7f, 0xc6, 0x14}

// CompressUInt32Slice compresses a slice of uint32-s with LZ4. The first byte of the
// result tells whether the payload is an LZ4 block or the raw little-endian data,
// the latter being used when LZ4 cannot shrink the input.
func CompressUInt32Slice(data []uint32) []byte {
	if len(data) == 0 {
		return []byte{rawBlock}
	}
	src := make([]byte, len(data)*4)
	for i, v := range data {
		binary.LittleEndian.PutUint32(src[i*4:], v)
	}
	dst := make([]byte, 1+lz4.CompressBlockBound(len(src)))
	size, err := lz4.CompressBlock(src, dst[1:], nil)
	if err != nil || size == 0 || size >= len(src) {
		return append([]byte{rawBlock}, src...)
	}
	dst[0] = lz4Block
	finalDst := make([]byte, size+1)
	copy(finalDst, dst[:size+1])
	return finalDst
}

// DecompressUInt32Slice decompresses a slice of uint32-s previously compressed with
// CompressUInt32Slice. `result` must be preallocated.
func DecompressUInt32Slice(data []byte, result []uint32) error {
	if len(data) == 0 {
		return errors.New("empty compressed block")
	}
	expected := len(result) * 4
	var raw []byte
	switch data[0] {
	case rawBlock:
		raw = data[1:]
	case lz4Block:
		raw = make([]byte, expected)
		size, err := lz4.UncompressBlock(data[1:], raw)
		if err != nil {
			return errors.Wrap(err, "lz4 block")
		}
		raw = raw[:size]
	default:
		return errors.Errorf("unknown block type %d", data[0])
	}
	if len(raw) != expected {
		return errors.Errorf("decompressed %d bytes instead of %d", len(raw), expected)
	}
	for i := range result {
		result[i] = binary.LittleEndian.Uint32(raw[i*4:])
	}
	return nil
}

func digest(data []byte) uint64 {
	return highwayhash.Sum64(data, digestKey)
}
