package value

import (
	"encoding/binary"
	"math"
)

// AppendHashBytes appends the canonical hash encoding of the value to dst.
// The encoding is a little-endian uint32 type tag followed by the payload:
// fixed-width integers and float bits little-endian, booleans one byte,
// strings and byte blobs length-prefixed with a uint64, timestamps as unix
// microseconds, lists as a uint32 element count followed by each element's
// encoding. Null encodes as its tag alone. Identical values always produce
// identical bytes, which is what makes siphash/fnv and partition_results
// stable across sessions.
func AppendHashBytes(dst []byte, v Value) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, uint32(v.Type()))
	switch v.Type() {
	case TypeNull:
	case TypeBool:
		if v.i != 0 {
			dst = append(dst, 1)
		} else {
			dst = append(dst, 0)
		}
	case TypeInt16:
		dst = binary.LittleEndian.AppendUint16(dst, uint16(v.i))
	case TypeInt32:
		dst = binary.LittleEndian.AppendUint32(dst, uint32(v.i))
	case TypeInt64:
		dst = binary.LittleEndian.AppendUint64(dst, uint64(v.i))
	case TypeUint64:
		dst = binary.LittleEndian.AppendUint64(dst, v.u)
	case TypeFloat32:
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(float32(v.f)))
	case TypeFloat64:
		dst = binary.LittleEndian.AppendUint64(dst, math.Float64bits(v.f))
	case TypeString:
		dst = binary.LittleEndian.AppendUint64(dst, uint64(len(v.s)))
		dst = append(dst, v.s...)
	case TypeBytes:
		dst = binary.LittleEndian.AppendUint64(dst, uint64(len(v.b)))
		dst = append(dst, v.b...)
	case TypeTimestamp:
		dst = binary.LittleEndian.AppendUint64(dst, uint64(v.t.UnixMicro()))
	case TypeList:
		dst = binary.LittleEndian.AppendUint32(dst, uint32(len(v.list)))
		for _, item := range v.list {
			dst = AppendHashBytes(dst, item)
		}
	}
	return dst
}

// HashBytes returns the canonical hash encoding of the value.
func HashBytes(v Value) []byte {
	return AppendHashBytes(make([]byte, 0, 16), v)
}
