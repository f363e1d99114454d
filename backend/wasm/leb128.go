// Package wasm implements the WebAssembly backend: stack-machine
// lowering from the portable MachineInstr stream and LEB128 binary
// encoding. The LEB128 codec below is adapted from the shape of
// tetratelabs-wazero's wasm/leb128 package (unsigned/signed variable-
// length integer encoding used throughout the wasm binary format for
// section sizes, local counts and i32/i64 immediates).
package wasm

// EncodeUint32 LEB128-encodes an unsigned 32-bit value.
func EncodeUint32(v uint32) []byte {
	return encodeUvarint(uint64(v))
}

// EncodeUint64 LEB128-encodes an unsigned 64-bit value.
func EncodeUint64(v uint64) []byte {
	return encodeUvarint(v)
}

func encodeUvarint(v uint64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if v == 0 {
			return out
		}
	}
}

// EncodeInt32 LEB128-encodes a signed 32-bit value.
func EncodeInt32(v int32) []byte {
	return encodeVarint(int64(v))
}

// EncodeInt64 LEB128-encodes a signed 64-bit value.
func EncodeInt64(v int64) []byte {
	return encodeVarint(v)
}

func encodeVarint(v int64) []byte {
	var out []byte
	more := true
	for more {
		b := byte(v & 0x7f)
		v >>= 7
		signBitSet := b&0x40 != 0
		if (v == 0 && !signBitSet) || (v == -1 && signBitSet) {
			more = false
		} else {
			b |= 0x80
		}
		out = append(out, b)
	}
	return out
}

// DecodeUint32 reads an unsigned LEB128 value starting at offset,
// returning the value and the number of bytes consumed.
func DecodeUint32(b []byte, offset int) (uint32, int) {
	var result uint64
	var shift uint
	i := offset
	for {
		byt := b[i]
		result |= uint64(byt&0x7f) << shift
		i++
		if byt&0x80 == 0 {
			break
		}
		shift += 7
	}
	return uint32(result), i - offset
}
