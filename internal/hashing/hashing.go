// Package hashing provides the named hash function families used by the
// partition fabric.
//
// Hash inputs are wire-visible: peers only compute compatible assignments
// when every instance feeds identical byte sequences into the same family.
// Integers are written big-endian, strings as raw UTF-8 bytes.
package hashing

import (
	"crypto/md5" //nolint:gosec // md5 is a selectable non-cryptographic partitioning hash here
	"encoding/binary"
	"fmt"
	"hash"
	"hash/crc32"

	"github.com/spaolacci/murmur3"
	"github.com/zeebo/xxh3"
)

// Supported hash function names.
const (
	Murmur3_32  = "murmur3_32"
	Murmur3_128 = "murmur3_128"
	CRC32       = "crc32"
	MD5         = "md5"
	XXH3_64     = "xxh3_64"
)

// Function is a named hash family. The zero value is not usable; obtain one
// via ForName.
type Function struct {
	name    string
	factory func() hash.Hash
}

// ForName returns the hash family registered under name.
//
// Parameters:
//   - name: One of Murmur3_32, Murmur3_128, CRC32, MD5, XXH3_64
//
// Returns:
//   - Function: The matching family
//   - error: Non-nil when no family is registered under name
func ForName(name string) (Function, error) {
	switch name {
	case Murmur3_32:
		return Function{name: name, factory: func() hash.Hash { return murmur3.New32() }}, nil
	case Murmur3_128:
		return Function{name: name, factory: func() hash.Hash { return murmur3.New128() }}, nil
	case CRC32:
		return Function{name: name, factory: func() hash.Hash { return crc32.NewIEEE() }}, nil
	case MD5:
		return Function{name: name, factory: md5.New}, nil
	case XXH3_64:
		return Function{name: name, factory: func() hash.Hash { return xxh3.New() }}, nil
	default:
		return Function{}, fmt.Errorf("can't find hash function with name %q", name)
	}
}

// Name returns the registered family name.
func (f Function) Name() string {
	return f.name
}

// New returns a fresh streaming hasher of this family.
func (f Function) New() *Hasher {
	return &Hasher{h: f.factory()}
}

// Hasher accumulates input bytes and finishes into a Code.
//
// Put methods return the receiver so calls chain.
type Hasher struct {
	h hash.Hash
}

// PutInt writes v as 4 big-endian bytes.
func (h *Hasher) PutInt(v int32) *Hasher {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(v)) //nolint:gosec
	h.h.Write(buf[:])                             //nolint:errcheck // hash writers never fail

	return h
}

// PutLong writes v as 8 big-endian bytes.
func (h *Hasher) PutLong(v int64) *Hasher {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(v)) //nolint:gosec
	h.h.Write(buf[:])                             //nolint:errcheck // hash writers never fail

	return h
}

// PutString writes the raw UTF-8 bytes of s.
func (h *Hasher) PutString(s string) *Hasher {
	h.h.Write([]byte(s)) //nolint:errcheck // hash writers never fail

	return h
}

// Sum finishes the hash. The hasher remains usable; further Put calls extend
// the already-written input.
func (h *Hasher) Sum() Code {
	return Code{bytes: h.h.Sum(nil)}
}

// Code is a finished hash code of 4 to 16 bytes.
type Code struct {
	bytes []byte
}

// Bytes returns the raw code bytes.
func (c Code) Bytes() []byte {
	return c.bytes
}

// AsInt32 interprets the leading 4 bytes as a big-endian int32.
func (c Code) AsInt32() int32 {
	return int32(binary.BigEndian.Uint32(c.bytes[:4])) //nolint:gosec
}

// AsInt64 interprets the leading 8 bytes as a big-endian int64. Codes of
// 32-bit families are zero-extended, so their AsInt64 is always non-negative.
func (c Code) AsInt64() int64 {
	if len(c.bytes) < 8 {
		return int64(binary.BigEndian.Uint32(c.bytes[:4]))
	}

	return int64(binary.BigEndian.Uint64(c.bytes[:8])) //nolint:gosec
}
