/*
NAME
  crc.go

DESCRIPTION
  crc implements the CRC-32/MPEG-2 checksum used to protect PSI/SI
  sections: polynomial 0x04C11DB7, register initialised to 0xFFFFFFFF,
  left-shift (non-reflected), no final XOR.

AUTHOR
  Saxon Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package crc implements the CRC-32/MPEG-2 algorithm used by PSI/SI
// section integrity checks.
package crc

import (
	"encoding/binary"
	"hash/crc32"
)

// Poly is the true (non-reflected) CRC-32/MPEG-2 polynomial.
const Poly = 0x04C11DB7

var table = makeTable(Poly)

// makeTable builds a 256-entry lookup table for the left-shift,
// non-reflected update below. bits.Reverse32(crc32.IEEE) also equals
// Poly; either expression may be used to build the same table.
func makeTable(poly uint32) *crc32.Table {
	var t crc32.Table
	for i := range t {
		c := uint32(i) << 24
		for j := 0; j < 8; j++ {
			if c&0x80000000 != 0 {
				c = (c << 1) ^ poly
			} else {
				c <<= 1
			}
		}
		t[i] = c
	}
	return &t
}

// Checksum computes the CRC-32/MPEG-2 checksum of b.
func Checksum(b []byte) uint32 {
	return update(0xffffffff, b)
}

func update(crc uint32, b []byte) uint32 {
	for _, v := range b {
		crc = table[byte(crc>>24)^v] ^ (crc << 8)
	}
	return crc
}

// VerifySection computes the CRC over the whole of b, which must include
// its own trailing 4-byte CRC field, and reports whether the result is
// zero (the section is intact).
func VerifySection(b []byte) bool {
	return Checksum(b) == 0
}

// AppendCRC appends a 4-byte big-endian CRC-32/MPEG-2 trailer computed
// over b to b and returns the extended slice.
func AppendCRC(b []byte) []byte {
	out := make([]byte, len(b)+4)
	copy(out, b)
	binary.BigEndian.PutUint32(out[len(b):], Checksum(b))
	return out
}
