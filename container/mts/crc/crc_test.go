/*
NAME
  crc_test.go

AUTHOR
  Saxon Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package crc

import "testing"

// minimalPAT is a well-formed PAT section (table_id 0x00) including its
// trailing CRC, used to check that VerifySection accepts a correct
// section and rejects single-bit corruption anywhere in it.
func minimalPAT() []byte {
	body := []byte{
		0x00,       // table_id
		0xb0, 0x0d, // syntax=1, section_length=13
		0x78, 0x78, // transport_stream_id
		0xc1,       // version, current_next
		0x00,       // section_number
		0x00,       // last_section_number
		0x00, 0x01, // program_number
		0xe1, 0x00, // reserved + PID
	}
	return AppendCRC(body)
}

func TestVerifySection(t *testing.T) {
	sec := minimalPAT()
	if !VerifySection(sec) {
		t.Fatalf("well-formed section failed CRC verification")
	}
}

func TestVerifySectionBitFlip(t *testing.T) {
	sec := minimalPAT()
	for i := range sec {
		for bit := 0; bit < 8; bit++ {
			flipped := append([]byte(nil), sec...)
			flipped[i] ^= 1 << uint(bit)
			if VerifySection(flipped) {
				t.Fatalf("flipping byte %d bit %d still verified", i, bit)
			}
		}
	}
}

func TestChecksumKnownPoly(t *testing.T) {
	// The CRC-32/MPEG-2 table is built from the non-reflected polynomial
	// 0x04C11DB7, which is also bits.Reverse32 of the reflected IEEE
	// polynomial used by hash/crc32's built-in tables.
	if Poly != 0x04C11DB7 {
		t.Fatalf("unexpected polynomial: %#x", Poly)
	}
}
