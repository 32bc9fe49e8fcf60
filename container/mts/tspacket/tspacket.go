/*
NAME
  tspacket.go

DESCRIPTION
  tspacket implements the 188-byte MPEG-2 TS packet codec: header fields,
  adaptation field, PCR, and the PES PTS/DTS 5-byte marker-interleaved
  timestamp codec.

AUTHOR
  Saxon A. Nelson-Milton <saxon.milton@gmail.com>
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package tspacket implements the MPEG-2 Transport Stream packet codec:
// 188-byte packet header parse/generate, the adaptation field and PCR,
// and the PES PTS/DTS timestamp codec shared by the PES reassembler.
package tspacket

import (
	"github.com/Comcast/gots"
	"github.com/pkg/errors"
)

// Size is the fixed length in bytes of a TS packet.
const Size = 188

// SyncByte is the required value of byte 0 of every TS packet.
const SyncByte = 0x47

// MaxPayload is the largest payload a TS packet can carry when no
// adaptation field is present.
const MaxPayload = Size - HeaderLen

// HeaderLen is the length of the fixed 4-byte TS packet header.
const HeaderLen = 4

// Sentinel errors describing structural TS packet failures. These are
// deliberately narrow so callers can branch with errors.Is; annotated
// context is added with errors.Wrap at the call site.
var (
	ErrShortPacket     = errors.New("tspacket: packet shorter than 188 bytes")
	ErrBadSync         = errors.New("tspacket: bad sync byte")
	ErrNoPayloadOrAdapt = errors.New("tspacket: neither adaptation field nor payload flagged")
	ErrAdaptationLen   = errors.New("tspacket: adaptation field length invalid")
)

// Header is the parsed form of a TS packet's fixed header and optional
// adaptation field.
type Header struct {
	TEI      bool   // Transport error indicator.
	PUSI     bool   // Payload unit start indicator.
	Priority bool   // Transport priority.
	PID      uint16 // Packet identifier (13 bits).
	Scramble byte   // Transport scrambling control (2 bits).
	AFC      byte   // Adaptation field control (2 bits): 1 payload only, 2 adaptation only, 3 both.
	CC       byte   // Continuity counter (4 bits).

	// Adaptation field, valid only if AFC indicates its presence.
	AdaptLen       byte
	Discontinuity  bool
	RandomAccess   bool
	ESPriority     bool
	HasPCR         bool
	HasOPCR        bool
	Splicing       bool
	TransportPriv  bool
	HasExtension   bool
	PCR            uint64 // base*300+ext, see DecodePCR.
	OPCR           uint64

	// PayloadOffset is the byte offset within the 188-byte packet at
	// which the payload begins; PayloadSize is its length.
	PayloadOffset int
	PayloadSize   int
}

// HasPayload reports whether the packet carries a payload at all.
func (h *Header) HasPayload() bool { return h.AFC == 1 || h.AFC == 3 }

// HasAdaptation reports whether the packet carries an adaptation field.
func (h *Header) HasAdaptation() bool { return h.AFC == 2 || h.AFC == 3 }

// ParseHeader parses the fixed header and adaptation field of a TS
// packet. b must be at least Size bytes. The stricter adaptation-length
// boundary adaptLen+5<=188 is enforced uniformly, replacing the two
// inconsistent checks historically used for this boundary.
func ParseHeader(b []byte) (*Header, error) {
	if len(b) < Size {
		return nil, ErrShortPacket
	}
	if b[0] != SyncByte {
		return nil, ErrBadSync
	}

	h := &Header{
		TEI:      b[1]&0x80 != 0,
		PUSI:     b[1]&0x40 != 0,
		Priority: b[1]&0x20 != 0,
		PID:      uint16(b[1]&0x1f)<<8 | uint16(b[2]),
		Scramble: (b[3] & 0xc0) >> 6,
		AFC:      (b[3] & 0x30) >> 4,
		CC:       b[3] & 0x0f,
	}

	if !h.HasPayload() && !h.HasAdaptation() {
		return nil, ErrNoPayloadOrAdapt
	}

	offset := HeaderLen
	if h.HasAdaptation() {
		if len(b) < HeaderLen+1 {
			return nil, ErrShortPacket
		}
		h.AdaptLen = b[4]
		if int(h.AdaptLen)+5 > Size {
			return nil, ErrAdaptationLen
		}
		offset++
		if h.AdaptLen > 0 {
			flags := b[5]
			h.Discontinuity = flags&0x80 != 0
			h.RandomAccess = flags&0x40 != 0
			h.ESPriority = flags&0x20 != 0
			h.HasPCR = flags&0x10 != 0
			h.HasOPCR = flags&0x08 != 0
			h.Splicing = flags&0x04 != 0
			h.TransportPriv = flags&0x02 != 0
			h.HasExtension = flags&0x01 != 0

			p := offset + 1
			if h.HasPCR {
				if p+6 > Size {
					return nil, ErrAdaptationLen
				}
				h.PCR = DecodePCR(b[p : p+6])
				p += 6
			}
			if h.HasOPCR {
				if p+6 > Size {
					return nil, ErrAdaptationLen
				}
				h.OPCR = DecodePCR(b[p : p+6])
				p += 6
			}
		}
		offset += int(h.AdaptLen)
	}

	if h.HasPayload() {
		h.PayloadOffset = offset
		h.PayloadSize = Size - offset
		if h.PayloadSize < 0 || offset > Size {
			return nil, ErrAdaptationLen
		}
	}

	return h, nil
}

// Payload returns the payload slice of packet b given its parsed header.
func Payload(h *Header, b []byte) []byte {
	if !h.HasPayload() {
		return nil
	}
	return b[h.PayloadOffset:Size]
}

// Bytes serialises h and the given payload back into a 188-byte TS
// packet. If payload is shorter than the space left after the
// adaptation field, the rest of the packet is filled with 0xFF; a longer
// payload is truncated to fit.
func (h *Header) Bytes(payload []byte) []byte {
	buf := make([]byte, Size)
	buf[0] = SyncByte
	buf[1] = boolByte(h.TEI)<<7 | boolByte(h.PUSI)<<6 | boolByte(h.Priority)<<5 | byte(h.PID>>8)&0x1f
	buf[2] = byte(h.PID)
	buf[3] = h.Scramble<<6 | h.AFC<<4 | h.CC&0x0f

	offset := HeaderLen
	if h.HasAdaptation() {
		adaptLen := h.AdaptLen
		buf[4] = adaptLen
		offset++
		if adaptLen > 0 {
			buf[5] = boolByte(h.Discontinuity)<<7 | boolByte(h.RandomAccess)<<6 |
				boolByte(h.ESPriority)<<5 | boolByte(h.HasPCR)<<4 | boolByte(h.HasOPCR)<<3 |
				boolByte(h.Splicing)<<2 | boolByte(h.TransportPriv)<<1 | boolByte(h.HasExtension)
			p := offset + 1
			if h.HasPCR {
				EncodePCR(buf[p:p+6], h.PCR)
				p += 6
			}
			if h.HasOPCR {
				EncodePCR(buf[p:p+6], h.OPCR)
				p += 6
			}
			for ; p < offset+int(adaptLen); p++ {
				buf[p] = 0xff
			}
		}
		offset += int(adaptLen)
	}

	if h.HasPayload() {
		n := copy(buf[offset:], payload)
		for i := offset + n; i < Size; i++ {
			buf[i] = 0xff
		}
	}
	return buf
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// DecodePCR decodes the 48-bit PCR field (33-bit base, 6 reserved bits,
// 9-bit extension) from a 6-byte slice, returning base*300+ext.
func DecodePCR(b []byte) uint64 {
	base := uint64(b[0])<<25 | uint64(b[1])<<17 | uint64(b[2])<<9 | uint64(b[3])<<1 | uint64(b[4])>>7
	ext := (uint64(b[4]&0x01) << 8) | uint64(b[5])
	return base*300 + ext
}

// EncodePCR writes pcr (as base*300+ext) into the 6-byte destination
// slice in wire form, setting the reserved bits to 1 as the source
// material does.
func EncodePCR(dst []byte, pcr uint64) {
	base := (pcr / 300) & 0x1ffffffff
	ext := pcr % 300

	dst[0] = byte(base >> 25)
	dst[1] = byte(base >> 17)
	dst[2] = byte(base >> 9)
	dst[3] = byte(base >> 1)
	dst[4] = byte(base&0x01)<<7 | 0x7e | byte(ext>>8)&0x01
	dst[5] = byte(ext)
}

// MaxPTS is the largest representable 33-bit PTS/DTS value.
const MaxPTS = (1 << 33) - 1

// Guard nibble values required by DecodePTSDTS/EncodePTSDTS for the
// three contexts in which a timestamp appears.
const (
	GuardPTSOnly    = 2 // '0010' - a PTS with no following DTS.
	GuardPTSWithDTS = 3 // '0011' - a PTS immediately followed by a DTS.
	GuardDTS        = 1 // '0001' - a DTS following a PTS.
)

// ErrBadMarker is returned (but decoding still proceeds, matching the
// "logged but decoding continues" behaviour) when a PTS/DTS marker bit is
// not set.
var ErrBadMarker = errors.New("tspacket: PTS/DTS marker bit not set")

// DecodePTSDTS decodes a 33-bit PTS or DTS value from its 5-byte
// marker-interleaved wire form. guard is the nibble found in the top 4
// bits of b[0]; if it does not match wantGuard, decoding still proceeds
// and a non-nil error is returned alongside the decoded value so the
// caller can log it.
func DecodePTSDTS(b []byte, wantGuard byte) (uint64, error) {
	var err error
	if b[0]>>4 != wantGuard {
		err = errors.Wrapf(ErrBadMarker, "guard nibble %#x, want %#x", b[0]>>4, wantGuard)
	}
	if b[0]&0x01 == 0 || b[2]&0x01 == 0 || b[4]&0x01 == 0 {
		err = errors.Wrap(ErrBadMarker, "marker bit clear")
	}
	v := (uint64(b[0]&0x0e) >> 1) << 30
	v |= uint64(b[1]) << 22
	v |= (uint64(b[2]&0xfe) >> 1) << 15
	v |= uint64(b[3]) << 7
	v |= uint64(b[4]&0xfe) >> 1
	return v, err
}

// EncodePTSDTS encodes a 33-bit PTS or DTS value into its 5-byte
// marker-interleaved wire form, setting all three marker bits and the
// given guard nibble. Values above MaxPTS are reduced modulo 2^33.
func EncodePTSDTS(dst []byte, guard byte, v uint64) {
	v &= MaxPTS
	if guard == GuardPTSOnly {
		// gots.InsertPTS hardcodes the '0010' guard nibble, so it only
		// covers the PTS-with-no-DTS case; PTSWithDTS and DTS guards are
		// encoded by hand below.
		gots.InsertPTS(dst, v)
		return
	}
	dst[0] = guard<<4 | byte((v>>30)&0x07)<<1 | 0x01
	dst[1] = byte(v >> 22)
	dst[2] = byte((v>>15)&0x7f)<<1 | 0x01
	dst[3] = byte(v >> 7)
	dst[4] = byte(v&0x7f)<<1 | 0x01
}
