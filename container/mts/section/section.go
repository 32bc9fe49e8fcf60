/*
NAME
  section.go

DESCRIPTION
  section implements PSI/SI section reassembly and fragmentation: the
  8-byte extended section header shared by PAT/CAT/PMT/NIT/SDT/EIT, and
  the Accumulator that reconstructs a complete section out of however
  many TS packets it spans, tracking the pointer_field and CRC that
  close it out.

AUTHOR
  Saxon Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package section implements PSI/SI section reassembly from TS packet
// payloads and the inverse: splitting a section into the TS packets
// needed to carry it.
package section

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/ausocean/tsparse/container/mts/crc"
	"github.com/ausocean/tsparse/container/mts/tspacket"
	"github.com/ausocean/utils/logging"
)

// Log is the package-wide logger, set by the program entry point before
// any Accumulator is used.
var Log logging.Logger

// MaxSectionLength is the largest value the 12-bit section_length field
// may take, per ETSI EN 300 468 / ISO 13818-1. It excludes the 3 leading
// bytes (table_id, flags, section_length itself), so the largest total
// section size is 3+MaxSectionLength = 4096 bytes.
const MaxSectionLength = 4093

// HeaderLen is the length in bytes of the extended section header used
// unconditionally by PAT, CAT, PMT, NIT, SDT and EIT.
const HeaderLen = 8

// Sentinel errors for section parsing failures.
var (
	ErrSectionTooLong  = errors.New("section: section_length exceeds 4093")
	ErrShortSection    = errors.New("section: buffer shorter than declared section_length")
	ErrNoSyntax        = errors.New("section: section_syntax_indicator not set")
	ErrCRCMismatch     = errors.New("section: CRC-32/MPEG-2 mismatch")
	ErrWrongPID        = errors.New("section: packet PID does not match accumulator PID")
	ErrPointerOverflow = errors.New("section: pointer_field points past end of packet payload")
)

// Header is the parsed form of the 8-byte extended section header used
// by PAT, CAT, PMT, NIT, SDT and EIT.
type Header struct {
	TableID                byte
	SectionSyntaxIndicator bool
	PrivateIndicator       bool
	SectionLength          uint16 // 12 bits, excludes these 3 header bytes.
	TableIDExtension       uint16 // transport_stream_id / program_number / etc.
	VersionNumber          byte   // 5 bits.
	CurrentNextIndicator   bool
	SectionNumber          byte
	LastSectionNumber      byte
}

// ParseHeader parses the 8-byte extended section header starting at
// b[0]. b must be at least HeaderLen bytes.
func ParseHeader(b []byte) (*Header, error) {
	if len(b) < HeaderLen {
		return nil, errors.Wrap(ErrShortSection, "header")
	}
	h := &Header{
		TableID:                b[0],
		SectionSyntaxIndicator: b[1]&0x80 != 0,
		PrivateIndicator:       b[1]&0x40 != 0,
		SectionLength:          uint16(b[1]&0x0f)<<8 | uint16(b[2]),
		TableIDExtension:       uint16(b[3])<<8 | uint16(b[4]),
		VersionNumber:          (b[5] & 0x3e) >> 1,
		CurrentNextIndicator:   b[5]&0x01 != 0,
		SectionNumber:          b[6],
		LastSectionNumber:      b[7],
	}
	if h.SectionLength > MaxSectionLength {
		return nil, ErrSectionTooLong
	}
	return h, nil
}

// Bytes serialises h into its 8-byte wire form.
func (h *Header) Bytes() []byte {
	b := make([]byte, HeaderLen)
	b[0] = h.TableID
	b[1] = boolBit(h.SectionSyntaxIndicator, 7) | boolBit(h.PrivateIndicator, 6) | 0x30 | byte(h.SectionLength>>8)&0x0f
	b[2] = byte(h.SectionLength)
	b[3] = byte(h.TableIDExtension >> 8)
	b[4] = byte(h.TableIDExtension)
	b[5] = 0xc0 | h.VersionNumber<<1 | boolBit(h.CurrentNextIndicator, 0)
	b[6] = h.SectionNumber
	b[7] = h.LastSectionNumber
	return b
}

func boolBit(b bool, shift uint) byte {
	if b {
		return 1 << shift
	}
	return 0
}

// TotalLen is the full wire length of the section this header describes,
// including the 3 leading bytes (table_id + flags/section_length) and
// the section_length bytes that follow.
func (h *Header) TotalLen() int { return 3 + int(h.SectionLength) }

// Accumulator reassembles a section spread across one or more TS packets
// sharing a single PID. Feed it packets in stream order via Push; once
// Push returns true, Section holds the complete section (including its
// trailing CRC, if the table carries one).
type Accumulator struct {
	PID uint16

	started bool
	want    int // total bytes expected, 0 until known.
	buf     []byte
}

// NewAccumulator returns an Accumulator that reassembles sections carried
// on pid.
func NewAccumulator(pid uint16) *Accumulator {
	return &Accumulator{PID: pid}
}

// Reset discards any partially accumulated section.
func (a *Accumulator) Reset() {
	a.started = false
	a.want = 0
	a.buf = a.buf[:0]
}

// Push feeds one TS packet's payload into the accumulator. h is the
// packet's parsed header (used for PUSI and PID). It returns true once a
// complete section (Accumulator.Section) is available; the caller should
// then consume Section and call Reset (or Push again to start the next
// one, which Push does automatically when PUSI is set and a prior
// section was already complete).
func (a *Accumulator) Push(h *tspacket.Header, packet []byte) (bool, error) {
	if h.PID != a.PID {
		return false, ErrWrongPID
	}
	if !h.HasPayload() {
		return false, nil
	}
	payload := tspacket.Payload(h, packet)

	if h.PUSI {
		if len(payload) < 1 {
			return false, errors.Wrap(ErrShortSection, "pointer field")
		}
		pointer := int(payload[0])
		if 1+pointer > len(payload) {
			return false, ErrPointerOverflow
		}
		rest := payload[1+pointer:]
		a.buf = append(a.buf[:0], rest...)
		a.started = true
		a.want = 0
	} else {
		if !a.started {
			return false, nil
		}
		a.buf = append(a.buf, payload...)
	}

	if a.want == 0 && len(a.buf) >= 3 {
		length := uint16(a.buf[1]&0x0f)<<8 | uint16(a.buf[2])
		if length > MaxSectionLength {
			Log.Debug("section: section_length exceeds 4093, resetting accumulator", "pid", a.PID, "length", length)
			a.Reset()
			return false, ErrSectionTooLong
		}
		a.want = 3 + int(length)
	}

	if a.want > 0 && len(a.buf) >= a.want {
		return true, nil
	}
	return false, nil
}

// Section returns the complete accumulated section. Call only after Push
// has returned true.
func (a *Accumulator) Section() []byte {
	return a.buf[:a.want]
}

// Verify checks the trailing 4-byte CRC-32/MPEG-2 of a complete section
// carrying one (everything except TDT, which has none).
func Verify(section []byte) error {
	if !crc.VerifySection(section) {
		return ErrCRCMismatch
	}
	return nil
}

// Generate splits a complete section (header, body and, if applicable,
// trailing CRC already appended) into the TS packets needed to carry it
// on pid, starting continuity counter at cc and setting PUSI/pointer
// field on the first packet. It returns the generated packets.
func Generate(pid uint16, cc byte, section []byte) [][]byte {
	const pointerField = 0

	total := len(section) + 1 // +1 for the pointer field byte.
	n := (total + tspacket.MaxPayload - 1) / tspacket.MaxPayload
	if n == 0 {
		n = 1
	}

	packets := make([][]byte, n)
	pos := 0
	for i := 0; i < n; i++ {
		h := &tspacket.Header{
			PID:  pid,
			AFC:  1,
			CC:   (cc + byte(i)) & 0x0f,
			PUSI: i == 0,
		}
		payload := make([]byte, 0, tspacket.MaxPayload)
		if i == 0 {
			payload = append(payload, pointerField)
		}
		room := tspacket.MaxPayload - len(payload)
		end := pos + room
		if end > len(section) {
			end = len(section)
		}
		payload = append(payload, section[pos:end]...)
		pos = end
		packets[i] = h.Bytes(payload)
	}
	return packets
}

// PutLength rewrites the section_length field in place within a buffer
// whose first 3 bytes are table_id/flags/section_length, after the body
// following the header has been finalised. length excludes these 3
// leading bytes.
func PutLength(b []byte, length uint16) {
	b[1] = b[1]&0xf0 | byte(length>>8)&0x0f
	b[2] = byte(length)
}

// ReadUint16 is a small helper used throughout the table codecs for the
// common 16-bit big-endian field.
func ReadUint16(b []byte) uint16 { return binary.BigEndian.Uint16(b) }
