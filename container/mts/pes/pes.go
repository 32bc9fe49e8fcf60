/*
NAME
  pes.go

DESCRIPTION
  pes.go implements a per-PID PES reassembler: it accumulates TS packet
  payloads carrying a single PES packet, decodes the fixed and optional
  PES header fields once assembly completes, and classifies the
  elementary stream the PES unit carries.

AUTHOR
  Saxon A. Nelson-Milton <saxon.milton@gmail.com>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package pes implements reassembly and decoding of PES (Packetized
// Elementary Stream) packets carried in an MPEG-2 transport stream.
package pes

import (
	"github.com/pkg/errors"

	"github.com/ausocean/tsparse/container/mts/psi"
	"github.com/ausocean/tsparse/container/mts/tspacket"
	"github.com/ausocean/utils/logging"
)

// Log is the package-wide logger, set by the program entry point before
// any reassembler is used.
var Log logging.Logger

const pkg = "pes: "

var (
	// ErrBadStartCode indicates a PUSI payload that does not begin with
	// the PES packet start code prefix 00 00 01.
	ErrBadStartCode = errors.New("pes: bad start code prefix")
	// ErrShortPES indicates a PES unit too short to carry its declared
	// optional header fields.
	ErrShortPES = errors.New("pes: header truncated")
	// ErrBadMarkerBits indicates the fixed marker bits atop the optional
	// fields byte (or the p-STD buffer field) are missing.
	ErrBadMarkerBits = errors.New("pes: bad marker bits")
	// ErrPESTooLarge indicates a PES unit grew past the 1 MiB hard cap
	// without completing.
	ErrPESTooLarge = errors.New("pes: exceeds maximum size")
	// ErrZeroLengthMidStream indicates a PUSI packet declaring
	// pes_packet_len==0 while the reassembler already has an unbounded
	// unit under assembly — only the first packet of an unbounded PES
	// may declare length 0.
	ErrZeroLengthMidStream = errors.New("pes: zero length declared mid-stream")
)

// maxPESSize is the hard cap the reassembly buffer is never grown past.
// A PES packet with a declared length is capped at 65536 bytes by the
// 16-bit length field, but unbounded (video) PES units have no such
// bound, so an explicit ceiling is required.
const maxPESSize = 1 << 20

// initialPESCap is the starting capacity of a new unit's buffer; it is
// doubled as needed up to maxPESSize.
const initialPESCap = 1024

// building is the accumulator state for a PES unit still in assembly.
type building struct {
	streamID    byte
	declaredLen uint16 // pes_packet_len as read from the header; 0 = unbounded.
	realLen     int    // declaredLen if non-zero, else -1 (unknown until next PUSI).
	data        []byte
}

func growPES(b []byte, need int) ([]byte, error) {
	if need > maxPESSize {
		return b, ErrPESTooLarge
	}
	if cap(b) >= need {
		return b, nil
	}
	newCap := cap(b)
	if newCap == 0 {
		newCap = initialPESCap
	}
	for newCap < need {
		newCap *= 2
	}
	if newCap > maxPESSize {
		newCap = maxPESSize
	}
	nb := make([]byte, len(b), newCap)
	copy(nb, b)
	return nb, nil
}

// Reassembler holds the per-PID state for PES reassembly on a single
// PID. Stream classification is refined when a PMT and the stream's
// ES_info descriptors are supplied via SetStreamInfo.
type Reassembler struct {
	PID        uint16
	cur        *building
	streamType byte
	esInfo     []psi.Descriptor
	haveInfo   bool
}

// NewReassembler returns a reassembler for the given PID.
func NewReassembler(pid uint16) *Reassembler { return &Reassembler{PID: pid} }

// SetStreamInfo supplies the PMT-declared stream_type and ES_info
// descriptors for this PID, used to refine classification of completed
// units beyond the bare stream_id range test.
func (r *Reassembler) SetStreamInfo(streamType byte, esInfo []psi.Descriptor) {
	r.streamType = streamType
	r.esInfo = esInfo
	r.haveInfo = true
}

// Reset discards any unit under assembly.
func (r *Reassembler) Reset() { r.cur = nil }

// Push feeds one TS packet's payload into the reassembler. pusi reports
// whether the payload_unit_start_indicator was set on this packet. If
// pushing this payload completes a unit (either because its declared
// length was reached, or because a new PUSI signals the end of a
// previously unbounded unit), the completed Unit is returned.
func (r *Reassembler) Push(payload []byte, pusi bool) (*Unit, error) {
	var completed *Unit
	if pusi {
		if r.cur != nil && len(r.cur.data) > 0 {
			if r.cur.declaredLen == 0 {
				u, err := r.finish(r.cur)
				if err != nil {
					Log.Debug(pkg+"PES header decode failed, dropping unit", "pid", r.PID, "error", err)
				} else {
					completed = u
				}
			} else {
				Log.Debug(pkg+"PUSI arrived before declared length reached, dropping partial unit", "pid", r.PID)
			}
			r.cur = nil
		}

		if len(payload) < 6 || payload[0] != 0x00 || payload[1] != 0x00 || payload[2] != 0x01 {
			r.cur = nil
			return completed, ErrBadStartCode
		}
		streamID := payload[3]
		declared := uint16From(payload[4:6])
		if declared == 0 && r.cur != nil && r.cur.realLen == -1 {
			r.cur = nil
			return completed, ErrZeroLengthMidStream
		}
		realLen := -1
		if declared != 0 {
			realLen = int(declared)
		}
		b := &building{streamID: streamID, declaredLen: declared, realLen: realLen}
		var err error
		b.data, err = growPES(nil, len(payload))
		if err != nil {
			r.cur = nil
			return completed, err
		}
		b.data = append(b.data, payload...)
		r.cur = b

		if b.declaredLen != 0 && len(b.data) >= 6+int(b.declaredLen) {
			u, ferr := r.finish(b)
			r.cur = nil
			if ferr != nil {
				return completed, ferr
			}
			if completed != nil {
				Log.Debug(pkg+"two units completed by one packet, keeping the newer", "pid", r.PID)
			}
			return u, nil
		}
		return completed, nil
	}

	if r.cur == nil {
		return nil, nil
	}
	need := len(r.cur.data) + len(payload)
	nb, err := growPES(r.cur.data, need)
	if err != nil {
		Log.Debug(pkg+"PES unit exceeded maximum size, dropping", "pid", r.PID)
		r.cur = nil
		return nil, err
	}
	r.cur.data = append(nb, payload...)

	if r.cur.declaredLen != 0 && len(r.cur.data) >= 6+int(r.cur.declaredLen) {
		u, ferr := r.finish(r.cur)
		r.cur = nil
		return u, ferr
	}
	return nil, nil
}

// finish decodes the fixed and optional PES header fields of b and
// classifies the resulting unit.
func (r *Reassembler) finish(b *building) (*Unit, error) {
	data := b.data
	if len(data) < 9 {
		return nil, ErrShortPES
	}
	u := &Unit{StreamID: b.streamID, PacketLength: b.declaredLen}

	flags1 := data[6]
	flags2 := data[7]
	if flags1&0xC0 != 0x80 {
		return nil, ErrBadMarkerBits
	}
	u.ScramblingControl = (flags1 >> 4) & 0x03
	u.Priority = flags1&0x08 != 0
	u.DataAlignment = flags1&0x04 != 0
	u.Copyright = flags1&0x02 != 0
	u.Original = flags1&0x01 != 0

	u.PTSDTSIndicator = (flags2 >> 6) & 0x03
	escrFlag := flags2&0x20 != 0
	esRateFlag := flags2&0x10 != 0
	trickModeFlag := flags2&0x08 != 0
	addCopyInfoFlag := flags2&0x04 != 0
	crcFlag := flags2&0x02 != 0
	extensionFlag := flags2&0x01 != 0

	headerLen := int(data[8])
	pos := 9
	headerEnd := pos + headerLen
	if headerEnd > len(data) {
		return nil, ErrShortPES
	}

	if u.PTSDTSIndicator == tspacket.GuardPTSOnly || u.PTSDTSIndicator == tspacket.GuardPTSWithDTS {
		if pos+5 > headerEnd {
			return nil, ErrShortPES
		}
		pts, err := tspacket.DecodePTSDTS(data[pos:pos+5], u.PTSDTSIndicator)
		if err != nil {
			return nil, errors.Wrap(err, "pes: PTS")
		}
		u.HasPTS = true
		u.PTS = pts
		pos += 5
	}
	if u.PTSDTSIndicator == tspacket.GuardPTSWithDTS {
		if pos+5 > headerEnd {
			return nil, ErrShortPES
		}
		dts, err := tspacket.DecodePTSDTS(data[pos:pos+5], tspacket.GuardDTS)
		if err != nil {
			return nil, errors.Wrap(err, "pes: DTS")
		}
		u.HasDTS = true
		u.DTS = dts
		pos += 5
	}
	if escrFlag {
		if pos+6 > headerEnd {
			return nil, ErrShortPES
		}
		u.HasESCR = true
		u.ESCR = decodeESCR(data[pos : pos+6])
		pos += 6
	}
	if esRateFlag {
		if pos+3 > headerEnd {
			return nil, ErrShortPES
		}
		u.HasESRate = true
		u.ESRate = (uint32(data[pos])&0x7F)<<15 | uint32(data[pos+1])<<7 | uint32(data[pos+2])>>1
		pos += 3
	}
	if trickModeFlag {
		if pos+1 > headerEnd {
			return nil, ErrShortPES
		}
		u.HasTrickMode = true
		u.TrickMode = data[pos]
		pos++
	}
	if addCopyInfoFlag {
		if pos+1 > headerEnd {
			return nil, ErrShortPES
		}
		u.HasAdditionalCopyInfo = true
		u.AdditionalCopyInfo = data[pos] & 0x7F
		pos++
	}
	if crcFlag {
		if pos+2 > headerEnd {
			return nil, ErrShortPES
		}
		u.HasPreviousCRC = true
		u.PreviousCRC = uint16From(data[pos : pos+2])
		pos += 2
	}
	if extensionFlag {
		if pos+1 > headerEnd {
			return nil, ErrShortPES
		}
		u.HasExtension = true
		ext := data[pos]
		pos++
		privateDataFlag := ext&0x80 != 0
		packHeaderFlag := ext&0x40 != 0
		seqCounterFlag := ext&0x20 != 0
		pSTDBufferFlag := ext&0x10 != 0
		ext2Flag := ext&0x01 != 0

		if privateDataFlag {
			if pos+16 > headerEnd {
				return nil, ErrShortPES
			}
			u.HasPrivateData = true
			copy(u.PrivateData[:], data[pos:pos+16])
			pos += 16
		}
		if packHeaderFlag {
			if pos+1 > headerEnd {
				return nil, ErrShortPES
			}
			n := int(data[pos])
			pos++
			if pos+n > headerEnd {
				return nil, ErrShortPES
			}
			u.PackHeader = append([]byte(nil), data[pos:pos+n]...)
			pos += n
		}
		if seqCounterFlag {
			if pos+2 > headerEnd {
				return nil, ErrShortPES
			}
			u.HasProgramPacketSequenceCounter = true
			u.ProgramPacketSequenceCounter = uint16(data[pos]&0x7F)<<8 | uint16(data[pos+1])
			pos += 2
		}
		if pSTDBufferFlag {
			if pos+2 > headerEnd {
				return nil, ErrShortPES
			}
			if data[pos]&0xC0 != 0x40 {
				return nil, ErrBadMarkerBits
			}
			u.HasPSTDBuffer = true
			u.PSTDBufferScale = data[pos]&0x20 != 0
			u.PSTDBufferSize = uint16(data[pos]&0x1F)<<8 | uint16(data[pos+1])
			pos += 2
		}
		if ext2Flag {
			if pos+1 > headerEnd {
				return nil, ErrShortPES
			}
			n := int(data[pos] & 0x7F)
			pos++
			if pos+n > headerEnd {
				return nil, ErrShortPES
			}
			u.Extension2 = append([]byte(nil), data[pos:pos+n]...)
			pos += n
		}
	}

	esStart := headerEnd
	stuffed := 0
	for esStart < len(data) && data[esStart] == 0xFF && stuffed < 32 {
		esStart++
		stuffed++
	}
	u.ESData = append([]byte(nil), data[esStart:]...)

	r.classify(u)
	return u, nil
}

func decodeESCR(b []byte) uint64 {
	base := uint64(b[0]&0x38) << 27
	base |= uint64(b[0]&0x03) << 28
	base |= uint64(b[1]) << 20
	base |= uint64(b[2]&0xF8) << 12
	base |= uint64(b[2]&0x03) << 13
	base |= uint64(b[3]) << 5
	base |= uint64(b[4]&0xF8) >> 3
	ext := uint32(b[4]&0x03)<<7 | uint32(b[5])>>1
	return base*300 + uint64(ext)
}

func uint16From(b []byte) uint16 { return uint16(b[0])<<8 | uint16(b[1]) }
