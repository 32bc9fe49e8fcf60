/*
NAME
  pmt.go

DESCRIPTION
  pmt.go implements the Program Map Table (table_id 0x02): PCR PID,
  program_info descriptor blob, and a list of elementary streams each
  with a stream_type, PID and ES_info descriptor blob.

AUTHOR
  Saxon Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package psi

import (
	"fmt"
	"io"

	"github.com/pkg/errors"

	"github.com/ausocean/tsparse/container/mts/crc"
	"github.com/ausocean/tsparse/container/mts/section"
)

// TableIDPMT is the PMT's table_id.
const TableIDPMT = 0x02

// Stream is one elementary stream entry of a PMT.
type Stream struct {
	StreamType  byte
	PID         uint16
	Descriptors []Descriptor
}

// Kind classifies this stream's media type, consulting its descriptors
// when stream_type alone is ambiguous (private streams carrying AC-3 or
// DTS).
func (s Stream) Kind() StreamKind {
	k := ClassifyStreamType(s.StreamType)
	if k == StreamPrivate || k == StreamUnknown {
		if IsAC3ViaDescriptor(s.Descriptors) || IsDTSViaDescriptor(s.Descriptors) {
			return StreamAudio
		}
	}
	return k
}

// PMT is the parsed, mutable form of a Program Map Table.
type PMT struct {
	ProgramNumber uint16
	Version       byte
	Current       bool
	PCRPID        uint16
	Descriptors   []Descriptor // program_info.
	Streams       []Stream
}

// NewPMT returns an empty PMT for the given program.
func NewPMT(programNumber, pcrPID uint16) *PMT {
	return &PMT{ProgramNumber: programNumber, PCRPID: pcrPID, Current: true}
}

// AddStream appends an elementary stream entry, refusing if doing so
// would push the section beyond 4093 bytes.
func (p *PMT) AddStream(s Stream) error {
	if p.length()+5+len(Build(s.Descriptors))+4 > section.MaxSectionLength+3 {
		return errors.New("pmt: adding stream would exceed maximum section length")
	}
	p.Streams = append(p.Streams, s)
	return nil
}

func (p *PMT) length() int {
	n := section.HeaderLen + 4 + len(Build(p.Descriptors))
	for _, s := range p.Streams {
		n += 5 + len(Build(s.Descriptors))
	}
	return n
}

// FindCA finds the first CA_descriptor matching system in the PMT's
// program_info, or in any stream's ES_info if not found there.
func (p *PMT) FindCA(system CASystem) (caid, pid uint16, private []byte, ok bool) {
	if caid, pid, private, ok = FindCADescriptorBySystem(p.Descriptors, system); ok {
		return
	}
	for _, s := range p.Streams {
		if caid, pid, private, ok = FindCADescriptorBySystem(s.Descriptors, system); ok {
			return
		}
	}
	return 0, 0, nil, false
}

// ParsePMT parses a complete section (including its trailing CRC) as a
// PMT.
func ParsePMT(sec []byte) (*PMT, error) {
	if !crc.VerifySection(sec) {
		return nil, section.ErrCRCMismatch
	}
	h, err := section.ParseHeader(sec)
	if err != nil {
		return nil, err
	}
	if h.TableID != TableIDPMT {
		return nil, errors.Errorf("pmt: unexpected table_id %#x", h.TableID)
	}
	body := sec[section.HeaderLen : len(sec)-4]
	if len(body) < 4 {
		return nil, errors.Wrap(section.ErrShortSection, "pmt")
	}

	pmt := &PMT{
		ProgramNumber: h.TableIDExtension,
		Version:       h.VersionNumber,
		Current:       h.CurrentNextIndicator,
		PCRPID:        uint16(body[0]&0x1f)<<8 | uint16(body[1]),
	}
	progInfoLen := int(body[2]&0x0f)<<8 | int(body[3])
	pos := 4
	if pos+progInfoLen > len(body) {
		return nil, errors.Wrap(section.ErrShortSection, "pmt program_info")
	}
	ds, err := Walk(body[pos : pos+progInfoLen])
	if err != nil {
		Log.Debug(pkg+"descriptor walk truncated", "table", "PMT", "where", "program_info", "error", err)
	}
	pmt.Descriptors = ds
	pos += progInfoLen

	for pos+5 <= len(body) {
		streamType := body[pos]
		pid := uint16(body[pos+1]&0x1f)<<8 | uint16(body[pos+2])
		esInfoLen := int(body[pos+3]&0x0f)<<8 | int(body[pos+4])
		pos += 5
		if pos+esInfoLen > len(body) {
			Log.Debug(pkg+"pmt ES_info overruns section, stopping stream loop", "pid", pid)
			break
		}
		esds, err := Walk(body[pos : pos+esInfoLen])
		if err != nil {
			Log.Debug(pkg+"descriptor walk truncated", "table", "PMT", "where", "ES_info", "error", err)
		}
		pmt.Streams = append(pmt.Streams, Stream{StreamType: streamType, PID: pid, Descriptors: esds})
		pos += esInfoLen
	}

	return pmt, nil
}

// Generate re-serialises the PMT into a complete section, including its
// trailing CRC.
func (p *PMT) Generate() []byte {
	progInfo := Build(p.Descriptors)
	body := make([]byte, section.HeaderLen, p.length()+4)
	body = append(body, 0xe0|byte(p.PCRPID>>8)&0x1f, byte(p.PCRPID))
	body = append(body, 0xf0|byte(len(progInfo)>>8)&0x0f, byte(len(progInfo)))
	body = append(body, progInfo...)

	for _, s := range p.Streams {
		esInfo := Build(s.Descriptors)
		body = append(body, s.StreamType)
		body = append(body, 0xe0|byte(s.PID>>8)&0x1f, byte(s.PID))
		body = append(body, 0xf0|byte(len(esInfo)>>8)&0x0f, byte(len(esInfo)))
		body = append(body, esInfo...)
	}

	sh := &section.Header{
		TableID:                TableIDPMT,
		SectionSyntaxIndicator: true,
		TableIDExtension:       p.ProgramNumber,
		VersionNumber:          p.Version,
		CurrentNextIndicator:   p.Current,
	}
	copy(body[:section.HeaderLen], sh.Bytes())
	section.PutLength(body, uint16(len(body)-3+4))

	return crc.AppendCRC(body)
}

// Copy returns a deep copy of p.
func (p *PMT) Copy() *PMT {
	out := *p
	out.Descriptors = append([]Descriptor(nil), p.Descriptors...)
	out.Streams = make([]Stream, len(p.Streams))
	for i, s := range p.Streams {
		out.Streams[i] = Stream{StreamType: s.StreamType, PID: s.PID, Descriptors: append([]Descriptor(nil), s.Descriptors...)}
	}
	return &out
}

// IsSame reports whether p and other are structurally equal.
func (p *PMT) IsSame(other *PMT) bool {
	if p.ProgramNumber != other.ProgramNumber || p.Version != other.Version ||
		p.Current != other.Current || p.PCRPID != other.PCRPID || len(p.Streams) != len(other.Streams) ||
		string(Build(p.Descriptors)) != string(Build(other.Descriptors)) {
		return false
	}
	for i := range p.Streams {
		a, b := p.Streams[i], other.Streams[i]
		if a.StreamType != b.StreamType || a.PID != b.PID || string(Build(a.Descriptors)) != string(Build(b.Descriptors)) {
			return false
		}
	}
	return true
}

// Dump writes a human-readable summary of the PMT to w.
func (p *PMT) Dump(w io.Writer) {
	fmt.Fprintf(w, "PMT program=%d version=%d current=%v pcr_pid=%#x\n", p.ProgramNumber, p.Version, p.Current, p.PCRPID)
	for _, s := range p.Streams {
		fmt.Fprintf(w, "  stream_type=%#x (%s) pid=%#x kind=%v\n", s.StreamType, StreamTypeName(s.StreamType), s.PID, s.Kind())
	}
}
