/*
NAME
  pat.go

DESCRIPTION
  pat.go implements the Program Association Table (table_id 0x00, PID
  0x0000): a list of {program_number, PID} pairs, where program_number 0
  denotes the PID of the NIT.

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

// PIDPAT is the fixed PID carrying the PAT.
const PIDPAT = 0x0000

// TableIDPAT is the PAT's table_id.
const TableIDPAT = 0x00

// Program is one {program_number, PID} entry of a PAT. ProgramNumber 0
// is reserved: its PID names the NIT rather than a PMT.
type Program struct {
	ProgramNumber uint16
	PID           uint16
}

// PAT is the parsed, mutable form of a Program Association Table.
type PAT struct {
	TransportStreamID uint16
	Version           byte
	Current           bool
	Programs          []Program
}

// NewPAT returns an empty PAT for the given transport stream.
func NewPAT(tsid uint16) *PAT {
	return &PAT{TransportStreamID: tsid, Current: true}
}

// AddProgram adds a program to the PAT. It returns an error without
// modifying the table if the program number is already present, or if
// the additional entry would push the section over 4093 bytes.
func (p *PAT) AddProgram(programNumber, pid uint16) error {
	for _, e := range p.Programs {
		if e.ProgramNumber == programNumber {
			return errors.Errorf("pat: program number %d already present", programNumber)
		}
	}
	if (section.HeaderLen-3)+4*(len(p.Programs)+1)+4 > section.MaxSectionLength {
		return errors.New("pat: adding program would exceed maximum section length")
	}
	p.Programs = append(p.Programs, Program{ProgramNumber: programNumber, PID: pid})
	return nil
}

// RemoveProgram removes the entry for programNumber, if present.
func (p *PAT) RemoveProgram(programNumber uint16) {
	for i, e := range p.Programs {
		if e.ProgramNumber == programNumber {
			p.Programs = append(p.Programs[:i], p.Programs[i+1:]...)
			return
		}
	}
}

// ParsePAT parses a complete section (including its trailing CRC) as a
// PAT.
func ParsePAT(sec []byte) (*PAT, error) {
	if !crc.VerifySection(sec) {
		return nil, section.ErrCRCMismatch
	}
	h, err := section.ParseHeader(sec)
	if err != nil {
		return nil, err
	}
	if h.TableID != TableIDPAT {
		return nil, errors.Errorf("pat: unexpected table_id %#x", h.TableID)
	}
	body := sec[section.HeaderLen : len(sec)-4]
	if len(body)%4 != 0 {
		return nil, errors.New("pat: program loop not a multiple of 4 bytes")
	}

	pat := &PAT{
		TransportStreamID: h.TableIDExtension,
		Version:           h.VersionNumber,
		Current:           h.CurrentNextIndicator,
	}
	for i := 0; i+4 <= len(body); i += 4 {
		pat.Programs = append(pat.Programs, Program{
			ProgramNumber: uint16From(body[i : i+2]),
			PID:           uint16(body[i+2]&0x1f)<<8 | uint16(body[i+3]),
		})
	}
	return pat, nil
}

// Generate re-serialises the PAT into a complete section, including its
// trailing CRC.
func (p *PAT) Generate() []byte {
	body := make([]byte, section.HeaderLen, section.HeaderLen+4*len(p.Programs)+4)
	for _, e := range p.Programs {
		entry := make([]byte, 4)
		putUint16(entry, e.ProgramNumber)
		entry[2] = 0xe0 | byte(e.PID>>8)&0x1f
		entry[3] = byte(e.PID)
		body = append(body, entry...)
	}

	sh := &section.Header{
		TableID:                TableIDPAT,
		SectionSyntaxIndicator: true,
		TableIDExtension:       p.TransportStreamID,
		VersionNumber:          p.Version,
		CurrentNextIndicator:   p.Current,
	}
	copy(body[:section.HeaderLen], sh.Bytes())
	section.PutLength(body, uint16(len(body)-3+4))

	return crc.AppendCRC(body)
}

// Copy returns a deep copy of p.
func (p *PAT) Copy() *PAT {
	out := *p
	out.Programs = append([]Program(nil), p.Programs...)
	return &out
}

// IsSame reports whether p and other are structurally equal.
func (p *PAT) IsSame(other *PAT) bool {
	if p.TransportStreamID != other.TransportStreamID || p.Version != other.Version ||
		p.Current != other.Current || len(p.Programs) != len(other.Programs) {
		return false
	}
	for i := range p.Programs {
		if p.Programs[i] != other.Programs[i] {
			return false
		}
	}
	return true
}

// Dump writes a human-readable summary of the PAT to w.
func (p *PAT) Dump(w io.Writer) {
	fmt.Fprintf(w, "PAT tsid=%d version=%d current=%v\n", p.TransportStreamID, p.Version, p.Current)
	for _, e := range p.Programs {
		if e.ProgramNumber == 0 {
			fmt.Fprintf(w, "  NIT pid=%#x\n", e.PID)
			continue
		}
		fmt.Fprintf(w, "  program=%d pmt_pid=%#x\n", e.ProgramNumber, e.PID)
	}
}
