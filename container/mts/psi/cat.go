/*
NAME
  cat.go

DESCRIPTION
  cat.go implements the Conditional Access Table (table_id 0x01, PID
  0x0001): a single program_info descriptor blob, typically holding one
  or more CA_descriptors.

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

// PIDCAT is the fixed PID carrying the CAT.
const PIDCAT = 0x0001

// TableIDCAT is the CAT's table_id.
const TableIDCAT = 0x01

// CAT is the parsed, mutable form of a Conditional Access Table.
type CAT struct {
	Version     byte
	Current     bool
	Descriptors []Descriptor
}

// NewCAT returns an empty CAT.
func NewCAT() *CAT { return &CAT{Current: true} }

// AddDescriptor appends a descriptor to the CAT's program_info, refusing
// if doing so would push the section beyond 4093 bytes.
func (c *CAT) AddDescriptor(d Descriptor) error {
	if section.HeaderLen-3+len(Build(c.Descriptors))+len(d.Bytes())+4 > section.MaxSectionLength {
		return errors.New("cat: adding descriptor would exceed maximum section length")
	}
	c.Descriptors = append(c.Descriptors, d)
	return nil
}

// FindCA finds the first CA_descriptor matching system, if any.
func (c *CAT) FindCA(system CASystem) (caid, pid uint16, private []byte, ok bool) {
	return FindCADescriptorBySystem(c.Descriptors, system)
}

// ParseCAT parses a complete section (including its trailing CRC) as a
// CAT.
func ParseCAT(sec []byte) (*CAT, error) {
	if !crc.VerifySection(sec) {
		return nil, section.ErrCRCMismatch
	}
	h, err := section.ParseHeader(sec)
	if err != nil {
		return nil, err
	}
	if h.TableID != TableIDCAT {
		return nil, errors.Errorf("cat: unexpected table_id %#x", h.TableID)
	}
	body := sec[section.HeaderLen : len(sec)-4]
	ds, err := Walk(body)
	if err != nil {
		Log.Debug(pkg+"descriptor walk truncated", "table", "CAT", "error", err)
	}
	return &CAT{Version: h.VersionNumber, Current: h.CurrentNextIndicator, Descriptors: ds}, nil
}

// Generate re-serialises the CAT into a complete section, including its
// trailing CRC.
func (c *CAT) Generate() []byte {
	descBytes := Build(c.Descriptors)
	body := make([]byte, section.HeaderLen, section.HeaderLen+len(descBytes)+4)
	body = append(body, descBytes...)

	sh := &section.Header{
		TableID:                TableIDCAT,
		SectionSyntaxIndicator: true,
		TableIDExtension:       0xffff, // reserved, all ones per the source this is based on.
		VersionNumber:          c.Version,
		CurrentNextIndicator:   c.Current,
	}
	copy(body[:section.HeaderLen], sh.Bytes())
	section.PutLength(body, uint16(len(body)-3+4))

	return crc.AppendCRC(body)
}

// Copy returns a deep copy of c.
func (c *CAT) Copy() *CAT {
	out := *c
	out.Descriptors = append([]Descriptor(nil), c.Descriptors...)
	return &out
}

// IsSame reports whether c and other are structurally equal.
func (c *CAT) IsSame(other *CAT) bool {
	if c.Version != other.Version || c.Current != other.Current || len(c.Descriptors) != len(other.Descriptors) {
		return false
	}
	for i := range c.Descriptors {
		if c.Descriptors[i].Tag != other.Descriptors[i].Tag || string(c.Descriptors[i].Data) != string(other.Descriptors[i].Data) {
			return false
		}
	}
	return true
}

// Dump writes a human-readable summary of the CAT to w.
func (c *CAT) Dump(w io.Writer) {
	fmt.Fprintf(w, "CAT version=%d current=%v\n", c.Version, c.Current)
	for _, d := range c.Descriptors {
		if d.Tag == TagCA {
			caid, pid, _, _ := ParseCADescriptor(d.Data)
			fmt.Fprintf(w, "  CA_descriptor system=%s caid=%#x pid=%#x\n", ClassifyCAID(caid), caid, pid)
			continue
		}
		fmt.Fprintf(w, "  descriptor tag=%#x len=%d\n", d.Tag, len(d.Data))
	}
}
