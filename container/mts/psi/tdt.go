/*
NAME
  tdt.go

DESCRIPTION
  tdt.go implements the Time and Date Table (table_id 0x70) and Time
  Offset Table (table_id 0x73), PID 0x0014. Both are non-syntactic
  sections (section_syntax_indicator=0) using the short 3-byte header
  (table_id, flags, section_length) rather than the 8-byte extended
  header the other tables share. TDT's body is 5 bytes of MJD+BCD UTC
  time and carries no CRC; TOT appends a descriptor blob and a CRC.

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
	"time"

	"github.com/pkg/errors"

	"github.com/ausocean/tsparse/container/mts/crc"
	"github.com/ausocean/tsparse/container/mts/dvbtime"
	"github.com/ausocean/tsparse/container/mts/section"
)

// PIDTDT is the fixed PID carrying both the TDT and the TOT.
const PIDTDT = 0x0014

const (
	TableIDTDT = 0x70
	TableIDTOT = 0x73
)

// shortHeaderLen is the length of the 3-byte non-syntactic section
// header used by TDT/TOT.
const shortHeaderLen = 3

// TDT is the parsed form of a Time and Date Table.
type TDT struct {
	UTC time.Time
}

// ParseTDT parses a complete TDT section (no trailing CRC).
func ParseTDT(sec []byte) (*TDT, error) {
	if len(sec) < shortHeaderLen+5 {
		return nil, errors.Wrap(section.ErrShortSection, "tdt")
	}
	if sec[0] != TableIDTDT {
		return nil, errors.Errorf("tdt: unexpected table_id %#x", sec[0])
	}
	mjd := uint16From(sec[shortHeaderLen : shortHeaderLen+2])
	bcd := uint32(sec[shortHeaderLen+2])<<16 | uint32(sec[shortHeaderLen+3])<<8 | uint32(sec[shortHeaderLen+4])
	return &TDT{UTC: dvbtime.DecodeMJD(mjd, bcd)}, nil
}

// Generate re-serialises the TDT into a complete section.
func (t *TDT) Generate() []byte {
	body := make([]byte, shortHeaderLen+5)
	body[0] = TableIDTDT
	mjd, bcd := dvbtime.EncodeMJD(t.UTC)
	body[1] = 0x70 | byte(5>>8)&0x0f
	body[2] = byte(5)
	body[3] = byte(mjd >> 8)
	body[4] = byte(mjd)
	body[5] = byte(bcd >> 16)
	body[6] = byte(bcd >> 8)
	body[7] = byte(bcd)
	return body
}

// Dump writes a human-readable summary of the TDT to w.
func (t *TDT) Dump(w io.Writer) {
	fmt.Fprintf(w, "TDT utc=%s\n", t.UTC.Format(time.RFC3339))
}

// TOT is the parsed, mutable form of a Time Offset Table.
type TOT struct {
	UTC         time.Time
	Descriptors []Descriptor
}

// NewTOT returns a TOT for the given UTC instant.
func NewTOT(utc time.Time) *TOT { return &TOT{UTC: utc} }

// SetLocalTimeOffset replaces the TOT's descriptors with a single
// local_time_offset_descriptor.
func (t *TOT) SetLocalTimeOffset(lto LocalTimeOffset) {
	t.Descriptors = []Descriptor{BuildLocalTimeOffsetDescriptor(lto)}
}

// SetLocalTimeOffsetSofia computes and sets a local_time_offset_descriptor
// for Europe/Sofia (country code "BUL", UTC+2 standard / UTC+3 summer)
// given the current UTC instant, using the Central European DST
// boundaries.
func (t *TOT) SetLocalTimeOffsetSofia(now time.Time) {
	now = now.UTC()
	inDST := dvbtime.InEuroDST(now)

	const standardOffset = 2 * 3600
	const summerOffset = 3 * 3600

	var current, next int
	var changeTime time.Time
	if inDST {
		current = summerOffset
		next = standardOffset
		changeTime = dvbtime.EuroDSTEnd(now.Year())
	} else {
		current = standardOffset
		next = summerOffset
		if now.Before(dvbtime.EuroDSTStart(now.Year())) {
			changeTime = dvbtime.EuroDSTStart(now.Year())
		} else {
			changeTime = dvbtime.EuroDSTStart(now.Year() + 1)
		}
	}

	t.SetLocalTimeOffset(LocalTimeOffset{
		CountryCode:   "BUL",
		Polarity:      false,
		CurrentOffset: current,
		NextOffset:    next,
		ChangeTime:    changeTime.Unix(),
	})
}

// ParseTOT parses a complete TOT section (including its trailing CRC).
func ParseTOT(sec []byte) (*TOT, error) {
	if !crc.VerifySection(sec) {
		return nil, section.ErrCRCMismatch
	}
	if len(sec) < shortHeaderLen+5+2 {
		return nil, errors.Wrap(section.ErrShortSection, "tot")
	}
	if sec[0] != TableIDTOT {
		return nil, errors.Errorf("tot: unexpected table_id %#x", sec[0])
	}
	mjd := uint16From(sec[shortHeaderLen : shortHeaderLen+2])
	bcd := uint32(sec[shortHeaderLen+2])<<16 | uint32(sec[shortHeaderLen+3])<<8 | uint32(sec[shortHeaderLen+4])

	pos := shortHeaderLen + 5
	descLen := int(sec[pos]&0x0f)<<8 | int(sec[pos+1])
	pos += 2
	end := pos + descLen
	if end+4 > len(sec) {
		end = len(sec) - 4
	}
	ds, err := Walk(sec[pos:end])
	if err != nil {
		Log.Debug(pkg+"descriptor walk truncated", "table", "TOT", "error", err)
	}

	return &TOT{UTC: dvbtime.DecodeMJD(mjd, bcd), Descriptors: ds}, nil
}

// Generate re-serialises the TOT into a complete section, including its
// trailing CRC.
func (t *TOT) Generate() []byte {
	d := Build(t.Descriptors)
	body := make([]byte, shortHeaderLen+5+2, shortHeaderLen+5+2+len(d)+4)
	mjd, bcd := dvbtime.EncodeMJD(t.UTC)
	body[3] = byte(mjd >> 8)
	body[4] = byte(mjd)
	body[5] = byte(bcd >> 16)
	body[6] = byte(bcd >> 8)
	body[7] = byte(bcd)
	body[8] = 0xf0 | byte(len(d)>>8)&0x0f
	body[9] = byte(len(d))
	body = append(body, d...)

	length := len(body) - 3 + 4
	body[0] = TableIDTOT
	body[1] = 0x70 | byte(length>>8)&0x0f
	body[2] = byte(length)

	return crc.AppendCRC(body)
}

// Dump writes a human-readable summary of the TOT to w.
func (t *TOT) Dump(w io.Writer) {
	fmt.Fprintf(w, "TOT utc=%s\n", t.UTC.Format(time.RFC3339))
	for _, d := range t.Descriptors {
		if d.Tag == TagLocalTimeOffset && len(d.Data) >= 13 {
			fmt.Fprintf(w, "  local_time_offset country=%q polarity=%d\n", string(d.Data[0:3]), d.Data[3]&0x01)
		}
	}
}
