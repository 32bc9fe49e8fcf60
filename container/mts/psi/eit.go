/*
NAME
  eit.go

DESCRIPTION
  eit.go implements the Event Information Table: table_id 0x4E (actual
  transport stream, present/following) and 0x50-0x5F (actual transport
  stream, schedule); PID 0x0012. Body is transport_stream_id,
  original_network_id, segment_last_section_number, last_table_id, then
  a repeating list of events.

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

// PIDEIT is the fixed PID carrying the EIT.
const PIDEIT = 0x0012

// TableIDEITActualPF is the present/following table_id for this
// transport stream; schedule sections run 0x50..0x5F.
const TableIDEITActualPF = 0x4E

// IsEITTableID reports whether id is a valid EIT table_id: 0x4E for
// present/following, or 0x50..0x5F for schedule sections.
//
// This is deliberately the corrected range test: id==0x4E ||
// (0x50<=id && id<=0x5F), in place of the reference decoder's
// push_packet check (table_id != 0x4e && (table_id < 0x50 && table_id >
// 0x5f)) whose second clause can never be true, silently accepting any
// table_id other than 0x4E.
func IsEITTableID(id byte) bool {
	return id == 0x4E || (id >= 0x50 && id <= 0x5F)
}

// Event is one entry of an EIT's event loop.
type Event struct {
	EventID       uint16
	StartTime     time.Time
	Duration      time.Duration
	RunningStatus byte
	FreeCA        bool
	Descriptors   []Descriptor
}

// EIT is the parsed, mutable form of an Event Information Table.
type EIT struct {
	TableID                 byte
	ServiceID               uint16
	TransportStreamID       uint16
	OriginalNetworkID       uint16
	SegmentLastSectionNumber byte
	LastTableID             byte
	Version                 byte
	Current                 bool
	Events                  []Event
}

// NewEIT returns an empty present/following EIT for the given service.
func NewEIT(serviceID, tsid, onid uint16) *EIT {
	return &EIT{
		TableID:           TableIDEITActualPF,
		ServiceID:         serviceID,
		TransportStreamID: tsid,
		OriginalNetworkID: onid,
		LastTableID:       TableIDEITActualPF,
		Current:           true,
	}
}

// AddShortEvent adds an event carrying a single short_event_descriptor,
// refusing if doing so would push the section beyond 4093 bytes.
func (e *EIT) AddShortEvent(eventID uint16, start time.Time, duration time.Duration, lang, name, text string) error {
	d := BuildShortEventDescriptor(lang, name, text)
	if e.length()+12+len(d.Bytes())+4 > section.MaxSectionLength+3 {
		return errors.New("eit: adding event would exceed maximum section length")
	}
	e.Events = append(e.Events, Event{
		EventID:       eventID,
		StartTime:     start,
		Duration:      duration,
		RunningStatus: 4,
		Descriptors:   []Descriptor{d},
	})
	return nil
}

func (e *EIT) length() int {
	n := section.HeaderLen + 6
	for _, ev := range e.Events {
		n += 12 + len(Build(ev.Descriptors))
	}
	return n
}

// ParseEIT parses a complete section (including its trailing CRC) as an
// EIT.
func ParseEIT(sec []byte) (*EIT, error) {
	if !crc.VerifySection(sec) {
		return nil, section.ErrCRCMismatch
	}
	h, err := section.ParseHeader(sec)
	if err != nil {
		return nil, err
	}
	if !IsEITTableID(h.TableID) {
		return nil, errors.Errorf("eit: unexpected table_id %#x", h.TableID)
	}
	body := sec[section.HeaderLen : len(sec)-4]
	if len(body) < 6 {
		return nil, errors.Wrap(section.ErrShortSection, "eit")
	}

	eit := &EIT{
		TableID:                  h.TableID,
		ServiceID:                h.TableIDExtension,
		TransportStreamID:        uint16From(body[0:2]),
		OriginalNetworkID:        uint16From(body[2:4]),
		SegmentLastSectionNumber: body[4],
		LastTableID:              body[5],
		Version:                  h.VersionNumber,
		Current:                  h.CurrentNextIndicator,
	}

	pos := 6
	for pos+12 <= len(body) {
		eventID := uint16From(body[pos : pos+2])
		mjd := uint16From(body[pos+2 : pos+4])
		bcd := uint32(body[pos+4])<<16 | uint32(body[pos+5])<<8 | uint32(body[pos+6])
		start := dvbtime.DecodeMJD(mjd, bcd)
		durBCD := uint32(body[pos+7])<<16 | uint32(body[pos+8])<<8 | uint32(body[pos+9])
		_, _, _, totalSec := dvbtime.DecodeBCDDuration(durBCD)
		flags := body[pos+10]
		descLen := int(body[pos+10]&0x0f)<<8 | int(body[pos+11])
		pos += 12
		if pos+descLen > len(body) {
			Log.Debug(pkg + "eit event descriptor overruns section, stopping")
			break
		}
		ds, err := Walk(body[pos : pos+descLen])
		if err != nil {
			Log.Debug(pkg+"descriptor walk truncated", "table", "EIT", "error", err)
		}
		eit.Events = append(eit.Events, Event{
			EventID:       eventID,
			StartTime:     start,
			Duration:      time.Duration(totalSec) * time.Second,
			RunningStatus: (flags >> 5) & 0x07,
			FreeCA:        flags&0x10 != 0,
			Descriptors:   ds,
		})
		pos += descLen
	}

	return eit, nil
}

// Generate re-serialises the EIT into a complete section, including its
// trailing CRC.
func (e *EIT) Generate() []byte {
	body := make([]byte, section.HeaderLen, e.length()+4)
	body = append(body, byte(e.TransportStreamID>>8), byte(e.TransportStreamID))
	body = append(body, byte(e.OriginalNetworkID>>8), byte(e.OriginalNetworkID))
	body = append(body, e.SegmentLastSectionNumber, e.LastTableID)

	for _, ev := range e.Events {
		d := Build(ev.Descriptors)
		mjd, bcd := dvbtime.EncodeMJD(ev.StartTime)
		durBCD := dvbtime.EncodeBCDDuration(int(ev.Duration / time.Second))
		entry := make([]byte, 0, 12+len(d))
		entry = append(entry, byte(ev.EventID>>8), byte(ev.EventID))
		entry = append(entry, byte(mjd>>8), byte(mjd))
		entry = append(entry, byte(bcd>>16), byte(bcd>>8), byte(bcd))
		entry = append(entry, byte(durBCD>>16), byte(durBCD>>8), byte(durBCD))
		running := ev.RunningStatus<<5 | byte(boolBit16(ev.FreeCA))<<4 | byte(len(d)>>8)&0x0f
		entry = append(entry, running, byte(len(d)))
		entry = append(entry, d...)
		body = append(body, entry...)
	}

	sh := &section.Header{
		TableID:                e.TableID,
		SectionSyntaxIndicator: true,
		TableIDExtension:       e.ServiceID,
		VersionNumber:          e.Version,
		CurrentNextIndicator:   e.Current,
	}
	copy(body[:section.HeaderLen], sh.Bytes())
	section.PutLength(body, uint16(len(body)-3+4))

	return crc.AppendCRC(body)
}

// Copy returns a deep copy of e.
func (e *EIT) Copy() *EIT {
	out := *e
	out.Events = make([]Event, len(e.Events))
	for i, ev := range e.Events {
		ev.Descriptors = append([]Descriptor(nil), ev.Descriptors...)
		out.Events[i] = ev
	}
	return &out
}

// Dump writes a human-readable summary of the EIT to w.
func (e *EIT) Dump(w io.Writer) {
	fmt.Fprintf(w, "EIT table_id=%#x service=%d tsid=%d onid=%d\n", e.TableID, e.ServiceID, e.TransportStreamID, e.OriginalNetworkID)
	for _, ev := range e.Events {
		fmt.Fprintf(w, "  event=%d start=%s duration=%s running=%d\n", ev.EventID, ev.StartTime.Format(time.RFC3339), ev.Duration, ev.RunningStatus)
	}
}
