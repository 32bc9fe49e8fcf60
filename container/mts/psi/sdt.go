/*
NAME
  sdt.go

DESCRIPTION
  sdt.go implements the Service Description Table (table_id 0x42 actual
  transport stream, 0x46 other; PID 0x0011): original_network_id followed
  by a list of services, each carrying EIT schedule/present-following
  flags, running status, free_CA_mode and a descriptor blob (typically a
  service_descriptor).

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

// PIDSDT is the fixed PID carrying the SDT.
const PIDSDT = 0x0011

// SDT table_id values.
const (
	TableIDSDTActual = 0x42
	TableIDSDTOther  = 0x46
)

// Service is one entry of an SDT's service loop.
type Service struct {
	ServiceID           uint16
	EITSchedule         bool
	EITPresentFollowing bool
	RunningStatus       byte // 3 bits.
	FreeCA              bool
	Descriptors         []Descriptor
}

// SDT is the parsed, mutable form of a Service Description Table.
type SDT struct {
	TableID           byte
	TransportStreamID uint16
	OriginalNetworkID uint16
	Version           byte
	Current           bool
	Services          []Service
}

// NewSDT returns an empty SDT describing the actual transport stream.
func NewSDT(tsid, onid uint16) *SDT {
	return &SDT{TableID: TableIDSDTActual, TransportStreamID: tsid, OriginalNetworkID: onid, Current: true}
}

// AddServiceDescriptor adds a service entry built from a service_descriptor.
func (s *SDT) AddServiceDescriptor(serviceID uint16, video bool, provider, service string) {
	serviceType := byte(0x02) // digital radio, unless video.
	if video {
		serviceType = 0x01
	}
	s.Services = append(s.Services, Service{
		ServiceID:           serviceID,
		EITPresentFollowing: true,
		RunningStatus:       4, // running.
		Descriptors:         []Descriptor{BuildServiceDescriptor(serviceType, provider, service)},
	})
}

// ParseSDT parses a complete section (including its trailing CRC) as an
// SDT.
func ParseSDT(sec []byte) (*SDT, error) {
	if !crc.VerifySection(sec) {
		return nil, section.ErrCRCMismatch
	}
	h, err := section.ParseHeader(sec)
	if err != nil {
		return nil, err
	}
	if h.TableID != TableIDSDTActual && h.TableID != TableIDSDTOther {
		return nil, errors.Errorf("sdt: unexpected table_id %#x", h.TableID)
	}
	body := sec[section.HeaderLen : len(sec)-4]
	if len(body) < 3 {
		return nil, errors.Wrap(section.ErrShortSection, "sdt")
	}

	sdt := &SDT{
		TableID:           h.TableID,
		TransportStreamID: h.TableIDExtension,
		OriginalNetworkID: uint16From(body[0:2]),
		Version:           h.VersionNumber,
		Current:           h.CurrentNextIndicator,
	}

	pos := 3 // skip original_network_id(16) + reserved(8).
	for pos+5 <= len(body) {
		serviceID := uint16From(body[pos : pos+2])
		flags := body[pos+2]
		descLen := int(body[pos+3]&0x0f)<<8 | int(body[pos+4])
		pos += 5
		if pos+descLen > len(body) {
			Log.Debug(pkg + "sdt service descriptor overruns section, stopping")
			break
		}
		ds, err := Walk(body[pos : pos+descLen])
		if err != nil {
			Log.Debug(pkg+"descriptor walk truncated", "table", "SDT", "error", err)
		}
		sdt.Services = append(sdt.Services, Service{
			ServiceID:           serviceID,
			EITSchedule:         flags&0x02 != 0,
			EITPresentFollowing: flags&0x01 != 0,
			RunningStatus:       (body[pos-2] >> 5) & 0x07,
			FreeCA:              body[pos-2]&0x10 != 0,
			Descriptors:         ds,
		})
		pos += descLen
	}

	return sdt, nil
}

// Generate re-serialises the SDT into a complete section, including its
// trailing CRC.
func (s *SDT) Generate() []byte {
	body := make([]byte, section.HeaderLen, section.HeaderLen+3+64)
	body = append(body, byte(s.OriginalNetworkID>>8), byte(s.OriginalNetworkID), 0xff)

	for _, svc := range s.Services {
		d := Build(svc.Descriptors)
		entry := make([]byte, 0, 5+len(d))
		entry = append(entry, byte(svc.ServiceID>>8), byte(svc.ServiceID))
		flags := byte(0xfc)
		if svc.EITSchedule {
			flags |= 0x02
		}
		if svc.EITPresentFollowing {
			flags |= 0x01
		}
		entry = append(entry, flags)
		running := svc.RunningStatus<<5 | byte(boolBit16(svc.FreeCA))<<4 | byte(len(d)>>8)&0x0f
		entry = append(entry, running, byte(len(d)))
		entry = append(entry, d...)
		body = append(body, entry...)
	}

	sh := &section.Header{
		TableID:                s.TableID,
		SectionSyntaxIndicator: true,
		TableIDExtension:       s.TransportStreamID,
		VersionNumber:          s.Version,
		CurrentNextIndicator:   s.Current,
	}
	copy(body[:section.HeaderLen], sh.Bytes())
	section.PutLength(body, uint16(len(body)-3+4))

	return crc.AppendCRC(body)
}

func boolBit16(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Copy returns a deep copy of s.
func (s *SDT) Copy() *SDT {
	out := *s
	out.Services = make([]Service, len(s.Services))
	for i, svc := range s.Services {
		svc.Descriptors = append([]Descriptor(nil), svc.Descriptors...)
		out.Services[i] = svc
	}
	return &out
}

// Dump writes a human-readable summary of the SDT to w.
func (s *SDT) Dump(w io.Writer) {
	fmt.Fprintf(w, "SDT tsid=%d onid=%d version=%d current=%v\n", s.TransportStreamID, s.OriginalNetworkID, s.Version, s.Current)
	for _, svc := range s.Services {
		name := "?"
		if d, ok := Find(svc.Descriptors, TagService); ok && len(d.Data) > 1 {
			provLen := int(d.Data[1])
			if 2+provLen < len(d.Data) {
				nameLen := int(d.Data[2+provLen])
				if 3+provLen+nameLen <= len(d.Data) {
					name = string(d.Data[3+provLen : 3+provLen+nameLen])
				}
			}
		}
		fmt.Fprintf(w, "  service=%d name=%q running=%d\n", svc.ServiceID, name, svc.RunningStatus)
	}
}
