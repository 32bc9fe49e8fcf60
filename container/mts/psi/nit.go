/*
NAME
  nit.go

DESCRIPTION
  nit.go implements the Network Information Table (table_id 0x40 actual
  network, 0x41 other network; PID 0x0010): a network_info descriptor
  blob followed by a list of transport streams, each with its own
  descriptor blob.

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

// PIDNIT is the fixed PID carrying the NIT.
const PIDNIT = 0x0010

// NIT table_id values: this transport stream's own network, or another.
const (
	TableIDNITActual = 0x40
	TableIDNITOther  = 0x41
)

// TransportStream is one entry of a NIT's transport stream loop.
type TransportStream struct {
	TransportStreamID uint16
	OriginalNetworkID uint16
	Descriptors       []Descriptor
}

// NIT is the parsed, mutable form of a Network Information Table.
type NIT struct {
	TableID           byte // TableIDNITActual or TableIDNITOther.
	NetworkID         uint16
	Version           byte
	Current           bool
	NetworkInfo       []Descriptor
	TransportStreams  []TransportStream
}

// NewNIT returns an empty NIT describing the actual network.
func NewNIT(networkID uint16) *NIT {
	return &NIT{TableID: TableIDNITActual, NetworkID: networkID, Current: true}
}

// AddTransportStream appends a transport stream entry to the NIT.
func (n *NIT) AddTransportStream(ts TransportStream) {
	n.TransportStreams = append(n.TransportStreams, ts)
}

// ParseNIT parses a complete section (including its trailing CRC) as a
// NIT.
func ParseNIT(sec []byte) (*NIT, error) {
	if !crc.VerifySection(sec) {
		return nil, section.ErrCRCMismatch
	}
	h, err := section.ParseHeader(sec)
	if err != nil {
		return nil, err
	}
	if h.TableID != TableIDNITActual && h.TableID != TableIDNITOther {
		return nil, errors.Errorf("nit: unexpected table_id %#x", h.TableID)
	}
	body := sec[section.HeaderLen : len(sec)-4]
	if len(body) < 2 {
		return nil, errors.Wrap(section.ErrShortSection, "nit network_info_length")
	}

	nit := &NIT{TableID: h.TableID, NetworkID: h.TableIDExtension, Version: h.VersionNumber, Current: h.CurrentNextIndicator}

	netInfoLen := int(body[0]&0x0f)<<8 | int(body[1])
	pos := 2
	if pos+netInfoLen > len(body) {
		return nil, errors.Wrap(section.ErrShortSection, "nit network_info")
	}
	ds, err := Walk(body[pos : pos+netInfoLen])
	if err != nil {
		Log.Debug(pkg+"descriptor walk truncated", "table", "NIT", "where", "network_info", "error", err)
	}
	nit.NetworkInfo = ds
	pos += netInfoLen

	if pos+2 > len(body) {
		return nil, errors.Wrap(section.ErrShortSection, "nit ts_loop_length")
	}
	tsLoopLen := int(body[pos]&0x0f)<<8 | int(body[pos+1])
	pos += 2
	end := pos + tsLoopLen
	if end > len(body) {
		end = len(body)
	}

	for pos+6 <= end {
		tsid := uint16From(body[pos : pos+2])
		onid := uint16From(body[pos+2 : pos+4])
		descLen := int(body[pos+4]&0x0f)<<8 | int(body[pos+5])
		pos += 6
		if pos+descLen > end {
			Log.Debug(pkg + "nit transport stream descriptor overruns ts_loop, stopping")
			break
		}
		tds, err := Walk(body[pos : pos+descLen])
		if err != nil {
			Log.Debug(pkg+"descriptor walk truncated", "table", "NIT", "where", "transport_descriptors", "error", err)
		}
		nit.TransportStreams = append(nit.TransportStreams, TransportStream{TransportStreamID: tsid, OriginalNetworkID: onid, Descriptors: tds})
		pos += descLen
	}

	return nit, nil
}

// Generate re-serialises the NIT into a complete section, including its
// trailing CRC.
func (n *NIT) Generate() []byte {
	netInfo := Build(n.NetworkInfo)
	body := make([]byte, section.HeaderLen, section.HeaderLen+2+len(netInfo)+2+64+4)
	body = append(body, 0xf0|byte(len(netInfo)>>8)&0x0f, byte(len(netInfo)))
	body = append(body, netInfo...)

	var tsLoop []byte
	for _, ts := range n.TransportStreams {
		d := Build(ts.Descriptors)
		entry := make([]byte, 0, 6+len(d))
		entry = append(entry, byte(ts.TransportStreamID>>8), byte(ts.TransportStreamID))
		entry = append(entry, byte(ts.OriginalNetworkID>>8), byte(ts.OriginalNetworkID))
		entry = append(entry, 0xf0|byte(len(d)>>8)&0x0f, byte(len(d)))
		entry = append(entry, d...)
		tsLoop = append(tsLoop, entry...)
	}
	body = append(body, 0xf0|byte(len(tsLoop)>>8)&0x0f, byte(len(tsLoop)))
	body = append(body, tsLoop...)

	sh := &section.Header{
		TableID:                n.TableID,
		SectionSyntaxIndicator: true,
		TableIDExtension:       n.NetworkID,
		VersionNumber:          n.Version,
		CurrentNextIndicator:   n.Current,
	}
	copy(body[:section.HeaderLen], sh.Bytes())
	section.PutLength(body, uint16(len(body)-3+4))

	return crc.AppendCRC(body)
}

// Copy returns a deep copy of n.
func (n *NIT) Copy() *NIT {
	out := *n
	out.NetworkInfo = append([]Descriptor(nil), n.NetworkInfo...)
	out.TransportStreams = make([]TransportStream, len(n.TransportStreams))
	for i, ts := range n.TransportStreams {
		out.TransportStreams[i] = TransportStream{ts.TransportStreamID, ts.OriginalNetworkID, append([]Descriptor(nil), ts.Descriptors...)}
	}
	return &out
}

// Dump writes a human-readable summary of the NIT to w.
func (n *NIT) Dump(w io.Writer) {
	fmt.Fprintf(w, "NIT table_id=%#x network=%d version=%d current=%v\n", n.TableID, n.NetworkID, n.Version, n.Current)
	for _, ts := range n.TransportStreams {
		fmt.Fprintf(w, "  ts=%d onid=%d descriptors=%d\n", ts.TransportStreamID, ts.OriginalNetworkID, len(ts.Descriptors))
	}
}
