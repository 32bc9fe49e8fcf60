/*
NAME
  unit.go

DESCRIPTION
  unit.go defines the decoded PES unit produced by a Reassembler, and
  the classification logic that labels its elementary stream as audio,
  video, AC-3, DTS, teletext or subtitles.

AUTHOR
  Saxon Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package pes

import (
	"fmt"
	"io"

	"github.com/ausocean/tsparse/container/mts/psi"
)

// Stream ID ranges per ISO/IEC 13818-1 table 2-18.
const (
	AudioStreamIDMin = 0xC0
	AudioStreamIDMax = 0xDF
	VideoStreamIDMin = 0xE0
	VideoStreamIDMax = 0xEF
)

// Unit is a fully reassembled and header-decoded PES packet.
type Unit struct {
	StreamID     byte
	PacketLength uint16 // declared pes_packet_len; 0 means the source PES was unbounded.

	ScramblingControl byte
	Priority          bool
	DataAlignment     bool
	Copyright         bool
	Original          bool

	PTSDTSIndicator byte
	HasPTS          bool
	PTS             uint64
	HasDTS          bool
	DTS             uint64

	HasESCR bool
	ESCR    uint64

	HasESRate bool
	ESRate    uint32

	HasTrickMode bool
	TrickMode    byte

	HasAdditionalCopyInfo bool
	AdditionalCopyInfo    byte

	HasPreviousCRC bool
	PreviousCRC    uint16

	HasExtension bool

	HasPrivateData bool
	PrivateData    [16]byte

	PackHeader []byte

	HasProgramPacketSequenceCounter bool
	ProgramPacketSequenceCounter    uint16

	HasPSTDBuffer   bool
	PSTDBufferScale bool
	PSTDBufferSize  uint16

	Extension2 []byte

	ESData []byte

	IsAudio     bool
	IsVideo     bool
	IsAC3       bool
	IsDTS       bool
	IsTeletext  bool
	IsSubtitles bool

	AudioHeader *MPEGAudioHeader
}

// acSyncPrefix is the AC-3 bitstream sync word (Annex A, ATSC A/52).
var acSyncPrefix = []byte{0x0B, 0x77}

// dtsSyncPrefix is one of the DTS bitstream sync patterns (16-bit,
// big-endian core sync word).
var dtsSyncPrefix = []byte{0x7F, 0xFE, 0x80, 0x01}

// classify sets u's IsAudio/IsVideo/IsAC3/IsDTS/IsTeletext/IsSubtitles
// and AudioHeader fields, first from the bare stream_id range, then
// overlaid with PMT stream_type and ES_info descriptors when available,
// then refined by sniffing the elementary stream payload itself.
func (r *Reassembler) classify(u *Unit) {
	u.IsAudio = u.StreamID >= AudioStreamIDMin && u.StreamID <= AudioStreamIDMax
	u.IsVideo = u.StreamID >= VideoStreamIDMin && u.StreamID <= VideoStreamIDMax

	if r.haveInfo {
		switch psi.ClassifyStreamType(r.streamType) {
		case psi.StreamVideo:
			u.IsVideo = true
		case psi.StreamAudio:
			u.IsAudio = true
		}
		if psi.IsAC3ViaDescriptor(r.esInfo) {
			u.IsAC3 = true
			u.IsAudio = true
		}
		if psi.IsDTSViaDescriptor(r.esInfo) {
			u.IsDTS = true
			u.IsAudio = true
		}
		if _, ok := psi.Find(r.esInfo, psi.TagTeletext); ok {
			u.IsTeletext = true
		}
		if _, ok := psi.Find(r.esInfo, psi.TagSubtitling); ok {
			u.IsSubtitles = true
		}
	}

	if hasPrefix(u.ESData, acSyncPrefix) {
		u.IsAC3 = true
		u.IsAudio = true
	}
	if hasPrefix(u.ESData, dtsSyncPrefix) {
		u.IsDTS = true
		u.IsAudio = true
	}
	if u.IsAudio && !u.IsAC3 && !u.IsDTS {
		if h, ok := ParseMPEGAudioHeader(u.ESData); ok {
			u.AudioHeader = h
		}
	}
}

func hasPrefix(b, prefix []byte) bool {
	if len(b) < len(prefix) {
		return false
	}
	for i, p := range prefix {
		if b[i] != p {
			return false
		}
	}
	return true
}

// Dump writes a human-readable summary of u to w.
func (u *Unit) Dump(w io.Writer) {
	kind := "data"
	switch {
	case u.IsAC3:
		kind = "AC-3 audio"
	case u.IsDTS:
		kind = "DTS audio"
	case u.IsTeletext:
		kind = "teletext"
	case u.IsSubtitles:
		kind = "subtitles"
	case u.IsAudio:
		kind = "audio"
	case u.IsVideo:
		kind = "video"
	}
	fmt.Fprintf(w, "PES stream_id=%#x (%s) %s es_len=%d", u.StreamID, StreamIDName(u.StreamID), kind, len(u.ESData))
	if u.HasPTS {
		fmt.Fprintf(w, " pts=%d", u.PTS)
	}
	if u.HasDTS {
		fmt.Fprintf(w, " dts=%d", u.DTS)
	}
	if u.AudioHeader != nil {
		fmt.Fprintf(w, " audio=%s", u.AudioHeader)
	}
	fmt.Fprintln(w)
}
