/*
NAME
  streamtype.go

DESCRIPTION
  streamtype.go classifies PMT stream_type values into broad media
  categories, used by Stream.Kind and by the PES reassembler when
  a PMT is available to assist ES classification.

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

import "fmt"

// StreamKind is the broad media category a PMT stream_type classifies
// to.
type StreamKind int

const (
	StreamUnknown StreamKind = iota
	StreamVideo
	StreamAudio
	StreamPrivate
)

// Stream type values used by the classifiers below.
const (
	StreamTypeMPEG1Video = 0x01
	StreamTypeMPEG2Video = 0x02
	StreamTypeMPEG1Audio = 0x03
	StreamTypeMPEG2Audio = 0x04
	StreamTypeAACADTS    = 0x0F
	StreamTypeMPEG4Part2 = 0x10
	StreamTypeH264       = 0x1B
	StreamTypeAVS        = 0x42
	StreamTypePrivate    = 0x06
	StreamTypeATSCAC3    = 0x81
)

// ClassifyStreamType returns the broad media category for a PMT
// stream_type value.
func ClassifyStreamType(streamType byte) StreamKind {
	switch streamType {
	case StreamTypeMPEG1Video, StreamTypeMPEG2Video, StreamTypeMPEG4Part2, StreamTypeH264, StreamTypeAVS:
		return StreamVideo
	case StreamTypeMPEG1Audio, StreamTypeMPEG2Audio, StreamTypeAACADTS, StreamTypeATSCAC3:
		return StreamAudio
	case StreamTypePrivate:
		return StreamPrivate
	default:
		return StreamUnknown
	}
}

// IsAC3ViaDescriptor reports whether ES_info carries either a registration
// descriptor (tag 0x05) identifying "AC-3"/"DTSx", or the dedicated AC-3
// descriptor (tag 0x6A), in which case a nominally "private" stream_type
// 0x06 stream is actually AC-3 audio.
func IsAC3ViaDescriptor(esInfo []Descriptor) bool {
	if _, ok := Find(esInfo, TagAC3); ok {
		return true
	}
	if d, ok := Find(esInfo, TagRegistration); ok {
		s := string(d.Data)
		return s == "AC-3" || s == "DTSx"
	}
	return false
}

// IsDTSViaDescriptor reports whether ES_info carries the DTS descriptor
// (tag 0x7B).
func IsDTSViaDescriptor(esInfo []Descriptor) bool {
	_, ok := Find(esInfo, TagDTS)
	return ok
}

// StreamTypeName returns a short descriptive name for a PMT stream_type
// value, for use by Dump methods; unrecognised values are rendered as a
// hex literal.
func StreamTypeName(streamType byte) string {
	switch streamType {
	case StreamTypeMPEG1Video:
		return "MPEG-1 video"
	case StreamTypeMPEG2Video:
		return "MPEG-2 video"
	case StreamTypeMPEG1Audio:
		return "MPEG-1 audio"
	case StreamTypeMPEG2Audio:
		return "MPEG-2 audio"
	case StreamTypeAACADTS:
		return "AAC ADTS"
	case StreamTypeMPEG4Part2:
		return "MPEG-4 part 2 video"
	case StreamTypeH264:
		return "H.264"
	case StreamTypeAVS:
		return "AVS video"
	case StreamTypePrivate:
		return "private (PES or other)"
	case StreamTypeATSCAC3:
		return "ATSC AC-3 audio"
	default:
		return fmt.Sprintf("stream_type %#x", streamType)
	}
}
