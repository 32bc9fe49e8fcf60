/*
DESCRIPTIONS
  helpers.go provides stream-id naming for PES dump output, replacing
  the teacher's narrower SIDToMIMEType (kept here for the video/audio
  stream ids it already covers) with the fuller range of standard
  stream_id values a reassembler may encounter.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package pes

import (
	"errors"
	"fmt"
)

// Stream types AKA stream IDs as per ITU-T Rec. H.222.0 / ISO/IEC 13818-1, tables 2-22 and 2-34.
const (
	H264SID  = 27
	H265SID  = 36
	MJPEGSID = 136
	JPEGSID  = 137
	PCMSID   = 192
	ADPCMSID = 193
)

// SIDToMIMEType returns the corresponding MIME type for the passed
// stream ID, for the handful of codec-embedding private stream_ids this
// project's upstream encoder emits.
func SIDToMIMEType(id int) (string, error) {
	switch id {
	case H264SID:
		return "video/h264", nil
	case H265SID:
		return "video/h265", nil
	case MJPEGSID:
		return "video/x-motion-jpeg", nil
	case JPEGSID:
		return "image/jpeg", nil
	case PCMSID:
		return "audio/pcm", nil
	case ADPCMSID:
		return "audio/adpcm", nil
	default:
		return "", errors.New("unknown stream ID")
	}
}

// StreamIDName returns a short descriptive name for a PES stream_id, per
// ISO/IEC 13818-1 table 2-18. Unrecognised ids fall back to the
// audio/video range test, or a hex literal.
func StreamIDName(id byte) string {
	switch id {
	case 0xBC:
		return "program_stream_map"
	case 0xBD:
		return "private_stream_1"
	case 0xBE:
		return "padding_stream"
	case 0xBF:
		return "private_stream_2"
	case 0xF0:
		return "ECM_stream"
	case 0xF1:
		return "EMM_stream"
	case 0xF2:
		return "DSMCC_stream"
	case 0xF8:
		return "ITU-T Rec. H.222.1 type E stream"
	case 0xFF:
		return "program_stream_directory"
	}
	switch {
	case id >= AudioStreamIDMin && id <= AudioStreamIDMax:
		return fmt.Sprintf("audio_stream %#x", id)
	case id >= VideoStreamIDMin && id <= VideoStreamIDMax:
		return fmt.Sprintf("video_stream %#x", id)
	default:
		return fmt.Sprintf("stream_id %#x", id)
	}
}
