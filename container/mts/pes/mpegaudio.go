/*
NAME
  mpegaudio.go

DESCRIPTION
  mpegaudio.go decodes the 4-byte frame header found at the start of an
  MPEG-1/2 audio elementary stream, and carries the bitrate/sample-rate
  lookup tables needed to render it.

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

import "fmt"

// MPEGAudioHeader is the decoded form of the 4-byte frame header at the
// start of an MPEG-1/2 Layer I/II/III audio frame.
type MPEGAudioHeader struct {
	VersionID      byte // 00 = MPEG 2.5, 10 = MPEG 2, 11 = MPEG 1.
	Layer          byte // 01 = Layer III, 10 = Layer II, 11 = Layer I.
	ProtectionBit  bool
	BitrateIndex   byte
	SamplingFreq   byte
	PaddingBit     bool
	PrivateBit     bool
	Mode           byte
	ModeExtension  byte
	Copyright      bool
	Original       bool
	Emphasis       byte
}

// mpegAudioBitrateKbps is table B.1/B.2 of ISO/IEC 11172-3, indexed
// [layer][bitrate_index] where layer is 0=I, 1=II, 2=III (MPEG-1 rates;
// MPEG-2 LSF rates differ but are not carried separately here).
var mpegAudioBitrateKbps = [3][16]int{
	{0, 32, 64, 96, 128, 160, 192, 224, 256, 288, 320, 352, 384, 416, 448, -1},
	{0, 32, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, 384, -1},
	{0, 32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, -1},
}

// mpegAudioSampleRateHz is indexed by the 2-bit sampling_frequency field
// for MPEG-1 (index 3 is "reserved").
var mpegAudioSampleRateHz = [4]int{44100, 48000, 32000, -1}

// MPEGAudioBitrateKbps returns the bitrate in kbps for the given MPEG-1
// audio layer (1, 2 or 3) and 4-bit bitrate_index. It returns 0 for the
// free-format index 0, and -1 for the reserved index 15 or an
// out-of-range argument.
func MPEGAudioBitrateKbps(layer, index int) int {
	if layer < 1 || layer > 3 || index < 0 || index > 15 {
		return -1
	}
	return mpegAudioBitrateKbps[layer-1][index]
}

// MPEGAudioSampleRateHz returns the sampling rate in Hz for the given
// 2-bit sampling_frequency field value, or -1 if reserved.
func MPEGAudioSampleRateHz(samplFreq int) int {
	if samplFreq < 0 || samplFreq > 3 {
		return -1
	}
	return mpegAudioSampleRateHz[samplFreq]
}

// ParseMPEGAudioHeader decodes the 4-byte MPEG audio frame header at the
// start of b. It reports false if b is too short, the 11-bit syncword is
// not all ones, or the layer field holds the reserved value 00. The
// version field is not checked.
func ParseMPEGAudioHeader(b []byte) (*MPEGAudioHeader, bool) {
	if len(b) < 4 {
		return nil, false
	}
	if b[0] != 0xFF || b[1]&0xE0 != 0xE0 {
		return nil, false
	}
	versionID := (b[1] >> 3) & 0x03
	layer := (b[1] >> 1) & 0x03
	if layer == 0 {
		return nil, false // reserved.
	}
	h := &MPEGAudioHeader{
		VersionID:     versionID,
		Layer:         layer,
		ProtectionBit: b[1]&0x01 != 0,
		BitrateIndex:  (b[2] >> 4) & 0x0F,
		SamplingFreq:  (b[2] >> 2) & 0x03,
		PaddingBit:    b[2]&0x02 != 0,
		PrivateBit:    b[2]&0x01 != 0,
		Mode:          (b[3] >> 6) & 0x03,
		ModeExtension: (b[3] >> 4) & 0x03,
		Copyright:     b[3]&0x08 != 0,
		Original:      b[3]&0x04 != 0,
		Emphasis:      b[3] & 0x03,
	}
	return h, true
}

// layerNumber maps the 2-bit layer field (01=III, 10=II, 11=I) to the
// layer number (1, 2 or 3) used by MPEGAudioBitrateKbps.
func (h *MPEGAudioHeader) layerNumber() int {
	switch h.Layer {
	case 0x03:
		return 1
	case 0x02:
		return 2
	case 0x01:
		return 3
	default:
		return 0
	}
}

func (h *MPEGAudioHeader) String() string {
	layer := h.layerNumber()
	return fmt.Sprintf("MPEG layer %d %dkbps %dHz", layer,
		MPEGAudioBitrateKbps(layer, int(h.BitrateIndex)),
		MPEGAudioSampleRateHz(int(h.SamplingFreq)))
}
