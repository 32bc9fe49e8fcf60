/*
NAME
  pes_test.go

AUTHOR
  Dan Kortschak <dan@ausocean.org>
  Saxon Nelson-Milton <saxon.milton@gmail.com>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package pes

import (
	"testing"

	"github.com/ausocean/tsparse/container/mts/tspacket"
)

type discardLogger struct{}

func (*discardLogger) SetLevel(int8)                {}
func (*discardLogger) Debug(string, ...interface{})  {}
func (*discardLogger) Info(string, ...interface{})   {}
func (*discardLogger) Warning(string, ...interface{}) {}
func (*discardLogger) Error(string, ...interface{})  {}
func (*discardLogger) Fatal(string, ...interface{})  {}

func init() { Log = &discardLogger{} }

// buildPESHeader constructs a minimal PES packet: start code, stream_id,
// declared length, fixed optional-fields bytes, a PTS, and the given ES
// payload, for use as a single-packet push.
func buildPESHeader(streamID byte, declaredLen uint16, pts uint64, es []byte) []byte {
	b := []byte{
		0x00, 0x00, 0x01, streamID,
		byte(declaredLen >> 8), byte(declaredLen),
		0x80,       // marker bits '10', SC=0, priority/DAI/copyright/original=0.
		0x80,       // PTS_DTS_indicator='10' (PTS only), rest 0.
		5,          // pes_header_length.
	}
	pts5 := make([]byte, 5)
	tspacket.EncodePTSDTS(pts5, tspacket.GuardPTSOnly, pts)
	b = append(b, pts5...)
	b = append(b, es...)
	return b
}

func TestReassemblerSinglePacketVideo(t *testing.T) {
	es := []byte{0x00, 0x00, 0x00, 0x01, 0x67} // fake H.264 NAL prefix.
	pts := uint64(90000)
	pesLen := uint16(3 + 5 + len(es)) // fixed fields(3) + pts(5) + es.
	packet := buildPESHeader(0xE0, pesLen, pts, es)

	r := NewReassembler(0x100)
	u, err := r.Push(packet, true)
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	if u == nil {
		t.Fatalf("expected a completed unit from a single bounded packet")
	}
	if !u.IsVideo {
		t.Fatalf("expected video classification for stream_id 0xE0")
	}
	if !u.HasPTS || u.PTS != pts {
		t.Fatalf("PTS mismatch: got %d, want %d (hasPTS=%v)", u.PTS, pts, u.HasPTS)
	}
	if len(u.ESData) != len(es) {
		t.Fatalf("ES data length mismatch: got %d, want %d", len(u.ESData), len(es))
	}
}

func TestReassemblerUnboundedVideoCompletesOnNextPUSI(t *testing.T) {
	es1 := []byte{0x00, 0x00, 0x00, 0x01, 0x67, 0xAA, 0xBB}
	packet1 := buildPESHeader(0xE0, 0, 90000, es1) // declared length 0 = unbounded.

	r := NewReassembler(0x100)
	u, err := r.Push(packet1, true)
	if err != nil {
		t.Fatalf("Push 1: %v", err)
	}
	if u != nil {
		t.Fatalf("expected no completed unit yet for an unbounded PES")
	}

	// A continuation packet without PUSI.
	u, err = r.Push([]byte{0xCC, 0xDD}, false)
	if err != nil {
		t.Fatalf("Push 2: %v", err)
	}
	if u != nil {
		t.Fatalf("expected no completion on a non-PUSI continuation")
	}

	// Next PUSI signals completion of the previous unbounded unit.
	es2 := []byte{0x00, 0x00, 0x00, 0x01, 0x65}
	packet3 := buildPESHeader(0xE0, 0, 90100, es2)
	u, err = r.Push(packet3, true)
	if err != nil {
		t.Fatalf("Push 3: %v", err)
	}
	if u == nil {
		t.Fatalf("expected the previous unbounded unit to complete on next PUSI")
	}
	wantES := append(append([]byte(nil), es1...), 0xCC, 0xDD)
	if len(u.ESData) != len(wantES) {
		t.Fatalf("ES data length mismatch: got %d, want %d", len(u.ESData), len(wantES))
	}
}

func TestReassemblerBadStartCode(t *testing.T) {
	r := NewReassembler(0x101)
	_, err := r.Push([]byte{0x00, 0x00, 0x02, 0xC0, 0x00, 0x00}, true)
	if err != ErrBadStartCode {
		t.Fatalf("expected ErrBadStartCode, got %v", err)
	}
}

func TestMPEGAudioHeaderParse(t *testing.T) {
	// MPEG-1 Layer III, 128kbps, 44100Hz: 0xFF 0xFB 0x90 0x00.
	h, ok := ParseMPEGAudioHeader([]byte{0xFF, 0xFB, 0x90, 0x00})
	if !ok {
		t.Fatalf("expected a valid MPEG audio header")
	}
	if h.layerNumber() != 3 {
		t.Fatalf("expected layer 3, got %d", h.layerNumber())
	}
	if MPEGAudioSampleRateHz(int(h.SamplingFreq)) != 44100 {
		t.Fatalf("expected 44100Hz, got %d", MPEGAudioSampleRateHz(int(h.SamplingFreq)))
	}
}

func TestReassemblerAC3Sniff(t *testing.T) {
	es := append([]byte{0x0B, 0x77}, make([]byte, 10)...)
	pesLen := uint16(3 + 5 + len(es))
	packet := buildPESHeader(0xBD, pesLen, 90000, es) // private_stream_1, AC-3 commonly riding here.

	r := NewReassembler(0x102)
	u, err := r.Push(packet, true)
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	if u == nil || !u.IsAC3 {
		t.Fatalf("expected AC-3 sync sniff to classify the unit as AC-3")
	}
}
