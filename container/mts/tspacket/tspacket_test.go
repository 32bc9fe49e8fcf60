/*
NAME
  tspacket_test.go

AUTHOR
  Saxon Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package tspacket

import (
	"bytes"
	"testing"
)

func TestHeaderRoundTrip(t *testing.T) {
	cases := []*Header{
		{PID: 0x0100, AFC: 1, CC: 5},
		{PUSI: true, PID: 0x1fff, AFC: 1, CC: 0},
		{TEI: true, Priority: true, Scramble: 2, PID: 0x0021, AFC: 1, CC: 15},
		{
			PID: 0x0044, AFC: 3, CC: 7,
			AdaptLen: 7, Discontinuity: true, RandomAccess: true,
			HasPCR: true, PCR: 27000000,
		},
		{
			PID: 0x0045, AFC: 3, CC: 8,
			AdaptLen: 13, HasPCR: true, PCR: 27000000, HasOPCR: true, OPCR: 27000123,
		},
	}

	for i, want := range cases {
		payload := make([]byte, MaxPayload-int(want.AdaptLen))
		if want.HasAdaptation() {
			payload = payload[:Size-HeaderLen-1-int(want.AdaptLen)]
		}
		for j := range payload {
			payload[j] = byte(j)
		}

		raw := want.Bytes(payload)
		if len(raw) != Size {
			t.Fatalf("case %d: serialized length %d, want %d", i, len(raw), Size)
		}

		got, err := ParseHeader(raw)
		if err != nil {
			t.Fatalf("case %d: ParseHeader: %v", i, err)
		}

		if got.TEI != want.TEI || got.PUSI != want.PUSI || got.Priority != want.Priority ||
			got.PID != want.PID || got.Scramble != want.Scramble || got.AFC != want.AFC || got.CC != want.CC {
			t.Fatalf("case %d: header mismatch: got %+v, want %+v", i, got, want)
		}

		if want.HasAdaptation() {
			if got.Discontinuity != want.Discontinuity || got.RandomAccess != want.RandomAccess ||
				got.HasPCR != want.HasPCR || got.HasOPCR != want.HasOPCR {
				t.Fatalf("case %d: adaptation flags mismatch: got %+v, want %+v", i, got, want)
			}
			if want.HasPCR && got.PCR != want.PCR {
				t.Fatalf("case %d: PCR mismatch: got %d, want %d", i, got.PCR, want.PCR)
			}
			if want.HasOPCR && got.OPCR != want.OPCR {
				t.Fatalf("case %d: OPCR mismatch: got %d, want %d", i, got.OPCR, want.OPCR)
			}
		}

		gotPayload := Payload(got, raw)
		if !bytes.Equal(gotPayload, payload) {
			t.Fatalf("case %d: payload mismatch: got %v, want %v", i, gotPayload, payload)
		}
	}
}

func TestParseHeaderBadSync(t *testing.T) {
	b := make([]byte, Size)
	b[0] = 0x00
	if _, err := ParseHeader(b); err != ErrBadSync {
		t.Fatalf("got %v, want ErrBadSync", err)
	}
}

func TestParseHeaderShort(t *testing.T) {
	if _, err := ParseHeader(make([]byte, 10)); err != ErrShortPacket {
		t.Fatalf("got %v, want ErrShortPacket", err)
	}
}

func TestParseHeaderNoPayloadOrAdapt(t *testing.T) {
	b := make([]byte, Size)
	b[0] = SyncByte
	b[3] = 0x00 // AFC = 0, reserved/invalid
	if _, err := ParseHeader(b); err != ErrNoPayloadOrAdapt {
		t.Fatalf("got %v, want ErrNoPayloadOrAdapt", err)
	}
}

func TestParseHeaderAdaptationLenBoundary(t *testing.T) {
	b := make([]byte, Size)
	b[0] = SyncByte
	b[3] = 0x20 // AFC = 2, adaptation only
	b[4] = 184  // adaptLen+5 = 189 > 188
	if _, err := ParseHeader(b); err != ErrAdaptationLen {
		t.Fatalf("got %v, want ErrAdaptationLen", err)
	}

	b[4] = 183 // adaptLen+5 = 188, exactly at the boundary: ok
	if _, err := ParseHeader(b); err != nil {
		t.Fatalf("boundary case: unexpected error %v", err)
	}
}

func TestPCRRoundTrip(t *testing.T) {
	for _, pcr := range []uint64{0, 1, 300, 27000000, 27000000 * 9999, (1<<33-1)*300 + 299} {
		buf := make([]byte, 6)
		EncodePCR(buf, pcr)
		got := DecodePCR(buf)
		if got != pcr {
			t.Errorf("PCR round trip %d: got %d", pcr, got)
		}
	}
}

func TestPTSDTSRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 0x1FFFFFFFF, 0x100000000, 90000, 0x0AAAAAAAA}
	for _, v := range values {
		buf := make([]byte, 5)
		EncodePTSDTS(buf, GuardPTSOnly, v)
		got, err := DecodePTSDTS(buf, GuardPTSOnly)
		if err != nil {
			t.Errorf("PTS %#x: unexpected error %v", v, err)
		}
		if got != v&MaxPTS {
			t.Errorf("PTS round trip %#x: got %#x", v, got)
		}
	}
}

// TestPTSDTSScenario exercises the PTS=0x1FFFFFFFF, DTS=1 pairing used to
// check marker and guard-nibble handling at the extremes of the 33-bit range.
func TestPTSDTSScenario(t *testing.T) {
	pts := uint64(0x1FFFFFFFF)
	dts := uint64(1)

	ptsBuf := make([]byte, 5)
	EncodePTSDTS(ptsBuf, GuardPTSWithDTS, pts)
	gotPTS, err := DecodePTSDTS(ptsBuf, GuardPTSWithDTS)
	if err != nil {
		t.Fatalf("PTS: unexpected error %v", err)
	}
	if gotPTS != pts {
		t.Fatalf("PTS mismatch: got %#x, want %#x", gotPTS, pts)
	}

	dtsBuf := make([]byte, 5)
	EncodePTSDTS(dtsBuf, GuardDTS, dts)
	gotDTS, err := DecodePTSDTS(dtsBuf, GuardDTS)
	if err != nil {
		t.Fatalf("DTS: unexpected error %v", err)
	}
	if gotDTS != dts {
		t.Fatalf("DTS mismatch: got %#x, want %#x", gotDTS, dts)
	}
}

func TestDecodePTSDTSBadMarker(t *testing.T) {
	buf := make([]byte, 5)
	EncodePTSDTS(buf, GuardPTSOnly, 12345)
	buf[2] &^= 0x01 // clear a marker bit
	if _, err := DecodePTSDTS(buf, GuardPTSOnly); err == nil {
		t.Fatalf("expected marker error")
	}
}

func TestDecodePTSDTSBadGuard(t *testing.T) {
	buf := make([]byte, 5)
	EncodePTSDTS(buf, GuardPTSOnly, 12345)
	if _, err := DecodePTSDTS(buf, GuardDTS); err == nil {
		t.Fatalf("expected guard mismatch error")
	}
}
